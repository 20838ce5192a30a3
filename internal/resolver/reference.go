package resolver

import (
	"sort"
	"strings"

	"github.com/ukydev/trip-service/internal/filter"
	"github.com/ukydev/trip-service/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RootKey marks a reference carried by the vehicle details document itself.
const RootKey = ""

// Reference points from a vehicle details entry at one master record.
type Reference struct {
	Key        string
	Collection string
	ID         primitive.ObjectID
}

// Extract finds the references in vehicle details. Entries that carry a
// "field" document but cannot be resolved are returned as skipped outcomes.
// Keys are visited in sorted order; the root form comes first.
func Extract(details bson.M) ([]Reference, []Outcome) {
	var refs []Reference
	var skipped []Outcome

	if details == nil {
		return nil, nil
	}

	if ref, outcome, ok := referenceOf(RootKey, details); ok {
		if outcome != nil {
			skipped = append(skipped, *outcome)
		} else {
			refs = append(refs, ref)
		}
	}

	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		sub, ok := AsDocument(details[key])
		if !ok {
			continue
		}
		ref, outcome, ok := referenceOf(key, sub)
		if !ok {
			continue
		}
		if outcome != nil {
			skipped = append(skipped, *outcome)
			continue
		}
		refs = append(refs, ref)
	}
	return refs, skipped
}

// referenceOf reports whether doc carries a field document and, if so, either
// the reference it names or why it cannot be followed.
func referenceOf(key string, doc bson.M) (Reference, *Outcome, bool) {
	field, ok := AsDocument(doc[models.VehicleKeyField])
	if !ok {
		return Reference{}, nil, false
	}

	collection, _ := field[models.VehicleKeyDBMaster].(string)
	collection = strings.TrimSpace(collection)
	if collection == "" {
		return Reference{}, skip(key, "", ReasonMissingCollection), true
	}
	if !validCollectionName(collection) {
		return Reference{}, skip(key, collection, ReasonInvalidCollection), true
	}

	raw := field[models.VehicleKeyValue]
	if raw == nil {
		raw = doc[models.VehicleKeyID]
	}
	id, ok := filter.ParseObjectID(raw)
	if !ok {
		return Reference{}, skip(key, collection, ReasonMalformedID), true
	}
	return Reference{Key: key, Collection: collection, ID: id}, nil, true
}

func skip(key, collection, reason string) *Outcome {
	return &Outcome{Key: key, Collection: collection, Status: StatusSkipped, Reason: reason}
}

func validCollectionName(name string) bool {
	return !strings.ContainsAny(name, "$\x00") && !strings.HasPrefix(name, "system.")
}

// AsDocument normalizes the document shapes the driver and JSON decoding produce.
func AsDocument(v interface{}) (bson.M, bool) {
	switch d := v.(type) {
	case bson.M:
		return d, true
	case map[string]interface{}:
		return bson.M(d), true
	case bson.D:
		m := make(bson.M, len(d))
		for _, e := range d {
			m[e.Key] = e.Value
		}
		return m, true
	default:
		return nil, false
	}
}
