// Package filter turns loosely typed query parameters into mongo predicates.
package filter

import (
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/trip-service/internal/apperror"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PrimaryIDKey is the filter key of the trip's own identifier.
const PrimaryIDKey = "_id"

// IDPolicy decides what happens when the primary identifier filter does not
// parse as an object id.
type IDPolicy int

const (
	// Lenient drops the malformed _id filter like any other id-like key.
	Lenient IDPolicy = iota
	// Strict fails the whole build with InvalidArgument.
	Strict
)

// Builder builds conjunctive predicates from raw filter maps.
type Builder struct {
	policy IDPolicy
	log    logrus.FieldLogger
}

// NewBuilder returns a Builder with the given primary id policy.
func NewBuilder(policy IDPolicy, log logrus.FieldLogger) *Builder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Builder{policy: policy, log: log}
}

// Build returns the AND of one predicate per usable key. Rules per key, in order:
// nil values and blank id-like values are dropped; id-like keys (_id, userId,
// *Id) must parse as object ids and are otherwise dropped (or rejected for _id
// under Strict); non-blank strings become case-insensitive substring matches;
// anything else matches exactly. An empty result matches every document.
func (b *Builder) Build(raw map[string]interface{}) (bson.M, error) {
	predicate := bson.M{}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := raw[key]
		if value == nil {
			continue
		}
		if key == "" || strings.HasPrefix(key, "$") {
			b.log.WithField("key", key).Warn("Dropping filter with operator key")
			continue
		}

		if isIDKey(key) {
			if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
				continue
			}
			id, ok := ParseObjectID(value)
			if !ok {
				if key == PrimaryIDKey && b.policy == Strict {
					return nil, apperror.InvalidArgument("invalid trip id format: %v", value)
				}
				b.log.WithFields(logrus.Fields{"key": key, "value": value}).Info("Invalid ObjectId format, skipping filter")
				continue
			}
			predicate[key] = id
			continue
		}

		if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
			predicate[key] = bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
			continue
		}

		predicate[key] = value
	}

	return predicate, nil
}

func isIDKey(key string) bool {
	return key == PrimaryIDKey || key == "userId" || strings.HasSuffix(key, "Id")
}

// ParseObjectID accepts an ObjectID or its 24 character hex form.
func ParseObjectID(value interface{}) (primitive.ObjectID, bool) {
	switch v := value.(type) {
	case primitive.ObjectID:
		return v, true
	case *primitive.ObjectID:
		if v == nil {
			return primitive.NilObjectID, false
		}
		return *v, true
	case string:
		id, err := primitive.ObjectIDFromHex(strings.TrimSpace(v))
		if err != nil {
			return primitive.NilObjectID, false
		}
		return id, true
	default:
		return primitive.NilObjectID, false
	}
}
