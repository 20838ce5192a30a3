// Package resolver enriches trip vehicle details with the vehicle master
// records they point at. Resolution is best effort: a failed lookup leaves
// that entry untouched and never fails the trip.
package resolver

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/trip-service/internal/db"
	"go.mongodb.org/mongo-driver/bson"
)

// Status is the result of following one reference.
type Status string

const (
	StatusResolved Status = "resolved"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
)

// Skip reasons.
const (
	ReasonMissingCollection = "missing DBmaster"
	ReasonInvalidCollection = "invalid collection name"
	ReasonNotAllowed        = "collection not allowed"
	ReasonMalformedID       = "malformed identifier"
	ReasonNotFound          = "not found"
)

// Outcome records what happened to one reference.
type Outcome struct {
	Key        string
	Collection string
	Status     Status
	Reason     string
	Err        error
}

var resolutionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "trip_vehicle_resolutions_total",
		Help: "Vehicle master references followed while enriching trips, by outcome",
	},
	[]string{"outcome"},
)

// Resolver follows vehicle references into their master collections.
type Resolver struct {
	masters db.VehicleMasters
	allowed map[string]struct{}
	log     logrus.FieldLogger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithAllowedCollections restricts lookups to the named collections. An empty
// list allows any valid collection name.
func WithAllowedCollections(names ...string) Option {
	return func(r *Resolver) {
		if len(names) == 0 {
			return
		}
		r.allowed = make(map[string]struct{}, len(names))
		for _, n := range names {
			r.allowed[n] = struct{}{}
		}
	}
}

// WithLogger sets the logger for swallowed failures.
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

// New creates a Resolver reading from masters.
func New(masters db.VehicleMasters, opts ...Option) *Resolver {
	r := &Resolver{masters: masters, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve enriches details in place and returns one outcome per reference
// found. Each fetched document is nested under its collection name inside the
// entry that referenced it.
func (r *Resolver) Resolve(ctx context.Context, details bson.M) []Outcome {
	refs, outcomes := Extract(details)
	for _, ref := range refs {
		outcomes = append(outcomes, r.follow(ctx, details, ref))
	}

	for _, o := range outcomes {
		resolutionsTotal.WithLabelValues(string(o.Status)).Inc()
		if o.Status == StatusResolved {
			continue
		}
		entry := r.log.WithFields(logrus.Fields{
			"key":        o.Key,
			"collection": o.Collection,
			"reason":     o.Reason,
		})
		if o.Err != nil {
			entry.WithError(o.Err).Warn("Error fetching vehicle details")
		} else {
			entry.Debug("Vehicle reference skipped")
		}
	}
	return outcomes
}

func (r *Resolver) follow(ctx context.Context, details bson.M, ref Reference) Outcome {
	outcome := Outcome{Key: ref.Key, Collection: ref.Collection}

	if r.allowed != nil {
		if _, ok := r.allowed[ref.Collection]; !ok {
			outcome.Status, outcome.Reason = StatusSkipped, ReasonNotAllowed
			return outcome
		}
	}

	var sub bson.M
	if ref.Key != RootKey {
		var ok bool
		if sub, ok = AsDocument(details[ref.Key]); !ok {
			outcome.Status, outcome.Reason = StatusSkipped, ReasonMalformedID
			return outcome
		}
	}

	doc, err := r.masters.FindMasterDocument(ctx, ref.Collection, ref.ID)
	switch {
	case errors.Is(err, db.ErrNotFound):
		outcome.Status, outcome.Reason = StatusSkipped, ReasonNotFound
		return outcome
	case err != nil:
		outcome.Status, outcome.Reason, outcome.Err = StatusFailed, "lookup failed", err
		return outcome
	}

	if ref.Key == RootKey {
		details[ref.Collection] = doc
	} else {
		// the entry may have been decoded as bson.D; store it back as a map
		sub[ref.Collection] = doc
		details[ref.Key] = sub
	}
	outcome.Status = StatusResolved
	return outcome
}
