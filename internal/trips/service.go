// Package trips implements trip queries and the trip lifecycle on top of the
// document store: filtering, pagination, hub joins and vehicle enrichment.
package trips

import (
	"context"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/trip-service/internal/db"
	"github.com/ukydev/trip-service/internal/events"
	"github.com/ukydev/trip-service/internal/filter"
	"github.com/ukydev/trip-service/internal/models"
	"github.com/ukydev/trip-service/internal/resolver"
)

// Config holds the policy toggles of the service.
type Config struct {
	// DuplicateGuard rejects a create when an active trip already exists
	// for the same vehicle, start date and route. The check is advisory:
	// concurrent creates can both pass it.
	DuplicateGuard bool
	// TripIDWithVehicle embeds the vehicle id in generated trip ids.
	TripIDWithVehicle bool
	// ResolverConcurrency bounds concurrent vehicle resolutions per page.
	ResolverConcurrency int
}

// Service is the trip query engine and lifecycle.
type Service struct {
	trips     db.TripCollection
	geofences db.GeofenceCollection
	vehicles  *resolver.Resolver
	publisher events.Publisher

	lenient  *filter.Builder
	strict   *filter.Builder
	ids      *IDGenerator
	validate *validator.Validate

	cfg Config
	log logrus.FieldLogger
}

// NewService wires a Service. vehicles and publisher may be nil, which
// disables vehicle enrichment and event publishing respectively.
func NewService(trips db.TripCollection, geofences db.GeofenceCollection, vehicles *resolver.Resolver, publisher events.Publisher, cfg Config, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if cfg.ResolverConcurrency < 1 {
		cfg.ResolverConcurrency = 1
	}
	return &Service{
		trips:     trips,
		geofences: geofences,
		vehicles:  vehicles,
		publisher: publisher,
		lenient:   filter.NewBuilder(filter.Lenient, log),
		strict:    filter.NewBuilder(filter.Strict, log),
		ids:       NewIDGenerator(TripIDPrefix),
		validate:  NewValidator(),
		cfg:       cfg,
		log:       log.WithField("component", "trips"),
	}
}

// NewValidator returns a validator that reports fields by their json names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// publish sends a lifecycle event. Failures are logged only.
func (s *Service) publish(ctx context.Context, t events.Type, trip *models.Trip) {
	if err := s.publisher.Publish(ctx, events.NewTripEvent(t, trip)); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"event":  t,
			"tripId": trip.TripID,
		}).Warn("failed to publish trip event")
	}
}
