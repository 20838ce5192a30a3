package db

import (
	"context"
	"errors"

	"github.com/ukydev/trip-service/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Collection names.
const (
	TripsCollection     = "trips"
	GeofencesCollection = "geofences"
)

// ErrNotFound is returned when no document matches.
var ErrNotFound = errors.New("document not found")

// TripCollection defines the interface for trip data operations.
type TripCollection interface {
	InsertTrip(ctx context.Context, trip *models.Trip) error
	FindTrips(ctx context.Context, filter bson.M, skip, limit int64) ([]models.Trip, error)
	CountTrips(ctx context.Context, filter bson.M) (int64, error)
	FindTripByID(ctx context.Context, id primitive.ObjectID) (*models.Trip, error)
	FindOneTrip(ctx context.Context, filter bson.M) (*models.Trip, error)
	UpdateTrip(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Trip, error)
	DeleteTrip(ctx context.Context, id primitive.ObjectID) (*models.Trip, error)
}

// GeofenceCollection defines the read side of the geofences collection.
type GeofenceCollection interface {
	FindGeofencesByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Geofence, error)
}

// VehicleMasters gives access to vehicle master collections chosen at runtime by name.
type VehicleMasters interface {
	FindMasterDocument(ctx context.Context, collection string, id primitive.ObjectID) (bson.M, error)
}
