package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ukydev/trip-service/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoTripCollection implements TripCollection for MongoDB.
type MongoTripCollection struct {
	Collection *mongo.Collection
}

// InsertTrip inserts a trip record and sets its id and timestamps.
func (c *MongoTripCollection) InsertTrip(ctx context.Context, trip *models.Trip) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	now := time.Now().UTC()
	if trip.ID.IsZero() {
		trip.ID = primitive.NewObjectID()
	}
	trip.CreatedAt = now
	trip.UpdatedAt = now

	_, err := c.Collection.InsertOne(ctx, trip)
	return err
}

// FindTrips queries trip records matching filter, skipping and limiting in store order.
func (c *MongoTripCollection) FindTrips(ctx context.Context, filter bson.M, skip, limit int64) ([]models.Trip, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}

	opts := options.Find().SetSkip(skip).SetLimit(limit)
	cursor, err := c.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var trips []models.Trip
	if err := cursor.All(ctx, &trips); err != nil {
		return nil, err
	}
	if trips == nil {
		trips = []models.Trip{}
	}
	return trips, nil
}

// CountTrips counts trip records matching filter.
func (c *MongoTripCollection) CountTrips(ctx context.Context, filter bson.M) (int64, error) {
	if c.Collection == nil {
		return 0, fmt.Errorf("mongo collection is nil")
	}
	return c.Collection.CountDocuments(ctx, filter)
}

// FindTripByID finds a trip by its ID.
func (c *MongoTripCollection) FindTripByID(ctx context.Context, id primitive.ObjectID) (*models.Trip, error) {
	return c.FindOneTrip(ctx, bson.M{"_id": id})
}

// FindOneTrip returns the first trip matching filter.
func (c *MongoTripCollection) FindOneTrip(ctx context.Context, filter bson.M) (*models.Trip, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}

	var trip models.Trip
	err := c.Collection.FindOne(ctx, filter).Decode(&trip)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &trip, nil
}

// UpdateTrip applies set to a trip and returns the updated record.
func (c *MongoTripCollection) UpdateTrip(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Trip, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}

	fields := bson.M{}
	for k, v := range set {
		fields[k] = v
	}
	fields["updatedAt"] = time.Now().UTC()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var trip models.Trip
	err := c.Collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": fields}, opts).Decode(&trip)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &trip, nil
}

// DeleteTrip deletes a trip by its ID and returns the deleted record.
func (c *MongoTripCollection) DeleteTrip(ctx context.Context, id primitive.ObjectID) (*models.Trip, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}

	var trip models.Trip
	err := c.Collection.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&trip)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &trip, nil
}

// IsDuplicateKey reports whether err is a unique index violation.
func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
