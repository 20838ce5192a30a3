package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/trip-service/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoGeofenceCollection implements GeofenceCollection for MongoDB.
type MongoGeofenceCollection struct {
	Collection *mongo.Collection
}

// FindGeofencesByIDs loads the geofences with the given ids in one query.
// Ids with no geofence are absent from the result.
func (c *MongoGeofenceCollection) FindGeofencesByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Geofence, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	found := make(map[primitive.ObjectID]models.Geofence, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	cursor, err := c.Collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var geofences []models.Geofence
	if err := cursor.All(ctx, &geofences); err != nil {
		return nil, err
	}
	for _, g := range geofences {
		found[g.ID] = g
	}
	return found, nil
}

// InsertGeofence inserts a geofence record.
func (c *MongoGeofenceCollection) InsertGeofence(ctx context.Context, geofence *models.Geofence) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	now := time.Now().UTC()
	if geofence.ID.IsZero() {
		geofence.ID = primitive.NewObjectID()
	}
	geofence.CreatedAt = now
	geofence.UpdatedAt = now

	_, err := c.Collection.InsertOne(ctx, geofence)
	return err
}
