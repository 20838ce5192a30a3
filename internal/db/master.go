package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoVehicleMasters looks vehicle master records up in collections named at runtime.
type MongoVehicleMasters struct {
	Database *mongo.Database
}

// FindMasterDocument fetches one document by id from the named collection.
func (m *MongoVehicleMasters) FindMasterDocument(ctx context.Context, collection string, id primitive.ObjectID) (bson.M, error) {
	if m.Database == nil {
		return nil, fmt.Errorf("mongo database is nil")
	}

	var doc bson.M
	err := m.Database.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}
