package db

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ConnectMongo connects to MongoDB and verifies the connection with a ping.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(uri)
	clientOptions.SetMaxPoolSize(100)
	clientOptions.SetMinPoolSize(5)
	clientOptions.SetMaxConnIdleTime(30 * time.Second)
	clientOptions.SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the indexes trip queries rely on. The unique tripId
// index is what makes generated trip ids unique across processes.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	trips := database.Collection(TripsCollection)
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tripId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("tripId_unique"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("status"),
		},
		{
			Keys:    bson.D{{Key: "vehicleDetails.vehid", Value: 1}},
			Options: options.Index().SetName("vehicle_vehid"),
		},
		{
			Keys:    bson.D{{Key: "startDate", Value: 1}, {Key: "endDate", Value: 1}},
			Options: options.Index().SetName("date_range"),
		},
	}

	names, err := trips.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("create trip indexes: %w", err)
	}
	logrus.WithField("indexes", names).Debug("Trip indexes ensured")
	return nil
}
