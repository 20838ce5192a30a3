// Package cache holds read-through caches in front of the document store.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/trip-service/internal/db"
	"github.com/ukydev/trip-service/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GeofenceCache serves geofence lookups from Redis and falls back to the
// wrapped collection. Redis failures are logged and treated as misses.
type GeofenceCache struct {
	next   db.GeofenceCollection
	client *redis.Client
	ttl    time.Duration
	log    logrus.FieldLogger
}

// NewGeofenceCache wraps next with a Redis cache.
func NewGeofenceCache(next db.GeofenceCollection, client *redis.Client, ttl time.Duration, log logrus.FieldLogger) *GeofenceCache {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &GeofenceCache{next: next, client: client, ttl: ttl, log: log}
}

// GeofenceKey generates the cache key for a geofence
func GeofenceKey(id primitive.ObjectID) string {
	return fmt.Sprintf("geofence:%s", id.Hex())
}

// FindGeofencesByIDs implements db.GeofenceCollection.
func (c *GeofenceCache) FindGeofencesByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Geofence, error) {
	found := make(map[primitive.ObjectID]models.Geofence, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	missing := c.readCached(ctx, ids, found)
	if len(missing) == 0 {
		return found, nil
	}

	loaded, err := c.next.FindGeofencesByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, g := range loaded {
		found[id] = g
	}
	c.writeCached(ctx, loaded)
	return found, nil
}

func (c *GeofenceCache) readCached(ctx context.Context, ids []primitive.ObjectID, found map[primitive.ObjectID]models.Geofence) []primitive.ObjectID {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = GeofenceKey(id)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.log.WithError(err).Warn("Geofence cache read failed")
		return ids
	}

	var missing []primitive.ObjectID
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			missing = append(missing, ids[i])
			continue
		}
		var g models.Geofence
		if err := json.Unmarshal([]byte(raw), &g); err != nil {
			c.log.WithError(err).WithField("key", keys[i]).Warn("Dropping undecodable geofence cache entry")
			missing = append(missing, ids[i])
			continue
		}
		found[ids[i]] = g
	}
	return missing
}

func (c *GeofenceCache) writeCached(ctx context.Context, loaded map[primitive.ObjectID]models.Geofence) {
	if len(loaded) == 0 {
		return
	}
	pipe := c.client.Pipeline()
	for id, g := range loaded {
		data, err := json.Marshal(g)
		if err != nil {
			c.log.WithError(err).WithField("geofence", id.Hex()).Warn("Failed to encode geofence for cache")
			continue
		}
		pipe.Set(ctx, GeofenceKey(id), data, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.WithError(err).Warn("Geofence cache write failed")
	}
}
