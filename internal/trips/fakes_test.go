package trips

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/trip-service/internal/db"
	"github.com/ukydev/trip-service/internal/events"
	"github.com/ukydev/trip-service/internal/models"
	"github.com/ukydev/trip-service/internal/resolver"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// fakeTrips keeps trips as bson documents and evaluates the subset of query
// operators the service emits.
type fakeTrips struct {
	mu        sync.Mutex
	docs      []bson.M
	err       error
	insertErr error
}

func (f *fakeTrips) InsertTrip(ctx context.Context, trip *models.Trip) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.insertErr != nil {
		return f.insertErr
	}
	for _, d := range f.docs {
		if d["tripId"] == trip.TripID {
			return mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key error"}}}
		}
	}
	if trip.ID.IsZero() {
		trip.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	trip.CreatedAt, trip.UpdatedAt = now, now
	f.docs = append(f.docs, toDoc(trip))
	return nil
}

func (f *fakeTrips) FindTrips(ctx context.Context, filter bson.M, skip, limit int64) ([]models.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Trip
	var matched int64
	for _, d := range f.docs {
		if !matches(d, filter) {
			continue
		}
		matched++
		if matched <= skip || int64(len(out)) >= limit {
			continue
		}
		out = append(out, fromDoc(d))
	}
	return out, nil
}

func (f *fakeTrips) CountTrips(ctx context.Context, filter bson.M) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	var n int64
	for _, d := range f.docs {
		if matches(d, filter) {
			n++
		}
	}
	return n, nil
}

func (f *fakeTrips) FindTripByID(ctx context.Context, id primitive.ObjectID) (*models.Trip, error) {
	return f.FindOneTrip(ctx, bson.M{"_id": id})
}

func (f *fakeTrips) FindOneTrip(ctx context.Context, filter bson.M) (*models.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, d := range f.docs {
		if matches(d, filter) {
			t := fromDoc(d)
			return &t, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeTrips) UpdateTrip(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, d := range f.docs {
		if d["_id"] != id {
			continue
		}
		for path, v := range set {
			setPath(d, path, storedValue(v))
		}
		d["updatedAt"] = storedValue(time.Now().UTC())
		t := fromDoc(d)
		return &t, nil
	}
	return nil, db.ErrNotFound
}

func (f *fakeTrips) DeleteTrip(ctx context.Context, id primitive.ObjectID) (*models.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for i, d := range f.docs {
		if d["_id"] == id {
			f.docs = append(f.docs[:i], f.docs[i+1:]...)
			t := fromDoc(d)
			return &t, nil
		}
	}
	return nil, db.ErrNotFound
}

func toDoc(v interface{}) bson.M {
	raw, err := bson.Marshal(v)
	if err != nil {
		panic(err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		panic(err)
	}
	return doc
}

func fromDoc(doc bson.M) models.Trip {
	raw, err := bson.Marshal(doc)
	if err != nil {
		panic(err)
	}
	var t models.Trip
	if err := bson.Unmarshal(raw, &t); err != nil {
		panic(err)
	}
	return t
}

func storedValue(v interface{}) interface{} {
	return toDoc(bson.M{"v": v})["v"]
}

func lookup(doc bson.M, path string) interface{} {
	parts := strings.Split(path, ".")
	var cur interface{} = doc
	for _, p := range parts {
		m, ok := resolver.AsDocument(cur)
		if !ok {
			return nil
		}
		cur = m[p]
	}
	return cur
}

func setPath(doc bson.M, path string, v interface{}) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := resolver.AsDocument(cur[p])
		if !ok {
			next = bson.M{}
		}
		cur[p] = next
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}

func matches(doc bson.M, filter bson.M) bool {
	for key, cond := range filter {
		val := lookup(doc, key)
		ops, isOps := cond.(bson.M)
		if !isOps {
			if !equal(val, cond) {
				return false
			}
			continue
		}
		for op, arg := range ops {
			switch op {
			case "$regex":
				pattern := arg.(string)
				if ops["$options"] == "i" {
					pattern = "(?i)" + pattern
				}
				s, ok := val.(string)
				if !ok || !regexp.MustCompile(pattern).MatchString(s) {
					return false
				}
			case "$options":
			case "$gte", "$lte":
				c, ok := compare(val, arg)
				if !ok || (op == "$gte" && c < 0) || (op == "$lte" && c > 0) {
					return false
				}
			case "$nin":
				for _, x := range arg.([]string) {
					if equal(val, x) {
						return false
					}
				}
			default:
				panic(fmt.Sprintf("fakeTrips: unsupported operator %s", op))
			}
		}
	}
	return true
}

func normalize(v interface{}) interface{} {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case primitive.DateTime:
		return x.Time().UTC()
	case time.Time:
		return x.UTC().Truncate(time.Millisecond)
	}
	return v
}

func equal(a, b interface{}) bool {
	a, b = normalize(a), normalize(b)
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}

func compare(a, b interface{}) (int, bool) {
	ta, ok1 := normalize(a).(time.Time)
	tb, ok2 := normalize(b).(time.Time)
	if !ok1 || !ok2 {
		return 0, false
	}
	switch {
	case ta.Before(tb):
		return -1, true
	case ta.After(tb):
		return 1, true
	}
	return 0, true
}

type fakeGeofences struct {
	mu    sync.Mutex
	hubs  map[primitive.ObjectID]models.Geofence
	err   error
	calls int
}

func (f *fakeGeofences) add(name string) primitive.ObjectID {
	id := primitive.NewObjectID()
	if f.hubs == nil {
		f.hubs = map[primitive.ObjectID]models.Geofence{}
	}
	f.hubs[id] = models.Geofence{ID: id, Name: name}
	return id
}

func (f *fakeGeofences) FindGeofencesByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Geofence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := map[primitive.ObjectID]models.Geofence{}
	for _, id := range ids {
		if g, ok := f.hubs[id]; ok {
			out[id] = g
		}
	}
	return out, nil
}

type fakeMasters struct {
	docs map[string]map[primitive.ObjectID]bson.M
}

func (f *fakeMasters) add(collection string, doc bson.M) primitive.ObjectID {
	id := primitive.NewObjectID()
	doc["_id"] = id
	if f.docs == nil {
		f.docs = map[string]map[primitive.ObjectID]bson.M{}
	}
	if f.docs[collection] == nil {
		f.docs[collection] = map[primitive.ObjectID]bson.M{}
	}
	f.docs[collection][id] = doc
	return id
}

func (f *fakeMasters) FindMasterDocument(ctx context.Context, collection string, id primitive.ObjectID) (bson.M, error) {
	doc, ok := f.docs[collection][id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return doc, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.TripEvent
	err    error
}

func (p *fakePublisher) Publish(ctx context.Context, e events.TripEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *fakePublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	svc       *Service
	trips     *fakeTrips
	geofences *fakeGeofences
	masters   *fakeMasters
	publisher *fakePublisher
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	logger, _ := test.NewNullLogger()
	f := &fixture{
		trips:     &fakeTrips{},
		geofences: &fakeGeofences{},
		masters:   &fakeMasters{},
		publisher: &fakePublisher{},
	}
	vehicles := resolver.New(f.masters, resolver.WithLogger(logger))
	f.svc = NewService(f.trips, f.geofences, vehicles, f.publisher, cfg, logger)
	return f
}

// seed stores trip directly, bypassing Create.
func (f *fixture) seed(t *testing.T, trip models.Trip) models.Trip {
	t.Helper()
	if trip.TripID == "" {
		trip.TripID = "SEED-" + primitive.NewObjectID().Hex()
	}
	require.NoError(t, f.trips.InsertTrip(context.Background(), &trip))
	return trip
}
