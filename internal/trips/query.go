package trips

import (
	"context"
	"errors"
	"time"

	"github.com/ukydev/trip-service/internal/apperror"
	"github.com/ukydev/trip-service/internal/db"
	"github.com/ukydev/trip-service/internal/filter"
	"github.com/ukydev/trip-service/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"
)

// List returns a page of trips matching filters. Id-like filter keys that do
// not parse as object ids are dropped.
func (s *Service) List(ctx context.Context, filters map[string]interface{}, page, limit int) (*models.TripPage, error) {
	predicate, err := s.lenient.Build(filters)
	if err != nil {
		return nil, err
	}
	return s.page(ctx, predicate, page, limit)
}

// Search is List with a strict _id filter: a malformed _id fails the call
// with InvalidArgument.
func (s *Service) Search(ctx context.Context, filters map[string]interface{}, page, limit int) (*models.TripPage, error) {
	predicate, err := s.strict.Build(filters)
	if err != nil {
		return nil, err
	}
	return s.page(ctx, predicate, page, limit)
}

// FindByStatus returns a page of trips with the given status.
func (s *Service) FindByStatus(ctx context.Context, status string, page, limit int) (*models.TripPage, error) {
	return s.page(ctx, bson.M{"status": status}, page, limit)
}

// FindByVehicleID returns a page of trips for the numeric vehicle id.
func (s *Service) FindByVehicleID(ctx context.Context, vehid int64, page, limit int) (*models.TripPage, error) {
	return s.page(ctx, bson.M{"vehicleDetails." + models.VehicleKeyVehID: vehid}, page, limit)
}

// FindByDateRange returns a page of trips that start on or after start and
// end on or before end.
func (s *Service) FindByDateRange(ctx context.Context, start, end time.Time, page, limit int) (*models.TripPage, error) {
	if end.Before(start) {
		return nil, apperror.InvalidArgument("endDate %s is before startDate %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	predicate := bson.M{
		"startDate": bson.M{"$gte": start},
		"endDate":   bson.M{"$lte": end},
	}
	return s.page(ctx, predicate, page, limit)
}

// FindOne returns a single trip by its object id.
func (s *Service) FindOne(ctx context.Context, id string) (*models.TripView, error) {
	oid, ok := filter.ParseObjectID(id)
	if !ok {
		return nil, apperror.InvalidArgument("invalid trip id %q", id)
	}

	trip, err := s.trips.FindTripByID(ctx, oid)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apperror.NotFound("trip %s not found", id)
		}
		return nil, apperror.Internal("error fetching trip", err)
	}

	views, err := s.enrich(ctx, []models.Trip{*trip})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// page runs the count and the data fetch for predicate concurrently, then
// joins and enriches the fetched slice.
func (s *Service) page(ctx context.Context, predicate bson.M, page, limit int) (*models.TripPage, error) {
	if page < 1 {
		return nil, apperror.InvalidArgument("page must be at least 1, got %d", page)
	}
	if limit < 1 {
		return nil, apperror.InvalidArgument("limit must be at least 1, got %d", limit)
	}
	skip := int64(page-1) * int64(limit)

	var (
		trips []models.Trip
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		trips, err = s.trips.FindTrips(gctx, predicate, skip, int64(limit))
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.trips.CountTrips(gctx, predicate)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperror.Internal("error fetching trips", err)
	}

	views, err := s.enrich(ctx, trips)
	if err != nil {
		return nil, err
	}
	return &models.TripPage{Items: views, Total: total, Page: page, Limit: limit}, nil
}

// enrich joins route hubs, then resolves vehicle references per trip.
// Vehicle resolution never fails the batch.
func (s *Service) enrich(ctx context.Context, trips []models.Trip) ([]models.TripView, error) {
	views, err := s.joinHubs(ctx, trips)
	if err != nil {
		return nil, apperror.Internal("error joining route hubs", err)
	}
	if s.vehicles == nil {
		return views, nil
	}

	var g errgroup.Group
	g.SetLimit(s.cfg.ResolverConcurrency)
	for i := range views {
		view := &views[i]
		g.Go(func() error {
			s.vehicles.Resolve(ctx, view.VehicleDetails)
			return nil
		})
	}
	_ = g.Wait()
	return views, nil
}
