package trips

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/trip-service/internal/apperror"
	"github.com/ukydev/trip-service/internal/db"
	"github.com/ukydev/trip-service/internal/events"
	"github.com/ukydev/trip-service/internal/filter"
	"github.com/ukydev/trip-service/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Create validates req, optionally checks for an active duplicate, assigns a
// trip id and stores the trip.
func (s *Service) Create(ctx context.Context, req models.CreateTripRequest) (*models.Trip, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperror.InvalidArgumentWithCause("invalid trip payload", err)
	}
	trip, err := tripFromRequest(req)
	if err != nil {
		return nil, err
	}

	if s.cfg.DuplicateGuard {
		_, err := s.trips.FindOneTrip(ctx, duplicateFilter(trip))
		switch {
		case err == nil:
			return nil, apperror.Conflict("an active trip with the same vehicle, date and route already exists")
		case !errors.Is(err, db.ErrNotFound):
			return nil, apperror.Internal("error checking for duplicate trip", err)
		}
	}

	var vehicle string
	if s.cfg.TripIDWithVehicle {
		if vehid, _ := models.VehicleIdentity(trip.VehicleDetails); vehid != nil {
			vehicle = VehicleToken(vehid)
		}
	}
	trip.TripID = s.ids.Next(vehicle)

	if err := s.trips.InsertTrip(ctx, trip); err != nil {
		if db.IsDuplicateKey(err) {
			return nil, apperror.Conflict("trip id %s already exists", trip.TripID)
		}
		return nil, apperror.Internal("error creating trip", err)
	}
	s.log.WithFields(logrus.Fields{"id": trip.ID.Hex(), "tripId": trip.TripID}).Info("Trip created")

	s.publish(ctx, events.TripCreated, trip)
	return trip, nil
}

// Update applies the non-nil fields of req to the trip and returns it with
// its route hubs joined.
func (s *Service) Update(ctx context.Context, id string, req models.UpdateTripRequest) (*models.TripView, error) {
	oid, ok := filter.ParseObjectID(id)
	if !ok {
		return nil, apperror.InvalidArgument("invalid trip id %q", id)
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, apperror.InvalidArgumentWithCause("invalid trip payload", err)
	}
	set, err := updateFields(req)
	if err != nil {
		return nil, err
	}

	trip, err := s.trips.UpdateTrip(ctx, oid, set)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apperror.NotFound("trip %s not found", id)
		}
		return nil, apperror.Internal("error updating trip", err)
	}
	s.publish(ctx, events.TripUpdated, trip)

	views, err := s.joinHubs(ctx, []models.Trip{*trip})
	if err != nil {
		return nil, apperror.Internal("error joining route hubs", err)
	}
	return &views[0], nil
}

// Delete removes the trip and returns the record as it was.
func (s *Service) Delete(ctx context.Context, id string) (*models.Trip, error) {
	oid, ok := filter.ParseObjectID(id)
	if !ok {
		return nil, apperror.InvalidArgument("invalid trip id %q", id)
	}

	trip, err := s.trips.DeleteTrip(ctx, oid)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apperror.NotFound("trip %s not found", id)
		}
		return nil, apperror.Internal("error deleting trip", err)
	}
	s.log.WithFields(logrus.Fields{"id": trip.ID.Hex(), "tripId": trip.TripID}).Info("Trip deleted")

	s.publish(ctx, events.TripDeleted, trip)
	return trip, nil
}

// duplicateFilter matches active trips sharing the vehicle identity, start
// date and route endpoints of trip. Identity fields absent from trip do not
// constrain the match.
func duplicateFilter(trip *models.Trip) bson.M {
	f := bson.M{
		"routeDetails.sourceHub":      trip.RouteDetails.SourceHub,
		"routeDetails.destinationHub": trip.RouteDetails.DestinationHub,
		"status": bson.M{"$nin": []string{
			models.TripStatusCompleted,
			models.TripStatusCancelled,
		}},
	}
	vehid, imei := models.VehicleIdentity(trip.VehicleDetails)
	if vehid != nil {
		f["vehicleDetails."+models.VehicleKeyVehID] = vehid
	}
	if imei != nil {
		f["vehicleDetails."+models.VehicleKeyIMEI] = imei
	}
	if trip.StartDate != nil {
		f["startDate"] = *trip.StartDate
	}
	return f
}

func tripFromRequest(req models.CreateTripRequest) (*models.Trip, error) {
	route, err := routeFromRequest(req.RouteDetails)
	if err != nil {
		return nil, err
	}
	trip := &models.Trip{
		Status:             req.Status,
		MovementStatus:     req.MovementStatus,
		LocationStatus:     req.LocationStatus,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		IsBlocked:          req.IsBlocked,
		RouteDetails:       route,
		ClientDetails:      req.ClientDetails,
		OtherDetails:       req.OtherDetails,
		AlertConfiguration: req.AlertConfiguration,
	}
	if req.VehicleDetails != nil {
		trip.VehicleDetails = bson.M(req.VehicleDetails)
	}
	return trip, nil
}

func routeFromRequest(req models.RouteDetailsRequest) (models.RouteDetails, error) {
	var route models.RouteDetails
	var err error
	if route.SourceHub, err = parseHub("sourceHub", req.SourceHub); err != nil {
		return route, err
	}
	if route.DestinationHub, err = parseHub("destinationHub", req.DestinationHub); err != nil {
		return route, err
	}
	if route.ViaHub, err = parseHubs(req.ViaHub); err != nil {
		return route, err
	}
	return route, nil
}

func parseHub(field, hex string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperror.InvalidArgument("invalid %s %q", field, hex)
	}
	return oid, nil
}

func parseHubs(hexes []string) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(hexes))
	for _, h := range hexes {
		oid, err := parseHub("viaHub", h)
		if err != nil {
			return nil, err
		}
		ids = append(ids, oid)
	}
	return ids, nil
}

// updateFields maps a partial update onto $set paths. Route hubs are set
// individually so a partial route leaves the other hubs alone.
func updateFields(req models.UpdateTripRequest) (bson.M, error) {
	set := bson.M{}
	if req.Status != nil {
		set["status"] = *req.Status
	}
	if req.MovementStatus != nil {
		set["movementStatus"] = *req.MovementStatus
	}
	if req.LocationStatus != nil {
		set["locationStatus"] = *req.LocationStatus
	}
	if req.StartDate != nil {
		set["startDate"] = *req.StartDate
	}
	if req.EndDate != nil {
		set["endDate"] = *req.EndDate
	}
	if req.IsBlocked != nil {
		set["isBlocked"] = *req.IsBlocked
	}
	if r := req.RouteDetails; r != nil {
		if r.SourceHub != nil {
			oid, err := parseHub("sourceHub", *r.SourceHub)
			if err != nil {
				return nil, err
			}
			set["routeDetails.sourceHub"] = oid
		}
		if r.DestinationHub != nil {
			oid, err := parseHub("destinationHub", *r.DestinationHub)
			if err != nil {
				return nil, err
			}
			set["routeDetails.destinationHub"] = oid
		}
		if r.ViaHub != nil {
			ids, err := parseHubs(*r.ViaHub)
			if err != nil {
				return nil, err
			}
			set["routeDetails.viaHub"] = ids
		}
	}
	if req.VehicleDetails != nil {
		set["vehicleDetails"] = bson.M(req.VehicleDetails)
	}
	if req.ClientDetails != nil {
		set["clientDetails"] = req.ClientDetails
	}
	if req.OtherDetails != nil {
		set["otherDetails"] = req.OtherDetails
	}
	if req.AlertConfiguration != nil {
		set["alertConfiguration"] = *req.AlertConfiguration
	}
	return set, nil
}
