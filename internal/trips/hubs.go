package trips

import (
	"context"

	"github.com/ukydev/trip-service/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// joinHubs replaces the route references of each trip with the geofences
// they point at. All hubs of the batch are fetched with one lookup. Via hubs
// keep their route order, duplicates included; missing hubs are left out.
func (s *Service) joinHubs(ctx context.Context, trips []models.Trip) ([]models.TripView, error) {
	seen := map[primitive.ObjectID]struct{}{}
	var ids []primitive.ObjectID
	for _, t := range trips {
		for _, id := range t.RouteDetails.HubIDs() {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	hubs := map[primitive.ObjectID]models.Geofence{}
	if len(ids) > 0 {
		found, err := s.geofences.FindGeofencesByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		hubs = found
	}

	views := make([]models.TripView, len(trips))
	for i, t := range trips {
		views[i] = models.TripView{Trip: t, RouteDetails: resolveRoute(t.RouteDetails, hubs)}
	}
	return views, nil
}

func resolveRoute(route models.RouteDetails, hubs map[primitive.ObjectID]models.Geofence) models.ResolvedRoute {
	resolved := models.ResolvedRoute{ViaHub: []models.Geofence{}}
	if hub, ok := lookupHub(route.SourceHub, hubs); ok {
		resolved.SourceHub = &hub
	}
	if hub, ok := lookupHub(route.DestinationHub, hubs); ok {
		resolved.DestinationHub = &hub
	}
	for _, id := range route.ViaHub {
		if hub, ok := lookupHub(id, hubs); ok {
			resolved.ViaHub = append(resolved.ViaHub, hub)
		}
	}
	return resolved
}

func lookupHub(id primitive.ObjectID, hubs map[primitive.ObjectID]models.Geofence) (models.Geofence, bool) {
	if id.IsZero() {
		return models.Geofence{}, false
	}
	hub, ok := hubs[id]
	return hub, ok
}
