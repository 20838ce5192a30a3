package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/trip-service/internal/config"
	"github.com/ukydev/trip-service/internal/db"
	"github.com/ukydev/trip-service/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// VehicleMasterCollection is where the simulator keeps the vehicles its
// trips reference.
const VehicleMasterCollection = "vehicle_master"

// Location is a latitude/longitude pair.
type Location struct {
	Lat float64
	Lon float64
}

// cities around which hubs are scattered
var cities = []Location{
	{Lat: 51.5074, Lon: -0.1278}, // London
	{Lat: 52.4862, Lon: -1.8904}, // Birmingham
	{Lat: 53.4808, Lon: -2.2426}, // Manchester
	{Lat: 51.4816, Lon: -3.1791}, // Cardiff
	{Lat: 12.9716, Lon: 77.5946}, // Bengaluru
	{Lat: 19.0760, Lon: 72.8777}, // Mumbai
	{Lat: 28.6139, Lon: 77.2090}, // Delhi
	{Lat: 13.0827, Lon: 80.2707}, // Chennai
	{Lat: 17.3850, Lon: 78.4867}, // Hyderabad
	{Lat: 25.2048, Lon: 55.2708}, // Dubai
}

// tripStatuses is the order a simulated trip moves through.
var tripStatuses = []string{"CREATED", "IN_TRANSIT", models.TripStatusCompleted}

var movementStatuses = []string{"MOVING", "IDLE", "STOPPED"}

func jitterLocation(base Location, meters float64) Location {
	latMetersPerDeg := 111320.0
	lonMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	dLat := (rand.Float64()*2 - 1) * (meters / latMetersPerDeg)
	dLon := (rand.Float64()*2 - 1) * (meters / lonMetersPerDeg)
	return Location{Lat: base.Lat + dLat, Lon: base.Lon + dLon}
}

// newHub builds a circular hub geofence near a random city.
func newHub(i int) *models.Geofence {
	loc := jitterLocation(cities[rand.Intn(len(cities))], 2000)
	return &models.Geofence{
		Name:         fmt.Sprintf("Hub %d", i+1),
		LocationType: "HUB",
		FinalAddress: fmt.Sprintf("%.5f, %.5f", loc.Lat, loc.Lon),
		GeoCodeData: &models.GeoCode{
			Type: "Feature",
			Geometry: models.Geometry{
				Type:        "Point",
				Coordinates: []float64{loc.Lon, loc.Lat},
				Radius:      500,
			},
		},
		CreatedBy: "simulator",
	}
}

func seedHubs(ctx context.Context, geofences *db.MongoGeofenceCollection, n int) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, n)
	for i := 0; i < n; i++ {
		hub := newHub(i)
		if err := geofences.InsertGeofence(ctx, hub); err != nil {
			return nil, fmt.Errorf("failed to insert hub: %w", err)
		}
		ids = append(ids, hub.ID)
	}
	return ids, nil
}

func seedVehicle(ctx context.Context, masters *mongo.Collection, vehid int) (primitive.ObjectID, error) {
	id := primitive.NewObjectID()
	_, err := masters.InsertOne(ctx, bson.M{
		"_id":   id,
		"vehid": vehid,
		"regNo": fmt.Sprintf("SIM-%04d", vehid),
		"type":  []string{"TRUCK", "VAN"}[rand.Intn(2)],
	})
	return id, err
}

// pickRoute returns distinct source and destination hubs and up to two via hubs.
func pickRoute(hubs []primitive.ObjectID) (source, destination primitive.ObjectID, via []primitive.ObjectID) {
	perm := rand.Perm(len(hubs))
	source, destination = hubs[perm[0]], hubs[perm[1]]
	for _, i := range perm[2:] {
		if len(via) == 2 || rand.Intn(2) == 0 {
			break
		}
		via = append(via, hubs[i])
	}
	return source, destination, via
}

// newTripRequest builds a create payload for vehid travelling between hubs.
func newTripRequest(vehid int, master primitive.ObjectID, hubs []primitive.ObjectID) models.CreateTripRequest {
	source, destination, via := pickRoute(hubs)
	viaHex := make([]string, 0, len(via))
	for _, id := range via {
		viaHex = append(viaHex, id.Hex())
	}
	start := time.Now().UTC()
	end := start.Add(time.Duration(2+rand.Intn(10)) * time.Hour)

	return models.CreateTripRequest{
		Status:         tripStatuses[0],
		MovementStatus: movementStatuses[rand.Intn(len(movementStatuses))],
		StartDate:      &start,
		EndDate:        &end,
		RouteDetails: models.RouteDetailsRequest{
			SourceHub:      source.Hex(),
			DestinationHub: destination.Hex(),
			ViaHub:         viaHex,
		},
		VehicleDetails: map[string]interface{}{
			models.VehicleKeyVehID: vehid,
			models.VehicleKeyIMEI:  fmt.Sprintf("86%013d", vehid),
			"vehicle": map[string]interface{}{
				models.VehicleKeyField: map[string]interface{}{
					models.VehicleKeyDBMaster: VehicleMasterCollection,
					models.VehicleKeyValue:    master.Hex(),
				},
			},
		},
		AlertConfiguration: []models.AlertConfiguration{
			{AlertName: "overspeed", AlertType: "speed", Value: "80", AlertInterval: 15},
		},
	}
}

// nextStatus returns the status after current and whether the trip is done.
func nextStatus(current string) (string, bool) {
	for i, s := range tripStatuses {
		if s == current && i+1 < len(tripStatuses) {
			next := tripStatuses[i+1]
			return next, next == models.TripStatusCompleted
		}
	}
	return models.TripStatusCompleted, true
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

// sendJSON sends payload and decodes the data field of the response envelope into out.
func sendJSON(method, url string, payload, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	req, err := http.NewRequest(method, url, bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	envelope := models.APIResponse{Data: out}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !envelope.Success {
		return fmt.Errorf("%s %s failed with status %d: %s", method, url, resp.StatusCode, envelope.Message)
	}
	return nil
}

func createTrip(apiURL string, req models.CreateTripRequest) (*models.Trip, error) {
	var trip models.Trip
	if err := sendJSON(http.MethodPost, apiURL+"/trip", req, &trip); err != nil {
		return nil, err
	}
	return &trip, nil
}

func advanceTrip(apiURL string, id primitive.ObjectID, status string) error {
	movement := movementStatuses[rand.Intn(len(movementStatuses))]
	update := models.UpdateTripRequest{Status: &status, MovementStatus: &movement}
	return sendJSON(http.MethodPatch, apiURL+"/trip/"+id.Hex(), update, nil)
}

// simulateVehicle keeps one trip running for the vehicle, advancing its
// status every tick and starting a new trip once it completes.
func simulateVehicle(ctx context.Context, apiURL string, vehid int, master primitive.ObjectID, hubs []primitive.ObjectID, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()

	var trip *models.Trip
	for {
		if trip == nil {
			created, err := createTrip(apiURL, newTripRequest(vehid, master, hubs))
			if err != nil {
				log.WithError(err).WithField("vehid", vehid).Error("Failed to create trip")
			} else {
				trip = created
				log.WithFields(log.Fields{"vehid": vehid, "tripId": trip.TripID}).Info("Created trip")
			}
		} else {
			status, done := nextStatus(trip.Status)
			if err := advanceTrip(apiURL, trip.ID, status); err != nil {
				log.WithError(err).WithField("tripId", trip.TripID).Error("Failed to update trip")
			} else {
				trip.Status = status
				log.WithFields(log.Fields{"tripId": trip.TripID, "status": status}).Info("Updated trip")
				if done {
					trip = nil
				}
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}

func getEnvAsInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	fleetSize := getEnvAsInt("FLEET_SIZE", 5)
	hubCount := getEnvAsInt("HUB_COUNT", 8)
	if hubCount < 2 {
		hubCount = 2
	}
	interval := time.Duration(getEnvAsInt("SIM_TICK_SECONDS", 5)) * time.Second
	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:" + cfg.Port
	}

	log.WithFields(log.Fields{
		"fleet_size": fleetSize,
		"hubs":       hubCount,
		"api_url":    apiURL,
		"interval":   interval,
	}).Info("Starting trip simulation")

	ctx := context.Background()
	client, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer client.Disconnect(ctx)
	database := client.Database(cfg.MongoDB)

	hubs, err := seedHubs(ctx, &db.MongoGeofenceCollection{Collection: database.Collection(db.GeofencesCollection)}, hubCount)
	if err != nil {
		log.WithError(err).Fatal("Failed to seed hubs")
	}
	log.WithField("hubs", len(hubs)).Info("Seeded hub geofences")

	masters := database.Collection(VehicleMasterCollection)
	for i := 0; i < fleetSize; i++ {
		vehid := 1000 + i
		master, err := seedVehicle(ctx, masters, vehid)
		if err != nil {
			log.WithError(err).WithField("vehid", vehid).Error("Failed to seed vehicle")
			continue
		}
		go simulateVehicle(ctx, apiURL, vehid, master, hubs, interval)
	}

	log.Info("Trip simulation started")
	select {}
}
