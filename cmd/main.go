package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/trip-service/internal/cache"
	"github.com/ukydev/trip-service/internal/config"
	"github.com/ukydev/trip-service/internal/db"
	"github.com/ukydev/trip-service/internal/events"
	"github.com/ukydev/trip-service/internal/handlers"
	"github.com/ukydev/trip-service/internal/middleware"
	"github.com/ukydev/trip-service/internal/resolver"
	"github.com/ukydev/trip-service/internal/trips"
	"go.mongodb.org/mongo-driver/mongo"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file loaded")
	}
	cfg := config.Load()
	log := newLogger(cfg)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("Trip service stopped")
	}
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	if cfg.IsProduction() {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	client, err := db.ConnectMongo(connectCtx, cfg.MongoURI)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.WithError(err).Warn("Failed to disconnect from MongoDB")
		}
	}()
	log.WithField("database", cfg.MongoDB).Info("Connected to MongoDB")

	database := client.Database(cfg.MongoDB)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		return err
	}

	service, cleanup := newTripService(ctx, cfg, log, database)
	defer cleanup()

	store := handlers.PingFunc(func(ctx context.Context) error { return client.Ping(ctx, nil) })
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(cfg, log, service, store),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newTripService wires the trip engine. Redis and MQTT are optional: when
// either cannot be reached the service runs without it.
func newTripService(ctx context.Context, cfg *config.Config, log *logrus.Logger, database *mongo.Database) (*trips.Service, func()) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var geofences db.GeofenceCollection = &db.MongoGeofenceCollection{Collection: database.Collection(db.GeofencesCollection)}
	if cfg.CacheEnabled {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, geofence cache disabled")
		} else {
			cleanups = append(cleanups, func() { _ = rdb.Close() })
			geofences = cache.NewGeofenceCache(geofences, rdb, cfg.GeofenceCacheTTL, log)
			log.WithField("ttl", cfg.GeofenceCacheTTL).Info("Geofence cache enabled")
		}
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.MQTTBroker != "" {
		mc, err := events.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientID, 10*time.Second)
		if err != nil {
			log.WithError(err).Warn("MQTT broker unavailable, trip events disabled")
		} else {
			cleanups = append(cleanups, func() { mc.Disconnect(250) })
			publisher = events.NewMQTTPublisher(mc, cfg.MQTTTopicPrefix, 5*time.Second)
			log.WithField("broker", cfg.MQTTBroker).Info("Publishing trip events")
		}
	}

	vehicles := resolver.New(
		&db.MongoVehicleMasters{Database: database},
		resolver.WithAllowedCollections(cfg.VehicleMasterCollections...),
		resolver.WithLogger(log),
	)

	service := trips.NewService(
		&db.MongoTripCollection{Collection: database.Collection(db.TripsCollection)},
		geofences,
		vehicles,
		publisher,
		trips.Config{
			DuplicateGuard:      cfg.TripDuplicateGuard,
			TripIDWithVehicle:   cfg.TripIDWithVehicle,
			ResolverConcurrency: cfg.ResolverConcurrency,
		},
		log,
	)
	return service, cleanup
}

func newRouter(cfg *config.Config, log logrus.FieldLogger, service handlers.TripService, store handlers.Pinger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestLogger(log, "/health", "/metrics"),
		middleware.Prometheus(),
		cors.New(corsConfig(cfg.CORSAllowedOrigins)),
	)

	r.GET("/health", handlers.Health(store))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limits := handlers.PageLimits{Default: cfg.DefaultPageLimit, Max: cfg.MaxPageLimit}
	handlers.NewTripHandler(service, limits, log).Register(r)
	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}
