package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Environment string
	Port        string
	LogLevel    string

	// CORSAllowedOrigins lists full origins (scheme and host). Empty allows
	// any origin.
	CORSAllowedOrigins []string

	MongoURI string
	MongoDB  string

	RedisURL         string
	CacheEnabled     bool
	GeofenceCacheTTL time.Duration

	MQTTBroker      string
	MQTTClientID    string
	MQTTTopicPrefix string

	TripDuplicateGuard bool
	TripIDWithVehicle  bool

	DefaultPageLimit    int
	MaxPageLimit        int
	ResolverConcurrency int

	// VehicleMasterCollections, when non-empty, restricts the collections
	// vehicle references may point at.
	VehicleMasterCollections []string
}

func Load() *Config {
	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "fleet"),

		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		CacheEnabled:     getEnvAsBool("CACHE_ENABLED", false),
		GeofenceCacheTTL: getEnvAsDuration("GEOFENCE_CACHE_TTL", 10*time.Minute),

		MQTTBroker:      getEnv("MQTT_BROKER", ""),
		MQTTClientID:    getEnv("MQTT_CLIENT_ID", "trip-service"),
		MQTTTopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "fleet/trips"),

		TripDuplicateGuard: getEnvAsBool("TRIP_DUPLICATE_GUARD", false),
		TripIDWithVehicle:  getEnvAsBool("TRIP_ID_WITH_VEHICLE", false),

		DefaultPageLimit:    getEnvAsInt("DEFAULT_PAGE_LIMIT", 10),
		MaxPageLimit:        getEnvAsInt("MAX_PAGE_LIMIT", 1000),
		ResolverConcurrency: getEnvAsInt("RESOLVER_CONCURRENCY", 8),

		VehicleMasterCollections: getEnvAsList("VEHICLE_MASTER_COLLECTIONS"),
	}

	if cfg.MaxPageLimit < 1 {
		cfg.MaxPageLimit = 1000
	}
	if cfg.DefaultPageLimit < 1 || cfg.DefaultPageLimit > cfg.MaxPageLimit {
		cfg.DefaultPageLimit = 10
	}
	return cfg
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
