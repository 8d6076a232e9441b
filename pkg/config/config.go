package config

import (
	"errors"
	"strings"
	"time"

	"github.com/actlive/actlive/pkg/util"
)

// Config carries every tunable the services need. It is built once by
// the composition root and passed down; packages never read the
// environment themselves.
type Config struct {
	RestAPIBaseURL string
	FeedAPIBaseURL string
	APIToken       string

	HTTPTimeout time.Duration

	EnableCache           bool
	RedisAddress          string
	RedisPassword         string
	RedisDatabase         int
	CacheCleanupThreshold int

	CacheTTL CacheTTL

	// RestChunkSize is the upstream's batch endpoint identifier limit.
	RestChunkSize int

	PollingInterval       time.Duration
	AlertsPollingInterval time.Duration

	TrackedRoutes []string
}

type CacheTTL struct {
	StopProfiles     time.Duration
	Predictions      time.Duration
	VehiclePositions time.Duration
	TripUpdates      time.Duration
	ServiceAlerts    time.Duration
}

const maxStopsPerRequest = 10

func Load() (*Config, error) {
	env := util.GetEnvironmentVariables()

	config := &Config{
		RestAPIBaseURL: util.EnvString(env, "ACTLIVE_REST_API_BASE_URL", "https://api.actransit.org/transit/actrealtime"),
		FeedAPIBaseURL: util.EnvString(env, "ACTLIVE_GTFSRT_API_BASE_URL", "https://api.actransit.org/transit/gtfsrt"),
		APIToken:       env["ACTLIVE_API_TOKEN"],

		HTTPTimeout: util.EnvDuration(env, "ACTLIVE_HTTP_TIMEOUT", 10*time.Second),

		EnableCache:           util.EnvBool(env, "ACTLIVE_ENABLE_CACHE", true),
		RedisAddress:          env["ACTLIVE_REDIS_ADDRESS"],
		RedisPassword:         env["ACTLIVE_REDIS_PASSWORD"],
		RedisDatabase:         util.EnvInt(env, "ACTLIVE_REDIS_DATABASE", 0),
		CacheCleanupThreshold: util.EnvInt(env, "ACTLIVE_CACHE_CLEANUP_THRESHOLD", 100),

		CacheTTL: CacheTTL{
			StopProfiles:     util.EnvDuration(env, "ACTLIVE_CACHE_TTL_STOP_PROFILES", 24*time.Hour),
			Predictions:      util.EnvDuration(env, "ACTLIVE_CACHE_TTL_PREDICTIONS", 15*time.Second),
			VehiclePositions: util.EnvDuration(env, "ACTLIVE_CACHE_TTL_VEHICLE_POSITIONS", 10*time.Second),
			TripUpdates:      util.EnvDuration(env, "ACTLIVE_CACHE_TTL_TRIP_UPDATES", 15*time.Second),
			ServiceAlerts:    util.EnvDuration(env, "ACTLIVE_CACHE_TTL_SERVICE_ALERTS", 300*time.Second),
		},

		RestChunkSize: maxStopsPerRequest,

		PollingInterval:       util.EnvDuration(env, "ACTLIVE_POLLING_INTERVAL", 15*time.Second),
		AlertsPollingInterval: util.EnvDuration(env, "ACTLIVE_ALERTS_POLLING_INTERVAL", 60*time.Second),
	}

	for _, route := range strings.Split(env["ACTLIVE_TRACKED_ROUTES"], ",") {
		if route = strings.TrimSpace(route); route != "" {
			config.TrackedRoutes = append(config.TrackedRoutes, route)
		}
	}

	if config.APIToken == "" {
		return nil, errors.New("ACTLIVE_API_TOKEN must be set")
	}

	if config.PollingInterval < 5*time.Second {
		return nil, errors.New("ACTLIVE_POLLING_INTERVAL must be at least 5s")
	}

	if config.AlertsPollingInterval < 30*time.Second {
		return nil, errors.New("ACTLIVE_ALERTS_POLLING_INTERVAL must be at least 30s")
	}

	return config, nil
}
