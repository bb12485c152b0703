package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type UpstreamCfg struct {
	UserAgent       string
	NWSBaseURL      string
	StationBaseURL  string
	StationAPIKey   string
	StationAppKey   string
	AirNowBaseURL   string
	AirNowAPIKey    string
	UVBaseURL       string
	RetryAttempts   int
	RetryInitial    time.Duration
	CacheMaxEntries int
	Coalesce        bool
	H3Res           int
	AlertsH3Res     int
}

type SyncCfg struct {
	Enabled  bool
	Interval time.Duration
}

type EventsCfg struct {
	Enabled bool
	Brokers string
	Topic   string
	Queue   int
}

type Config struct {
	Addr              string
	LogLevel          string
	LogConsole        bool
	LogSampleN        int
	DatasetPath       string
	QueryTierPath     string
	DefaultCityID     int64
	ClosestTTL        time.Duration
	ClosestMaxEntries int
	StoreDriver       string
	RedisAddr         string
	StoreOpTimeout    time.Duration
	MetricsEnabled    bool
	BuildVersion      string
	Upstream          UpstreamCfg
	Sync              SyncCfg
	Events            EventsCfg
}

// Load reads an optional .env file into the environment, then calls FromEnv.
// Variables already set in the environment win over the file.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}
	return FromEnv(), nil
}

func FromEnv() Config {
	res := getint("H3_RES", 8)
	if res < 0 || res > 15 {
		res = 8
	}
	alertsRes := getint("H3_ALERTS_RES", 6)
	if alertsRes < 0 || alertsRes > res {
		alertsRes = res
	}

	attempts := getint("FORECAST_RETRY_ATTEMPTS", 3)
	if attempts < 1 {
		attempts = 1
	}

	driver := strings.ToLower(strings.TrimSpace(getenv("STORE_DRIVER", "memory")))
	if driver != "redis" {
		driver = "memory"
	}

	return Config{
		Addr:              getenv("ADDR", ":8090"),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		LogConsole:        getbool("LOG_CONSOLE", false),
		LogSampleN:        getint("LOG_SAMPLE_N", 0),
		DatasetPath:       getenv("DATASET_PATH", "data/cities.json"),
		QueryTierPath:     getenv("QUERY_TIER_PATH", "data/query-cache-top30542.json"),
		DefaultCityID:     getint64("DEFAULT_CITY_ID", 5128581),
		ClosestTTL:        getduration("CLOSEST_CACHE_TTL", 90*24*time.Hour),
		ClosestMaxEntries: getint("CLOSEST_CACHE_MAX_ENTRIES", 10000),
		StoreDriver:       driver,
		RedisAddr:         getenv("REDIS_ADDR", "localhost:6379"),
		StoreOpTimeout:    getduration("STORE_OP_TIMEOUT", 250*time.Millisecond),
		MetricsEnabled:    getbool("METRICS_ENABLED", true),
		BuildVersion:      getenv("BUILD_VERSION", "dev"),
		Upstream: UpstreamCfg{
			UserAgent:       getenv("USER_AGENT", "weather-dashboard/1.0 (ops@example.com)"),
			NWSBaseURL:      getenv("NWS_BASE_URL", "https://api.weather.gov"),
			StationBaseURL:  getenv("STATION_BASE_URL", "https://rt.ambientweather.net/v1"),
			StationAPIKey:   getenv("STATION_API_KEY", ""),
			StationAppKey:   getenv("STATION_APP_KEY", ""),
			AirNowBaseURL:   getenv("AIRNOW_BASE_URL", "https://www.airnowapi.org"),
			AirNowAPIKey:    getenv("AIRNOW_API_KEY", ""),
			UVBaseURL:       getenv("UV_BASE_URL", "https://data.epa.gov/efservice"),
			RetryAttempts:   attempts,
			RetryInitial:    getduration("FORECAST_RETRY_INITIAL", time.Second),
			CacheMaxEntries: getint("UPSTREAM_CACHE_MAX_ENTRIES", 0),
			Coalesce:        getbool("UPSTREAM_COALESCE", true),
			H3Res:           res,
			AlertsH3Res:     alertsRes,
		},
		Sync: SyncCfg{
			Enabled:  getbool("SYNC_ENABLED", false),
			Interval: getduration("SYNC_INTERVAL", 24*time.Hour),
		},
		Events: EventsCfg{
			Enabled: getbool("KAFKA_ENABLED", false),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getenv("SEARCH_EVENTS_TOPIC", "city-search-events"),
			Queue:   getint("SEARCH_EVENTS_QUEUE", 1024),
		},
	}
}

// BrokerList splits the comma separated broker list.
func (e EventsCfg) BrokerList() []string {
	var out []string
	for b := range strings.SplitSeq(e.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getint64(k string, def int64) int64 {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
