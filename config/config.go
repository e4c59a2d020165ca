package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	apperr "rvolkov/toritracker/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Marketplace configuration
	BaseURL           string
	RequestTimeout    time.Duration
	RequestsPerSecond float64

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Memcache configuration
	MemcacheAddr string

	// Tracker configuration
	TrackInterval time.Duration
	TrackLifetime time.Duration
	Destination   string

	// Default search filter, used by the standalone worker
	Locations     []string
	ListingTypes  []string
	Category      string
	SearchTerm    string
	QueryLanguage string
	MinPrice      int
	MaxPrice      int

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	streamCount, _ := strconv.Atoi(getEnv("REDIS_STREAM_COUNT", "1"))
	streamMaxLen, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "500"))
	timeoutSec, _ := strconv.Atoi(getEnv("REQUEST_TIMEOUT_SECONDS", "15"))
	reqPerSec, _ := strconv.ParseFloat(getEnv("REQUESTS_PER_SECOND", "2"), 64)
	intervalSec, _ := strconv.Atoi(getEnv("TRACK_INTERVAL_SECONDS", "300"))
	lifetimeSec, _ := strconv.Atoi(getEnv("TRACK_LIFETIME_SECONDS", "43200"))
	minPrice, _ := strconv.Atoi(getEnv("SEARCH_MIN_PRICE", "0"))
	maxPrice, _ := strconv.Atoi(getEnv("SEARCH_MAX_PRICE", "0"))

	return Config{
		BaseURL:              getEnv("TORI_BASE_URL", "https://www.tori.fi/"),
		RequestTimeout:       time.Duration(timeoutSec) * time.Second,
		RequestsPerSecond:    reqPerSec,
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "toritracker"),
		RedisStreamCount:     streamCount,
		RedisStreamMaxLength: streamMaxLen,
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", "localhost:11211"),
		TrackInterval:        time.Duration(intervalSec) * time.Second,
		TrackLifetime:        time.Duration(lifetimeSec) * time.Second,
		Destination:          getEnv("TRACK_DESTINATION", "default"),
		Locations:            splitEnv("SEARCH_LOCATIONS", "Any"),
		ListingTypes:         splitEnv("SEARCH_LISTING_TYPES", "Any"),
		Category:             getEnv("SEARCH_CATEGORY", "Any"),
		SearchTerm:           getEnv("SEARCH_TERM", ""),
		QueryLanguage:        getEnv("SEARCH_TERM_LANGUAGE", "en"),
		MinPrice:             minPrice,
		MaxPrice:             maxPrice,
		Environment:          getEnv("TORI_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration for invariants that cannot be defaulted
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return apperr.NewConfiguration("base URL must not be empty", nil)
	}
	if c.TrackInterval < time.Minute {
		return apperr.NewConfiguration("track interval must be at least one minute", nil)
	}
	if c.TrackLifetime < c.TrackInterval {
		return apperr.NewConfiguration("track lifetime must be at least one interval", nil)
	}
	if c.MinPrice < 0 || c.MaxPrice < 0 {
		return apperr.NewConfiguration("prices must be non-negative", nil)
	}
	if c.MinPrice > 0 && c.MaxPrice > 0 && c.MinPrice > c.MaxPrice {
		return apperr.NewConfiguration("min price must not exceed max price", nil)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// splitEnv retrieves a comma-separated environment variable as a slice
func splitEnv(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
