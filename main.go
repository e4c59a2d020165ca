package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"rvolkov/toritracker/config"
	"rvolkov/toritracker/helpers"
	"rvolkov/toritracker/internal/fetcher"
	"rvolkov/toritracker/internal/tracker"
	"rvolkov/toritracker/logger"
	"rvolkov/toritracker/services/cache"
	"rvolkov/toritracker/services/notifier"
	"rvolkov/toritracker/services/publisher"
	"rvolkov/toritracker/services/translate"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	helpers.Configure(cfg.RequestTimeout, cfg.RequestsPerSecond)

	log.Info().
		Str("environment", cfg.Environment).
		Dur("track_interval", cfg.TrackInterval).
		Dur("track_lifetime", cfg.TrackLifetime).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize services
	services := initializeServices(ctx, &cfg)
	defer services.Cleanup()

	f := fetcher.New(cfg.BaseURL, fetcher.DefaultDialect(), services.Cache, services.Translator)
	t := tracker.New(ctx, f, notifier.NewStreamNotifier(services.Publisher))

	spec := filterSpecFromConfig(&cfg)

	// One interactive fetch up front, so a misconfigured filter fails loudly
	// instead of ticking in silence for twelve hours.
	cursor, listings, err := f.Fetch(ctx, spec, fetcher.Cursor{}, fetcher.DefaultLimit)
	if err != nil {
		log.Fatal().Err(err).Msg("Initial search failed")
	}
	log.Info().
		Int("count", len(listings)).
		Int("cursor_offset", cursor.Offset).
		Str("filters", spec.Describe()).
		Msg("Initial search done")

	info, err := t.Schedule(spec, cfg.Destination, cfg.TrackInterval, cfg.TrackLifetime)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule tracker")
	}
	log.Info().
		Str("job_id", info.ID).
		Time("expires_at", info.ExpiresAt).
		Msg("Tracking until lifetime expiry")

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().
		Str("signal", sig.String()).
		Msg("Received shutdown signal")

	t.CancelAll()
	cancel()
	t.Wait()

	if err := services.Publisher.TrimStreams(); err != nil {
		log.Warn().Err(err).Msg("Failed to trim streams on shutdown")
	}

	log.Info().Msg("Shut down gracefully")
}

// Services holds all the initialized services
type Services struct {
	Cache      cache.CacheService
	Publisher  publisher.Publisher
	Translator translate.Translator
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config) *Services {
	cacheService := cache.NewMemcacheService(cfg.MemcacheAddr)
	logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)

	redisPublisher := publisher.NewRedisPublisher(
		ctx,
		cfg.RedisAddr,
		cfg.RedisDB,
		cfg.RedisStream,
		cfg.RedisStreamCount,
		cfg.RedisStreamMaxLength,
	)
	logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
		cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)

	return &Services{
		Cache:      cacheService,
		Publisher:  redisPublisher,
		Translator: translate.NewGoogleTranslator(),
	}
}

// filterSpecFromConfig builds the worker's tracked filter from configuration.
func filterSpecFromConfig(cfg *config.Config) fetcher.FilterSpec {
	spec := fetcher.FilterSpec{
		Locations:     cfg.Locations,
		ListingTypes:  cfg.ListingTypes,
		Category:      cfg.Category,
		SearchTerm:    cfg.SearchTerm,
		QueryLanguage: cfg.QueryLanguage,
	}
	if cfg.MinPrice > 0 {
		min := cfg.MinPrice
		spec.MinPrice = &min
	}
	if cfg.MaxPrice > 0 {
		max := cfg.MaxPrice
		spec.MaxPrice = &max
	}
	return spec
}
