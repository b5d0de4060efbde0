package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ha1tch/meditactive/pkg/cache"
	"github.com/ha1tch/meditactive/pkg/catalog"
	"github.com/ha1tch/meditactive/pkg/config"
	"github.com/ha1tch/meditactive/pkg/engine"
	"github.com/ha1tch/meditactive/pkg/metrics"
	"github.com/ha1tch/meditactive/pkg/server"
	"github.com/ha1tch/meditactive/pkg/storage"
	"github.com/ha1tch/meditactive/pkg/validation"
)

func main() {
	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Logger().
		Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	if err := config.LoadDotEnv(); err != nil {
		logger.Warn().Err(err).Msg("Failed to load .env")
	}
	cfg := config.Default()
	config.LoadFromEnv(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	printBanner(cfg)

	db, err := storage.Open(cfg.StorageConfig())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open database")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := storage.Migrate(ctx, db); err != nil {
		cancel()
		logger.Fatal().Err(err).Msg("Failed to apply schema")
	}
	cancel()

	info := db.Info()
	logger.Info().
		Str("driver", info.Driver).
		Str("dialect", info.Dialect).
		Int("max_open_conns", info.MaxOpenConns).
		Msg("Storage initialized")

	cacheInstance := newCache(cfg, logger)

	opts := []engine.Option{engine.WithLogger(logger)}
	var serverOpts []server.Option
	if cfg.MetricsEnabled {
		rec, err := metrics.New()
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to register metrics")
		}
		opts = append(opts, engine.WithRecorder(rec))
		serverOpts = append(serverOpts, server.WithMetricsHandler(rec.Handler()))
		logger.Info().Msg("Metrics enabled on /metrics")
	}

	resolver := catalog.NewResolver(cfg.CatalogCacheSize, time.Duration(cfg.CatalogCacheTTL)*time.Second)
	eng := engine.New(db, resolver, opts...)

	if !cfg.ValidationEnabled {
		logger.Warn().Msg("Input validation disabled")
	}
	srv := server.New(cfg, eng, db, cacheInstance, validation.New(cfg.ValidationEnabled), logger, serverOpts...)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info().Msg("Shutting down gracefully...")

		if err := cacheInstance.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close cache")
		}
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close database")
		}

		os.Exit(0)
	}()

	logger.Info().Msg("Server ready to accept requests")
	if err := srv.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func newCache(cfg *config.Config, logger zerolog.Logger) cache.Cache {
	ttl := time.Duration(cfg.CacheTTL) * time.Second
	if cfg.CacheType == "redis" {
		redisCache, err := cache.NewRedisCache(cfg.RedisHost, cfg.RedisPort, ttl)
		if err == nil {
			logger.Info().Msg("Using Redis cache")
			return redisCache
		}
		logger.Warn().Err(err).Msg("Failed to connect to Redis, falling back to memory cache")
	}
	logger.Info().Msg("Using in-memory cache")
	return cache.NewMemoryCache(cfg.CacheSize, ttl)
}

func printBanner(cfg *config.Config) {
	lightBlue := "\033[1;36m"
	reset := "\033[0m"

	fmt.Print(lightBlue)
	fmt.Println("//////////////////////////////////////////////")
	fmt.Println("//..........................................//")
	fmt.Println("//.....m e d i t a c t i v e................//")
	fmt.Println("//..........................................//")
	fmt.Println("//////////////////////////////////////////////")
	fmt.Print(reset)

	fmt.Println()
	fmt.Println("///////////////////////// meditactive " + config.Version + " /////////////////////////")
	fmt.Println("----------------------------------------------------------------------")
	fmt.Println("Server Configuration:")
	fmt.Printf("  Host: %s\n", cfg.Host)
	fmt.Printf("  Port: %d\n", cfg.Port)
	fmt.Println()
	fmt.Println("Database Configuration:")
	fmt.Printf("  Driver: %s\n", cfg.DBDriver)
	if cfg.DBDriver == "sqlite" {
		fmt.Printf("  Path: %s\n", cfg.DBPath)
		fmt.Printf("  Busy timeout: %d ms\n", cfg.DBBusyTimeout)
	}
	fmt.Printf("  Max open connections: %d\n", cfg.DBMaxOpenConns)
	fmt.Println()
	fmt.Println("Cache Configuration:")
	fmt.Printf("  Type: %s\n", cfg.CacheType)
	fmt.Printf("  TTL: %d seconds\n", cfg.CacheTTL)
	if cfg.CacheType == "redis" {
		fmt.Printf("  Redis: %s:%d\n", cfg.RedisHost, cfg.RedisPort)
	}
	fmt.Printf("  Catalog cache: %d entries, %d seconds\n", cfg.CatalogCacheSize, cfg.CatalogCacheTTL)
	fmt.Println()
	fmt.Println("Other Configuration:")
	fmt.Printf("  Metrics: %v\n", cfg.MetricsEnabled)
	fmt.Printf("  Debug: %v\n", cfg.Debug)
	fmt.Println("----------------------------------------------------------------------")
	fmt.Println()
}
