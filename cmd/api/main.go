package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/recordsdir/directory-backend/internal/api"
	"github.com/recordsdir/directory-backend/internal/config"
	gdb "github.com/recordsdir/directory-backend/internal/db"
	"github.com/recordsdir/directory-backend/internal/db/entities"
	"github.com/recordsdir/directory-backend/internal/directory"
	"github.com/recordsdir/directory-backend/internal/log"
	"github.com/recordsdir/directory-backend/internal/metrics"
	"github.com/recordsdir/directory-backend/internal/store"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := log.NewSugar(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Infow("Starting directory API server",
		"env", cfg.Env,
		"addr", cfg.HTTPAddr,
		"db_type", cfg.Database.Type,
	)

	// Setup metrics
	metricsObj, metricsHandler, err := metrics.Setup("directory-api")
	if err != nil {
		logger.Fatalw("Failed to setup metrics", "error", err)
	}

	// Initialize storage
	db, err := gdb.NewDatabase(&gdb.Config{
		Type:         cfg.Database.Type,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	}, logger)
	if err != nil {
		logger.Fatalw("Failed to create database", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := gdb.ConnectAndMigrate(ctx, db, gdb.AllSchemas()); err != nil {
		logger.Fatalw("Failed to initialize database", "error", err)
	}
	defer db.Disconnect(context.Background())
	logger.Infow("Database initialized")

	if cfg.Database.SeedFixtures {
		seeded, err := gdb.SeedFixtures(ctx, db)
		if err != nil {
			logger.Fatalw("Failed to seed fixtures", "error", err)
		}
		logger.Infow("Fixtures seeded", "records", seeded)
	}

	// Setup cache; falls back to an in-process LRU when Redis is unreachable
	cache, err := store.NewCache(cfg.Cache.RedisAddr, cfg.Cache.Size, cfg.Cache.TTL, logger, metricsObj)
	if err != nil {
		logger.Fatalw("Failed to setup cache", "error", err)
	}
	defer cache.Close()
	logger.Infow("Cache ready", "in_memory", cache.IsInMemoryMode())

	// Setup directories
	countries := directory.NewCountryService(
		directory.NewCountryRepository(db.Repository(entities.CountrySchema)),
		directory.WithCountryCache(cache, cfg.Cache.TTL),
		directory.WithCountryLogger(logger),
	)
	persons := directory.NewPersonService(
		directory.NewPersonRepository(db.Repository(entities.PersonSchema)),
		countries,
	)

	// Setup API handler and middleware
	handler := api.NewHandler(countries, persons, db, logger, metricsObj)
	middleware := api.NewMiddleware(logger, metricsObj)
	router := handler.Routes(middleware, metricsHandler, cfg.Security.CORSAllowedOrigins, cfg.Security.RateLimitRPM)

	logger.Infow("CORS configured", "allowed_origins", cfg.Security.CORSAllowedOrigins)

	// Setup HTTP server
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		logger.Infow("API server starting", "addr", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatalw("Server startup failed", "error", err)
	case sig := <-shutdown:
		logger.Infow("Shutdown signal received", "signal", sig.String())

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Errorw("Graceful shutdown failed", "error", err)
			server.Close()
		}

		logger.Infow("Server stopped")
	}
}
