package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"taxidispatch/internal/app"
	"taxidispatch/internal/auth"
	"taxidispatch/internal/config"
	"taxidispatch/internal/handler"
	internalRedis "taxidispatch/internal/redis"
	"taxidispatch/internal/repository/postgres"
	"taxidispatch/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Wire dependencies.
	server, reporter := wireServer(db, redisClient, nrApp, cfg)
	reporter.Start(cfg.Compliance.Workers)
	defer reporter.Close()

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server together with
// the compliance reporter whose worker pool the caller owns.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config) (*http.Server, *service.ComplianceReporter) {
	// Initialize Redis stores.
	presenceStore := internalRedis.NewPresenceStore(redisClient)
	openTripStore := internalRedis.NewOpenTripStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)

	// Initialize repositories.
	driverRepo := postgres.NewDriverRepository(db)
	locationRepo := postgres.NewLocationRepository(db)
	tripLogRepo := postgres.NewTripLogRepository(db)
	complianceRepo := postgres.NewComplianceRepository(db)

	// Initialize token manager.
	tokenManager := auth.NewManager(cfg.Auth.TokenSecret, cfg.Auth.SessionTTL)

	// Initialize services.
	reporter := service.NewComplianceReporter(
		cfg.Compliance.BaseURL,
		cfg.Compliance.APIKey,
		cfg.Compliance.RequestTimeout,
		cfg.Compliance.QueueSize,
		tripLogRepo,
		complianceRepo,
	)
	sessionService := service.NewSessionService(driverRepo, tripLogRepo, presenceStore, tokenManager)
	presenceService := service.NewPresenceService(db, driverRepo, locationRepo, presenceStore, cacheStore, cfg.Presence.FreshnessWindow)
	tripService := service.NewTripService(tripLogRepo, openTripStore, reporter)

	// Initialize handlers.
	sessionHandler := handler.NewSessionHandler(sessionService)
	locationHandler := handler.NewLocationHandler(presenceService, cfg.Presence.DefaultRadiusKm)
	tripHandler := handler.NewTripHandler(tripService)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		SessionHandler:  sessionHandler,
		LocationHandler: locationHandler,
		TripHandler:     tripHandler,
		TokenManager:    tokenManager,
		RedisClient:     redisClient,
		NewRelicApp:     nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, reporter
}
