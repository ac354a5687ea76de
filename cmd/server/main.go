// Package main provides the API server entry point for the kollects portfolio service.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/uxmeas/kollects-io/internal/adapter"
	"github.com/uxmeas/kollects-io/internal/api"
	"github.com/uxmeas/kollects-io/internal/config"
	"github.com/uxmeas/kollects-io/internal/logging"
	"github.com/uxmeas/kollects-io/internal/service"
	"github.com/uxmeas/kollects-io/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	// Initialize the purchase record store backend
	var purchaseStore service.PurchaseRecordStore
	var closeStore func()

	switch cfg.Storage.Backend {
	case "postgres":
		postgres, err := storage.NewPostgresDB(&cfg.Storage.Postgres)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Postgres")
		}
		closeStore = postgres.Close
		purchaseStore = storage.NewPostgresPurchaseRepository(postgres)
		logger.Info("Using Postgres purchase record store")
	default:
		redis, err := storage.NewRedisStore(&cfg.Storage.Redis)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}
		closeStore = func() { _ = redis.Close() }
		purchaseStore = storage.NewRedisPurchaseRepository(redis)
		logger.Info("Using Redis purchase record store")
	}
	defer closeStore()

	// Initialize ownership sources
	topshot := adapter.NewTopShotClient(cfg.Ownership.TopShotURL)
	flowLookup := adapter.NewFlowLookupClient(cfg.Ownership.FlowLookupURL)

	ownership, err := adapter.NewOwnershipResolver(&adapter.OwnershipResolverConfig{
		Primary:     topshot,
		Secondary:   flowLookup,
		Timeout:     cfg.Ownership.Timeout,
		MaxAttempts: cfg.Ownership.MaxAttempts,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create ownership resolver")
	}

	// Initialize pricing providers in the configured priority order
	providers := make([]adapter.PriceProvider, 0, len(cfg.Pricing.ProviderOrder))
	for _, name := range cfg.Pricing.ProviderOrder {
		switch name {
		case "evaluate":
			providers = append(providers, adapter.NewEvaluateClient(
				cfg.Pricing.EvaluateURL, cfg.Pricing.EvaluateAPIKey, cfg.Pricing.RequestsPerSecond))
		case "momentranks":
			providers = append(providers, adapter.NewMomentRanksClient(cfg.Pricing.MomentRanksURL))
		case "otmnft":
			providers = append(providers, adapter.NewOTMClient(cfg.Pricing.OTMURL))
		}
		logger.WithField("provider", name).Info("Pricing provider initialized")
	}

	pricing := adapter.NewProviderChain(cfg.Pricing.Timeout, providers...)

	// Initialize the portfolio service
	portfolioService := service.NewPortfolioService(
		ownership,
		pricing,
		purchaseStore,
		cfg.Aggregator.PriceWorkers,
	)

	// Create server configuration
	serverConfig := &api.ServerConfig{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.Aggregator.RequestTimeout,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	}

	server := api.NewServer(serverConfig, portfolioService, purchaseStore)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
