package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coinwatch-go/internal/config"
	"coinwatch-go/internal/database"
	"coinwatch-go/internal/feed"
	"coinwatch-go/internal/logger"
	"coinwatch-go/internal/query"
	"coinwatch-go/internal/store"
	"coinwatch-go/internal/syncer"
	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database and catalog store
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")
	catalog := store.NewCatalog(db)

	// Feed client behind the shared rate governor
	governor := feed.NewGovernor(cfg.Feed.RateSpacing())
	feedClient := feed.NewClient(&cfg.Feed, governor, log)

	// Sync engine
	coordinator := syncer.NewCoordinator(log, feedClient, catalog, &cfg)
	scheduler := syncer.NewScheduler(log, coordinator, cfg.Sync.Interval(), cfg.Sync.StartupDelay())
	queries := query.NewService(log, catalog, coordinator)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	go scheduler.Run(ctx)

	// HTTP API
	apiHandler := NewAPIHandler(ctx, log, queries, coordinator)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: apiHandler.Routes(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown failed", zap.Error(err))
		}
	}()

	log.Info("Starting API server", zap.String("address", server.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("API server failed", zap.Error(err))
	}

	log.Info("Server has been shut down.")
}
