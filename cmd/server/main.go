// Package main is the entry point for the etfmonitor backend.
// It serves the ETF dashboard API: CSV upload, composition, performance,
// ranked holdings and price changes, plus the live dashboard socket.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/etfmonitor/internal/config"
	"github.com/aristath/etfmonitor/internal/database"
	"github.com/aristath/etfmonitor/internal/events"
	"github.com/aristath/etfmonitor/internal/modules/cleanup"
	"github.com/aristath/etfmonitor/internal/modules/holdings"
	"github.com/aristath/etfmonitor/internal/modules/ingest"
	"github.com/aristath/etfmonitor/internal/scheduler"
	"github.com/aristath/etfmonitor/internal/server"
	"github.com/aristath/etfmonitor/pkg/logger"
)

// getEnv retrieves an environment variable value, returning a fallback if the variable
// is not set or is empty.
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// main wires the service together:
// 1. Loads configuration (TOML file, then .env and environment)
// 2. Initializes logging
// 3. Opens and migrates the snapshot database
// 4. Builds the ingest pipeline and holdings service, restoring the last snapshot
// 5. Schedules the staged-upload cleanup job
// 6. Starts the HTTP server and waits for a shutdown signal
func main() {
	// Load configuration first to get log level
	cfg, err := config.Load(getEnv("ETFMONITOR_CONFIG", ""))
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("addr", cfg.Addr()).
		Bool("dev_mode", cfg.DevMode).
		Msg("Starting etfmonitor")

	// Snapshot store
	db, err := database.New(database.Config{
		Path: cfg.DatabasePath,
		Name: "snapshot",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open snapshot database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate snapshot database")
	}

	bus := events.NewBus(log)
	eventManager := events.NewManager(bus, log)

	stager := ingest.NewStager(cfg.UploadDir, cfg.MaxUploadBytes)
	processor := ingest.NewProcessor(stager, log)
	repo := holdings.NewRepository(db.Conn(), log)
	service := holdings.NewService(repo, processor, eventManager, log)

	// A previously stored snapshot is served again after a restart
	if err := service.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to restore snapshot")
	}

	sched := scheduler.New(log)
	cleanupJob := cleanup.NewUploadCleanupJob(stager, cfg.UploadRetention, service, eventManager, log)
	if err := sched.AddJob(cfg.CleanupSchedule, cleanupJob); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.CleanupSchedule).Msg("Failed to schedule upload cleanup")
	}
	sched.Start()

	srv := server.New(server.Config{
		Log:          log,
		DB:           db,
		Config:       cfg,
		Service:      service,
		EventManager: eventManager,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	sched.Stop()

	log.Info().Msg("Server stopped")
}
