// Package main is the entry point for the papertrade web application.
// It serves the trading site and JSON API, and runs the background jobs
// (session and quote cache cleanup, database maintenance, optional backups).
//
// The application uses two databases:
// - ledger.db: accounts, holdings and the append-only transaction log
// - cache.db: sessions and cached quotes
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/papertrade/internal/config"
	"github.com/aristath/papertrade/internal/di"
	"github.com/aristath/papertrade/internal/scheduler"
	"github.com/aristath/papertrade/internal/server"
	"github.com/aristath/papertrade/internal/web"
	"github.com/aristath/papertrade/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
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
		Pretty: cfg.DevMode,
		App:    "papertrade",
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Str("quote_provider", cfg.QuoteProvider).
		Bool("backups", cfg.Backup.Enabled()).
		Msg("Starting papertrade")

	sched := scheduler.New(log)

	// Wire all dependencies (databases, repositories, services, jobs)
	container, _, err := di.Wire(cfg, nil, sched, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	renderer, err := web.NewRenderer(log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse templates")
	}

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Container: container,
		Scheduler: sched,
		Renderer:  renderer,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
	})

	sched.Start()

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// In-flight requests get 10 seconds before the server is forced down
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Let a running backup or maintenance pass finish before the databases close
	sched.Stop()

	log.Info().Msg("Server stopped")
}
