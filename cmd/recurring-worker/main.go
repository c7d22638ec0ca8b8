package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/config"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentWorker)
	applog.SetDefault(logger)

	logger.Info("Starting recurring-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	materializer := services.NewMaterializer(repo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Catch up immediately in case the process was down over a day boundary.
	runOnce(ctx, logger, materializer)

	// Fire once per calendar day, just after local midnight. A Timer reset
	// to the next boundary handles DST transitions, unlike a fixed Ticker.
	go func() {
		timer := time.NewTimer(time.Until(services.NextDayBoundary(time.Now())))
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				runOnce(ctx, logger, materializer)
				timer.Reset(time.Until(services.NextDayBoundary(time.Now())))
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()
	logger.Info("Recurring-worker shutdown complete")
}

func runOnce(ctx context.Context, logger *applog.Logger, m *services.Materializer) {
	now := time.Now()
	count, err := m.ProcessDue(ctx, now)
	if err != nil {
		logger.Error("Recurring materialization failed", applog.FieldError, err)
		return
	}
	logger.Info("Recurring materialization complete",
		"instances_created", count,
		"next_run", services.NextDayBoundary(now).Format(time.RFC3339))
}
