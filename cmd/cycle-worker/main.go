package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/luke-anto/ledgerdesk/internal/config"
	ldlog "github.com/luke-anto/ledgerdesk/internal/log"
	"github.com/luke-anto/ledgerdesk/internal/services"
	"github.com/luke-anto/ledgerdesk/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := ldlog.New(ldlog.DefaultConfig()).WithComponent(ldlog.ComponentCycle)
	logger.Info("Starting cycle-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	opener := services.NewCycleOpener(repo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	logger.Info("Cycle opener configured",
		"interval", cfg.CycleOpenInterval, "sqlite_db", cfg.SQLiteDBPath)
	if err := opener.Run(ctx, cfg.CycleOpenInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Cycle opener stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Cycle-worker shutdown complete")
}
