package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/luke-anto/ledgerdesk/internal/amqp"
	"github.com/luke-anto/ledgerdesk/internal/config"
	ldlog "github.com/luke-anto/ledgerdesk/internal/log"
	"github.com/luke-anto/ledgerdesk/internal/services"
	"github.com/luke-anto/ledgerdesk/internal/sheets"
	gsheet "github.com/luke-anto/ledgerdesk/internal/sheets/google"
	mem "github.com/luke-anto/ledgerdesk/internal/sheets/memory"
	"github.com/luke-anto/ledgerdesk/internal/storage"
	"github.com/luke-anto/ledgerdesk/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := ldlog.New(ldlog.DefaultConfig()).WithComponent(ldlog.ComponentWorker)
	logger.Info("Starting ledgerdesk-worker")

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Report writer: Google Sheets when configured, in-memory otherwise so
	// the sync path still runs end to end in development.
	var writer sheets.ReportWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = mem.New()
		logger.Info("Google Sheets disabled, using in-memory report store")
	}

	intakeClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPIntakeQueue)
	if err != nil {
		logger.Error("Failed to initialize intake AMQP client", "error", err)
		os.Exit(1)
	}
	defer intakeClient.Close()

	reportClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPReportQueue)
	if err != nil {
		logger.Error("Failed to initialize report AMQP client", "error", err)
		os.Exit(1)
	}
	defer reportClient.Close()

	intakeWorker := worker.NewIntakeWorker(intakeClient, services.NewIntakeService(repo))
	reportWorker := worker.NewReportWorker(repo, writer, reportClient, cfg.SyncBatchSize)

	// Catch up on reports recorded while no worker was running.
	if count, err := reportWorker.ProcessPendingReports(ctx); err != nil {
		logger.Error("Startup report sync failed", "error", err)
	} else if count > 0 {
		logger.Info("Startup report sync complete", "reports_synced", count)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return intakeWorker.Run(gctx) })
	g.Go(func() error { return reportWorker.Run(gctx) })
	g.Go(func() error { return reportWorker.RunCatchUp(gctx, cfg.SyncInterval) })

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-gctx.Done():
	}
	cancel()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
