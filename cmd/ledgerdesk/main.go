package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/luke-anto/ledgerdesk/internal/amqp"
	"github.com/luke-anto/ledgerdesk/internal/auth"
	"github.com/luke-anto/ledgerdesk/internal/config"
	"github.com/luke-anto/ledgerdesk/internal/core"
	apphttp "github.com/luke-anto/ledgerdesk/internal/http"
	ldlog "github.com/luke-anto/ledgerdesk/internal/log"
	"github.com/luke-anto/ledgerdesk/internal/services"
	"github.com/luke-anto/ledgerdesk/internal/storage"
	"github.com/luke-anto/ledgerdesk/internal/webhook"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	createUser := flag.String("create-user", "", "bootstrap a user as email:name:password[:role] and exit")
	flag.Parse()

	logger := ldlog.New(ldlog.DefaultConfig()).WithComponent(ldlog.ComponentApp)

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

	if *createUser != "" {
		if err := bootstrapUser(repo, *createUser); err != nil {
			logger.Error("User bootstrap failed", "error", err)
			os.Exit(1)
		}
		logger.Info("User created")
		return
	}

	authManager := auth.NewManager(cfg.JWTSecret, cfg.SessionExpiry)

	// AMQP is optional; without it deliveries fall back to the pending
	// report queue in SQLite and intake submissions are recorded directly.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPIntakeQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing in SQLite-only mode", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
		}
	}

	var reportClient *amqp.Client
	if cfg.AMQPURL != "" {
		reportClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPReportQueue)
		if err != nil {
			logger.Warn("Failed to initialize report AMQP client", "error", err)
			reportClient = nil
		} else {
			defer reportClient.Close()
		}
	}

	cycleService := services.NewCycleService(repo, reportClient)
	defer cycleService.Close()
	intakeService := services.NewIntakeService(repo)

	var publisher webhook.Publisher
	if amqpClient != nil {
		publisher = amqpClient
	}
	intakeHook := webhook.NewHandler(cfg.IntakeWebhookSecret, publisher, intakeService, logger)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Storage:       repo,
		CycleService:  cycleService,
		IntakeService: intakeService,
		AuthManager:   authManager,
		IntakeHook:    intakeHook,
		Logger:        logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting ledgerdesk server", "port", cfg.Port, "db", cfg.SQLiteDBPath)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}

// bootstrapUser creates an account from an email:name:password[:role] spec.
func bootstrapUser(repo *storage.SQLiteRepository, spec string) error {
	parts := strings.SplitN(spec, ":", 4)
	if len(parts) < 3 {
		return fmt.Errorf("expected email:name:password[:role], got %q", spec)
	}
	role := core.RoleStaff
	if len(parts) == 4 && parts[3] != "" {
		role = core.UserRole(parts[3])
	}
	hash, err := auth.HashPassword(parts[2])
	if err != nil {
		return err
	}
	user := core.User{Email: parts[0], Name: parts[1], PasswordHash: hash, Role: role}
	if err := user.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = repo.CreateUser(ctx, user)
	return err
}
