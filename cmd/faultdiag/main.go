package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gridsentinel/fault-diagnosis/api"
	"github.com/gridsentinel/fault-diagnosis/internal/logger"
	"github.com/gridsentinel/fault-diagnosis/internal/scorer"
	"github.com/gridsentinel/fault-diagnosis/pkg/config"
	"github.com/gridsentinel/fault-diagnosis/pkg/database"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	migrate := flag.Bool("migrate", false, "run database migrations")
	train := flag.Bool("train", false, "train the classifier model and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	logger.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Mode)

	if *train {
		return trainModel(cfg)
	}

	db, err := database.New(cfg.Database.ToDBConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	logger.Info("Database connection established")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if *migrate {
		logger.Info("Running database migrations")
		migrator := database.NewMigrator(db)
		if err := migrator.Run(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("Migrations completed successfully")
		return nil
	}

	// SQLite ledgers migrate in place. Postgres schema changes go through
	// an explicit -migrate run.
	if db.Driver() == database.DriverSQLite {
		migrator := database.NewMigrator(db)
		if err := migrator.Run(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	model, err := scorer.Load(cfg.Model.Path)
	if err != nil {
		return fmt.Errorf("failed to load classifier model from %s (run with -train to generate one): %w", cfg.Model.Path, err)
	}
	logger.Infof("Classifier model loaded from %s (%d labels, trained %s)",
		cfg.Model.Path, len(model.Labels), model.TrainedAt.Format(time.RFC3339))

	server := api.NewServer(cfg, db, model)

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Infof("API server listening on port %d", cfg.API.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdownChan:
		logger.Infof("Received signal %v, shutting down", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}

func trainModel(cfg *config.Config) error {
	logger.Infof("Training classifier model (%d samples per label, seed %d)",
		cfg.Model.SamplesPerLabel, cfg.Model.Seed)

	model := scorer.Train(scorer.TrainConfig{
		SamplesPerLabel: cfg.Model.SamplesPerLabel,
		Seed:            cfg.Model.Seed,
	})

	if err := model.Validate(); err != nil {
		return fmt.Errorf("trained model failed validation: %w", err)
	}

	if err := scorer.Save(model, cfg.Model.Path); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}

	logger.Infof("Model saved to %s", cfg.Model.Path)
	return nil
}
