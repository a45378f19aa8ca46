package main

// Package main is the entry point for the incidentloop server.
//
// Responsibilities:
//   - Load and validate configuration from YAML and environment variables
//   - Open the SQLite store and the rotated audit log
//   - Start the REST API on the configured port (default 8081)
//   - Start the WebSocket handler for real-time investigation streaming
//   - Register and serve health check and metrics endpoints
//   - Implement graceful shutdown with context cancellation
//
// Graceful Shutdown:
//   - Stops accepting new investigations and lets in-flight runs conclude
//   - Closes all HTTP listeners
//   - Persists terminal records and finalizes audit logs

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/incidentloop/incidentloop/internal/audit"
	"github.com/incidentloop/incidentloop/internal/config"
	"github.com/incidentloop/incidentloop/internal/db"
	"github.com/incidentloop/incidentloop/internal/server"
)

func main() {
	ctx := context.Background()

	mgr, err := newConfigManager()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create config manager: %v\n", err)
		os.Exit(1)
	}
	if err := mgr.Load(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := mgr.Validate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	cfg := mgr.Get(ctx)

	log, err := buildLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	store, err := db.NewSQLiteStore(cfg.Database.SQLitePath)
	if err != nil {
		log.Fatal("failed to open store", zap.String("path", cfg.Database.SQLitePath), zap.Error(err))
	}
	defer store.Close()

	auditLog, err := audit.NewLogger(&audit.Config{
		Path:       cfg.Audit.Path,
		MaxSize:    cfg.Audit.MaxSizeMB,
		MaxBackups: cfg.Audit.MaxBackups,
		MaxAge:     cfg.Audit.MaxAgeDays,
	}, log)
	if err != nil {
		log.Fatal("failed to open audit log", zap.String("path", cfg.Audit.Path), zap.Error(err))
	}
	defer auditLog.Close()

	srv, err := server.New(cfg, log, store, auditLog)
	if err != nil {
		log.Fatal("failed to create server", zap.Error(err))
	}
	if err := srv.Start(); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}

	// Hot-reload: pick up config file edits while running. Reloaded values
	// apply to subsequent config reads; listener and store wiring keep their
	// boot-time settings until restart.
	go func() {
		for next := range mgr.Watch(ctx) {
			log.Info("configuration reloaded",
				zap.String("log_level", next.Logging.Level),
				zap.String("selection_strategy", next.Harness.SelectionStrategy),
				zap.Int("iteration_limit", next.Harness.IterationLimit))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info("received shutdown signal")

	if err := srv.Stop(); err != nil {
		log.Error("error stopping server", zap.Error(err))
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// newConfigManager honors INCIDENTLOOP_CONFIG when set, otherwise the
// default path.
func newConfigManager() (config.Manager, error) {
	if path := os.Getenv("INCIDENTLOOP_CONFIG"); path != "" {
		return config.NewManager(path)
	}
	return config.NewManagerWithDefaults()
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Logging.Format == "text" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Logging.Level, err)
	}
	zcfg.Level = level
	return zcfg.Build()
}
