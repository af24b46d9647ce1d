// Package app wires configuration into running auth and game services.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gaming-library/internal/config"
	"github.com/gaming-library/internal/postgres"
)

const shutdownTimeout = 30 * time.Second

// NewLogger returns the JSON logger shared by both services
func NewLogger(service string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).
		With("service", service)
}

// LoadConfig reads path, falling back to defaults when the file is absent
func LoadConfig(path string, logger *slog.Logger) (*config.Config, error) {
	cfg, err := config.Load(path)
	switch {
	case err == nil:
		return cfg, nil
	case errors.Is(err, os.ErrNotExist):
		logger.Warn("config file not found, using defaults", "path", path)
		return config.DefaultConfig(), nil
	default:
		return nil, err
	}
}

func openRepository(ctx context.Context, cfg *config.PostgresConfig, logger *slog.Logger) (*postgres.Repository, error) {
	logger.Info("connecting to PostgreSQL", "host", cfg.Host, "database", cfg.Database)
	repo, err := postgres.NewRepository(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := repo.RunMigrations(ctx); err != nil {
		repo.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return repo, nil
}

// serve runs h until ctx ends, then drains in-flight requests
func serve(ctx context.Context, cfg *config.ServerConfig, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	failed := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
	}()

	select {
	case err := <-failed:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down http server")
	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(drainCtx)
}
