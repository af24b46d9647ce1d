package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gaming-library/internal/app"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	logger := app.NewLogger("auth")
	slog.SetDefault(logger)

	cfg, err := app.LoadConfig(*configPath, logger)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunAuth(ctx, cfg, logger); err != nil {
		logger.Error("auth service exited", "error", err)
		os.Exit(1)
	}
	logger.Info("auth service stopped")
}
