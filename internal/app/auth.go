package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gaming-library/internal/auth"
	"github.com/gaming-library/internal/config"
	"github.com/gaming-library/internal/handler"
	"github.com/gaming-library/internal/service"
)

// RunAuth serves signup, login and identity lookups until ctx ends
func RunAuth(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	repo, err := openRepository(ctx, &cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	tokens, err := auth.NewJWTManager(&cfg.Auth)
	if err != nil {
		return fmt.Errorf("token manager: %w", err)
	}

	accounts := service.NewAuthService(repo, tokens, logger)
	h := handler.NewAuthHandler(accounts, &cfg.HTTP, logger)

	logger.Info("auth service ready", "environment", cfg.Auth.Environment)
	return serve(ctx, &cfg.Server, h.Router(), logger)
}
