package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/gaming-library/internal/auth"
	"github.com/gaming-library/internal/cache"
	"github.com/gaming-library/internal/config"
	"github.com/gaming-library/internal/handler"
	"github.com/gaming-library/internal/igdb"
	"github.com/gaming-library/internal/kafka"
	"github.com/gaming-library/internal/service"
	"github.com/gaming-library/internal/websocket"
	"github.com/gaming-library/internal/worker"
)

// RunGame serves the catalog proxy, collections and the activity feed until
// ctx ends
func RunGame(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	repo, err := openRepository(ctx, &cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	store, closeStore, err := catalogCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	tokenSource := igdb.NewTwitchTokenProvider(cfg.IGDB.ClientID, cfg.IGDB.ClientSecret, cfg.IGDB.TokenURL, cfg.IGDB.Timeout)
	catalog := igdb.NewClient(cfg.IGDB.BaseURL, cfg.IGDB.Timeout, tokenSource, store, logger)

	hub := websocket.NewHub(cfg.HTTP.AllowedOrigins, logger)
	go hub.Run()
	defer hub.Stop()

	publisher, stopRelay := activityRelay(ctx, &cfg.Kafka, hub, logger)
	defer stopRelay()

	tokens, err := auth.NewJWTManager(&cfg.Auth)
	if err != nil {
		return fmt.Errorf("token manager: %w", err)
	}

	accounts := service.NewAuthService(repo, tokens, logger)
	collections := service.NewCollectionService(repo, publisher, logger)
	entries := service.NewEntryService(repo, catalog, publisher, logger)

	if cfg.Warmup.Enabled {
		warmup := worker.NewWarmupWorker(catalog, &cfg.Warmup, logger)
		if err := warmup.Start(ctx); err != nil {
			return fmt.Errorf("warmup worker: %w", err)
		}
		defer warmup.Stop()
	}

	h := handler.NewGameHandler(catalog, collections, entries, accounts, hub, &cfg.HTTP, logger, repo)

	logger.Info("game service ready", "cache", cfg.Cache.Backend, "kafka", cfg.Kafka.Enabled)
	return serve(ctx, &cfg.Server, h.Router(), logger)
}

func catalogCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.Store, func(), error) {
	if cfg.Cache.Backend != "redis" {
		return cache.NewMemory(), func() {}, nil
	}

	logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
	client, err := cache.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	return cache.NewRedis(client, cfg.Cache.Prefix, logger), func() { client.Close() }, nil
}

// activityRelay publishes through Kafka when enabled and reachable, with a
// per-host consumer group feeding the local hub. Otherwise events go
// straight to the hub.
func activityRelay(ctx context.Context, cfg *config.KafkaConfig, hub *websocket.Hub, logger *slog.Logger) (service.ActivityPublisher, func()) {
	if !cfg.Enabled {
		return hub, func() {}
	}

	producer, err := kafka.NewProducer(cfg, logger)
	if err != nil {
		logger.Warn("kafka producer unavailable, delivering activity locally", "error", err)
		return hub, func() {}
	}

	groupCfg := *cfg
	if host, err := os.Hostname(); err == nil {
		groupCfg.GroupID = cfg.GroupID + "-" + host
	}
	consumer, err := kafka.NewConsumer(&groupCfg, hub, logger)
	if err != nil {
		logger.Warn("kafka consumer unavailable, delivering activity locally", "error", err)
		producer.Close()
		return hub, func() {}
	}
	consumer.Start(ctx)

	return producer, func() {
		if err := consumer.Stop(); err != nil {
			logger.Error("failed to stop kafka consumer", "error", err)
		}
		if err := producer.Close(); err != nil {
			logger.Error("failed to close kafka producer", "error", err)
		}
	}
}
