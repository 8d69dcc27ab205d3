// Package main provides the entry point for the API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/narvanalabs/matchday/internal/api"
	"github.com/narvanalabs/matchday/internal/api/middleware"
	"github.com/narvanalabs/matchday/internal/auth"
	"github.com/narvanalabs/matchday/internal/blob"
	"github.com/narvanalabs/matchday/internal/engine"
	"github.com/narvanalabs/matchday/internal/events"
	"github.com/narvanalabs/matchday/internal/shutdown"
	"github.com/narvanalabs/matchday/internal/store"
	"github.com/narvanalabs/matchday/internal/store/memory"
	pgstore "github.com/narvanalabs/matchday/internal/store/postgres"
	"github.com/narvanalabs/matchday/internal/suggestions"
	"github.com/narvanalabs/matchday/pkg/config"
	"github.com/narvanalabs/matchday/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	bootLog := logger.Default()

	cfg, err := config.Load()
	if err != nil {
		bootLog.Error("failed to load configuration", "error", err)
		return 1
	}

	log := logger.FromConfig(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log.Logger)

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	st, err := openStore(ctx, cfg, log.Logger)
	if err != nil {
		log.WithError(err).Error("failed to open store", "driver", cfg.StoreDriver)
		return 1
	}

	broker := events.NewBroker(log.WithComponent("events").Logger)
	eng := engine.NewService(st, broker, engine.Config{
		MaxParticipantsPerRequest: cfg.Engine.MaxParticipantsPerRequest,
		MaxTxAttempts:             cfg.Engine.TxMaxAttempts,
		RetryBackoff:              cfg.Engine.TxRetryBackoff,
	}, log.Logger)

	tokens := auth.NewService(&auth.Config{
		JWTSecret:   []byte(cfg.JWTSecret),
		TokenExpiry: cfg.JWTExpiry,
	}, log.WithComponent("auth").Logger)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst, 10*time.Minute)
	limiterCtx, stopLimiter := context.WithCancel(ctx)
	go limiter.Run(limiterCtx, time.Minute)

	server := api.NewServer(cfg, api.Deps{
		Store:   st,
		Engine:  eng,
		Broker:  broker,
		Auth:    tokens,
		Ranker:  newRanker(cfg, log),
		Photos:  newPhotoStore(cfg, log),
		Limiter: limiter,
	}, log.Logger)

	coordinator := shutdown.NewCoordinator(
		shutdown.WithTimeout(cfg.ShutdownTimeout),
		shutdown.WithLogger(log.Logger),
	)
	coordinator.Register(shutdown.NewCloserComponent("store", st))
	coordinator.Register(shutdown.NewFuncComponent("rate-limiter", func(context.Context) error {
		stopLimiter()
		return nil
	}))
	coordinator.Register(shutdown.NewFuncComponent("api", server.Shutdown))

	serverFailed := make(chan struct{})
	go func() {
		if err := server.Start(context.Background()); err != nil {
			log.WithError(err).Error("server error")
			close(serverFailed)
			cancel(err)
		}
	}()

	coordinator.WaitForSignal(ctx)
	log.Info("server stopped")

	select {
	case <-serverFailed:
		return 1
	default:
		return coordinator.ExitCode()
	}
}

// openStore connects to the configured store driver. Postgres schemas are
// migrated on startup.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn("using in-memory store, data is lost on restart")
		return memory.New(), nil
	case config.StoreDriverPostgres:
		pg, err := pgstore.NewPostgresStore(pgstore.DefaultConfig(cfg.DatabaseDSN), log)
		if err != nil {
			return nil, err
		}
		migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := pg.Migrate(migrateCtx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("migrating schema: %w", err)
		}
		return pg, nil
	default:
		return nil, errors.New("unknown store driver " + cfg.StoreDriver)
	}
}

func newRanker(cfg *config.Config, log *logger.Logger) *suggestions.Ranker {
	rankLog := log.WithComponent("suggestions").Logger
	if cfg.Suggestions.Endpoint == "" {
		log.Info("suggestions endpoint not configured, using template reasons")
		return suggestions.NewRanker(suggestions.TemplateGenerator{}, rankLog)
	}
	gen := suggestions.NewHTTPGenerator(
		cfg.Suggestions.Endpoint,
		cfg.Suggestions.APIKey,
		cfg.Suggestions.Model,
		cfg.Suggestions.Timeout,
	)
	return suggestions.NewRanker(gen, rankLog)
}

func newPhotoStore(cfg *config.Config, log *logger.Logger) blob.Uploader {
	if !cfg.Storage.Enabled() {
		log.Info("photo storage not configured, uploads disabled")
		return blob.Disabled{}
	}
	return blob.NewSupabase(
		cfg.Storage.SupabaseURL,
		cfg.Storage.SupabaseKey,
		cfg.Storage.Bucket,
		log.WithComponent("blob").Logger,
	)
}
