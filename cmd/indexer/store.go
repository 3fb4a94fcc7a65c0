package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"poolScope/internal/config"
	"poolScope/internal/storage/postgres"
	"poolScope/internal/storage/redis"
	"poolScope/internal/store"
)

// openStore connects the configured entity backend. The returned close
// function is always safe to call.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (store.KV, func(), error) {
	switch cfg.Backend {
	case config.StorePostgres:
		pg, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, func() {}, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, func() {}, err
		}
		logger.Info("store ready", zap.String("backend", cfg.Backend))
		return pg, pg.Close, nil
	case config.StoreRedis:
		rs, err := redis.NewStore(ctx, redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			return nil, func() {}, err
		}
		logger.Info("store ready", zap.String("backend", cfg.Backend), zap.String("addr", cfg.RedisAddr))
		return rs, func() { _ = rs.Close() }, nil
	default:
		logger.Warn("using in-memory store, state is lost on exit")
		return store.NewMemory(), func() {}, nil
	}
}
