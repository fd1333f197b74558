package main

import (
	"context"
	"fmt"

	"github.com/flowgraph/portgraph/internal/adapters/repository/memory"
	"github.com/flowgraph/portgraph/internal/adapters/repository/postgres"
	"github.com/flowgraph/portgraph/internal/adapters/repository/redis"
	"github.com/flowgraph/portgraph/internal/adapters/repository/sqlite"
	"github.com/flowgraph/portgraph/internal/config"
	"github.com/flowgraph/portgraph/internal/core/store"
)

// openStore builds the configured record store and the func that closes it.
func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, func() error, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		s := memory.New(memory.Config{DefaultTTL: cfg.TTL, MaxMemoryMB: cfg.MaxMemoryMB})
		return s, s.Close, nil
	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.DriverPostgres:
		s, err := postgres.Connect(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { s.Close(); return nil }, nil
	case config.DriverRedis:
		s := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, redis.WithTTL(cfg.TTL))
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
