package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KarthikHK-01/queuectl"
	"github.com/KarthikHK-01/queuectl/store"
	"github.com/KarthikHK-01/queuectl/store/memory"
	"github.com/KarthikHK-01/queuectl/store/mongo"
	"github.com/KarthikHK-01/queuectl/store/postgres"
	"github.com/KarthikHK-01/queuectl/store/redis"
	"github.com/KarthikHK-01/queuectl/store/sqlite"
)

// openStore connects to the backend named in cfg. The caller migrates it.
func openStore(ctx context.Context, cfg queuectl.StoreConfig, logger *slog.Logger) (store.Store, error) {
	switch cfg.Backend {
	case queuectl.BackendSQLite:
		return sqlite.New(cfg.DSN, sqlite.WithLogger(logger))
	case queuectl.BackendPostgres:
		return postgres.New(ctx, cfg.DSN, postgres.WithLogger(logger))
	case queuectl.BackendRedis:
		return redis.NewFromURL(cfg.DSN, redis.WithLogger(logger))
	case queuectl.BackendMongo:
		return mongo.New(ctx, cfg.DSN, mongo.WithLogger(logger))
	case queuectl.BackendMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", queuectl.ErrInvalidConfig, cfg.Backend)
	}
}
