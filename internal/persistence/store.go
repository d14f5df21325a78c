// Package persistence selects and opens the configured activity store.
package persistence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ElohimLOJ/chester-tracker/internal/config"
	"github.com/ElohimLOJ/chester-tracker/internal/domain"
	"github.com/ElohimLOJ/chester-tracker/internal/persistence/memory"
	"github.com/ElohimLOJ/chester-tracker/internal/persistence/postgres"
	"github.com/ElohimLOJ/chester-tracker/internal/persistence/sqlite"
)

// Store is an opened repository together with the function that releases it.
type Store struct {
	Repository domain.ActivityRepository
	Close      func()
}

// Open connects to the store named by cfg.StoreDriver and makes sure the
// activities table exists.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		poolCfg, err := pgxpool.ParseConfig(cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("parse postgres url: %w", err)
		}
		if cfg.PostgresMaxConn > 0 {
			poolCfg.MaxConns = int32(cfg.PostgresMaxConn)
		}
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &Store{Repository: postgres.NewRepository(pool), Close: pool.Close}, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		closeFn := func() {}
		if sqlDB, err := db.DB(); err == nil {
			closeFn = func() {
				if err := sqlDB.Close(); err != nil {
					logger.Warn("closing sqlite", zap.Error(err))
				}
			}
		}
		return &Store{Repository: sqlite.NewRepository(db), Close: closeFn}, nil

	case config.DriverMemory:
		return &Store{Repository: memory.NewRepository(), Close: func() {}}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
