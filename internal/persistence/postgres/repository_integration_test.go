//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/ElohimLOJ/chester-tracker/internal/domain"
	"github.com/ElohimLOJ/chester-tracker/internal/persistence/repotest"
)

func TestRepositoryContract(t *testing.T) {
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("chester"),
		postgrescontainer.WithUsername("chester"),
		postgrescontainer.WithPassword("chester"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, EnsureSchema(ctx, pool))
	// A second run must be a no-op.
	require.NoError(t, EnsureSchema(ctx, pool))

	repotest.Run(t, func(t *testing.T) domain.ActivityRepository {
		_, err := pool.Exec(ctx, `TRUNCATE activities RESTART IDENTITY`)
		require.NoError(t, err)
		return NewRepository(pool)
	})
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
