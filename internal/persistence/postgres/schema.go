// Package postgres stores activities in PostgreSQL through pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS activities (
    id                BIGSERIAL PRIMARY KEY,
    title             TEXT NOT NULL DEFAULT '',
    description       TEXT,
    ai_tool           TEXT,
    project           TEXT,
    status            TEXT NOT NULL DEFAULT 'todo',
    position          INTEGER NOT NULL DEFAULT 0,
    time_spent        BIGINT NOT NULL DEFAULT 0,
    time_started      TIMESTAMPTZ,
    outcome           TEXT,
    outcome_notes     TEXT,
    failure_reason    TEXT,
    iteration_count   INTEGER NOT NULL DEFAULT 1,
    calendar_event_id TEXT,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
    completed_at      TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS activities_calendar_event_id_idx ON activities (calendar_event_id);
`

// EnsureSchema creates the activities table when it does not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
