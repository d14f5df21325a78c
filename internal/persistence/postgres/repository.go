package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ElohimLOJ/chester-tracker/internal/domain"
)

const activityColumns = `id, title, description, ai_tool, project, status, position, time_spent, time_started,
        outcome, outcome_notes, failure_reason, iteration_count, calendar_event_id, created_at, updated_at, completed_at`

// Repository provides Postgres-backed persistence for activities.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns every activity ordered for the board.
func (r *Repository) List(ctx context.Context) ([]domain.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities ORDER BY status, position, id`

	var results []domain.Activity
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			activity, err := scanActivity(rows)
			if err != nil {
				return err
			}
			results = append(results, *activity)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Get retrieves an activity by id.
func (r *Repository) Get(ctx context.Context, id int64) (*domain.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE id=$1`
	return r.queryOne(ctx, query, id)
}

// Create inserts the activity and returns the stored row.
func (r *Repository) Create(ctx context.Context, activity domain.Activity) (*domain.Activity, error) {
	var created *domain.Activity
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		created, err = insertActivity(ctx, tx, activity)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update overwrites the mutable columns of an activity.
func (r *Repository) Update(ctx context.Context, activity domain.Activity) (*domain.Activity, error) {
	query := `UPDATE activities SET title=$2, description=$3, ai_tool=$4, project=$5, status=$6, position=$7,
        time_spent=$8, outcome=$9, outcome_notes=$10, failure_reason=$11, iteration_count=$12,
        calendar_event_id=$13, updated_at=$14, completed_at=$15
        WHERE id=$1 RETURNING ` + activityColumns

	return r.queryOne(ctx, query,
		activity.ID,
		activity.Title,
		activity.Description,
		activity.AITool,
		activity.Project,
		string(activity.Status),
		activity.Position,
		activity.TimeSpent,
		outcomeText(activity.Outcome),
		activity.OutcomeNotes,
		activity.FailureReason,
		activity.IterationCount,
		activity.CalendarEventID,
		activity.UpdatedAt,
		activity.CompletedAt,
	)
}

// Delete removes the row and reports whether it existed; a missing row is
// not an error.
func (r *Repository) Delete(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM activities WHERE id=$1`, id)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected() > 0
		return nil
	})
	return deleted, err
}

// StartTimer marks the timer as running from startedAt.
func (r *Repository) StartTimer(ctx context.Context, id int64, startedAt time.Time) (*domain.Activity, error) {
	query := `UPDATE activities SET time_started=$2, status=$3 WHERE id=$1 RETURNING ` + activityColumns
	return r.queryOne(ctx, query, id, startedAt, string(domain.StatusInProgress))
}

// StopTimer adds elapsed seconds and clears the running timer.
func (r *Repository) StopTimer(ctx context.Context, id int64, elapsed int64) (*domain.Activity, error) {
	query := `UPDATE activities SET time_spent=COALESCE(time_spent, 0)+$2, time_started=NULL WHERE id=$1 RETURNING ` + activityColumns
	return r.queryOne(ctx, query, id, elapsed)
}

// IncrementIteration bumps the iteration counter in place.
func (r *Repository) IncrementIteration(ctx context.Context, id int64) (*domain.Activity, error) {
	query := `UPDATE activities SET iteration_count=iteration_count+1 WHERE id=$1 RETURNING ` + activityColumns
	return r.queryOne(ctx, query, id)
}

// ImportCalendarEvents inserts activities whose calendar_event_id is unseen.
func (r *Repository) ImportCalendarEvents(ctx context.Context, activities []domain.Activity) ([]domain.Activity, error) {
	var imported []domain.Activity
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		for _, activity := range activities {
			if activity.CalendarEventID != nil {
				var exists bool
				if err := tx.QueryRow(ctx,
					`SELECT EXISTS (SELECT 1 FROM activities WHERE calendar_event_id=$1)`,
					*activity.CalendarEventID,
				).Scan(&exists); err != nil {
					return err
				}
				if exists {
					continue
				}
			}

			created, err := insertActivity(ctx, tx, activity)
			if err != nil {
				return err
			}
			imported = append(imported, *created)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return imported, nil
}

// inTx runs fn on a pooled connection inside a transaction. The transaction
// is rolled back and the connection released on every exit path.
func (r *Repository) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) queryOne(ctx context.Context, query string, args ...any) (*domain.Activity, error) {
	var activity *domain.Activity
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		activity, err = scanActivity(tx.QueryRow(ctx, query, args...))
		if errors.Is(err, pgx.ErrNoRows) {
			activity = nil
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return activity, nil
}

func insertActivity(ctx context.Context, tx pgx.Tx, activity domain.Activity) (*domain.Activity, error) {
	query := `INSERT INTO activities (title, description, ai_tool, project, status, position, time_spent,
        outcome, outcome_notes, failure_reason, iteration_count, calendar_event_id, created_at, updated_at, completed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        RETURNING ` + activityColumns

	return scanActivity(tx.QueryRow(ctx, query,
		activity.Title,
		activity.Description,
		activity.AITool,
		activity.Project,
		string(activity.Status),
		activity.Position,
		activity.TimeSpent,
		outcomeText(activity.Outcome),
		activity.OutcomeNotes,
		activity.FailureReason,
		activity.IterationCount,
		activity.CalendarEventID,
		activity.CreatedAt,
		activity.UpdatedAt,
		activity.CompletedAt,
	))
}

func scanActivity(row pgx.Row) (*domain.Activity, error) {
	var (
		a       domain.Activity
		status  string
		outcome *string
	)
	if err := row.Scan(
		&a.ID,
		&a.Title,
		&a.Description,
		&a.AITool,
		&a.Project,
		&status,
		&a.Position,
		&a.TimeSpent,
		&a.TimeStarted,
		&outcome,
		&a.OutcomeNotes,
		&a.FailureReason,
		&a.IterationCount,
		&a.CalendarEventID,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.CompletedAt,
	); err != nil {
		return nil, err
	}
	a.Status = domain.Status(status)
	if outcome != nil {
		o := domain.Outcome(*outcome)
		a.Outcome = &o
	}
	return &a, nil
}

func outcomeText(o *domain.Outcome) *string {
	if o == nil {
		return nil
	}
	s := string(*o)
	return &s
}
