package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ElohimLOJ/chester-tracker/internal/domain"
)

type activityRecord struct {
	ID              int64  `gorm:"primaryKey;autoIncrement"`
	Title           string `gorm:"not null"`
	Description     *string
	AITool          *string `gorm:"column:ai_tool"`
	Project         *string
	Status          string `gorm:"not null"`
	Position        int
	TimeSpent       int64
	TimeStarted     *time.Time
	Outcome         *string
	OutcomeNotes    *string
	FailureReason   *string
	IterationCount  int
	CalendarEventID *string `gorm:"index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

func (activityRecord) TableName() string { return "activities" }

// Repository handles activity persistence on SQLite.
type Repository struct {
	db *gorm.DB
}

// NewRepository wraps an opened and migrated gorm handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List returns every activity ordered by status, position and id.
func (r *Repository) List(ctx context.Context) ([]domain.Activity, error) {
	var records []activityRecord
	if err := r.db.WithContext(ctx).Order("status, position, id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	out := make([]domain.Activity, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.toDomain())
	}
	return out, nil
}

// Get returns the activity, or nil when the id is unknown.
func (r *Repository) Get(ctx context.Context, id int64) (*domain.Activity, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// Create inserts the activity and returns it with its assigned id.
func (r *Repository) Create(ctx context.Context, activity domain.Activity) (*domain.Activity, error) {
	rec := fromDomain(activity)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("create activity: %w", err)
	}
	created := rec.toDomain()
	return &created, nil
}

// Update overwrites every mutable column, including ones set to NULL.
func (r *Repository) Update(ctx context.Context, activity domain.Activity) (*domain.Activity, error) {
	rec := fromDomain(activity)
	return r.updateColumns(ctx, activity.ID, map[string]any{
		"title":             rec.Title,
		"description":       rec.Description,
		"ai_tool":           rec.AITool,
		"project":           rec.Project,
		"status":            rec.Status,
		"position":          rec.Position,
		"time_spent":        rec.TimeSpent,
		"outcome":           rec.Outcome,
		"outcome_notes":     rec.OutcomeNotes,
		"failure_reason":    rec.FailureReason,
		"iteration_count":   rec.IterationCount,
		"calendar_event_id": rec.CalendarEventID,
		"updated_at":        rec.UpdatedAt,
		"completed_at":      rec.CompletedAt,
	})
}

// Delete removes the activity and reports whether a row was removed.
func (r *Repository) Delete(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&activityRecord{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("delete activity: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// StartTimer stamps time_started and moves the activity to in_progress.
func (r *Repository) StartTimer(ctx context.Context, id int64, startedAt time.Time) (*domain.Activity, error) {
	return r.updateColumns(ctx, id, map[string]any{
		"time_started": startedAt,
		"status":       string(domain.StatusInProgress),
	})
}

// StopTimer adds elapsed seconds to time_spent and clears time_started.
func (r *Repository) StopTimer(ctx context.Context, id int64, elapsed int64) (*domain.Activity, error) {
	return r.updateColumns(ctx, id, map[string]any{
		"time_spent":   gorm.Expr("COALESCE(time_spent, 0) + ?", elapsed),
		"time_started": nil,
	})
}

// IncrementIteration bumps iteration_count by one.
func (r *Repository) IncrementIteration(ctx context.Context, id int64) (*domain.Activity, error) {
	return r.updateColumns(ctx, id, map[string]any{
		"iteration_count": gorm.Expr("iteration_count + 1"),
	})
}

// ImportCalendarEvents inserts the activities in one transaction, skipping
// any whose calendar_event_id is already stored.
func (r *Repository) ImportCalendarEvents(ctx context.Context, activities []domain.Activity) ([]domain.Activity, error) {
	var imported []domain.Activity
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, activity := range activities {
			if activity.CalendarEventID != nil {
				var n int64
				if err := tx.Model(&activityRecord{}).
					Where("calendar_event_id = ?", *activity.CalendarEventID).
					Count(&n).Error; err != nil {
					return err
				}
				if n > 0 {
					continue
				}
			}
			rec := fromDomain(activity)
			if err := tx.Create(&rec).Error; err != nil {
				return err
			}
			imported = append(imported, rec.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("import calendar events: %w", err)
	}
	return imported, nil
}

// updateColumns writes columns without gorm's updated_at bookkeeping and
// returns the row afterwards, or nil when the id is unknown.
func (r *Repository) updateColumns(ctx context.Context, id int64, columns map[string]any) (*domain.Activity, error) {
	var out *domain.Activity
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&activityRecord{}).Where("id = ?", id).UpdateColumns(columns)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		var err error
		out, err = r.find(tx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update activity %d: %w", id, err)
	}
	return out, nil
}

func (r *Repository) find(db *gorm.DB, id int64) (*domain.Activity, error) {
	var rec activityRecord
	if err := db.Where("id = ?", id).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	a := rec.toDomain()
	return &a, nil
}

func fromDomain(a domain.Activity) activityRecord {
	rec := activityRecord{
		ID:              a.ID,
		Title:           a.Title,
		Description:     a.Description,
		AITool:          a.AITool,
		Project:         a.Project,
		Status:          string(a.Status),
		Position:        a.Position,
		TimeSpent:       a.TimeSpent,
		TimeStarted:     a.TimeStarted,
		OutcomeNotes:    a.OutcomeNotes,
		FailureReason:   a.FailureReason,
		IterationCount:  a.IterationCount,
		CalendarEventID: a.CalendarEventID,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
		CompletedAt:     a.CompletedAt,
	}
	if a.Outcome != nil {
		o := string(*a.Outcome)
		rec.Outcome = &o
	}
	return rec
}

func (rec activityRecord) toDomain() domain.Activity {
	a := domain.Activity{
		ID:              rec.ID,
		Title:           rec.Title,
		Description:     rec.Description,
		AITool:          rec.AITool,
		Project:         rec.Project,
		Status:          domain.Status(rec.Status),
		Position:        rec.Position,
		TimeSpent:       rec.TimeSpent,
		TimeStarted:     rec.TimeStarted,
		OutcomeNotes:    rec.OutcomeNotes,
		FailureReason:   rec.FailureReason,
		IterationCount:  rec.IterationCount,
		CalendarEventID: rec.CalendarEventID,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
		CompletedAt:     rec.CompletedAt,
	}
	if rec.Outcome != nil {
		o := domain.Outcome(*rec.Outcome)
		a.Outcome = &o
	}
	return a
}
