// Package domain defines the activity lifecycle, timers and analytics.
package domain

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ElohimLOJ/chester-tracker/internal/events"
	"github.com/ElohimLOJ/chester-tracker/internal/observability"
)

const calendarExportDays = 30

// ActivityRepository captures persistence operations. Lookups by id return
// (nil, nil) when the row does not exist.
type ActivityRepository interface {
	// List returns every activity ordered by status, position and id.
	List(ctx context.Context) ([]Activity, error)
	Get(ctx context.Context, id int64) (*Activity, error)
	// Create inserts the activity and returns it with its assigned id.
	Create(ctx context.Context, activity Activity) (*Activity, error)
	// Update overwrites every mutable column of the row identified by activity.ID.
	Update(ctx context.Context, activity Activity) (*Activity, error)
	// Delete removes the row and reports whether one existed.
	Delete(ctx context.Context, id int64) (bool, error)
	StartTimer(ctx context.Context, id int64, startedAt time.Time) (*Activity, error)
	// StopTimer adds elapsed seconds to time_spent and clears time_started.
	StopTimer(ctx context.Context, id int64, elapsed int64) (*Activity, error)
	IncrementIteration(ctx context.Context, id int64) (*Activity, error)
	// ImportCalendarEvents inserts, in one transaction, every activity whose
	// calendar_event_id is not stored yet and returns the inserted rows.
	ImportCalendarEvents(ctx context.Context, activities []Activity) ([]Activity, error)
}

// Service orchestrates activity workflows.
type Service struct {
	repo      ActivityRepository
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPublisher sets where change events go.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithLogger sets the logger used for best-effort side effects.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService constructs a Service.
func NewService(repo ActivityRepository, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		publisher: events.NopPublisher{},
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.now()
}

// ActivityFields carries the caller-controlled attributes of an activity.
// A nil field is absent from the request; see applyTo for what absence means.
type ActivityFields struct {
	Title           *string
	Description     *string
	AITool          *string
	Project         *string
	Status          *Status
	Position        *int
	TimeSpent       *int64
	Outcome         *Outcome
	OutcomeNotes    *string
	FailureReason   *string
	IterationCount  *int
	CalendarEventID *string
}

// applyTo overwrites every caller-controlled attribute of a. Absent optional
// text clears the attribute, absent title becomes empty, and absent counters
// fall back to the column defaults (todo, 0, 0, 1).
func (f ActivityFields) applyTo(a *Activity) {
	a.Title = stringValue(f.Title)
	a.Description = f.Description
	a.AITool = f.AITool
	a.Project = f.Project
	a.Outcome = f.Outcome
	a.OutcomeNotes = f.OutcomeNotes
	a.FailureReason = f.FailureReason
	a.CalendarEventID = f.CalendarEventID

	a.Status = StatusTodo
	if f.Status != nil {
		a.Status = *f.Status
	}
	a.Position = defaultPosition
	if f.Position != nil {
		a.Position = *f.Position
	}
	a.TimeSpent = defaultTimeSpent
	if f.TimeSpent != nil {
		a.TimeSpent = *f.TimeSpent
	}
	a.IterationCount = defaultIterationCount
	if f.IterationCount != nil {
		a.IterationCount = *f.IterationCount
	}
}

// CreateActivityInput captures the payload from the API layer.
type CreateActivityInput struct {
	ActivityFields
}

// UpdateActivityInput is a full replacement of the activity's mutable fields.
type UpdateActivityInput struct {
	ID int64
	ActivityFields
}

// ListActivities returns every activity ordered for the board.
func (s *Service) ListActivities(ctx context.Context) ([]Activity, error) {
	activities, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return activities, nil
}

// GetActivity fetches by id, returning nil when absent.
func (s *Service) GetActivity(ctx context.Context, id int64) (*Activity, error) {
	activity, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get activity %d: %w", id, err)
	}
	return activity, nil
}

// CreateActivity persists a new activity with defaults for absent fields.
func (s *Service) CreateActivity(ctx context.Context, input CreateActivityInput) (*Activity, error) {
	now := s.now()
	activity := Activity{CreatedAt: now, UpdatedAt: now}
	input.applyTo(&activity)

	created, err := s.repo.Create(ctx, activity)
	if err != nil {
		return nil, fmt.Errorf("create activity: %w", err)
	}
	observability.RecordActivityPersisted(now)
	s.publish(ctx, events.ActionCreated, created)
	return created, nil
}

// UpdateActivity replaces the mutable fields of an activity. completed_at is
// derived from the stored and requested status rather than taken from input.
// A nil result means the id does not exist.
func (s *Service) UpdateActivity(ctx context.Context, input UpdateActivityInput) (*Activity, error) {
	previous, err := s.repo.Get(ctx, input.ID)
	if err != nil {
		return nil, fmt.Errorf("load activity %d: %w", input.ID, err)
	}

	now := s.now()
	activity := Activity{ID: input.ID, UpdatedAt: now}
	input.applyTo(&activity)
	activity.CompletedAt = CompletedAt(previous, activity.Status, now)

	updated, err := s.repo.Update(ctx, activity)
	if err != nil {
		return nil, fmt.Errorf("update activity %d: %w", input.ID, err)
	}
	if updated != nil {
		observability.RecordActivityPersisted(now)
		s.publish(ctx, events.ActionUpdated, updated)
	}
	return updated, nil
}

// DeleteActivity removes the activity. Deleting an unknown id is not an
// error and publishes nothing.
func (s *Service) DeleteActivity(ctx context.Context, id int64) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete activity %d: %w", id, err)
	}
	if deleted {
		s.publish(ctx, events.ActionDeleted, &Activity{ID: id})
	}
	return nil
}

// StartTimer records now as the timer start and moves the activity to
// in-progress. A running timer is restarted, dropping its unflushed time.
func (s *Service) StartTimer(ctx context.Context, id int64) (*Activity, error) {
	activity, err := s.repo.StartTimer(ctx, id, s.now())
	if err != nil {
		return nil, fmt.Errorf("start timer %d: %w", id, err)
	}
	if activity != nil {
		s.publish(ctx, events.ActionTimerStarted, activity)
	}
	return activity, nil
}

// StopTimer folds the elapsed time of a running timer into time_spent.
// Without a running timer the activity is returned unchanged.
func (s *Service) StopTimer(ctx context.Context, id int64) (*Activity, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load activity %d: %w", id, err)
	}
	if current == nil || !current.TimerRunning() {
		return current, nil
	}

	elapsed := ElapsedSeconds(*current.TimeStarted, s.now())
	activity, err := s.repo.StopTimer(ctx, id, elapsed)
	if err != nil {
		return nil, fmt.Errorf("stop timer %d: %w", id, err)
	}
	observability.RecordTrackedSeconds(elapsed)
	if activity != nil {
		s.publish(ctx, events.ActionTimerStopped, activity)
	}
	return activity, nil
}

// IncrementIteration bumps iteration_count by one.
func (s *Service) IncrementIteration(ctx context.Context, id int64) (*Activity, error) {
	activity, err := s.repo.IncrementIteration(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("increment iteration %d: %w", id, err)
	}
	if activity != nil {
		s.publish(ctx, events.ActionIterationIncremented, activity)
	}
	return activity, nil
}

// ImportCalendarEvents creates todo activities for events not imported before.
func (s *Service) ImportCalendarEvents(ctx context.Context, calendarEvents []CalendarEvent) (int, error) {
	now := s.now()
	candidates := make([]Activity, 0, len(calendarEvents))
	for _, ev := range calendarEvents {
		createdAt := now
		if ev.Start != nil {
			createdAt = *ev.Start
		}
		candidates = append(candidates, Activity{
			Title:           ev.Title,
			Description:     ev.Description,
			AITool:          ev.AITool,
			Project:         ev.Project,
			Status:          StatusTodo,
			Position:        defaultPosition,
			TimeSpent:       defaultTimeSpent,
			IterationCount:  defaultIterationCount,
			CalendarEventID: ev.ID,
			CreatedAt:       createdAt,
			UpdatedAt:       now,
		})
	}

	imported, err := s.repo.ImportCalendarEvents(ctx, candidates)
	if err != nil {
		return 0, fmt.Errorf("import calendar events: %w", err)
	}
	if len(imported) > 0 {
		observability.RecordActivityPersisted(now)
	}
	for i := range imported {
		s.publish(ctx, events.ActionImported, &imported[i])
	}
	return len(imported), nil
}

// ProjectsSummary counts activities per project.
func (s *Service) ProjectsSummary(ctx context.Context) ([]ProjectCount, error) {
	activities, err := s.ListActivities(ctx)
	if err != nil {
		return nil, err
	}
	return SummarizeProjects(activities), nil
}

// TodayStats summarises today's activity.
func (s *Service) TodayStats(ctx context.Context) (TodayStats, error) {
	activities, err := s.ListActivities(ctx)
	if err != nil {
		return TodayStats{}, err
	}
	return SummarizeToday(activities, s.now()), nil
}

// Dashboard builds the dashboard for a lookback window in days.
func (s *Service) Dashboard(ctx context.Context, days int) (Dashboard, error) {
	activities, err := s.ListActivities(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	return BuildDashboard(activities, days, s.now()), nil
}

// ToolComparison compares AI tools.
func (s *Service) ToolComparison(ctx context.Context) ([]ToolComparison, error) {
	activities, err := s.ListActivities(ctx)
	if err != nil {
		return nil, err
	}
	return CompareTools(activities), nil
}

// Report gathers the text report figures.
func (s *Service) Report(ctx context.Context) (Report, error) {
	activities, err := s.ListActivities(ctx)
	if err != nil {
		return Report{}, err
	}
	return BuildReport(activities, s.now()), nil
}

// ActivitiesNewestFirst returns every activity ordered by creation time, newest first.
func (s *Service) ActivitiesNewestFirst(ctx context.Context) ([]Activity, error) {
	activities, err := s.ListActivities(ctx)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(activities)
	return activities, nil
}

// RecentActivities returns activities created within the calendar export
// window, newest first.
func (s *Service) RecentActivities(ctx context.Context) ([]Activity, error) {
	activities, err := s.ListActivities(ctx)
	if err != nil {
		return nil, err
	}
	since := startOfDay(s.now()).AddDate(0, 0, -calendarExportDays)
	recent := activities[:0]
	for _, a := range activities {
		if !a.CreatedAt.Before(since) {
			recent = append(recent, a)
		}
	}
	sortNewestFirst(recent)
	return recent, nil
}

func sortNewestFirst(activities []Activity) {
	sort.SliceStable(activities, func(i, j int) bool {
		if !activities[i].CreatedAt.Equal(activities[j].CreatedAt) {
			return activities[i].CreatedAt.After(activities[j].CreatedAt)
		}
		return activities[i].ID > activities[j].ID
	})
}

func (s *Service) publish(ctx context.Context, action events.Action, activity *Activity) {
	event := events.ActivityChanged{
		EventID:    uuid.NewString(),
		ActivityID: activity.ID,
		Action:     action,
		Status:     string(activity.Status),
		TimeSpent:  activity.TimeSpent,
		OccurredAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("activity event not delivered",
			zap.Int64("activity_id", activity.ID),
			zap.String("action", string(action)),
			zap.Error(err),
		)
	}
}
