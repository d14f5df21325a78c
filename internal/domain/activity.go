package domain

import "time"

// Status is the board column an activity sits in.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// Outcome classifies how an activity ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailed  Outcome = "failed"
)

const (
	defaultPosition       = 0
	defaultTimeSpent      = 0
	defaultIterationCount = 1
)

// Activity is a single tracked unit of work.
type Activity struct {
	ID              int64
	Title           string
	Description     *string
	AITool          *string
	Project         *string
	Status          Status
	Position        int
	TimeSpent       int64 // seconds
	TimeStarted     *time.Time
	Outcome         *Outcome
	OutcomeNotes    *string
	FailureReason   *string
	IterationCount  int
	CalendarEventID *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

// TimerRunning reports whether a timer has been started and not yet stopped.
func (a Activity) TimerRunning() bool {
	return a.TimeStarted != nil
}

// CalendarEvent is an externally sourced event offered for import.
type CalendarEvent struct {
	ID          *string
	Title       string
	Description *string
	AITool      *string
	Project     *string
	Start       *time.Time
}

// ElapsedSeconds returns whole seconds between start and now, truncated and never negative.
func ElapsedSeconds(start, now time.Time) int64 {
	elapsed := int64(now.Sub(start) / time.Second)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// CompletedAt applies the completion timestamp rule for an update that moves
// an activity to next. previous is nil when the stored row could not be found.
func CompletedAt(previous *Activity, next Status, now time.Time) *time.Time {
	if next != StatusDone {
		if previous == nil {
			return nil
		}
		return previous.CompletedAt
	}
	if previous != nil && previous.Status == StatusDone && previous.CompletedAt != nil {
		return previous.CompletedAt
	}
	return &now
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
