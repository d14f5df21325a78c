// Package events defines activity change notifications and their Kafka delivery.
package events

import "time"

// Action names the mutation that produced an event.
type Action string

const (
	ActionCreated              Action = "created"
	ActionUpdated              Action = "updated"
	ActionDeleted              Action = "deleted"
	ActionTimerStarted         Action = "timer_started"
	ActionTimerStopped         Action = "timer_stopped"
	ActionIterationIncremented Action = "iteration_incremented"
	ActionImported             Action = "imported"
)

// ActivityChanged is emitted after an activity is created, mutated or deleted.
type ActivityChanged struct {
	EventID    string    `json:"event_id"`
	ActivityID int64     `json:"activity_id"`
	Action     Action    `json:"action"`
	Status     string    `json:"status,omitempty"`
	TimeSpent  int64     `json:"time_spent"`
	OccurredAt time.Time `json:"occurred_at"`
}
