package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ElohimLOJ/chester-tracker/internal/domain"
)

// ActivityRequest is the body of POST /api/activities and PUT /api/activities/{id}.
// On PUT every field is written; an omitted field means null or its default.
type ActivityRequest struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	AITool          *string `json:"ai_tool"`
	Project         *string `json:"project"`
	Status          *string `json:"status"`
	Position        *int    `json:"position"`
	TimeSpent       *int64  `json:"time_spent"`
	Outcome         *string `json:"outcome"`
	OutcomeNotes    *string `json:"outcome_notes"`
	FailureReason   *string `json:"failure_reason"`
	IterationCount  *int    `json:"iteration_count"`
	CalendarEventID *string `json:"calendar_event_id"`
}

func (r ActivityRequest) fields() domain.ActivityFields {
	f := domain.ActivityFields{
		Title:           r.Title,
		Description:     r.Description,
		AITool:          r.AITool,
		Project:         r.Project,
		Position:        r.Position,
		TimeSpent:       r.TimeSpent,
		OutcomeNotes:    r.OutcomeNotes,
		FailureReason:   r.FailureReason,
		IterationCount:  r.IterationCount,
		CalendarEventID: r.CalendarEventID,
	}
	if r.Status != nil {
		s := domain.Status(*r.Status)
		f.Status = &s
	}
	if r.Outcome != nil {
		o := domain.Outcome(*r.Outcome)
		f.Outcome = &o
	}
	return f
}

// ActivityView exposes full details about an activity.
type ActivityView struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Description     *string    `json:"description"`
	AITool          *string    `json:"ai_tool"`
	Project         *string    `json:"project"`
	Status          string     `json:"status"`
	Position        int        `json:"position"`
	TimeSpent       int64      `json:"time_spent"`
	TimeStarted     *time.Time `json:"time_started"`
	Outcome         *string    `json:"outcome"`
	OutcomeNotes    *string    `json:"outcome_notes"`
	FailureReason   *string    `json:"failure_reason"`
	IterationCount  int        `json:"iteration_count"`
	CalendarEventID *string    `json:"calendar_event_id"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	CompletedAt     *time.Time `json:"completed_at"`
}

func toActivityView(a domain.Activity) ActivityView {
	view := ActivityView{
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
		view.Outcome = &o
	}
	return view
}

// CalendarImportRequest is the body of POST /api/calendar/import.
type CalendarImportRequest struct {
	Events []CalendarEventPayload `json:"events"`
}

// CalendarEventPayload describes one external calendar event.
type CalendarEventPayload struct {
	ID          *eventID   `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	AITool      *string    `json:"ai_tool"`
	Project     *string    `json:"project"`
	Start       *eventTime `json:"start"`
}

func (p CalendarEventPayload) toDomain() domain.CalendarEvent {
	ev := domain.CalendarEvent{
		Title:       p.Title,
		Description: p.Description,
		AITool:      p.AITool,
		Project:     p.Project,
	}
	if p.ID != nil {
		id := string(*p.ID)
		ev.ID = &id
	}
	if p.Start != nil && !time.Time(*p.Start).IsZero() {
		start := time.Time(*p.Start)
		ev.Start = &start
	}
	return ev
}

// CalendarImportResponse reports how many events became activities.
type CalendarImportResponse struct {
	Imported int `json:"imported"`
}

// eventID accepts calendar ids sent either as JSON strings or numbers.
type eventID string

func (e *eventID) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(data, []byte(`"`)) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = eventID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("calendar event id: %w", err)
	}
	*e = eventID(n.String())
	return nil
}

var eventTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.DateTime,
	time.DateOnly,
}

// eventTime parses the timestamp formats calendar clients commonly send.
// Values without a zone are read in server-local time. Empty, non-string or
// unrecognised values leave the zero time, so the event is still imported
// and stamped with the import time.
type eventTime time.Time

func (e *eventTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	raw = strings.TrimSpace(raw)
	for _, layout := range eventTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			*e = eventTime(t)
			return nil
		}
	}
	return nil
}
