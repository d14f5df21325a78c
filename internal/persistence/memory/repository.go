// Package memory keeps activities in process memory for local runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ElohimLOJ/chester-tracker/internal/domain"
)

// Repository implements domain.ActivityRepository on a map.
type Repository struct {
	mu         sync.RWMutex
	nextID     int64
	activities map[int64]domain.Activity
}

// NewRepository constructs an empty Repository.
func NewRepository() *Repository {
	return &Repository{activities: make(map[int64]domain.Activity)}
}

// List implements domain.ActivityRepository.
func (r *Repository) List(ctx context.Context) ([]domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Activity, 0, len(r.activities))
	for _, a := range r.activities {
		out = append(out, clone(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Status != out[j].Status {
			return out[i].Status < out[j].Status
		}
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Get implements domain.ActivityRepository.
func (r *Repository) Get(ctx context.Context, id int64) (*domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(id), nil
}

// Create implements domain.ActivityRepository.
func (r *Repository) Create(ctx context.Context, activity domain.Activity) (*domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insert(activity), nil
}

// Update implements domain.ActivityRepository.
func (r *Repository) Update(ctx context.Context, activity domain.Activity) (*domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.activities[activity.ID]
	if !ok {
		return nil, nil
	}
	activity.TimeStarted = stored.TimeStarted
	activity.CreatedAt = stored.CreatedAt
	r.activities[activity.ID] = clone(activity)
	return r.lookup(activity.ID), nil
}

// Delete implements domain.ActivityRepository.
func (r *Repository) Delete(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.activities[id]; !ok {
		return false, nil
	}
	delete(r.activities, id)
	return true, nil
}

// StartTimer implements domain.ActivityRepository.
func (r *Repository) StartTimer(ctx context.Context, id int64, startedAt time.Time) (*domain.Activity, error) {
	return r.mutate(id, func(a *domain.Activity) {
		a.TimeStarted = &startedAt
		a.Status = domain.StatusInProgress
	}), nil
}

// StopTimer implements domain.ActivityRepository.
func (r *Repository) StopTimer(ctx context.Context, id int64, elapsed int64) (*domain.Activity, error) {
	return r.mutate(id, func(a *domain.Activity) {
		a.TimeSpent += elapsed
		a.TimeStarted = nil
	}), nil
}

// IncrementIteration implements domain.ActivityRepository.
func (r *Repository) IncrementIteration(ctx context.Context, id int64) (*domain.Activity, error) {
	return r.mutate(id, func(a *domain.Activity) {
		a.IterationCount++
	}), nil
}

// ImportCalendarEvents implements domain.ActivityRepository.
func (r *Repository) ImportCalendarEvents(ctx context.Context, activities []domain.Activity) ([]domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	known := make(map[string]struct{})
	for _, a := range r.activities {
		if a.CalendarEventID != nil {
			known[*a.CalendarEventID] = struct{}{}
		}
	}

	var imported []domain.Activity
	for _, a := range activities {
		if a.CalendarEventID != nil {
			if _, ok := known[*a.CalendarEventID]; ok {
				continue
			}
			known[*a.CalendarEventID] = struct{}{}
		}
		imported = append(imported, *r.insert(a))
	}
	return imported, nil
}

func (r *Repository) insert(activity domain.Activity) *domain.Activity {
	r.nextID++
	activity.ID = r.nextID
	r.activities[activity.ID] = clone(activity)
	return r.lookup(activity.ID)
}

func (r *Repository) mutate(id int64, fn func(*domain.Activity)) *domain.Activity {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.activities[id]
	if !ok {
		return nil
	}
	fn(&stored)
	r.activities[id] = clone(stored)
	return r.lookup(id)
}

// lookup must be called with the lock held.
func (r *Repository) lookup(id int64) *domain.Activity {
	a, ok := r.activities[id]
	if !ok {
		return nil
	}
	c := clone(a)
	return &c
}

// clone copies pointer fields so callers cannot mutate stored state.
func clone(a domain.Activity) domain.Activity {
	a.Description = copyPtr(a.Description)
	a.AITool = copyPtr(a.AITool)
	a.Project = copyPtr(a.Project)
	a.TimeStarted = copyPtr(a.TimeStarted)
	a.Outcome = copyPtr(a.Outcome)
	a.OutcomeNotes = copyPtr(a.OutcomeNotes)
	a.FailureReason = copyPtr(a.FailureReason)
	a.CalendarEventID = copyPtr(a.CalendarEventID)
	a.CompletedAt = copyPtr(a.CompletedAt)
	return a
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
