package domain_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ElohimLOJ/chester-tracker/internal/domain"
	"github.com/ElohimLOJ/chester-tracker/internal/events"
	"github.com/ElohimLOJ/chester-tracker/internal/persistence/memory"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.ActivityChanged
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event events.ActivityChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) actions() []events.Action {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Action, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Action)
	}
	return out
}

func newTestService(t *testing.T) (*domain.Service, *fakeClock, *recordingPublisher) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)}
	pub := &recordingPublisher{}
	svc := domain.NewService(memory.NewRepository(),
		domain.WithClock(clock.Now),
		domain.WithPublisher(pub),
	)
	return svc, clock, pub
}

func ptr[T any](v T) *T { return &v }

func TestCreateActivityAppliesDefaults(t *testing.T) {
	svc, clock, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateActivity(ctx, domain.CreateActivityInput{ActivityFields: domain.ActivityFields{
		Title:  ptr("Refactor parser"),
		AITool: ptr("Claude"),
	}})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, "Refactor parser", created.Title)
	require.Equal(t, domain.StatusTodo, created.Status)
	require.Equal(t, 0, created.Position)
	require.EqualValues(t, 0, created.TimeSpent)
	require.Equal(t, 1, created.IterationCount)
	require.Nil(t, created.TimeStarted)
	require.Nil(t, created.CompletedAt)
	require.True(t, clock.now.Equal(created.CreatedAt))
	require.True(t, clock.now.Equal(created.UpdatedAt))

	listed, err := svc.ListActivities(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, created.ID, listed[0].ID)
	require.Equal(t, "Claude", *listed[0].AITool)
}

func TestCreateActivityWithoutTitleStoresEmptyTitle(t *testing.T) {
	svc, _, _ := newTestService(t)

	created, err := svc.CreateActivity(context.Background(), domain.CreateActivityInput{})
	require.NoError(t, err)
	require.Equal(t, "", created.Title)
}

func TestUpdateActivityReplacesFieldsAndResetsAbsentOnes(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateActivity(ctx, domain.CreateActivityInput{ActivityFields: domain.ActivityFields{
		Title:          ptr("Write tests"),
		Project:        ptr("chester"),
		Position:       ptr(4),
		IterationCount: ptr(3),
	}})
	require.NoError(t, err)

	updated, err := svc.UpdateActivity(ctx, domain.UpdateActivityInput{
		ID:             created.ID,
		ActivityFields: domain.ActivityFields{Title: ptr("Write more tests")},
	})
	require.NoError(t, err)
	require.NotNil(t, updated)
	require.Equal(t, "Write more tests", updated.Title)
	require.Nil(t, updated.Project)
	require.Equal(t, 0, updated.Position)
	require.Equal(t, 1, updated.IterationCount)
	require.Equal(t, domain.StatusTodo, updated.Status)
	require.True(t, created.CreatedAt.Equal(updated.CreatedAt))
}

func TestUpdateMissingActivityReturnsNil(t *testing.T) {
	svc, _, pub := newTestService(t)

	updated, err := svc.UpdateActivity(context.Background(), domain.UpdateActivityInput{
		ID:             404,
		ActivityFields: domain.ActivityFields{Title: ptr("ghost")},
	})
	require.NoError(t, err)
	require.Nil(t, updated)
	require.Empty(t, pub.actions())
}

func TestCompletedAtIsStableWhileDone(t *testing.T) {
	svc, clock, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateActivity(ctx, domain.CreateActivityInput{ActivityFields: domain.ActivityFields{Title: ptr("Ship")}})
	require.NoError(t, err)

	clock.Advance(time.Hour)
	doneAt := clock.now
	done, err := svc.UpdateActivity(ctx, domain.UpdateActivityInput{
		ID:             created.ID,
		ActivityFields: domain.ActivityFields{Title: ptr("Ship"), Status: ptr(domain.StatusDone)},
	})
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	require.True(t, doneAt.Equal(*done.CompletedAt))

	clock.Advance(time.Hour)
	again, err := svc.UpdateActivity(ctx, domain.UpdateActivityInput{
		ID:             created.ID,
		ActivityFields: domain.ActivityFields{Title: ptr("Ship it"), Status: ptr(domain.StatusDone)},
	})
	require.NoError(t, err)
	require.True(t, doneAt.Equal(*again.CompletedAt))

	clock.Advance(time.Hour)
	reopened, err := svc.UpdateActivity(ctx, domain.UpdateActivityInput{
		ID:             created.ID,
		ActivityFields: domain.ActivityFields{Title: ptr("Ship it"), Status: ptr(domain.StatusInProgress)},
	})
	require.NoError(t, err)
	require.NotNil(t, reopened.CompletedAt)
	require.True(t, doneAt.Equal(*reopened.CompletedAt))

	clock.Advance(time.Hour)
	redone, err := svc.UpdateActivity(ctx, domain.UpdateActivityInput{
		ID:             created.ID,
		ActivityFields: domain.ActivityFields{Title: ptr("Ship it"), Status: ptr(domain.StatusDone)},
	})
	require.NoError(t, err)
	require.True(t, clock.now.Equal(*redone.CompletedAt))
}

func TestTimerAccumulatesElapsedSeconds(t *testing.T) {
	svc, clock, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateActivity(ctx, domain.CreateActivityInput{ActivityFields: domain.ActivityFields{
		Title:     ptr("Debug"),
		TimeSpent: ptr(int64(100)),
	}})
	require.NoError(t, err)

	started, err := svc.StartTimer(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusInProgress, started.Status)
	require.NotNil(t, started.TimeStarted)
	require.True(t, started.TimerRunning())

	clock.Advance(90*time.Second + 700*time.Millisecond)
	stopped, err := svc.StopTimer(ctx, created.ID)
	require.NoError(t, err)
	require.Nil(t, stopped.TimeStarted)
	require.EqualValues(t, 190, stopped.TimeSpent)
	require.Equal(t, domain.StatusInProgress, stopped.Status)
}

func TestRestartingTimerDropsUnflushedTime(t *testing.T) {
	svc, clock, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateActivity(ctx, domain.CreateActivityInput{ActivityFields: domain.ActivityFields{Title: ptr("Restarted")}})
	require.NoError(t, err)

	_, err = svc.StartTimer(ctx, created.ID)
	require.NoError(t, err)
	clock.Advance(100 * time.Second)

	restarted, err := svc.StartTimer(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, clock.now.Equal(*restarted.TimeStarted))
	require.EqualValues(t, 0, restarted.TimeSpent)

	clock.Advance(10 * time.Second)
	stopped, err := svc.StopTimer(ctx, created.ID)
	require.NoError(t, err)
	require.EqualValues(t, 10, stopped.TimeSpent)
	require.Nil(t, stopped.TimeStarted)
}

func TestStopTimerWithoutStartIsNoop(t *testing.T) {
	svc, clock, pub := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateActivity(ctx, domain.CreateActivityInput{ActivityFields: domain.ActivityFields{Title: ptr("Idle")}})
	require.NoError(t, err)

	clock.Advance(time.Minute)
	stopped, err := svc.StopTimer(ctx, created.ID)
	require.NoError(t, err)
	require.EqualValues(t, 0, stopped.TimeSpent)
	require.Nil(t, stopped.TimeStarted)
	require.Equal(t, []events.Action{events.ActionCreated}, pub.actions())
}

func TestTimerOperationsOnMissingActivity(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	started, err := svc.StartTimer(ctx, 99)
	require.NoError(t, err)
	require.Nil(t, started)

	stopped, err := svc.StopTimer(ctx, 99)
	require.NoError(t, err)
	require.Nil(t, stopped)

	bumped, err := svc.IncrementIteration(ctx, 99)
	require.NoError(t, err)
	require.Nil(t, bumped)
}

func TestIncrementIteration(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateActivity(ctx, domain.CreateActivityInput{ActivityFields: domain.ActivityFields{Title: ptr("Prompt")}})
	require.NoError(t, err)

	bumped, err := svc.IncrementIteration(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, 2, bumped.IterationCount)

	bumped, err = svc.IncrementIteration(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, 3, bumped.IterationCount)
}

func TestDeleteActivityIsIdempotent(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateActivity(ctx, domain.CreateActivityInput{ActivityFields: domain.ActivityFields{Title: ptr("Temp")}})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteActivity(ctx, created.ID))
	require.NoError(t, svc.DeleteActivity(ctx, created.ID))

	got, err := svc.GetActivity(ctx, created.ID)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestDeleteMissingActivityPublishesNothing(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.DeleteActivity(ctx, 999))
	require.Empty(t, pub.actions())

	created, err := svc.CreateActivity(ctx, domain.CreateActivityInput{ActivityFields: domain.ActivityFields{Title: ptr("Temp")}})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteActivity(ctx, created.ID))
	require.NoError(t, svc.DeleteActivity(ctx, created.ID))
	require.Equal(t, []events.Action{events.ActionCreated, events.ActionDeleted}, pub.actions())
}

func TestImportCalendarEventsSkipsKnownEventIDs(t *testing.T) {
	svc, clock, pub := newTestService(t)
	ctx := context.Background()

	start := time.Date(2025, time.March, 8, 14, 0, 0, 0, time.UTC)
	batch := []domain.CalendarEvent{
		{ID: ptr("evt-1"), Title: "Pairing", AITool: ptr("Copilot"), Start: &start},
		{ID: ptr("evt-1"), Title: "Pairing (dup)"},
		{Title: "No id"},
	}

	imported, err := svc.ImportCalendarEvents(ctx, batch)
	require.NoError(t, err)
	require.Equal(t, 2, imported)

	imported, err = svc.ImportCalendarEvents(ctx, batch)
	require.NoError(t, err)
	require.Equal(t, 1, imported, "events without an id are always inserted")

	all, err := svc.ListActivities(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	var pairing *domain.Activity
	for i := range all {
		if all[i].CalendarEventID != nil && *all[i].CalendarEventID == "evt-1" {
			pairing = &all[i]
		}
	}
	require.NotNil(t, pairing)
	require.Equal(t, "Pairing", pairing.Title)
	require.Equal(t, domain.StatusTodo, pairing.Status)
	require.Equal(t, 1, pairing.IterationCount)
	require.True(t, start.Equal(pairing.CreatedAt))
	require.True(t, clock.now.Equal(pairing.UpdatedAt))

	require.Equal(t, []events.Action{events.ActionImported, events.ActionImported, events.ActionImported}, pub.actions())
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)}
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := domain.NewService(memory.NewRepository(), domain.WithClock(clock.Now), domain.WithPublisher(pub))

	created, err := svc.CreateActivity(context.Background(), domain.CreateActivityInput{ActivityFields: domain.ActivityFields{Title: ptr("Resilient")}})
	require.NoError(t, err)
	require.NotNil(t, created)
	require.Len(t, pub.events, 1)
	require.Equal(t, created.ID, pub.events[0].ActivityID)
	require.NotEmpty(t, pub.events[0].EventID)
}

func TestMutationsPublishChangeEvents(t *testing.T) {
	svc, clock, pub := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateActivity(ctx, domain.CreateActivityInput{ActivityFields: domain.ActivityFields{Title: ptr("Evented")}})
	require.NoError(t, err)
	_, err = svc.StartTimer(ctx, created.ID)
	require.NoError(t, err)
	clock.Advance(5 * time.Second)
	_, err = svc.StopTimer(ctx, created.ID)
	require.NoError(t, err)
	_, err = svc.IncrementIteration(ctx, created.ID)
	require.NoError(t, err)
	_, err = svc.UpdateActivity(ctx, domain.UpdateActivityInput{ID: created.ID, ActivityFields: domain.ActivityFields{Title: ptr("Evented")}})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteActivity(ctx, created.ID))

	require.Equal(t, []events.Action{
		events.ActionCreated,
		events.ActionTimerStarted,
		events.ActionTimerStopped,
		events.ActionIterationIncremented,
		events.ActionUpdated,
		events.ActionDeleted,
	}, pub.actions())
	require.EqualValues(t, 5, pub.events[2].TimeSpent)
}

func TestRecentActivitiesAreNewestFirstWithinWindow(t *testing.T) {
	svc, clock, _ := newTestService(t)
	ctx := context.Background()

	old := clock.now.AddDate(0, 0, -45)
	recent := clock.now.AddDate(0, 0, -2)
	_, err := svc.ImportCalendarEvents(ctx, []domain.CalendarEvent{
		{Title: "old", Start: &old},
		{Title: "recent", Start: &recent},
	})
	require.NoError(t, err)
	_, err = svc.CreateActivity(ctx, domain.CreateActivityInput{ActivityFields: domain.ActivityFields{Title: ptr("today")}})
	require.NoError(t, err)

	got, err := svc.RecentActivities(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "today", got[0].Title)
	require.Equal(t, "recent", got[1].Title)

	all, err := svc.ActivitiesNewestFirst(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "old", all[2].Title)
}
