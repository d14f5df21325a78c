// Package repotest holds the behaviour every domain.ActivityRepository must share.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ElohimLOJ/chester-tracker/internal/domain"
)

// Factory returns an empty repository for one subtest.
type Factory func(t *testing.T) domain.ActivityRepository

var base = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func newActivity(title string) domain.Activity {
	return domain.Activity{
		Title:          title,
		Status:         domain.StatusTodo,
		IterationCount: 1,
		CreatedAt:      base,
		UpdatedAt:      base,
	}
}

// Run exercises a repository implementation against the shared contract.
func Run(t *testing.T, newRepo Factory) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newRepo(t)) })
	t.Run("ListOrdering", func(t *testing.T) { testListOrdering(t, newRepo(t)) })
	t.Run("UpdateOverwrites", func(t *testing.T) { testUpdateOverwrites(t, newRepo(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newRepo(t)) })
	t.Run("Timer", func(t *testing.T) { testTimer(t, newRepo(t)) })
	t.Run("TimerRestart", func(t *testing.T) { testTimerRestart(t, newRepo(t)) })
	t.Run("IncrementIteration", func(t *testing.T) { testIncrementIteration(t, newRepo(t)) })
	t.Run("MissingIDs", func(t *testing.T) { testMissingIDs(t, newRepo(t)) })
	t.Run("ImportCalendarEvents", func(t *testing.T) { testImport(t, newRepo(t)) })
}

func testCreateAndGet(t *testing.T, repo domain.ActivityRepository) {
	ctx := context.Background()

	activity := newActivity("Refactor")
	activity.Description = ptr("split the parser")
	activity.AITool = ptr("Claude")
	activity.Project = ptr("api")
	activity.Outcome = ptr(domain.OutcomeSuccess)
	activity.TimeSpent = 120

	created, err := repo.Create(ctx, activity)
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Refactor", got.Title)
	require.Equal(t, "split the parser", *got.Description)
	require.Equal(t, "Claude", *got.AITool)
	require.Equal(t, "api", *got.Project)
	require.Equal(t, domain.OutcomeSuccess, *got.Outcome)
	require.Equal(t, domain.StatusTodo, got.Status)
	require.EqualValues(t, 120, got.TimeSpent)
	require.Equal(t, 1, got.IterationCount)
	require.Nil(t, got.TimeStarted)
	require.Nil(t, got.OutcomeNotes)
	require.Nil(t, got.CompletedAt)
	require.True(t, base.Equal(got.CreatedAt))

	second, err := repo.Create(ctx, newActivity("Second"))
	require.NoError(t, err)
	require.Greater(t, second.ID, created.ID)
}

func testListOrdering(t *testing.T, repo domain.ActivityRepository) {
	ctx := context.Background()

	for _, tc := range []struct {
		title    string
		status   domain.Status
		position int
	}{
		{"todo-2", domain.StatusTodo, 2},
		{"done-0", domain.StatusDone, 0},
		{"todo-1", domain.StatusTodo, 1},
		{"wip-0", domain.StatusInProgress, 0},
		{"todo-1b", domain.StatusTodo, 1},
	} {
		a := newActivity(tc.title)
		a.Status = tc.status
		a.Position = tc.position
		_, err := repo.Create(ctx, a)
		require.NoError(t, err)
	}

	listed, err := repo.List(ctx)
	require.NoError(t, err)

	titles := make([]string, 0, len(listed))
	for _, a := range listed {
		titles = append(titles, a.Title)
	}
	require.Equal(t, []string{"done-0", "wip-0", "todo-1", "todo-1b", "todo-2"}, titles)
}

func testUpdateOverwrites(t *testing.T, repo domain.ActivityRepository) {
	ctx := context.Background()

	activity := newActivity("Original")
	activity.Project = ptr("api")
	activity.FailureReason = ptr("flaky")
	created, err := repo.Create(ctx, activity)
	require.NoError(t, err)

	started, err := repo.StartTimer(ctx, created.ID, base.Add(time.Minute))
	require.NoError(t, err)
	require.NotNil(t, started.TimeStarted)

	completedAt := base.Add(time.Hour)
	updated, err := repo.Update(ctx, domain.Activity{
		ID:             created.ID,
		Title:          "Renamed",
		Status:         domain.StatusDone,
		Position:       3,
		TimeSpent:      45,
		IterationCount: 2,
		UpdatedAt:      completedAt,
		CompletedAt:    &completedAt,
	})
	require.NoError(t, err)
	require.NotNil(t, updated)
	require.Equal(t, "Renamed", updated.Title)
	require.Equal(t, domain.StatusDone, updated.Status)
	require.Equal(t, 3, updated.Position)
	require.EqualValues(t, 45, updated.TimeSpent)
	require.Equal(t, 2, updated.IterationCount)
	require.Nil(t, updated.Project)
	require.Nil(t, updated.FailureReason)
	require.True(t, completedAt.Equal(*updated.CompletedAt))
	require.True(t, completedAt.Equal(updated.UpdatedAt))
	require.True(t, base.Equal(updated.CreatedAt), "created_at is not writable")
	require.NotNil(t, updated.TimeStarted, "time_started is owned by the timer")
}

func testDelete(t *testing.T, repo domain.ActivityRepository) {
	ctx := context.Background()

	created, err := repo.Create(ctx, newActivity("Temp"))
	require.NoError(t, err)

	deleted, err := repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	deleted, err = repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	require.False(t, deleted)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Nil(t, got)
}

func testTimer(t *testing.T, repo domain.ActivityRepository) {
	ctx := context.Background()

	activity := newActivity("Timed")
	activity.TimeSpent = 10
	created, err := repo.Create(ctx, activity)
	require.NoError(t, err)

	startedAt := base.Add(5 * time.Minute)
	started, err := repo.StartTimer(ctx, created.ID, startedAt)
	require.NoError(t, err)
	require.Equal(t, domain.StatusInProgress, started.Status)
	require.True(t, startedAt.Equal(*started.TimeStarted))
	require.True(t, base.Equal(started.UpdatedAt), "timer writes leave updated_at alone")

	stopped, err := repo.StopTimer(ctx, created.ID, 300)
	require.NoError(t, err)
	require.Nil(t, stopped.TimeStarted)
	require.EqualValues(t, 310, stopped.TimeSpent)
	require.Equal(t, domain.StatusInProgress, stopped.Status)
}

func testTimerRestart(t *testing.T, repo domain.ActivityRepository) {
	ctx := context.Background()

	created, err := repo.Create(ctx, newActivity("Restarted"))
	require.NoError(t, err)

	_, err = repo.StartTimer(ctx, created.ID, base.Add(time.Minute))
	require.NoError(t, err)

	restartedAt := base.Add(time.Minute + 100*time.Second)
	restarted, err := repo.StartTimer(ctx, created.ID, restartedAt)
	require.NoError(t, err)
	require.True(t, restartedAt.Equal(*restarted.TimeStarted))
	require.EqualValues(t, 0, restarted.TimeSpent)

	stopped, err := repo.StopTimer(ctx, created.ID, 10)
	require.NoError(t, err)
	require.EqualValues(t, 10, stopped.TimeSpent)
	require.Nil(t, stopped.TimeStarted)
}

func testIncrementIteration(t *testing.T, repo domain.ActivityRepository) {
	ctx := context.Background()

	created, err := repo.Create(ctx, newActivity("Iterate"))
	require.NoError(t, err)

	bumped, err := repo.IncrementIteration(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, 2, bumped.IterationCount)

	bumped, err = repo.IncrementIteration(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, 3, bumped.IterationCount)
}

func testMissingIDs(t *testing.T, repo domain.ActivityRepository) {
	ctx := context.Background()
	const missing = int64(987654)

	got, err := repo.Get(ctx, missing)
	require.NoError(t, err)
	require.Nil(t, got)

	updated, err := repo.Update(ctx, domain.Activity{ID: missing, Title: "ghost", Status: domain.StatusTodo, UpdatedAt: base})
	require.NoError(t, err)
	require.Nil(t, updated)

	started, err := repo.StartTimer(ctx, missing, base)
	require.NoError(t, err)
	require.Nil(t, started)

	stopped, err := repo.StopTimer(ctx, missing, 5)
	require.NoError(t, err)
	require.Nil(t, stopped)

	bumped, err := repo.IncrementIteration(ctx, missing)
	require.NoError(t, err)
	require.Nil(t, bumped)
}

func testImport(t *testing.T, repo domain.ActivityRepository) {
	ctx := context.Background()

	existing := newActivity("Existing")
	existing.CalendarEventID = ptr("evt-0")
	_, err := repo.Create(ctx, existing)
	require.NoError(t, err)

	batch := []domain.Activity{newActivity("Known"), newActivity("Fresh"), newActivity("Fresh dup"), newActivity("Anonymous")}
	batch[0].CalendarEventID = ptr("evt-0")
	batch[1].CalendarEventID = ptr("evt-1")
	batch[2].CalendarEventID = ptr("evt-1")

	imported, err := repo.ImportCalendarEvents(ctx, batch)
	require.NoError(t, err)
	require.Len(t, imported, 2)
	require.Equal(t, "Fresh", imported[0].Title)
	require.Equal(t, "Anonymous", imported[1].Title)
	require.NotZero(t, imported[0].ID)

	imported, err = repo.ImportCalendarEvents(ctx, batch)
	require.NoError(t, err)
	require.Len(t, imported, 1)
	require.Equal(t, "Anonymous", imported[0].Title)

	listed, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 4)
}
