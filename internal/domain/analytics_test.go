package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func outcomePtr(o Outcome) *Outcome { return &o }

func TestSuccessRate(t *testing.T) {
	require.Nil(t, SuccessRate(0, 0))

	rate := SuccessRate(2, 3)
	require.NotNil(t, rate)
	require.InDelta(t, 66.7, *rate, 1e-9)

	rate = SuccessRate(1, 1)
	require.InDelta(t, 100.0, *rate, 1e-9)
}

func TestWeekKeyUsesMondayBasedWeeks(t *testing.T) {
	cases := []struct {
		at   time.Time
		want string
	}{
		{time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC), "2025-00"}, // before the first Monday
		{time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC), "2025-01"},
		{time.Date(2025, time.January, 12, 23, 0, 0, 0, time.UTC), "2025-01"},
		{time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), "2024-01"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, WeekKey(tc.at), tc.at.String())
	}
}

func TestSummarizeProjectsOrdersByCount(t *testing.T) {
	acts := []Activity{
		{Project: strPtr("beta")},
		{Project: strPtr("alpha")},
		{Project: strPtr("beta")},
		{Project: strPtr("")},
		{},
		{Project: strPtr("gamma")},
	}
	got := SummarizeProjects(acts)
	require.Equal(t, []ProjectCount{
		{Project: "beta", Count: 2},
		{Project: "alpha", Count: 1},
		{Project: "gamma", Count: 1},
	}, got)
}

func TestSummarizeTodayCountsCreatedOrUpdatedToday(t *testing.T) {
	now := time.Date(2025, time.March, 10, 18, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	acts := []Activity{
		{Status: StatusDone, TimeSpent: 60, CreatedAt: now.Add(-time.Hour), UpdatedAt: now.Add(-time.Hour)},
		{Status: StatusTodo, TimeSpent: 30, CreatedAt: yesterday, UpdatedAt: now.Add(-2 * time.Hour)},
		{Status: StatusDone, TimeSpent: 999, CreatedAt: yesterday, UpdatedAt: yesterday},
	}
	require.Equal(t, TodayStats{Total: 2, Completed: 1, TimeSpent: 90}, SummarizeToday(acts, now))
	require.Equal(t, TodayStats{}, SummarizeToday(nil, now))
}

func TestBuildDashboard(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	acts := []Activity{
		{AITool: strPtr("Claude"), Project: strPtr("api"), Status: StatusDone, TimeSpent: 600, IterationCount: 2,
			Outcome: outcomePtr(OutcomeSuccess), CreatedAt: now.AddDate(0, 0, -1)},
		{AITool: strPtr("Claude"), Project: strPtr("api"), Status: StatusTodo, TimeSpent: 0, IterationCount: 1,
			Outcome: outcomePtr(OutcomeFailed), FailureReason: strPtr("hallucination"), CreatedAt: now.AddDate(0, 0, -1)},
		{AITool: strPtr("Copilot"), Project: strPtr("web"), Status: StatusDone, TimeSpent: 300, IterationCount: 1,
			CreatedAt: now.AddDate(0, 0, -100)},
	}

	d := BuildDashboard(acts, 0, now)
	require.Equal(t, DefaultDashboardDays, d.WindowDays)
	require.True(t, now.AddDate(0, 0, -DefaultDashboardDays).Equal(d.WindowStart))

	require.Equal(t, Overview{Total: 3, Completed: 2, CompletionRate: 66.7, TotalTime: 900, AvgTime: 450}, d.Overview)
	require.Equal(t, []OutcomeCount{{Outcome: "failed", Count: 1}, {Outcome: "success", Count: 1}}, d.Outcomes)
	require.Equal(t, []FailureReasonCount{{FailureReason: "hallucination", Count: 1}}, d.FailureReasons)

	require.Len(t, d.ToolStats, 2)
	require.Equal(t, "Claude", d.ToolStats[0].AITool)
	require.Equal(t, 2, d.ToolStats[0].Total)
	require.InDelta(t, 300.0, d.ToolStats[0].AvgTime, 1e-9)
	require.InDelta(t, 1.5, d.ToolStats[0].AvgIterations, 1e-9)

	require.Equal(t, []ProjectStats{
		{Project: "api", Total: 2, Completed: 1, TotalTime: 600},
		{Project: "web", Total: 1, Completed: 1, TotalTime: 300},
	}, d.ProjectStats)

	require.Equal(t, []WeeklyTrend{{Week: WeekKey(now.AddDate(0, 0, -1)), Total: 2, Completed: 1, TotalTime: 600}}, d.WeeklyTrend)
	require.Equal(t, []DailyActivity{{Day: "2025-03-09", Count: 2}}, d.DailyActivity)

	require.Equal(t, 7, BuildDashboard(acts, 7, now).WindowDays)
}

func TestOverviewOfNothingIsZero(t *testing.T) {
	d := BuildDashboard(nil, 30, time.Now())
	require.Equal(t, Overview{}, d.Overview)
	require.Empty(t, d.ToolStats)
}

func TestCompareTools(t *testing.T) {
	acts := []Activity{
		{AITool: strPtr("Cursor"), TimeSpent: 100, IterationCount: 1},
		{AITool: strPtr("Claude"), TimeSpent: 200, IterationCount: 1, Outcome: outcomePtr(OutcomeSuccess)},
		{AITool: strPtr("Claude"), TimeSpent: 401, IterationCount: 2, Outcome: outcomePtr(OutcomeSuccess)},
		{AITool: strPtr("Claude"), TimeSpent: 50, IterationCount: 2, Outcome: outcomePtr(OutcomePartial)},
		{TimeSpent: 1000},
	}

	got := CompareTools(acts)
	require.Len(t, got, 2)

	claude := got[0]
	require.Equal(t, "Claude", claude.AITool)
	require.Equal(t, 3, claude.TotalActivities)
	require.Equal(t, 2, claude.Successes)
	require.Equal(t, 1, claude.Partials)
	require.NotNil(t, claude.SuccessRate)
	require.InDelta(t, 66.7, *claude.SuccessRate, 1e-9)
	require.EqualValues(t, 651, claude.TotalTime)
	require.InDelta(t, 217.0, claude.AvgTime, 1e-9)
	require.InDelta(t, 1.7, claude.AvgIterations, 1e-9)
	require.EqualValues(t, 50, claude.MinTime)
	require.EqualValues(t, 401, claude.MaxTime)

	cursor := got[1]
	require.Equal(t, "Cursor", cursor.AITool)
	require.Nil(t, cursor.SuccessRate)
}

func TestBuildReport(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

	empty := BuildReport(nil, now)
	require.Zero(t, empty.Overview.CompletionRate)
	require.Nil(t, empty.Overview.AvgCompletedTime)

	report := BuildReport([]Activity{
		{Status: StatusDone, TimeSpent: 120},
		{Status: StatusDone, TimeSpent: 60},
		{Status: StatusTodo, TimeSpent: 30},
	}, now)
	require.Equal(t, 3, report.Overview.Total)
	require.Equal(t, 2, report.Overview.Completed)
	require.InDelta(t, 66.7, report.Overview.CompletionRate, 1e-9)
	require.EqualValues(t, 210, report.Overview.TotalTime)
	require.NotNil(t, report.Overview.AvgCompletedTime)
	require.InDelta(t, 90.0, *report.Overview.AvgCompletedTime, 1e-9)
	require.True(t, now.Equal(report.GeneratedAt))
}

func TestCompletedAtRule(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	earlier := now.Add(-time.Hour)

	require.Nil(t, CompletedAt(nil, StatusTodo, now))
	require.True(t, now.Equal(*CompletedAt(nil, StatusDone, now)))
	require.True(t, now.Equal(*CompletedAt(&Activity{Status: StatusTodo}, StatusDone, now)))
	require.True(t, earlier.Equal(*CompletedAt(&Activity{Status: StatusDone, CompletedAt: &earlier}, StatusDone, now)))
	require.True(t, earlier.Equal(*CompletedAt(&Activity{Status: StatusDone, CompletedAt: &earlier}, StatusTodo, now)))
}

func TestElapsedSeconds(t *testing.T) {
	start := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	require.EqualValues(t, 59, ElapsedSeconds(start, start.Add(59999*time.Millisecond)))
	require.EqualValues(t, 0, ElapsedSeconds(start, start.Add(-time.Minute)))
}
