package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

const (
	// DefaultDashboardDays is the lookback used when the caller does not supply one.
	DefaultDashboardDays = 30

	weeklyTrendDays   = 56
	dailyActivityDays = 30
)

// ProjectCount is one row of the projects summary.
type ProjectCount struct {
	Project string `json:"project"`
	Count   int    `json:"count"`
}

// TodayStats summarises activities touched on the current calendar day.
type TodayStats struct {
	Total     int   `json:"total"`
	Completed int   `json:"completed"`
	TimeSpent int64 `json:"time_spent"`
}

// Overview holds the dashboard headline numbers.
type Overview struct {
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	CompletionRate float64 `json:"completion_rate"`
	TotalTime      int64   `json:"total_time"`
	AvgTime        float64 `json:"avg_time"`
}

// OutcomeCount is one bucket of the outcome distribution.
type OutcomeCount struct {
	Outcome string `json:"outcome"`
	Count   int    `json:"count"`
}

// FailureReasonCount is one bucket of the failure-reason distribution.
type FailureReasonCount struct {
	FailureReason string `json:"failure_reason"`
	Count         int    `json:"count"`
}

// ToolStats is the per-tool block of the dashboard.
type ToolStats struct {
	AITool        string  `json:"ai_tool"`
	Total         int     `json:"total"`
	Successes     int     `json:"successes"`
	Partials      int     `json:"partials"`
	Failures      int     `json:"failures"`
	TotalTime     int64   `json:"total_time"`
	AvgTime       float64 `json:"avg_time"`
	AvgIterations float64 `json:"avg_iterations"`
}

// ProjectStats is the per-project block of the dashboard and report.
type ProjectStats struct {
	Project   string `json:"project"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	TotalTime int64  `json:"total_time"`
}

// WeeklyTrend buckets recent activities by year and week of year.
type WeeklyTrend struct {
	Week      string `json:"week"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	TotalTime int64  `json:"total_time"`
}

// DailyActivity counts activities created on one day.
type DailyActivity struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// Dashboard combines the grouped statistics shown on the dashboard view.
//
// WindowStart is derived from WindowDays but none of the sub-views are
// restricted by it; weekly and daily trends use their own fixed windows.
type Dashboard struct {
	WindowDays     int                  `json:"window_days"`
	WindowStart    time.Time            `json:"window_start"`
	Overview       Overview             `json:"overview"`
	Outcomes       []OutcomeCount       `json:"outcomes"`
	ToolStats      []ToolStats          `json:"tool_stats"`
	FailureReasons []FailureReasonCount `json:"failure_reasons"`
	ProjectStats   []ProjectStats       `json:"project_stats"`
	WeeklyTrend    []WeeklyTrend        `json:"weekly_trend"`
	DailyActivity  []DailyActivity      `json:"daily_activity"`
}

// ToolComparison compares outcomes and effort across AI tools.
type ToolComparison struct {
	AITool          string   `json:"ai_tool"`
	TotalActivities int      `json:"total_activities"`
	Successes       int      `json:"successes"`
	Partials        int      `json:"partials"`
	Failures        int      `json:"failures"`
	SuccessRate     *float64 `json:"success_rate"`
	TotalTime       int64    `json:"total_time"`
	AvgTime         float64  `json:"avg_time"`
	AvgIterations   float64  `json:"avg_iterations"`
	MinTime         int64    `json:"min_time"`
	MaxTime         int64    `json:"max_time"`
}

// ReportOverview is the headline block of the text report.
type ReportOverview struct {
	Total          int
	Completed      int
	CompletionRate float64
	TotalTime      int64
	// AvgCompletedTime is nil when nothing is done yet.
	AvgCompletedTime *float64
}

// Report is the data rendered by the text report export.
type Report struct {
	GeneratedAt time.Time
	Overview    ReportOverview
	Tools       []ToolComparison
	Projects    []ProjectStats
}

// SummarizeProjects counts activities per non-empty project, most used first.
func SummarizeProjects(activities []Activity) []ProjectCount {
	counts := make(map[string]int)
	for _, a := range activities {
		if p := stringValue(a.Project); p != "" {
			counts[p]++
		}
	}
	out := make([]ProjectCount, 0, len(counts))
	for project, count := range counts {
		out = append(out, ProjectCount{Project: project, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Project < out[j].Project
	})
	return out
}

// SummarizeToday reports activities created or updated on now's calendar day.
func SummarizeToday(activities []Activity, now time.Time) TodayStats {
	today := dayKey(now, now.Location())
	var stats TodayStats
	for _, a := range activities {
		if dayKey(a.CreatedAt, now.Location()) != today && dayKey(a.UpdatedAt, now.Location()) != today {
			continue
		}
		stats.Total++
		if a.Status == StatusDone {
			stats.Completed++
		}
		stats.TimeSpent += a.TimeSpent
	}
	return stats
}

// BuildDashboard computes the dashboard view as of now.
func BuildDashboard(activities []Activity, days int, now time.Time) Dashboard {
	if days <= 0 {
		days = DefaultDashboardDays
	}
	return Dashboard{
		WindowDays:     days,
		WindowStart:    now.AddDate(0, 0, -days),
		Overview:       overview(activities),
		Outcomes:       outcomeDistribution(activities),
		ToolStats:      toolStats(activities),
		FailureReasons: failureReasons(activities),
		ProjectStats:   projectStats(activities),
		WeeklyTrend:    weeklyTrend(activities, now),
		DailyActivity:  dailyActivity(activities, now),
	}
}

// CompareTools builds the tool comparison, busiest tool first.
func CompareTools(activities []Activity) []ToolComparison {
	out := compareTools(activities)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalActivities > out[j].TotalActivities
	})
	return out
}

// BuildReport gathers the figures for the text report.
func BuildReport(activities []Activity, now time.Time) Report {
	ov := overview(activities)
	report := Report{
		GeneratedAt: now,
		Overview: ReportOverview{
			Total:          ov.Total,
			Completed:      ov.Completed,
			CompletionRate: ov.CompletionRate,
			TotalTime:      ov.TotalTime,
		},
		Tools:    compareTools(activities),
		Projects: projectStats(activities),
	}
	if ov.Completed > 0 {
		var doneTime int64
		for _, a := range activities {
			if a.Status == StatusDone {
				doneTime += a.TimeSpent
			}
		}
		avg := float64(doneTime) / float64(ov.Completed)
		report.Overview.AvgCompletedTime = &avg
	}
	return report
}

// SuccessRate is successes over rated activities as a percentage with one
// decimal, or nil when nothing has been rated.
func SuccessRate(successes, rated int) *float64 {
	if rated == 0 {
		return nil
	}
	rate := round1(float64(successes) * 100 / float64(rated))
	return &rate
}

// WeekKey formats t as year and Monday-based week of year, e.g. "2025-07".
// Days before the first Monday of the year fall in week 00.
func WeekKey(t time.Time) string {
	yday := t.YearDay() - 1
	mondayBased := (int(t.Weekday()) + 6) % 7
	week := (yday + 7 - mondayBased) / 7
	return fmt.Sprintf("%04d-%02d", t.Year(), week)
}

func overview(activities []Activity) Overview {
	var ov Overview
	for _, a := range activities {
		ov.Total++
		if a.Status == StatusDone {
			ov.Completed++
		}
		ov.TotalTime += a.TimeSpent
	}
	if ov.Total > 0 {
		ov.CompletionRate = round1(float64(ov.Completed) / float64(ov.Total) * 100)
	}
	if ov.Completed > 0 {
		ov.AvgTime = round1(float64(ov.TotalTime) / float64(ov.Completed))
	}
	return ov
}

func outcomeDistribution(activities []Activity) []OutcomeCount {
	counts := make(map[string]int)
	for _, a := range activities {
		if a.Outcome != nil && *a.Outcome != "" {
			counts[string(*a.Outcome)]++
		}
	}
	out := make([]OutcomeCount, 0, len(counts))
	for _, key := range sortedKeys(counts) {
		out = append(out, OutcomeCount{Outcome: key, Count: counts[key]})
	}
	return out
}

func failureReasons(activities []Activity) []FailureReasonCount {
	counts := make(map[string]int)
	for _, a := range activities {
		if r := stringValue(a.FailureReason); r != "" {
			counts[r]++
		}
	}
	out := make([]FailureReasonCount, 0, len(counts))
	for _, key := range sortedKeys(counts) {
		out = append(out, FailureReasonCount{FailureReason: key, Count: counts[key]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

type toolAccumulator struct {
	total      int
	successes  int
	partials   int
	failures   int
	rated      int
	totalTime  int64
	iterations int
	minTime    int64
	maxTime    int64
}

func accumulateTools(activities []Activity) (map[string]*toolAccumulator, []string) {
	acc := make(map[string]*toolAccumulator)
	for _, a := range activities {
		tool := stringValue(a.AITool)
		if tool == "" {
			continue
		}
		t, ok := acc[tool]
		if !ok {
			t = &toolAccumulator{minTime: a.TimeSpent, maxTime: a.TimeSpent}
			acc[tool] = t
		}
		t.total++
		t.totalTime += a.TimeSpent
		t.iterations += a.IterationCount
		t.minTime = min(t.minTime, a.TimeSpent)
		t.maxTime = max(t.maxTime, a.TimeSpent)
		if a.Outcome == nil || *a.Outcome == "" {
			continue
		}
		t.rated++
		switch *a.Outcome {
		case OutcomeSuccess:
			t.successes++
		case OutcomePartial:
			t.partials++
		case OutcomeFailed:
			t.failures++
		}
	}
	keys := make([]string, 0, len(acc))
	for k := range acc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return acc, keys
}

func toolStats(activities []Activity) []ToolStats {
	acc, keys := accumulateTools(activities)
	out := make([]ToolStats, 0, len(keys))
	for _, tool := range keys {
		t := acc[tool]
		out = append(out, ToolStats{
			AITool:        tool,
			Total:         t.total,
			Successes:     t.successes,
			Partials:      t.partials,
			Failures:      t.failures,
			TotalTime:     t.totalTime,
			AvgTime:       float64(t.totalTime) / float64(t.total),
			AvgIterations: float64(t.iterations) / float64(t.total),
		})
	}
	return out
}

func compareTools(activities []Activity) []ToolComparison {
	acc, keys := accumulateTools(activities)
	out := make([]ToolComparison, 0, len(keys))
	for _, tool := range keys {
		t := acc[tool]
		out = append(out, ToolComparison{
			AITool:          tool,
			TotalActivities: t.total,
			Successes:       t.successes,
			Partials:        t.partials,
			Failures:        t.failures,
			SuccessRate:     SuccessRate(t.successes, t.rated),
			TotalTime:       t.totalTime,
			AvgTime:         math.Round(float64(t.totalTime) / float64(t.total)),
			AvgIterations:   round1(float64(t.iterations) / float64(t.total)),
			MinTime:         t.minTime,
			MaxTime:         t.maxTime,
		})
	}
	return out
}

func projectStats(activities []Activity) []ProjectStats {
	acc := make(map[string]*ProjectStats)
	for _, a := range activities {
		project := stringValue(a.Project)
		if project == "" {
			continue
		}
		p, ok := acc[project]
		if !ok {
			p = &ProjectStats{Project: project}
			acc[project] = p
		}
		p.Total++
		if a.Status == StatusDone {
			p.Completed++
		}
		p.TotalTime += a.TimeSpent
	}
	out := make([]ProjectStats, 0, len(acc))
	for _, p := range acc {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Project < out[j].Project })
	return out
}

func weeklyTrend(activities []Activity, now time.Time) []WeeklyTrend {
	since := startOfDay(now).AddDate(0, 0, -weeklyTrendDays)
	acc := make(map[string]*WeeklyTrend)
	for _, a := range activities {
		if a.CreatedAt.Before(since) {
			continue
		}
		key := WeekKey(a.CreatedAt.In(now.Location()))
		w, ok := acc[key]
		if !ok {
			w = &WeeklyTrend{Week: key}
			acc[key] = w
		}
		w.Total++
		if a.Status == StatusDone {
			w.Completed++
		}
		w.TotalTime += a.TimeSpent
	}
	out := make([]WeeklyTrend, 0, len(acc))
	for _, w := range acc {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Week < out[j].Week })
	return out
}

func dailyActivity(activities []Activity, now time.Time) []DailyActivity {
	since := startOfDay(now).AddDate(0, 0, -dailyActivityDays)
	counts := make(map[string]int)
	for _, a := range activities {
		if a.CreatedAt.Before(since) {
			continue
		}
		counts[dayKey(a.CreatedAt, now.Location())]++
	}
	out := make([]DailyActivity, 0, len(counts))
	for _, key := range sortedKeys(counts) {
		out = append(out, DailyActivity{Day: key, Count: counts[key]})
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.DateOnly)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
