package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ElohimLOJ/chester-tracker/internal/domain"
)

const reportTitle = "CHESTER TRACKER - SUMMARY REPORT"

// WriteReport renders the summary report as plain text.
func WriteReport(w io.Writer, r domain.Report) error {
	bw := bufio.NewWriter(w)
	banner := strings.Repeat("=", 60)
	rule := strings.Repeat("-", 40)

	lines := []string{
		banner,
		reportTitle,
		"Generated: " + r.GeneratedAt.Format("2006-01-02 15:04"),
		banner,
		"",
		"OVERVIEW",
		rule,
		fmt.Sprintf("Total Activities: %d", r.Overview.Total),
		fmt.Sprintf("Completed: %d", r.Overview.Completed),
		fmt.Sprintf("Completion Rate: %s%%", percent(r.Overview.CompletionRate)),
		"Total Time Tracked: " + FormatDuration(r.Overview.TotalTime),
		"Avg Time per Task: " + formatAverage(r.Overview.AvgCompletedTime),
		"",
		"TOOL PERFORMANCE",
		rule,
	}

	for _, tool := range r.Tools {
		rate := 0.0
		if tool.SuccessRate != nil {
			rate = *tool.SuccessRate
		}
		lines = append(lines,
			fmt.Sprintf("  %s:", tool.AITool),
			fmt.Sprintf("    Activities: %d", tool.TotalActivities),
			fmt.Sprintf("    Success Rate: %s%%", percent(rate)),
			"    Time Spent: "+FormatDuration(tool.TotalTime),
			"",
		)
	}

	lines = append(lines, "PROJECT BREAKDOWN", rule)
	for _, project := range r.Projects {
		lines = append(lines,
			fmt.Sprintf("  %s:", project.Project),
			fmt.Sprintf("    Activities: %d", project.Total),
			fmt.Sprintf("    Completed: %d", project.Completed),
			"    Time Spent: "+FormatDuration(project.TotalTime),
			"",
		)
	}
	lines = append(lines, banner)

	if _, err := bw.WriteString(strings.Join(lines, "\n")); err != nil {
		return err
	}
	return bw.Flush()
}

// percent keeps one decimal place; zero prints bare.
func percent(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func formatAverage(avg *float64) string {
	if avg == nil {
		return FormatDuration(0)
	}
	return FormatDuration(int64(*avg))
}
