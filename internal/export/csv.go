package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/ElohimLOJ/chester-tracker/internal/domain"
)

var csvHeader = []string{
	"ID", "Title", "Description", "AI Tool", "Project", "Status",
	"Time Spent (seconds)", "Time Spent (formatted)", "Outcome",
	"Outcome Notes", "Failure Reason", "Iterations", "Created", "Completed",
}

// WriteCSV writes one row per activity in the order given.
func WriteCSV(w io.Writer, activities []domain.Activity) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, a := range activities {
		var outcome string
		if a.Outcome != nil {
			outcome = string(*a.Outcome)
		}
		created := a.CreatedAt
		row := []string{
			strconv.FormatInt(a.ID, 10),
			a.Title,
			text(a.Description),
			text(a.AITool),
			text(a.Project),
			string(a.Status),
			strconv.FormatInt(a.TimeSpent, 10),
			FormatDuration(a.TimeSpent),
			outcome,
			text(a.OutcomeNotes),
			text(a.FailureReason),
			strconv.Itoa(a.IterationCount),
			timestamp(&created),
			timestamp(a.CompletedAt),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
