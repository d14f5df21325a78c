// Package export renders activities as CSV, a plain-text report and an ICS feed.
package export

import (
	"fmt"
	"time"
)

const timestampLayout = "2006-01-02 15:04:05"

// FormatDuration renders seconds as "Xh Ym", dropping the hour part when it is zero.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// Filename builds a date-stamped download name such as chester_tracker_20250101.csv.
func Filename(prefix, ext string, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", prefix, now.Format("20060102"), ext)
}

func text(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func timestamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(timestampLayout)
}
