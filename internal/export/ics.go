package export

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ElohimLOJ/chester-tracker/internal/domain"
)

const (
	icsDateLayout       = "20060102T150405"
	defaultEventSeconds = 1800
	maxICSLineOctets    = 75
)

// WriteICS renders activities as an iCalendar feed, one VEVENT each. Events
// start at created_at and last time_spent seconds, or half an hour when no
// time was tracked.
func WriteICS(w io.Writer, activities []domain.Activity, now time.Time) error {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Chester Tracker//EN",
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
	}

	stamp := now.UTC().Format(icsDateLayout) + "Z"
	for _, a := range activities {
		duration := a.TimeSpent
		if duration <= 0 {
			duration = defaultEventSeconds
		}
		end := a.CreatedAt.Add(time.Duration(duration) * time.Second)
		tool := orDefault(a.AITool, "AI")

		var outcome *string
		if a.Outcome != nil {
			o := string(*a.Outcome)
			outcome = &o
		}

		lines = append(lines,
			"BEGIN:VEVENT",
			fmt.Sprintf("UID:%d@chester-tracker", a.ID),
			"DTSTAMP:"+stamp,
			"DTSTART:"+a.CreatedAt.Format(icsDateLayout),
			"DTEND:"+end.Format(icsDateLayout),
			"SUMMARY:"+escapeText(fmt.Sprintf("[%s] %s", tool, a.Title)),
			fmt.Sprintf(`DESCRIPTION:Project: %s\nOutcome: %s\nIterations: %d`,
				escapeText(orDefault(a.Project, "N/A")),
				escapeText(orDefault(outcome, "N/A")),
				a.IterationCount,
			),
			"CATEGORIES:"+escapeText(tool)+","+escapeText(orDefault(a.Project, "General")),
			"END:VEVENT",
		)
	}
	lines = append(lines, "END:VCALENDAR")

	for i, line := range lines {
		lines[i] = foldLine(line)
	}
	_, err := io.WriteString(w, strings.Join(lines, "\r\n"))
	return err
}

func orDefault(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	";", `\;`,
	",", `\,`,
	"\r\n", `\n`,
	"\n", `\n`,
)

// escapeText escapes a TEXT property value (RFC 5545 section 3.3.11).
func escapeText(s string) string {
	return textEscaper.Replace(s)
}

// foldLine splits content lines longer than 75 octets, never inside a UTF-8 sequence.
func foldLine(line string) string {
	if len(line) <= maxICSLineOctets {
		return line
	}
	var b strings.Builder
	limit := maxICSLineOctets
	for len(line) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		b.WriteString(line[:cut])
		b.WriteString("\r\n ")
		line = line[cut:]
		// continuation lines carry a leading space
		limit = maxICSLineOctets - 1
	}
	b.WriteString(line)
	return b.String()
}
