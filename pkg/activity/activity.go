// Package activity condenses exchange activity into table rows.
package activity

import (
	"strings"
	"time"

	"github.com/dukex/conduit/pkg/duration"
	"github.com/dukex/conduit/pkg/models"
)

const (
	StatusSuccess = "Success"
	StatusError   = "Error"

	// NoOutput is shown for steps that produced nothing.
	NoOutput = "No output"

	TimeLayout = "2006-01-02 15:04:05"
)

// Row is one step of an exchange.
type Row struct {
	Step     string `json:"step"`
	Time     string `json:"time"`
	Duration string `json:"duration"`
	Status   string `json:"status"`
	Output   string `json:"output"`
}

// Summary is an exchange as shown in activity listings.
type Summary struct {
	ID         string `json:"id"`
	Version    string `json:"version,omitempty"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	ErrorCount int    `json:"errorCount"`
	Status     string `json:"status"`
	Rows       []Row  `json:"rows"`
}

// Summarize builds the summary of a single exchange. Timestamps are rendered
// in loc, or UTC when loc is nil.
func Summarize(a *models.Activity, loc *time.Location) Summary {
	if loc == nil {
		loc = time.UTC
	}

	at := a.Time().In(loc)

	summary := Summary{
		ID:      a.ID,
		Version: a.Version,
		Date:    at.Format(time.DateOnly),
		Time:    at.Format(time.TimeOnly),
		Rows:    make([]Row, 0, len(a.Steps)),
	}

	for _, step := range a.Steps {
		if step == nil {
			continue
		}

		row := Row{
			Step:     firstNonEmpty(step.Name, step.ID),
			Time:     step.Time().In(loc).Format(TimeLayout),
			Duration: duration.String(float64(step.Duration), duration.Nanoseconds),
			Status:   StatusSuccess,
			Output:   firstNonEmpty(step.Output, strings.Join(step.Message, "\n"), NoOutput),
		}

		if step.Failure != "" {
			summary.ErrorCount++
			row.Status = StatusError
			row.Output = step.Failure
		}

		summary.Rows = append(summary.Rows, row)
	}

	summary.Status = StatusSuccess
	if summary.ErrorCount > 0 || a.Failed {
		summary.Status = StatusError
	}

	return summary
}

// SummarizeAll summarizes every exchange, keeping order.
func SummarizeAll(activities []*models.Activity, loc *time.Location) []Summary {
	summaries := make([]Summary, 0, len(activities))

	for _, a := range activities {
		if a == nil {
			continue
		}

		summaries = append(summaries, Summarize(a, loc))
	}

	return summaries
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
