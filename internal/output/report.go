package output

import (
	"io"
	"os"
	"time"

	"github.com/dotcommander/supervisa/internal/alerts"
	"github.com/dotcommander/supervisa/internal/form"
	"github.com/dotcommander/supervisa/internal/metrics"
	"github.com/dotcommander/supervisa/internal/record"
	"github.com/dotcommander/supervisa/internal/scoring"
)

// Report is the dashboard payload rendered by every formatter.
type Report struct {
	GeneratedAt time.Time
	Source      string
	Filter      metrics.Filter
	Metrics     metrics.Metrics
	Alerts      []alerts.Alert
	// Suppressed counts alerts hidden by the acknowledged baseline.
	Suppressed int
	Skipped    []record.Skipped
	// ShowMetrics and ShowAlerts select the dashboard sections.
	ShowMetrics bool
	ShowAlerts  bool
}

// Scorecard is the score of a single visit form.
type Scorecard struct {
	Source string
	Label  string
	Score  scoring.FormScore
	Rows   []form.ReportRow
}

// Formatter renders reports.
type Formatter interface {
	Format(r *Report) error
	FormatScorecard(s *Scorecard) error
}

// destination opens the output file, or returns stdout when none is set.
func destination(w io.Writer, outputFile string) (io.Writer, func() error, error) {
	if outputFile == "" {
		if w == nil {
			w = os.Stdout
		}
		return w, func() error { return nil }, nil
	}
	f, err := os.Create(outputFile)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
