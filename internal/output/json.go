package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dotcommander/supervisa/internal/alerts"
	"github.com/dotcommander/supervisa/internal/form"
	"github.com/dotcommander/supervisa/internal/metrics"
	"github.com/dotcommander/supervisa/internal/record"
	"github.com/dotcommander/supervisa/internal/scoring"
)

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	quiet      bool
	indent     bool
	outputFile string
	w          io.Writer
}

// NewJSONFormatter creates a new JSONFormatter
func NewJSONFormatter(quiet bool, indent bool, outputFile string) *JSONFormatter {
	return &JSONFormatter{
		quiet:      quiet,
		indent:     indent,
		outputFile: outputFile,
	}
}

// WithWriter redirects stdout output, mainly for tests.
func (f *JSONFormatter) WithWriter(w io.Writer) *JSONFormatter {
	f.w = w
	return f
}

// JSONReport represents the complete JSON report structure
type JSONReport struct {
	Header     JSONHeader        `json:"header"`
	Filter     metrics.Filter    `json:"filter"`
	Metrics    *metrics.Metrics  `json:"metrics,omitempty"`
	Alerts     *[]alerts.Alert   `json:"alerts,omitempty"`
	Summary    *JSONAlertSummary `json:"alertSummary,omitempty"`
	Skipped    []record.Skipped  `json:"skipped,omitempty"`
	Suppressed int               `json:"suppressed,omitempty"`
}

// JSONHeader contains report metadata
type JSONHeader struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"source,omitempty"`
}

// JSONAlertSummary counts alerts by severity
type JSONAlertSummary struct {
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
}

// JSONScorecard is the JSON form of a single visit score
type JSONScorecard struct {
	Header JSONHeader        `json:"header"`
	Label  string            `json:"label"`
	Score  scoring.FormScore `json:"score"`
	Rows   []form.ReportRow  `json:"rows"`
}

// Format formats the dashboard as JSON
func (f *JSONFormatter) Format(r *Report) error {
	report := JSONReport{
		Header:     f.header(r.GeneratedAt, r.Source),
		Filter:     r.Filter,
		Skipped:    r.Skipped,
		Suppressed: r.Suppressed,
	}
	if r.ShowMetrics {
		m := r.Metrics
		report.Metrics = &m
	}
	if r.ShowAlerts {
		list := r.Alerts
		if list == nil {
			list = []alerts.Alert{}
		}
		report.Alerts = &list
		critical, warning := alerts.Counts(r.Alerts)
		report.Summary = &JSONAlertSummary{Critical: critical, Warning: warning}
	}
	return f.write(report)
}

// FormatScorecard formats a single form score as JSON
func (f *JSONFormatter) FormatScorecard(s *Scorecard) error {
	return f.write(JSONScorecard{
		Header: f.header(time.Now(), s.Source),
		Label:  s.Label,
		Score:  s.Score,
		Rows:   s.Rows,
	})
}

func (f *JSONFormatter) header(at time.Time, source string) JSONHeader {
	if at.IsZero() {
		at = time.Now()
	}
	return JSONHeader{
		Tool:      "supervisa",
		Version:   "1.0.0",
		Timestamp: at.Format(time.RFC3339),
		Source:    source,
	}
}

func (f *JSONFormatter) write(v any) error {
	var jsonBytes []byte
	var err error

	if f.indent {
		jsonBytes, err = json.MarshalIndent(v, "", "  ")
	} else {
		jsonBytes, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	w, done, err := destination(f.w, f.outputFile)
	if err != nil {
		return fmt.Errorf("error writing to file %s: %w", f.outputFile, err)
	}
	if _, err := fmt.Fprintln(w, string(jsonBytes)); err != nil {
		done()
		return fmt.Errorf("error writing JSON: %w", err)
	}
	return done()
}
