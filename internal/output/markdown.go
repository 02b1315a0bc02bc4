package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dotcommander/supervisa/internal/alerts"
	"github.com/dotcommander/supervisa/internal/form"
	"github.com/dotcommander/supervisa/internal/metrics"
)

// MarkdownFormatter formats output as Markdown
type MarkdownFormatter struct {
	quiet      bool
	verbose    bool
	outputFile string
	w          io.Writer
}

// NewMarkdownFormatter creates a new MarkdownFormatter
func NewMarkdownFormatter(quiet, verbose bool, outputFile string) *MarkdownFormatter {
	return &MarkdownFormatter{
		quiet:      quiet,
		verbose:    verbose,
		outputFile: outputFile,
	}
}

// WithWriter redirects stdout output, mainly for tests.
func (f *MarkdownFormatter) WithWriter(w io.Writer) *MarkdownFormatter {
	f.w = w
	return f
}

// Format formats the dashboard as Markdown
func (f *MarkdownFormatter) Format(r *Report) error {
	var builder strings.Builder

	generated := r.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}

	builder.WriteString("# Supervision Report\n\n")
	builder.WriteString(fmt.Sprintf("**Generated:** %s\n\n", generated.Format("2006-01-02 15:04:05")))
	if r.Source != "" {
		builder.WriteString(fmt.Sprintf("**Source:** %s\n\n", r.Source))
	}
	if filter := describeFilter(r.Filter); filter != "" {
		builder.WriteString(fmt.Sprintf("**Filter:** %s\n\n", filter))
	}
	builder.WriteString(strings.Repeat("-", 50) + "\n\n")

	if r.ShowMetrics {
		f.writeMetrics(&builder, r.Metrics)
	}
	if r.ShowAlerts {
		f.writeAlerts(&builder, r.Alerts, r.Suppressed)
	}
	if f.verbose && len(r.Skipped) > 0 {
		builder.WriteString("## Skipped Records\n\n")
		for _, s := range r.Skipped {
			builder.WriteString(fmt.Sprintf("- `%s[%d]` - %s\n", s.File, s.Index, s.Reason))
		}
		builder.WriteString("\n")
	}

	return f.write(builder.String())
}

func (f *MarkdownFormatter) writeMetrics(b *strings.Builder, m metrics.Metrics) {
	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("|--------|-------|\n")
	b.WriteString(fmt.Sprintf("| Visits | %d |\n", m.TotalVisits))
	b.WriteString(fmt.Sprintf("| Average compliance | %d%% |\n", m.AverageCompliance))
	b.WriteString(fmt.Sprintf("| Attendees | %d |\n", m.TotalAttendees))
	b.WriteString(fmt.Sprintf("| Attendees per visit | %d |\n", m.AverageAttendees))
	b.WriteString("\n")

	writeDimension(b, "Contractors", m.ByContractor)
	writeDimension(b, "Space Types", m.BySpaceType)
	writeDimension(b, "Supervisors", m.BySupervisor)
	if f.verbose {
		writeDimension(b, "Dates", m.ByDate)
	}

	b.WriteString("## Components\n\n")
	b.WriteString("| Component | Compliance | Points | Records | Average |\n")
	b.WriteString("|-----------|------------|--------|---------|---------|\n")
	for _, c := range m.Components {
		b.WriteString(fmt.Sprintf("| %s | %d%% | %d/%d | %d | %d%% |\n",
			c.Component, c.Percentage, c.EarnedPoints, c.PossiblePoints, c.Records, c.AveragePercentage))
	}
	b.WriteString("\n")

	if !f.verbose {
		return
	}
	for _, c := range m.Components {
		if len(c.Items) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("### %s items\n\n", c.Component))
		b.WriteString("| Item | Space type | Average | Evaluations | Zeros |\n")
		b.WriteString("|------|------------|---------|-------------|-------|\n")
		for _, it := range c.Items {
			b.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d |\n",
				escapeCell(it.Label), it.SpaceType, it.Average, it.Evaluations, it.Zeros))
		}
		b.WriteString("\n")
	}
}

func writeDimension(b *strings.Builder, title string, stats []metrics.DimensionStat) {
	if len(stats) == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("## %s\n\n", title))
	b.WriteString("| Name | Visits | Compliance | Attendees |\n")
	b.WriteString("|------|--------|------------|-----------|\n")
	for _, s := range stats {
		b.WriteString(fmt.Sprintf("| %s | %d | %d%% | %d |\n", escapeCell(s.Name), s.Visits, s.AverageCompliance, s.AverageAttendees))
	}
	b.WriteString("\n")
}

func (f *MarkdownFormatter) writeAlerts(b *strings.Builder, list []alerts.Alert, suppressed int) {
	b.WriteString("## Alerts\n\n")
	if len(list) == 0 {
		b.WriteString("✓ No alerts\n\n")
	}
	for _, a := range list {
		b.WriteString(fmt.Sprintf("- %s **%s** - %s: %s", getSeverityEmoji(a.Severity), a.Subject, a.Message, a.Detail))
		if a.Date != "" {
			b.WriteString(fmt.Sprintf(" (%s)", a.Date))
		}
		b.WriteString(fmt.Sprintf(" `[%s]`\n", a.Rule))
	}
	if len(list) > 0 {
		b.WriteString("\n")
	}
	if suppressed > 0 {
		b.WriteString(fmt.Sprintf("*%d acknowledged alerts hidden.*\n\n", suppressed))
	}
}

// FormatScorecard formats a single form score as Markdown
func (f *MarkdownFormatter) FormatScorecard(s *Scorecard) error {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("# %s\n\n", s.Label))

	section := ""
	for _, row := range s.Rows {
		switch row.Kind {
		case form.RowHeader:
			if row.Value != "" {
				b.WriteString(fmt.Sprintf("**%s:** %s\n\n", row.Label, row.Value))
			}
		case form.RowItem:
			if row.Section != section {
				section = row.Section
				b.WriteString(fmt.Sprintf("## %s\n\n", section))
				b.WriteString("| Item | Value |\n")
				b.WriteString("|------|-------|\n")
			}
			b.WriteString(fmt.Sprintf("| %s | %s |\n", escapeCell(row.Label), row.Value))
		case form.RowSection:
			b.WriteString(fmt.Sprintf("| **Total** | **%s** |\n\n", row.Value))
		case form.RowTotal:
			b.WriteString(fmt.Sprintf("**%s:** %s\n\n", row.Label, row.Value))
		}
	}

	return f.write(b.String())
}

func (f *MarkdownFormatter) write(content string) error {
	if f.outputFile != "" {
		if err := os.WriteFile(f.outputFile, []byte(content), 0644); err != nil {
			return fmt.Errorf("error writing to file %s: %w", f.outputFile, err)
		}
		return nil
	}
	w, _, _ := destination(f.w, "")
	_, err := io.WriteString(w, content)
	return err
}

// getSeverityEmoji returns an emoji for the severity
func getSeverityEmoji(s alerts.Severity) string {
	if s == alerts.SeverityCritical {
		return "❌"
	}
	return "⚠️"
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func describeFilter(fl metrics.Filter) string {
	var parts []string
	if fl.DateFrom != "" {
		parts = append(parts, "from "+fl.DateFrom)
	}
	if fl.DateTo != "" {
		parts = append(parts, "to "+fl.DateTo)
	}
	if fl.SpaceType != "" && fl.SpaceType != "all" {
		parts = append(parts, "space type "+fl.SpaceType)
	}
	if fl.Contractor != "" && fl.Contractor != "all" {
		parts = append(parts, "contractor "+fl.Contractor)
	}
	return strings.Join(parts, ", ")
}
