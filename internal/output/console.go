package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dotcommander/supervisa/internal/alerts"
	"github.com/dotcommander/supervisa/internal/form"
	"github.com/dotcommander/supervisa/internal/metrics"
	"github.com/dotcommander/supervisa/internal/scoring"
)

// ConsoleFormatter formats output for console display
type ConsoleFormatter struct {
	quiet    bool
	verbose  bool
	colorize bool
	w        io.Writer
}

// NewConsoleFormatter creates a new ConsoleFormatter
func NewConsoleFormatter(quiet, verbose bool) *ConsoleFormatter {
	return &ConsoleFormatter{
		quiet:    quiet,
		verbose:  verbose,
		colorize: true,
		w:        os.Stdout,
	}
}

// WithWriter redirects output, mainly for tests.
func (f *ConsoleFormatter) WithWriter(w io.Writer) *ConsoleFormatter {
	f.w = w
	return f
}

var (
	redStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	yellowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	greenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	boldStyle   = lipgloss.NewStyle().Bold(true)
)

func (f *ConsoleFormatter) style(s lipgloss.Style) lipgloss.Style {
	if !f.colorize {
		return lipgloss.NewStyle()
	}
	return s
}

// Format prints the dashboard
func (f *ConsoleFormatter) Format(r *Report) error {
	if f.quiet {
		// Only the exit code matters in quiet mode
		return nil
	}

	if r.ShowMetrics {
		f.printMetrics(r.Metrics)
	}
	if r.ShowAlerts {
		f.printAlerts(r.Alerts, r.Suppressed)
	}
	if f.verbose && len(r.Skipped) > 0 {
		fmt.Fprintf(f.w, "\n%s\n", f.style(dimStyle).Render(fmt.Sprintf("%d records skipped", len(r.Skipped))))
		for _, s := range r.Skipped {
			fmt.Fprintf(f.w, "  %s\n", f.style(dimStyle).Render(fmt.Sprintf("%s[%d]: %s", s.File, s.Index, s.Reason)))
		}
	}
	return nil
}

func (f *ConsoleFormatter) printMetrics(m metrics.Metrics) {
	bold := f.style(boldStyle)

	fmt.Fprintf(f.w, "%s\n", bold.Render("Visits"))
	fmt.Fprintf(f.w, "  %d visits, %s average compliance, %d attendees (%d per visit)\n",
		m.TotalVisits, f.compliance(m.AverageCompliance), m.TotalAttendees, m.AverageAttendees)

	f.printDimension("Contractors", m.ByContractor)
	f.printDimension("Space types", m.BySpaceType)
	f.printDimension("Supervisors", m.BySupervisor)
	if f.verbose {
		f.printDimension("Dates", m.ByDate)
	}

	fmt.Fprintf(f.w, "\n%s\n", bold.Render("Components"))
	for _, c := range m.Components {
		fmt.Fprintf(f.w, "  %-16s %s  %d/%d pts over %d records\n",
			c.Component, f.compliance(c.Percentage), c.EarnedPoints, c.PossiblePoints, c.Records)
		if !f.verbose {
			continue
		}
		for _, it := range c.Items {
			fmt.Fprintf(f.w, "    %-40s %-9s avg %3d  n=%d zeros=%d\n",
				truncate(it.Label, 40), it.SpaceType, it.Average, it.Evaluations, it.Zeros)
		}
	}
}

func (f *ConsoleFormatter) printDimension(title string, stats []metrics.DimensionStat) {
	if len(stats) == 0 {
		return
	}
	fmt.Fprintf(f.w, "\n%s\n", f.style(boldStyle).Render(title))
	width := 0
	for _, s := range stats {
		if n := len([]rune(s.Name)); n > width {
			width = n
		}
	}
	for _, s := range stats {
		pad := strings.Repeat(" ", width-len([]rune(s.Name)))
		fmt.Fprintf(f.w, "  %s%s  %s  %d visits, %d attendees avg\n",
			s.Name, pad, f.compliance(s.AverageCompliance), s.Visits, s.AverageAttendees)
	}
}

func (f *ConsoleFormatter) compliance(pct int) string {
	text := fmt.Sprintf("%3d%%", pct)
	switch scoring.BandFromCompliance(pct) {
	case scoring.BandOK:
		return f.style(greenStyle).Render(text)
	case scoring.BandWarning:
		return f.style(yellowStyle).Render(text)
	default:
		return f.style(redStyle).Render(text)
	}
}

func (f *ConsoleFormatter) printAlerts(list []alerts.Alert, suppressed int) {
	fmt.Fprintln(f.w)
	if len(list) == 0 {
		fmt.Fprintf(f.w, "%s\n", f.style(greenStyle.Bold(true)).Render("✓ No alerts"))
		if suppressed > 0 {
			fmt.Fprintf(f.w, "%s\n", f.style(dimStyle).Render(fmt.Sprintf("%d acknowledged alerts hidden", suppressed)))
		}
		return
	}

	for _, a := range list {
		prefix := "⚠"
		st := f.style(yellowStyle)
		if a.Severity == alerts.SeverityCritical {
			prefix = "✘"
			st = f.style(redStyle)
		}
		fmt.Fprintf(f.w, "%s %s: %s\n", st.Render(prefix), st.Render(a.Subject), a.Message)
		fmt.Fprintf(f.w, "    %s\n", a.Detail)
		if f.verbose {
			fmt.Fprintf(f.w, "    %s\n", f.style(dimStyle).Render(fmt.Sprintf("%s · %s", a.Rule, a.Date)))
		}
	}

	critical, warning := alerts.Counts(list)
	fmt.Fprintf(f.w, "\n%d critical, %d warning", critical, warning)
	if suppressed > 0 {
		fmt.Fprintf(f.w, ", %d acknowledged", suppressed)
	}
	fmt.Fprintln(f.w)
}

// FormatScorecard prints a single form score as a table
func (f *ConsoleFormatter) FormatScorecard(s *Scorecard) error {
	if f.quiet {
		return nil
	}

	fmt.Fprintf(f.w, "%s\n", f.style(boldStyle).Render(s.Label))
	for _, row := range s.Rows {
		switch row.Kind {
		case form.RowHeader:
			if f.verbose && row.Value != "" {
				fmt.Fprintf(f.w, "  %s: %s\n", row.Label, row.Value)
			}
		case form.RowItem:
			if f.verbose {
				fmt.Fprintf(f.w, "    %-48s %4s\n", truncate(row.Label, 48), row.Value)
			}
		case form.RowSection:
			fmt.Fprintf(f.w, "  %-30s %s\n", row.Label, row.Value)
		}
	}
	fmt.Fprintf(f.w, "\n  %d/%d pts  compliance %s  complete %d%%\n",
		s.Score.Total, s.Score.MaxPossiblePoints, f.compliance(s.Score.PercentCompliance), s.Score.PercentComplete)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
