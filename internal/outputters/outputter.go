package outputters

import (
	"fmt"
	"time"

	"github.com/dotcommander/supervisa/internal/config"
	"github.com/dotcommander/supervisa/internal/output"
)

// FormatterFactory creates a formatter for a format name
type FormatterFactory interface {
	CreateFormatter(format string) (output.Formatter, error)
}

// DefaultFormatterFactory builds the console, json and markdown formatters
type DefaultFormatterFactory struct {
	config *config.Config
}

// CreateFormatter returns the formatter for the given format
func (f *DefaultFormatterFactory) CreateFormatter(format string) (output.Formatter, error) {
	switch format {
	case "console":
		return output.NewConsoleFormatter(f.config.Quiet, f.config.Verbose), nil
	case "json":
		return output.NewJSONFormatter(f.config.Quiet, true, f.config.Output), nil
	case "markdown":
		return output.NewMarkdownFormatter(f.config.Quiet, f.config.Verbose, f.config.Output), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// Outputter handles output formatting
type Outputter struct {
	config  *config.Config
	factory FormatterFactory
}

// NewOutputter creates a new Outputter
func NewOutputter(config *config.Config) *Outputter {
	return NewOutputterWithFactory(config, &DefaultFormatterFactory{config: config})
}

// NewOutputterWithFactory creates an Outputter with a custom formatter factory
func NewOutputterWithFactory(config *config.Config, factory FormatterFactory) *Outputter {
	return &Outputter{
		config:  config,
		factory: factory,
	}
}

// Format renders the dashboard report using the given format
func (o *Outputter) Format(report *output.Report, format string) error {
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = time.Now()
	}
	if report.Source == "" {
		report.Source = o.config.Records
	}

	formatter, err := o.factory.CreateFormatter(format)
	if err != nil {
		return err
	}
	return formatter.Format(report)
}

// FormatScorecard renders a single visit score using the given format
func (o *Outputter) FormatScorecard(card *output.Scorecard, format string) error {
	formatter, err := o.factory.CreateFormatter(format)
	if err != nil {
		return err
	}
	return formatter.FormatScorecard(card)
}
