package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dotcommander/supervisa/internal/alerts"
	"github.com/dotcommander/supervisa/internal/baseline"
	"github.com/dotcommander/supervisa/internal/catalog"
	"github.com/dotcommander/supervisa/internal/config"
	"github.com/dotcommander/supervisa/internal/metrics"
	"github.com/dotcommander/supervisa/internal/output"
	"github.com/dotcommander/supervisa/internal/outputters"
	"github.com/dotcommander/supervisa/internal/record"
	"github.com/dotcommander/supervisa/internal/remote"
)

// now is the clock used for recency windows; tests pin it.
var now = time.Now

// loadRecords reads every record from the configured source. Files are the
// default; --remote scans the DynamoDB table.
func loadRecords(ctx context.Context, cfg *config.Config) (*record.LoadResult, string, error) {
	if remoteSource {
		client, err := remote.NewClient(ctx, cfg.Dynamo.Region, cfg.Dynamo.Endpoint)
		if err != nil {
			return nil, "", err
		}
		fetched, err := remote.NewStore(client, cfg.Dynamo.Table).Fetch(ctx)
		if err != nil {
			return nil, "", err
		}
		return &record.LoadResult{Records: fetched.Records, Skipped: fetched.Skipped}, "dynamodb:" + cfg.Dynamo.Table, nil
	}

	result, err := record.LoadPath(cfg.Records, cfg.Patterns)
	if err != nil {
		return nil, "", err
	}
	return result, cfg.Records, nil
}

// detectAlerts runs the detector over every finalized record. Alerts ignore
// the dashboard filter since their windows are anchored on the current date.
// Finalized records without a usable date come back as skipped entries.
func detectAlerts(cfg *config.Config, records []record.FormRecord) ([]alerts.Alert, []record.Skipped) {
	clock := func() time.Time { return now().In(cfg.Location()) }
	d := alerts.NewDetector(catalog.Default(),
		alerts.WithThresholds(cfg.Thresholds),
		alerts.WithClock(clock))
	res := d.Run(records)

	var skipped []record.Skipped
	for _, r := range res.Undated {
		skipped = append(skipped, record.Skipped{
			File:   r.Label(),
			Index:  -1,
			Reason: fmt.Sprintf("unparseable fechaVisita %q", r.VisitDate),
		})
	}
	return res.Alerts, skipped
}

// buildReport assembles the dashboard for the loaded records.
func buildReport(cfg *config.Config, loaded *record.LoadResult, source string, showMetrics, showAlerts bool) *output.Report {
	report := &output.Report{
		GeneratedAt: now(),
		Source:      source,
		Filter:      cfg.Filter,
		Skipped:     append([]record.Skipped(nil), loaded.Skipped...),
		ShowMetrics: showMetrics,
		ShowAlerts:  showAlerts,
	}
	if showMetrics {
		report.Metrics = metrics.Compute(loaded.Records, cfg.Filter, catalog.Default())
	}
	if showAlerts {
		var undated []record.Skipped
		report.Alerts, undated = detectAlerts(cfg, loaded.Records)
		report.Skipped = append(report.Skipped, undated...)
	}
	return report
}

// applyBaseline hides acknowledged alerts. A missing baseline file is not an
// error.
func applyBaseline(cfg *config.Config, report *output.Report) {
	if _, err := os.Stat(cfg.Baseline); err != nil {
		return
	}
	b, err := baseline.LoadBaseline(cfg.Baseline)
	if err != nil {
		if !cfg.Quiet {
			fmt.Fprintf(os.Stderr, "Warning: Failed to load baseline: %v\n", err)
		}
		return
	}
	report.Alerts, report.Suppressed = b.Filter(report.Alerts)
}

func runDashboard(showMetrics, showAlerts bool) error {
	cfg, err := config.LoadConfig(recordsPath)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	ctx := context.Background()
	loaded, source, err := loadRecords(ctx, cfg)
	if err != nil {
		return fmt.Errorf("error loading records: %w", err)
	}

	report := buildReport(cfg, loaded, source, showMetrics, showAlerts)
	if showAlerts {
		applyBaseline(cfg, report)
	}

	outputter := outputters.NewOutputter(cfg)
	if err := outputter.Format(report, cfg.Format); err != nil {
		return fmt.Errorf("error formatting output: %w", err)
	}
	return nil
}
