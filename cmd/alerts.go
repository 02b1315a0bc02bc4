package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dotcommander/supervisa/internal/alerts"
	"github.com/dotcommander/supervisa/internal/baseline"
	"github.com/dotcommander/supervisa/internal/config"
	"github.com/dotcommander/supervisa/internal/notify"
	"github.com/dotcommander/supervisa/internal/outputters"
)

var (
	createBaseline bool
	useBaseline    bool
	notifySlack    bool
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Detect regressions across finalized visits",
	Long: `Runs every alert rule over the finalized visits: contractor and component
drops week over week, month over month drops, site compliance drops, low
attendance, low compliance, zero-score items and visit frequency drops.

Alerts are deduplicated and sorted critical first, newest first.

Baseline:
  --baseline-create   acknowledge every current alert (writes the baseline file)
  --baseline          hide alerts already acknowledged in the baseline file

Use --notify to post the remaining alerts to Slack, and --fail-on to exit
non-zero when alerts at or above a severity remain.`,
	Run: func(cmd *cobra.Command, args []string) {
		failed, err := runAlerts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitFunc(1)
			return
		}
		if failed {
			exitFunc(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(alertsCmd)

	alertsCmd.Flags().BoolVar(&createBaseline, "baseline-create", false, "Write the current alerts to the baseline file")
	alertsCmd.Flags().BoolVar(&useBaseline, "baseline", false, "Hide alerts acknowledged in the baseline file")
	alertsCmd.Flags().String("baseline-path", "", "Baseline file (default from config)")
	alertsCmd.Flags().BoolVar(&notifySlack, "notify", false, "Post alerts to the configured Slack destination")
	alertsCmd.Flags().String("fail-on", "", "Exit non-zero on alerts at this level (none|warning|critical)")

	viper.BindPFlag("baseline", alertsCmd.Flags().Lookup("baseline-path"))
	viper.BindPFlag("failOn", alertsCmd.Flags().Lookup("fail-on"))
}

func runAlerts() (bool, error) {
	cfg, err := config.LoadConfig(recordsPath)
	if err != nil {
		return false, fmt.Errorf("error loading configuration: %w", err)
	}

	ctx := context.Background()
	loaded, source, err := loadRecords(ctx, cfg)
	if err != nil {
		return false, fmt.Errorf("error loading records: %w", err)
	}

	report := buildReport(cfg, loaded, source, false, true)

	// Create the baseline from the unfiltered list and accept the current state
	if createBaseline {
		b := baseline.CreateBaseline(report.Alerts, now())
		if err := b.SaveBaseline(cfg.Baseline); err != nil {
			return false, fmt.Errorf("failed to save baseline: %w", err)
		}
		if !cfg.Quiet {
			fmt.Printf("Baseline created: %s (%d alerts)\n", cfg.Baseline, len(b.Fingerprints))
		}
		return false, nil
	}

	if useBaseline {
		applyBaseline(cfg, report)
	}

	outputter := outputters.NewOutputter(cfg)
	if err := outputter.Format(report, cfg.Format); err != nil {
		return false, fmt.Errorf("error formatting output: %w", err)
	}

	if notifySlack {
		if err := sendAlerts(ctx, cfg, report.Alerts); err != nil {
			return false, err
		}
	}

	return shouldFail(cfg.FailOn, report.Alerts), nil
}

// notifier builds the Slack destination from config, or nil when none is set.
func notifier(cfg *config.Config) *notify.Notifier {
	switch {
	case cfg.Slack.WebhookURL != "":
		return notify.NewWebhook(cfg.Slack.WebhookURL, cfg.Slack.MaxAlerts)
	case cfg.Slack.Enabled():
		return notify.NewBot(cfg.Slack.Token, cfg.Slack.Channel, cfg.Slack.MaxAlerts)
	default:
		return nil
	}
}

func sendAlerts(ctx context.Context, cfg *config.Config, list []alerts.Alert) error {
	n := notifier(cfg)
	if n == nil {
		return fmt.Errorf("no Slack destination configured (set slack.webhookURL or slack.token and slack.channel)")
	}
	return n.Send(ctx, list)
}

// shouldFail reports whether the alerts reach the fail-on level.
func shouldFail(failOn string, list []alerts.Alert) bool {
	critical, warning := alerts.Counts(list)
	switch failOn {
	case "critical":
		return critical > 0
	case "warning":
		return critical+warning > 0
	default:
		return false
	}
}
