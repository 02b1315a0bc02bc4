package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dotcommander/supervisa/internal/config"
	"github.com/dotcommander/supervisa/internal/output"
	"github.com/dotcommander/supervisa/internal/outputters"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Recompute alerts on a cron schedule and notify",
	Long: `Reloads the records on a standard five-field cron schedule (minute hour
day-of-month month day-of-week), recomputes the alerts, hides acknowledged
ones, and posts the rest to Slack. Without a Slack destination the alerts are
printed instead.

Examples: "0 7 * * 1-5" (weekdays 7am), "*/30 * * * *" (every 30 minutes).`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runWatch(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitFunc(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().String("schedule", "", "Cron schedule (default from config)")
	viper.BindPFlag("watch.schedule", watchCmd.Flags().Lookup("schedule"))
}

func runWatch() error {
	cfg, err := config.LoadConfig(recordsPath)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	if cfg.Watch.Schedule == "" {
		return fmt.Errorf("no watch schedule configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := cron.New(cron.WithLocation(cfg.Location()))
	id, err := c.AddFunc(cfg.Watch.Schedule, func() {
		if err := refresh(ctx, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Refresh failed: %v\n", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid watch schedule %q: %w", cfg.Watch.Schedule, err)
	}

	c.Start()
	if !cfg.Quiet {
		fmt.Fprintf(os.Stderr, "Watching %s (cron: %s, next run %s)\n",
			cfg.Records, cfg.Watch.Schedule, c.Entry(id).Next.Format("Mon Jan 2 15:04"))
	}

	<-ctx.Done()
	// Wait for a running refresh to finish
	<-c.Stop().Done()
	return nil
}

// refresh runs one scheduled alert pass.
func refresh(ctx context.Context, cfg *config.Config) error {
	loaded, source, err := loadRecords(ctx, cfg)
	if err != nil {
		return fmt.Errorf("error loading records: %w", err)
	}

	report := buildReport(cfg, loaded, source, false, true)
	applyBaseline(cfg, report)

	if n := notifier(cfg); n != nil {
		if err := n.Send(ctx, report.Alerts); err != nil {
			return err
		}
		if cfg.Verbose {
			fmt.Fprintf(os.Stderr, "Sent %d alerts (%d acknowledged hidden)\n", len(report.Alerts), report.Suppressed)
		}
		return nil
	}
	return printReport(cfg, report)
}

func printReport(cfg *config.Config, report *output.Report) error {
	if err := outputters.NewOutputter(cfg).Format(report, cfg.Format); err != nil {
		return fmt.Errorf("error formatting output: %w", err)
	}
	return nil
}
