package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show fleet metrics for finalized visits",
	Long: `Aggregates finalized visits into the dashboard metrics: totals, compliance
by contractor, space type, supervisor and date, and per-component points with
item breakdowns (item breakdowns are shown with --verbose).

Drafts are never counted. Filters narrow the visits considered:
  --from / --to       inclusive visit date range (YYYY-MM-DD)
  --space-type        fixed, community or all
  --contractor        contractor name or all`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runDashboard(true, false); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitFunc(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(metricsCmd)

	// Filters apply to the dashboard too, so they live on the root command.
	flags := rootCmd.PersistentFlags()
	flags.String("from", "", "Only visits on or after this date")
	flags.String("to", "", "Only visits on or before this date")
	flags.String("space-type", "", "Only visits of this space type")
	flags.String("contractor", "", "Only visits of this contractor")

	viper.BindPFlag("filter.dateFrom", flags.Lookup("from"))
	viper.BindPFlag("filter.dateTo", flags.Lookup("to"))
	viper.BindPFlag("filter.spaceType", flags.Lookup("space-type"))
	viper.BindPFlag("filter.contractor", flags.Lookup("contractor"))
}
