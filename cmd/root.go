package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	recordsPath  string
	quiet        bool
	verbose      bool
	outputFormat string
	outputFile   string
	remoteSource bool
)

// exitFunc is swapped in tests to observe exit codes.
var exitFunc = os.Exit

var rootCmd = &cobra.Command{
	Use:   "supervisa",
	Short: "Supervisa - scoring, metrics and alerts for field supervision visits",
	Long: `Supervisa scores supervision visit forms against the checklist catalog,
aggregates fleet metrics across visits, and detects regressions worth a
supervisor's attention.

By default, supervisa loads every record under the records path and prints the
dashboard: metrics followed by alerts. Use the subcommands to focus on one view,
score a single form, or manage local drafts and remote sync.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runDashboard(true, true); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitFunc(1)
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		exitFunc(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&recordsPath, "records", "r", "", "Record file or directory (default from config, then '.')")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "console", "Output format for reports (console|json|markdown)")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "Output file for reports (requires --format)")
	rootCmd.PersistentFlags().BoolVar(&remoteSource, "remote", false, "Read finalized records from the DynamoDB table instead of files")

	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
}
