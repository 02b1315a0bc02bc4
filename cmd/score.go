package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dotcommander/supervisa/internal/catalog"
	"github.com/dotcommander/supervisa/internal/config"
	"github.com/dotcommander/supervisa/internal/form"
	"github.com/dotcommander/supervisa/internal/output"
	"github.com/dotcommander/supervisa/internal/outputters"
	"github.com/dotcommander/supervisa/internal/record"
)

var scoreCmd = &cobra.Command{
	Use:   "score <file>",
	Short: "Score the visit forms in a record file",
	Long: `Rebuilds each form in the file from its item answers and prints its
scorecard: header fields, every item answer, section totals, and the form
total with compliance and completion percentages.

Stored totals are ignored; scores are always recomputed from the checklist.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runScore(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitFunc(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)
}

func runScore(path string) error {
	cfg, err := config.LoadConfig(recordsPath)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	loaded, err := record.LoadPath(path, cfg.Patterns)
	if err != nil {
		return fmt.Errorf("error loading records: %w", err)
	}
	if len(loaded.Records) == 0 {
		return fmt.Errorf("no records found in %s", path)
	}

	outputter := outputters.NewOutputter(cfg)
	for _, card := range scorecards(form.NewEngine(catalog.Default()), path, loaded.Records) {
		if err := outputter.FormatScorecard(card, cfg.Format); err != nil {
			return fmt.Errorf("error formatting output: %w", err)
		}
	}

	if cfg.Verbose {
		for _, s := range loaded.Skipped {
			fmt.Fprintf(os.Stderr, "Skipped %s[%d]: %s\n", s.File, s.Index, s.Reason)
		}
	}
	return nil
}

func scorecards(engine *form.Engine, source string, records []record.FormRecord) []*output.Scorecard {
	cards := make([]*output.Scorecard, 0, len(records))
	for _, r := range records {
		s := engine.Restore(r)
		cards = append(cards, &output.Scorecard{
			Source: source,
			Label:  r.Label(),
			Score:  s.Score,
			Rows:   engine.ReportRows(s),
		})
	}
	return cards
}
