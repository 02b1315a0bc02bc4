package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dotcommander/supervisa/internal/config"
	"github.com/dotcommander/supervisa/internal/record"
)

var strictValidate bool

var validateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Check record files against the record schema",
	Long: `Validates every record file under the path (default: the records path)
against the embedded CUE schema and lists the problems found.

Schema problems are advisory: metrics and alerts still read records that
have them. Use --strict to exit non-zero when any problem is found.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := ""
		if len(args) > 0 {
			path = args[0]
		}
		issues, err := runValidate(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitFunc(1)
			return
		}
		if strictValidate && issues > 0 {
			exitFunc(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVar(&strictValidate, "strict", false, "Exit non-zero when any schema problem is found")
}

func runValidate(path string) (int, error) {
	cfg, err := config.LoadConfig(recordsPath)
	if err != nil {
		return 0, fmt.Errorf("error loading configuration: %w", err)
	}
	if path == "" {
		path = cfg.Records
	}

	files, err := recordFiles(path, cfg.Patterns)
	if err != nil {
		return 0, err
	}

	validator, err := record.NewValidator()
	if err != nil {
		return 0, err
	}

	total := 0
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return total, fmt.Errorf("error reading %s: %w", f, err)
		}
		issues, err := validator.ValidateDocument(data, filepath.Ext(f))
		if err != nil {
			total++
			fmt.Printf("✗ %s: %v\n", f, err)
			continue
		}
		total += len(issues)
		if len(issues) == 0 {
			if cfg.Verbose {
				fmt.Printf("✓ %s\n", f)
			}
			continue
		}
		fmt.Printf("✗ %s\n", f)
		for _, is := range issues {
			fmt.Printf("    [%d] %s: %s\n", is.Index, is.Record, is.Message)
		}
	}

	if !cfg.Quiet {
		fmt.Printf("\n%d files checked, %d problems\n", len(files), total)
	}
	return total, nil
}

// recordFiles expands a file or directory into record files.
func recordFiles(path string, patterns []string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error reading records path: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	return record.Discover(path, patterns)
}
