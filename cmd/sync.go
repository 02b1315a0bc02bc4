package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dotcommander/supervisa/internal/config"
	"github.com/dotcommander/supervisa/internal/record"
	"github.com/dotcommander/supervisa/internal/remote"
	"github.com/dotcommander/supervisa/internal/store"
)

var pullFile string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push finalized drafts to DynamoDB and optionally pull all records",
	Long: `Pushes every finalized draft that has not been synced yet to the configured
DynamoDB table and marks it as synced. Drafts that are still being edited are
never pushed.

With --pull, every record in the table is also written to a local JSON file so
metrics and alerts can run offline.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := withStore(runSync); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitFunc(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().StringVar(&pullFile, "pull", "", "Write every remote record to this JSON file")
}

func runSync(ctx context.Context, cfg *config.Config, s *store.Store) error {
	client, err := remote.NewClient(ctx, cfg.Dynamo.Region, cfg.Dynamo.Endpoint)
	if err != nil {
		return err
	}
	rs := remote.NewStore(client, cfg.Dynamo.Table)

	pushed, err := pushFinalized(ctx, s, rs)
	if !cfg.Quiet {
		fmt.Printf("Pushed %d finalized drafts to %s\n", pushed, cfg.Dynamo.Table)
	}
	if err != nil {
		return err
	}

	if pullFile == "" {
		return nil
	}
	fetched, err := rs.Fetch(ctx)
	if err != nil {
		return err
	}
	if err := record.Save(pullFile, fetched.Records); err != nil {
		return err
	}
	if !cfg.Quiet {
		fmt.Printf("Pulled %d records into %s\n", len(fetched.Records), pullFile)
	}
	if cfg.Verbose {
		for _, sk := range fetched.Skipped {
			fmt.Fprintf(os.Stderr, "Skipped row %d: %s\n", sk.Index, sk.Reason)
		}
	}
	return nil
}

// pusher is the part of the remote store sync needs.
type pusher interface {
	Push(ctx context.Context, r record.FormRecord) error
}

// pushFinalized pushes unsynced finalized drafts in finalize order and stops
// at the first failure so the rest are retried on the next run.
func pushFinalized(ctx context.Context, s *store.Store, rs pusher) (int, error) {
	drafts, err := s.Unsynced(ctx)
	if err != nil {
		return 0, err
	}
	pushed := 0
	for _, d := range drafts {
		if err := rs.Push(ctx, d.Record); err != nil {
			return pushed, fmt.Errorf("failed to push %s: %w", d.ID, err)
		}
		if err := s.MarkSynced(ctx, d.ID); err != nil {
			return pushed, err
		}
		pushed++
	}
	return pushed, nil
}
