package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dotcommander/supervisa/internal/catalog"
	"github.com/dotcommander/supervisa/internal/config"
	"github.com/dotcommander/supervisa/internal/form"
	"github.com/dotcommander/supervisa/internal/outputters"
	"github.com/dotcommander/supervisa/internal/record"
	"github.com/dotcommander/supervisa/internal/scoring"
	"github.com/dotcommander/supervisa/internal/store"
)

var (
	pendingOnly   bool
	finalizeWrite string
)

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "Manage locally saved visit drafts",
	Long: `Drafts are autosaved visit forms kept in the local SQLite store until they
are finalized and synced. Drafts never count toward metrics or alerts.`,
}

var draftsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List drafts, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		if err := withStore(func(ctx context.Context, cfg *config.Config, s *store.Store) error {
			return listDrafts(ctx, s)
		}); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitFunc(1)
		}
	},
}

var draftsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print the scorecard of a draft",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := withStore(func(ctx context.Context, cfg *config.Config, s *store.Store) error {
			return showDraft(ctx, cfg, s, args[0])
		}); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitFunc(1)
		}
	},
}

var draftsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Save the records in a file as drafts",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := withStore(func(ctx context.Context, cfg *config.Config, s *store.Store) error {
			return importDrafts(ctx, cfg, s, args[0])
		}); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitFunc(1)
		}
	},
}

var draftsSetCmd = &cobra.Command{
	Use:   "set <id> <key=value>...",
	Short: "Answer items or change the selection of a draft",
	Long: `Applies edits to a draft and autosaves it once the edits settle.

Keys are checklist item ids (values 0, 50, 100, N/A, or empty to clear), or
one of: spaceType, contractor, site, date, time, attendees.
Changing spaceType or contractor clears every answer.`,
	Args: cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := withStore(func(ctx context.Context, cfg *config.Config, s *store.Store) error {
			return setDraft(ctx, s, args[0], args[1:])
		}); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitFunc(1)
		}
	},
}

var draftsFinalizeCmd = &cobra.Command{
	Use:   "finalize <id>",
	Short: "Finalize a draft so it can be synced",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := withStore(func(ctx context.Context, cfg *config.Config, s *store.Store) error {
			return finalizeDraft(ctx, cfg, s, args[0])
		}); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitFunc(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(draftsCmd)
	draftsCmd.AddCommand(draftsListCmd, draftsShowCmd, draftsImportCmd, draftsSetCmd, draftsFinalizeCmd)

	draftsCmd.PersistentFlags().String("store", "", "Draft database path (default from config)")
	viper.BindPFlag("store.path", draftsCmd.PersistentFlags().Lookup("store"))

	draftsListCmd.Flags().BoolVar(&pendingOnly, "pending", false, "Only drafts not yet finalized")
	draftsFinalizeCmd.Flags().StringVar(&finalizeWrite, "write", "", "Also write the finalized record into this directory")
}

// withStore loads config, opens the draft store and runs fn.
func withStore(fn func(ctx context.Context, cfg *config.Config, s *store.Store) error) error {
	cfg, err := config.LoadConfig(recordsPath)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
		return fmt.Errorf("error creating store directory: %w", err)
	}
	s, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(context.Background(), cfg, s)
}

func listDrafts(ctx context.Context, s *store.Store) error {
	drafts, err := s.ListDrafts(ctx, pendingOnly)
	if err != nil {
		return err
	}
	if len(drafts) == 0 {
		fmt.Println("No drafts")
		return nil
	}

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	for _, d := range drafts {
		state := "draft"
		switch {
		case d.SyncedAt != nil:
			state = "synced"
		case d.FinalizedAt != nil:
			state = "finalized"
		}
		fmt.Printf("%-36s  %-9s  %s %s\n", d.ID, state, d.Record.Label(),
			dim.Render(d.UpdatedAt.Local().Format("2006-01-02 15:04")))
	}
	return nil
}

func showDraft(ctx context.Context, cfg *config.Config, s *store.Store, id string) error {
	d, err := s.LoadDraft(ctx, id)
	if err != nil {
		return err
	}
	cards := scorecards(form.NewEngine(catalog.Default()), "draft:"+id, []record.FormRecord{d.Record})
	return outputters.NewOutputter(cfg).FormatScorecard(cards[0], cfg.Format)
}

func importDrafts(ctx context.Context, cfg *config.Config, s *store.Store, path string) error {
	loaded, err := record.LoadPath(path, cfg.Patterns)
	if err != nil {
		return fmt.Errorf("error loading records: %w", err)
	}
	for _, r := range loaded.Records {
		id, err := s.SaveDraft(ctx, r)
		if err != nil {
			return err
		}
		if !cfg.Quiet {
			fmt.Printf("Saved draft %s: %s\n", id, r.Label())
		}
	}
	for _, sk := range loaded.Skipped {
		fmt.Fprintf(os.Stderr, "Skipped %s[%d]: %s\n", sk.File, sk.Index, sk.Reason)
	}
	return nil
}

func setDraft(ctx context.Context, s *store.Store, id string, assignments []string) error {
	d, err := s.LoadDraft(ctx, id)
	if err != nil {
		return err
	}
	if d.FinalizedAt != nil {
		return fmt.Errorf("draft %s is finalized and can no longer be edited", id)
	}

	events, err := parseEdits(d.Record, assignments)
	if err != nil {
		return err
	}

	engine := form.NewEngine(catalog.Default())
	var saveErr error
	session := form.NewSession(engine, engine.Restore(d.Record), form.WithSubscriber(func(st form.State) {
		draft := engine.Draft(st, id, now())
		draft.Extra = d.Record.Extra
		_, saveErr = s.SaveDraft(ctx, draft)
	}))
	defer session.Close()

	for _, ev := range events {
		session.Dispatch(ev)
	}
	st := session.Flush()
	if saveErr != nil {
		return saveErr
	}

	fmt.Printf("%s: %d/%d pts, compliance %d%%, complete %d%%\n",
		id, st.Score.Total, st.Score.MaxPossiblePoints, st.Score.PercentCompliance, st.Score.PercentComplete)
	return nil
}

// parseEdits turns key=value arguments into form events, header edits first.
func parseEdits(r record.FormRecord, assignments []string) ([]form.Event, error) {
	header := form.Header{
		VisitDate:   r.VisitDate,
		VisitTime:   r.VisitTime,
		SiteName:    r.SiteName,
		Attendees:   r.Attendees.Int(),
		Supervisors: append([]string(nil), r.Supervisors...),
		Location:    r.Location,
	}
	headerChanged := false

	var selection, items []form.Event
	for _, a := range assignments {
		key, value, ok := strings.Cut(a, "=")
		if !ok {
			return nil, fmt.Errorf("invalid edit %q: expected key=value", a)
		}
		switch key {
		case "spaceType":
			st, ok := catalog.ParseSpaceType(value)
			if !ok {
				return nil, fmt.Errorf("invalid space type: %s", value)
			}
			selection = append(selection, form.SetSpaceType{SpaceType: st})
		case "contractor":
			selection = append(selection, form.SetContractor{Name: value})
		case "site":
			header.SiteName, headerChanged = value, true
		case "date":
			if _, ok := record.ParseDate(value); !ok {
				return nil, fmt.Errorf("invalid date: %s", value)
			}
			header.VisitDate, headerChanged = value, true
		case "time":
			header.VisitTime, headerChanged = value, true
		case "attendees":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid attendees: %s", value)
			}
			header.Attendees, headerChanged = n, true
		default:
			if _, _, ok := catalog.Default().Lookup(key); !ok {
				return nil, fmt.Errorf("unknown checklist item: %s", key)
			}
			items = append(items, form.SetItem{ItemID: key, Value: scoring.ParseItemValue(value)})
		}
	}

	events := selection
	if headerChanged {
		events = append(events, form.SetHeader{Header: header})
	}
	return append(events, items...), nil
}

func finalizeDraft(ctx context.Context, cfg *config.Config, s *store.Store, id string) error {
	d, err := s.LoadDraft(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no draft with id %s", id)
		}
		return err
	}
	if d.FinalizedAt != nil {
		return fmt.Errorf("draft %s was already finalized", id)
	}

	engine := form.NewEngine(catalog.Default())
	final := engine.Finalize(engine.Restore(d.Record), id, now())
	final.Extra = d.Record.Extra
	if err := s.MarkFinalized(ctx, final); err != nil {
		return err
	}

	if finalizeWrite != "" {
		path := filepath.Join(finalizeWrite, id+".json")
		if err := record.Save(path, []record.FormRecord{final}); err != nil {
			return err
		}
	}

	if !cfg.Quiet {
		fmt.Printf("Finalized %s: %s, compliance %d%%\n", id, final.Label(), final.PercentCompliance.Int())
	}
	return nil
}
