package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skyoxu/rouge/internal/harness"
	"github.com/skyoxu/rouge/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	BattleID string // optional - specific battle only
}

// ReplayReport holds the overall replay result.
type ReplayReport struct {
	Battles          []*harness.ReplayResult `json:"battles"`
	TotalBattles     int                     `json:"total_battles"`
	AllDeterministic bool                    `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay stored battles and verify determinism",
		Long: `Re-execute each stored battle's command journal with its recorded seed
and compare the resulting event stream with the stored one.

Exit codes:
  0 - All battles reproduce
  1 - At least one battle diverged
  2 - Command error (database not found, unknown battle, etc.)

Examples:
  rouge replay --db ./battles.db
  rouge replay --db ./battles.db --battle battle-test
  rouge replay --db ./battles.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.BattleID, "battle", "", "replay specific battle only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var results []*harness.ReplayResult
	if opts.BattleID != "" {
		res, err := harness.Replay(ctx, st, opts.BattleID)
		if errors.Is(err, sql.ErrNoRows) {
			return NewExitError(ExitCommandError, fmt.Sprintf("battle %s not found", opts.BattleID))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to replay battle", err)
		}
		results = []*harness.ReplayResult{res}
	} else {
		results, err = harness.ReplayAll(ctx, st)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to replay battles", err)
		}
	}

	report := ReplayReport{
		Battles:          results,
		TotalBattles:     len(results),
		AllDeterministic: true,
	}
	for _, res := range results {
		formatter.VerboseLog("Replayed %s: %d commands, %d events", res.BattleID, res.Commands, res.Replayed)
		if !res.Match {
			report.AllDeterministic = false
		}
	}

	if err := formatter.Success(report, formatReplayReport(report)); err != nil {
		return err
	}
	if !report.AllDeterministic {
		return NewExitError(ExitFailure, "replay diverged from the stored event log")
	}
	return nil
}

func formatReplayReport(r ReplayReport) string {
	if r.TotalBattles == 0 {
		return "No battles found in database.\n"
	}
	var buf strings.Builder
	for _, res := range r.Battles {
		status := "OK  "
		if !res.Match {
			status = "DIFF"
		}
		fmt.Fprintf(&buf, "%s %s: %d commands, %d recorded, %d replayed\n",
			status, res.BattleID, res.Commands, res.Recorded, res.Replayed)
		for _, m := range res.Mismatches {
			fmt.Fprintf(&buf, "  - %s\n", m)
		}
	}
	if r.AllDeterministic {
		fmt.Fprintf(&buf, "All %d battle(s) deterministic.\n", r.TotalBattles)
	} else {
		fmt.Fprintln(&buf, "Determinism check FAILED.")
	}
	return buf.String()
}

// openExisting opens a database that must already exist. store.Open would
// silently create an empty one.
func openExisting(path string) (*store.Store, error) {
	if err := requireFile(path); err != nil {
		return nil, err
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}
