package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skyoxu/rouge/internal/config"
	"github.com/skyoxu/rouge/internal/event"
	"github.com/skyoxu/rouge/internal/harness"
	"github.com/skyoxu/rouge/internal/pile"
	"github.com/skyoxu/rouge/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Seed     int32
}

// RunSummary is the run command's report.
type RunSummary struct {
	Scenario  string         `json:"scenario"`
	Pass      bool           `json:"pass"`
	BattleID  string         `json:"battle_id"`
	Seed      int32          `json:"seed"`
	Commands  int            `json:"commands"`
	Events    int            `json:"events"`
	Piles     map[string]int `json:"piles"`
	Errors    []string       `json:"errors,omitempty"`
	Persisted bool           `json:"persisted"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Execute a battle scenario",
		Long: `Execute a YAML battle scenario against the card-pile engine and
report whether its assertions held.

With --db the battle, its command journal and its events are stored so
they can later be replayed and traced.

Exit codes:
  0 - Scenario passed
  1 - A step or assertion failed
  2 - Command error (scenario not found, invalid catalog, database error)

Examples:
  rouge run scenarios/starter.yaml
  rouge run scenarios/starter.yaml --db ./battles.db --seed 7
  rouge run scenarios/starter.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (defaults to the database config key)")
	cmd.Flags().Int32Var(&opts.Seed, "seed", 0, "override the scenario seed")

	return cmd
}

func runScenario(opts *RunOptions, path string, cmd *cobra.Command) error {
	cfg := opts.config()
	logger := opts.logger()
	formatter := opts.formatter(cmd)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	runOpts := []harness.Option{
		harness.WithLogger(logger),
		harness.WithHandLimit(cfg.HandLimit),
		harness.WithMaxConcurrency(cfg.Bus.MaxConcurrency),
	}
	switch {
	case cmd.Flags().Changed("seed"):
		runOpts = append(runOpts, harness.WithSeed(opts.Seed))
	case cfg.Seed != nil:
		runOpts = append(runOpts, harness.WithSeed(*cfg.Seed))
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.Database
	}
	var st *store.Store
	if dbPath != "" {
		st, err = store.Open(dbPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
		runOpts = append(runOpts, harness.WithStore(st))
	}
	if audit := auditSink(cfg.Audit, st); audit != nil {
		runOpts = append(runOpts, harness.WithAuditLog(audit))
	}

	formatter.VerboseLog("Running scenario %s from %s", scenario.Name, path)
	result, err := harness.Run(cmd.Context(), scenario, runOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}
	logger.Info("scenario finished",
		zap.String("scenario", result.Scenario),
		zap.String("battle_id", result.Battle.ID),
		zap.Bool("pass", result.Pass))

	summary := summarize(result, st != nil)
	if err := formatter.Success(summary, formatRunSummary(summary)); err != nil {
		return err
	}
	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", result.Scenario))
	}
	return nil
}

// auditSink builds the audit destination selected by cfg. The store sink is
// skipped when no database is open.
func auditSink(cfg config.AuditConfig, st *store.Store) event.AuditLog {
	var sinks []event.AuditLog
	if cfg.WantsFileAudit() {
		sinks = append(sinks, event.NewFileAuditLog(cfg.Root))
	}
	if cfg.WantsStoreAudit() && st != nil {
		sinks = append(sinks, store.NewAuditLog(st))
	}
	switch len(sinks) {
	case 0:
		return nil
	case 1:
		return sinks[0]
	default:
		return event.MultiAuditLog(sinks...)
	}
}

func summarize(result *harness.Result, persisted bool) RunSummary {
	return RunSummary{
		Scenario: result.Scenario,
		Pass:     result.Pass,
		BattleID: result.Battle.ID,
		Seed:     result.Battle.Seed,
		Commands: len(result.Commands),
		Events:   len(result.Events),
		Piles: map[string]int{
			pile.DrawPile.String():    len(result.Final.Draw),
			pile.Hand.String():        len(result.Final.Hand),
			pile.DiscardPile.String(): len(result.Final.Discard),
			pile.ExhaustPile.String(): len(result.Final.Exhaust),
		},
		Errors:    result.Errors,
		Persisted: persisted,
	}
}

func formatRunSummary(s RunSummary) string {
	var buf strings.Builder
	status := "PASS"
	if !s.Pass {
		status = "FAIL"
	}
	fmt.Fprintf(&buf, "%s %s (battle %s, seed %d)\n", status, s.Scenario, s.BattleID, s.Seed)
	fmt.Fprintf(&buf, "  %d commands, %d events\n", s.Commands, s.Events)
	fmt.Fprintf(&buf, "  draw=%d hand=%d discard=%d exhaust=%d\n",
		s.Piles["draw"], s.Piles["hand"], s.Piles["discard"], s.Piles["exhaust"])
	for _, e := range s.Errors {
		fmt.Fprintf(&buf, "  - %s\n", strings.ReplaceAll(strings.TrimRight(e, "\n"), "\n", "\n    "))
	}
	if s.Persisted {
		fmt.Fprintf(&buf, "  stored as battle %s\n", s.BattleID)
	}
	return buf.String()
}
