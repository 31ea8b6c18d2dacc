package cli

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/skyoxu/rouge/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	BattleID string
	Type     string // optional - filter to one event type
}

// TraceEvent is one stored envelope in the trace timeline.
type TraceEvent struct {
	Seq  int             `json:"seq"`
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Time string          `json:"time"`
	Data json.RawMessage `json:"data"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Battle   store.Battle   `json:"battle"`
	Commands int            `json:"commands"`
	Timeline []TraceEvent   `json:"timeline"`
	Counts   map[string]int `json:"counts"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print the stored event stream of a battle",
		Long: `Print every envelope a battle published, in publish order.

Examples:
  rouge trace --db ./battles.db --battle battle-test
  rouge trace --db ./battles.db --battle battle-test --type core.card.drawn
  rouge trace --db ./battles.db --battle battle-test --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.BattleID, "battle", "", "battle id (required)")
	cmd.Flags().StringVar(&opts.Type, "type", "", "only show events of this type")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("battle")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	log, err := st.GetBattleLog(cmd.Context(), opts.BattleID)
	if errors.Is(err, sql.ErrNoRows) {
		return NewExitError(ExitCommandError, fmt.Sprintf("battle %s not found", opts.BattleID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read battle", err)
	}

	result := TraceResult{
		Battle:   log.Battle,
		Commands: len(log.Commands),
		Timeline: []TraceEvent{},
		Counts:   log.TypeCounts,
	}
	for i, env := range log.Events {
		if opts.Type != "" && env.Type != opts.Type {
			continue
		}
		result.Timeline = append(result.Timeline, TraceEvent{
			Seq:  i + 1,
			ID:   env.ID,
			Type: env.Type,
			Time: env.Timestamp.Format(time.RFC3339Nano),
			Data: json.RawMessage(env.Data),
		})
	}

	return formatter.Success(result, formatTrace(result))
}

func formatTrace(r TraceResult) string {
	var buf strings.Builder
	b := r.Battle
	fmt.Fprintf(&buf, "Battle %s (run %s, hero %s, seed %d, scenario %q)\n", b.ID, b.RunID, b.HeroID, b.Seed, b.Scenario)
	fmt.Fprintf(&buf, "%d commands, %d events shown\n\n", r.Commands, len(r.Timeline))
	for _, e := range r.Timeline {
		fmt.Fprintf(&buf, "[%d] %s %s %s\n    %s\n", e.Seq, e.Time, e.Type, e.ID, e.Data)
	}
	return buf.String()
}

// requireFile reports a command error when path does not exist.
func requireFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return WrapExitError(ExitCommandError, "database not found", err)
	}
	return nil
}
