package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/skyoxu/rouge/internal/event"
)

// AuditOptions holds flags for the audit command.
type AuditOptions struct {
	*RootOptions
	Database string
	Limit    int
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Print stored subscriber failures",
		Long: `Print the audit entries recorded when an event bus subscriber failed.
Entries are only stored when audit.sink is store or both.

Examples:
  rouge audit --db ./battles.db
  rouge audit --db ./battles.db --limit 20 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of entries (0 = all)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runAudit(opts *AuditOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := st.ReadAudit(cmd.Context(), opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read audit log", err)
	}
	return formatter.Success(entries, formatAudit(entries))
}

func formatAudit(entries []event.AuditEntry) string {
	if len(entries) == 0 {
		return "No audit entries.\n"
	}
	var buf strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&buf, "%s %s handler=%s event=%s source=%s\n    %s\n",
			e.Timestamp.Format(time.RFC3339Nano), e.Action, e.Handler, e.EventID, e.EventSource, e.Reason)
	}
	return buf.String()
}
