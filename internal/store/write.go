package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/skyoxu/rouge/internal/event"
)

// ErrEventConflict reports an envelope whose position or id is already taken
// by a different event of the same battle.
var ErrEventConflict = errors.New("event conflict")

// Battle identifies one recorded engine run.
type Battle struct {
	ID        string `json:"id"`
	RunID     string `json:"run_id"`
	HeroID    string `json:"hero_id"`
	Seed      int32  `json:"seed"`
	HandLimit int    `json:"hand_limit"`
	Scenario  string `json:"scenario,omitempty"`
}

// WriteBattle inserts a battle record into the store.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - the first write wins.
func (s *Store) WriteBattle(ctx context.Context, b Battle) error {
	if strings.TrimSpace(b.ID) == "" {
		return fmt.Errorf("write battle: empty battle id")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO battles (id, run_id, hero_id, seed, hand_limit, scenario)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		b.ID,
		b.RunID,
		b.HeroID,
		b.Seed,
		b.HandLimit,
		b.Scenario,
	)
	if err != nil {
		return fmt.Errorf("write battle: %w", err)
	}
	return nil
}

// WriteCommand appends a command to a battle's journal.
// Uses ON CONFLICT DO NOTHING for idempotency - a second command at the
// same (battle, seq) is silently ignored.
//
// Note: The battle must exist (foreign key constraint).
func (s *Store) WriteCommand(ctx context.Context, battleID string, cmd Command) error {
	argsJSON, err := marshalArgs(cmd.Args)
	if err != nil {
		return fmt.Errorf("write command: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO commands (battle_id, seq, op, args)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		battleID,
		cmd.Seq,
		cmd.Op,
		argsJSON,
	)
	if err != nil {
		return fmt.Errorf("write command: %w", err)
	}
	return nil
}

// WriteEvent stores an envelope published during a battle at position seq.
// Event ids are scoped to their battle. Rewriting the same id at the same
// position is a no-op; any other clash on (battle, seq) or (battle, id)
// fails with ErrEventConflict.
//
// The envelope is validated before it is written.
func (s *Store) WriteEvent(ctx context.Context, battleID string, seq int64, env event.Envelope) error {
	if err := env.Validate(); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO events
		(battle_id, seq, id, type, source, data, time, spec_version, content_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		battleID,
		seq,
		env.ID,
		env.Type,
		env.Source,
		env.Data,
		formatTime(env.Timestamp),
		env.SpecVersion,
		env.DataContentType,
	)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	if n == 1 {
		return nil
	}

	var existing string
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM events WHERE battle_id = ? AND seq = ?`, battleID, seq,
	).Scan(&existing)
	switch {
	case err == nil && existing == env.ID:
		return nil
	case err == nil:
		return fmt.Errorf("write event %s: %w: seq %d of battle %s holds %s", env.ID, ErrEventConflict, seq, battleID, existing)
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("write event %s: %w: id already stored for battle %s", env.ID, ErrEventConflict, battleID)
	default:
		return fmt.Errorf("write event: %w", err)
	}
}

// AppendAudit appends an audit entry. Audit rows are never deduplicated.
func (s *Store) AppendAudit(ctx context.Context, entry event.AuditEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log
		(ts, action, reason, target, caller, event_source, event_id, handler,
		 exception_type, exception_message, stack)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		formatTime(entry.Timestamp),
		entry.Action,
		entry.Reason,
		entry.Target,
		entry.Caller,
		entry.EventSource,
		entry.EventID,
		entry.Handler,
		entry.ExceptionType,
		entry.ExceptionMessage,
		entry.Stack,
	)
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}
