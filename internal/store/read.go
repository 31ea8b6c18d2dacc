package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/skyoxu/rouge/internal/event"
)

// Command is one journaled pile operation.
type Command struct {
	Seq  int64           `json:"seq"`
	Op   string          `json:"op"`
	Args json.RawMessage `json:"args"`
}

// ReadBattle returns the battle with the given id.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadBattle(ctx context.Context, id string) (Battle, error) {
	var b Battle
	err := s.db.QueryRowContext(ctx, `
		SELECT id, run_id, hero_id, seed, hand_limit, scenario
		FROM battles
		WHERE id = ?
	`, id).Scan(&b.ID, &b.RunID, &b.HeroID, &b.Seed, &b.HandLimit, &b.Scenario)
	if err != nil {
		return Battle{}, err
	}
	return b, nil
}

// ListBattles returns every stored battle in insertion order.
// Returns an empty slice (not nil) if the store holds no battles.
func (s *Store) ListBattles(ctx context.Context) ([]Battle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, hero_id, seed, hand_limit, scenario
		FROM battles
		ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query battles: %w", err)
	}
	defer rows.Close()

	battles := []Battle{}
	for rows.Next() {
		var b Battle
		if err := rows.Scan(&b.ID, &b.RunID, &b.HeroID, &b.Seed, &b.HandLimit, &b.Scenario); err != nil {
			return nil, fmt.Errorf("scan battle: %w", err)
		}
		battles = append(battles, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate battles: %w", err)
	}
	return battles, nil
}

// ReadCommands returns a battle's command journal ordered by seq.
// Returns an empty slice (not nil) if no commands exist.
func (s *Store) ReadCommands(ctx context.Context, battleID string) ([]Command, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, op, args
		FROM commands
		WHERE battle_id = ?
		ORDER BY seq ASC
	`, battleID)
	if err != nil {
		return nil, fmt.Errorf("query commands: %w", err)
	}
	defer rows.Close()

	commands := []Command{}
	for rows.Next() {
		var (
			cmd  Command
			args string
		)
		if err := rows.Scan(&cmd.Seq, &cmd.Op, &args); err != nil {
			return nil, fmt.Errorf("scan command: %w", err)
		}
		cmd.Args = json.RawMessage(args)
		commands = append(commands, cmd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commands: %w", err)
	}
	return commands, nil
}

// ReadEvents returns a battle's envelopes ordered by seq.
// Returns an empty slice (not nil) if no events exist.
func (s *Store) ReadEvents(ctx context.Context, battleID string) ([]event.Envelope, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, source, data, time, spec_version, content_type
		FROM events
		WHERE battle_id = ?
		ORDER BY seq ASC
	`, battleID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	envelopes := []event.Envelope{}
	for rows.Next() {
		env, err := scanEnvelope(rows)
		if err != nil {
			return nil, err
		}
		envelopes = append(envelopes, env)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return envelopes, nil
}

// ReadAudit returns stored audit entries, oldest first. A limit of zero or
// less returns every entry.
func (s *Store) ReadAudit(ctx context.Context, limit int) ([]event.AuditEntry, error) {
	query := `
		SELECT ts, action, reason, target, caller, event_source, event_id, handler,
		       exception_type, exception_message, stack
		FROM audit_log
		ORDER BY seq ASC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	entries := []event.AuditEntry{}
	for rows.Next() {
		var (
			e  event.AuditEntry
			ts string
		)
		if err := rows.Scan(&ts, &e.Action, &e.Reason, &e.Target, &e.Caller, &e.EventSource,
			&e.EventID, &e.Handler, &e.ExceptionType, &e.ExceptionMessage, &e.Stack); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		if e.Timestamp, err = parseTime(ts); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit: %w", err)
	}
	return entries, nil
}

// scanEnvelope scans a single row into an Envelope.
func scanEnvelope(rows *sql.Rows) (event.Envelope, error) {
	var (
		env event.Envelope
		ts  string
	)
	if err := rows.Scan(&env.ID, &env.Type, &env.Source, &env.Data, &ts, &env.SpecVersion, &env.DataContentType); err != nil {
		return event.Envelope{}, fmt.Errorf("scan event: %w", err)
	}
	t, err := parseTime(ts)
	if err != nil {
		return event.Envelope{}, fmt.Errorf("scan event: %w", err)
	}
	env.Timestamp = t
	return env, nil
}
