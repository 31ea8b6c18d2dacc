package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// pragmas are applied to every connection before the schema.
var pragmas = []struct{ name, value string }{
	{"journal_mode", "WAL"},
	{"synchronous", "NORMAL"},
	{"busy_timeout", "5000"},
	{"foreign_keys", "ON"},
}

// migrations[i] upgrades a database from user_version i to i+1.
var migrations = []func(*sql.Tx) error{
	addLookupIndexes,
	scopeEventIDsToBattle,
}

var currentSchemaVersion = len(migrations)

// Store is the SQLite battle log. One connection serves both reads and
// writes; WAL keeps readers in other processes unblocked.
type Store struct {
	db *sql.DB
}

// Open opens the database at path, creating it and its schema when needed.
// Opening an existing log is safe and only runs pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := initialize(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func initialize(db *sql.DB) error {
	if err := db.Ping(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	for _, p := range pragmas {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)); err != nil {
			return fmt.Errorf("pragma %s: %w", p.name, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return migrate(db)
}

// Close releases the connection. Closing a zero Store is a no-op.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// migrate runs each migration above the stored user_version in its own
// transaction, bumping the version as it goes.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	for v := version; v < currentSchemaVersion; v++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
		if err := migrations[v](tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
	}
	return nil
}

// addLookupIndexes backs the trace type filter and audit lookups by event.
func addLookupIndexes(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_events_type ON events(battle_id, type);
		CREATE INDEX IF NOT EXISTS idx_audit_event ON audit_log(event_id);
	`)
	return err
}

// scopeEventIDsToBattle rebuilds events keyed by (battle_id, seq). Event ids
// were globally unique before, which made a second battle's sequential ids
// collide with the first's.
func scopeEventIDsToBattle(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE events_v2 (
			battle_id    TEXT NOT NULL REFERENCES battles(id),
			seq          INTEGER NOT NULL,
			id           TEXT NOT NULL,
			type         TEXT NOT NULL,
			source       TEXT NOT NULL,
			data         TEXT NOT NULL,
			time         TEXT NOT NULL,
			spec_version TEXT NOT NULL,
			content_type TEXT NOT NULL,
			PRIMARY KEY (battle_id, seq),
			UNIQUE (battle_id, id)
		);
		INSERT INTO events_v2
			(battle_id, seq, id, type, source, data, time, spec_version, content_type)
		SELECT battle_id, seq, id, type, source, data, time, spec_version, content_type
		FROM events;
		DROP TABLE events;
		ALTER TABLE events_v2 RENAME TO events;
		CREATE INDEX IF NOT EXISTS idx_events_type ON events(battle_id, type);
	`)
	return err
}
