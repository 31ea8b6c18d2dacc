// Package store provides SQLite-backed durable storage for battle logs.
//
// The store is an append-only log with:
//   - Battles: identity and seed of each recorded battle
//   - Commands: the ordered pile operations issued against a battle
//   - Events: every envelope the battle's engine published
//   - Audit log: subscriber failures captured by the event bus
//
// # Ordering
//
// Commands and events carry a per-battle seq assigned by the writer. All
// reads ORDER BY seq ASC, so a stored battle replays in the order it ran,
// independent of wall-clock timestamps.
//
// # Idempotency
//
// Writes use ON CONFLICT DO NOTHING. Writing the same battle, command or
// event twice is a no-op. Event ids are unique per battle, not globally, so
// battles with deterministic ids share a log. Writing a different event at
// a taken seq, or a taken id at a new seq, fails with ErrEventConflict.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
