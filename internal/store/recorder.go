package store

import (
	"context"
	"sync/atomic"

	"github.com/skyoxu/rouge/internal/event"
)

// Recorder is a bus subscriber that persists every envelope of one battle.
// Event seq numbers start at 1 and follow delivery order.
type Recorder struct {
	store    *Store
	battleID string
	seq      atomic.Int64
}

// NewRecorder returns a Recorder writing into battleID. The battle row must
// already exist.
func NewRecorder(s *Store, battleID string) *Recorder {
	return &Recorder{store: s, battleID: battleID}
}

// Handle stores env. It satisfies event.Handler.
func (r *Recorder) Handle(ctx context.Context, env event.Envelope) error {
	return r.store.WriteEvent(ctx, r.battleID, r.seq.Add(1), env)
}

// Count returns the number of envelopes handled so far.
func (r *Recorder) Count() int64 {
	return r.seq.Load()
}

// AuditLog adapts the store to event.AuditLog.
type AuditLog struct {
	store *Store
}

// NewAuditLog returns an audit sink backed by the audit_log table.
func NewAuditLog(s *Store) *AuditLog {
	return &AuditLog{store: s}
}

// Append implements event.AuditLog.
func (a *AuditLog) Append(ctx context.Context, entry event.AuditEntry) error {
	return a.store.AppendAudit(ctx, entry)
}

var _ event.AuditLog = (*AuditLog)(nil)
