// Package ident generates the opaque identifiers used for card instances,
// runs, battles and event envelopes.
//
// Production code uses UUIDv7Generator. Tests, scenarios and replays use
// SequentialGenerator or FixedGenerator so that identifiers, and therefore
// event payloads, are reproducible.
package ident

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Generator produces unique identifiers.
type Generator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 identifiers in compact
// (unhyphenated) form.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 without hyphens, 32 hex characters.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return strings.ReplaceAll(uuid.Must(uuid.NewV7()).String(), "-", "")
}

// SequentialGenerator returns prefix-1, prefix-2, ... in order.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialGenerator struct {
	mu     sync.Mutex
	prefix string
	next   int
}

// NewSequential creates a generator whose first value is prefix-1.
func NewSequential(prefix string) *SequentialGenerator {
	return &SequentialGenerator{prefix: prefix, next: 1}
}

// Generate implements Generator.
func (g *SequentialGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := fmt.Sprintf("%s-%d", g.prefix, g.next)
	g.next++
	return id
}

// FixedGenerator returns predetermined identifiers for testing.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixed creates a generator that returns ids in order.
//
//	gen := NewFixed("run-1", "battle-1")
//	gen.Generate() // "run-1"
//	gen.Generate() // "battle-1"
//	gen.Generate() // panic: all ids exhausted
func NewFixed(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined id.
//
// Panics when every id has been consumed, so a test that creates more
// objects than it planned for fails loudly.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("ident.FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
