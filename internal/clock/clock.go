// Package clock provides a reproducible wall clock for deterministic runs.
package clock

import (
	"sync"
	"time"
)

// Epoch is the default first timestamp of a Deterministic clock.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// DefaultStep is the default gap between two timestamps.
const DefaultStep = time.Millisecond

// Deterministic is a wall clock whose readings are fixed: the first
// Now returns start, each later call adds step.
//
// Unlike time.Now, the same sequence of calls always yields the same
// timestamps, so envelopes built with it are reproducible byte for byte.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Deterministic struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	calls int64
}

// NewDeterministic creates a clock starting at Epoch with DefaultStep.
func NewDeterministic() *Deterministic {
	return NewDeterministicAt(Epoch, DefaultStep)
}

// NewDeterministicAt creates a clock starting at start (converted to
// UTC) and advancing by step. A zero step freezes the clock.
func NewDeterministicAt(start time.Time, step time.Duration) *Deterministic {
	return &Deterministic{start: start.UTC(), step: step}
}

// Now returns the next timestamp.
func (c *Deterministic) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.calls) * c.step)
	c.calls++
	return t
}

// Calls returns how many timestamps have been issued.
func (c *Deterministic) Calls() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Reset rewinds the clock so the next Now returns start again.
func (c *Deterministic) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = 0
}
