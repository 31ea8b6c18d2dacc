package pile

import "sync/atomic"

// DrawClock is the run-lifetime draw order counter.
//
// Every drawn card is stamped with the next value, so observed draw orders
// increase by exactly one. Reshuffles never reset it; Restore resumes it
// from a snapshot.
//
// Thread-safety: safe for concurrent reads. Only the owning engine calls
// Next.
type DrawClock struct {
	seq atomic.Int64
}

// NewDrawClock creates a clock whose first Next returns 1.
func NewDrawClock() *DrawClock {
	return &DrawClock{}
}

// NewDrawClockAt creates a clock resuming after start.
func NewDrawClockAt(start int64) *DrawClock {
	c := &DrawClock{}
	c.seq.Store(start)
	return c
}

// Next advances the clock and returns the new draw order.
func (c *DrawClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued draw order, 0 before the first draw.
func (c *DrawClock) Current() int64 {
	return c.seq.Load()
}
