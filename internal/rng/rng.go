// Package rng provides the seeded random-number service.
//
// The Source is the only source of nondeterminism in the engine. Every
// method draws from one shared stream, so two sources seeded identically and
// driven through the same call sequence (same methods, same arguments, same
// order) produce identical output, including interleavings of NextInt,
// NextFloat, Shuffle and PickRandom.
//
// Sources are not safe for concurrent use. Sharing one Source between
// concurrently running pile engines is a caller error.
package rng

import (
	"math/rand"

	"github.com/skyoxu/rouge/internal/fault"
)

// Source is the random-number contract consumed by the pile engine.
//
// Shuffle follows the shape of math/rand.Shuffle because interface methods
// cannot be generic; use the package-level Shuffle and PickRandom helpers for
// typed slices.
type Source interface {
	// SetSeed reseeds the stream. All later output depends only on the seed
	// and the call sequence.
	SetSeed(seed int32)

	// Seed returns the seed last applied.
	Seed() int32

	// NextInt returns an integer in [min, max).
	NextInt(min, max int) (int, error)

	// NextFloat returns a value in [0.0, 1.0).
	NextFloat() float64

	// Shuffle permutes n elements in place using swap.
	Shuffle(n int, swap func(i, j int)) error
}

// Seeded is the default Source backed by math/rand.
type Seeded struct {
	seed int32
	r    *rand.Rand
}

// New returns a Source seeded with seed.
func New(seed int32) *Seeded {
	s := &Seeded{}
	s.SetSeed(seed)
	return s
}

// SetSeed implements Source.
func (s *Seeded) SetSeed(seed int32) {
	s.seed = seed
	s.r = rand.New(rand.NewSource(int64(seed)))
}

// Seed implements Source.
func (s *Seeded) Seed() int32 {
	return s.seed
}

// NextInt implements Source.
func (s *Seeded) NextInt(min, max int) (int, error) {
	if min >= max {
		return 0, fault.OutOfRange("min", "min (%d) must be less than max (%d)", min, max)
	}
	return min + int(s.r.Int63n(int64(max)-int64(min))), nil
}

// NextFloat implements Source.
func (s *Seeded) NextFloat() float64 {
	return s.r.Float64()
}

// Shuffle implements Source. It walks from the last index down to 1 and
// swaps index i with NextInt(0, i+1).
func (s *Seeded) Shuffle(n int, swap func(i, j int)) error {
	if swap == nil {
		return fault.NilArgument("swap")
	}
	if n < 0 {
		return fault.OutOfRange("n", "n (%d) must be non-negative", n)
	}
	for i := n - 1; i > 0; i-- {
		j, err := s.NextInt(0, i+1)
		if err != nil {
			return err
		}
		swap(i, j)
	}
	return nil
}
