package rng

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
)

// NewSeed generates a fresh run seed using crypto/rand.
//
// Callers persist the result (typically as the run's seed field) so a saved
// run can be resumed by reapplying it with SetSeed before any gameplay call.
func NewSeed() (int32, error) {
	var b [4]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int32(binary.LittleEndian.Uint32(b[:])), nil
}
