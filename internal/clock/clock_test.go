package clock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministic_StartsAtEpoch(t *testing.T) {
	clock := NewDeterministic()
	assert.Equal(t, Epoch, clock.Now())
	assert.Equal(t, Epoch.Add(DefaultStep), clock.Now())
	assert.Equal(t, int64(2), clock.Calls())
}

func TestDeterministic_UTC(t *testing.T) {
	start := time.Date(2030, 6, 1, 12, 0, 0, 0, time.FixedZone("X", 7200))
	clock := NewDeterministicAt(start, time.Second)
	got := clock.Now()
	assert.Equal(t, time.UTC, got.Location())
	assert.True(t, got.Equal(start))
}

func TestDeterministic_ZeroStepFreezes(t *testing.T) {
	clock := NewDeterministicAt(Epoch, 0)
	assert.Equal(t, clock.Now(), clock.Now())
}

func TestDeterministic_Reset(t *testing.T) {
	clock := NewDeterministic()
	clock.Now()
	clock.Now()
	clock.Reset()
	assert.Equal(t, Epoch, clock.Now())
}

func TestDeterministic_ThreadSafe(t *testing.T) {
	clock := NewDeterministicAt(Epoch, time.Second)
	const numGoroutines = 50
	const callsPerGoroutine = 20

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[time.Time]bool)
	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range callsPerGoroutine {
				ts := clock.Now()
				mu.Lock()
				seen[ts] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, numGoroutines*callsPerGoroutine)
	for i := range numGoroutines * callsPerGoroutine {
		assert.True(t, seen[Epoch.Add(time.Duration(i)*time.Second)], "missing tick %d", i)
	}
}

func TestDeterministic_Deterministic(t *testing.T) {
	clock1 := NewDeterministic()
	clock2 := NewDeterministic()
	for range 100 {
		assert.Equal(t, clock1.Now(), clock2.Now())
	}
}
