package event

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyoxu/rouge/internal/fault"
)

type memoryAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
	err     error
}

func (m *memoryAudit) Append(_ context.Context, e AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return m.err
}

func (m *memoryAudit) all() []AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AuditEntry(nil), m.entries...)
}

func testEnvelope(t *testing.T) Envelope {
	t.Helper()
	env, err := NewEnvelope("evt-1", "bus_test", drawnPayload(), testTime)
	require.NoError(t, err)
	return env
}

func TestInMemoryBus_DeliversAndUnsubscribes(t *testing.T) {
	bus := NewInMemoryBus()
	var called atomic.Int32
	sub := bus.Subscribe(func(_ context.Context, _ Envelope) error {
		called.Add(1)
		return nil
	})

	d, err := bus.Publish(context.Background(), testEnvelope(t))
	require.NoError(t, err)
	assert.Equal(t, Succeeded, d.State())
	assert.Equal(t, int32(1), called.Load())

	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.Equal(t, 0, bus.Len())

	_, err = bus.Publish(context.Background(), testEnvelope(t))
	require.NoError(t, err)
	assert.Equal(t, int32(1), called.Load())
}

func TestInMemoryBus_UnsubscribeRemovesOnlyItself(t *testing.T) {
	bus := NewInMemoryBus()
	noop := func(context.Context, Envelope) error { return nil }
	a := bus.Subscribe(noop)
	bus.Subscribe(noop)

	a.Unsubscribe()
	a.Unsubscribe()
	assert.Equal(t, 1, bus.Len())
}

func TestInMemoryBus_HandlerErrorIsAuditedAndIsolated(t *testing.T) {
	audit := &memoryAudit{}
	bus := NewInMemoryBus(WithAuditLog(audit), WithAuditClock(func() time.Time { return testTime }))

	var ok atomic.Int32
	bus.SubscribeNamed("failing", func(context.Context, Envelope) error {
		return errors.New("boom")
	})
	bus.Subscribe(func(context.Context, Envelope) error {
		ok.Add(1)
		return nil
	})

	d, err := bus.Publish(context.Background(), testEnvelope(t))
	require.NoError(t, err)
	assert.Equal(t, Succeeded, d.State())
	assert.Equal(t, int32(1), ok.Load())

	entries := audit.all()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, ActionHandlerException, e.Action)
	assert.Equal(t, TypeCardDrawn, e.Target)
	assert.Equal(t, "failing", e.Handler)
	assert.Equal(t, "evt-1", e.EventID)
	assert.Equal(t, "bus_test", e.EventSource)
	assert.Equal(t, "boom", e.ExceptionMessage)
	assert.Equal(t, "*errors.errorString", e.ExceptionType)
	assert.Equal(t, "*errors.errorString: boom", e.Reason)
	assert.Equal(t, testTime, e.Timestamp)
	assert.NotEmpty(t, e.Caller)
}

func TestInMemoryBus_HandlerPanicIsRecovered(t *testing.T) {
	audit := &memoryAudit{}
	bus := NewInMemoryBus(WithAuditLog(audit))
	bus.SubscribeNamed("panicky", func(context.Context, Envelope) error {
		panic("kaboom")
	})

	d, err := bus.Publish(context.Background(), testEnvelope(t))
	require.NoError(t, err)
	assert.Equal(t, Succeeded, d.State())

	entries := audit.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "kaboom", entries[0].ExceptionMessage)
	assert.Equal(t, "string", entries[0].ExceptionType)
	assert.NotEmpty(t, entries[0].Stack)
}

func TestInMemoryBus_AuditFailureIsIgnored(t *testing.T) {
	audit := &memoryAudit{err: errors.New("disk full")}
	bus := NewInMemoryBus(WithAuditLog(audit))
	bus.Subscribe(func(context.Context, Envelope) error { return errors.New("boom") })

	d, err := bus.Publish(context.Background(), testEnvelope(t))
	require.NoError(t, err)
	assert.Equal(t, Succeeded, d.State())
}

func TestInMemoryBus_PublishUsesSnapshot(t *testing.T) {
	bus := NewInMemoryBus(WithMaxConcurrency(1))
	var secondCalls atomic.Int32
	var second Subscription

	bus.Subscribe(func(context.Context, Envelope) error {
		second.Unsubscribe()
		return nil
	})
	second = bus.Subscribe(func(context.Context, Envelope) error {
		secondCalls.Add(1)
		return nil
	})

	_, err := bus.Publish(context.Background(), testEnvelope(t))
	require.NoError(t, err)
	assert.Equal(t, int32(1), secondCalls.Load(), "in-flight publish still reaches the removed handler")

	_, err = bus.Publish(context.Background(), testEnvelope(t))
	require.NoError(t, err)
	assert.Equal(t, int32(1), secondCalls.Load())
}

func TestInMemoryBus_MaxConcurrency(t *testing.T) {
	bus := NewInMemoryBus(WithMaxConcurrency(2))
	var running, peak atomic.Int32
	for range 6 {
		bus.Subscribe(func(context.Context, Envelope) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return nil
		})
	}

	_, err := bus.Publish(context.Background(), testEnvelope(t))
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, int32(0), running.Load())
}

func TestInMemoryBus_CanceledContext(t *testing.T) {
	bus := NewInMemoryBus()
	var called atomic.Int32
	bus.Subscribe(func(context.Context, Envelope) error {
		called.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d, err := bus.Publish(ctx, testEnvelope(t))
	require.NoError(t, err)
	assert.Equal(t, Canceled, d.State())
	assert.Zero(t, called.Load())
}

func TestInMemoryBus_InvalidEnvelopeFailsSynchronously(t *testing.T) {
	bus := NewInMemoryBus()
	env := testEnvelope(t)
	env.Type = "evt"

	d, err := bus.Publish(context.Background(), env)
	assert.Nil(t, d)
	assert.True(t, fault.IsInvalidArgument(err))
}

func TestInMemoryBus_FileAuditLog(t *testing.T) {
	root := filepath.Join(t.TempDir(), "audit")
	bus := NewInMemoryBus(WithAuditLog(NewFileAuditLog(root)))
	bus.Subscribe(func(context.Context, Envelope) error { return errors.New("boom") })

	_, err := bus.Publish(context.Background(), testEnvelope(t))
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(root, AuditFileName))
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		lines = append(lines, m)
	}
	require.NoError(t, sc.Err())
	require.Len(t, lines, 1)

	for _, key := range []string{"ts", "action", "reason", "target", "caller", "event_source", "event_id", "handler", "exception_type", "exception_message", "stack"} {
		assert.Contains(t, lines[0], key)
	}
	assert.Equal(t, ActionHandlerException, lines[0]["action"])
	assert.Equal(t, TypeCardDrawn, lines[0]["target"])
}
