package event

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Publisher hands an envelope to a transport.
//
// A returned error means the publish failed synchronously. Otherwise the
// Delivery reports the outcome, either already settled or settling later.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) (*Delivery, error)
}

// Handler consumes one envelope.
type Handler func(ctx context.Context, env Envelope) error

// Subscription detaches a handler. Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe()
}

// Bus is a Publisher that fans envelopes out to subscribers.
type Bus interface {
	Publisher
	Subscribe(h Handler) Subscription
}

type subscriber struct {
	id      uint64
	name    string
	handler Handler
}

// InMemoryBus delivers each envelope to a snapshot of the current
// subscribers and waits for all of them.
//
// Subscriber failures never reach the publisher: a handler error or panic
// is recovered and written to the audit log. Subscribers may run
// concurrently and must be safe for that.
type InMemoryBus struct {
	mu     sync.RWMutex
	subs   []subscriber
	nextID uint64

	audit          AuditLog
	logger         *zap.Logger
	maxConcurrency int
	now            func() time.Time
}

// BusOption configures an InMemoryBus.
type BusOption func(*InMemoryBus)

// WithAuditLog sets the sink for subscriber failures. Nil disables auditing.
func WithAuditLog(l AuditLog) BusOption {
	return func(b *InMemoryBus) { b.audit = l }
}

// WithBusLogger sets the logger used for audit write failures.
func WithBusLogger(l *zap.Logger) BusOption {
	return func(b *InMemoryBus) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithMaxConcurrency bounds how many subscribers run at once. Zero or less
// means unbounded.
func WithMaxConcurrency(n int) BusOption {
	return func(b *InMemoryBus) { b.maxConcurrency = n }
}

// WithAuditClock sets the clock used to stamp audit entries.
func WithAuditClock(now func() time.Time) BusOption {
	return func(b *InMemoryBus) {
		if now != nil {
			b.now = now
		}
	}
}

// NewInMemoryBus returns a bus with no subscribers.
func NewInMemoryBus(opts ...BusOption) *InMemoryBus {
	b := &InMemoryBus{
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers h under its function name.
func (b *InMemoryBus) Subscribe(h Handler) Subscription {
	return b.SubscribeNamed(handlerName(h), h)
}

// SubscribeNamed registers h under an explicit name, used in audit entries.
func (b *InMemoryBus) SubscribeNamed(name string, h Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscriber{id: id, name: name, handler: h})
	return &subscription{bus: b, id: id}
}

// Len returns the number of current subscribers.
func (b *InMemoryBus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *InMemoryBus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

func (b *InMemoryBus) snapshot() []subscriber {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]subscriber, len(b.subs))
	copy(out, b.subs)
	return out
}

// Publish validates env and delivers it to every subscriber registered at
// the time of the call. The returned delivery is already settled: canceled
// if ctx is done, succeeded otherwise.
func (b *InMemoryBus) Publish(ctx context.Context, env Envelope) (*Delivery, error) {
	if err := env.Validate(); err != nil {
		return nil, fmt.Errorf("publish %s: %w", env.Type, err)
	}
	if ctx.Err() != nil {
		return CanceledDelivery(), nil
	}

	var g errgroup.Group
	if b.maxConcurrency > 0 {
		g.SetLimit(b.maxConcurrency)
	}
	for _, s := range b.snapshot() {
		g.Go(func() error {
			b.safeInvoke(ctx, s, env)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return CanceledDelivery(), nil
	}
	return Completed(), nil
}

func (b *InMemoryBus) safeInvoke(ctx context.Context, s subscriber, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			b.auditFailure(ctx, s, env, r, debug.Stack())
		}
	}()
	if err := s.handler(ctx, env); err != nil {
		b.auditFailure(ctx, s, env, err, nil)
	}
}

func (b *InMemoryBus) auditFailure(ctx context.Context, s subscriber, env Envelope, cause any, stack []byte) {
	b.logger.Debug("subscriber failed",
		zap.String("handler", s.name),
		zap.String("event_type", env.Type),
		zap.String("event_id", env.ID),
		zap.Any("cause", cause))
	if b.audit == nil {
		return
	}
	entry := HandlerFailure(env, s.name, cause, stack, b.now())
	if err := b.audit.Append(context.WithoutCancel(ctx), entry); err != nil {
		b.logger.Warn("audit append failed",
			zap.String("handler", s.name),
			zap.String("event_id", env.ID),
			zap.Error(err))
	}
}

type subscription struct {
	bus  *InMemoryBus
	id   uint64
	once sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() { s.bus.remove(s.id) })
}

func handlerName(h Handler) string {
	if h == nil {
		return "<nil>"
	}
	if fn := runtime.FuncForPC(reflect.ValueOf(h).Pointer()); fn != nil {
		return fn.Name()
	}
	return "<unknown>"
}
