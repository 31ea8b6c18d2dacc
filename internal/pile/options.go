package pile

import (
	"time"

	"go.uber.org/zap"

	"github.com/skyoxu/rouge/internal/event"
	"github.com/skyoxu/rouge/internal/ident"
)

// Defaults for a new engine.
const (
	DefaultHandLimit = 10
	DefaultHeroID    = "hero_0"
	DefaultSource    = "card_pile"
)

// PublishErrorHandler is told about every failed publish with the original
// cause and the envelope that could not be delivered. For pending
// deliveries it may run on another goroutine after the mutating call has
// returned.
type PublishErrorHandler func(cause error, env event.Envelope)

// Option configures an Engine.
type Option func(*Engine)

// WithPublisher attaches an event sink. Without one, transitions still
// happen and no events are produced.
func WithPublisher(p event.Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithPublishErrorHandler sets the failure callback.
func WithPublishErrorHandler(h PublishErrorHandler) Option {
	return func(e *Engine) { e.onPublishError = h }
}

// WithIDGenerator sets the generator for card instance ids and, unless set
// explicitly, the run and battle ids.
func WithIDGenerator(g ident.Generator) Option {
	return func(e *Engine) {
		if g != nil {
			e.ids = g
		}
	}
}

// WithEventIDGenerator sets the generator for envelope ids.
func WithEventIDGenerator(g ident.Generator) Option {
	return func(e *Engine) {
		if g != nil {
			e.eventIDs = g
		}
	}
}

// WithRunID overrides the generated run id.
func WithRunID(id string) Option {
	return func(e *Engine) { e.runID = id }
}

// WithBattleID overrides the generated battle id.
func WithBattleID(id string) Option {
	return func(e *Engine) { e.battleID = id }
}

// WithHeroID overrides DefaultHeroID.
func WithHeroID(id string) Option {
	return func(e *Engine) { e.heroID = id }
}

// WithHandLimit overrides DefaultHandLimit. Values below 1 are ignored.
func WithHandLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.handLimit = n
		}
	}
}

// WithNow sets the clock used for envelope timestamps.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithSource sets the envelope source name.
func WithSource(source string) Option {
	return func(e *Engine) { e.source = source }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}
