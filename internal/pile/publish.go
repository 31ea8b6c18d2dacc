package pile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/skyoxu/rouge/internal/event"
)

// publish wraps p in an envelope and hands it to the publisher, then
// inspects the delivery immediately:
//
//   - envelope rejected, error or panic from Publish: callback, *PublishError
//   - already faulted: callback, *PublishError
//   - already canceled: callback, *CanceledError
//   - pending: nil now; a later fault or cancel only reaches the callback
func (e *Engine) publish(p event.Payload) error {
	if e.publisher == nil {
		return nil
	}
	onErr := e.onPublishError
	id, ts := e.eventIDs.Generate(), e.now()
	env, err := event.NewEnvelope(id, e.source, p, ts)
	if err != nil {
		env = event.Envelope{ID: id, Type: p.EventType(), Source: e.source, Timestamp: ts.UTC()}
		e.logger.Warn("envelope rejected",
			zap.String("event_type", p.EventType()),
			zap.Error(err))
		notify(onErr, err, env)
		return &PublishError{EventType: p.EventType(), Cause: err}
	}

	d, err := e.tryPublish(env)
	if err != nil {
		e.logger.Warn("publish failed",
			zap.String("event_type", env.Type),
			zap.String("event_id", env.ID),
			zap.Error(err))
		notify(onErr, err, env)
		return &PublishError{EventType: env.Type, Cause: err}
	}
	if d == nil {
		return nil
	}

	switch d.State() {
	case event.Succeeded:
		return nil
	case event.Faulted:
		cause := d.Err()
		e.logger.Warn("publish faulted",
			zap.String("event_type", env.Type),
			zap.String("event_id", env.ID),
			zap.Error(cause))
		notify(onErr, cause, env)
		return &PublishError{EventType: env.Type, Cause: cause}
	case event.Canceled:
		cause := d.Err()
		e.logger.Warn("publish canceled",
			zap.String("event_type", env.Type),
			zap.String("event_id", env.ID))
		notify(onErr, cause, env)
		return &CanceledError{EventType: env.Type, Cause: cause}
	default:
		go e.awaitDelivery(d, env, onErr)
		return nil
	}
}

func (e *Engine) tryPublish(env event.Envelope) (d *event.Delivery, err error) {
	defer func() {
		if r := recover(); r != nil {
			d = nil
			if cause, ok := r.(error); ok {
				err = fmt.Errorf("publisher panicked: %w", cause)
			} else {
				err = fmt.Errorf("publisher panicked: %v", r)
			}
		}
	}()
	return e.publisher.Publish(context.Background(), env)
}

// awaitDelivery is the tail of a pending publish. It never touches engine
// state; the only effect is the callback.
func (e *Engine) awaitDelivery(d *event.Delivery, env event.Envelope, onErr PublishErrorHandler) {
	<-d.Done()
	switch d.State() {
	case event.Faulted, event.Canceled:
		e.logger.Warn("pending publish failed",
			zap.String("event_type", env.Type),
			zap.String("event_id", env.ID),
			zap.Stringer("state", d.State()),
			zap.Error(d.Err()))
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("publish error handler panicked",
					zap.String("event_id", env.ID),
					zap.Any("panic", r))
			}
		}()
		notify(onErr, d.Err(), env)
	}
}

func notify(h PublishErrorHandler, cause error, env event.Envelope) {
	if h != nil {
		h(cause, env)
	}
}
