// Package testutil holds scripted event publishers and failure recorders
// for tests of the pile engine and its callers.
package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/skyoxu/rouge/internal/event"
)

// Mode is how a ScriptedPublisher answers one Publish call.
type Mode int

const (
	// Succeed returns a completed delivery.
	Succeed Mode = iota
	// Throw returns an error from Publish itself.
	Throw
	// Fault returns an already faulted delivery.
	Fault
	// Cancel returns an already canceled delivery.
	Cancel
	// Pend returns a pending delivery settled later through the publisher.
	Pend
	// Panic panics inside Publish.
	Panic
)

// ErrScripted is the default failure cause of a ScriptedPublisher.
var ErrScripted = errors.New("scripted publish failure")

// ScriptedPublisher answers Publish calls with a scripted sequence of
// modes, one per call. Once the script runs out every call uses the
// fallback mode. Every envelope is recorded, whatever the outcome.
//
// Thread-safety: safe for concurrent use.
type ScriptedPublisher struct {
	mu        sync.Mutex
	script    []Mode
	fallback  Mode
	cause     error
	published []event.Envelope
	pending   []*event.Delivery
}

// NewScriptedPublisher creates a publisher playing modes in order, then
// Succeed.
func NewScriptedPublisher(modes ...Mode) *ScriptedPublisher {
	return &ScriptedPublisher{script: modes, fallback: Succeed, cause: ErrScripted}
}

// Always creates a publisher that answers every call with mode.
func Always(mode Mode) *ScriptedPublisher {
	return &ScriptedPublisher{fallback: mode, cause: ErrScripted}
}

// WithCause sets the error used by Throw, Fault and Panic.
func (p *ScriptedPublisher) WithCause(err error) *ScriptedPublisher {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cause = err
	return p
}

// Publish implements event.Publisher.
func (p *ScriptedPublisher) Publish(_ context.Context, env event.Envelope) (*event.Delivery, error) {
	p.mu.Lock()
	p.published = append(p.published, env)
	mode := p.fallback
	if len(p.script) > 0 {
		mode = p.script[0]
		p.script = p.script[1:]
	}
	cause := p.cause
	var d *event.Delivery
	if mode == Pend {
		d = event.NewDelivery()
		p.pending = append(p.pending, d)
	}
	p.mu.Unlock()

	switch mode {
	case Throw:
		return nil, cause
	case Fault:
		return event.Failed(cause), nil
	case Cancel:
		return event.CanceledDelivery(), nil
	case Pend:
		return d, nil
	case Panic:
		panic(cause)
	default:
		return event.Completed(), nil
	}
}

// Published returns a copy of every envelope seen so far.
func (p *ScriptedPublisher) Published() []event.Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]event.Envelope(nil), p.published...)
}

// Pending returns the deliveries handed out in Pend mode.
func (p *ScriptedPublisher) Pending() []*event.Delivery {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*event.Delivery(nil), p.pending...)
}

// FaultPending faults every unsettled pending delivery with err.
func (p *ScriptedPublisher) FaultPending(err error) {
	for _, d := range p.Pending() {
		d.Resolve(err)
	}
}

// CancelPending cancels every unsettled pending delivery.
func (p *ScriptedPublisher) CancelPending() {
	for _, d := range p.Pending() {
		d.Cancel()
	}
}

// CompletePending succeeds every unsettled pending delivery.
func (p *ScriptedPublisher) CompletePending() {
	for _, d := range p.Pending() {
		d.Resolve(nil)
	}
}

// FailureCall is one invocation of a publish error callback.
type FailureCall struct {
	Cause    error
	Envelope event.Envelope
}

// FailureRecorder collects publish error callbacks.
//
// Thread-safety: safe for concurrent use; pending deliveries report from
// other goroutines.
type FailureRecorder struct {
	mu    sync.Mutex
	calls []FailureCall
}

// Record has the shape of pile.PublishErrorHandler.
func (r *FailureRecorder) Record(cause error, env event.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, FailureCall{Cause: cause, Envelope: env})
}

// Calls returns a copy of the recorded calls.
func (r *FailureRecorder) Calls() []FailureCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]FailureCall(nil), r.calls...)
}

// Len returns the number of recorded calls.
func (r *FailureRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}
