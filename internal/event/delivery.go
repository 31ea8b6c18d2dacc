package event

import (
	"context"
	"errors"
	"sync"
)

// DeliveryState is the lifecycle of a Delivery.
type DeliveryState int

const (
	Pending DeliveryState = iota
	Succeeded
	Faulted
	Canceled
)

func (s DeliveryState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Faulted:
		return "faulted"
	case Canceled:
		return "canceled"
	}
	return "unknown"
}

// errDeliveryFailed stands in for a nil cause passed to Failed.
var errDeliveryFailed = errors.New("event: delivery failed")

// Delivery is the outcome of one publish. It settles exactly once into
// Succeeded, Faulted or Canceled; later settle calls are ignored.
type Delivery struct {
	mu    sync.Mutex
	done  chan struct{}
	state DeliveryState
	err   error
}

// NewDelivery returns a pending delivery for a transport to settle later.
func NewDelivery() *Delivery {
	return &Delivery{done: make(chan struct{})}
}

// Completed returns a delivery that already succeeded.
func Completed() *Delivery {
	d := NewDelivery()
	d.settle(Succeeded, nil)
	return d
}

// Failed returns a delivery that already faulted with err.
func Failed(err error) *Delivery {
	d := NewDelivery()
	d.settle(Faulted, faultCause(err))
	return d
}

// CanceledDelivery returns a delivery that was already canceled.
func CanceledDelivery() *Delivery {
	d := NewDelivery()
	d.Cancel()
	return d
}

// Resolve settles the delivery: nil succeeds, an error wrapping
// context.Canceled cancels, anything else faults. It reports whether this
// call settled it.
func (d *Delivery) Resolve(err error) bool {
	switch {
	case err == nil:
		return d.settle(Succeeded, nil)
	case errors.Is(err, context.Canceled):
		return d.settle(Canceled, err)
	default:
		return d.settle(Faulted, err)
	}
}

// Cancel settles the delivery as canceled.
func (d *Delivery) Cancel() bool {
	return d.settle(Canceled, context.Canceled)
}

func (d *Delivery) settle(state DeliveryState, err error) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != Pending {
		return false
	}
	d.state = state
	d.err = err
	close(d.done)
	return true
}

// Done is closed once the delivery settles.
func (d *Delivery) Done() <-chan struct{} {
	return d.done
}

// State returns the current state.
func (d *Delivery) State() DeliveryState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Err returns the settle cause: nil while pending or after success.
func (d *Delivery) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Wait blocks until the delivery settles or ctx is done.
func (d *Delivery) Wait(ctx context.Context) error {
	select {
	case <-d.done:
		return d.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func faultCause(err error) error {
	if err == nil {
		return errDeliveryFailed
	}
	return err
}
