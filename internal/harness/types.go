package harness

import (
	"github.com/skyoxu/rouge/internal/event"
	"github.com/skyoxu/rouge/internal/pile"
	"github.com/skyoxu/rouge/internal/store"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step and assertion held.
	Pass bool `json:"pass"`

	Scenario string       `json:"scenario"`
	Battle   store.Battle `json:"battle"`

	// Commands is the journal of executed engine operations.
	Commands []store.Command `json:"commands"`

	// Events holds every envelope published, in publish order.
	Events []event.Envelope `json:"events"`

	// Final is the engine state after the last step.
	Final pile.State `json:"final"`

	// Added lists instance ids created by add, in order.
	Added []string `json:"added,omitempty"`

	// Removed lists instance ids taken out of the game by remove.
	Removed []string `json:"removed,omitempty"`

	// Errors contains step and assertion failures.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(name string) *Result {
	return &Result{
		Pass:     true,
		Scenario: name,
		Commands: []store.Command{},
		Events:   []event.Envelope{},
		Errors:   []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// EventsOfType returns the published envelopes of type t.
func (r *Result) EventsOfType(t string) []event.Envelope {
	out := []event.Envelope{}
	for _, env := range r.Events {
		if env.Type == t {
			out = append(out, env)
		}
	}
	return out
}

// DrawOrders returns the DrawOrder of every core.card.drawn event.
func (r *Result) DrawOrders() ([]int64, error) {
	orders := []int64{}
	for _, env := range r.EventsOfType(event.TypeCardDrawn) {
		drawn, err := event.DecodeCardDrawn(env)
		if err != nil {
			return nil, err
		}
		orders = append(orders, drawn.DrawOrder)
	}
	return orders, nil
}
