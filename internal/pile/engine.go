// Package pile implements the card pile state machine for one battle.
//
// An Engine owns four ordered piles (draw, hand, discard, exhaust) of card
// references. Every card is in exactly one pile. The end of the draw pile
// is its top. The seeded rng.Source is the only source of randomness, so
// two engines with the same seed, ids and call sequence end in the same
// state and emit the same events.
//
// Draws and discards are announced as core.card.drawn and
// core.card.discarded envelopes through an optional event.Publisher. A
// publish failure never rolls back the pile change that caused it; see
// Engine.Draw for how failures surface.
//
// Thread-safety: an Engine is not safe for concurrent use. One battle has
// one owner.
package pile

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/skyoxu/rouge/internal/card"
	"github.com/skyoxu/rouge/internal/event"
	"github.com/skyoxu/rouge/internal/fault"
	"github.com/skyoxu/rouge/internal/ident"
	"github.com/skyoxu/rouge/internal/rng"
)

// Engine is the card pile state machine.
type Engine struct {
	rng            rng.Source
	publisher      event.Publisher
	onPublishError PublishErrorHandler
	ids            ident.Generator
	eventIDs       ident.Generator
	now            func() time.Time
	logger         *zap.Logger
	source         string
	handLimit      int

	runID    string
	battleID string
	heroID   string
	turn     int
	draws    *DrawClock

	// upgrades maps a definition id to the id it upgrades into. It is
	// built from the cards added to this engine and nothing else.
	upgrades map[string]string

	piles [4][]card.Ref
}

// New creates an engine drawing randomness from src.
func New(src rng.Source, opts ...Option) (*Engine, error) {
	if src == nil {
		return nil, fault.NilArgument("rng")
	}
	e := &Engine{
		rng:       src,
		ids:       ident.UUIDv7Generator{},
		eventIDs:  ident.UUIDv7Generator{},
		now:       time.Now,
		logger:    zap.NewNop(),
		source:    DefaultSource,
		handLimit: DefaultHandLimit,
		heroID:    DefaultHeroID,
		draws:     NewDrawClock(),
		upgrades:  make(map[string]string),
	}
	for i := range e.piles {
		e.piles[i] = []card.Ref{}
	}
	for _, opt := range opts {
		opt(e)
	}
	if strings.TrimSpace(e.source) == "" {
		return nil, fault.InvalidArgument("source", "envelope source must not be empty")
	}
	if e.runID == "" {
		e.runID = e.ids.Generate()
	}
	if e.battleID == "" {
		e.battleID = e.ids.Generate()
	}
	return e, nil
}

func (e *Engine) RunID() string    { return e.runID }
func (e *Engine) BattleID() string { return e.battleID }
func (e *Engine) HeroID() string   { return e.heroID }
func (e *Engine) Turn() int        { return e.turn }
func (e *Engine) HandLimit() int   { return e.handLimit }

// DrawOrder returns the draw order of the most recent draw.
func (e *Engine) DrawOrder() int64 { return e.draws.Current() }

// SetPublishErrorHandler replaces the failure callback. Deliveries already
// pending keep the callback that was set when they were published.
func (e *Engine) SetPublishErrorHandler(h PublishErrorHandler) {
	e.onPublishError = h
}

// Pile returns a copy of the given pile, bottom first. An unknown pile
// yields an empty slice.
func (e *Engine) Pile(t Type) []card.Ref {
	if !t.Valid() {
		return []card.Ref{}
	}
	return append([]card.Ref{}, e.piles[t]...)
}

func (e *Engine) DrawPile() []card.Ref    { return e.Pile(DrawPile) }
func (e *Engine) Hand() []card.Ref        { return e.Pile(Hand) }
func (e *Engine) DiscardPile() []card.Ref { return e.Pile(DiscardPile) }
func (e *Engine) ExhaustPile() []card.Ref { return e.Pile(ExhaustPile) }

// Count returns the size of one pile.
func (e *Engine) Count(t Type) int {
	if !t.Valid() {
		return 0
	}
	return len(e.piles[t])
}

// Total returns the number of cards across all piles.
func (e *Engine) Total() int {
	n := 0
	for _, p := range e.piles {
		n += len(p)
	}
	return n
}

// Find locates a card by instance id.
func (e *Engine) Find(instanceID string) (card.Ref, Type, bool) {
	for _, t := range lookupOrder {
		if i := indexOf(e.piles[t], instanceID); i >= 0 {
			return e.piles[t][i], t, true
		}
	}
	return card.Ref{}, 0, false
}

// UpgradeMap returns a copy of the engine-scoped upgrade mapping.
func (e *Engine) UpgradeMap() map[string]string {
	out := make(map[string]string, len(e.upgrades))
	for k, v := range e.upgrades {
		out[k] = v
	}
	return out
}

// SetTurn sets the current turn. Negative turns are rejected.
func (e *Engine) SetTurn(turn int) error {
	if turn < 0 {
		return fault.OutOfRange("turn", "turn must be non-negative, got %d", turn)
	}
	e.turn = turn
	return nil
}

// AddCard puts a new instance of def on top of the draw pile and records
// its upgrade mapping, if it has one.
func (e *Engine) AddCard(def card.Definition) (card.Ref, error) {
	if def.IsZero() {
		return card.Ref{}, fault.NilArgument("definition")
	}
	ref := card.Ref{InstanceID: e.ids.Generate(), DefinitionID: def.ID()}
	e.piles[DrawPile] = append(e.piles[DrawPile], ref)

	if up, ok := def.ResolveUpgradedID(nil); ok {
		e.upgrades[def.ID()] = up
	}
	e.logger.Debug("card added",
		zap.String("instance_id", ref.InstanceID),
		zap.String("definition_id", ref.DefinitionID))
	return ref, nil
}

// RemoveCard removes the card from whichever pile holds it, looking in the
// hand first, then draw, discard and exhaust. It reports whether a card was
// removed; blank and unknown ids are no-ops.
func (e *Engine) RemoveCard(instanceID string) bool {
	if isBlank(instanceID) {
		return false
	}
	for _, t := range lookupOrder {
		if i := indexOf(e.piles[t], instanceID); i >= 0 {
			e.piles[t] = removeAt(e.piles[t], i)
			return true
		}
	}
	return false
}

// UpgradeCard replaces the card's definition id with its mapped upgrade
// and marks it upgraded, in place. The instance id is kept. It reports
// whether the card changed; an unknown id and a card without a mapping
// are both no-ops.
func (e *Engine) UpgradeCard(instanceID string) bool {
	if isBlank(instanceID) {
		return false
	}
	for _, t := range lookupOrder {
		i := indexOf(e.piles[t], instanceID)
		if i < 0 {
			continue
		}
		cur := e.piles[t][i]
		up, ok := e.upgrades[cur.DefinitionID]
		if !ok || isBlank(up) {
			return false
		}
		e.piles[t][i] = card.Ref{InstanceID: cur.InstanceID, DefinitionID: up, Upgraded: true}
		return true
	}
	return false
}

// Shuffle shuffles the draw pile in place.
func (e *Engine) Shuffle() error {
	return rng.Shuffle(e.rng, e.piles[DrawPile])
}

// Draw moves up to n cards from the top of the draw pile into the hand,
// publishing core.card.drawn for each one.
//
// Every iteration stops the draw if the hand is at the limit. If the draw
// pile is empty, the whole discard pile is moved into it and shuffled
// first; if both are empty the draw stops. n <= 0 is a no-op.
//
// A synchronous publish failure or an already faulted delivery returns a
// *PublishError; an already canceled delivery returns a *CanceledError.
// Either way the card has already moved and the remaining draws are
// abandoned. A pending delivery that fails later only reaches the
// PublishErrorHandler.
func (e *Engine) Draw(n int) error {
	for range max(n, 0) {
		if len(e.piles[Hand]) >= e.handLimit {
			return nil
		}
		if len(e.piles[DrawPile]) == 0 {
			if len(e.piles[DiscardPile]) == 0 {
				return nil
			}
			if err := e.reshuffle(); err != nil {
				return err
			}
		}

		draw := e.piles[DrawPile]
		top := draw[len(draw)-1]
		e.piles[DrawPile] = draw[:len(draw)-1]
		e.piles[Hand] = append(e.piles[Hand], top)

		order := e.draws.Next()
		if err := e.publish(event.CardDrawn{
			RunID:            e.runID,
			BattleID:         e.battleID,
			Turn:             e.turn,
			HeroID:           e.heroID,
			CardInstanceID:   top.InstanceID,
			CardDefinitionID: top.DefinitionID,
			DrawOrder:        order,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) reshuffle() error {
	moved := len(e.piles[DiscardPile])
	e.piles[DrawPile] = append(e.piles[DrawPile], e.piles[DiscardPile]...)
	e.piles[DiscardPile] = []card.Ref{}
	e.logger.Debug("discard reshuffled into draw pile", zap.Int("cards", moved))
	return rng.Shuffle(e.rng, e.piles[DrawPile])
}

// Discard moves a card from the hand to the top of the discard pile and
// publishes core.card.discarded. Ids not in the hand are no-ops. Publish
// failures surface as in Draw.
func (e *Engine) Discard(instanceID string) error {
	ref, ok := e.takeFromHand(instanceID)
	if !ok {
		return nil
	}
	e.piles[DiscardPile] = append(e.piles[DiscardPile], ref)
	return e.publish(event.CardDiscarded{
		RunID:            e.runID,
		BattleID:         e.battleID,
		Turn:             e.turn,
		HeroID:           e.heroID,
		CardInstanceID:   ref.InstanceID,
		CardDefinitionID: ref.DefinitionID,
	})
}

// Exhaust moves a card from the hand to the exhaust pile. No event is
// published. Ids not in the hand are no-ops.
func (e *Engine) Exhaust(instanceID string) {
	if ref, ok := e.takeFromHand(instanceID); ok {
		e.piles[ExhaustPile] = append(e.piles[ExhaustPile], ref)
	}
}

func (e *Engine) takeFromHand(instanceID string) (card.Ref, bool) {
	if isBlank(instanceID) {
		return card.Ref{}, false
	}
	i := indexOf(e.piles[Hand], instanceID)
	if i < 0 {
		return card.Ref{}, false
	}
	ref := e.piles[Hand][i]
	e.piles[Hand] = removeAt(e.piles[Hand], i)
	return ref, true
}

func indexOf(refs []card.Ref, instanceID string) int {
	for i, r := range refs {
		if r.InstanceID == instanceID {
			return i
		}
	}
	return -1
}

func removeAt(refs []card.Ref, i int) []card.Ref {
	return append(refs[:i], refs[i+1:]...)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
