package pile

import (
	"github.com/skyoxu/rouge/internal/card"
	"github.com/skyoxu/rouge/internal/fault"
)

// State is the engine's data as plain values, for the save/load
// collaborator. It shares no memory with the engine.
type State struct {
	Seed      int32             `json:"seed" yaml:"seed"`
	RunID     string            `json:"run_id" yaml:"run_id"`
	BattleID  string            `json:"battle_id" yaml:"battle_id"`
	HeroID    string            `json:"hero_id" yaml:"hero_id"`
	Turn      int               `json:"turn" yaml:"turn"`
	DrawOrder int64             `json:"draw_order" yaml:"draw_order"`
	Draw      []card.Ref        `json:"draw" yaml:"draw"`
	Hand      []card.Ref        `json:"hand" yaml:"hand"`
	Discard   []card.Ref        `json:"discard" yaml:"discard"`
	Exhaust   []card.Ref        `json:"exhaust" yaml:"exhaust"`
	Upgrades  map[string]string `json:"upgrades,omitempty" yaml:"upgrades,omitempty"`
}

// Snapshot captures the current state.
func (e *Engine) Snapshot() State {
	return State{
		Seed:      e.rng.Seed(),
		RunID:     e.runID,
		BattleID:  e.battleID,
		HeroID:    e.heroID,
		Turn:      e.turn,
		DrawOrder: e.draws.Current(),
		Draw:      e.DrawPile(),
		Hand:      e.Hand(),
		Discard:   e.DiscardPile(),
		Exhaust:   e.ExhaustPile(),
		Upgrades:  e.UpgradeMap(),
	}
}

// Restore replaces the engine state with s and reseeds the rng with
// s.Seed. On error the engine is unchanged.
func (e *Engine) Restore(s State) error {
	if s.Turn < 0 {
		return fault.OutOfRange("turn", "turn must be non-negative, got %d", s.Turn)
	}
	if s.DrawOrder < 0 {
		return fault.OutOfRange("draw_order", "draw order must be non-negative, got %d", s.DrawOrder)
	}
	for _, id := range []struct{ name, value string }{
		{"run_id", s.RunID}, {"battle_id", s.BattleID}, {"hero_id", s.HeroID},
	} {
		if isBlank(id.value) {
			return fault.InvalidArgument(id.name, "%s must not be empty", id.name)
		}
	}

	seen := make(map[string]Type)
	piles := [4][]card.Ref{s.Draw, s.Hand, s.Discard, s.Exhaust}
	for t, refs := range piles {
		for _, r := range refs {
			if isBlank(r.InstanceID) || isBlank(r.DefinitionID) {
				return fault.InvalidArgument(Type(t).String(), "card ref needs instance and definition ids")
			}
			if prev, dup := seen[r.InstanceID]; dup {
				return fault.InvalidArgument(Type(t).String(), "instance %q already in %s pile", r.InstanceID, prev)
			}
			seen[r.InstanceID] = Type(t)
		}
	}

	for t, refs := range piles {
		e.piles[t] = append([]card.Ref{}, refs...)
	}
	e.upgrades = make(map[string]string, len(s.Upgrades))
	for k, v := range s.Upgrades {
		e.upgrades[k] = v
	}
	e.runID, e.battleID, e.heroID = s.RunID, s.BattleID, s.HeroID
	e.turn = s.Turn
	e.draws = NewDrawClockAt(s.DrawOrder)
	e.rng.SetSeed(s.Seed)
	return nil
}
