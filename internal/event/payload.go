package event

import (
	"encoding/json"
	"fmt"
)

// Card event types.
const (
	TypeCardDrawn     = "core.card.drawn"
	TypeCardDiscarded = "core.card.discarded"
)

// CardDrawn is the body of core.card.drawn. Field names are part of the
// wire contract and may only be added to.
type CardDrawn struct {
	RunID            string `json:"RunId"`
	BattleID         string `json:"BattleId"`
	Turn             int    `json:"Turn"`
	HeroID           string `json:"HeroId"`
	CardInstanceID   string `json:"CardInstanceId"`
	CardDefinitionID string `json:"CardDefinitionId"`
	DrawOrder        int64  `json:"DrawOrder"`
}

func (CardDrawn) EventType() string { return TypeCardDrawn }

func (p CardDrawn) Fields() map[string]any {
	return map[string]any{
		"RunId":            p.RunID,
		"BattleId":         p.BattleID,
		"Turn":             p.Turn,
		"HeroId":           p.HeroID,
		"CardInstanceId":   p.CardInstanceID,
		"CardDefinitionId": p.CardDefinitionID,
		"DrawOrder":        p.DrawOrder,
	}
}

// CardDiscarded is the body of core.card.discarded.
type CardDiscarded struct {
	RunID            string `json:"RunId"`
	BattleID         string `json:"BattleId"`
	Turn             int    `json:"Turn"`
	HeroID           string `json:"HeroId"`
	CardInstanceID   string `json:"CardInstanceId"`
	CardDefinitionID string `json:"CardDefinitionId"`
}

func (CardDiscarded) EventType() string { return TypeCardDiscarded }

func (p CardDiscarded) Fields() map[string]any {
	return map[string]any{
		"RunId":            p.RunID,
		"BattleId":         p.BattleID,
		"Turn":             p.Turn,
		"HeroId":           p.HeroID,
		"CardInstanceId":   p.CardInstanceID,
		"CardDefinitionId": p.CardDefinitionID,
	}
}

// DecodeCardDrawn parses the data of a core.card.drawn envelope.
func DecodeCardDrawn(env Envelope) (CardDrawn, error) {
	var p CardDrawn
	if env.Type != TypeCardDrawn {
		return p, fmt.Errorf("decode card drawn: unexpected type %q", env.Type)
	}
	if err := json.Unmarshal([]byte(env.Data), &p); err != nil {
		return p, fmt.Errorf("decode card drawn: %w", err)
	}
	return p, nil
}

// DecodeCardDiscarded parses the data of a core.card.discarded envelope.
func DecodeCardDiscarded(env Envelope) (CardDiscarded, error) {
	var p CardDiscarded
	if env.Type != TypeCardDiscarded {
		return p, fmt.Errorf("decode card discarded: unexpected type %q", env.Type)
	}
	if err := json.Unmarshal([]byte(env.Data), &p); err != nil {
		return p, fmt.Errorf("decode card discarded: %w", err)
	}
	return p, nil
}
