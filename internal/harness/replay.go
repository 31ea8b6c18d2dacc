package harness

import (
	"context"
	"fmt"

	"github.com/skyoxu/rouge/internal/event"
	"github.com/skyoxu/rouge/internal/store"
)

// ReplayResult reports whether a stored battle reproduces.
type ReplayResult struct {
	BattleID   string   `json:"battle_id"`
	Match      bool     `json:"match"`
	Commands   int      `json:"commands"`
	Recorded   int      `json:"recorded"`
	Replayed   int      `json:"replayed"`
	Mismatches []string `json:"mismatches,omitempty"`
}

// Replay re-executes a stored battle's command journal on a fresh engine
// seeded like the original and compares the event stream. Events match
// when their type and data are identical; ids and timestamps are ignored.
func Replay(ctx context.Context, st *store.Store, battleID string) (*ReplayResult, error) {
	log, err := st.GetBattleLog(ctx, battleID)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", battleID, err)
	}
	return ReplayLog(log)
}

// ReplayLog replays an already loaded battle log.
func ReplayLog(log store.BattleLog) (*ReplayResult, error) {
	var replayed []event.Envelope
	bus := event.NewInMemoryBus()
	bus.SubscribeNamed("replay", func(_ context.Context, env event.Envelope) error {
		replayed = append(replayed, env)
		return nil
	})

	eng, err := newEngine(log.Battle, bus, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", log.Battle.ID, err)
	}

	// Step errors are part of the recorded behaviour; only the event
	// stream is compared.
	for _, cmd := range log.Commands {
		_, _ = Apply(eng, cmd)
	}

	res := &ReplayResult{
		BattleID: log.Battle.ID,
		Commands: len(log.Commands),
		Recorded: len(log.Events),
		Replayed: len(replayed),
	}
	res.Mismatches = compareStreams(log.Events, replayed)
	res.Match = len(res.Mismatches) == 0
	return res, nil
}

// ReplayAll replays every stored battle in insertion order.
func ReplayAll(ctx context.Context, st *store.Store) ([]*ReplayResult, error) {
	battles, err := st.ListBattles(ctx)
	if err != nil {
		return nil, fmt.Errorf("replay all: %w", err)
	}
	results := make([]*ReplayResult, 0, len(battles))
	for _, b := range battles {
		res, err := Replay(ctx, st, b.ID)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func compareStreams(recorded, replayed []event.Envelope) []string {
	var out []string
	n := max(len(recorded), len(replayed))
	for i := range n {
		switch {
		case i >= len(recorded):
			out = append(out, fmt.Sprintf("event %d: unexpected %s %s", i+1, replayed[i].Type, replayed[i].Data))
		case i >= len(replayed):
			out = append(out, fmt.Sprintf("event %d: missing %s %s", i+1, recorded[i].Type, recorded[i].Data))
		case recorded[i].Type != replayed[i].Type || recorded[i].Data != replayed[i].Data:
			out = append(out, fmt.Sprintf("event %d: recorded %s %s, replayed %s %s",
				i+1, recorded[i].Type, recorded[i].Data, replayed[i].Type, replayed[i].Data))
		}
	}
	return out
}
