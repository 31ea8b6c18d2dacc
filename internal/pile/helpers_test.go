package pile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skyoxu/rouge/internal/card"
	"github.com/skyoxu/rouge/internal/clock"
	"github.com/skyoxu/rouge/internal/event"
	"github.com/skyoxu/rouge/internal/ident"
	"github.com/skyoxu/rouge/internal/rng"
)

func testDef(t *testing.T, id string, upgradedID ...string) card.Definition {
	t.Helper()
	spec := card.Spec{
		ID:         id,
		Name:       id,
		Type:       card.Attack,
		Cost:       1,
		TargetRule: card.SingleEnemy,
		TextKey:    "card." + id,
		Rarity:     "common",
		ClassTag:   "neutral",
	}
	if len(upgradedID) > 0 {
		spec.UpgradedID = &upgradedID[0]
	}
	def, err := card.NewDefinition(spec)
	require.NoError(t, err)
	return def
}

// newTestEngine builds an engine with deterministic ids and timestamps.
func newTestEngine(t *testing.T, seed int32, opts ...Option) *Engine {
	t.Helper()
	base := []Option{
		WithIDGenerator(ident.NewSequential("card")),
		WithEventIDGenerator(ident.NewSequential("evt")),
		WithRunID("run-1"),
		WithBattleID("battle-1"),
		WithNow(clock.NewDeterministic().Now),
	}
	e, err := New(rng.New(seed), append(base, opts...)...)
	require.NoError(t, err)
	return e
}

func addCards(t *testing.T, e *Engine, ids ...string) []card.Ref {
	t.Helper()
	refs := make([]card.Ref, 0, len(ids))
	for _, id := range ids {
		ref, err := e.AddCard(testDef(t, id))
		require.NoError(t, err)
		refs = append(refs, ref)
	}
	return refs
}

func instanceIDs(refs []card.Ref) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.InstanceID
	}
	return out
}

func envelopesOfType(envs []event.Envelope, typ string) []event.Envelope {
	var out []event.Envelope
	for _, e := range envs {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func drawOrders(t *testing.T, envs []event.Envelope) []int64 {
	t.Helper()
	var out []int64
	for _, env := range envelopesOfType(envs, event.TypeCardDrawn) {
		p, err := event.DecodeCardDrawn(env)
		require.NoError(t, err)
		out = append(out, p.DrawOrder)
	}
	return out
}

// assertPartition checks every instance id sits in exactly one pile.
func assertPartition(t *testing.T, e *Engine, wantTotal int) {
	t.Helper()
	seen := make(map[string]Type)
	for _, pt := range []Type{DrawPile, Hand, DiscardPile, ExhaustPile} {
		for _, r := range e.Pile(pt) {
			prev, dup := seen[r.InstanceID]
			require.Falsef(t, dup, "instance %s in %s and %s", r.InstanceID, prev, pt)
			seen[r.InstanceID] = pt
		}
	}
	require.Equal(t, wantTotal, len(seen))
	require.Equal(t, wantTotal, e.Total())
}
