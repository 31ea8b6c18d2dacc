package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/skyoxu/rouge/internal/event"
)

var testTime = time.Date(2025, 1, 2, 3, 4, 5, 6000, time.UTC)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestBattle writes a battle with minimal required fields.
func createTestBattle(t *testing.T, s *Store, id string) Battle {
	t.Helper()
	b := Battle{
		ID:        id,
		RunID:     "run-1",
		HeroID:    "hero_0",
		Seed:      42,
		HandLimit: 10,
		Scenario:  "starter",
	}
	if err := s.WriteBattle(t.Context(), b); err != nil {
		t.Fatalf("WriteBattle() failed: %v", err)
	}
	return b
}

// createTestEnvelope builds a core.card.drawn envelope.
func createTestEnvelope(t *testing.T, id string, order int64) event.Envelope {
	t.Helper()
	env, err := event.NewEnvelope(id, "card_pile", event.CardDrawn{
		RunID:            "run-1",
		BattleID:         "battle-1",
		HeroID:           "hero_0",
		CardInstanceID:   "card-1",
		CardDefinitionID: "strike",
		DrawOrder:        order,
	}, testTime.Add(time.Duration(order)*time.Millisecond))
	if err != nil {
		t.Fatalf("NewEnvelope() failed: %v", err)
	}
	return env
}
