package store

import (
	"context"
	"fmt"

	"github.com/skyoxu/rouge/internal/event"
)

// BattleLog is everything stored for one battle, in replay order.
type BattleLog struct {
	Battle     Battle
	Commands   []Command
	Events     []event.Envelope
	LastSeq    int64
	TypeCounts map[string]int
}

// GetBattleLog retrieves a battle together with its command journal and
// event stream. Returns sql.ErrNoRows (wrapped) if the battle does not exist.
func (s *Store) GetBattleLog(ctx context.Context, battleID string) (BattleLog, error) {
	log := BattleLog{TypeCounts: map[string]int{}}

	b, err := s.ReadBattle(ctx, battleID)
	if err != nil {
		return log, fmt.Errorf("get battle log: %w", err)
	}
	log.Battle = b

	if log.Commands, err = s.ReadCommands(ctx, battleID); err != nil {
		return log, fmt.Errorf("get battle log: %w", err)
	}
	if log.Events, err = s.ReadEvents(ctx, battleID); err != nil {
		return log, fmt.Errorf("get battle log: %w", err)
	}

	for _, cmd := range log.Commands {
		if cmd.Seq > log.LastSeq {
			log.LastSeq = cmd.Seq
		}
	}
	for _, env := range log.Events {
		log.TypeCounts[env.Type]++
	}
	return log, nil
}
