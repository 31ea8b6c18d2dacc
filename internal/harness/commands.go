package harness

import (
	"encoding/json"
	"fmt"

	"github.com/skyoxu/rouge/internal/card"
	"github.com/skyoxu/rouge/internal/pile"
	"github.com/skyoxu/rouge/internal/store"
)

// Journaled command arguments. Targets are resolved to instance ids before
// they are journaled and add carries the full definition.
type (
	addArgs struct {
		Definition card.Spec `json:"definition"`
	}
	countArgs struct {
		Count int `json:"count"`
	}
	instanceArgs struct {
		Instance string `json:"instance"`
	}
	turnArgs struct {
		Turn int `json:"turn"`
	}
)

// Outcome is what applying one command did.
type Outcome struct {
	// Instance is the id created by add or targeted by a card operation.
	Instance string
	// Applied is false for upgrade and remove calls the engine ignored.
	Applied bool
}

// newCommand journals op with args at seq.
func newCommand(seq int64, op string, args any) (store.Command, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return store.Command{}, fmt.Errorf("encode %s args: %w", op, err)
	}
	return store.Command{Seq: seq, Op: op, Args: raw}, nil
}

// Apply executes one journaled command against eng.
func Apply(eng *pile.Engine, cmd store.Command) (Outcome, error) {
	switch cmd.Op {
	case OpAdd:
		var args addArgs
		if err := decodeArgs(cmd, &args); err != nil {
			return Outcome{}, err
		}
		def, err := card.NewDefinition(args.Definition)
		if err != nil {
			return Outcome{}, err
		}
		ref, err := eng.AddCard(def)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Instance: ref.InstanceID, Applied: true}, nil

	case OpDraw:
		var args countArgs
		if err := decodeArgs(cmd, &args); err != nil {
			return Outcome{}, err
		}
		return Outcome{Applied: true}, eng.Draw(args.Count)

	case OpDiscard, OpExhaust, OpUpgrade, OpRemove:
		var args instanceArgs
		if err := decodeArgs(cmd, &args); err != nil {
			return Outcome{}, err
		}
		out := Outcome{Instance: args.Instance, Applied: true}
		switch cmd.Op {
		case OpDiscard:
			return out, eng.Discard(args.Instance)
		case OpExhaust:
			eng.Exhaust(args.Instance)
		case OpUpgrade:
			out.Applied = eng.UpgradeCard(args.Instance)
		case OpRemove:
			out.Applied = eng.RemoveCard(args.Instance)
		}
		return out, nil

	case OpShuffle:
		return Outcome{Applied: true}, eng.Shuffle()

	case OpSetTurn:
		var args turnArgs
		if err := decodeArgs(cmd, &args); err != nil {
			return Outcome{}, err
		}
		return Outcome{Applied: true}, eng.SetTurn(args.Turn)

	default:
		return Outcome{}, fmt.Errorf("command %d: unknown op %q", cmd.Seq, cmd.Op)
	}
}

func decodeArgs(cmd store.Command, dst any) error {
	if len(cmd.Args) == 0 {
		return nil
	}
	if err := json.Unmarshal(cmd.Args, dst); err != nil {
		return fmt.Errorf("command %d: decode %s args: %w", cmd.Seq, cmd.Op, err)
	}
	return nil
}

// resolveTarget turns a scenario target into an instance id.
func resolveTarget(eng *pile.Engine, t Target) (string, error) {
	if t.Instance != "" {
		return t.Instance, nil
	}
	pt, err := pile.ParseType(t.Pile)
	if err != nil {
		return "", err
	}
	refs := eng.Pile(pt)
	i := *t.Index
	if i < 0 {
		i += len(refs)
	}
	if i < 0 || i >= len(refs) {
		return "", fmt.Errorf("%s pile has %d cards, index %d out of range", pt, len(refs), *t.Index)
	}
	return refs[i].InstanceID, nil
}
