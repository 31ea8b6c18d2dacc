package harness

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"

	"github.com/skyoxu/rouge/internal/card"
	"github.com/skyoxu/rouge/internal/event"
)

// TraceSnapshot renders a result as canonical JSON, indented for review.
// Event data is decoded so the golden file shows payload fields rather than
// an escaped string.
func TraceSnapshot(result *Result) ([]byte, error) {
	events := make([]any, len(result.Events))
	for i, env := range result.Events {
		events[i] = map[string]any{
			"id":   env.ID,
			"type": env.Type,
			"time": env.Timestamp.Format(time.RFC3339Nano),
			"data": eventData(env),
		}
	}

	commands := make([]any, len(result.Commands))
	for i, cmd := range result.Commands {
		commands[i] = cmd.Op
	}

	b := result.Battle
	snapshot := map[string]any{
		"scenario": result.Scenario,
		"battle": map[string]any{
			"id":         b.ID,
			"run_id":     b.RunID,
			"hero_id":    b.HeroID,
			"seed":       b.Seed,
			"hand_limit": b.HandLimit,
		},
		"commands": commands,
		"events":   events,
		"final": map[string]any{
			"turn":       result.Final.Turn,
			"draw_order": result.Final.DrawOrder,
			"draw":       refStrings(result.Final.Draw),
			"hand":       refStrings(result.Final.Hand),
			"discard":    refStrings(result.Final.Discard),
			"exhaust":    refStrings(result.Final.Exhaust),
		},
	}

	raw, err := event.MarshalCanonical(snapshot)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func eventData(env event.Envelope) any {
	switch env.Type {
	case event.TypeCardDrawn:
		if p, err := event.DecodeCardDrawn(env); err == nil {
			return p.Fields()
		}
	case event.TypeCardDiscarded:
		if p, err := event.DecodeCardDiscarded(env); err == nil {
			return p.Fields()
		}
	}
	return env.Data
}

// refStrings renders refs as instance=definition, with a trailing + on
// upgraded cards.
func refStrings(refs []card.Ref) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.InstanceID + "=" + r.DefinitionID
		if r.Upgraded {
			out[i] += "+"
		}
	}
	return out
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(t.Context(), scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	trace, err := TraceSnapshot(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, trace)
	return nil
}
