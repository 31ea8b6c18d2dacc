package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/skyoxu/rouge/internal/card"
	"github.com/skyoxu/rouge/internal/pile"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Piles    string // Final pile layout for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.Piles != "" {
		fmt.Fprintf(&buf, "\nPiles:\n%s", e.Piles)
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns one message per
// failure.
func EvaluateAssertions(result *Result, eng *pile.Engine, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, eng, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, eng *pile.Engine, a Assertion) error {
	switch a.Type {
	case AssertPileCount:
		return assertPileCount(eng, a)
	case AssertTotal:
		return assertTotal(eng, a)
	case AssertEventCount:
		return assertEventCount(result, eng, a)
	case AssertDrawOrders:
		return assertDrawOrders(result, eng, a)
	case AssertPartition:
		return assertPartition(result, eng)
	case AssertDefinition:
		return assertDefinition(eng, a)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

func assertPileCount(eng *pile.Engine, a Assertion) error {
	t, err := pile.ParseType(a.Pile)
	if err != nil {
		return err
	}
	if got := eng.Count(t); got != a.Count {
		return &AssertionError{
			Type:     AssertPileCount,
			Expected: fmt.Sprintf("%d cards in %s", a.Count, t),
			Actual:   fmt.Sprintf("%d cards", got),
			Piles:    describePiles(eng),
		}
	}
	return nil
}

func assertTotal(eng *pile.Engine, a Assertion) error {
	if got := eng.Total(); got != a.Count {
		return &AssertionError{
			Type:     AssertTotal,
			Expected: fmt.Sprintf("%d cards in total", a.Count),
			Actual:   fmt.Sprintf("%d cards", got),
			Piles:    describePiles(eng),
		}
	}
	return nil
}

func assertEventCount(result *Result, eng *pile.Engine, a Assertion) error {
	if got := len(result.EventsOfType(a.Event)); got != a.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d %s events", a.Count, a.Event),
			Actual:   fmt.Sprintf("%d events", got),
			Piles:    describePiles(eng),
		}
	}
	return nil
}

func assertDrawOrders(result *Result, eng *pile.Engine, a Assertion) error {
	got, err := result.DrawOrders()
	if err != nil {
		return err
	}
	want := a.Orders
	if want == nil {
		want = []int64{}
	}
	if !slices.Equal(got, want) {
		return &AssertionError{
			Type:     AssertDrawOrders,
			Expected: fmt.Sprintf("draw orders %v", want),
			Actual:   fmt.Sprintf("draw orders %v", got),
			Piles:    describePiles(eng),
		}
	}
	return nil
}

// assertPartition checks that every instance added and not removed sits in
// exactly one pile, and nothing else does.
func assertPartition(result *Result, eng *pile.Engine) error {
	removed := make(map[string]bool, len(result.Removed))
	for _, id := range result.Removed {
		removed[id] = true
	}
	expected := make(map[string]bool, len(result.Added))
	for _, id := range result.Added {
		if !removed[id] {
			expected[id] = true
		}
	}

	seen := make(map[string]pile.Type)
	for _, t := range []pile.Type{pile.DrawPile, pile.Hand, pile.DiscardPile, pile.ExhaustPile} {
		for _, ref := range eng.Pile(t) {
			if prev, dup := seen[ref.InstanceID]; dup {
				return &AssertionError{
					Type:     AssertPartition,
					Expected: fmt.Sprintf("%s in exactly one pile", ref.InstanceID),
					Actual:   fmt.Sprintf("found in %s and %s", prev, t),
					Piles:    describePiles(eng),
				}
			}
			seen[ref.InstanceID] = t
		}
	}

	var missing, extra []string
	for id := range expected {
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
		}
	}
	for id := range seen {
		if !expected[id] {
			extra = append(extra, id)
		}
	}
	if len(missing) > 0 || len(extra) > 0 {
		slices.Sort(missing)
		slices.Sort(extra)
		return &AssertionError{
			Type:     AssertPartition,
			Expected: fmt.Sprintf("%d live instances across piles", len(expected)),
			Actual:   fmt.Sprintf("missing %v, unexpected %v", missing, extra),
			Piles:    describePiles(eng),
		}
	}
	return nil
}

func assertDefinition(eng *pile.Engine, a Assertion) error {
	id, err := resolveTarget(eng, a.Target)
	if err != nil {
		return err
	}
	ref, where, ok := eng.Find(id)
	if !ok {
		return &AssertionError{
			Type:     AssertDefinition,
			Expected: fmt.Sprintf("%s to be %s", id, a.Definition),
			Actual:   "instance not found",
			Piles:    describePiles(eng),
		}
	}
	if ref.DefinitionID != a.Definition {
		return &AssertionError{
			Type:     AssertDefinition,
			Expected: fmt.Sprintf("%s to be %s", id, a.Definition),
			Actual:   fmt.Sprintf("%s in %s", ref.DefinitionID, where),
			Piles:    describePiles(eng),
		}
	}
	return nil
}

func describePiles(eng *pile.Engine) string {
	var buf strings.Builder
	for _, t := range []pile.Type{pile.DrawPile, pile.Hand, pile.DiscardPile, pile.ExhaustPile} {
		fmt.Fprintf(&buf, "  %-8s %s\n", t.String()+":", formatRefs(eng.Pile(t)))
	}
	return buf.String()
}

func formatRefs(refs []card.Ref) string {
	parts := make([]string, len(refs))
	for i, r := range refs {
		parts[i] = r.InstanceID + "(" + r.DefinitionID + ")"
	}
	return "[" + strings.Join(parts, " ") + "]"
}
