package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyoxu/rouge/internal/card"
	"github.com/skyoxu/rouge/internal/pile"
	"github.com/skyoxu/rouge/internal/store"
)

func assertionFixture(t *testing.T) (*Result, *pile.Engine) {
	t.Helper()
	s := &Scenario{
		Name:        "fixture",
		Description: "three jabs, two drawn",
		Cards:       []card.Spec{jabSpec()},
		Steps: []Step{
			{Op: OpAdd, Card: "jab", Repeat: 3},
			{Op: OpDraw, Count: 2},
		},
	}
	result, err := Run(t.Context(), s)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	eng, err := newEngine(result.Battle, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, eng.Restore(result.Final))
	return result, eng
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	result, eng := assertionFixture(t)

	errs := EvaluateAssertions(result, eng, []Assertion{
		{Type: AssertPileCount, Target: Target{Pile: "hand"}, Count: 2},
		{Type: AssertPileCount, Target: Target{Pile: "draw"}, Count: 1},
		{Type: AssertPileCount, Target: Target{Pile: "discard"}, Count: 0},
		{Type: AssertTotal, Count: 3},
		{Type: AssertEventCount, Event: "core.card.drawn", Count: 2},
		{Type: AssertEventCount, Event: "core.card.discarded", Count: 0},
		{Type: AssertDrawOrders, Orders: []int64{1, 2}},
		{Type: AssertPartition},
		{Type: AssertDefinition, Target: Target{Instance: "card-1"}, Definition: "jab"},
		{Type: AssertDefinition, Target: Target{Pile: "hand", Index: intPtr(-1)}, Definition: "jab"},
	})
	assert.Empty(t, errs)
}

func TestAssertPartition_DetectsDuplicate(t *testing.T) {
	result, eng := assertionFixture(t)

	state := result.Final
	state.Discard = []card.Ref{state.Hand[0]}
	require.Error(t, eng.Restore(state), "Restore rejects duplicates itself")

	// Fake a lost card instead: the engine state is valid but the journal
	// says a fourth instance exists.
	result.Added = append(result.Added, "card-4")
	err := assertPartition(result, eng)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing [card-4]")
}

func TestAssertPartition_RespectsRemoved(t *testing.T) {
	result, eng := assertionFixture(t)
	require.True(t, eng.RemoveCard("card-1"))

	err := assertPartition(result, eng)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing [card-1]")

	result.Removed = []string{"card-1"}
	assert.NoError(t, assertPartition(result, eng))
}

func TestAssertPartition_Unexpected(t *testing.T) {
	result, eng := assertionFixture(t)
	result.Added = result.Added[:2]

	err := assertPartition(result, eng)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected [card-3]")
}

func TestAssertDefinition_Failures(t *testing.T) {
	_, eng := assertionFixture(t)

	err := assertDefinition(eng, Assertion{Type: AssertDefinition, Target: Target{Instance: "card-9"}, Definition: "jab"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instance not found")

	err = assertDefinition(eng, Assertion{Type: AssertDefinition, Target: Target{Pile: "exhaust", Index: intPtr(0)}, Definition: "jab"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestAssertionError_Format(t *testing.T) {
	_, eng := assertionFixture(t)
	err := assertTotal(eng, Assertion{Type: AssertTotal, Count: 7})

	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	msg := ae.Error()
	assert.Contains(t, msg, "Assertion failed: total")
	assert.Contains(t, msg, "Expected: 7 cards in total")
	assert.Contains(t, msg, "Actual: 3 cards")
	assert.Contains(t, msg, "hand:    [card-3(jab) card-2(jab)]")
}

func TestResult_DrawOrdersEmpty(t *testing.T) {
	r := NewResult("empty")
	orders, err := r.DrawOrders()
	require.NoError(t, err)
	assert.Equal(t, []int64{}, orders)
	assert.Equal(t, []store.Command{}, r.Commands)
}
