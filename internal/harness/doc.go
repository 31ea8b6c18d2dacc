// Package harness runs card-pile scenarios against the pile engine and
// checks the outcome.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	seed: 42
//	hand_limit: 10
//	catalog: ../../catalog/testdata/starter   # optional CUE catalog dir
//	cards:                                    # optional inline definitions
//	  - id: strike
//	    name: Strike
//	    type: Attack
//	    cost: 1
//	    target_rule: SingleEnemy
//	    text_key: card.strike
//	    rarity: Common
//	    class_tag: warrior
//	steps:
//	  - op: add
//	    card: strike
//	    repeat: 3
//	  - op: draw
//	    count: 2
//	  - op: discard
//	    pile: hand
//	    index: 0
//	  - op: set_turn
//	    turn: -1
//	    expect_error: OUT_OF_RANGE
//	assertions:
//	  - type: pile_count
//	    pile: hand
//	    count: 1
//	  - type: draw_orders
//	    orders: [1, 2]
//
// # Steps
//
// add, draw, discard, exhaust, upgrade, remove, shuffle and set_turn map
// one-to-one onto engine operations. Card-targeting steps name an instance
// id, or a pile and an index (negative indexes count from the top). repeat
// runs a step several times; expect_error names a substring the step's
// error must contain.
//
// # Assertion Types
//
//   - pile_count: number of cards in a pile
//   - total: number of cards across all piles
//   - event_count: number of published events of a type
//   - draw_orders: the DrawOrder sequence of every core.card.drawn event
//   - partition: every live instance sits in exactly one pile
//   - definition: the definition id held by a targeted card
//
// # Deterministic Execution
//
// Instance ids are card-1, card-2, ... and event ids evt-1, evt-2, ....
// Timestamps come from clock.Deterministic. Every executed step is
// journaled as a store.Command whose arguments are self-contained, so a
// stored battle can be replayed without the original catalog.
package harness
