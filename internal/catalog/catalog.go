// Package catalog loads card definitions from CUE files.
//
// A catalog directory holds one CUE package. Cards live under the top-level
// card struct, keyed by definition id:
//
//	package cards
//
//	card: strike: {
//		name:        "Strike"
//		type:        "Attack"
//		cost:        1
//		target:      "SingleEnemy"
//		text_key:    "card.strike"
//		rarity:      "common"
//		class_tag:   "warrior"
//		upgraded_id: "strike_plus"
//		effects: [{kind: "Damage", params: {amount: 6}}]
//	}
//
// Every entry is validated through card.NewDefinition, so a loaded Catalog
// only holds valid definitions.
package catalog

import (
	"fmt"
	"sort"

	"github.com/skyoxu/rouge/internal/card"
)

// Catalog is an immutable set of card definitions keyed by id.
type Catalog struct {
	defs map[string]card.Definition
	ids  []string
}

// New builds a catalog from defs. Duplicate ids are rejected.
func New(defs ...card.Definition) (*Catalog, error) {
	c := &Catalog{defs: make(map[string]card.Definition, len(defs))}
	for _, d := range defs {
		if d.IsZero() {
			return nil, &LoadError{Code: ErrCodeInvalidCard, Message: "empty definition"}
		}
		if _, dup := c.defs[d.ID()]; dup {
			return nil, &LoadError{Code: ErrCodeDuplicateID, Message: fmt.Sprintf("duplicate card id %q", d.ID())}
		}
		c.defs[d.ID()] = d
		c.ids = append(c.ids, d.ID())
	}
	sort.Strings(c.ids)
	return c, nil
}

// Get returns the definition with the given id.
func (c *Catalog) Get(id string) (card.Definition, bool) {
	d, ok := c.defs[id]
	return d, ok
}

// IDs returns the definition ids in sorted order.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.ids...)
}

// Len returns the number of definitions.
func (c *Catalog) Len() int {
	return len(c.ids)
}

// Definitions returns every definition, sorted by id.
func (c *Catalog) Definitions() []card.Definition {
	out := make([]card.Definition, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.defs[id])
	}
	return out
}

// UpgradeMap returns definition id -> upgraded id for every definition
// that declares one.
func (c *Catalog) UpgradeMap() map[string]string {
	out := make(map[string]string)
	for id, d := range c.defs {
		if up, ok := d.UpgradedID(); ok {
			out[id] = up
		}
	}
	return out
}

// MissingUpgradeTargets lists, sorted, the ids whose upgraded id names a
// card that is not in the catalog.
func (c *Catalog) MissingUpgradeTargets() []string {
	var out []string
	for _, id := range c.ids {
		if up, ok := c.defs[id].UpgradedID(); ok {
			if _, exists := c.defs[up]; !exists {
				out = append(out, id)
			}
		}
	}
	return out
}
