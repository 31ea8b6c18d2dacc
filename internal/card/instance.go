package card

import "sort"

// Instance is a definition plus per-battle modifiers: a temporary cost
// delta, a set of turn flags and the upgraded marker.
//
// Like Definition it is a value type. The flag set is copied on
// construction and on every read.
type Instance struct {
	def       Definition
	costDelta int
	flags     map[string]struct{}
	upgraded  bool
}

// NewInstance returns an unmodified, non-upgraded instance of def.
func NewInstance(def Definition) (Instance, error) {
	return NewInstanceWith(def, 0, nil, false, nil)
}

// NewInstanceWith builds an instance with explicit modifiers. An upgraded
// instance requires def to resolve an upgraded id, either explicitly or
// through upgradeMap.
func NewInstanceWith(def Definition, costDelta int, turnFlags []string, upgraded bool, upgradeMap map[string]string) (Instance, error) {
	if def.IsZero() {
		return Instance{}, invalid(ErrCodeMissingDefinition, "definition", "definition must not be empty")
	}
	if upgraded {
		if _, err := def.UpgradedIDOrErr(upgradeMap); err != nil {
			return Instance{}, err
		}
	}
	flags := make(map[string]struct{}, len(turnFlags))
	for _, f := range turnFlags {
		flags[f] = struct{}{}
	}
	return Instance{def: def, costDelta: costDelta, flags: flags, upgraded: upgraded}, nil
}

func (i Instance) Definition() Definition { return i.def }
func (i Instance) CostDelta() int         { return i.costDelta }
func (i Instance) Upgraded() bool         { return i.upgraded }

// EffectiveCost is the definition cost plus the temporary delta, floored
// at zero.
func (i Instance) EffectiveCost() int {
	c := i.def.Cost() + i.costDelta
	if c < 0 {
		return 0
	}
	return c
}

// HasFlag reports whether the turn flag is set.
func (i Instance) HasFlag(flag string) bool {
	_, ok := i.flags[flag]
	return ok
}

// TurnFlags returns the flags in sorted order.
func (i Instance) TurnFlags() []string {
	out := make([]string, 0, len(i.flags))
	for f := range i.flags {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// WithTurnFlag returns a copy with flag set.
func (i Instance) WithTurnFlag(flag string) Instance {
	out := i.copyFlags()
	out.flags[flag] = struct{}{}
	return out
}

// WithCostDelta returns a copy with the temporary cost delta replaced.
func (i Instance) WithCostDelta(delta int) Instance {
	out := i.copyFlags()
	out.costDelta = delta
	return out
}

// ClearTurnFlags returns a copy with no turn flags, as at end of turn.
func (i Instance) ClearTurnFlags() Instance {
	out := i
	out.flags = make(map[string]struct{})
	return out
}

func (i Instance) copyFlags() Instance {
	out := i
	out.flags = make(map[string]struct{}, len(i.flags)+1)
	for f := range i.flags {
		out.flags[f] = struct{}{}
	}
	return out
}
