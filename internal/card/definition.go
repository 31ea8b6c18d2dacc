// Package card defines the immutable card catalog types and the lightweight
// runtime references the pile engine moves between piles.
package card

import (
	"strconv"
	"strings"
	"unicode"
)

// Cost bounds for a card definition, inclusive.
const (
	MinCost = 0
	MaxCost = 10
)

// EffectCommand is one step of a card's effect: a kind plus string-keyed
// parameters. The effect system interprets it; this package only stores it.
type EffectCommand struct {
	Kind       string            `json:"kind" yaml:"kind"`
	Parameters map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
}

func (c EffectCommand) clone() EffectCommand {
	out := EffectCommand{Kind: c.Kind}
	if c.Parameters != nil {
		out.Parameters = make(map[string]string, len(c.Parameters))
		for k, v := range c.Parameters {
			out.Parameters[k] = v
		}
	}
	return out
}

func cloneCommands(cmds []EffectCommand) []EffectCommand {
	out := make([]EffectCommand, len(cmds))
	for i, c := range cmds {
		out[i] = c.clone()
	}
	return out
}

// Spec carries the fields of a Definition. It is the mutable input to
// NewDefinition and the output of Definition.Spec.
type Spec struct {
	ID             string          `json:"id" yaml:"id"`
	Name           string          `json:"name" yaml:"name"`
	Type           Type            `json:"type" yaml:"type"`
	Cost           int             `json:"cost" yaml:"cost"`
	TargetRule     TargetRule      `json:"target_rule" yaml:"target_rule"`
	EffectCommands []EffectCommand `json:"effects,omitempty" yaml:"effects,omitempty"`
	TextKey        string          `json:"text_key" yaml:"text_key"`
	Rarity         string          `json:"rarity" yaml:"rarity"`
	ClassTag       string          `json:"class_tag" yaml:"class_tag"`
	UpgradedID     *string         `json:"upgraded_id,omitempty" yaml:"upgraded_id,omitempty"`
}

// Definition is an immutable catalog entry.
//
// Definitions are built once through NewDefinition and never change. The
// effect command list is copied on the way in and on the way out, so no
// caller ever shares a mutable collection with a definition.
type Definition struct {
	spec Spec
}

// NewDefinition validates spec and returns the definition it describes.
// All validation happens here; a Definition that exists is valid.
func NewDefinition(spec Spec) (Definition, error) {
	if err := validate(spec); err != nil {
		return Definition{}, err
	}
	spec.EffectCommands = cloneCommands(spec.EffectCommands)
	if spec.UpgradedID != nil {
		up := *spec.UpgradedID
		spec.UpgradedID = &up
	}
	return Definition{spec: spec}, nil
}

func (d Definition) ID() string             { return d.spec.ID }
func (d Definition) Name() string           { return d.spec.Name }
func (d Definition) Type() Type             { return d.spec.Type }
func (d Definition) Cost() int              { return d.spec.Cost }
func (d Definition) TargetRule() TargetRule { return d.spec.TargetRule }
func (d Definition) TextKey() string        { return d.spec.TextKey }
func (d Definition) Rarity() string         { return d.spec.Rarity }
func (d Definition) ClassTag() string       { return d.spec.ClassTag }

// IsZero reports whether d is the zero Definition (never produced by
// NewDefinition).
func (d Definition) IsZero() bool {
	return d.spec.ID == ""
}

// EffectCommands returns a copy of the effect command list.
func (d Definition) EffectCommands() []EffectCommand {
	return cloneCommands(d.spec.EffectCommands)
}

// UpgradedID returns the explicit upgraded definition id, if any.
func (d Definition) UpgradedID() (string, bool) {
	if d.spec.UpgradedID == nil {
		return "", false
	}
	return *d.spec.UpgradedID, true
}

// Spec returns a deep copy of the definition's fields.
func (d Definition) Spec() Spec {
	s := d.spec
	s.EffectCommands = cloneCommands(d.spec.EffectCommands)
	if d.spec.UpgradedID != nil {
		up := *d.spec.UpgradedID
		s.UpgradedID = &up
	}
	return s
}

// With returns a new definition with the changes applied by fn. The
// receiver is left untouched and the result is revalidated.
func (d Definition) With(fn func(*Spec)) (Definition, error) {
	s := d.Spec()
	fn(&s)
	return NewDefinition(s)
}

// ResolveUpgradedID returns the id this definition upgrades into: the
// explicit upgraded id when present, otherwise the entry for this id in
// fallback. There is no process-wide default map; pass nil for none.
func (d Definition) ResolveUpgradedID(fallback map[string]string) (string, bool) {
	if up, ok := d.UpgradedID(); ok && strings.TrimSpace(up) != "" {
		return up, true
	}
	if mapped, ok := fallback[d.spec.ID]; ok && strings.TrimSpace(mapped) != "" {
		return mapped, true
	}
	return "", false
}

// UpgradedIDOrErr is ResolveUpgradedID that fails when no mapping exists.
func (d Definition) UpgradedIDOrErr(fallback map[string]string) (string, error) {
	if up, ok := d.ResolveUpgradedID(fallback); ok {
		return up, nil
	}
	return "", invalid(ErrCodeNoUpgradeMapping, "upgraded_id", "definition %q has no upgraded id mapping", d.spec.ID)
}

func validate(s Spec) error {
	if err := ValidateID(s.ID); err != nil {
		return err
	}
	if isBlank(s.Name) {
		return invalid(ErrCodeEmptyName, "name", "name must not be empty")
	}
	if !s.Type.Valid() {
		return invalid(ErrCodeUnknownType, "type", "unknown card type %d", int(s.Type))
	}
	if !s.TargetRule.Valid() {
		return invalid(ErrCodeUnknownTargetRule, "target_rule", "unknown target rule %d", int(s.TargetRule))
	}
	if s.Cost < MinCost || s.Cost > MaxCost {
		return invalid(ErrCodeCostOutOfRange, "cost", "cost %d must be within [%d, %d]", s.Cost, MinCost, MaxCost)
	}
	for i, cmd := range s.EffectCommands {
		if isBlank(cmd.Kind) {
			return invalid(ErrCodeEmptyEffectKind, "effects", "effects[%d].kind must not be empty", i)
		}
	}
	if isBlank(s.TextKey) {
		return invalid(ErrCodeEmptyTextKey, "text_key", "text key must not be empty")
	}
	if isBlank(s.Rarity) {
		return invalid(ErrCodeEmptyRarity, "rarity", "rarity must not be empty")
	}
	if isBlank(s.ClassTag) {
		return invalid(ErrCodeEmptyClassTag, "class_tag", "class tag must not be empty")
	}
	if s.UpgradedID != nil {
		if isBlank(*s.UpgradedID) {
			return invalid(ErrCodeInvalidUpgradeID, "upgraded_id", "upgraded id must be absent or non-empty")
		}
		if *s.UpgradedID == s.ID {
			return invalid(ErrCodeInvalidUpgradeID, "upgraded_id", "upgraded id must not equal id %q", s.ID)
		}
	}
	return nil
}

// ValidateID checks a definition id: it must not be blank and, when it is
// purely numeric, it must be greater than zero.
func ValidateID(id string) error {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return invalid(ErrCodeEmptyID, "id", "id must not be empty")
	}
	if allDigits(trimmed) {
		if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil && n <= 0 {
			return invalid(ErrCodeNonPositiveID, "id", "numeric id %q must be > 0", id)
		}
	}
	return nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
