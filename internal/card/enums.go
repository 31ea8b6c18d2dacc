package card

import "fmt"

// Type is the card category.
type Type int

const (
	Attack Type = iota
	Defense
	Skill
)

var typeNames = [...]string{"Attack", "Defense", "Skill"}

func (t Type) String() string {
	if t.Valid() {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Valid reports whether t is a declared card type.
func (t Type) Valid() bool {
	return t >= Attack && t <= Skill
}

// ParseType parses a type name as produced by String.
func ParseType(s string) (Type, error) {
	for i, name := range typeNames {
		if name == s {
			return Type(i), nil
		}
	}
	return 0, invalid(ErrCodeUnknownType, "type", "unknown card type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, invalid(ErrCodeUnknownType, "type", "unknown card type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TargetRule describes what a card may target when played.
type TargetRule int

const (
	SingleEnemy TargetRule = iota
	AllEnemies
	SingleAlly
	AllAllies
	RandomTarget
)

var targetRuleNames = [...]string{"SingleEnemy", "AllEnemies", "SingleAlly", "AllAllies", "Random"}

func (r TargetRule) String() string {
	if r.Valid() {
		return targetRuleNames[r]
	}
	return fmt.Sprintf("TargetRule(%d)", int(r))
}

// Valid reports whether r is a declared target rule.
func (r TargetRule) Valid() bool {
	return r >= SingleEnemy && r <= RandomTarget
}

// ParseTargetRule parses a rule name as produced by String.
func ParseTargetRule(s string) (TargetRule, error) {
	for i, name := range targetRuleNames {
		if name == s {
			return TargetRule(i), nil
		}
	}
	return 0, invalid(ErrCodeUnknownTargetRule, "target_rule", "unknown target rule %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (r TargetRule) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, invalid(ErrCodeUnknownTargetRule, "target_rule", "unknown target rule %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *TargetRule) UnmarshalText(b []byte) error {
	parsed, err := ParseTargetRule(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
