package pile

import (
	"fmt"
	"strings"

	"github.com/skyoxu/rouge/internal/fault"
)

// Type names one of the four piles.
type Type int

const (
	DrawPile Type = iota
	Hand
	DiscardPile
	ExhaustPile
)

// lookupOrder is the pile order for Find, UpgradeCard and RemoveCard.
var lookupOrder = [...]Type{Hand, DrawPile, DiscardPile, ExhaustPile}

var typeNames = [...]string{"draw", "hand", "discard", "exhaust"}

func (t Type) String() string {
	if t.Valid() {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Valid reports whether t is one of the four piles.
func (t Type) Valid() bool {
	return t >= DrawPile && t <= ExhaustPile
}

// ParseType parses a pile name: draw, hand, discard or exhaust.
func ParseType(s string) (Type, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range typeNames {
		if n == name {
			return Type(i), nil
		}
	}
	return 0, fault.InvalidArgument("pile", "unknown pile %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fault.InvalidArgument("pile", "unknown pile %d", int(t))
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
