package card

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func strPtr(s string) *string { return &s }

func validSpec(id string) Spec {
	return Spec{
		ID:         id,
		Name:       "Strike",
		Type:       Attack,
		Cost:       1,
		TargetRule: SingleEnemy,
		EffectCommands: []EffectCommand{
			{Kind: "Damage", Parameters: map[string]string{"amount": "6"}},
		},
		TextKey:  "card.strike",
		Rarity:   "common",
		ClassTag: "warrior",
	}
}

func TestNewDefinition_Valid(t *testing.T) {
	spec := validSpec("strike")
	spec.UpgradedID = strPtr("strike_plus")

	def, err := NewDefinition(spec)
	require.NoError(t, err)

	assert.Equal(t, "strike", def.ID())
	assert.Equal(t, "Strike", def.Name())
	assert.Equal(t, Attack, def.Type())
	assert.Equal(t, 1, def.Cost())
	assert.Equal(t, SingleEnemy, def.TargetRule())
	assert.Equal(t, "card.strike", def.TextKey())
	assert.Equal(t, "common", def.Rarity())
	assert.Equal(t, "warrior", def.ClassTag())
	up, ok := def.UpgradedID()
	assert.True(t, ok)
	assert.Equal(t, "strike_plus", up)
	assert.False(t, def.IsZero())
}

func TestNewDefinition_ValidationFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Spec)
		code   ErrorCode
	}{
		{"blank id", func(s *Spec) { s.ID = "  " }, ErrCodeEmptyID},
		{"zero numeric id", func(s *Spec) { s.ID = "0" }, ErrCodeNonPositiveID},
		{"zero padded numeric id", func(s *Spec) { s.ID = " 000 " }, ErrCodeNonPositiveID},
		{"blank name", func(s *Spec) { s.Name = "" }, ErrCodeEmptyName},
		{"unknown type", func(s *Spec) { s.Type = Type(9) }, ErrCodeUnknownType},
		{"unknown target rule", func(s *Spec) { s.TargetRule = TargetRule(-1) }, ErrCodeUnknownTargetRule},
		{"negative cost", func(s *Spec) { s.Cost = -1 }, ErrCodeCostOutOfRange},
		{"cost above max", func(s *Spec) { s.Cost = 11 }, ErrCodeCostOutOfRange},
		{"blank effect kind", func(s *Spec) { s.EffectCommands = []EffectCommand{{Kind: " "}} }, ErrCodeEmptyEffectKind},
		{"blank text key", func(s *Spec) { s.TextKey = "" }, ErrCodeEmptyTextKey},
		{"blank rarity", func(s *Spec) { s.Rarity = "\t" }, ErrCodeEmptyRarity},
		{"blank class tag", func(s *Spec) { s.ClassTag = "" }, ErrCodeEmptyClassTag},
		{"blank upgraded id", func(s *Spec) { s.UpgradedID = strPtr(" ") }, ErrCodeInvalidUpgradeID},
		{"self upgraded id", func(s *Spec) { s.UpgradedID = strPtr("strike") }, ErrCodeInvalidUpgradeID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec("strike")
			tt.mutate(&spec)

			_, err := NewDefinition(spec)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.Equal(t, tt.code, ValidationCode(err))
		})
	}
}

func TestNewDefinition_CostBoundsInclusive(t *testing.T) {
	for _, cost := range []int{MinCost, MaxCost} {
		spec := validSpec("strike")
		spec.Cost = cost
		_, err := NewDefinition(spec)
		assert.NoError(t, err, "cost %d", cost)
	}
}

func TestNewDefinition_PositiveNumericAndSignedIDsAllowed(t *testing.T) {
	for _, id := range []string{"42", "-1", "card_7"} {
		_, err := NewDefinition(validSpec(id))
		assert.NoError(t, err, "id %q", id)
	}
}

func TestDefinition_EffectCommandsAreCopiedOnConstruction(t *testing.T) {
	spec := validSpec("strike")
	def, err := NewDefinition(spec)
	require.NoError(t, err)

	spec.EffectCommands[0].Kind = "Heal"
	spec.EffectCommands[0].Parameters["amount"] = "999"
	spec.EffectCommands = append(spec.EffectCommands, EffectCommand{Kind: "Draw"})

	cmds := def.EffectCommands()
	require.Len(t, cmds, 1)
	assert.Equal(t, "Damage", cmds[0].Kind)
	assert.Equal(t, "6", cmds[0].Parameters["amount"])
}

func TestDefinition_EffectCommandsAreCopiedOnRead(t *testing.T) {
	def, err := NewDefinition(validSpec("strike"))
	require.NoError(t, err)

	cmds := def.EffectCommands()
	cmds[0].Parameters["amount"] = "0"

	assert.Equal(t, "6", def.EffectCommands()[0].Parameters["amount"])
}

func TestDefinition_UpgradedIDIsCopied(t *testing.T) {
	up := "strike_plus"
	spec := validSpec("strike")
	spec.UpgradedID = &up
	def, err := NewDefinition(spec)
	require.NoError(t, err)

	up = "changed"
	got, _ := def.UpgradedID()
	assert.Equal(t, "strike_plus", got)
}

func TestDefinition_WithReturnsNewValue(t *testing.T) {
	def, err := NewDefinition(validSpec("strike"))
	require.NoError(t, err)

	cheaper, err := def.With(func(s *Spec) { s.Cost = 0 })
	require.NoError(t, err)

	assert.Equal(t, 0, cheaper.Cost())
	assert.Equal(t, 1, def.Cost())
}

func TestDefinition_WithRevalidates(t *testing.T) {
	def, err := NewDefinition(validSpec("strike"))
	require.NoError(t, err)

	_, err = def.With(func(s *Spec) { s.Cost = 42 })
	assert.Equal(t, ErrCodeCostOutOfRange, ValidationCode(err))
}

func TestResolveUpgradedID(t *testing.T) {
	plain, err := NewDefinition(validSpec("strike"))
	require.NoError(t, err)

	_, ok := plain.ResolveUpgradedID(nil)
	assert.False(t, ok, "no explicit id and no fallback")

	got, ok := plain.ResolveUpgradedID(map[string]string{"strike": "strike_plus"})
	assert.True(t, ok)
	assert.Equal(t, "strike_plus", got)

	_, ok = plain.ResolveUpgradedID(map[string]string{"strike": "  "})
	assert.False(t, ok, "blank mapped ids are ignored")

	spec := validSpec("strike")
	spec.UpgradedID = strPtr("strike_explicit")
	explicit, err := NewDefinition(spec)
	require.NoError(t, err)
	got, ok = explicit.ResolveUpgradedID(map[string]string{"strike": "strike_plus"})
	assert.True(t, ok)
	assert.Equal(t, "strike_explicit", got, "explicit id wins over fallback")
}

func TestUpgradedIDOrErr(t *testing.T) {
	plain, err := NewDefinition(validSpec("strike"))
	require.NoError(t, err)

	_, err = plain.UpgradedIDOrErr(nil)
	assert.Equal(t, ErrCodeNoUpgradeMapping, ValidationCode(err))
}

func TestSpec_YAMLRoundTripUsesNames(t *testing.T) {
	src := `
id: bash
name: Bash
type: Attack
cost: 2
target_rule: AllEnemies
text_key: card.bash
rarity: uncommon
class_tag: warrior
upgraded_id: bash_plus
effects:
  - kind: Damage
    params: {amount: "8"}
`
	var spec Spec
	require.NoError(t, yaml.Unmarshal([]byte(src), &spec))

	def, err := NewDefinition(spec)
	require.NoError(t, err)
	assert.Equal(t, AllEnemies, def.TargetRule())
	assert.Equal(t, "8", def.EffectCommands()[0].Parameters["amount"])

	out, err := json.Marshal(def.Spec())
	require.NoError(t, err)
	assert.Contains(t, string(out), `"type":"Attack"`)
	assert.Contains(t, string(out), `"target_rule":"AllEnemies"`)
}

func TestParseEnums_RejectUnknown(t *testing.T) {
	_, err := ParseType("Power")
	assert.Equal(t, ErrCodeUnknownType, ValidationCode(err))

	_, err = ParseTargetRule("Everyone")
	assert.Equal(t, ErrCodeUnknownTargetRule, ValidationCode(err))

	assert.Equal(t, "Random", RandomTarget.String())
	assert.Equal(t, "Type(7)", Type(7).String())
}
