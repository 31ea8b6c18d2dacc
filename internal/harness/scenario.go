package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/skyoxu/rouge/internal/card"
	"github.com/skyoxu/rouge/internal/pile"
)

// Scenario defines one scripted battle and what must hold afterwards.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Seed initializes the engine's random source.
	Seed int32 `yaml:"seed"`

	// RunID, BattleID and HeroID default to DefaultRunID, DefaultBattleID
	// and pile.DefaultHeroID.
	RunID    string `yaml:"run_id,omitempty"`
	BattleID string `yaml:"battle_id,omitempty"`
	HeroID   string `yaml:"hero_id,omitempty"`

	// HandLimit defaults to pile.DefaultHandLimit when zero.
	HandLimit int `yaml:"hand_limit,omitempty"`

	// Catalog is a CUE catalog directory, relative to the scenario file.
	Catalog string `yaml:"catalog,omitempty"`

	// Cards are inline definitions, merged with the catalog.
	Cards []card.Spec `yaml:"cards,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// Target picks a card either by instance id or by pile position.
type Target struct {
	Instance string `yaml:"instance,omitempty"`
	Pile     string `yaml:"pile,omitempty"`
	Index    *int   `yaml:"index,omitempty"`
}

// IsZero reports whether no target was given.
func (t Target) IsZero() bool {
	return t.Instance == "" && t.Pile == "" && t.Index == nil
}

// Step is one scripted engine operation.
type Step struct {
	Op     string `yaml:"op"`
	Card   string `yaml:"card,omitempty"`
	Count  int    `yaml:"count,omitempty"`
	Turn   int    `yaml:"turn,omitempty"`
	Target `yaml:",inline"`

	// Repeat runs the step this many times. Zero means once.
	Repeat int `yaml:"repeat,omitempty"`

	// ExpectError, when set, must be a substring of the step's error.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Times returns how often the step runs.
func (s Step) Times() int {
	return max(s.Repeat, 1)
}

// Assertion validates the final engine state or the event stream.
type Assertion struct {
	Type string `yaml:"type"`

	// Pile is used by pile_count, and with Index by definition.
	Target `yaml:",inline"`

	// Count is used by pile_count, total and event_count.
	Count int `yaml:"count,omitempty"`

	// Event is the event type counted by event_count.
	Event string `yaml:"event,omitempty"`

	// Orders is the expected draw order sequence.
	Orders []int64 `yaml:"orders,omitempty"`

	// Definition is the expected definition id of the targeted card.
	Definition string `yaml:"definition,omitempty"`
}

// Step operations.
const (
	OpAdd     = "add"
	OpDraw    = "draw"
	OpDiscard = "discard"
	OpExhaust = "exhaust"
	OpUpgrade = "upgrade"
	OpRemove  = "remove"
	OpShuffle = "shuffle"
	OpSetTurn = "set_turn"
)

// Assertion type constants.
const (
	AssertPileCount  = "pile_count"
	AssertTotal      = "total"
	AssertEventCount = "event_count"
	AssertDrawOrders = "draw_orders"
	AssertPartition  = "partition"
	AssertDefinition = "definition"
)

// LoadScenario reads and parses a scenario YAML file. A relative catalog
// path is resolved against the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML, resolving the catalog path against
// basePath.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Catalog != "" && !filepath.IsAbs(scenario.Catalog) && basePath != "" {
		scenario.Catalog = filepath.Join(basePath, scenario.Catalog)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.HandLimit < 0 {
		return fmt.Errorf("hand_limit must be non-negative")
	}
	if s.Catalog == "" && len(s.Cards) == 0 {
		return fmt.Errorf("catalog or cards is required")
	}
	if s.Catalog != "" {
		if _, err := os.Stat(s.Catalog); err != nil {
			return fmt.Errorf("catalog not found: %s", s.Catalog)
		}
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step) error {
	if step.Repeat < 0 {
		return fmt.Errorf("steps[%d]: repeat must be non-negative", i)
	}
	switch step.Op {
	case OpAdd:
		if strings.TrimSpace(step.Card) == "" {
			return fmt.Errorf("steps[%d]: card is required for add", i)
		}
	case OpDraw:
		if step.Count < 0 {
			return fmt.Errorf("steps[%d]: count must be non-negative for draw", i)
		}
	case OpDiscard, OpExhaust, OpUpgrade, OpRemove:
		if err := validateTarget(step.Target); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	case OpShuffle, OpSetTurn:
	case "":
		return fmt.Errorf("steps[%d]: op is required", i)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
	}
	return nil
}

func validateTarget(t Target) error {
	if t.Instance != "" {
		if t.Pile != "" || t.Index != nil {
			return fmt.Errorf("target takes either instance or pile+index, not both")
		}
		return nil
	}
	if t.Pile == "" || t.Index == nil {
		return fmt.Errorf("target requires instance or pile+index")
	}
	if _, err := pile.ParseType(t.Pile); err != nil {
		return err
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case AssertPileCount:
		if _, err := pile.ParseType(a.Pile); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertTotal:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertEventCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_count", index)
		}
	case AssertDrawOrders, AssertPartition:
	case AssertDefinition:
		if a.Definition == "" {
			return fmt.Errorf("assertions[%d]: definition is required", index)
		}
		if err := validateTarget(a.Target); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
