package harness

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/skyoxu/rouge/internal/card"
	"github.com/skyoxu/rouge/internal/catalog"
	"github.com/skyoxu/rouge/internal/clock"
	"github.com/skyoxu/rouge/internal/event"
	"github.com/skyoxu/rouge/internal/ident"
	"github.com/skyoxu/rouge/internal/pile"
	"github.com/skyoxu/rouge/internal/rng"
	"github.com/skyoxu/rouge/internal/store"
)

// Default identities for scenarios that do not name their own.
const (
	DefaultRunID    = "run-test"
	DefaultBattleID = "battle-test"
)

// Deterministic id prefixes.
const (
	InstancePrefix = "card"
	EventPrefix    = "evt"
)

// Option configures a harness run.
type Option func(*options)

type options struct {
	store          *store.Store
	audit          event.AuditLog
	logger         *zap.Logger
	seed           *int32
	handLimit      int
	maxConcurrency int
}

// WithStore persists the battle, its command journal and its events.
func WithStore(s *store.Store) Option {
	return func(o *options) { o.store = s }
}

// WithAuditLog records subscriber failures.
func WithAuditLog(l event.AuditLog) Option {
	return func(o *options) { o.audit = l }
}

// WithLogger sets the logger handed to the bus and the engine.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSeed overrides the scenario seed.
func WithSeed(seed int32) Option {
	return func(o *options) { o.seed = &seed }
}

// WithHandLimit sets the hand limit for scenarios that do not declare one.
func WithHandLimit(n int) Option {
	return func(o *options) { o.handLimit = n }
}

// WithMaxConcurrency bounds bus fan-out.
func WithMaxConcurrency(n int) Option {
	return func(o *options) { o.maxConcurrency = n }
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Harness executes one scenario against a fresh engine.
type Harness struct {
	eng     *pile.Engine
	catalog *catalog.Catalog
	store   *store.Store
	logger  *zap.Logger
	result  *Result
	seq     int64

	mu sync.Mutex
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Build the card catalog from the CUE directory and inline cards
// 2. Wire an in-memory bus, the trace collector and the optional store
// 3. Execute steps, journaling each one
// 4. Evaluate assertions against the final state and event stream
//
// Infrastructure failures (catalog, store) are returned as errors; step
// and assertion failures are reported in the result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	o := buildOptions(opts)

	cat, err := BuildCatalog(scenario)
	if err != nil {
		return nil, err
	}

	seed := scenario.Seed
	if o.seed != nil {
		seed = *o.seed
	}
	battle := store.Battle{
		ID:        orDefault(scenario.BattleID, DefaultBattleID),
		RunID:     orDefault(scenario.RunID, DefaultRunID),
		HeroID:    orDefault(scenario.HeroID, pile.DefaultHeroID),
		Seed:      seed,
		HandLimit: scenario.HandLimit,
		Scenario:  scenario.Name,
	}
	if battle.HandLimit == 0 {
		battle.HandLimit = o.handLimit
	}
	if battle.HandLimit <= 0 {
		battle.HandLimit = pile.DefaultHandLimit
	}

	h := &Harness{
		catalog: cat,
		store:   o.store,
		logger:  o.logger.With(zap.String("scenario", scenario.Name), zap.String("battle_id", battle.ID)),
		result:  NewResult(scenario.Name),
	}
	h.result.Battle = battle

	bus := newBus(o)
	bus.SubscribeNamed("trace", h.collect)
	if h.store != nil {
		if err := h.store.WriteBattle(ctx, battle); err != nil {
			return nil, fmt.Errorf("run %s: %w", scenario.Name, err)
		}
		bus.SubscribeNamed("recorder", store.NewRecorder(h.store, battle.ID).Handle)
	}

	h.eng, err = newEngine(battle, bus, o.logger, func(cause error, env event.Envelope) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.result.AddError(fmt.Sprintf("publish %s (%s) failed: %v", env.Type, env.ID, cause))
	})
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", scenario.Name, err)
	}

	for i, step := range scenario.Steps {
		for r := range step.Times() {
			if err := h.executeStep(ctx, i, r, step); err != nil {
				return nil, fmt.Errorf("run %s: %w", scenario.Name, err)
			}
		}
	}

	h.result.Final = h.eng.Snapshot()
	for _, msg := range EvaluateAssertions(h.result, h.eng, scenario.Assertions) {
		h.result.AddError(msg)
	}

	h.logger.Debug("scenario finished",
		zap.Bool("pass", h.result.Pass),
		zap.Int("commands", len(h.result.Commands)),
		zap.Int("events", len(h.result.Events)))
	return h.result, nil
}

// BuildCatalog merges the scenario's CUE catalog with its inline cards.
func BuildCatalog(scenario *Scenario) (*catalog.Catalog, error) {
	var defs []card.Definition
	if scenario.Catalog != "" {
		cat, err := catalog.LoadDir(scenario.Catalog)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		defs = cat.Definitions()
	}
	for i, spec := range scenario.Cards {
		def, err := card.NewDefinition(spec)
		if err != nil {
			return nil, fmt.Errorf("cards[%d]: %w", i, err)
		}
		defs = append(defs, def)
	}
	cat, err := catalog.New(defs...)
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}
	return cat, nil
}

func newBus(o options) *event.InMemoryBus {
	busOpts := []event.BusOption{
		event.WithBusLogger(o.logger),
		event.WithMaxConcurrency(o.maxConcurrency),
	}
	if o.audit != nil {
		busOpts = append(busOpts, event.WithAuditLog(o.audit))
	}
	return event.NewInMemoryBus(busOpts...)
}

// newEngine builds an engine with deterministic ids and clock for battle.
func newEngine(battle store.Battle, pub event.Publisher, logger *zap.Logger, onErr pile.PublishErrorHandler) (*pile.Engine, error) {
	return pile.New(rng.New(battle.Seed),
		pile.WithPublisher(pub),
		pile.WithPublishErrorHandler(onErr),
		pile.WithIDGenerator(ident.NewSequential(InstancePrefix)),
		pile.WithEventIDGenerator(ident.NewSequential(EventPrefix)),
		pile.WithRunID(battle.RunID),
		pile.WithBattleID(battle.ID),
		pile.WithHeroID(battle.HeroID),
		pile.WithHandLimit(battle.HandLimit),
		pile.WithNow(clock.NewDeterministic().Now),
		pile.WithLogger(logger),
	)
}

// collect is the bus subscriber building the event trace.
func (h *Harness) collect(_ context.Context, env event.Envelope) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.result.Events = append(h.result.Events, env)
	return nil
}

// executeStep runs one repetition of a step. Only store failures are
// returned; step failures land in the result.
func (h *Harness) executeStep(ctx context.Context, index, rep int, step Step) error {
	label := fmt.Sprintf("steps[%d]", index)
	if step.Times() > 1 {
		label = fmt.Sprintf("steps[%d]#%d", index, rep+1)
	}

	cmd, err := h.buildCommand(step)
	if err == nil {
		var out Outcome
		out, err = Apply(h.eng, cmd)
		h.result.Commands = append(h.result.Commands, cmd)
		if h.store != nil {
			if werr := h.store.WriteCommand(ctx, h.result.Battle.ID, cmd); werr != nil {
				return fmt.Errorf("%s: %w", label, werr)
			}
		}
		switch {
		case step.Op == OpAdd && out.Instance != "":
			h.result.Added = append(h.result.Added, out.Instance)
		case step.Op == OpRemove && out.Applied:
			h.result.Removed = append(h.result.Removed, out.Instance)
		}
	}

	switch {
	case step.ExpectError != "" && err == nil:
		h.result.AddError(fmt.Sprintf("%s (%s): expected error containing %q, got none", label, step.Op, step.ExpectError))
	case step.ExpectError != "" && !strings.Contains(err.Error(), step.ExpectError):
		h.result.AddError(fmt.Sprintf("%s (%s): expected error containing %q, got %v", label, step.Op, step.ExpectError, err))
	case step.ExpectError == "" && err != nil:
		h.result.AddError(fmt.Sprintf("%s (%s): %v", label, step.Op, err))
	}
	return nil
}

// buildCommand resolves a step against the catalog and current piles and
// journals it under the next seq.
func (h *Harness) buildCommand(step Step) (store.Command, error) {
	var args any
	switch step.Op {
	case OpAdd:
		def, ok := h.catalog.Get(step.Card)
		if !ok {
			return store.Command{}, fmt.Errorf("unknown card %q", step.Card)
		}
		args = addArgs{Definition: def.Spec()}
	case OpDraw:
		args = countArgs{Count: step.Count}
	case OpDiscard, OpExhaust, OpUpgrade, OpRemove:
		id, err := resolveTarget(h.eng, step.Target)
		if err != nil {
			return store.Command{}, err
		}
		args = instanceArgs{Instance: id}
	case OpShuffle:
		args = struct{}{}
	case OpSetTurn:
		args = turnArgs{Turn: step.Turn}
	default:
		return store.Command{}, fmt.Errorf("unknown op %q", step.Op)
	}

	h.seq++
	return newCommand(h.seq, step.Op, args)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
