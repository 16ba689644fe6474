package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/craftloop/internal/engine"
	"github.com/roach88/craftloop/internal/goals"
	"github.com/roach88/craftloop/internal/ir"
	"github.com/roach88/craftloop/internal/knowledge"
	"github.com/roach88/craftloop/internal/sandbox"
	"github.com/roach88/craftloop/internal/selector"
	"github.com/roach88/craftloop/internal/store"
)

// scenarioRetry keeps fault-injection scenarios fast.
var scenarioRetry = engine.RetryConfig{
	CallTimeout:    time.Second,
	CallRetries:    2,
	InitialBackoff: time.Millisecond,
	MaxBackoff:     2 * time.Millisecond,
	QueryRetries:   3,
}

// Harness is the scenario execution engine.
// It wires a sandbox, a fresh store and a controller with deterministic
// helpers.
type Harness struct {
	store   *store.Store
	sandbox *sandbox.Sandbox
	state   *knowledge.State
	spec    *goals.Spec
	logger  *slog.Logger
}

// Option configures a Harness run.
type Option func(*Harness)

// WithLogger routes controller and sandbox logs. Logs are discarded by
// default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// RunID returns the deterministic run id used for a scenario.
func RunID(s *Scenario) string {
	return "scenario-" + s.Name
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh SQLite store in a temp dir that is
// removed afterwards. Execution flow:
//  1. Build the sandbox world and goal index
//  2. Apply the seed and commit it at seq 0
//  3. Run the controller to its stop state
//  4. Reload the store and evaluate assertions
//
// A run that fails (as opposed to failing an assertion) returns an error.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	dir, err := os.MkdirTemp("", "craftloop-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario dir: %w", err)
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(filepath.Join(dir, "scenario.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	ctx := context.Background()
	if err := h.setup(ctx, scenario); err != nil {
		return nil, err
	}

	mode, err := selector.ParseMode(scenario.Mode)
	if err != nil {
		return nil, err
	}
	cfg := engine.DefaultConfig()
	cfg.Mode = mode
	cfg.MaxCycles = scenario.MaxCycles
	cfg.RandomSeed = scenario.RandomSeed
	cfg.Retry = scenarioRetry

	result := NewResult()
	ctrl := engine.New(h.sandbox, st, h.state, h.spec,
		engine.WithConfig(cfg),
		engine.WithClock(engine.NewClock()),
		engine.WithRunIDs(engine.NewFixedGenerator(RunID(scenario))),
		engine.WithLogger(h.logger),
		engine.WithObserver(engine.ObserverFunc(func(ev engine.CycleEvent) {
			result.Trace = append(result.Trace, traceEvent(ev))
		})),
	)

	summary, err := ctrl.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	result.Summary = summary

	final, err := st.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reload scenario store: %w", err)
	}
	result.State = final

	for i, a := range scenario.Assertions {
		if err := evaluateAssertion(final, summary, a); err != nil {
			result.AddError(fmt.Sprintf("assertion %d (%s) failed: %v", i, a.Type, err))
		}
	}
	return result, nil
}

// setup builds the world and commits the seed.
func (h *Harness) setup(ctx context.Context, s *Scenario) error {
	world, err := sandbox.NewWorld(s.World)
	if err != nil {
		return fmt.Errorf("world: %w", err)
	}
	h.sandbox = sandbox.New(world, s.Faults, h.logger)

	h.spec = goals.Empty()
	if len(s.Goals) > 0 {
		if h.spec, err = goals.New(s.Goals); err != nil {
			return fmt.Errorf("goals: %w", err)
		}
	}

	h.state, err = h.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load scenario store: %w", err)
	}
	if err := applySeed(h.state, s.Seed); err != nil {
		return err
	}
	if err := h.store.Commit(ctx, h.state.TakeDelta()); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}

	unlocked, err := normalizeAll(s.Seed.Unlocked)
	if err != nil {
		return fmt.Errorf("seed.unlocked: %w", err)
	}
	h.sandbox.Unlock(unlocked...)
	return nil
}

// applySeed records seed knowledge at seq 0 with no run id. Seeded
// discoveries earn no reward.
func applySeed(st *knowledge.State, seed Seed) error {
	discovered, err := normalizeAll(seed.Discovered)
	if err != nil {
		return fmt.Errorf("seed.discovered: %w", err)
	}
	for _, e := range discovered {
		st.Discover(e, knowledge.SourceSeed, 0, "")
	}

	for i, r := range seed.Recipes {
		p, err := normalizePair(r.A, r.B)
		if err != nil {
			return fmt.Errorf("seed.recipes[%d]: %w", i, err)
		}
		result, err := ir.NormalizeElement(r.Result)
		if err != nil {
			return fmt.Errorf("seed.recipes[%d]: %w", i, err)
		}
		if res, c := st.RecordRecipe(ir.Recipe{Pair: p, Result: result}); res == knowledge.RecipeConflicted {
			return fmt.Errorf("seed.recipes[%d]: %s already yields %s", i, p, c.Existing)
		}
	}

	for i, a := range seed.Attempts {
		p, err := normalizePair(a.A, a.B)
		if err != nil {
			return fmt.Errorf("seed.attempts[%d]: %w", i, err)
		}
		if !st.MarkAttempted(p, 0, "") {
			continue
		}
		if err := st.SetOutcome(p, ir.OutcomeImported, ""); err != nil {
			return fmt.Errorf("seed.attempts[%d]: %w", i, err)
		}
	}
	return nil
}

func normalizePair(a, b string) (ir.Pair, error) {
	ea, err := ir.NormalizeElement(a)
	if err != nil {
		return ir.Pair{}, err
	}
	eb, err := ir.NormalizeElement(b)
	if err != nil {
		return ir.Pair{}, err
	}
	return ir.Canon(ea, eb), nil
}

func normalizeAll(names []string) ([]ir.Element, error) {
	out := make([]ir.Element, 0, len(names))
	for _, n := range names {
		e, err := ir.NormalizeElement(n)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
