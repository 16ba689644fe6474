package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/roach88/craftloop/internal/goals"
	"github.com/roach88/craftloop/internal/ir"
	"github.com/roach88/craftloop/internal/knowledge"
	"github.com/roach88/craftloop/internal/reward"
	"github.com/roach88/craftloop/internal/selector"
	"github.com/roach88/craftloop/internal/store"
)

// Persister is the durable side of the controller. *store.Store implements it.
type Persister interface {
	Commit(ctx context.Context, d knowledge.Delta) error
	BeginRun(ctx context.Context, r store.Run) error
	FinishRun(ctx context.Context, id string, finishedSeq, cycles int64, stopReason string) error
}

// Config tunes a controller.
type Config struct {
	// Mode selects exhaustive exploration or the random fallback.
	Mode selector.Mode

	// MaxCycles stops the run after this many cycles. Zero means unbounded.
	MaxCycles int

	// RandomSeed seeds random mode. Zero picks a seed at random.
	RandomSeed uint64

	// MaxRandomTries bounds random sampling per cycle.
	MaxRandomTries int

	Rewards reward.Config
	Retry   RetryConfig
}

// DefaultConfig returns exhaustive, unbounded defaults.
func DefaultConfig() Config {
	return Config{
		Mode:           selector.ModeExhaustive,
		MaxRandomTries: selector.DefaultMaxRandomTries,
		Rewards:        reward.DefaultConfig(),
		Retry:          DefaultRetryConfig(),
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(c *Controller) {
		c.cfg = cfg
	}
}

// WithClock resumes the logical clock, typically from store.MaxSeq.
func WithClock(clock *Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// WithRunIDs sets the run id source. Tests use a FixedGenerator.
func WithRunIDs(gen RunIDGenerator) Option {
	return func(c *Controller) {
		c.runIDs = gen
	}
}

// WithObserver registers an observer. May be given more than once.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observers = append(c.observers, o)
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// Controller is the Discovery Cycle Controller.
//
// CRITICAL: Run must be called from exactly one goroutine, and only once.
// The controller owns the knowledge.State for the duration of the run.
type Controller struct {
	adapter   Adapter
	persist   Persister
	st        *knowledge.State
	goals     *goals.Spec
	tracker   *reward.Tracker
	clock     *Clock
	runIDs    RunIDGenerator
	observers []Observer
	logger    *slog.Logger
	cfg       Config

	rng    *rand.Rand
	budget *CycleBudget
	state  State
	runID  string
	sum    Summary
}

// New creates a controller over a loaded state. A nil spec means no goals.
func New(adapter Adapter, persist Persister, st *knowledge.State, spec *goals.Spec, opts ...Option) *Controller {
	c := &Controller{
		adapter: adapter,
		persist: persist,
		st:      st,
		goals:   spec,
		clock:   NewClock(),
		runIDs:  UUIDv7Generator{},
		logger:  slog.Default(),
		cfg:     DefaultConfig(),
		state:   StateIdle,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.With("component", "engine")
	c.tracker = reward.NewTracker(c.cfg.Rewards, c.goals, c.logger)
	c.budget = NewCycleBudget(c.cfg.MaxCycles)

	seed := c.cfg.RandomSeed
	if seed == 0 {
		seed = rand.Uint64()
	}
	c.rng = rand.New(rand.NewPCG(seed, seed))
	c.cfg.RandomSeed = seed

	return c
}

// State returns the controller's current state.
func (c *Controller) State() State {
	return c.state
}

// RunID returns the id of the current run, or "" before Run.
func (c *Controller) RunID() string {
	return c.runID
}

// Run drives the discovery loop until it stops.
//
// A run that ends by exhaustion or the cycle limit returns a nil error.
// Cancellation returns an error for which IsInterrupted is true, after a
// best-effort persist. Setup and storage failures return a
// *RunError; whatever was persisted before the failure stays persisted.
func (c *Controller) Run(ctx context.Context) (Summary, error) {
	c.runID = c.runIDs.Generate()
	c.logger = c.logger.With("run", c.runID)
	c.sum = Summary{RunID: c.runID, StartedSeq: c.clock.Current()}

	// Bookkeeping writes must land even when ctx is already cancelled.
	bg := context.WithoutCancel(ctx)

	if s, ok := c.adapter.(Setupper); ok {
		if err := s.Setup(ctx); err != nil {
			c.logger.Error("adapter setup failed", "error", err)
			return c.stop(StateFailed), newRunError(ErrCodeAdapterSetup, c.runID, "adapter setup failed", err)
		}
	}

	if err := c.persist.BeginRun(bg, store.Run{
		ID:            c.runID,
		Mode:          c.cfg.Mode.String(),
		EngineVersion: ir.EngineVersion,
		StartedSeq:    c.clock.Current(),
	}); err != nil {
		return c.stop(StateFailed), newRunError(ErrCodeStorageIO, c.runID, "record run start", err)
	}

	for _, item := range c.tracker.Unachieved(c.st) {
		c.tracker.OnObserved(c.st, item, c.clock.Next(), c.runID)
	}

	c.logger.Info("run starting",
		"mode", c.cfg.Mode,
		"seed", c.cfg.RandomSeed,
		"max_cycles", c.cfg.MaxCycles,
		"ledger", c.st.LedgerSize(),
		"recipes", len(c.st.Recipes()),
		"discovered", len(c.st.Discovered()),
	)

	final, runErr := c.loop(ctx)

	if err := c.flush(bg); err != nil {
		c.logger.Error("final flush failed", "error", err)
		if runErr == nil || IsInterrupted(runErr) {
			final = StateFailed
			runErr = newRunError(ErrCodeStorageIO, c.runID, "final flush", err)
		}
	}

	sum := c.stop(final)
	if err := c.persist.FinishRun(bg, c.runID, sum.FinishedSeq, int64(sum.Cycles), sum.StopReason); err != nil {
		c.logger.Error("record run finish failed", "error", err)
		if runErr == nil || IsInterrupted(runErr) {
			runErr = newRunError(ErrCodeStorageIO, c.runID, "record run finish", err)
		}
	}

	c.logger.Info("run stopped",
		"stop", sum.StopReason,
		"cycles", sum.Cycles,
		"new_elements", len(sum.NewElements),
		"reward", sum.RewardGained,
		"goals", len(sum.GoalsAchieved),
	)
	return sum, runErr
}

func (c *Controller) stop(s State) Summary {
	c.state = s
	c.sum.Cycles = c.budget.Used()
	c.sum.Stop = s
	c.sum.StopReason = s.String()
	c.sum.FinishedSeq = c.clock.Current()
	return c.sum
}

// loop runs cycles and returns the terminal state.
func (c *Controller) loop(ctx context.Context) (State, error) {
	for {
		c.state = StateQuery
		if err := ctx.Err(); err != nil {
			c.logger.Info("run cancelled", "cycles", c.budget.Used())
			return StateInterrupted, newRunError(ErrCodeInterrupted, c.runID, "run cancelled", err)
		}
		if c.budget.Exhausted() {
			return StateCycleLimit, nil
		}

		available, err := c.query(ctx)
		if err != nil {
			return StateInterrupted, newRunError(ErrCodeInterrupted, c.runID, "run cancelled", err)
		}
		c.observe(available)

		c.state = StateSelect
		choice := selector.Select(selector.Input{
			Available:      available,
			Ledger:         c.st,
			Recipes:        c.st.Recipes(),
			Goals:          c.goals,
			Discovered:     c.st,
			Mode:           c.cfg.Mode,
			Rand:           c.rng,
			MaxRandomTries: c.cfg.MaxRandomTries,
		})
		if !choice.Found {
			c.logger.Info("candidates exhausted", "available", len(available), "ledger", c.st.LedgerSize())
			return StateExhausted, nil
		}

		// No cancellation between dispatch and persist.
		ev, err := c.cycle(context.WithoutCancel(ctx), choice)
		if err != nil {
			// A set Seq means the pair was dispatched, so the cycle counts.
			if ev.Seq != 0 {
				c.budget.Spend()
			}
			return StateFailed, err
		}
		c.budget.Spend()
		for _, o := range c.observers {
			o.OnCycle(ev)
		}
	}
}

// cycle dispatches one pair, interprets the outcome and persists it.
func (c *Controller) cycle(ctx context.Context, choice selector.Choice) (CycleEvent, error) {
	pair := choice.Pair
	seq := c.clock.Next()

	c.state = StateDispatch
	c.st.MarkAttempted(pair, seq, c.runID)
	if err := c.flush(ctx); err != nil {
		return CycleEvent{}, newRunError(ErrCodeStorageIO, c.runID, fmt.Sprintf("persist attempt %s", pair), err)
	}

	c.logger.Debug("dispatching", "pair", pair, "tier", choice.Tier, "seq", seq)
	outcome := c.combine(ctx, pair)
	c.resetWorkspace(ctx)

	c.state = StateInterpret
	ev := CycleEvent{
		RunID:    c.runID,
		Cycle:    c.budget.Used() + 1,
		Seq:      seq,
		Pair:     pair,
		Tier:     choice.Tier,
		TierName: choice.Tier.String(),
		Target:   choice.Goal.Item,
	}
	if err := c.interpret(&ev, outcome); err != nil {
		return ev, err
	}

	c.state = StatePersist
	if err := c.flush(ctx); err != nil {
		return ev, newRunError(ErrCodeStorageIO, c.runID, fmt.Sprintf("persist cycle %d", ev.Cycle), err)
	}

	c.logger.Info("cycle",
		"cycle", ev.Cycle,
		"pair", pair,
		"tier", ev.TierName,
		"outcome", ev.Outcome,
		"result", ev.Result,
		"reward", ev.Reward,
	)
	return ev, nil
}

// interpret classifies the adapter outcome and applies its effects. The
// DiscoveredSet decides between NewElement and KnownElement, whatever the
// adapter claimed.
func (c *Controller) interpret(ev *CycleEvent, out ir.Outcome) error {
	kind := out.Kind
	var result ir.Element

	switch out.Kind {
	case ir.OutcomeNewElement, ir.OutcomeKnownElement:
		name, err := ir.NormalizeElement(string(out.Result))
		if err != nil {
			kind = ir.OutcomeAdapterFailure
			ev.Reason = "adapter reported an empty result"
			c.logger.Warn("invalid combination result", "pair", ev.Pair, "error", err)
			break
		}
		result = name

		_, conflict := c.st.RecordRecipe(ir.Recipe{Pair: ev.Pair, Result: result, Seq: ev.Seq, RunID: c.runID})
		if conflict != nil {
			ev.Conflict = true
			c.sum.Conflicts++
			c.logger.Warn("recipe conflict",
				"pair", ev.Pair,
				"existing", conflict.Existing,
				"observed", conflict.Observed,
			)
		}

		if c.st.Discover(result, knowledge.SourceCrafted, ev.Seq, c.runID) {
			kind = ir.OutcomeNewElement
			gain := c.tracker.OnCrafted(c.st, result, ev.Seq, c.runID)
			ev.Reward = gain.Points
			c.sum.NewElements = append(c.sum.NewElements, result)
			c.sum.RewardGained += gain.Points
			if gain.Goal {
				ev.Goal = gain.Category
				c.sum.GoalsAchieved = append(c.sum.GoalsAchieved, result)
			}
		} else {
			kind = ir.OutcomeKnownElement
		}
		if kind != out.Kind {
			c.logger.Debug("outcome reclassified", "pair", ev.Pair, "reported", out.Kind, "recorded", kind)
		}

	case ir.OutcomeNoEffect:

	case ir.OutcomeAdapterFailure:
		ev.Reason = out.Reason
		c.logger.Warn("combination failed", "pair", ev.Pair, "reason", out.Reason)

	default:
		kind = ir.OutcomeAdapterFailure
		ev.Reason = fmt.Sprintf("unknown outcome %q", out.Kind)
		c.logger.Warn("unknown outcome kind", "pair", ev.Pair, "kind", out.Kind)
	}

	ev.Outcome = kind
	ev.Result = result
	return c.st.SetOutcome(ev.Pair, kind, result)
}

// observe adds newly seen available elements to the DiscoveredSet. They are
// primitives or earlier results and earn no reward.
func (c *Controller) observe(available []ir.Element) {
	for _, e := range available {
		if c.st.IsDiscovered(e) {
			continue
		}
		seq := c.clock.Next()
		c.st.Discover(e, knowledge.SourceObserved, seq, c.runID)
		c.tracker.OnObserved(c.st, e, seq, c.runID)
		c.logger.Debug("element observed", "element", e, "seq", seq)
	}
}

// flush commits pending state mutations.
func (c *Controller) flush(ctx context.Context) error {
	if !c.st.HasPending() {
		return nil
	}
	return c.persist.Commit(ctx, c.st.TakeDelta())
}

var errEmptyWorkspace = errors.New("empty workspace")

// query lists available elements. Empty results back off, reset the
// workspace and retry up to QueryRetries times. When the retries run out the
// empty result stands, and the only error returned is cancellation.
func (c *Controller) query(ctx context.Context) ([]ir.Element, error) {
	var available []ir.Element
	attempts := 0

	op := func() error {
		attempts++
		if attempts > 1 {
			c.resetWorkspace(ctx)
		}
		available = c.listAvailable(ctx)
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		if len(available) == 0 {
			return errEmptyWorkspace
		}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("no available elements, resetting workspace", "attempt", attempts, "wait", wait)
	}

	if err := backoff.RetryNotify(op, c.cfg.Retry.newBackOff(ctx, c.cfg.Retry.QueryRetries), notify); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn("adapter still reports no available elements", "queries", attempts)
		return nil, nil
	}
	return available, nil
}

// listAvailable calls the adapter with retries and normalizes its answer.
// A call that keeps failing degrades to an empty result.
func (c *Controller) listAvailable(ctx context.Context) []ir.Element {
	var raw []ir.Element
	err := c.callWithRetry(ctx, "list_available", func(ctx context.Context) error {
		var err error
		raw, err = c.adapter.ListAvailable(ctx)
		return err
	})
	if err != nil {
		c.logger.Warn("list available failed", "error", err)
		return nil
	}

	out := make([]ir.Element, 0, len(raw))
	seen := make(map[ir.Element]bool, len(raw))
	for _, e := range raw {
		name, err := ir.NormalizeElement(string(e))
		if err != nil {
			c.logger.Warn("ignoring invalid element name", "name", e)
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// combine calls AttemptCombine with retries. A call that keeps failing
// degrades to an AdapterFailure outcome.
func (c *Controller) combine(ctx context.Context, p ir.Pair) ir.Outcome {
	var out ir.Outcome
	err := c.callWithRetry(ctx, "attempt_combine", func(ctx context.Context) error {
		var err error
		out, err = c.adapter.AttemptCombine(ctx, p.A, p.B)
		return err
	})
	if err != nil {
		c.logger.Warn("attempt combine failed", "pair", p, "error", err)
		return ir.AdapterFailure(err.Error())
	}
	return out
}

// resetWorkspace is best-effort: failures only affect presentation.
func (c *Controller) resetWorkspace(ctx context.Context) {
	var ok bool
	err := c.callWithRetry(ctx, "reset_workspace", func(ctx context.Context) error {
		var err error
		ok, err = c.adapter.ResetWorkspace(ctx)
		return err
	})
	if err != nil {
		c.logger.Warn("workspace reset failed", "error", err)
		return
	}
	if !ok {
		c.logger.Warn("workspace reset reported no effect")
	}
}

// callWithRetry runs one adapter call under the per-call timeout, retrying
// with capped exponential backoff.
func (c *Controller) callWithRetry(ctx context.Context, name string, call func(ctx context.Context) error) error {
	attempt := 0
	op := func() error {
		attempt++
		callCtx, cancel := c.cfg.Retry.callContext(ctx)
		defer cancel()
		err := call(callCtx)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Debug("adapter call failed, retrying", "call", name, "attempt", attempt, "wait", wait, "error", err)
	}
	return backoff.RetryNotify(op, c.cfg.Retry.newBackOff(ctx, c.cfg.Retry.CallRetries), notify)
}
