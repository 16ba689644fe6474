package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/craftloop/internal/ir"
)

// ErrInjected is returned by injected faults.
var ErrInjected = errors.New("sandbox: injected fault")

// Faults configures failure injection.
type Faults struct {
	// FailEvery makes every n-th AttemptCombine call return an error.
	FailEvery int `yaml:"fail_every,omitempty"`

	// EmptyQueries makes the first n ListAvailable calls return nothing.
	EmptyQueries int `yaml:"empty_queries,omitempty"`

	// FailResets makes ResetWorkspace report failure.
	FailResets bool `yaml:"fail_resets,omitempty"`
}

// Stats counts adapter calls.
type Stats struct {
	Queries  int
	Combines int
	Resets   int
	Faults   int
}

// Sandbox plays a World as an environment adapter.
//
// Thread-safety: safe for concurrent use, although the controller calls it
// from a single goroutine.
type Sandbox struct {
	mu        sync.Mutex
	world     *World
	faults    Faults
	available []ir.Element
	have      map[ir.Element]bool
	stats     Stats
	logger    *slog.Logger
}

// New creates a sandbox positioned at the world's primitives.
func New(w *World, faults Faults, logger *slog.Logger) *Sandbox {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sandbox{
		world:  w,
		faults: faults,
		have:   make(map[ir.Element]bool),
		logger: logger.With("component", "sandbox"),
	}
	for _, e := range w.Primitives() {
		s.add(e)
	}
	return s
}

func (s *Sandbox) add(e ir.Element) {
	s.have[e] = true
	s.available = append(s.available, e)
}

// Setup checks that the world can be played.
func (s *Sandbox) Setup(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(s.world.primitives) == 0 {
		return errors.New("sandbox: world has no primitives")
	}
	s.logger.Debug("sandbox ready", "primitives", len(s.world.primitives), "recipes", s.world.Len())
	return nil
}

// Unlock makes elements available as if crafted in an earlier session.
// Used to resume a world alongside a persisted knowledge store.
func (s *Sandbox) Unlock(elements ...ir.Element) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range elements {
		if !s.have[e] {
			s.add(e)
		}
	}
}

// ListAvailable returns primitives plus everything crafted so far, in the
// order they became available.
func (s *Sandbox) ListAvailable(ctx context.Context) ([]ir.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Queries++
	if s.stats.Queries <= s.faults.EmptyQueries {
		s.stats.Faults++
		return nil, nil
	}
	return append([]ir.Element(nil), s.available...), nil
}

// AttemptCombine reports NewElement for a result the sandbox has not made
// available yet, KnownElement for one it has, and NoEffect when the world
// has no recipe for the pair.
func (s *Sandbox) AttemptCombine(ctx context.Context, a, b ir.Element) (ir.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return ir.Outcome{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Combines++
	if s.faults.FailEvery > 0 && s.stats.Combines%s.faults.FailEvery == 0 {
		s.stats.Faults++
		return ir.Outcome{}, fmt.Errorf("combine %s + %s: %w", a, b, ErrInjected)
	}

	if !s.have[a] || !s.have[b] {
		return ir.AdapterFailure(fmt.Sprintf("%s + %s: element not available", a, b)), nil
	}

	result, ok := s.world.Lookup(a, b)
	if !ok {
		return ir.NoEffect(), nil
	}
	if s.have[result] {
		return ir.KnownElement(result), nil
	}
	s.add(result)
	return ir.NewElement(result), nil
}

// ResetWorkspace always succeeds unless FailResets is set.
func (s *Sandbox) ResetWorkspace(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Resets++
	if s.faults.FailResets {
		s.stats.Faults++
		return false, nil
	}
	return true, nil
}

// Stats returns call counters.
func (s *Sandbox) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
