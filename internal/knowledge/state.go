package knowledge

import (
	"fmt"

	"github.com/roach88/craftloop/internal/ir"
)

// DiscoverySource says how an element entered the discovered set.
type DiscoverySource string

const (
	// SourceSeed marks primitives loaded before any cycle ran.
	SourceSeed DiscoverySource = "seed"
	// SourceObserved marks elements first seen in the adapter's available list.
	SourceObserved DiscoverySource = "observed"
	// SourceCrafted marks elements first seen as a combination result.
	SourceCrafted DiscoverySource = "crafted"
)

// Discovery is one DiscoveredSet entry.
type Discovery struct {
	Element ir.Element      `json:"element"`
	Source  DiscoverySource `json:"source"`
	Seq     int64           `json:"seq"`
	RunID   string          `json:"run_id,omitempty"`
}

// Achievement records the first discovery of a goal item.
type Achievement struct {
	Item     ir.Element `json:"item"`
	Category string     `json:"category"`
	Seq      int64      `json:"seq"`
	RunID    string     `json:"run_id,omitempty"`
}

// RecordResult says what RecordRecipe did.
type RecordResult int

const (
	// RecipeAdded means the pair had no recipe and now has one.
	RecipeAdded RecordResult = iota + 1
	// RecipeConfirmed means the pair already mapped to the same result.
	RecipeConfirmed
	// RecipeConflicted means the pair already mapped to a different result.
	// The existing recipe is kept and the conflict is recorded.
	RecipeConflicted
)

func (r RecordResult) String() string {
	switch r {
	case RecipeAdded:
		return "added"
	case RecipeConfirmed:
		return "confirmed"
	case RecipeConflicted:
		return "conflicted"
	default:
		return fmt.Sprintf("RecordResult(%d)", int(r))
	}
}

// State is the complete knowledge of one craftloop instance: Knowledge Store,
// Attempt Ledger, DiscoveredSet, RewardLedger and goal achievements.
//
// A State is owned by exactly one Controller and is not safe for concurrent
// use. Every mutation is also appended to a pending Delta, which the owner
// flushes to durable storage with TakeDelta.
//
// INVARIANTS:
//   - the ledger, discovered set and achievements only grow
//   - a recorded recipe is never overwritten
//   - every pair key is canonical
type State struct {
	recipes     map[ir.Pair]ir.Recipe
	recipeOrder []ir.Pair

	ledger      map[ir.Pair]ir.Attempt
	ledgerOrder []ir.Pair

	discovered      map[ir.Element]Discovery
	discoveredOrder []ir.Element

	achieved     map[ir.Element]Achievement
	achievedList []ir.Element

	conflicts []ir.RecipeConflict
	rewards   Rewards

	pending Delta
}

// New returns an empty State.
func New() *State {
	return &State{
		recipes:    make(map[ir.Pair]ir.Recipe),
		ledger:     make(map[ir.Pair]ir.Attempt),
		discovered: make(map[ir.Element]Discovery),
		achieved:   make(map[ir.Element]Achievement),
	}
}

// Attempted reports whether p is in the Attempt Ledger.
func (s *State) Attempted(p ir.Pair) bool {
	_, ok := s.ledger[ir.Canon(p.A, p.B)]
	return ok
}

// MarkAttempted adds p to the ledger with a dispatched outcome.
// Returns false if the pair was already attempted; the ledger is unchanged.
func (s *State) MarkAttempted(p ir.Pair, seq int64, runID string) bool {
	p = ir.Canon(p.A, p.B)
	if _, ok := s.ledger[p]; ok {
		return false
	}
	a := ir.Attempt{Pair: p, Seq: seq, RunID: runID, Outcome: ir.OutcomeDispatched}
	s.ledger[p] = a
	s.ledgerOrder = append(s.ledgerOrder, p)
	s.pending.Attempts = append(s.pending.Attempts, a)
	return true
}

// SetOutcome records the interpreted outcome of an attempted pair.
func (s *State) SetOutcome(p ir.Pair, kind ir.OutcomeKind, result ir.Element) error {
	p = ir.Canon(p.A, p.B)
	a, ok := s.ledger[p]
	if !ok {
		return fmt.Errorf("set outcome: pair %s was never marked attempted", p)
	}
	a.Outcome = kind
	a.Result = result
	s.ledger[p] = a
	s.pending.Attempts = append(s.pending.Attempts, a)
	return nil
}

// Attempt returns the ledger entry for p.
func (s *State) Attempt(p ir.Pair) (ir.Attempt, bool) {
	a, ok := s.ledger[ir.Canon(p.A, p.B)]
	return a, ok
}

// Ledger returns every attempt in the order it was marked.
func (s *State) Ledger() []ir.Attempt {
	out := make([]ir.Attempt, len(s.ledgerOrder))
	for i, p := range s.ledgerOrder {
		out[i] = s.ledger[p]
	}
	return out
}

// LedgerSize returns the number of attempted pairs.
func (s *State) LedgerSize() int {
	return len(s.ledgerOrder)
}

// Recipe returns the recipe recorded for p.
func (s *State) Recipe(p ir.Pair) (ir.Recipe, bool) {
	r, ok := s.recipes[ir.Canon(p.A, p.B)]
	return r, ok
}

// Recipes returns every recipe in insertion order.
func (s *State) Recipes() []ir.Recipe {
	out := make([]ir.Recipe, len(s.recipeOrder))
	for i, p := range s.recipeOrder {
		out[i] = s.recipes[p]
	}
	return out
}

// RecordRecipe records r.Pair -> r.Result. An existing recipe with a
// different result is never overwritten; the disagreement is kept as a
// conflict and returned.
func (s *State) RecordRecipe(r ir.Recipe) (RecordResult, *ir.RecipeConflict) {
	r.Pair = ir.Canon(r.Pair.A, r.Pair.B)
	existing, ok := s.recipes[r.Pair]
	if !ok {
		s.recipes[r.Pair] = r
		s.recipeOrder = append(s.recipeOrder, r.Pair)
		s.pending.Recipes = append(s.pending.Recipes, r)
		return RecipeAdded, nil
	}
	if existing.Result == r.Result {
		return RecipeConfirmed, nil
	}
	c := ir.RecipeConflict{
		Pair:     r.Pair,
		Existing: existing.Result,
		Observed: r.Result,
		Seq:      r.Seq,
		RunID:    r.RunID,
	}
	s.conflicts = append(s.conflicts, c)
	s.pending.Conflicts = append(s.pending.Conflicts, c)
	return RecipeConflicted, &c
}

// Conflicts returns every recorded recipe conflict in order.
func (s *State) Conflicts() []ir.RecipeConflict {
	out := make([]ir.RecipeConflict, len(s.conflicts))
	copy(out, s.conflicts)
	return out
}

// IsDiscovered reports whether e is in the DiscoveredSet.
func (s *State) IsDiscovered(e ir.Element) bool {
	_, ok := s.discovered[e]
	return ok
}

// Discover adds e to the DiscoveredSet. Returns false if it was already there.
func (s *State) Discover(e ir.Element, source DiscoverySource, seq int64, runID string) bool {
	if _, ok := s.discovered[e]; ok {
		return false
	}
	d := Discovery{Element: e, Source: source, Seq: seq, RunID: runID}
	s.discovered[e] = d
	s.discoveredOrder = append(s.discoveredOrder, e)
	s.pending.Discoveries = append(s.pending.Discoveries, d)
	return true
}

// Discovered returns the DiscoveredSet in insertion order.
func (s *State) Discovered() []ir.Element {
	out := make([]ir.Element, len(s.discoveredOrder))
	copy(out, s.discoveredOrder)
	return out
}

// Discoveries returns the DiscoveredSet with provenance, in insertion order.
func (s *State) Discoveries() []Discovery {
	out := make([]Discovery, len(s.discoveredOrder))
	for i, e := range s.discoveredOrder {
		out[i] = s.discovered[e]
	}
	return out
}

// Achieved reports whether the goal item has been satisfied.
func (s *State) Achieved(item ir.Element) bool {
	_, ok := s.achieved[item]
	return ok
}

// Achieve marks a goal item as permanently satisfied.
// Returns false if it already was.
func (s *State) Achieve(item ir.Element, category string, seq int64, runID string) bool {
	if _, ok := s.achieved[item]; ok {
		return false
	}
	a := Achievement{Item: item, Category: category, Seq: seq, RunID: runID}
	s.achieved[item] = a
	s.achievedList = append(s.achievedList, item)
	s.pending.Achievements = append(s.pending.Achievements, a)
	return true
}

// Achievements returns satisfied goal items in the order they were achieved.
func (s *State) Achievements() []Achievement {
	out := make([]Achievement, len(s.achievedList))
	for i, item := range s.achievedList {
		out[i] = s.achieved[item]
	}
	return out
}

// Credit appends a reward event to the RewardLedger.
func (s *State) Credit(ev RewardEvent) {
	s.rewards.add(ev)
	s.pending.Rewards = append(s.pending.Rewards, ev)
}

// Rewards returns a copy of the RewardLedger.
func (s *State) Rewards() Rewards {
	return s.rewards.clone()
}

// TakeDelta returns every mutation since the previous call and clears the
// pending set.
func (s *State) TakeDelta() Delta {
	d := s.pending
	s.pending = Delta{}
	return d
}

// HasPending reports whether there are unflushed mutations.
func (s *State) HasPending() bool {
	return !s.pending.Empty()
}
