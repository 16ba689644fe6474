// Package selector implements the Candidate Selector: a pure function from
// (available elements, attempt ledger, recipes, goals) to the next pair to
// try, or none.
//
// Selection runs four strict tiers and the first match wins:
//
//  1. Goal-directed: a known recipe that produces the highest-priority
//     undiscovered goal item.
//  2. Recipe replay: any known recipe not yet attempted.
//  3. Exhaustive exploration: every pair of available elements in a fixed
//     order.
//  4. Random probing: replaces tier 3 when the caller asks for it.
//
// Every tier checks the ledger, so an attempted pair is never returned.
// Select never errors; "no pair" is reported through Choice.Found.
package selector

import (
	"fmt"
	"math/rand/v2"

	"github.com/roach88/craftloop/internal/goals"
	"github.com/roach88/craftloop/internal/ir"
)

// Tier identifies which selection tier produced a choice.
type Tier int

const (
	// TierNone means no pair was found.
	TierNone Tier = iota
	// TierGoal is goal-directed recipe replay.
	TierGoal
	// TierReplay is replay of any untried known recipe.
	TierReplay
	// TierExplore is exhaustive novel exploration.
	TierExplore
	// TierRandom is random probing.
	TierRandom
)

func (t Tier) String() string {
	switch t {
	case TierNone:
		return "none"
	case TierGoal:
		return "goal"
	case TierReplay:
		return "replay"
	case TierExplore:
		return "explore"
	case TierRandom:
		return "random"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// Mode selects the exploration strategy used after tiers 1 and 2.
type Mode int

const (
	// ModeExhaustive enumerates every available pair in a fixed order (tier 3).
	ModeExhaustive Mode = iota
	// ModeRandom samples pairs at random instead (tier 4).
	ModeRandom
)

func (m Mode) String() string {
	switch m {
	case ModeExhaustive:
		return "exhaustive"
	case ModeRandom:
		return "random"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "exhaustive" or "random". The empty string is exhaustive.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "exhaustive":
		return ModeExhaustive, nil
	case "random":
		return ModeRandom, nil
	default:
		return ModeExhaustive, fmt.Errorf("invalid exploration mode %q: must be exhaustive or random", s)
	}
}

// DefaultMaxRandomTries bounds tier 4 sampling before it reports exhaustion.
const DefaultMaxRandomTries = 64

// Ledger answers whether a pair was already dispatched.
type Ledger interface {
	Attempted(p ir.Pair) bool
}

// Discovered answers whether an element is in the DiscoveredSet.
type Discovered interface {
	IsDiscovered(e ir.Element) bool
}

// Input is everything Select looks at.
type Input struct {
	// Available is the adapter's current element list. Duplicates are ignored.
	Available []ir.Element

	// Ledger is the Attempt Ledger. Required.
	Ledger Ledger

	// Recipes are the known recipes in stable insertion order.
	Recipes []ir.Recipe

	// Goals is the Goal Index. Nil means no goals.
	Goals *goals.Spec

	// Discovered is the DiscoveredSet. Nil treats every goal as undiscovered.
	Discovered Discovered

	// Mode picks tier 3 or tier 4.
	Mode Mode

	// Rand drives tier 4. Required when Mode is ModeRandom.
	Rand *rand.Rand

	// MaxRandomTries bounds tier 4. Zero means DefaultMaxRandomTries.
	MaxRandomTries int
}

// Choice is the selector's answer.
type Choice struct {
	Pair  ir.Pair
	Tier  Tier
	Goal  goals.Target // Set for TierGoal
	Found bool
}

// None is the "no candidate" choice.
var None = Choice{Tier: TierNone}

// Select returns the next pair to try. Found is false exactly when every
// enabled tier is exhausted for the given availability.
func Select(in Input) Choice {
	avail := make(map[ir.Element]bool, len(in.Available))
	for _, e := range in.Available {
		avail[e] = true
	}

	if c, ok := selectGoal(in, avail); ok {
		return c
	}
	if c, ok := selectReplay(in, avail); ok {
		return c
	}
	if in.Mode == ModeRandom {
		if c, ok := selectRandom(in); ok {
			return c
		}
		return None
	}
	if c, ok := selectExplore(in); ok {
		return c
	}
	return None
}

// usable reports whether both inputs of p are available and p is untried.
func usable(in Input, avail map[ir.Element]bool, p ir.Pair) bool {
	return avail[p.A] && avail[p.B] && !in.Ledger.Attempted(p)
}

// selectGoal is tier 1. Targets are visited in priority order, skipping
// discovered ones; the first undiscovered target with a usable recipe wins.
func selectGoal(in Input, avail map[ir.Element]bool) (Choice, bool) {
	if in.Goals == nil || len(in.Recipes) == 0 {
		return Choice{}, false
	}
	for _, target := range in.Goals.Targets() {
		if in.Discovered != nil && in.Discovered.IsDiscovered(target.Item) {
			continue
		}
		for _, r := range in.Recipes {
			if r.Result != target.Item {
				continue
			}
			p := ir.Canon(r.Pair.A, r.Pair.B)
			if usable(in, avail, p) {
				return Choice{Pair: p, Tier: TierGoal, Goal: target, Found: true}, true
			}
		}
	}
	return Choice{}, false
}

// selectReplay is tier 2.
func selectReplay(in Input, avail map[ir.Element]bool) (Choice, bool) {
	for _, r := range in.Recipes {
		p := ir.Canon(r.Pair.A, r.Pair.B)
		if usable(in, avail, p) {
			return Choice{Pair: p, Tier: TierReplay, Found: true}, true
		}
	}
	return Choice{}, false
}

// selectExplore is tier 3. Names are sorted; distinct pairs come first in
// (A, B) lexicographic order, then self pairs in name order.
func selectExplore(in Input) (Choice, bool) {
	names := ir.SortedUnique(in.Available)
	for i := range names {
		for j := i + 1; j < len(names); j++ {
			p := ir.Canon(names[i], names[j])
			if !in.Ledger.Attempted(p) {
				return Choice{Pair: p, Tier: TierExplore, Found: true}, true
			}
		}
	}
	for _, e := range names {
		p := ir.Canon(e, e)
		if !in.Ledger.Attempted(p) {
			return Choice{Pair: p, Tier: TierExplore, Found: true}, true
		}
	}
	return Choice{}, false
}

// selectRandom is tier 4. It samples with replacement and rejects attempted
// pairs, giving up after MaxRandomTries samples.
func selectRandom(in Input) (Choice, bool) {
	names := ir.SortedUnique(in.Available)
	if len(names) == 0 || in.Rand == nil {
		return Choice{}, false
	}
	tries := in.MaxRandomTries
	if tries <= 0 {
		tries = DefaultMaxRandomTries
	}
	for range tries {
		a := names[in.Rand.IntN(len(names))]
		b := names[in.Rand.IntN(len(names))]
		p := ir.Canon(a, b)
		if !in.Ledger.Attempted(p) {
			return Choice{Pair: p, Tier: TierRandom, Found: true}, true
		}
	}
	return Choice{}, false
}

// Remaining counts untried pairs among the available elements, self pairs
// included. It is used for progress reporting.
func Remaining(available []ir.Element, ledger Ledger) int {
	names := ir.SortedUnique(available)
	n := 0
	for i := range names {
		for j := i; j < len(names); j++ {
			if !ledger.Attempted(ir.Canon(names[i], names[j])) {
				n++
			}
		}
	}
	return n
}
