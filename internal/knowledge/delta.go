package knowledge

import (
	"fmt"

	"github.com/roach88/craftloop/internal/ir"
)

// Delta is the set of mutations made to a State since its last flush.
// Attempts may list the same pair twice: once when marked, once when its
// outcome is set. Stores apply them in order as upserts.
type Delta struct {
	Attempts     []ir.Attempt
	Recipes      []ir.Recipe
	Conflicts    []ir.RecipeConflict
	Discoveries  []Discovery
	Rewards      []RewardEvent
	Achievements []Achievement
}

// Empty reports whether the delta carries no mutations.
func (d Delta) Empty() bool {
	return len(d.Attempts) == 0 &&
		len(d.Recipes) == 0 &&
		len(d.Conflicts) == 0 &&
		len(d.Discoveries) == 0 &&
		len(d.Rewards) == 0 &&
		len(d.Achievements) == 0
}

// Snapshot is the full, ordered content of a State. It is the unit of
// persistence round-trips: Restore(s.Snapshot()) reproduces s exactly.
type Snapshot struct {
	Recipes      []ir.Recipe         `json:"recipes"`
	Attempts     []ir.Attempt        `json:"attempts"`
	Discoveries  []Discovery         `json:"discoveries"`
	Achievements []Achievement       `json:"achievements"`
	Conflicts    []ir.RecipeConflict `json:"conflicts"`
	Rewards      []RewardEvent       `json:"rewards"`
}

// Snapshot returns the ordered content of the state.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Recipes:      s.Recipes(),
		Attempts:     s.Ledger(),
		Discoveries:  s.Discoveries(),
		Achievements: s.Achievements(),
		Conflicts:    s.Conflicts(),
		Rewards:      s.rewards.clone().Events,
	}
}

// Restore rebuilds a State from a snapshot. The restored state has no
// pending delta. Restore fails on duplicate or non-canonical keys, which
// indicate a corrupt store.
func Restore(snap Snapshot) (*State, error) {
	s := New()

	for _, r := range snap.Recipes {
		if !r.Pair.IsCanonical() {
			return nil, fmt.Errorf("restore: recipe pair %s is not canonical", r.Pair)
		}
		if _, dup := s.recipes[r.Pair]; dup {
			return nil, fmt.Errorf("restore: duplicate recipe for %s", r.Pair)
		}
		s.recipes[r.Pair] = r
		s.recipeOrder = append(s.recipeOrder, r.Pair)
	}

	for _, a := range snap.Attempts {
		if !a.Pair.IsCanonical() {
			return nil, fmt.Errorf("restore: attempt pair %s is not canonical", a.Pair)
		}
		if !ir.ValidOutcomeKinds[a.Outcome] {
			return nil, fmt.Errorf("restore: attempt %s has unknown outcome %q", a.Pair, a.Outcome)
		}
		if _, dup := s.ledger[a.Pair]; dup {
			return nil, fmt.Errorf("restore: duplicate attempt for %s", a.Pair)
		}
		s.ledger[a.Pair] = a
		s.ledgerOrder = append(s.ledgerOrder, a.Pair)
	}

	for _, d := range snap.Discoveries {
		if _, dup := s.discovered[d.Element]; dup {
			return nil, fmt.Errorf("restore: duplicate discovery %q", d.Element)
		}
		s.discovered[d.Element] = d
		s.discoveredOrder = append(s.discoveredOrder, d.Element)
	}

	for _, a := range snap.Achievements {
		if _, dup := s.achieved[a.Item]; dup {
			return nil, fmt.Errorf("restore: duplicate achievement %q", a.Item)
		}
		s.achieved[a.Item] = a
		s.achievedList = append(s.achievedList, a.Item)
	}

	s.conflicts = append(s.conflicts, snap.Conflicts...)
	for _, ev := range snap.Rewards {
		s.rewards.add(ev)
	}

	return s, nil
}
