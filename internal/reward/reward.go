// Package reward implements the Reward Tracker: side accounting of discovery
// and goal-completion points.
//
// The tracker only writes to the RewardLedger of a knowledge.State. Nothing
// in the selector reads rewards.
package reward

import (
	"log/slog"

	"github.com/roach88/craftloop/internal/goals"
	"github.com/roach88/craftloop/internal/ir"
	"github.com/roach88/craftloop/internal/knowledge"
)

// Default bonuses.
const (
	DefaultDiscoveryBonus = 1
	DefaultGoalBonus      = 10
)

// Config holds reward amounts.
type Config struct {
	DiscoveryBonus int64 `yaml:"discovery_bonus" json:"discovery_bonus"`
	GoalBonus      int64 `yaml:"goal_bonus" json:"goal_bonus"`
}

// DefaultConfig returns the default bonuses.
func DefaultConfig() Config {
	return Config{DiscoveryBonus: DefaultDiscoveryBonus, GoalBonus: DefaultGoalBonus}
}

// Gain describes the points credited for one element.
type Gain struct {
	Points   int64
	Goal     bool
	Category string
}

// Tracker credits rewards against a goal index.
type Tracker struct {
	cfg    Config
	goals  *goals.Spec
	logger *slog.Logger
}

// NewTracker creates a tracker. A nil spec means no goal bonuses.
func NewTracker(cfg Config, spec *goals.Spec, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{cfg: cfg, goals: spec, logger: logger}
}

// OnCrafted credits an element that a combination just added to the
// DiscoveredSet for the first time ever. The caller must only call it after
// State.Discover returned true, which is what makes the discovery bonus
// once-per-element across runs.
//
// The goal bonus is paid once per goal item; a goal item that is already
// achieved earns nothing more.
func (t *Tracker) OnCrafted(st *knowledge.State, e ir.Element, seq int64, runID string) Gain {
	var g Gain
	if t.cfg.DiscoveryBonus != 0 {
		st.Credit(knowledge.RewardEvent{
			Kind:    knowledge.RewardDiscovery,
			Element: e,
			Points:  t.cfg.DiscoveryBonus,
			Seq:     seq,
			RunID:   runID,
		})
		g.Points += t.cfg.DiscoveryBonus
	}

	category, ok := t.goals.Match(e)
	if !ok || !st.Achieve(e, category, seq, runID) {
		return g
	}
	g.Goal = true
	g.Category = category
	if t.cfg.GoalBonus != 0 {
		st.Credit(knowledge.RewardEvent{
			Kind:     knowledge.RewardGoal,
			Element:  e,
			Category: category,
			Points:   t.cfg.GoalBonus,
			Seq:      seq,
			RunID:    runID,
		})
		g.Points += t.cfg.GoalBonus
	}
	t.logger.Info("goal achieved", "item", e, "category", category, "bonus", t.cfg.GoalBonus)
	return g
}

// OnObserved handles an element that first appeared in the adapter's
// available list rather than as a combination result. It earns no points,
// but a goal item seen this way is still marked achieved so its bonus can
// never be paid later.
func (t *Tracker) OnObserved(st *knowledge.State, e ir.Element, seq int64, runID string) {
	if category, ok := t.goals.Match(e); ok {
		if st.Achieve(e, category, seq, runID) {
			t.logger.Info("goal item observed without crafting", "item", e, "category", category)
		}
	}
}

// Unachieved lists goal items that are already discovered but carry no
// achievement, in goal priority order. Imported knowledge can leave items in
// that state; the controller settles them with OnObserved when a run starts.
func (t *Tracker) Unachieved(st *knowledge.State) []ir.Element {
	var out []ir.Element
	for _, target := range t.goals.Targets() {
		if st.IsDiscovered(target.Item) && !st.Achieved(target.Item) {
			out = append(out, target.Item)
		}
	}
	return out
}
