package engine

import (
	"github.com/roach88/craftloop/internal/ir"
	"github.com/roach88/craftloop/internal/selector"
)

// CycleEvent describes one completed cycle.
type CycleEvent struct {
	RunID    string         `json:"run_id"`
	Cycle    int            `json:"cycle"`
	Seq      int64          `json:"seq"`
	Pair     ir.Pair        `json:"pair"`
	Tier     selector.Tier  `json:"-"`
	TierName string         `json:"tier"`
	Target   ir.Element     `json:"target,omitempty"` // Goal item for goal-directed picks
	Outcome  ir.OutcomeKind `json:"outcome"`
	Result   ir.Element     `json:"result,omitempty"`
	Reason   string         `json:"reason,omitempty"`
	Reward   int64          `json:"reward,omitempty"`
	Goal     string         `json:"goal_category,omitempty"` // Set when the result achieved a goal
	Conflict bool           `json:"conflict,omitempty"`
}

// Observer receives an event after every persisted cycle. Observers run on
// the controller goroutine and must not block.
type Observer interface {
	OnCycle(ev CycleEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev CycleEvent)

// OnCycle calls f(ev).
func (f ObserverFunc) OnCycle(ev CycleEvent) {
	f(ev)
}

// Summary reports how a run ended.
type Summary struct {
	RunID         string       `json:"run_id"`
	Cycles        int          `json:"cycles"`
	Stop          State        `json:"-"`
	StopReason    string       `json:"stop"`
	StartedSeq    int64        `json:"started_seq"`
	FinishedSeq   int64        `json:"finished_seq"`
	NewElements   []ir.Element `json:"new_elements"`
	RewardGained  int64        `json:"reward_gained"`
	GoalsAchieved []ir.Element `json:"goals_achieved"`
	Conflicts     int          `json:"conflicts"`
}
