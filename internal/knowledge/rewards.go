package knowledge

import "github.com/roach88/craftloop/internal/ir"

// RewardKind distinguishes reward sources.
type RewardKind string

const (
	// RewardDiscovery is paid once per element ever added to the DiscoveredSet.
	RewardDiscovery RewardKind = "discovery"
	// RewardGoal is paid once per goal item, on its first discovery.
	RewardGoal RewardKind = "goal"
)

// RewardEvent is one RewardLedger entry.
type RewardEvent struct {
	Kind     RewardKind `json:"kind"`
	Element  ir.Element `json:"element"`
	Category string     `json:"category,omitempty"` // Goal category, for goal rewards
	Points   int64      `json:"points"`
	Seq      int64      `json:"seq"`
	RunID    string     `json:"run_id,omitempty"`
}

// Rewards is the RewardLedger: an append-only list of events and their total.
// It is observational only.
type Rewards struct {
	Total  int64
	Events []RewardEvent
}

func (r *Rewards) add(ev RewardEvent) {
	r.Total += ev.Points
	r.Events = append(r.Events, ev)
}

func (r Rewards) clone() Rewards {
	out := Rewards{Total: r.Total, Events: make([]RewardEvent, len(r.Events))}
	copy(out.Events, r.Events)
	return out
}

// TotalFor sums points earned by one run.
func (r Rewards) TotalFor(runID string) int64 {
	var total int64
	for _, ev := range r.Events {
		if ev.RunID == runID {
			total += ev.Points
		}
	}
	return total
}
