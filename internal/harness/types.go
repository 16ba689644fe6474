package harness

import (
	"github.com/roach88/craftloop/internal/engine"
	"github.com/roach88/craftloop/internal/knowledge"
)

// TraceEvent is one cycle as recorded in a trace.
type TraceEvent struct {
	Cycle    int    `json:"cycle"`
	Seq      int64  `json:"seq"`
	Tier     string `json:"tier"`
	A        string `json:"a"`
	B        string `json:"b"`
	Target   string `json:"target,omitempty"`
	Outcome  string `json:"outcome"`
	Result   string `json:"result,omitempty"`
	Reward   int64  `json:"reward,omitempty"`
	Goal     string `json:"goal,omitempty"`
	Conflict bool   `json:"conflict,omitempty"`
}

func traceEvent(ev engine.CycleEvent) TraceEvent {
	return TraceEvent{
		Cycle:    ev.Cycle,
		Seq:      ev.Seq,
		Tier:     ev.TierName,
		A:        string(ev.Pair.A),
		B:        string(ev.Pair.B),
		Target:   string(ev.Target),
		Outcome:  string(ev.Outcome),
		Result:   string(ev.Result),
		Reward:   ev.Reward,
		Goal:     ev.Goal,
		Conflict: ev.Conflict,
	}
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every assertion held.
	Pass bool `json:"pass"`

	// Summary is the controller's run summary.
	Summary engine.Summary `json:"summary"`

	// Trace contains every cycle in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the final knowledge, reloaded from the store.
	State *knowledge.State `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
