package engine

import "fmt"

// State is the controller's position in the discovery cycle.
type State int

const (
	StateIdle State = iota
	StateQuery
	StateSelect
	StateDispatch
	StateInterpret
	StatePersist

	// Terminal states.
	StateExhausted
	StateCycleLimit
	StateInterrupted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateQuery:
		return "query"
	case StateSelect:
		return "select"
	case StateDispatch:
		return "dispatch"
	case StateInterpret:
		return "interpret"
	case StatePersist:
		return "persist"
	case StateExhausted:
		return "exhausted"
	case StateCycleLimit:
		return "cycle_limit"
	case StateInterrupted:
		return "interrupted"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether the loop has stopped.
func (s State) Terminal() bool {
	return s >= StateExhausted
}
