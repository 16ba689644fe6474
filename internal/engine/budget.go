package engine

// CycleBudget counts completed cycles against an optional maximum.
//
// The budget is checked at the top of every Query, after the cancellation
// check. Reaching it is a clean stop (StateCycleLimit), not an error: the
// selector simply has not run out of candidates yet.
type CycleBudget struct {
	max     int // Zero means unbounded
	current int
}

// NewCycleBudget creates a budget. max <= 0 means unbounded.
func NewCycleBudget(max int) *CycleBudget {
	if max < 0 {
		max = 0
	}
	return &CycleBudget{max: max}
}

// Spend records one completed cycle.
func (b *CycleBudget) Spend() {
	b.current++
}

// Exhausted reports whether no further cycle may start.
func (b *CycleBudget) Exhausted() bool {
	return b.max > 0 && b.current >= b.max
}

// Used returns the number of completed cycles.
func (b *CycleBudget) Used() int {
	return b.current
}

// Max returns the limit, or 0 when unbounded.
func (b *CycleBudget) Max() int {
	return b.max
}
