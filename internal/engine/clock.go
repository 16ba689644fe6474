package engine

import "sync/atomic"

// Clock is the monotonic logical clock for knowledge ordering.
//
// Every ledger mark, recipe, discovery and reward event is stamped with a
// strictly increasing seq from this clock. A controller resumes it from the
// highest persisted seq so ordering survives restarts.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations),
// although only the controller's Run goroutine calls Next.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
// Used to resume from the store's MaxSeq.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
