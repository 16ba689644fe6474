// Package engine implements the craftloop Discovery Cycle Controller.
//
// The controller drives one environment adapter through a strictly
// sequential loop:
//
//	Idle → Query → Select → Dispatch → Interpret → Persist → Query ...
//
// and stops in one of the terminal states Exhausted, CycleLimit,
// Interrupted or Failed.
//
// ARCHITECTURE:
//
// Single-Writer Loop:
// Run is the only goroutine that touches the knowledge.State and the
// store. At most one combination attempt is in flight, because an adapter
// represents one exclusive workspace. No locking is needed.
//
// Cycle Processing:
//  1. Query: check cancellation, then list available elements (empty
//     results back off, reset the workspace and retry)
//  2. Select: ask the selector for the next untried pair
//  3. Dispatch: mark the pair attempted, flush the mark, then combine
//  4. Interpret: classify the outcome and update recipes, the discovered
//     set and rewards
//  5. Persist: commit the cycle's delta in one transaction
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Every ledger mark, recipe, discovery and reward is stamped with a
// monotonic seq from Clock.Next(). Wall-clock time is never used for
// ordering.
//
// Mark Before Dispatch:
// The attempt mark is durable before the adapter is invoked, so a crash or
// adapter failure can never cause the same pair to be retried.
//
// Cooperative Cancellation:
// The context is checked only at the top of Query. A cancelled run
// persists what it has and stops in Interrupted.
package engine
