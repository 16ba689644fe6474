// Package testutil provides test doubles for the craftloop controller.
package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/craftloop/internal/ir"
)

// ErrScripted is returned by scripted adapter failures.
var ErrScripted = errors.New("scripted adapter failure")

// Call records one adapter call.
type Call struct {
	Method string
	Pair   ir.Pair // Set for AttemptCombine
}

// ScriptedAdapter is an in-memory adapter driven by a fixed recipe table.
//
// Available starts as Primitives; every element produced by a combination is
// appended. Outcomes are reported the way a real environment would: the
// adapter's own view of novelty, which the controller re-checks.
//
// Thread-safety: safe for concurrent use, though the controller calls it
// from one goroutine.
type ScriptedAdapter struct {
	mu sync.Mutex

	available []ir.Element
	recipes   map[ir.Pair]ir.Element

	// ListErrors makes the next n ListAvailable calls fail.
	ListErrors int
	// EmptyLists makes the next n successful ListAvailable calls return nothing.
	EmptyLists int
	// CombineErrors makes the next n AttemptCombine calls fail.
	CombineErrors int
	// FailurePairs report AdapterFailure instead of combining.
	FailurePairs map[ir.Pair]string
	// ResetFails makes ResetWorkspace report failure.
	ResetFails bool
	// SetupErr is returned by Setup.
	SetupErr error
	// OnCombine runs after each successful AttemptCombine, e.g. to cancel a
	// context mid-run.
	OnCombine func(p ir.Pair)

	calls []Call
}

// NewScriptedAdapter creates an adapter with the given primitives and recipes.
func NewScriptedAdapter(primitives []ir.Element, recipes map[ir.Pair]ir.Element) *ScriptedAdapter {
	a := &ScriptedAdapter{
		available:    append([]ir.Element(nil), primitives...),
		recipes:      make(map[ir.Pair]ir.Element, len(recipes)),
		FailurePairs: make(map[ir.Pair]string),
	}
	for p, r := range recipes {
		a.recipes[ir.Canon(p.A, p.B)] = r
	}
	return a
}

// Setup returns SetupErr.
func (a *ScriptedAdapter) Setup(ctx context.Context) error {
	a.record(Call{Method: "Setup"})
	return a.SetupErr
}

// ListAvailable returns the current workspace elements.
func (a *ScriptedAdapter) ListAvailable(ctx context.Context) ([]ir.Element, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, Call{Method: "ListAvailable"})

	if a.ListErrors > 0 {
		a.ListErrors--
		return nil, ErrScripted
	}
	if a.EmptyLists > 0 {
		a.EmptyLists--
		return nil, nil
	}
	return append([]ir.Element(nil), a.available...), nil
}

// AttemptCombine looks the pair up in the recipe table.
func (a *ScriptedAdapter) AttemptCombine(ctx context.Context, x, y ir.Element) (ir.Outcome, error) {
	p := ir.Canon(x, y)

	a.mu.Lock()
	a.calls = append(a.calls, Call{Method: "AttemptCombine", Pair: p})
	if a.CombineErrors > 0 {
		a.CombineErrors--
		a.mu.Unlock()
		return ir.Outcome{}, ErrScripted
	}
	out := a.combineLocked(p)
	hook := a.OnCombine
	a.mu.Unlock()

	if hook != nil {
		hook(p)
	}
	return out, nil
}

func (a *ScriptedAdapter) combineLocked(p ir.Pair) ir.Outcome {
	if reason, ok := a.FailurePairs[p]; ok {
		return ir.AdapterFailure(reason)
	}
	result, ok := a.recipes[p]
	if !ok {
		return ir.NoEffect()
	}
	for _, e := range a.available {
		if e == result {
			return ir.KnownElement(result)
		}
	}
	a.available = append(a.available, result)
	return ir.NewElement(result)
}

// ResetWorkspace reports !ResetFails.
func (a *ScriptedAdapter) ResetWorkspace(ctx context.Context) (bool, error) {
	a.record(Call{Method: "ResetWorkspace"})
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.ResetFails, nil
}

func (a *ScriptedAdapter) record(c Call) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, c)
}

// Calls returns every recorded call in order.
func (a *ScriptedAdapter) Calls() []Call {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Call(nil), a.calls...)
}

// Combined returns the pairs passed to AttemptCombine, in order.
func (a *ScriptedAdapter) Combined() []ir.Pair {
	var out []ir.Pair
	for _, c := range a.Calls() {
		if c.Method == "AttemptCombine" {
			out = append(out, c.Pair)
		}
	}
	return out
}

// CountCalls returns how many times method was called.
func (a *ScriptedAdapter) CountCalls(method string) int {
	n := 0
	for _, c := range a.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}
