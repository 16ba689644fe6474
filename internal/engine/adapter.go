package engine

import (
	"context"

	"github.com/roach88/craftloop/internal/ir"
)

// Adapter is the environment boundary: everything the controller knows about
// the crafting world comes through these three calls. Implementations own all
// presentation and transport concerns.
//
// Errors returned by an adapter are treated as transient and retried with
// backoff. A combination that was performed but produced nothing is the
// NoEffect outcome, not an error.
type Adapter interface {
	// ListAvailable returns the elements currently usable in the workspace.
	ListAvailable(ctx context.Context) ([]ir.Element, error)

	// AttemptCombine combines a and b once and reports what happened.
	AttemptCombine(ctx context.Context, a, b ir.Element) (ir.Outcome, error)

	// ResetWorkspace clears accumulated instances. It is best-effort: a false
	// result or an error is logged and ignored.
	ResetWorkspace(ctx context.Context) (bool, error)
}

// Setupper is implemented by adapters that need initialization before the
// first query. A Setup failure stops the run with ErrCodeAdapterSetup.
type Setupper interface {
	Setup(ctx context.Context) error
}
