package testutil

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/roach88/craftloop/internal/knowledge"
	"github.com/roach88/craftloop/internal/store"
)

// ErrInjectedIO is returned by FlakyStore once its commit budget is spent.
var ErrInjectedIO = errors.New("injected storage failure")

// OpenStore opens a fresh store in a temp dir that is closed on cleanup.
func OpenStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "craftloop.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// FlakyStore wraps a store and fails every commit after the first
// CommitsBeforeFailure succeed.
type FlakyStore struct {
	*store.Store
	CommitsBeforeFailure int
	commits              int
}

// Commit forwards to the wrapped store until the budget is spent.
func (f *FlakyStore) Commit(ctx context.Context, d knowledge.Delta) error {
	if f.commits >= f.CommitsBeforeFailure {
		return ErrInjectedIO
	}
	f.commits++
	return f.Store.Commit(ctx, d)
}

// Commits returns the number of successful commits.
func (f *FlakyStore) Commits() int {
	return f.commits
}
