package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/craftloop/internal/engine"
	"github.com/roach88/craftloop/internal/ir"
	"github.com/roach88/craftloop/internal/knowledge"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// evaluateAssertion checks one assertion against the reloaded state and the
// run summary.
func evaluateAssertion(st *knowledge.State, sum engine.Summary, a Assertion) error {
	switch a.Type {
	case AssertDiscoveredContains:
		return assertAll(a.Type, a.Elements, st.IsDiscovered, st.Discovered())
	case AssertAchieved:
		achieved := make([]ir.Element, 0)
		for _, ach := range st.Achievements() {
			achieved = append(achieved, ach.Item)
		}
		return assertAll(a.Type, a.Elements, st.Achieved, achieved)
	case AssertRecipe:
		return assertRecipe(st, a)
	case AssertReward:
		if got := st.Rewards().Total; got != a.Total {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("total %d", a.Total),
				Actual:   fmt.Sprintf("total %d", got),
			}
		}
		return nil
	case AssertStop:
		if sum.StopReason != a.State {
			return &AssertionError{Type: a.Type, Expected: a.State, Actual: sum.StopReason}
		}
		return nil
	case AssertAttempts:
		if got := st.LedgerSize(); got != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d attempts", a.Count),
				Actual:   fmt.Sprintf("%d attempts", got),
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

func assertAll(kind string, want []string, has func(ir.Element) bool, actual []ir.Element) error {
	var missing []string
	for _, name := range want {
		e, err := ir.NormalizeElement(name)
		if err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}
		if !has(e) {
			missing = append(missing, string(e))
		}
	}
	if len(missing) == 0 {
		return nil
	}

	names := make([]string, len(actual))
	for i, e := range actual {
		names[i] = string(e)
	}
	return &AssertionError{
		Type:     kind,
		Expected: fmt.Sprintf("[%s] (missing %s)", strings.Join(want, ", "), strings.Join(missing, ", ")),
		Actual:   "[" + strings.Join(names, ", ") + "]",
	}
}

func assertRecipe(st *knowledge.State, a Assertion) error {
	p, err := normalizePair(a.A, a.B)
	if err != nil {
		return fmt.Errorf("recipe: %w", err)
	}
	want, err := ir.NormalizeElement(a.Result)
	if err != nil {
		return fmt.Errorf("recipe: %w", err)
	}

	r, ok := st.Recipe(p)
	if !ok {
		return &AssertionError{
			Type:     AssertRecipe,
			Expected: fmt.Sprintf("%s -> %s", p, want),
			Actual:   "no recipe",
		}
	}
	if r.Result != want {
		return &AssertionError{
			Type:     AssertRecipe,
			Expected: fmt.Sprintf("%s -> %s", p, want),
			Actual:   fmt.Sprintf("%s -> %s", p, r.Result),
		}
	}
	return nil
}
