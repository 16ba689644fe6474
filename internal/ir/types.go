package ir

import "fmt"

// Element is the name of an artifact in the crafting space, as reported by
// the environment.
type Element string

// Pair is an unordered pair of elements in canonical form (A <= B).
// Self pairs (A == B) are valid keys distinct from every other pair.
type Pair struct {
	A Element `json:"a"`
	B Element `json:"b"`
}

// String renders the pair for logs.
func (p Pair) String() string {
	return fmt.Sprintf("%s + %s", p.A, p.B)
}

// Contains reports whether e is one of the pair's inputs.
func (p Pair) Contains(e Element) bool {
	return p.A == e || p.B == e
}

// Recipe records that combining Pair produced Result.
type Recipe struct {
	Pair   Pair    `json:"pair"`
	Result Element `json:"result"`
	Seq    int64   `json:"seq"`              // Logical clock when first recorded
	RunID  string  `json:"run_id,omitempty"` // Run that recorded it
}

// RecipeConflict records a later combination result that disagrees with the
// recipe already on file. The original recipe is never overwritten.
type RecipeConflict struct {
	Pair     Pair    `json:"pair"`
	Existing Element `json:"existing"`
	Observed Element `json:"observed"`
	Seq      int64   `json:"seq"`
	RunID    string  `json:"run_id,omitempty"`
}

// OutcomeKind classifies the result of a combination attempt.
type OutcomeKind string

const (
	// OutcomeNewElement means the combination produced an element not yet discovered.
	OutcomeNewElement OutcomeKind = "new_element"

	// OutcomeKnownElement means the combination produced an already discovered element.
	OutcomeKnownElement OutcomeKind = "known_element"

	// OutcomeNoEffect means no result was detected.
	OutcomeNoEffect OutcomeKind = "no_effect"

	// OutcomeAdapterFailure means the combine action itself could not be performed.
	OutcomeAdapterFailure OutcomeKind = "adapter_failure"

	// OutcomeDispatched marks a ledger entry whose outcome was never
	// interpreted, e.g. because the process died mid-dispatch.
	OutcomeDispatched OutcomeKind = "dispatched"

	// OutcomeImported marks a ledger entry merged from a progress document,
	// whose original outcome is unknown.
	OutcomeImported OutcomeKind = "imported"
)

// ValidOutcomeKinds lists every kind that may appear in the attempt ledger.
var ValidOutcomeKinds = map[OutcomeKind]bool{
	OutcomeNewElement:     true,
	OutcomeKnownElement:   true,
	OutcomeNoEffect:       true,
	OutcomeAdapterFailure: true,
	OutcomeDispatched:     true,
	OutcomeImported:       true,
}

// Outcome is the result of AttemptCombine.
type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	Result Element     `json:"result,omitempty"` // Set for NewElement and KnownElement
	Reason string      `json:"reason,omitempty"` // Set for AdapterFailure
}

// NewElement builds a NewElement outcome.
func NewElement(result Element) Outcome {
	return Outcome{Kind: OutcomeNewElement, Result: result}
}

// KnownElement builds a KnownElement outcome.
func KnownElement(result Element) Outcome {
	return Outcome{Kind: OutcomeKnownElement, Result: result}
}

// NoEffect builds a NoEffect outcome.
func NoEffect() Outcome {
	return Outcome{Kind: OutcomeNoEffect}
}

// AdapterFailure builds an AdapterFailure outcome.
func AdapterFailure(reason string) Outcome {
	return Outcome{Kind: OutcomeAdapterFailure, Reason: reason}
}

// HasResult reports whether the outcome carries a result element.
func (o Outcome) HasResult() bool {
	return (o.Kind == OutcomeNewElement || o.Kind == OutcomeKnownElement) && o.Result != ""
}

// Attempt is one Attempt Ledger entry.
type Attempt struct {
	Pair    Pair        `json:"pair"`
	Seq     int64       `json:"seq"`
	RunID   string      `json:"run_id,omitempty"`
	Outcome OutcomeKind `json:"outcome"`
	Result  Element     `json:"result,omitempty"`
}
