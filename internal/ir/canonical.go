package ir

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrInvalidElement is returned for element names that are empty after normalization.
var ErrInvalidElement = errors.New("invalid element name")

// NormalizeElement trims surrounding whitespace and puts the name in Unicode
// NFC. Case is preserved: goal matching is case-sensitive.
func NormalizeElement(raw string) (Element, error) {
	name := norm.NFC.String(strings.TrimSpace(raw))
	if name == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidElement, raw)
	}
	return Element(name), nil
}

// Canon returns the canonical pair for a and b.
// Canon(a, b) == Canon(b, a) for all inputs.
func Canon(a, b Element) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// IsCanonical reports whether p is already in canonical order.
func (p Pair) IsCanonical() bool {
	return p.A <= p.B
}

// Key returns the deterministic string encoding of the pair: a JSON array of
// the two sorted names, e.g. ["Earth","Fire"]. HTML characters are not
// escaped, so the key is stable and readable for any element name.
func (p Pair) Key() string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a two-string slice cannot fail.
	_ = enc.Encode([]string{string(p.A), string(p.B)})
	return strings.TrimSuffix(buf.String(), "\n")
}

// ParsePairKey decodes a key produced by Pair.Key. The result is
// re-canonicalized, so a hand-edited key with swapped names still maps to the
// same pair.
func ParsePairKey(key string) (Pair, error) {
	var names []string
	if err := json.Unmarshal([]byte(key), &names); err != nil {
		return Pair{}, fmt.Errorf("parse pair key %q: %w", key, err)
	}
	if len(names) != 2 {
		return Pair{}, fmt.Errorf("parse pair key %q: want 2 names, got %d", key, len(names))
	}
	if names[0] == "" || names[1] == "" {
		return Pair{}, fmt.Errorf("parse pair key %q: %w", key, ErrInvalidElement)
	}
	return Canon(Element(names[0]), Element(names[1])), nil
}

// ParseLegacyKey decodes the "a,b" keys written by legacy
// crafting_library.json files. The split happens at the first comma, so the
// first name must not contain one.
func ParseLegacyKey(key string) (Pair, error) {
	a, b, ok := strings.Cut(key, ",")
	if !ok {
		return Pair{}, fmt.Errorf("parse legacy key %q: missing separator", key)
	}
	ea, err := NormalizeElement(a)
	if err != nil {
		return Pair{}, fmt.Errorf("parse legacy key %q: %w", key, err)
	}
	eb, err := NormalizeElement(b)
	if err != nil {
		return Pair{}, fmt.Errorf("parse legacy key %q: %w", key, err)
	}
	return Canon(ea, eb), nil
}

// SortedUnique returns the distinct elements of in, sorted by name.
func SortedUnique(in []Element) []Element {
	seen := make(map[Element]bool, len(in))
	out := make([]Element, 0, len(in))
	for _, e := range in {
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	slices.Sort(out)
	return out
}
