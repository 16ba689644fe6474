// Package sandbox implements a simulated crafting world.
//
// A World is a fixed recipe table loaded from YAML. A Sandbox plays that
// world through the controller's adapter interface: it starts with the
// world's primitives, makes every crafted result available, and reports
// outcomes the way a live environment would. It has no rendering and no
// network access, so the discovery loop can run headless and in tests.
package sandbox

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/craftloop/internal/ir"
)

// RecipeSpec is one world recipe as written in YAML.
type RecipeSpec struct {
	A      string `yaml:"a"`
	B      string `yaml:"b"`
	Result string `yaml:"result"`
}

// WorldSpec is the YAML form of a world.
//
//	primitives: [Water, Fire, Earth, Wind]
//	recipes:
//	  - {a: Water, b: Fire, result: Steam}
type WorldSpec struct {
	Primitives []string     `yaml:"primitives"`
	Recipes    []RecipeSpec `yaml:"recipes"`
}

// World is a validated, canonical recipe table.
type World struct {
	primitives []ir.Element
	recipes    map[ir.Pair]ir.Element
}

// LoadWorld reads and validates a world YAML file.
func LoadWorld(path string) (*World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read world file: %w", err)
	}
	w, err := ParseWorld(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return w, nil
}

// ParseWorld decodes world YAML. Unknown fields are rejected.
func ParseWorld(data []byte) (*World, error) {
	var spec WorldSpec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("failed to parse world YAML: %w", err)
	}
	return NewWorld(spec)
}

// NewWorld validates a spec. Names are normalized; a pair listed twice
// must agree on its result.
func NewWorld(spec WorldSpec) (*World, error) {
	if len(spec.Primitives) == 0 {
		return nil, errors.New("world has no primitives")
	}

	w := &World{recipes: make(map[ir.Pair]ir.Element, len(spec.Recipes))}
	seen := make(map[ir.Element]bool, len(spec.Primitives))
	for i, raw := range spec.Primitives {
		e, err := ir.NormalizeElement(raw)
		if err != nil {
			return nil, fmt.Errorf("primitives[%d]: %w", i, err)
		}
		if seen[e] {
			continue
		}
		seen[e] = true
		w.primitives = append(w.primitives, e)
	}

	for i, r := range spec.Recipes {
		a, err := ir.NormalizeElement(r.A)
		if err != nil {
			return nil, fmt.Errorf("recipes[%d].a: %w", i, err)
		}
		b, err := ir.NormalizeElement(r.B)
		if err != nil {
			return nil, fmt.Errorf("recipes[%d].b: %w", i, err)
		}
		result, err := ir.NormalizeElement(r.Result)
		if err != nil {
			return nil, fmt.Errorf("recipes[%d].result: %w", i, err)
		}
		p := ir.Canon(a, b)
		if prev, dup := w.recipes[p]; dup && prev != result {
			return nil, fmt.Errorf("recipes[%d]: pair %s already yields %q, not %q", i, p, prev, result)
		}
		w.recipes[p] = result
	}
	return w, nil
}

// Primitives returns the starting elements in declaration order.
func (w *World) Primitives() []ir.Element {
	return append([]ir.Element(nil), w.primitives...)
}

// Lookup returns the result of combining a and b.
func (w *World) Lookup(a, b ir.Element) (ir.Element, bool) {
	r, ok := w.recipes[ir.Canon(a, b)]
	return r, ok
}

// Len returns the number of recipes.
func (w *World) Len() int {
	return len(w.recipes)
}

// Reachable returns every element that can ever be produced from the
// primitives, primitives included, in discovery order of a breadth-first
// closure. Used to size scenarios and check exhaustion.
func (w *World) Reachable() []ir.Element {
	have := make(map[ir.Element]bool)
	out := make([]ir.Element, 0, len(w.primitives))
	for _, e := range w.primitives {
		have[e] = true
		out = append(out, e)
	}
	for grew := true; grew; {
		grew = false
		sorted := ir.SortedUnique(out)
		for i := range sorted {
			for j := i; j < len(sorted); j++ {
				r, ok := w.recipes[ir.Canon(sorted[i], sorted[j])]
				if ok && !have[r] {
					have[r] = true
					out = append(out, r)
					grew = true
				}
			}
		}
	}
	return out
}
