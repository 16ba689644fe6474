// Package goals implements the Goal Index: a static, ordered mapping from
// category to target elements.
//
// Order encodes priority. Categories are consulted in declaration order and
// items within a category in list order. The index is used only to bias
// exploration and to pay goal rewards; it never changes after loading.
package goals

import (
	"fmt"
	"strings"

	"github.com/roach88/craftloop/internal/ir"
)

// Category is a named, ordered list of goal items.
type Category struct {
	Name  string       `yaml:"category" json:"category"`
	Items []ir.Element `yaml:"items" json:"items"`
}

// Target is one goal item together with its category.
type Target struct {
	Category string
	Item     ir.Element
}

// Spec is the Goal Index. The zero value has no goals.
type Spec struct {
	categories []Category
}

// New builds a validated Spec from categories in priority order.
// The categories are copied and every item is normalized with
// ir.NormalizeElement, so goals match adapter names exactly.
func New(categories []Category) (*Spec, error) {
	s := &Spec{categories: make([]Category, 0, len(categories))}
	for _, c := range categories {
		items := make([]ir.Element, len(c.Items))
		for i, item := range c.Items {
			if e, err := ir.NormalizeElement(string(item)); err == nil {
				item = e
			}
			items[i] = item
		}
		s.categories = append(s.categories, Category{Name: strings.TrimSpace(c.Name), Items: items})
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// MustNew is like New but panics on error.
// Use only in tests or for built-in specs.
func MustNew(categories []Category) *Spec {
	s, err := New(categories)
	if err != nil {
		panic(err)
	}
	return s
}

// Default returns the built-in goal list.
func Default() *Spec {
	return MustNew([]Category{
		{Name: "Agriculture", Items: []ir.Element{"Plant", "Farm", "Tractor"}},
		{Name: "Mechanical", Items: []ir.Element{"Metal", "Engine", "Car", "Plane"}},
		{Name: "Political", Items: []ir.Element{"Human", "Village", "City", "Country"}},
		{Name: "Infinite", Items: []ir.Element{"Infinity"}},
	})
}

// Empty returns a Spec with no goals.
func Empty() *Spec {
	return &Spec{}
}

// Validate checks that category names are non-empty and unique and that
// every item is a non-empty name. An item may appear in several categories.
func (s *Spec) Validate() error {
	seen := make(map[string]bool, len(s.categories))
	for i, c := range s.categories {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("goal category %d: name is required", i)
		}
		if seen[c.Name] {
			return fmt.Errorf("goal category %q: duplicate name", c.Name)
		}
		seen[c.Name] = true
		for j, item := range c.Items {
			if strings.TrimSpace(string(item)) == "" {
				return fmt.Errorf("goal category %q item %d: name is required", c.Name, j)
			}
		}
	}
	return nil
}

// Categories returns a copy of the categories in priority order.
func (s *Spec) Categories() []Category {
	if s == nil {
		return nil
	}
	out := make([]Category, len(s.categories))
	for i, c := range s.categories {
		items := make([]ir.Element, len(c.Items))
		copy(items, c.Items)
		out[i] = Category{Name: c.Name, Items: items}
	}
	return out
}

// Targets returns every goal item in priority order: category order, then
// item order. Duplicates across categories are kept at their first position
// only.
func (s *Spec) Targets() []Target {
	if s == nil {
		return nil
	}
	seen := make(map[ir.Element]bool)
	var out []Target
	for _, c := range s.categories {
		for _, item := range c.Items {
			if seen[item] {
				continue
			}
			seen[item] = true
			out = append(out, Target{Category: c.Name, Item: item})
		}
	}
	return out
}

// Match reports the first category, in priority order, listing e.
// Matching is exact and case-sensitive.
func (s *Spec) Match(e ir.Element) (string, bool) {
	if s == nil {
		return "", false
	}
	for _, c := range s.categories {
		for _, item := range c.Items {
			if item == e {
				return c.Name, true
			}
		}
	}
	return "", false
}

// Len returns the number of distinct goal items.
func (s *Spec) Len() int {
	return len(s.Targets())
}

// CategoryProgress summarizes one category against a discovered set.
type CategoryProgress struct {
	Category  string       `json:"category"`
	Achieved  []ir.Element `json:"achieved"`
	Remaining []ir.Element `json:"remaining"`
}

// Done reports whether every item in the category has been discovered.
func (p CategoryProgress) Done() bool {
	return len(p.Remaining) == 0
}

// Progress reports, per category in priority order, which items are
// discovered and which remain.
func (s *Spec) Progress(isDiscovered func(ir.Element) bool) []CategoryProgress {
	if s == nil {
		return nil
	}
	out := make([]CategoryProgress, 0, len(s.categories))
	for _, c := range s.categories {
		p := CategoryProgress{
			Category:  c.Name,
			Achieved:  []ir.Element{},
			Remaining: []ir.Element{},
		}
		for _, item := range c.Items {
			if isDiscovered(item) {
				p.Achieved = append(p.Achieved, item)
			} else {
				p.Remaining = append(p.Remaining, item)
			}
		}
		out = append(out, p)
	}
	return out
}
