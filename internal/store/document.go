package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/roach88/craftloop/internal/ir"
	"github.com/roach88/craftloop/internal/knowledge"
)

// KnowledgeDocument is the portable form of the Knowledge Store: a mapping
// from pair key (ir.Pair.Key) to result element.
type KnowledgeDocument struct {
	Version string                `json:"version"`
	Recipes map[string]ir.Element `json:"recipes"`
}

// ProgressDocument is the portable form of the DiscoveredSet and the
// Attempt Ledger. Field names follow the legacy game_state.json layout.
type ProgressDocument struct {
	Version             string       `json:"version"`
	DiscoveredItems     []ir.Element `json:"discovered_items"`
	CraftedCombinations []string     `json:"crafted_combinations"`
}

// BuildDocuments renders a snapshot as the two portable documents.
func BuildDocuments(snap knowledge.Snapshot) (KnowledgeDocument, ProgressDocument) {
	kd := KnowledgeDocument{
		Version: ir.SchemaVersion,
		Recipes: make(map[string]ir.Element, len(snap.Recipes)),
	}
	for _, r := range snap.Recipes {
		kd.Recipes[r.Pair.Key()] = r.Result
	}

	pd := ProgressDocument{
		Version:             ir.SchemaVersion,
		DiscoveredItems:     make([]ir.Element, 0, len(snap.Discoveries)),
		CraftedCombinations: make([]string, 0, len(snap.Attempts)),
	}
	for _, d := range snap.Discoveries {
		pd.DiscoveredItems = append(pd.DiscoveredItems, d.Element)
	}
	for _, a := range snap.Attempts {
		pd.CraftedCombinations = append(pd.CraftedCombinations, a.Pair.Key())
	}
	return kd, pd
}

// WriteDocument encodes a document as indented JSON without HTML escaping.
// Map keys are sorted by encoding/json, so output is deterministic.
func WriteDocument(w io.Writer, doc any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// parseAnyPairKey accepts both the current ["a","b"] keys and the legacy
// "a,b" keys of crafting_library.json.
func parseAnyPairKey(key string) (ir.Pair, error) {
	if strings.HasPrefix(strings.TrimSpace(key), "[") {
		return ir.ParsePairKey(key)
	}
	return ir.ParseLegacyKey(key)
}

// ReadKnowledgeDocument decodes a knowledge document. Legacy files that are a
// bare {"a,b": "result"} object are accepted too. Every key is validated and
// re-encoded canonically; malformed content wraps ErrCorrupt.
func ReadKnowledgeDocument(r io.Reader) (KnowledgeDocument, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return KnowledgeDocument{}, fmt.Errorf("read knowledge document: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return KnowledgeDocument{}, fmt.Errorf("%w: knowledge document: %v", ErrCorrupt, err)
	}

	var recipes map[string]ir.Element
	version := ir.SchemaVersion
	if body, ok := raw["recipes"]; ok {
		if v, ok := raw["version"]; ok {
			if err := json.Unmarshal(v, &version); err != nil {
				return KnowledgeDocument{}, fmt.Errorf("%w: knowledge document version: %v", ErrCorrupt, err)
			}
		}
		if err := json.Unmarshal(body, &recipes); err != nil {
			return KnowledgeDocument{}, fmt.Errorf("%w: knowledge document recipes: %v", ErrCorrupt, err)
		}
	} else if err := json.Unmarshal(data, &recipes); err != nil {
		return KnowledgeDocument{}, fmt.Errorf("%w: legacy knowledge document: %v", ErrCorrupt, err)
	}

	doc := KnowledgeDocument{Version: version, Recipes: make(map[string]ir.Element, len(recipes))}
	for key, result := range recipes {
		p, err := parseAnyPairKey(key)
		if err != nil {
			return KnowledgeDocument{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		res, err := ir.NormalizeElement(string(result))
		if err != nil {
			return KnowledgeDocument{}, fmt.Errorf("%w: recipe %s: %v", ErrCorrupt, p, err)
		}
		canonical := p.Key()
		if prev, dup := doc.Recipes[canonical]; dup && prev != res {
			return KnowledgeDocument{}, fmt.Errorf("%w: pair %s maps to both %q and %q", ErrCorrupt, p, prev, res)
		}
		doc.Recipes[canonical] = res
	}
	return doc, nil
}

// ReadProgressDocument decodes a progress document. Combination entries may
// be pair-key strings or, as in legacy game_state.json, two-element arrays.
func ReadProgressDocument(r io.Reader) (ProgressDocument, error) {
	var raw struct {
		Version             string            `json:"version"`
		DiscoveredItems     []string          `json:"discovered_items"`
		CraftedCombinations []json.RawMessage `json:"crafted_combinations"`
	}
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return ProgressDocument{}, fmt.Errorf("%w: progress document: %v", ErrCorrupt, err)
	}

	doc := ProgressDocument{
		Version:             raw.Version,
		DiscoveredItems:     make([]ir.Element, 0, len(raw.DiscoveredItems)),
		CraftedCombinations: make([]string, 0, len(raw.CraftedCombinations)),
	}
	if doc.Version == "" {
		doc.Version = ir.SchemaVersion
	}

	for _, name := range raw.DiscoveredItems {
		e, err := ir.NormalizeElement(name)
		if err != nil {
			return ProgressDocument{}, fmt.Errorf("%w: discovered item: %v", ErrCorrupt, err)
		}
		doc.DiscoveredItems = append(doc.DiscoveredItems, e)
	}

	for _, entry := range raw.CraftedCombinations {
		p, err := parseCombination(entry)
		if err != nil {
			return ProgressDocument{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		doc.CraftedCombinations = append(doc.CraftedCombinations, p.Key())
	}
	return doc, nil
}

func parseCombination(entry json.RawMessage) (ir.Pair, error) {
	trimmed := bytes.TrimSpace(entry)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var key string
		if err := json.Unmarshal(trimmed, &key); err != nil {
			return ir.Pair{}, fmt.Errorf("crafted combination: %w", err)
		}
		return parseAnyPairKey(key)
	}
	var names []string
	if err := json.Unmarshal(trimmed, &names); err != nil {
		return ir.Pair{}, fmt.Errorf("crafted combination: %w", err)
	}
	if len(names) != 2 {
		return ir.Pair{}, fmt.Errorf("crafted combination: want 2 names, got %d", len(names))
	}
	a, err := ir.NormalizeElement(names[0])
	if err != nil {
		return ir.Pair{}, fmt.Errorf("crafted combination: %w", err)
	}
	b, err := ir.NormalizeElement(names[1])
	if err != nil {
		return ir.Pair{}, fmt.Errorf("crafted combination: %w", err)
	}
	return ir.Canon(a, b), nil
}

// ImportStats counts what Import changed.
type ImportStats struct {
	Recipes     int `json:"recipes"`
	Conflicts   int `json:"conflicts"`
	Attempts    int `json:"attempts"`
	Discoveries int `json:"discoveries"`
}

// Import merges documents into st. Discovered items come first, then recipes
// in sorted key order, so the merge is deterministic. The result of every
// added recipe joins the DiscoveredSet. Nothing already known is overwritten:
// a disagreeing recipe becomes a conflict, and an already attempted pair
// keeps its outcome. Imported discoveries earn no reward. The caller commits
// the resulting delta.
func Import(st *knowledge.State, kd *KnowledgeDocument, pd *ProgressDocument, seq int64, runID string) (ImportStats, error) {
	var stats ImportStats

	if pd != nil {
		for _, e := range pd.DiscoveredItems {
			if st.Discover(e, knowledge.SourceSeed, seq, runID) {
				stats.Discoveries++
			}
		}
	}

	if kd != nil {
		keys := make([]string, 0, len(kd.Recipes))
		for k := range kd.Recipes {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			p, err := ir.ParsePairKey(k)
			if err != nil {
				return stats, fmt.Errorf("import: %w", err)
			}
			res, _ := st.RecordRecipe(ir.Recipe{Pair: p, Result: kd.Recipes[k], Seq: seq, RunID: runID})
			switch res {
			case knowledge.RecipeAdded:
				stats.Recipes++
				if st.Discover(kd.Recipes[k], knowledge.SourceSeed, seq, runID) {
					stats.Discoveries++
				}
			case knowledge.RecipeConflicted:
				stats.Conflicts++
			}
		}
	}

	if pd != nil {
		for _, k := range pd.CraftedCombinations {
			p, err := ir.ParsePairKey(k)
			if err != nil {
				return stats, fmt.Errorf("import: %w", err)
			}
			if !st.MarkAttempted(p, seq, runID) {
				continue
			}
			if err := st.SetOutcome(p, ir.OutcomeImported, ""); err != nil {
				return stats, fmt.Errorf("import: %w", err)
			}
			stats.Attempts++
		}
	}

	return stats, nil
}
