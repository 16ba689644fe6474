package store

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/craftloop/internal/ir"
	"github.com/roach88/craftloop/internal/knowledge"
)

func TestBuildDocuments(t *testing.T) {
	kd, pd := BuildDocuments(populatedState(t).Snapshot())

	assert.Equal(t, ir.SchemaVersion, kd.Version)
	assert.Equal(t, map[string]ir.Element{
		`["Earth","Fire"]`:  "Lava",
		`["Earth","Water"]`: "Plant",
	}, kd.Recipes)

	assert.Equal(t, []ir.Element{"Water", "Fire", "Earth", "Wind", "Lava", "Plant"}, pd.DiscoveredItems)
	assert.Equal(t, []string{
		`["Earth","Fire"]`,
		`["Earth","Earth"]`,
		`["Earth","Water"]`,
		`["Wind","Wind"]`,
	}, pd.CraftedCombinations)
}

func TestWriteDocument_Deterministic(t *testing.T) {
	kd, _ := BuildDocuments(populatedState(t).Snapshot())

	var first, second bytes.Buffer
	require.NoError(t, WriteDocument(&first, kd))
	require.NoError(t, WriteDocument(&second, kd))
	assert.Equal(t, first.String(), second.String())
	assert.Contains(t, first.String(), `"[\"Earth\",\"Fire\"]": "Lava"`)
}

func TestWriteDocument_NoHTMLEscape(t *testing.T) {
	kd := KnowledgeDocument{
		Version: ir.SchemaVersion,
		Recipes: map[string]ir.Element{ir.Canon("<a>", "&b").Key(): "R&D"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteDocument(&buf, kd))
	assert.Contains(t, buf.String(), "R&D")
	assert.NotContains(t, buf.String(), `\u0026`)
}

func TestDocumentRoundTrip(t *testing.T) {
	kd, pd := BuildDocuments(populatedState(t).Snapshot())

	var kbuf, pbuf bytes.Buffer
	require.NoError(t, WriteDocument(&kbuf, kd))
	require.NoError(t, WriteDocument(&pbuf, pd))

	gotK, err := ReadKnowledgeDocument(&kbuf)
	require.NoError(t, err)
	gotP, err := ReadProgressDocument(&pbuf)
	require.NoError(t, err)

	if diff := cmp.Diff(kd, gotK); diff != "" {
		t.Errorf("knowledge document mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(pd, gotP); diff != "" {
		t.Errorf("progress document mismatch (-want +got):\n%s", diff)
	}
}

func TestDocumentRoundTrip_AwkwardNames(t *testing.T) {
	names := []ir.Element{"Salt, Sea", `Quote"d`, "Brackets[]", "Ünïcödé", "A"}
	kd := KnowledgeDocument{Version: ir.SchemaVersion, Recipes: map[string]ir.Element{}}
	for i := 0; i+1 < len(names); i++ {
		kd.Recipes[ir.Canon(names[i], names[i+1]).Key()] = names[i]
	}

	var buf bytes.Buffer
	require.NoError(t, WriteDocument(&buf, kd))
	got, err := ReadKnowledgeDocument(&buf)
	require.NoError(t, err)
	assert.Equal(t, kd, got)
}

func TestReadKnowledgeDocument_Legacy(t *testing.T) {
	legacy := `{"Water,Fire": "Steam", "Earth,Earth": "Mountain", "Fire,Earth": "Lava"}`

	doc, err := ReadKnowledgeDocument(strings.NewReader(legacy))
	require.NoError(t, err)
	assert.Equal(t, ir.SchemaVersion, doc.Version)
	assert.Equal(t, map[string]ir.Element{
		`["Fire","Water"]`:  "Steam",
		`["Earth","Earth"]`: "Mountain",
		`["Earth","Fire"]`:  "Lava",
	}, doc.Recipes)
}

func TestReadKnowledgeDocument_SwappedKeyIsCanonicalized(t *testing.T) {
	doc, err := ReadKnowledgeDocument(strings.NewReader(`{"version":"1","recipes":{"[\"Water\",\"Fire\"]":"Steam"}}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]ir.Element{`["Fire","Water"]`: "Steam"}, doc.Recipes)
}

func TestReadKnowledgeDocument_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", `{{{`},
		{"array", `[1, 2]`},
		{"legacy key without comma", `{"WaterFire": "Steam"}`},
		{"empty result", `{"Water,Fire": ""}`},
		{"bad json key", `{"recipes": {"[\"Water\"]": "Steam"}}`},
		{"disagreeing duplicate", `{"Water,Fire": "Steam", "Fire,Water": "Cloud"}`},
		{"non-string result", `{"recipes": {"[\"A\",\"B\"]": 3}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadKnowledgeDocument(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrCorrupt), "want ErrCorrupt, got %v", err)
		})
	}
}

func TestReadProgressDocument_Legacy(t *testing.T) {
	legacy := `{
		"discovered_items": ["Water", "Fire", " Steam "],
		"crafted_combinations": [["Water", "Fire"], ["Fire", "Fire"], "[\"Earth\",\"Water\"]"]
	}`

	doc, err := ReadProgressDocument(strings.NewReader(legacy))
	require.NoError(t, err)
	assert.Equal(t, ir.SchemaVersion, doc.Version)
	assert.Equal(t, []ir.Element{"Water", "Fire", "Steam"}, doc.DiscoveredItems)
	assert.Equal(t, []string{`["Fire","Water"]`, `["Fire","Fire"]`, `["Earth","Water"]`}, doc.CraftedCombinations)
}

func TestReadProgressDocument_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", `nope`},
		{"empty item", `{"discovered_items": ["  "]}`},
		{"three-name combination", `{"crafted_combinations": [["A", "B", "C"]]}`},
		{"numeric combination", `{"crafted_combinations": [7]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadProgressDocument(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrCorrupt), "want ErrCorrupt, got %v", err)
		})
	}
}

func TestImport(t *testing.T) {
	st := knowledge.New()
	st.Discover("Water", knowledge.SourceSeed, 0, "")
	st.RecordRecipe(ir.Recipe{Pair: ir.Canon("Fire", "Water"), Result: "Steam", Seq: 1})
	st.MarkAttempted(ir.Canon("Fire", "Water"), 1, "")
	require.NoError(t, st.SetOutcome(ir.Canon("Fire", "Water"), ir.OutcomeNewElement, "Steam"))
	st.TakeDelta()

	kd := &KnowledgeDocument{Recipes: map[string]ir.Element{
		ir.Canon("Fire", "Water").Key(): "Cloud", // disagrees
		ir.Canon("Earth", "Fire").Key(): "Lava",
		ir.Canon("Fire", "Fire").Key():  "Sun",
	}}
	pd := &ProgressDocument{
		DiscoveredItems:     []ir.Element{"Water", "Fire", "Earth"},
		CraftedCombinations: []string{ir.Canon("Fire", "Water").Key(), ir.Canon("Earth", "Fire").Key()},
	}

	stats, err := Import(st, kd, pd, 5, "import-run")
	require.NoError(t, err)
	assert.Equal(t, ImportStats{Recipes: 2, Conflicts: 1, Attempts: 1, Discoveries: 4}, stats)
	assert.Equal(t, []ir.Element{"Water", "Fire", "Earth", "Lava", "Sun"}, st.Discovered(),
		"results of added recipes are discovered after the listed items")
	assert.False(t, st.IsDiscovered("Cloud"), "a conflicting result is not discovered")

	r, _ := st.Recipe(ir.Canon("Fire", "Water"))
	assert.Equal(t, ir.Element("Steam"), r.Result, "existing recipe must win")

	a, _ := st.Attempt(ir.Canon("Fire", "Water"))
	assert.Equal(t, ir.OutcomeNewElement, a.Outcome, "existing attempt keeps its outcome")
	a, _ = st.Attempt(ir.Canon("Earth", "Fire"))
	assert.Equal(t, ir.OutcomeImported, a.Outcome)

	assert.Equal(t, int64(0), st.Rewards().Total)
	assert.True(t, st.HasPending())
}

func TestImportIntoStore(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	kd, err := ReadKnowledgeDocument(strings.NewReader(`{"Water,Fire": "Steam"}`))
	require.NoError(t, err)
	pd, err := ReadProgressDocument(strings.NewReader(`{"discovered_items": ["Water", "Fire"], "crafted_combinations": [["Water", "Fire"]]}`))
	require.NoError(t, err)

	st, err := s.Load(ctx)
	require.NoError(t, err)
	_, err = Import(st, &kd, &pd, 1, "")
	require.NoError(t, err)
	require.NoError(t, s.Commit(ctx, st.TakeDelta()))

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	gotK, gotP := BuildDocuments(snap)
	assert.Equal(t, kd.Recipes, gotK.Recipes)
	assert.Equal(t, []ir.Element{"Water", "Fire", "Steam"}, gotP.DiscoveredItems)
	assert.Equal(t, pd.CraftedCombinations, gotP.CraftedCombinations)
}

func TestImport_KnowledgeOnlyDiscoversResults(t *testing.T) {
	st := knowledge.New()
	kd, err := ReadKnowledgeDocument(strings.NewReader(`{"Water,Fire": "Steam", "Steam,Water": "Cloud"}`))
	require.NoError(t, err)

	stats, err := Import(st, &kd, nil, 1, "")
	require.NoError(t, err)
	assert.Equal(t, ImportStats{Recipes: 2, Discoveries: 2}, stats)
	assert.True(t, st.IsDiscovered("Steam"))
	assert.True(t, st.IsDiscovered("Cloud"))
	assert.Equal(t, int64(0), st.Rewards().Total)
}
