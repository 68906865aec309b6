package defindex_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urdwyrd/urd/defindex"
	"github.com/urdwyrd/urd/dgraph"
	"github.com/urdwyrd/urd/diag"
	"github.com/urdwyrd/urd/link"
	"github.com/urdwyrd/urd/parse"
	"github.com/urdwyrd/urd/symtab"
)

func compile(t *testing.T, src string) *symtab.SymbolTable {
	t.Helper()
	c := diag.NewCollector()
	g := dgraph.New()
	fileAST := parse.Parse("x.urd.md", src, c)
	require.NotNil(t, fileAST)
	g.AddNode(&dgraph.FileNode{Path: "x.urd.md", AST: fileAST})

	st := symtab.New()
	world := &link.WorldConfig{}
	ctxs := link.Collect(g, []string{"x.urd.md"}, st, world, c)
	link.Resolve(g, []string{"x.urd.md"}, st, world, ctxs, c)
	require.False(t, c.HasErrors())
	return st
}

func TestBuildIndexesTypesPropertiesEntitiesLocationsExits(t *testing.T) {
	src := "---\nworld:\n  start: cellar\nItem:\n  weight:\n    type: integer\n@lantern:\n  type: Item\n  weight: 2\n---\n# Cellar\n== start\n-> north: Attic\n# Attic\n"
	st := compile(t, src)

	idx := defindex.Build(st)
	_, ok := idx.Get("type:Item")
	assert.True(t, ok)
	_, ok = idx.Get("prop:Item.weight")
	assert.True(t, ok)
	_, ok = idx.Get("entity:@lantern")
	assert.True(t, ok)
	_, ok = idx.Get("location:cellar")
	assert.True(t, ok)
	_, ok = idx.Get("location:attic")
	assert.True(t, ok)
	_, ok = idx.Get("exit:cellar/north")
	assert.True(t, ok)
	_, ok = idx.Get("section:x/start")
	assert.True(t, ok)
}

func TestBuildChoiceAndRuleKeys(t *testing.T) {
	src := "---\nworld:\n  start: cellar\nNPC:\n  mood:\n    type: enum\n    values: [calm, angry]\n@guard:\n  type: NPC\n  mood: calm\n---\n# Cellar\n== start\n* Calm the guard\n  ? @guard.mood == angry\n  > @guard.mood = calm\nrule watch:\n  where: @guard.mood == angry\n  > @guard.mood = calm\n"
	st := compile(t, src)

	idx := defindex.Build(st)
	entry, ok := idx.Get("choice:x/start/calm-the-guard")
	require.True(t, ok)
	assert.Equal(t, defindex.KindChoice, entry.Kind.Tag)
	assert.Equal(t, "Calm the guard", entry.Kind.Label)

	_, ok = idx.Get("rule:watch")
	assert.True(t, ok)
}

func TestGetUnknownKeyReturnsFalse(t *testing.T) {
	src := "---\nworld:\n  start: cellar\n---\n# Cellar\n"
	st := compile(t, src)

	idx := defindex.Build(st)
	_, ok := idx.Get("type:Nonexistent")
	assert.False(t, ok)
}

func TestKeysReturnsInsertionOrderTypesBeforeEntitiesBeforeSections(t *testing.T) {
	src := "---\nworld:\n  start: cellar\nItem:\n  weight:\n    type: integer\n@lantern:\n  type: Item\n  weight: 2\n---\n# Cellar\n== start\n"
	st := compile(t, src)

	idx := defindex.Build(st)
	keys := idx.Keys()
	typeIdx, entityIdx, sectionIdx := -1, -1, -1
	for i, k := range keys {
		switch k {
		case "type:Item":
			typeIdx = i
		case "entity:@lantern":
			entityIdx = i
		case "section:x/start":
			sectionIdx = i
		}
	}
	require.True(t, typeIdx >= 0 && entityIdx >= 0 && sectionIdx >= 0)
	assert.Less(t, typeIdx, entityIdx)
	assert.Less(t, entityIdx, sectionIdx)
}

func TestPropertyEntryCarriesDescriptionForHoverText(t *testing.T) {
	src := "---\nworld:\n  start: cellar\nNPC:\n  trust:\n    type: integer\n    default: 0\n    description: How much the NPC trusts the player.\n---\n# Cellar\n== start\n"
	st := compile(t, src)

	idx := defindex.Build(st)
	entry, ok := idx.Get("prop:NPC.trust")
	require.True(t, ok)
	require.NotNil(t, entry.Kind.Description)
	assert.Equal(t, "How much the NPC trusts the player.", *entry.Kind.Description)
}
