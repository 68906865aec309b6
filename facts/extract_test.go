package facts_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urdwyrd/urd/dgraph"
	"github.com/urdwyrd/urd/diag"
	"github.com/urdwyrd/urd/facts"
	"github.com/urdwyrd/urd/link"
	"github.com/urdwyrd/urd/parse"
	"github.com/urdwyrd/urd/symtab"
)

func compile(t *testing.T, sources map[string]string) (*dgraph.DependencyGraph, *symtab.SymbolTable) {
	t.Helper()
	c := diag.NewCollector()
	g := dgraph.New()
	var order []string
	for path, src := range sources {
		fileAST := parse.Parse(path, src, c)
		require.NotNil(t, fileAST)
		g.AddNode(&dgraph.FileNode{Path: path, AST: fileAST})
		order = append(order, path)
	}
	st := symtab.New()
	world := &link.WorldConfig{}
	ctxs := link.Collect(g, order, st, world, c)
	link.Resolve(g, order, st, world, ctxs, c)
	require.False(t, c.HasErrors())
	return g, st
}

func TestExtractChoiceProducesReadAndWriteFacts(t *testing.T) {
	src := "---\nworld:\n  start: cellar\nNPC:\n  mood:\n    type: enum\n    values: [calm, angry]\n@guard:\n  type: NPC\n  mood: calm\n---\n# Cellar\n== start\n* Calm the guard\n  ? @guard.mood == angry\n  > @guard.mood = calm\n"
	g, st := compile(t, map[string]string{"x.urd.md": src})

	fs := facts.Extract(g, st)
	require.Len(t, fs.Reads(), 1)
	require.Len(t, fs.Writes(), 1)
	require.Len(t, fs.Choices(), 1)

	read := fs.Reads()[0]
	assert.Equal(t, "NPC", read.EntityType)
	assert.Equal(t, "mood", read.Property)
	assert.Equal(t, facts.CompareEq, read.Operator)
	assert.Equal(t, "angry", read.ValueLiteral)

	write := fs.Writes()[0]
	assert.Equal(t, "NPC", write.EntityType)
	assert.Equal(t, "mood", write.Property)
	assert.Equal(t, facts.WriteSet, write.Operator)

	choice := fs.Choices()[0]
	assert.Equal(t, "x/start/calm-the-guard", choice.ChoiceID)
	assert.Equal(t, []int{0}, choice.ConditionReads)
	assert.Equal(t, []int{0}, choice.EffectWrites)
}

func TestExtractRuleProducesReadAndWriteFacts(t *testing.T) {
	src := "---\nworld:\n  start: cellar\nNPC:\n  alert:\n    type: boolean\n@guard:\n  type: NPC\n  alert: false\n---\n# Cellar\nrule raise_alarm:\n  where: @guard.alert == false\n  > @guard.alert = true\n"
	g, st := compile(t, map[string]string{"x.urd.md": src})

	fs := facts.Extract(g, st)
	require.Len(t, fs.Rules(), 1)
	rule := fs.Rules()[0]
	assert.Equal(t, "raise_alarm", rule.RuleID)
	assert.NotEmpty(t, rule.ConditionReads)
	assert.NotEmpty(t, rule.EffectWrites)
}

func TestExtractExitsFromLocationSymbols(t *testing.T) {
	src := "---\nworld:\n  start: cellar\n---\n# Cellar\n== start\n-> north: Attic\n# Attic\n"
	g, st := compile(t, map[string]string{"x.urd.md": src})

	fs := facts.Extract(g, st)
	require.Len(t, fs.Exits(), 1)
	exit := fs.Exits()[0]
	assert.Equal(t, "cellar", exit.FromLocation)
	assert.Equal(t, "attic", exit.ToLocation)
	assert.Equal(t, "north", exit.ExitName)
	assert.False(t, exit.IsConditional)
}

func TestExtractExitGuardConditionProducesReadAndGuardReads(t *testing.T) {
	src := "---\nworld:\n  start: cellar\nLock:\n  locked:\n    type: bool\n    default: true\n@door:\n  type: Lock\n---\n# Cellar\n== start\n-> north: Attic\n  ? @door.locked == false\n# Attic\n"
	g, st := compile(t, map[string]string{"x.urd.md": src})

	fs := facts.Extract(g, st)
	require.Len(t, fs.Exits(), 1)
	exit := fs.Exits()[0]
	assert.True(t, exit.IsConditional)
	require.Len(t, exit.GuardReads, 1)

	read := fs.Reads()[exit.GuardReads[0]]
	assert.Equal(t, "Lock", read.EntityType)
	assert.Equal(t, "locked", read.Property)
	assert.Equal(t, facts.CompareEq, read.Operator)
	assert.Equal(t, facts.SiteExit, read.Site.Kind)
	assert.Equal(t, "cellar/north", read.Site.ID)
}

func TestPropertyDependencyIndexBuildFromExtractedFacts(t *testing.T) {
	src := "---\nworld:\n  start: cellar\nNPC:\n  mood:\n    type: enum\n    values: [calm, angry]\n@guard:\n  type: NPC\n  mood: calm\n---\n# Cellar\n== start\n* Calm the guard\n  ? @guard.mood == angry\n  > @guard.mood = calm\n"
	g, st := compile(t, map[string]string{"x.urd.md": src})

	fs := facts.Extract(g, st)
	idx := facts.Build(fs)

	key := facts.PropertyKey{EntityType: "NPC", Property: "mood"}
	assert.NotEmpty(t, idx.ReadsOf(key))
	assert.NotEmpty(t, idx.WritesOf(key))
	assert.Empty(t, idx.ReadButNeverWritten())
	assert.Empty(t, idx.WrittenButNeverRead())
}
