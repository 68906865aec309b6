package diff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urdwyrd/urd/dgraph"
	"github.com/urdwyrd/urd/diag"
	"github.com/urdwyrd/urd/diff"
	"github.com/urdwyrd/urd/facts"
	"github.com/urdwyrd/urd/link"
	"github.com/urdwyrd/urd/parse"
	"github.com/urdwyrd/urd/symtab"
)

func compile(t *testing.T, src string) *diff.Snapshot {
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

	fs := facts.Extract(g, st)
	idx := facts.Build(fs)
	return diff.Build(g, st, fs, idx)
}

func TestDiffDetectsAddedLocation(t *testing.T) {
	before := compile(t, "---\nworld:\n  start: cellar\n---\n# Cellar\n== start\nDark.\n")
	after := compile(t, "---\nworld:\n  start: cellar\n---\n# Cellar\n== start\nDark.\n# Attic\n")

	changes, err := diff.Diff(before, after)
	require.NoError(t, err)

	var found bool
	for _, ch := range changes {
		if ch.Category == diff.CategoryLocation && ch.Kind == "added" && ch.ID == "attic" {
			found = true
		}
	}
	assert.True(t, found, "expected an added location change for 'attic', got %+v", changes)
}

func TestDiffDetectsRemovedChoice(t *testing.T) {
	before := compile(t, "---\nworld:\n  start: cellar\n---\n# Cellar\n== start\n* Leave\n  -> end\n* Stay\n  -> end\n")
	after := compile(t, "---\nworld:\n  start: cellar\n---\n# Cellar\n== start\n* Leave\n  -> end\n")

	changes, err := diff.Diff(before, after)
	require.NoError(t, err)

	var found bool
	for _, ch := range changes {
		if ch.Category == diff.CategoryChoice && ch.Kind == "removed" && ch.ID == "x/start/stay" {
			found = true
		}
	}
	assert.True(t, found, "expected a removed choice change for 'x/start/stay', got %+v", changes)
}

func TestDiffDetectsExitConditionChange(t *testing.T) {
	before := compile(t, "---\nworld:\n  start: cellar\nNPC:\n  mood:\n    type: enum\n    values: [calm, angry]\n@guard:\n  type: NPC\n  mood: calm\n---\n# Cellar\n== start\n-> north: Attic\n  ? @guard.mood == calm\n# Attic\n")
	after := compile(t, "---\nworld:\n  start: cellar\nNPC:\n  mood:\n    type: enum\n    values: [calm, angry]\n@guard:\n  type: NPC\n  mood: calm\n---\n# Cellar\n== start\n-> north: Attic\n  ? @guard.mood == angry\n# Attic\n")

	changes, err := diff.Diff(before, after)
	require.NoError(t, err)

	var found bool
	for _, ch := range changes {
		if ch.Category == diff.CategoryExit && ch.Kind == "condition_changed" && ch.ID == "cellar/north" {
			found = true
		}
	}
	assert.True(t, found, "expected a condition_changed exit change for 'cellar/north', got %+v", changes)
}

func TestDiffOrdersChangesByCategoryPriorityThenID(t *testing.T) {
	before := compile(t, "---\nworld:\n  start: cellar\n---\n# Cellar\n== start\nDark.\n")
	after := compile(t, "---\nworld:\n  start: cellar\n---\n# Cellar\n== start\nDark.\n# Attic\n# Basement\n")

	changes, err := diff.Diff(before, after)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(changes), 2)

	for i := 1; i < len(changes); i++ {
		prevPriority := categoryIndex(changes[i-1].Category)
		currPriority := categoryIndex(changes[i].Category)
		if prevPriority == currPriority {
			assert.LessOrEqual(t, changes[i-1].ID, changes[i].ID)
		} else {
			assert.Less(t, prevPriority, currPriority)
		}
	}
}

func TestDiffRejectsVersionMismatch(t *testing.T) {
	before := compile(t, "---\nworld:\n  start: cellar\n---\n# Cellar\n")
	after := compile(t, "---\nworld:\n  start: cellar\n---\n# Cellar\n")
	after.Version = "999"

	_, err := diff.Diff(before, after)
	require.Error(t, err)
	assert.IsType(t, diff.ErrVersionMismatch{}, err)
}

func categoryIndex(category string) int {
	order := []string{
		diff.CategoryEntity,
		diff.CategoryLocation,
		diff.CategoryExit,
		diff.CategorySection,
		diff.CategoryChoice,
		diff.CategoryPropertyDependency,
		diff.CategoryReachability,
	}
	for i, c := range order {
		if c == category {
			return i
		}
	}
	return -1
}
