package parse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urdwyrd/urd/ast"
	"github.com/urdwyrd/urd/diag"
	"github.com/urdwyrd/urd/parse"
)

func TestParseFrontmatterAndHeading(t *testing.T) {
	src := "---\nimport: ./shared.urd.md\n---\n# The Cellar\nIt is dark here.\n"
	c := diag.NewCollector()
	file := parse.Parse("tavern.urd.md", src, c)
	require.NotNil(t, file)
	require.NotNil(t, file.Frontmatter)
	require.Len(t, file.Frontmatter.Entries, 1)
	assert.Equal(t, ast.FrontmatterImportDecl, file.Frontmatter.Entries[0].Value.Kind)
	assert.Equal(t, "./shared.urd.md", file.Frontmatter.Entries[0].Value.ImportDecl.Path)

	require.Len(t, file.Content, 2)
	assert.Equal(t, ast.NodeLocationHeading, file.Content[0].Kind)
	assert.Equal(t, "The Cellar", file.Content[0].LocationHeading.DisplayName)
	assert.Equal(t, ast.NodeProse, file.Content[1].Kind)
}

func TestParseChoiceWithNestedEffect(t *testing.T) {
	src := "== start\nYou see a door.\n* Open the door -> exit:north\n  > @door.locked = false\n"
	c := diag.NewCollector()
	file := parse.Parse("x.urd.md", src, c)
	require.NotNil(t, file)
	require.Len(t, file.Content, 3)
	choice := file.Content[2].Choice
	require.NotNil(t, choice)
	assert.Equal(t, "Open the door", choice.Label)
	require.NotNil(t, choice.Target)
	assert.Equal(t, "north", *choice.Target)
	require.Len(t, choice.Content, 1)
	assert.Equal(t, ast.NodeEffect, choice.Content[0].Kind)
	assert.Equal(t, ast.EffectSet, choice.Content[0].Effect.EffectType.Kind)
}

func TestParseConditionAndContainment(t *testing.T) {
	src := "? @lantern in player\n? @torch.lit == true\n"
	c := diag.NewCollector()
	file := parse.Parse("x.urd.md", src, c)
	require.Len(t, file.Content, 2)
	first := file.Content[0].Condition.Expr
	assert.Equal(t, ast.ExprContainmentCheck, first.Kind)
	assert.Equal(t, "lantern", first.ContainmentCheck.EntityRef)
	assert.Equal(t, "player", first.ContainmentCheck.ContainerRef)

	second := file.Content[1].Condition.Expr
	assert.Equal(t, ast.ExprPropertyComparison, second.Kind)
	assert.Equal(t, "torch", second.PropertyComparison.EntityRef)
	assert.Equal(t, "lit", second.PropertyComparison.Property)
	assert.Equal(t, "==", second.PropertyComparison.Operator)
}

func TestParseExitDeclaration(t *testing.T) {
	src := "# Cellar\n-> north: Pantry\n  ? @lantern in player\n  ! It's too dark to go that way.\n"
	c := diag.NewCollector()
	file := parse.Parse("x.urd.md", src, c)
	require.Len(t, file.Content, 2)
	exit := file.Content[1].ExitDeclaration
	require.NotNil(t, exit)
	assert.Equal(t, "north", exit.Direction)
	assert.Equal(t, "Pantry", exit.Destination)
	require.Len(t, exit.Children, 2)
}

func TestParseEntitySpeechAndStageDirection(t *testing.T) {
	src := "@arina: What'll it be?\n@arina leans in close.\n"
	c := diag.NewCollector()
	file := parse.Parse("x.urd.md", src, c)
	require.Len(t, file.Content, 2)
	assert.Equal(t, ast.NodeEntitySpeech, file.Content[0].Kind)
	assert.Equal(t, "What'll it be?", file.Content[0].EntitySpeech.Text)
	assert.Equal(t, ast.NodeStageDirection, file.Content[1].Kind)
}

func TestParseUnclosedFrontmatterReportsDiagnostic(t *testing.T) {
	src := "---\nimport: ./a.urd.md\n# Room\n"
	c := diag.NewCollector()
	file := parse.Parse("x.urd.md", src, c)
	require.NotNil(t, file)
	assert.True(t, c.HasErrors())
}

func TestParseTabIndentationReportsDiagnostic(t *testing.T) {
	src := "* Pick a lock\n\t> @door.locked = false\n"
	c := diag.NewCollector()
	file := parse.Parse("x.urd.md", src, c)
	require.NotNil(t, file)
	assert.True(t, c.HasErrors())
}
