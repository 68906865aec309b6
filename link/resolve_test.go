package link_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urdwyrd/urd/ast"
	"github.com/urdwyrd/urd/diag"
	"github.com/urdwyrd/urd/link"
	"github.com/urdwyrd/urd/symtab"
)

// findNode walks content (including choice and exit children) depth-first
// looking for the first node of the given kind.
func findNode(content []ast.ContentNode, kind ast.ContentNodeKind) *ast.ContentNode {
	for i := range content {
		n := content[i]
		if n.Kind == kind {
			return &content[i]
		}
		var children []ast.ContentNode
		switch n.Kind {
		case ast.NodeChoice:
			children = n.Choice.Content
		case ast.NodeExitDeclaration:
			children = n.ExitDeclaration.Children
		}
		if found := findNode(children, kind); found != nil {
			return found
		}
	}
	return nil
}

func TestResolveEntityPresenceAndSpeech(t *testing.T) {
	src := "---\nItem:\n  lit:\n    type: boolean\n@lantern:\n  type: Item\n---\n# The Cellar\n[@lantern]\n@lantern: It's dark in here.\n"
	g, order := buildGraph(t, map[string]string{"tavern.urd.md": src})

	st := symtab.New()
	world := &link.WorldConfig{}
	c := diag.NewCollector()
	ctxs := link.Collect(g, order, st, world, c)
	link.Resolve(g, order, st, world, ctxs, c)

	require.False(t, c.HasErrors())
	node, _ := g.Node("tavern.urd.md")

	presence := findNode(node.AST.Content, ast.NodeEntityPresence)
	require.NotNil(t, presence)
	require.Len(t, presence.EntityPresence.Annotations, 1)
	require.NotNil(t, presence.EntityPresence.Annotations[0].ResolvedEntity)
	assert.Equal(t, "lantern", *presence.EntityPresence.Annotations[0].ResolvedEntity)

	speech := findNode(node.AST.Content, ast.NodeEntitySpeech)
	require.NotNil(t, speech)
	require.NotNil(t, speech.EntitySpeech.Annotation.ResolvedEntity)
	assert.Equal(t, "lantern", *speech.EntitySpeech.Annotation.ResolvedEntity)
}

func TestResolveEntityPresenceUnresolvedReportsURD301(t *testing.T) {
	src := "# The Cellar\n[@ghost]\n"
	g, order := buildGraph(t, map[string]string{"tavern.urd.md": src})

	st := symtab.New()
	world := &link.WorldConfig{}
	c := diag.NewCollector()
	ctxs := link.Collect(g, order, st, world, c)
	link.Resolve(g, order, st, world, ctxs, c)

	require.True(t, c.HasErrors())
	assert.True(t, hasCode(c, 301))
}

func TestResolvePropertyComparison(t *testing.T) {
	src := "---\nItem:\n  lit:\n    type: boolean\n@lantern:\n  type: Item\n---\n# The Cellar\n? @lantern.lit == true\n"
	g, order := buildGraph(t, map[string]string{"x.urd.md": src})

	st := symtab.New()
	world := &link.WorldConfig{}
	c := diag.NewCollector()
	ctxs := link.Collect(g, order, st, world, c)
	link.Resolve(g, order, st, world, ctxs, c)

	require.False(t, c.HasErrors())
	node, _ := g.Node("x.urd.md")
	cond := findNode(node.AST.Content, ast.NodeCondition)
	require.NotNil(t, cond)
	pc := cond.Condition.Expr.PropertyComparison
	require.NotNil(t, pc.Annotation.ResolvedEntity)
	require.NotNil(t, pc.Annotation.ResolvedType)
	require.NotNil(t, pc.Annotation.ResolvedProperty)
	assert.Equal(t, "lantern", *pc.Annotation.ResolvedEntity)
	assert.Equal(t, "Item", *pc.Annotation.ResolvedType)
	assert.Equal(t, "lit", *pc.Annotation.ResolvedProperty)
}

func TestResolvePropertyComparisonMissingPropertyReportsURD308(t *testing.T) {
	src := "---\nItem:\n  lit:\n    type: boolean\n@lantern:\n  type: Item\n---\n# The Cellar\n? @lantern.weight == 5\n"
	g, order := buildGraph(t, map[string]string{"x.urd.md": src})

	st := symtab.New()
	world := &link.WorldConfig{}
	c := diag.NewCollector()
	ctxs := link.Collect(g, order, st, world, c)
	link.Resolve(g, order, st, world, ctxs, c)

	assert.True(t, hasCode(c, 308))
}

func TestResolvePropertyComparisonMissingTypeReportsURD307Once(t *testing.T) {
	src := "---\n@lantern:\n  type: Ghost\n---\n# The Cellar\n? @lantern.lit == true\n? @lantern.lit == false\n"
	g, order := buildGraph(t, map[string]string{"x.urd.md": src})

	st := symtab.New()
	world := &link.WorldConfig{}
	c := diag.NewCollector()
	ctxs := link.Collect(g, order, st, world, c)
	link.Resolve(g, order, st, world, ctxs, c)

	count := 0
	for _, d := range c.Sorted() {
		if d.Code == diag.NewCode(307) {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestResolveContainmentCheckClassification(t *testing.T) {
	src := "---\n@lantern:\n  type: Item\n@chest:\n  type: Item\n---\n# The Cellar\n? @lantern in player\n? @lantern in here\n? @lantern in @chest\n? @lantern in the-attic\n"
	g, order := buildGraph(t, map[string]string{"x.urd.md": src})

	st := symtab.New()
	world := &link.WorldConfig{}
	c := diag.NewCollector()
	ctxs := link.Collect(g, order, st, world, c)
	link.Resolve(g, order, st, world, ctxs, c)

	node, _ := g.Node("x.urd.md")
	var checks []*ast.ContainmentCheck
	for i := range node.AST.Content {
		n := node.AST.Content[i]
		if n.Kind == ast.NodeCondition && n.Condition.Expr.Kind == ast.ExprContainmentCheck {
			checks = append(checks, n.Condition.Expr.ContainmentCheck)
		}
	}
	require.Len(t, checks, 4)
	assert.Equal(t, ast.ContainerKeywordPlayer, checks[0].Annotation.ContainerKind.Tag)
	assert.Equal(t, ast.ContainerKeywordHere, checks[1].Annotation.ContainerKind.Tag)
	assert.Equal(t, ast.ContainerEntityRef, checks[2].Annotation.ContainerKind.Tag)
	assert.Equal(t, "chest", checks[2].Annotation.ContainerKind.RefID)
	assert.Equal(t, ast.ContainerLocationRef, checks[3].Annotation.ContainerKind.Tag)
	assert.Equal(t, "the-attic", checks[3].Annotation.ContainerKind.RefID)
}

func TestResolveMoveEffectDestinationClassification(t *testing.T) {
	src := "---\nItem:\n  lit:\n    type: boolean\n@lantern:\n  type: Item\n---\n# The Cellar\n> move @lantern -> player\n> move @lantern -> here\n"
	g, order := buildGraph(t, map[string]string{"x.urd.md": src})

	st := symtab.New()
	world := &link.WorldConfig{}
	c := diag.NewCollector()
	ctxs := link.Collect(g, order, st, world, c)
	link.Resolve(g, order, st, world, ctxs, c)

	require.False(t, c.HasErrors())
	node, _ := g.Node("x.urd.md")
	var effects []*ast.Effect
	for i := range node.AST.Content {
		if node.AST.Content[i].Kind == ast.NodeEffect {
			effects = append(effects, node.AST.Content[i].Effect)
		}
	}
	require.Len(t, effects, 2)
	assert.Equal(t, ast.DestinationKeywordPlayer, effects[0].Annotation.DestinationKind.Tag)
	assert.Equal(t, ast.DestinationKeywordHere, effects[1].Annotation.DestinationKind.Tag)
}

func TestResolveJumpLocalSection(t *testing.T) {
	src := "# The Cellar\n== start\n-> other\n== other\nYou are elsewhere.\n"
	g, order := buildGraph(t, map[string]string{"x.urd.md": src})

	st := symtab.New()
	world := &link.WorldConfig{}
	c := diag.NewCollector()
	ctxs := link.Collect(g, order, st, world, c)
	link.Resolve(g, order, st, world, ctxs, c)

	require.False(t, c.HasErrors())
	node, _ := g.Node("x.urd.md")
	jump := findNode(node.AST.Content, ast.NodeJump)
	require.NotNil(t, jump)
	require.NotNil(t, jump.Jump.Annotation.ResolvedSection)
	assert.Equal(t, "x/other", *jump.Jump.Annotation.ResolvedSection)
}

func TestResolveJumpAmbiguousAcrossVisibleFilesReportsURD310(t *testing.T) {
	g, order := buildGraph(t, map[string]string{
		"a.urd.md": "# A\n-> target\n",
		"b.urd.md": "== target\nFrom b.\n",
		"c.urd.md": "== target\nFrom c.\n",
	})
	g.AddEdge("a.urd.md", "b.urd.md")
	g.AddEdge("a.urd.md", "c.urd.md")

	st := symtab.New()
	world := &link.WorldConfig{}
	c := diag.NewCollector()
	ctxs := link.Collect(g, order, st, world, c)
	link.Resolve(g, order, st, world, ctxs, c)

	assert.True(t, hasCode(c, 310))
}

func TestResolveJumpSingleVisibleMatchResolves(t *testing.T) {
	g, order := buildGraph(t, map[string]string{
		"a.urd.md": "# A\n-> target\n",
		"b.urd.md": "== target\nFrom b.\n",
	})
	g.AddEdge("a.urd.md", "b.urd.md")

	st := symtab.New()
	world := &link.WorldConfig{}
	c := diag.NewCollector()
	ctxs := link.Collect(g, order, st, world, c)
	link.Resolve(g, order, st, world, ctxs, c)

	require.False(t, c.HasErrors())
	node, _ := g.Node("a.urd.md")
	jump := findNode(node.AST.Content, ast.NodeJump)
	require.NotNil(t, jump.Jump.Annotation.ResolvedSection)
	assert.Equal(t, "b/target", *jump.Jump.Annotation.ResolvedSection)
}

func TestResolveJumpUnresolvedReportsURD309(t *testing.T) {
	src := "# A\n-> nowhere\n"
	g, order := buildGraph(t, map[string]string{"a.urd.md": src})

	st := symtab.New()
	world := &link.WorldConfig{}
	c := diag.NewCollector()
	ctxs := link.Collect(g, order, st, world, c)
	link.Resolve(g, order, st, world, ctxs, c)

	assert.True(t, hasCode(c, 309))
}

func TestResolveExitDestination(t *testing.T) {
	src := "# The Cellar\n-> north: The Garden\n# The Garden\n"
	g, order := buildGraph(t, map[string]string{"x.urd.md": src})

	st := symtab.New()
	world := &link.WorldConfig{}
	c := diag.NewCollector()
	ctxs := link.Collect(g, order, st, world, c)
	link.Resolve(g, order, st, world, ctxs, c)

	require.False(t, c.HasErrors())
	loc, ok := st.Locations.Get("the-cellar")
	require.True(t, ok)
	exit, ok := loc.Exits.Get("north")
	require.True(t, ok)
	require.NotNil(t, exit.ResolvedDestination)
	assert.Equal(t, "the-garden", *exit.ResolvedDestination)

	node, _ := g.Node("x.urd.md")
	exitNode := findNode(node.AST.Content, ast.NodeExitDeclaration)
	require.NotNil(t, exitNode.ExitDeclaration.Annotation.ResolvedLocation)
	assert.Equal(t, "the-garden", *exitNode.ExitDeclaration.Annotation.ResolvedLocation)
}

func TestResolveExitUnresolvedDestinationReportsURD311(t *testing.T) {
	src := "# The Cellar\n-> north: Nowhere\n"
	g, order := buildGraph(t, map[string]string{"x.urd.md": src})

	st := symtab.New()
	world := &link.WorldConfig{}
	c := diag.NewCollector()
	link.Collect(g, order, st, world, c)
	link.Resolve(g, order, st, world, map[string]*link.FileContext{}, c)

	assert.True(t, hasCode(c, 311))
}

func TestResolveWorldTargets(t *testing.T) {
	src := "---\nworld:\n  start: the-cellar\n  entry: main\n---\n# The Cellar\n## Main\n### First (auto)\n"
	g, order := buildGraph(t, map[string]string{"x.urd.md": src})

	st := symtab.New()
	world := &link.WorldConfig{}
	c := diag.NewCollector()
	ctxs := link.Collect(g, order, st, world, c)
	link.Resolve(g, order, st, world, ctxs, c)

	require.False(t, c.HasErrors())
	require.NotNil(t, st.WorldStart)
	require.NotNil(t, st.WorldEntry)
	assert.Equal(t, "the-cellar", st.WorldStart.ID)
	assert.Equal(t, "main", st.WorldEntry.ID)
}

func TestResolveWorldStartUnresolvedReportsURD311(t *testing.T) {
	src := "---\nworld:\n  start: nowhere\n---\n# The Cellar\n"
	g, order := buildGraph(t, map[string]string{"x.urd.md": src})

	st := symtab.New()
	world := &link.WorldConfig{}
	c := diag.NewCollector()
	ctxs := link.Collect(g, order, st, world, c)
	link.Resolve(g, order, st, world, ctxs, c)

	assert.True(t, hasCode(c, 311))
	assert.Nil(t, st.WorldStart)
}

func hasCode(c *diag.Collector, code int) bool {
	for _, d := range c.Sorted() {
		if d.Code == diag.NewCode(code) {
			return true
		}
	}
	return false
}
