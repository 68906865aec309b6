package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urdwyrd/urd/dgraph"
	"github.com/urdwyrd/urd/diag"
	"github.com/urdwyrd/urd/link"
	"github.com/urdwyrd/urd/parse"
	"github.com/urdwyrd/urd/symtab"
	"github.com/urdwyrd/urd/validate"
)

// compile runs PARSE, IMPORT-equivalent graph assembly, and both LINK
// passes over an in-memory set of sources, returning the symbol table and
// graph ready for VALIDATE.
func compile(t *testing.T, sources map[string]string) (*dgraph.DependencyGraph, *symtab.SymbolTable, *diag.Collector) {
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
	return g, st, c
}

func hasCode(c *diag.Collector, code int) bool {
	for _, d := range c.Sorted() {
		if d.Code == diag.NewCode(code) {
			return true
		}
	}
	return false
}

func TestValidateTypesDefaultMismatchReportsURD413(t *testing.T) {
	src := "---\nItem:\n  weight:\n    type: integer\n    default: heavy\n---\n"
	g, st, c := compile(t, map[string]string{"types.urd.md": src})
	validate.Validate(g, st, c)
	assert.True(t, hasCode(c, 413))
}

func TestValidateTypesEmptyEnumValuesReportsURD414(t *testing.T) {
	src := "---\nDoor:\n  state:\n    type: enum\n---\n"
	g, st, c := compile(t, map[string]string{"types.urd.md": src})
	validate.Validate(g, st, c)
	assert.True(t, hasCode(c, 414))
}

func TestValidateTypesUnknownRefTypeReportsURD415(t *testing.T) {
	src := "---\nItem:\n  owner:\n    type: ref\n    ref: Nobody\n---\n"
	g, st, c := compile(t, map[string]string{"types.urd.md": src})
	validate.Validate(g, st, c)
	assert.True(t, hasCode(c, 415))
}

func TestValidateTypesMinGreaterThanMaxReportsURD416(t *testing.T) {
	src := "---\nItem:\n  weight:\n    type: integer\n    min: 10\n    max: 1\n---\n"
	g, st, c := compile(t, map[string]string{"types.urd.md": src})
	validate.Validate(g, st, c)
	assert.True(t, hasCode(c, 416))
}

func TestValidateTypesRangeOnNonNumericReportsURD417(t *testing.T) {
	src := "---\nItem:\n  name:\n    type: string\n    min: 1\n---\n"
	g, st, c := compile(t, map[string]string{"types.urd.md": src})
	validate.Validate(g, st, c)
	assert.True(t, hasCode(c, 417))
}

func TestValidateTypesUnrecognisedTypeStringWarnsURD429(t *testing.T) {
	src := "---\nItem:\n  weight:\n    type: heavy\n---\n"
	g, st, c := compile(t, map[string]string{"types.urd.md": src})
	validate.Validate(g, st, c)
	assert.True(t, hasCode(c, 429))
}

func TestValidateEntitiesEnumOverrideMismatchReportsURD402(t *testing.T) {
	src := "---\nDoor:\n  state:\n    type: enum\n    values: [open, closed]\n@gate:\n  type: Door\n  state: ajar\n---\n"
	g, st, c := compile(t, map[string]string{"x.urd.md": src})
	validate.Validate(g, st, c)
	assert.True(t, hasCode(c, 402))
}

func TestValidateConditionsRangeOperatorOnStringReportsURD420(t *testing.T) {
	src := "---\nItem:\n  name:\n    type: string\n@lantern:\n  type: Item\n---\n# Cellar\n? @lantern.name > 3\n"
	g, st, c := compile(t, map[string]string{"x.urd.md": src})
	validate.Validate(g, st, c)
	assert.True(t, hasCode(c, 420))
}

func TestValidateConditionsContainmentMissingTraitReportsURD422(t *testing.T) {
	src := "---\nItem:\n  weight:\n    type: integer\n@lantern:\n  type: Item\n@box:\n  type: Item\n---\n# Cellar\n? @lantern in @box\n"
	g, st, c := compile(t, map[string]string{"x.urd.md": src})
	validate.Validate(g, st, c)
	assert.True(t, hasCode(c, 422))
}

func TestValidateConditionsExhaustionOutsideFileReportsURD423(t *testing.T) {
	src := "# Cellar\n== start\n? exhausted other-file/far-section\n"
	g, st, c := compile(t, map[string]string{"x.urd.md": src})
	validate.Validate(g, st, c)
	assert.True(t, hasCode(c, 423))
}

func TestValidateEffectsArithmeticOnNonNumericReportsURD424(t *testing.T) {
	src := "---\nItem:\n  name:\n    type: string\n@lantern:\n  type: Item\n---\n# Cellar\n> @lantern.name + 1\n"
	g, st, c := compile(t, map[string]string{"x.urd.md": src})
	validate.Validate(g, st, c)
	assert.True(t, hasCode(c, 424))
}

func TestValidateEffectsMoveMissingPortableTraitReportsURD425(t *testing.T) {
	src := "---\nItem [container]:\n  weight:\n    type: integer\n@statue:\n  type: Item\n@box:\n  type: Item\n---\n# Cellar\n> move @statue -> @box\n"
	g, st, c := compile(t, map[string]string{"x.urd.md": src})
	validate.Validate(g, st, c)
	assert.True(t, hasCode(c, 425))
}

func TestValidateEffectsRevealOnVisiblePropertyWarnsURD426(t *testing.T) {
	src := "---\nItem:\n  name:\n    type: string\n@lantern:\n  type: Item\n---\n# Cellar\n> reveal @lantern.name\n"
	g, st, c := compile(t, map[string]string{"x.urd.md": src})
	validate.Validate(g, st, c)
	assert.True(t, hasCode(c, 426))
}

func TestValidateReachabilityUnreachableLocationWarnsURD430(t *testing.T) {
	src := "---\nworld:\n  start: cellar\n---\n# Cellar\n# Attic\n"
	g, st, c := compile(t, map[string]string{"x.urd.md": src})
	validate.Validate(g, st, c)
	assert.True(t, hasCode(c, 430))
}

func TestValidateNoDiagnosticsOnWellFormedWorld(t *testing.T) {
	src := "---\nworld:\n  start: cellar\n  entry: intro\nItem:\n  weight:\n    type: integer\n@lantern:\n  type: Item\n  weight: 2\n---\n# Cellar\n== start\nYou see a lantern.\n* Take it -> exit:north\n-> north: Attic\n# Attic\n## intro\n### begin (auto)\n"
	g, st, c := compile(t, map[string]string{"x.urd.md": src})
	require.False(t, c.HasErrors())
	before := len(c.Sorted())
	validate.Validate(g, st, c)
	assert.Len(t, c.Sorted(), before)
}
