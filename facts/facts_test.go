package facts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urdwyrd/urd/span"
)

func sp() span.Span {
	return span.Span{File: "test.urd.md", StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 1}
}

func addReadFixture(fs *FactSet, site Site, key PropertyKey) int {
	return fs.addRead(Read{
		Site: site, EntityType: key.EntityType, Property: key.Property,
		Operator: CompareEq, ValueLiteral: "x", ValueKind: LiteralIdent, Span: sp(),
	})
}

func addWriteFixture(fs *FactSet, site Site, key PropertyKey) int {
	kind := LiteralIdent
	return fs.addWrite(Write{
		Site: site, EntityType: key.EntityType, Property: key.Property,
		Operator: WriteSet, ValueExpr: "x", ValueKind: &kind, Span: sp(),
	})
}

func TestPropertyDependencyIndexEmptyLookupsReturnNil(t *testing.T) {
	fs := New()
	key := PropertyKey{EntityType: "NPC", Property: "mood"}

	idx := Build(fs)
	assert.Empty(t, idx.ReadsOf(key))
	assert.Empty(t, idx.WritesOf(key))
}

func TestReadButNeverWrittenAndWrittenButNeverRead(t *testing.T) {
	fs := New()
	readOnly := PropertyKey{EntityType: "NPC", Property: "suspicion"}
	writeOnly := PropertyKey{EntityType: "NPC", Property: "loyalty"}
	both := PropertyKey{EntityType: "NPC", Property: "mood"}
	site := Site{Kind: SiteRule, ID: "r"}

	addReadFixture(fs, site, readOnly)
	addReadFixture(fs, site, both)
	addWriteFixture(fs, site, writeOnly)
	addWriteFixture(fs, site, both)

	idx := Build(fs)

	readNeverWritten := idx.ReadButNeverWritten()
	require.Len(t, readNeverWritten, 1)
	assert.Equal(t, readOnly, readNeverWritten[0])

	writtenNeverRead := idx.WrittenButNeverRead()
	require.Len(t, writtenNeverRead, 1)
	assert.Equal(t, writeOnly, writtenNeverRead[0])
}

func TestReadPropertiesPreservesFirstSeenOrderNotSortedOrder(t *testing.T) {
	fs := New()
	second := PropertyKey{EntityType: "NPC", Property: "zz_second"}
	first := PropertyKey{EntityType: "NPC", Property: "aa_first"}
	site := Site{Kind: SiteRule, ID: "r"}

	addReadFixture(fs, site, second)
	addReadFixture(fs, site, first)
	addReadFixture(fs, site, second)

	idx := Build(fs)
	props := idx.ReadProperties()
	require.Len(t, props, 2)
	assert.Equal(t, second, props[0])
	assert.Equal(t, first, props[1])
}

func TestReadIndicesForSite(t *testing.T) {
	fs := New()
	site := Site{Kind: SiteChoice, ID: "intro/open-door"}
	other := Site{Kind: SiteRule, ID: "guard_alert"}

	idxA := addReadFixture(fs, site, PropertyKey{EntityType: "Door", Property: "locked"})
	idxB := addReadFixture(fs, other, PropertyKey{EntityType: "NPC", Property: "alert"})
	idxC := addReadFixture(fs, site, PropertyKey{EntityType: "Door", Property: "locked"})

	got := fs.ReadIndicesForSite(site)
	assert.Equal(t, []int{idxA, idxC}, got)
	assert.NotContains(t, got, idxB)
}
