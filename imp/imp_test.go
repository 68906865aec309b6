package imp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urdwyrd/urd/diag"
	"github.com/urdwyrd/urd/imp"
	"github.com/urdwyrd/urd/parse"
)

// mapFileReader is an in-memory FileReader for tests, keyed by the same
// forward-slash paths ResolveImportsWithReader normalises to.
type mapFileReader struct {
	files map[string]string
}

func (m *mapFileReader) ReadFile(fsPath string) (string, *imp.ReadError) {
	if content, ok := m.files[fsPath]; ok {
		return content, nil
	}
	return "", &imp.ReadError{Kind: imp.ReadNotFound, Message: "not found: " + fsPath}
}

func (m *mapFileReader) CanonicalFilename(dir, filename string) (string, bool) {
	return "", false
}

func TestResolveImportsSingleFile(t *testing.T) {
	c := diag.NewCollector()
	entry := parse.Parse("tavern.urd.md", "# Tavern\nA quiet room.\n", c)
	reader := &mapFileReader{files: map[string]string{}}

	unit := imp.ResolveImportsWithReader(entry, "", c, reader)
	require.False(t, c.HasErrors())
	require.Len(t, unit.OrderedASTs, 1)
	assert.Equal(t, "tavern.urd.md", unit.OrderedASTs[0].Path)
}

func TestResolveImportsTransitiveChain(t *testing.T) {
	c := diag.NewCollector()
	entry := parse.Parse("tavern.urd.md", "---\nimport: ./shared.urd.md\n---\n# Tavern\n", c)
	reader := &mapFileReader{files: map[string]string{
		"shared.urd.md": "---\nimport: ./types.urd.md\n---\n# Shared\n",
		"types.urd.md":  "# Types\n",
	}}

	unit := imp.ResolveImportsWithReader(entry, "", c, reader)
	require.False(t, c.HasErrors())
	require.Len(t, unit.OrderedASTs, 3)
	assert.Equal(t, "tavern.urd.md", unit.OrderedASTs[2].Path)
	assert.Equal(t, "types.urd.md", unit.OrderedASTs[0].Path)
}

func TestResolveImportsSelfImportReportsURD207(t *testing.T) {
	c := diag.NewCollector()
	entry := parse.Parse("tavern.urd.md", "---\nimport: ./tavern.urd.md\n---\n# Tavern\n", c)
	reader := &mapFileReader{files: map[string]string{}}

	imp.ResolveImportsWithReader(entry, "", c, reader)
	require.True(t, c.HasErrors())
	found := false
	for _, d := range c.Sorted() {
		if d.Code == diag.NewCode(207) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestResolveImportsCycleReportsURD202(t *testing.T) {
	c := diag.NewCollector()
	entry := parse.Parse("a.urd.md", "---\nimport: ./b.urd.md\n---\n# A\n", c)
	reader := &mapFileReader{files: map[string]string{
		"b.urd.md": "---\nimport: ./a.urd.md\n---\n# B\n",
	}}

	imp.ResolveImportsWithReader(entry, "", c, reader)
	require.True(t, c.HasErrors())
	found := false
	for _, d := range c.Sorted() {
		if d.Code == diag.NewCode(202) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestResolveImportsMissingFileReportsURD201(t *testing.T) {
	c := diag.NewCollector()
	entry := parse.Parse("a.urd.md", "---\nimport: ./missing.urd.md\n---\n# A\n", c)
	reader := &mapFileReader{files: map[string]string{}}

	imp.ResolveImportsWithReader(entry, "", c, reader)
	require.True(t, c.HasErrors())
	found := false
	for _, d := range c.Sorted() {
		if d.Code == diag.NewCode(201) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestResolveImportsAbsolutePathReportsURD209(t *testing.T) {
	c := diag.NewCollector()
	entry := parse.Parse("a.urd.md", "---\nimport: /etc/passwd.urd.md\n---\n# A\n", c)
	reader := &mapFileReader{files: map[string]string{}}

	imp.ResolveImportsWithReader(entry, "", c, reader)
	require.True(t, c.HasErrors())
	found := false
	for _, d := range c.Sorted() {
		if d.Code == diag.NewCode(209) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestResolveImportsEscapesRootReportsURD208(t *testing.T) {
	c := diag.NewCollector()
	entry := parse.Parse("sub/a.urd.md", "---\nimport: ../../outside.urd.md\n---\n# A\n", c)
	reader := &mapFileReader{files: map[string]string{}}

	imp.ResolveImportsWithReader(entry, "", c, reader)
	require.True(t, c.HasErrors())
	found := false
	for _, d := range c.Sorted() {
		if d.Code == diag.NewCode(208) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestResolveImportsVisitedFileNotReread(t *testing.T) {
	c := diag.NewCollector()
	entry := parse.Parse("a.urd.md", "---\nimport: ./b.urd.md\n---\n# A\n", c)
	reader := &mapFileReader{files: map[string]string{
		"b.urd.md": "---\nimport: ./c.urd.md\n---\n# B\n",
		"c.urd.md": "# C\n",
	}}
	unit := imp.ResolveImportsWithReader(entry, "", c, reader)
	require.False(t, c.HasErrors())
	assert.Len(t, unit.OrderedASTs, 3)
}
