package diag_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/urdwyrd/urd/diag"
	"github.com/urdwyrd/urd/span"
)

func TestNewCodeZeroPads(t *testing.T) {
	assert.Equal(t, diag.Code("URD303"), diag.NewCode(303))
	assert.Equal(t, diag.Code("URD001"), diag.NewCode(1))
}

func TestHasErrors(t *testing.T) {
	c := diag.NewCollector()
	assert.False(t, c.HasErrors())
	c.Warning(diag.NewCode(601), "unused", span.Synthetic())
	assert.False(t, c.HasErrors())
	c.Error(diag.NewCode(303), "duplicate", span.Synthetic())
	assert.True(t, c.HasErrors())
}

func TestSortedOrder(t *testing.T) {
	c := diag.NewCollector()
	c.Warning(diag.NewCode(601), "b-warn", span.New("b.urd.md", 1, 1))
	c.Error(diag.NewCode(303), "a-err-late", span.New("a.urd.md", 5, 1))
	c.Error(diag.NewCode(302), "a-err-early", span.New("a.urd.md", 1, 1))

	sorted := c.Sorted()
	assert.Len(t, sorted, 3)
	assert.Equal(t, "a-err-early", sorted[0].Message)
	assert.Equal(t, "a-err-late", sorted[1].Message)
	assert.Equal(t, "b-warn", sorted[2].Message)
}

func TestSortedTieBreaksBySeverity(t *testing.T) {
	c := diag.NewCollector()
	sp := span.New("x.urd.md", 2, 2)
	c.Info(diag.NewCode(699), "info", sp)
	c.Error(diag.NewCode(401), "error", sp)
	c.Warning(diag.NewCode(426), "warning", sp)

	sorted := c.Sorted()
	assert.Equal(t, diag.SeverityError, sorted[0].Severity)
	assert.Equal(t, diag.SeverityWarning, sorted[1].Severity)
	assert.Equal(t, diag.SeverityInfo, sorted[2].Severity)
}

func TestEmitCarriesSuggestionAndRelated(t *testing.T) {
	c := diag.NewCollector()
	suggestion := "did you mean 'lantern'?"
	c.Emit(diag.Diagnostic{
		Severity:   diag.SeverityError,
		Code:       diag.NewCode(401),
		Message:    "unknown entity",
		Span:       span.New("a.urd.md", 1, 1),
		Suggestion: &suggestion,
		Related: []diag.RelatedInfo{
			{Message: "first declared here", Span: span.New("a.urd.md", 1, 1)},
		},
	})
	all := c.All()
	assert.Len(t, all, 1)
	assert.Equal(t, &suggestion, all[0].Suggestion)
	assert.Len(t, all[0].Related, 1)
}
