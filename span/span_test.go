package span_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/urdwyrd/urd/span"
)

func TestSynthetic(t *testing.T) {
	s := span.Synthetic()
	assert.True(t, s.IsSynthetic())
	assert.Equal(t, "<synthetic>", s.String())
}

func TestStringSingleLine(t *testing.T) {
	s := span.New("room.urd.md", 3, 5)
	assert.Equal(t, "room.urd.md:3:5-5", s.String())
}

func TestStringMultiLine(t *testing.T) {
	s := span.Span{File: "room.urd.md", StartLine: 3, StartCol: 5, EndLine: 4, EndCol: 2}
	assert.Equal(t, "room.urd.md:3:5-4:2", s.String())
}

func TestCoverSameFile(t *testing.T) {
	a := span.New("x.urd.md", 2, 1)
	b := span.New("x.urd.md", 5, 3)
	got := span.Cover(a, b)
	assert.Equal(t, 2, got.StartLine)
	assert.Equal(t, 5, got.EndLine)
}

func TestCoverDifferentFiles(t *testing.T) {
	a := span.New("x.urd.md", 2, 1)
	b := span.New("y.urd.md", 5, 3)
	assert.Equal(t, a, span.Cover(a, b))
}
