package slugify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/urdwyrd/urd/slugify"
)

func TestBasicSlugification(t *testing.T) {
	assert.Equal(t, "the-rusty-anchor", slugify.Slugify("The Rusty Anchor"))
}

func TestStripsSpecialCharacters(t *testing.T) {
	assert.Equal(t, "ask-about-the-harbor", slugify.Slugify("Ask about the harbor!"))
}

func TestCollapsesHyphens(t *testing.T) {
	assert.Equal(t, "foo-bar", slugify.Slugify("foo - - bar"))
}

func TestTrimsLeadingTrailingHyphens(t *testing.T) {
	assert.Equal(t, "hello", slugify.Slugify("- hello -"))
}

func TestAlreadySlugified(t *testing.T) {
	assert.Equal(t, "cell", slugify.Slugify("cell"))
}

func TestEmptyInput(t *testing.T) {
	assert.Equal(t, "", slugify.Slugify(""))
}

func TestIdempotent(t *testing.T) {
	in := "The Rusty Anchor!!  -- Ask about the harbor"
	once := slugify.Slugify(in)
	twice := slugify.Slugify(once)
	assert.Equal(t, once, twice)
}
