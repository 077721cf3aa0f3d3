package engine

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feedRenderer builds a renderer with just the feed bookkeeping populated;
// none of these tests touch the GPU side.
func feedRenderer(columns, lineHeight, viewportH int) *ContentRenderer {
	return &ContentRenderer{columns: columns, lineHeight: lineHeight, viewportH: viewportH}
}

func TestContentHeightNeverBelowViewport(t *testing.T) {
	c := feedRenderer(80, 18, 400)
	assert.Equal(t, 400.0, c.ContentHeight(), "empty feed still fills the viewport")

	c.AppendLine("hello")
	assert.Equal(t, 400.0, c.ContentHeight())
}

func TestContentHeightGrowsWithFeed(t *testing.T) {
	c := feedRenderer(80, 18, 100)
	for i := 0; i < 20; i++ {
		c.AppendLine("line")
	}
	assert.Equal(t, float64(21*18), c.ContentHeight())
}

func TestAppendLineWrapsAtColumns(t *testing.T) {
	c := feedRenderer(10, 18, 0)
	c.AppendLine(strings.Repeat("x", 25))

	assert.Equal(t, []string{
		strings.Repeat("x", 10),
		strings.Repeat("x", 10),
		strings.Repeat("x", 5),
	}, c.lines)
}

func TestAppendLineWrapsMultibyteOnRunes(t *testing.T) {
	c := feedRenderer(10, 18, 0)
	c.AppendLine(strings.Repeat("é", 25))

	require.Len(t, c.lines, 3)
	assert.Equal(t, strings.Repeat("é", 10), c.lines[0])
	assert.Equal(t, strings.Repeat("é", 10), c.lines[1])
	assert.Equal(t, strings.Repeat("é", 5), c.lines[2])
	for i, l := range c.lines {
		assert.True(t, utf8.ValidString(l), "wrapped line %d split a rune", i)
	}
}

func TestAppendLineTrimsFeed(t *testing.T) {
	c := feedRenderer(80, 18, 0)
	for i := 0; i < maxFeedLines+50; i++ {
		c.AppendLine("line")
	}
	assert.Len(t, c.lines, maxFeedLines)
}

func TestSetFeedReplacesAndShrinks(t *testing.T) {
	c := feedRenderer(80, 18, 100)
	for i := 0; i < 50; i++ {
		c.AppendLine("old")
	}
	grown := c.ContentHeight()

	h := c.SetFeed([]string{"fresh"})
	assert.Less(t, h, grown, "replacing a long feed with a short one shrinks the height")
	assert.Equal(t, []string{"fresh"}, c.lines)
	assert.True(t, c.dirty)
}

func TestSetFeedCopiesInput(t *testing.T) {
	c := feedRenderer(80, 18, 0)
	src := []string{"a", "b"}
	c.SetFeed(src)
	src[0] = "mutated"
	assert.Equal(t, "a", c.lines[0])
}
