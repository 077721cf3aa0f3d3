package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompositeShaderOutputsStraightAlpha(t *testing.T) {
	// The mask pass writes straight color with blending disabled, so the
	// offscreen buffers are never premultiplied. The composite must hand the
	// canvas blend unscaled color and let SRC_ALPHA do the scaling; dividing
	// by alpha here would over-brighten dim mask texels by up to 1/alpha and
	// make the composited and mask-direct paths disagree.
	assert.NotContains(t, compositeFragmentShaderSource, "color / a")
	assert.Contains(t, compositeFragmentShaderSource, "FragColor = vec4(color, mask.a)")
}

func TestContentShaderSamplesWarpByScreenPosition(t *testing.T) {
	// Screen-fixed warp: the displacement lookup depends only on the screen
	// pixel and the tile geometry. The scroll offset moves the content
	// lookup, never the field lookup.
	assert.Contains(t, contentFragmentShaderSource, "(screenPx + vec2(warpMargin)) / warpTile")
	assert.Contains(t, contentFragmentShaderSource, "screenPx + d + vec2(0.0, scrollOffset)")
}
