package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarpNodeIdentity(t *testing.T) {
	field := NewDisplacementField(64)

	for _, scale := range []float64{0, -1, -6} {
		tr := WarpNode{Field: field, Scale: scale, ViewportWidth: 800, ViewportHeight: 600}.Transform()
		assert.True(t, tr.Identity, "scale %v must yield the identity", scale)

		x, y := tr.Apply(123, 456)
		assert.Equal(t, 123.0, x)
		assert.Equal(t, 456.0, y)
	}

	tr := WarpNode{Field: nil, Scale: 6}.Transform()
	assert.True(t, tr.Identity, "missing field must yield the identity, not a default")
}

func TestWarpNodeMarginCoversDisplacement(t *testing.T) {
	field := NewDisplacementField(256)

	for _, scale := range []float64{0.5, 1, 6, 32} {
		tr := WarpNode{
			Field:          field,
			Scale:          scale,
			ViewportWidth:  800,
			ViewportHeight: 600,
		}.Transform()
		require.False(t, tr.Identity)

		assert.GreaterOrEqual(t, tr.Margin, scale*field.MaxDisplacement()/2,
			"margin must cover the worst-case displacement at scale %v", scale)
		assert.GreaterOrEqual(t, tr.Margin, 1.0)
		assert.Equal(t, 800+2*tr.Margin, tr.TileW)
		assert.Equal(t, 600+2*tr.Margin, tr.TileH)
	}
}

func TestWarpTransformCenterStable(t *testing.T) {
	field := NewDisplacementField(256)
	tr := WarpNode{
		Field:          field,
		Scale:          6,
		ViewportWidth:  800,
		ViewportHeight: 600,
	}.Transform()
	require.False(t, tr.Identity)

	// The viewport center maps to the field center, where the radial
	// displacement vanishes. Encoding quantization leaves sub-pixel residue.
	x, y := tr.Apply(400, 300)
	assert.InDelta(t, 400, x, 0.1)
	assert.InDelta(t, 300, y, 0.1)
}

func TestWarpTransformBoundedByScale(t *testing.T) {
	field := NewDisplacementField(256)
	tr := WarpNode{
		Field:          field,
		Scale:          6,
		ViewportWidth:  800,
		ViewportHeight: 600,
	}.Transform()

	maxShift := 6 * field.MaxDisplacement()
	for _, p := range [][2]float64{{0, 0}, {800, 0}, {0, 600}, {800, 600}, {200, 150}} {
		x, y := tr.Apply(p[0], p[1])
		assert.LessOrEqual(t, math.Abs(x-p[0]), maxShift)
		assert.LessOrEqual(t, math.Abs(y-p[1]), maxShift)
	}
}

func TestBarrelCenterFixed(t *testing.T) {
	for _, k := range []float64{0, 0.1, 0.5, 2} {
		u, v := Barrel(0.5, 0.5, k)
		assert.Equal(t, 0.5, u)
		assert.Equal(t, 0.5, v)
	}
}

func TestBarrelCornerGrowsWithDistortion(t *testing.T) {
	prev := 0.0
	for _, k := range []float64{0, 0.05, 0.1, 0.2, 0.4} {
		u, v := Barrel(0, 0, k)
		d := math.Hypot(u-0.5, v-0.5)
		assert.Greater(t, d, prev-1e-12, "corner displacement must grow with k")
		prev = d
	}
}

func TestBarrelCrop(t *testing.T) {
	// Undistorted, everything is inside.
	assert.True(t, BarrelInside(0, 0, 0))
	assert.True(t, BarrelInside(1, 1, 0))

	// With visible distortion the corners are pushed out of frame while the
	// center region stays visible.
	assert.False(t, BarrelInside(0, 0, 0.5))
	assert.False(t, BarrelInside(1, 1, 0.5))
	assert.True(t, BarrelInside(0.5, 0.5, 0.5))
	assert.True(t, BarrelInside(0.4, 0.6, 0.5))
}
