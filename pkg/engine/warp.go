package engine

import (
	"math"
)

// WarpNode describes the per-pixel displacement mapping applied to the
// scrollable content. The field is stretched over the viewport plus a margin
// and sampled by screen position, so the warp stays fixed to the screen while
// the content moves underneath it.
type WarpNode struct {
	Field *DisplacementField
	// Scale is the maximum displacement in pixels. Zero or negative is the
	// off switch: the node yields the identity transform.
	Scale float64
	// ViewportWidth/ViewportHeight are the visible region in pixels.
	ViewportWidth  float64
	ViewportHeight float64
}

// WarpTransform is the resolved spatial-filter description consumed by the
// content pass (as uniforms) and by tests (via Apply).
type WarpTransform struct {
	Identity bool
	Scale    float64
	// Margin is the extra border, in pixels, by which the field coverage
	// exceeds the viewport so edge pixels still sample valid data.
	Margin float64
	// TileW/TileH is the pixel extent one field tile is stretched over.
	TileW float64
	TileH float64

	field *DisplacementField
}

// Transform resolves the node into a transform. When Scale <= 0 or no field
// is available the result is the identity; it must never silently substitute
// a default displacement.
func (n WarpNode) Transform() WarpTransform {
	if n.Scale <= 0 || n.Field == nil {
		return WarpTransform{Identity: true}
	}

	margin := math.Ceil(n.Scale * n.Field.MaxDisplacement() / 2)
	if margin < 1 {
		margin = 1
	}

	return WarpTransform{
		Scale:  n.Scale,
		Margin: margin,
		TileW:  n.ViewportWidth + 2*margin,
		TileH:  n.ViewportHeight + 2*margin,
		field:  n.Field,
	}
}

// Apply maps a screen-space pixel coordinate through the displacement. It is
// the CPU reference for what the content shader computes per fragment; the
// identity transform returns its input unchanged.
func (t WarpTransform) Apply(x, y float64) (float64, float64) {
	if t.Identity {
		return x, y
	}

	// Field coverage spans [-margin, viewport+margin] on both axes.
	u := (x + t.Margin) / t.TileW
	v := (y + t.Margin) / t.TileH

	size := float64(t.field.Size)
	fx := int(math.Round(u * (size - 1)))
	fy := int(math.Round(v * (size - 1)))

	dx, dy := t.field.VectorAt(fx, fy)
	return x + dx*t.Scale, y + dy*t.Scale
}

// Barrel applies the composite pass's radial distortion to a normalized
// coordinate pair: uv' = center + (uv-center)*(1 + k*|uv-center|^2). The
// shader forces samples whose uv' leaves [0,1]^2 to transparent black; this
// CPU copy exists so that behavior can be reasoned about and tested.
func Barrel(u, v, k float64) (float64, float64) {
	du := u - 0.5
	dv := v - 0.5
	r2 := du*du + dv*dv
	f := 1 + k*r2
	return 0.5 + du*f, 0.5 + dv*f
}

// BarrelInside reports whether the distorted coordinate still lands inside
// the unit square.
func BarrelInside(u, v, k float64) bool {
	bu, bv := Barrel(u, v, k)
	return bu >= 0 && bu <= 1 && bv >= 0 && bv <= 1
}
