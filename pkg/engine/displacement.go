package engine

import (
	"math"
	"sync"

	"phosphor/internal/util"
)

// Displacement field raster bounds. Requests outside are clamped.
const (
	minFieldSize = 64
	maxFieldSize = 512

	// fieldIntensity is the unit-space magnitude of the radial displacement
	// at the field corners. The warp scale turns this into pixels.
	fieldIntensity = 0.5
)

// DisplacementField is an immutable square raster whose red and green
// channels encode a normalized per-pixel (x,y) offset vector. Generation is
// a pure function of the size: the same size always yields byte-identical
// output, so the warp never reads as animated noise.
type DisplacementField struct {
	Size int
	// Pix is RGBA, row-major, Size*Size*4 bytes. R and G carry the vector,
	// B is the midpoint constant, A is opaque.
	Pix []uint8
}

var (
	fieldCacheMu sync.Mutex
	fieldCache   = map[int]*DisplacementField{}
)

// NewDisplacementField returns the field for the given raster size, clamped
// into [64,512]. Results are memoized per size; repeated calls are free.
func NewDisplacementField(size int) *DisplacementField {
	size = util.ClampInt(size, minFieldSize, maxFieldSize)

	fieldCacheMu.Lock()
	defer fieldCacheMu.Unlock()

	if f, ok := fieldCache[size]; ok {
		return f
	}

	f := generateField(size)
	fieldCache[size] = f
	return f
}

// generateField rasterizes the radial displacement function:
// for normalized coordinates in [-1,1]^2, d = (x*r2, y*r2) * fieldIntensity,
// remapped from [-1,1] to [0,1] for storage.
func generateField(size int) *DisplacementField {
	f := &DisplacementField{
		Size: size,
		Pix:  make([]uint8, size*size*4),
	}

	for y := 0; y < size; y++ {
		ny := (float64(y)/float64(size-1))*2 - 1
		for x := 0; x < size; x++ {
			nx := (float64(x)/float64(size-1))*2 - 1

			r2 := nx*nx + ny*ny
			dx := nx * r2 * fieldIntensity
			dy := ny * r2 * fieldIntensity

			i := (y*size + x) * 4
			f.Pix[i+0] = encodeChannel(dx)
			f.Pix[i+1] = encodeChannel(dy)
			f.Pix[i+2] = 128
			f.Pix[i+3] = 255
		}
	}

	return f
}

// encodeChannel remaps a displacement component from [-1,1] to a byte.
func encodeChannel(v float64) uint8 {
	v = util.Clamp(v, -1, 1)
	return uint8(math.Round((v + 1) / 2 * 255))
}

// VectorAt decodes the stored displacement vector at a raster coordinate,
// returned in unit space [-1,1]. Out-of-range coordinates are clamped to the
// edge, matching the texture's clamp-to-edge sampling.
func (f *DisplacementField) VectorAt(x, y int) (float64, float64) {
	x = util.ClampInt(x, 0, f.Size-1)
	y = util.ClampInt(y, 0, f.Size-1)
	i := (y*f.Size + x) * 4
	dx := float64(f.Pix[i+0])/255*2 - 1
	dy := float64(f.Pix[i+1])/255*2 - 1
	return dx, dy
}

// MaxDisplacement returns the largest unit-space displacement magnitude the
// field can encode, reached at the corners where r2 = 2.
func (f *DisplacementField) MaxDisplacement() float64 {
	// |d| = sqrt(2) * r2 * intensity at a corner, with r2 = 2.
	return math.Sqrt2 * 2 * fieldIntensity
}
