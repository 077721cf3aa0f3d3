package noise

import (
	"math"
	"math/rand"
)

// NoiseGenerator is a utility for generating smooth pseudo-random signals.
// The CRT ambience synth uses it for phosphor hiss and hum wobble; nothing
// in the render path depends on it.
type NoiseGenerator struct {
	rng  *rand.Rand
	seed int64
}

// NewNoiseGenerator creates a generator seeded with the given value
func NewNoiseGenerator(seed int64) *NoiseGenerator {
	return &NoiseGenerator{
		rng:  rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// RandomFloat returns a random float64 in [0,1)
func (ng *NoiseGenerator) RandomFloat() float64 {
	return ng.rng.Float64()
}

// RandomRange returns a random float64 between min and max
func (ng *NoiseGenerator) RandomRange(min, max float64) float64 {
	return min + ng.rng.Float64()*(max-min)
}

// Perlin1D generates 1D gradient noise in [-1,1]
func (ng *NoiseGenerator) Perlin1D(x float64, seed int64) float64 {
	x0 := math.Floor(x)
	x1 := x0 + 1

	t := x - x0
	t = smoothstep(t)

	g0 := gradient1D(hash(int(x0), 0, 0, int(seed)))
	g1 := gradient1D(hash(int(x1), 0, 0, int(seed)))

	v0 := g0 * (x - x0)
	v1 := g1 * (x - x1)

	return lerp(v0, v1, t)
}

// FBM1D generates 1D Fractal Brownian Motion noise in roughly [-1,1]
func (ng *NoiseGenerator) FBM1D(x float64, octaves int, lacunarity, gain float64, seed int64) float64 {
	result := 0.0
	amplitude := 1.0
	frequency := 1.0
	max := 0.0

	for i := 0; i < octaves; i++ {
		result += ng.Perlin1D(x*frequency, seed+int64(i)) * amplitude
		max += amplitude
		amplitude *= gain
		frequency *= lacunarity
	}

	if max > 0 {
		result /= max
	}
	return result
}

// hash produces a deterministic integer hash from coordinates and a seed
func hash(x, y, z, seed int) int {
	h := seed + x*374761393 + y*668265263 + z*1274126177
	h = (h ^ (h >> 13)) * 1274126177
	return h ^ (h >> 16)
}

// gradient1D maps a hash to a gradient in [-1,1]
func gradient1D(h int) float64 {
	if h&1 == 0 {
		return 1.0
	}
	return -1.0
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func smoothstep(t float64) float64 {
	return t * t * (3 - 2*t)
}
