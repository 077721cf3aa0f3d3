package util

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 5.0, Clamp(5, 0, 10))
	assert.Equal(t, 0.0, Clamp(-1, 0, 10))
	assert.Equal(t, 10.0, Clamp(11, 0, 10))
	assert.Equal(t, 10.0, Clamp(math.Inf(1), 0, 10))
	assert.Equal(t, 0.0, Clamp(math.Inf(-1), 0, 10))
}

func TestClampInt(t *testing.T) {
	assert.Equal(t, 64, ClampInt(10, 64, 512))
	assert.Equal(t, 512, ClampInt(4096, 64, 512))
	assert.Equal(t, 100, ClampInt(100, 64, 512))
}

func TestFinite(t *testing.T) {
	assert.Equal(t, 1.5, Finite(1.5, 0))
	assert.Equal(t, 0.0, Finite(math.NaN(), 0))
	assert.Equal(t, 2.0, Finite(math.Inf(1), 2))
	assert.Equal(t, 2.0, Finite(math.Inf(-1), 2))
}

func TestLerp(t *testing.T) {
	assert.Equal(t, 0.0, Lerp(0, 10, 0))
	assert.Equal(t, 10.0, Lerp(0, 10, 1))
	assert.Equal(t, 5.0, Lerp(0, 10, 0.5))
}

func TestMap(t *testing.T) {
	assert.Equal(t, 0.5, Map(5, 0, 10, 0, 1))
	// Out-of-range inputs clamp to the output range ends.
	assert.Equal(t, 1.0, Map(20, 0, 10, 0, 1))
	assert.Equal(t, 0.0, Map(-3, 0, 10, 0, 1))
}

func TestSmoothStep(t *testing.T) {
	assert.Equal(t, 0.0, SmoothStep(0, 1, 0))
	assert.Equal(t, 1.0, SmoothStep(0, 1, 1))
	assert.Equal(t, 0.5, SmoothStep(0, 1, 0.5))
	// Steeper than linear in the middle region.
	assert.Greater(t, SmoothStep(0, 1, 0.75), 0.75)
	assert.Less(t, SmoothStep(0, 1, 0.25), 0.25)
}
