package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"phosphor/pkg/config"
)

func TestParamsFromConfigDefaults(t *testing.T) {
	cfg := config.DefaultConfig()
	p := ParamsFromConfig(cfg.Overlay, cfg.Display)

	assert.True(t, p.Enabled)
	assert.Equal(t, MaskDotGrid, p.Mask)
	assert.Equal(t, BlendScreen, p.Blend)

	// Defaults must already be inside the sanitized ranges.
	assert.Equal(t, p, p.Sanitized())
}

func TestSanitizedClampsRanges(t *testing.T) {
	p := RenderParameters{
		Intensity:      7,
		DotPitch:       500,
		Gamma:          0,
		Distortion:     -2,
		BloomThreshold: 3,
		PixelRatioCap:  0,
		FrameRate:      100000,
		WarpScale:      1e6,
	}
	s := p.Sanitized()

	assert.Equal(t, 1.0, s.Intensity)
	assert.Equal(t, 64.0, s.DotPitch)
	assert.Equal(t, 0.1, s.Gamma)
	assert.Equal(t, 0.0, s.Distortion)
	assert.Equal(t, 1.0, s.BloomThreshold)
	assert.Equal(t, 0.25, s.PixelRatioCap)
	assert.Equal(t, 240, s.FrameRate)
	assert.Equal(t, 64.0, s.WarpScale)
}

func TestSanitizedReplacesNonFinite(t *testing.T) {
	p := RenderParameters{
		Intensity:      math.NaN(),
		Gamma:          math.Inf(1),
		WarpScale:      math.NaN(),
		ConvergenceRed: [2]float64{math.Inf(-1), math.NaN()},
	}
	s := p.Sanitized()

	// Non-finite values take the field's neutral fallback, not a range end.
	assert.Equal(t, 0.0, s.Intensity)
	assert.Equal(t, 1.0, s.Gamma)
	assert.Equal(t, 0.0, s.WarpScale)
	assert.Equal(t, 0.0, s.ConvergenceRed[0])
	assert.Equal(t, 0.0, s.ConvergenceRed[1])
}

func TestSanitizedWarpScaleOffSwitch(t *testing.T) {
	// Negative warp scale is a valid off switch and must survive sanitization.
	s := RenderParameters{WarpScale: -1}.Sanitized()
	assert.Equal(t, -1.0, s.WarpScale)

	s = RenderParameters{WarpScale: -99}.Sanitized()
	assert.Equal(t, -1.0, s.WarpScale)
	assert.True(t, WarpNode{Field: NewDisplacementField(64), Scale: s.WarpScale}.Transform().Identity)
}

func TestSanitizedEnumFallbacks(t *testing.T) {
	s := RenderParameters{Mask: MaskKind(99), Blend: BlendMode(-3)}.Sanitized()
	assert.Equal(t, MaskDotGrid, s.Mask)
	assert.Equal(t, BlendScreen, s.Blend)
}

func TestParseMaskKind(t *testing.T) {
	assert.Equal(t, MaskDotGrid, ParseMaskKind("dot-grid"))
	assert.Equal(t, MaskSubpixelStripe, ParseMaskKind("subpixel-stripe"))
	assert.Equal(t, MaskInterlacedStripe, ParseMaskKind("interlaced-stripe"))
	assert.Equal(t, MaskDotGrid, ParseMaskKind("no-such-mask"))
}

func TestParseBlendMode(t *testing.T) {
	assert.Equal(t, BlendAdditive, ParseBlendMode("additive"))
	assert.Equal(t, BlendScreen, ParseBlendMode("screen"))
	assert.Equal(t, BlendSoftLight, ParseBlendMode("soft-light"))
	assert.Equal(t, BlendLighten, ParseBlendMode("lighten"))
	assert.Equal(t, BlendToneMapped, ParseBlendMode("tone-mapped"))
	assert.Equal(t, BlendScreen, ParseBlendMode(""))
}
