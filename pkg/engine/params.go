package engine

import (
	"phosphor/internal/util"
	"phosphor/pkg/config"
)

// MaskKind selects the procedural shadow-mask pattern. It is a discrete
// choice, never a continuous blend between patterns.
type MaskKind int

const (
	MaskDotGrid MaskKind = iota
	MaskSubpixelStripe
	MaskInterlacedStripe
)

// BlendMode selects how mask, bloom and glow are combined in the composite pass.
type BlendMode int

const (
	BlendAdditive BlendMode = iota
	BlendScreen
	BlendSoftLight
	BlendLighten
	BlendToneMapped
)

// ParseMaskKind maps a config string to a MaskKind, defaulting to dot-grid.
func ParseMaskKind(s string) MaskKind {
	switch s {
	case "subpixel-stripe":
		return MaskSubpixelStripe
	case "interlaced-stripe":
		return MaskInterlacedStripe
	default:
		return MaskDotGrid
	}
}

// ParseBlendMode maps a config string to a BlendMode, defaulting to screen.
func ParseBlendMode(s string) BlendMode {
	switch s {
	case "additive":
		return BlendAdditive
	case "soft-light":
		return BlendSoftLight
	case "lighten":
		return BlendLighten
	case "tone-mapped":
		return BlendToneMapped
	default:
		return BlendScreen
	}
}

// RenderParameters is the flat record of overlay tunables read once per frame
// by the render loop. The UI/config side writes, the renderer only reads a
// sanitized snapshot; last write wins.
type RenderParameters struct {
	Enabled   bool
	Intensity float64

	Mask       MaskKind
	DotPitch   float64
	DotScale   float64
	DotFalloff float64
	Brightness float64

	ConvergenceRed      [2]float64
	ConvergenceBlue     [2]float64
	ConvergenceStrength float64

	GlowRadius     float64
	GlowIntensity  float64
	BloomThreshold float64
	BloomRadius    float64
	BloomIntensity float64

	Blend            BlendMode
	Gamma            float64
	Distortion       float64
	ScanlineStrength float64
	WarpScale        float64

	PixelRatioCap float64
	FrameRate     int
	Animate       bool
}

// ParamsFromConfig builds RenderParameters from the overlay and display
// config sections. The result is not yet sanitized; callers that feed the
// renderer must go through Sanitized.
func ParamsFromConfig(overlay config.OverlayConfig, display config.DisplayConfig) RenderParameters {
	return RenderParameters{
		Enabled:             overlay.Enabled,
		Intensity:           overlay.Intensity,
		Mask:                ParseMaskKind(overlay.MaskKind),
		DotPitch:            overlay.DotPitch,
		DotScale:            overlay.DotScale,
		DotFalloff:          overlay.DotFalloff,
		Brightness:          overlay.Brightness,
		ConvergenceRed:      [2]float64{overlay.ConvergenceRedX, overlay.ConvergenceRedY},
		ConvergenceBlue:     [2]float64{overlay.ConvergenceBlueX, overlay.ConvergenceBlueY},
		ConvergenceStrength: overlay.ConvergenceStrength,
		GlowRadius:          overlay.GlowRadius,
		GlowIntensity:       overlay.GlowIntensity,
		BloomThreshold:      overlay.BloomThreshold,
		BloomRadius:         overlay.BloomRadius,
		BloomIntensity:      overlay.BloomIntensity,
		Blend:               ParseBlendMode(overlay.BlendMode),
		Gamma:               overlay.Gamma,
		Distortion:          overlay.Distortion,
		ScanlineStrength:    overlay.ScanlineStrength,
		WarpScale:           overlay.WarpScale,
		PixelRatioCap:       display.PixelRatioCap,
		FrameRate:           display.FrameRate,
		Animate:             overlay.Animate,
	}
}

// field bounds for sanitization; values outside are clamped, NaN/Inf replaced
const (
	minGamma         = 0.1
	maxGamma         = 4.0
	minPixelRatioCap = 0.25
	maxPixelRatioCap = 4.0
)

// Sanitized returns a copy with every numeric field clamped into its safe
// range. Degenerate inputs (NaN, Inf) are replaced before clamping so they
// can never reach a shader uniform.
func (p RenderParameters) Sanitized() RenderParameters {
	s := p

	s.Intensity = util.Clamp(util.Finite(p.Intensity, 0), 0, 1)
	s.DotPitch = util.Clamp(util.Finite(p.DotPitch, 4), 1, 64)
	s.DotScale = util.Clamp(util.Finite(p.DotScale, 1), 0.1, 4)
	s.DotFalloff = util.Clamp(util.Finite(p.DotFalloff, 1.6), 0.1, 8)
	s.Brightness = util.Clamp(util.Finite(p.Brightness, 1), 0, 4)

	s.ConvergenceRed[0] = util.Clamp(util.Finite(p.ConvergenceRed[0], 0), -8, 8)
	s.ConvergenceRed[1] = util.Clamp(util.Finite(p.ConvergenceRed[1], 0), -8, 8)
	s.ConvergenceBlue[0] = util.Clamp(util.Finite(p.ConvergenceBlue[0], 0), -8, 8)
	s.ConvergenceBlue[1] = util.Clamp(util.Finite(p.ConvergenceBlue[1], 0), -8, 8)
	s.ConvergenceStrength = util.Clamp(util.Finite(p.ConvergenceStrength, 0), 0, 4)

	s.GlowRadius = util.Clamp(util.Finite(p.GlowRadius, 14), 1, 64)
	s.GlowIntensity = util.Clamp(util.Finite(p.GlowIntensity, 0), 0, 2)
	s.BloomThreshold = util.Clamp(util.Finite(p.BloomThreshold, 0.65), 0, 1)
	s.BloomRadius = util.Clamp(util.Finite(p.BloomRadius, 3), 0.5, 16)
	s.BloomIntensity = util.Clamp(util.Finite(p.BloomIntensity, 0), 0, 2)

	s.Gamma = util.Clamp(util.Finite(p.Gamma, 1), minGamma, maxGamma)
	s.Distortion = util.Clamp(util.Finite(p.Distortion, 0), 0, 1)
	s.ScanlineStrength = util.Clamp(util.Finite(p.ScanlineStrength, 0), 0, 1)
	// WarpScale is deliberately allowed to be <= 0: that is the warp off switch.
	s.WarpScale = util.Clamp(util.Finite(p.WarpScale, 0), -1, 64)

	s.PixelRatioCap = util.Clamp(util.Finite(p.PixelRatioCap, 1), minPixelRatioCap, maxPixelRatioCap)
	s.FrameRate = util.ClampInt(p.FrameRate, 0, 240)

	if s.Mask < MaskDotGrid || s.Mask > MaskInterlacedStripe {
		s.Mask = MaskDotGrid
	}
	if s.Blend < BlendAdditive || s.Blend > BlendToneMapped {
		s.Blend = BlendScreen
	}

	return s
}
