package engine

import (
	"github.com/go-gl/gl/v4.1-core/gl"
)

// frameState carries everything one pipeline traversal needs: the sanitized
// parameter snapshot, the scroll snapshot taken at the start of the tick, and
// which optional passes actually produced output.
type frameState struct {
	params RenderParameters
	scroll ScrollState
	time   float64
	glitch float64

	// canvas pixel size for this frame (window size times capped ratio)
	width  int
	height int
	// physical framebuffer size the final passes stretch to
	outW int
	outH int

	bloomDone bool
	glowDone  bool
}

// renderPass is one stage of the pipeline. ready declares its prerequisite
// resources; the driver skips a pass whose prerequisites are unavailable
// instead of special-casing fallbacks per pass.
type renderPass struct {
	name  string
	ready func(f *frameState) bool
	run   func(f *frameState)
}

// runPassList executes the passes in order, skipping any pass that is not
// ready. It returns the names of the executed passes (the render log and the
// tests both use this).
func runPassList(passes []renderPass, f *frameState) []string {
	executed := make([]string, 0, len(passes))
	for _, p := range passes {
		if p.ready != nil && !p.ready(f) {
			continue
		}
		p.run(f)
		executed = append(executed, p.name)
	}
	return executed
}

// overlayAlpha is the effective overlay opacity before the edge fade. An
// intensity of zero is a hard kill switch: the result is zero no matter what
// the fade contributes.
func overlayAlpha(intensity, edgeFade float64) float64 {
	if intensity <= 0 {
		return 0
	}
	if edgeFade < 0 {
		edgeFade = 0
	} else if edgeFade > 1 {
		edgeFade = 1
	}
	return intensity * edgeFade
}

// passes builds the ordered pass list for one frame. Optional stages declare
// their targets; a failed allocation demotes the frame to mask-only output
// rather than dropping it.
func (s *GPUSession) passes() []renderPass {
	return []renderPass{
		{
			name:  "mask",
			ready: func(*frameState) bool { return true },
			run:   s.runMaskPass,
		},
		{
			name: "bright",
			ready: func(*frameState) bool {
				return s.mask.ok && s.bright.ok
			},
			run: s.runBrightPass,
		},
		{
			name: "bloom-blur",
			ready: func(f *frameState) bool {
				return s.bright.ok && s.bloomA.ok && s.bloomB.ok
			},
			run: s.runBloomBlur,
		},
		{
			name: "glow",
			ready: func(f *frameState) bool {
				return s.bright.ok && s.glowA.ok && s.glowB.ok
			},
			run: s.runGlowBlur,
		},
		{
			name: "composite",
			ready: func(*frameState) bool {
				// Without the mask buffer the mask pass already drew straight
				// to the canvas; there is nothing left to composite.
				return s.mask.ok
			},
			run: s.runCompositePass,
		},
	}
}

// RenderOverlay runs one full pipeline traversal. The caller has already
// bound the default framebuffer and enabled straight-alpha blending.
func (s *GPUSession) RenderOverlay(f *frameState) []string {
	return runPassList(s.passes(), f)
}

// runMaskPass draws the procedural mask. With a healthy mask target it
// renders offscreen; when the target failed it degrades by drawing directly
// to the canvas, which the composite pass then skips.
func (s *GPUSession) runMaskPass(f *frameState) {
	if s.mask.ok {
		gl.BindFramebuffer(gl.FRAMEBUFFER, s.mask.fbo)
		gl.Viewport(0, 0, int32(s.mask.width), int32(s.mask.height))
		gl.Disable(gl.BLEND)
		gl.ClearColor(0, 0, 0, 0)
		gl.Clear(gl.COLOR_BUFFER_BIT)
	} else {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		gl.Viewport(0, 0, int32(f.outW), int32(f.outH))
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	}

	p := f.params
	gl.UseProgram(s.maskProg)
	gl.Uniform2f(s.maskU.resolution, float32(s.mask.width), float32(s.mask.height))
	gl.Uniform1f(s.maskU.time, float32(f.time))
	// The kill switch applies before upload; the shader only scales by fade.
	gl.Uniform1f(s.maskU.intensity, float32(overlayAlpha(p.Intensity, 1)))
	gl.Uniform1i(s.maskU.maskKind, int32(p.Mask))
	gl.Uniform1f(s.maskU.dotPitch, float32(p.DotPitch))
	gl.Uniform1f(s.maskU.dotScale, float32(p.DotScale))
	gl.Uniform1f(s.maskU.dotFalloff, float32(p.DotFalloff))
	gl.Uniform1f(s.maskU.brightness, float32(p.Brightness))
	gl.Uniform2f(s.maskU.convergenceRed, float32(p.ConvergenceRed[0]), float32(p.ConvergenceRed[1]))
	gl.Uniform2f(s.maskU.convergenceBlue, float32(p.ConvergenceBlue[0]), float32(p.ConvergenceBlue[1]))
	gl.Uniform1f(s.maskU.convergenceSt, float32(p.ConvergenceStrength))
	gl.Uniform1f(s.maskU.scanlineStrength, float32(p.ScanlineStrength))
	if p.Animate {
		gl.Uniform1f(s.maskU.animate, 1)
	} else {
		gl.Uniform1f(s.maskU.animate, 0)
	}
	gl.Uniform1f(s.maskU.glitchAmount, float32(f.glitch))

	s.drawQuad()
}

// runBrightPass thresholds mask luminance into the half-resolution bloom
// source.
func (s *GPUSession) runBrightPass(f *frameState) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, s.bright.fbo)
	gl.Viewport(0, 0, int32(s.bright.width), int32(s.bright.height))
	gl.Disable(gl.BLEND)
	gl.ClearColor(0, 0, 0, 0)
	gl.Clear(gl.COLOR_BUFFER_BIT)

	gl.UseProgram(s.brightProg)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, s.mask.tex)
	gl.Uniform1i(s.brightMask, 0)
	gl.Uniform1f(s.brightThr, float32(f.params.BloomThreshold))

	s.drawQuad()
}

// runBloomBlur runs the separable Gaussian: horizontal into bloomB, vertical
// into bloomA. The tight bloom ends up in bloomA.
func (s *GPUSession) runBloomBlur(f *frameState) {
	radius := float32(f.params.BloomRadius)
	s.blurInto(s.blurProg, s.blurU, s.bright.tex, s.bloomB, 1, 0, radius)
	s.blurInto(s.blurProg, s.blurU, s.bloomB.tex, s.bloomA, 0, 1, radius)
	f.bloomDone = true
}

// runGlowBlur runs the wider exponential-decay blur from the same bloom
// source, ending in glowA.
func (s *GPUSession) runGlowBlur(f *frameState) {
	radius := float32(f.params.GlowRadius)
	s.blurInto(s.glowProg, s.glowU, s.bright.tex, s.glowB, 1, 0, radius)
	s.blurInto(s.glowProg, s.glowU, s.glowB.tex, s.glowA, 0, 1, radius)
	f.glowDone = true
}

func (s *GPUSession) blurInto(prog uint32, u blurUniforms, srcTex uint32, dst renderTarget, dirX, dirY float32, radius float32) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, dst.fbo)
	gl.Viewport(0, 0, int32(dst.width), int32(dst.height))
	gl.Disable(gl.BLEND)
	gl.ClearColor(0, 0, 0, 0)
	gl.Clear(gl.COLOR_BUFFER_BIT)

	gl.UseProgram(prog)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, srcTex)
	gl.Uniform1i(u.sourceTexture, 0)
	gl.Uniform2f(u.direction, dirX, dirY)
	gl.Uniform2f(u.resolution, float32(dst.width), float32(dst.height))
	gl.Uniform1f(u.radius, radius)

	s.drawQuad()
}

// runCompositePass writes the final overlay to the canvas: barrel-distorted
// sampling, blend-mode combination of mask, bloom and glow, gamma shaping,
// straight-alpha output.
func (s *GPUSession) runCompositePass(f *frameState) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(f.outW), int32(f.outH))
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	p := f.params
	gl.UseProgram(s.compositeProg)

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, s.mask.tex)
	gl.Uniform1i(s.compositeU.maskTexture, 0)
	gl.ActiveTexture(gl.TEXTURE1)
	gl.BindTexture(gl.TEXTURE_2D, s.bloomA.tex)
	gl.Uniform1i(s.compositeU.bloomTexture, 1)
	gl.ActiveTexture(gl.TEXTURE2)
	gl.BindTexture(gl.TEXTURE_2D, s.glowA.tex)
	gl.Uniform1i(s.compositeU.glowTexture, 2)

	bloom := p.BloomIntensity
	if !f.bloomDone {
		bloom = 0
	}
	glow := p.GlowIntensity
	if !f.glowDone {
		glow = 0
	}
	gl.Uniform1f(s.compositeU.bloomIntensity, float32(bloom))
	gl.Uniform1f(s.compositeU.glowIntensity, float32(glow))
	gl.Uniform1i(s.compositeU.blendMode, int32(p.Blend))
	gl.Uniform1f(s.compositeU.gammaOut, float32(p.Gamma))
	gl.Uniform1f(s.compositeU.distortion, float32(p.Distortion))

	s.drawQuad()
	gl.ActiveTexture(gl.TEXTURE0)
}

func (s *GPUSession) drawQuad() {
	gl.BindVertexArray(s.quadVAO)
	gl.DrawArrays(gl.TRIANGLE_FAN, 0, 4)
	gl.BindVertexArray(0)
}
