package engine

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"
)

// resourceLedger tracks GPU allocations so teardown can prove it released
// everything. Releases run in reverse allocation order.
type resourceLedger struct {
	mu      sync.Mutex
	entries []ledgerEntry
}

type ledgerEntry struct {
	name    string
	release func()
}

func (l *resourceLedger) track(name string, release func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, ledgerEntry{name: name, release: release})
}

func (l *resourceLedger) releaseAll() {
	l.mu.Lock()
	entries := l.entries
	l.entries = nil
	l.mu.Unlock()

	for i := len(entries) - 1; i >= 0; i-- {
		entries[i].release()
	}
}

func (l *resourceLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// renderTarget is a texture plus the framebuffer that renders into it.
type renderTarget struct {
	tex    uint32
	fbo    uint32
	width  int
	height int
	ok     bool
}

// maskUniforms caches the mask program's uniform locations.
type maskUniforms struct {
	resolution, time, intensity, maskKind          int32
	dotPitch, dotScale, dotFalloff, brightness     int32
	convergenceRed, convergenceBlue, convergenceSt int32
	scanlineStrength, animate, glitchAmount        int32
}

type compositeUniforms struct {
	maskTexture, bloomTexture, glowTexture int32
	bloomIntensity, glowIntensity          int32
	blendMode, gammaOut, distortion        int32
}

type blurUniforms struct {
	sourceTexture, direction, resolution, radius int32
}

// GPUSession owns the overlay pipeline's GPU resource set: programs, the
// full-screen quad, and the offscreen render targets. It is created when the
// overlay is enabled, resized with the canvas, and fully released on disable
// so no allocation survives a remount.
type GPUSession struct {
	log    *zap.Logger
	width  int
	height int

	// static resources survive resizes
	static resourceLedger
	// sized resources are recreated whenever the canvas pixel size changes
	sized resourceLedger

	maskProg      uint32
	brightProg    uint32
	blurProg      uint32
	glowProg      uint32
	compositeProg uint32

	maskU      maskUniforms
	compositeU compositeUniforms
	blurU      blurUniforms
	glowU      blurUniforms
	brightMask int32
	brightThr  int32

	quadVAO uint32
	quadVBO uint32

	mask   renderTarget
	bright renderTarget
	bloomA renderTarget
	bloomB renderTarget
	glowA  renderTarget
	glowB  renderTarget
}

// NewGPUSession compiles the overlay programs and allocates targets for the
// given canvas pixel size. A compile or link failure is fatal for the
// overlay: the caller disables it rather than retrying per frame.
func NewGPUSession(log *zap.Logger, width, height int) (*GPUSession, error) {
	s := &GPUSession{log: log}

	var err error
	if s.maskProg, err = createShaderProgram(quadVertexShaderSource, maskFragmentShaderSource); err != nil {
		return nil, fmt.Errorf("mask program: %w", err)
	}
	s.static.track("maskProg", func() { gl.DeleteProgram(s.maskProg) })

	if s.brightProg, err = createShaderProgram(quadVertexShaderSource, brightFragmentShaderSource); err != nil {
		s.Release()
		return nil, fmt.Errorf("bright program: %w", err)
	}
	s.static.track("brightProg", func() { gl.DeleteProgram(s.brightProg) })

	if s.blurProg, err = createShaderProgram(quadVertexShaderSource, blurFragmentShaderSource); err != nil {
		s.Release()
		return nil, fmt.Errorf("blur program: %w", err)
	}
	s.static.track("blurProg", func() { gl.DeleteProgram(s.blurProg) })

	if s.glowProg, err = createShaderProgram(quadVertexShaderSource, glowFragmentShaderSource); err != nil {
		s.Release()
		return nil, fmt.Errorf("glow program: %w", err)
	}
	s.static.track("glowProg", func() { gl.DeleteProgram(s.glowProg) })

	if s.compositeProg, err = createShaderProgram(quadVertexShaderSource, compositeFragmentShaderSource); err != nil {
		s.Release()
		return nil, fmt.Errorf("composite program: %w", err)
	}
	s.static.track("compositeProg", func() { gl.DeleteProgram(s.compositeProg) })

	s.cacheUniformLocations()
	s.setupScreenQuad()
	s.allocateTargets(width, height)

	return s, nil
}

func (s *GPUSession) cacheUniformLocations() {
	s.maskU = maskUniforms{
		resolution:       uniform(s.maskProg, "resolution"),
		time:             uniform(s.maskProg, "time"),
		intensity:        uniform(s.maskProg, "intensity"),
		maskKind:         uniform(s.maskProg, "maskKind"),
		dotPitch:         uniform(s.maskProg, "dotPitch"),
		dotScale:         uniform(s.maskProg, "dotScale"),
		dotFalloff:       uniform(s.maskProg, "dotFalloff"),
		brightness:       uniform(s.maskProg, "brightness"),
		convergenceRed:   uniform(s.maskProg, "convergenceRed"),
		convergenceBlue:  uniform(s.maskProg, "convergenceBlue"),
		convergenceSt:    uniform(s.maskProg, "convergenceStrength"),
		scanlineStrength: uniform(s.maskProg, "scanlineStrength"),
		animate:          uniform(s.maskProg, "animate"),
		glitchAmount:     uniform(s.maskProg, "glitchAmount"),
	}
	s.compositeU = compositeUniforms{
		maskTexture:    uniform(s.compositeProg, "maskTexture"),
		bloomTexture:   uniform(s.compositeProg, "bloomTexture"),
		glowTexture:    uniform(s.compositeProg, "glowTexture"),
		bloomIntensity: uniform(s.compositeProg, "bloomIntensity"),
		glowIntensity:  uniform(s.compositeProg, "glowIntensity"),
		blendMode:      uniform(s.compositeProg, "blendMode"),
		gammaOut:       uniform(s.compositeProg, "gammaOut"),
		distortion:     uniform(s.compositeProg, "distortion"),
	}
	s.blurU = blurUniforms{
		sourceTexture: uniform(s.blurProg, "sourceTexture"),
		direction:     uniform(s.blurProg, "direction"),
		resolution:    uniform(s.blurProg, "resolution"),
		radius:        uniform(s.blurProg, "radius"),
	}
	s.glowU = blurUniforms{
		sourceTexture: uniform(s.glowProg, "sourceTexture"),
		direction:     uniform(s.glowProg, "direction"),
		resolution:    uniform(s.glowProg, "resolution"),
		radius:        uniform(s.glowProg, "radius"),
	}
	s.brightMask = uniform(s.brightProg, "maskTexture")
	s.brightThr = uniform(s.brightProg, "threshold")
}

// setupScreenQuad creates the full-screen quad shared by every pass.
func (s *GPUSession) setupScreenQuad() {
	vertices := []float32{
		// Positions   // Texture coords
		-1.0, -1.0, 0.0, 0.0, 0.0,
		1.0, -1.0, 0.0, 1.0, 0.0,
		1.0, 1.0, 0.0, 1.0, 1.0,
		-1.0, 1.0, 0.0, 0.0, 1.0,
	}

	gl.GenVertexArrays(1, &s.quadVAO)
	gl.GenBuffers(1, &s.quadVBO)
	gl.BindVertexArray(s.quadVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, s.quadVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STATIC_DRAW)

	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 5*4, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(1, 2, gl.FLOAT, false, 5*4, gl.PtrOffset(3*4))
	gl.EnableVertexAttribArray(1)

	gl.BindVertexArray(0)

	s.static.track("quad", func() {
		gl.DeleteVertexArrays(1, &s.quadVAO)
		gl.DeleteBuffers(1, &s.quadVBO)
	})
}

// allocateTargets creates the offscreen buffers for the current canvas size.
// The mask target renders at full resolution; bloom and glow run at half
// resolution to bound cost. An allocation failure only degrades: the flags on
// the failed target make the pipeline skip the dependent passes.
func (s *GPUSession) allocateTargets(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	s.width = width
	s.height = height

	halfW := width / 2
	halfH := height / 2
	if halfW < 1 {
		halfW = 1
	}
	if halfH < 1 {
		halfH = 1
	}

	s.mask = s.newRenderTarget("mask", width, height)
	s.bright = s.newRenderTarget("bright", halfW, halfH)
	s.bloomA = s.newRenderTarget("bloomA", halfW, halfH)
	s.bloomB = s.newRenderTarget("bloomB", halfW, halfH)
	s.glowA = s.newRenderTarget("glowA", halfW, halfH)
	s.glowB = s.newRenderTarget("glowB", halfW, halfH)
}

func (s *GPUSession) newRenderTarget(name string, width, height int) renderTarget {
	t := renderTarget{width: width, height: height}

	gl.GenTextures(1, &t.tex)
	gl.BindTexture(gl.TEXTURE_2D, t.tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	gl.GenFramebuffers(1, &t.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.tex, 0)

	t.ok = gl.CheckFramebufferStatus(gl.FRAMEBUFFER) == gl.FRAMEBUFFER_COMPLETE
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	tex, fbo := t.tex, t.fbo
	s.sized.track(name, func() {
		gl.DeleteFramebuffers(1, &fbo)
		gl.DeleteTextures(1, &tex)
	})

	if !t.ok {
		s.log.Warn("render target incomplete, dependent passes will be skipped",
			zap.String("target", name), zap.Int("width", width), zap.Int("height", height))
	}

	return t
}

// Resize recreates the sized resources when the canvas pixel size changed.
// Old targets are destroyed before new ones are allocated, ahead of the next
// frame's render.
func (s *GPUSession) Resize(width, height int) {
	if width == s.width && height == s.height {
		return
	}
	s.sized.releaseAll()
	s.allocateTargets(width, height)
}

// Release frees every GPU resource the session owns. Safe to call more than
// once; after release the session must not render again.
func (s *GPUSession) Release() {
	s.sized.releaseAll()
	s.static.releaseAll()
}

// ResourceCount reports currently tracked allocations, for leak checks.
func (s *GPUSession) ResourceCount() int {
	return s.static.count() + s.sized.count()
}

// uniform fetches a uniform location with the trailing NUL the GL API wants.
func uniform(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

// createShaderProgram compiles and links a shader program from source
func createShaderProgram(vertexSource, fragmentSource string) (uint32, error) {
	vertexShader, err := compileShader(vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}

	fragmentShader, err := compileShader(fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vertexShader)
		return 0, err
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))

		gl.DeleteProgram(program)
		gl.DeleteShader(vertexShader)
		gl.DeleteShader(fragmentShader)

		return 0, fmt.Errorf("shader program linking failed: %v", log)
	}

	gl.DetachShader(program, vertexShader)
	gl.DetachShader(program, fragmentShader)
	gl.DeleteShader(vertexShader)
	gl.DeleteShader(fragmentShader)

	return program, nil
}

// compileShader compiles a shader from source
func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)

	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))

		gl.DeleteShader(shader)

		return 0, fmt.Errorf("shader compilation failed: %v", log)
	}

	return shader, nil
}
