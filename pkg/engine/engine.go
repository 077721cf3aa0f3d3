package engine

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/zap"

	"phosphor/internal/util"
	"phosphor/pkg/config"
)

// warpFieldSize is the displacement raster resolution. One field serves all
// canvas sizes; the warp tile stretches it over the viewport plus margin.
const warpFieldSize = 256

// Engine is the render loop driver. It owns the window, the GPU session
// lifecycle, the scroll engine and the content renderer, and runs one
// cooperative frame loop on the main thread.
type Engine struct {
	window *glfw.Window
	log    *zap.Logger

	paramsMu sync.Mutex
	params   RenderParameters

	scroll  *ScrollEngine
	input   *InputHandler
	content *ContentRenderer
	session *GPUSession
	audio   *AudioEngine
	field   *DisplacementField

	// overlayBroken is set when the GPU context cannot run the pipeline at
	// all; the overlay stays off instead of failing every frame.
	overlayBroken bool

	glitchMu       sync.Mutex
	glitchAmount   float64
	glitchDuration float64
	glitchStart    time.Time

	lastWarpGen uint64

	canvasW int
	canvasH int

	isRunning  bool
	startTime  time.Time
	lastUpdate time.Time
}

// NewEngine creates the window, the GL context and all components.
func NewEngine(cfg *config.Config, log *zap.Logger) (*Engine, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(cfg.Display.Width, cfg.Display.Height, cfg.Display.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create GLFW window: %w", err)
	}
	window.MakeContextCurrent()
	if cfg.Display.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	var policy SyncPolicy = NoInvalidation{}
	if cfg.Scroll.ForceFilterInvalidation {
		policy = ForceFilterInvalidation{}
	}

	e := &Engine{
		window: window,
		log:    log,
		params: ParamsFromConfig(cfg.Overlay, cfg.Display),
		scroll: NewScrollEngine(ScrollOptions{
			WheelStep:        cfg.Scroll.WheelStep,
			LineStep:         cfg.Scroll.LineStep,
			UpdateRate:       cfg.Scroll.UpdateRate,
			MinThumbFraction: cfg.Scroll.MinThumbFraction,
			Policy:           policy,
		}),
		field:     NewDisplacementField(warpFieldSize),
		startTime: time.Now(),
	}

	e.canvasW, e.canvasH = e.computeCanvasSize()

	e.content, err = NewContentRenderer(log, cfg.Content, e.canvasW, e.canvasH)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to initialize content renderer: %w", err)
	}
	e.content.UploadWarpField(e.field)

	e.scroll.SetViewportHeight(float64(e.canvasH))
	e.scroll.SetContentHeight(e.content.ContentHeight())

	if e.params.Enabled {
		if err := e.enableOverlay(); err != nil {
			log.Error("overlay disabled: unsupported GPU context", zap.Error(err))
		}
	}

	e.audio = NewAudioEngine(cfg.Audio, log)
	e.input = NewInputHandler(window, e.scroll,
		e.ToggleOverlay,
		func() { window.SetShouldClose(true) },
	)

	return e, nil
}

// SetParameters replaces the tunables. The UI (or the config watcher) writes
// here; the frame loop reads a sanitized snapshot each tick, last write wins.
func (e *Engine) SetParameters(p RenderParameters) {
	e.paramsMu.Lock()
	e.params = p
	e.paramsMu.Unlock()
}

// ApplyConfig reapplies a freshly loaded configuration at runtime.
func (e *Engine) ApplyConfig(cfg *config.Config) {
	e.SetParameters(ParamsFromConfig(cfg.Overlay, cfg.Display))
}

func (e *Engine) snapshotParams() RenderParameters {
	e.paramsMu.Lock()
	defer e.paramsMu.Unlock()
	return e.params
}

// ApplyGlitchEffect triggers a time-bounded glitch burst in the mask pass.
func (e *Engine) ApplyGlitchEffect(amount, duration float64) {
	e.glitchMu.Lock()
	defer e.glitchMu.Unlock()
	e.glitchAmount = util.Clamp(amount, 0, 1)
	e.glitchDuration = duration
	e.glitchStart = time.Now()
}

func (e *Engine) currentGlitch(now time.Time) float64 {
	e.glitchMu.Lock()
	defer e.glitchMu.Unlock()
	if e.glitchDuration <= 0 {
		return 0
	}
	elapsed := now.Sub(e.glitchStart).Seconds()
	if elapsed >= e.glitchDuration {
		e.glitchAmount = 0
		e.glitchDuration = 0
		return 0
	}
	return e.glitchAmount * (1 - elapsed/e.glitchDuration)
}

// AppendMessage adds a line to the terminal feed. When the view already sits
// at the bottom it follows the new content.
func (e *Engine) AppendMessage(s string) {
	snap := e.scroll.Snapshot()
	atBottom := snap.Offset >= snap.MaxScroll()-float64(e.content.lineHeight)

	h := e.content.AppendLine(s)
	e.scroll.SetContentHeight(h)
	if atBottom {
		e.scroll.ScrollTo(math.Inf(1)) // clamped to the new max
	}
}

// ScrollView exposes the read-only scroll tuple to the host UI.
func (e *Engine) ScrollView() (offset, contentHeight float64) {
	return e.scroll.View()
}

// ScrollTo is the programmatic scroll entry point.
func (e *Engine) ScrollTo(offset float64) {
	e.scroll.ScrollTo(offset)
}

// ToggleOverlay flips the overlay at runtime. Disabling releases the GPU
// session in the same tick; re-enabling builds a fresh one.
func (e *Engine) ToggleOverlay() {
	p := e.snapshotParams()
	p.Enabled = !p.Enabled
	e.SetParameters(p)

	if !p.Enabled {
		e.disableOverlay()
		return
	}
	if err := e.enableOverlay(); err != nil {
		e.log.Error("overlay enable failed", zap.Error(err))
	}
}

func (e *Engine) enableOverlay() error {
	if e.session != nil || e.overlayBroken {
		return nil
	}
	s, err := NewGPUSession(e.log, e.canvasW, e.canvasH)
	if err != nil {
		e.overlayBroken = true
		return err
	}
	e.session = s
	return nil
}

func (e *Engine) disableOverlay() {
	if e.session == nil {
		return
	}
	e.session.Release()
	e.session = nil
}

// computeCanvasSize derives the render resolution: window size times the
// device pixel ratio, with the ratio capped by the configured limit.
func (e *Engine) computeCanvasSize() (int, int) {
	winW, winH := e.window.GetSize()
	fbW, _ := e.window.GetFramebufferSize()
	if winW < 1 {
		winW = 1
	}
	if winH < 1 {
		winH = 1
	}

	dpr := float64(fbW) / float64(winW)
	if dpr <= 0 {
		dpr = 1
	}
	cap := e.snapshotParams().Sanitized().PixelRatioCap
	if dpr > cap {
		dpr = cap
	}

	w := int(float64(winW) * dpr)
	h := int(float64(winH) * dpr)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// Run starts the frame loop and blocks until the window closes.
func (e *Engine) Run() {
	e.isRunning = true
	e.lastUpdate = time.Now()

	for e.isRunning && !e.window.ShouldClose() {
		currentTime := time.Now()
		e.lastUpdate = currentTime

		glfw.PollEvents()
		e.tick(currentTime)
		e.window.SwapBuffers()

		// Cap the frame rate
		frameRate := e.snapshotParams().Sanitized().FrameRate
		if frameRate > 0 {
			frameTime := time.Since(currentTime)
			targetFrameTime := time.Second / time.Duration(frameRate)
			if frameTime < targetFrameTime {
				time.Sleep(targetFrameTime - frameTime)
			}
		}
	}

	e.cleanup()
}

// Stop requests loop shutdown from the outside.
func (e *Engine) Stop() {
	e.isRunning = false
}

// tick renders one frame. The scroll state is flushed and snapshotted once;
// the content transform and the scrollbar both consume that same snapshot so
// they can never be a frame apart.
func (e *Engine) tick(now time.Time) {
	// Layout first: resize regenerates GPU targets before any pass runs.
	w, h := e.computeCanvasSize()
	if w != e.canvasW || h != e.canvasH {
		e.canvasW, e.canvasH = w, h
		e.content.Resize(w, h)
		if e.session != nil {
			e.session.Resize(w, h)
		}
		e.scroll.SetViewportHeight(float64(h))
		e.scroll.SetContentHeight(e.content.ContentHeight())
	}
	winW, winH := e.window.GetSize()
	e.input.UpdateGeometry(float64(winW), float64(winH))

	e.scroll.Flush(now)
	e.scroll.TakeRenderRequest() // the loop renders unconditionally

	params := e.snapshotParams().Sanitized()
	scrollSnap := e.scroll.Snapshot()

	overlayOn := params.Enabled && e.session != nil
	if overlayOn {
		e.audio.SetIntensity(params.Intensity)
	} else {
		e.audio.SetIntensity(0)
	}

	// Forced filter-identity invalidation: re-send the warp lookup when the
	// policy bumped the generation on scroll.
	if gen := e.scroll.WarpGeneration(); gen != e.lastWarpGen {
		e.content.UploadWarpField(e.field)
		e.lastWarpGen = gen
	}

	e.content.EnsureContent()

	fbW, fbH := e.window.GetFramebufferSize()
	f := &frameState{
		params: params,
		scroll: scrollSnap,
		time:   now.Sub(e.startTime).Seconds(),
		glitch: e.currentGlitch(now),
		width:  e.canvasW,
		height: e.canvasH,
		outW:   fbW,
		outH:   fbH,
	}

	warpScale := 0.0
	if overlayOn {
		warpScale = params.WarpScale
	}
	warp := WarpNode{
		Field:          e.field,
		Scale:          warpScale,
		ViewportWidth:  float64(e.canvasW),
		ViewportHeight: float64(e.canvasH),
	}.Transform()

	e.content.Present(f, warp, ComputeScrollbar(scrollSnap, e.scroll.MinThumbFraction()))

	if overlayOn {
		e.session.RenderOverlay(f)
	}
}

// cleanup tears everything down: overlay session, content resources, audio,
// window. Nothing GPU-side survives this call.
func (e *Engine) cleanup() {
	e.log.Info("shutting down engine")
	e.disableOverlay()
	e.content.Release()
	e.audio.Shutdown()
	glfw.Terminate()
}
