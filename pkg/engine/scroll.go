package engine

import (
	"math"
	"sync"
	"time"

	"phosphor/internal/util"
)

// ScrollState is the authoritative scroll position of the content region.
// Native scrolling is disabled on the region; this state is the only truth.
type ScrollState struct {
	Offset         float64
	ContentHeight  float64
	ViewportHeight float64
}

// MaxScroll returns the largest valid offset.
func (s ScrollState) MaxScroll() float64 {
	m := s.ContentHeight - s.ViewportHeight
	if m < 0 {
		return 0
	}
	return m
}

// ScrollKey identifies a keyboard scroll command.
type ScrollKey int

const (
	ScrollKeyUp ScrollKey = iota
	ScrollKeyDown
	ScrollKeyPageUp
	ScrollKeyPageDown
	ScrollKeyHome
	ScrollKeyEnd
)

// SyncPolicy abstracts the host-compositor workaround: some compositors
// cache a filter result as a static texture across scroll updates, so the
// warp parameters must be forcibly re-sent on every scroll. Core logic only
// asks the policy; it never sniffs the host.
type SyncPolicy interface {
	InvalidateOnScroll() bool
}

// NoInvalidation is the default policy for well-behaved compositors.
type NoInvalidation struct{}

func (NoInvalidation) InvalidateOnScroll() bool { return false }

// ForceFilterInvalidation bumps the warp generation on every applied scroll
// update, forcing the filter identity to change.
type ForceFilterInvalidation struct{}

func (ForceFilterInvalidation) InvalidateOnScroll() bool { return true }

// ScrollbarMetrics describes the emulated scrollbar, in track fractions.
type ScrollbarMetrics struct {
	// ThumbStart is the top of the thumb as a fraction of the track [0,1].
	ThumbStart float64
	// ThumbSize is the thumb length as a fraction of the track, floored at
	// the configured minimum so it stays grabbable on very tall content.
	ThumbSize float64
}

// ScrollEngine owns the ScrollState for one scrollable region. Input
// handlers deposit deltas in O(1); the accumulated delta is applied at a
// capped rate inside the frame tick, and every consumer of the offset reads
// the same just-applied snapshot within that tick.
type ScrollEngine struct {
	mu    sync.Mutex
	state ScrollState

	pendingDelta  float64
	pendingTarget float64
	hasTarget     bool

	minInterval time.Duration
	lastApply   time.Time

	wheelStep float64
	lineStep  float64
	minThumb  float64

	policy         SyncPolicy
	warpGeneration uint64

	renderRequested bool
}

// ScrollOptions configures a ScrollEngine.
type ScrollOptions struct {
	WheelStep        float64
	LineStep         float64
	UpdateRate       int // max applied updates per second; <= 0 means uncapped
	MinThumbFraction float64
	Policy           SyncPolicy
}

// NewScrollEngine creates the engine for one scrollable region.
func NewScrollEngine(opts ScrollOptions) *ScrollEngine {
	if opts.WheelStep <= 0 {
		opts.WheelStep = 48
	}
	if opts.LineStep <= 0 {
		opts.LineStep = 24
	}
	if opts.Policy == nil {
		opts.Policy = NoInvalidation{}
	}
	minThumb := util.Clamp(opts.MinThumbFraction, 0.02, 0.9)

	var interval time.Duration
	if opts.UpdateRate > 0 {
		interval = time.Second / time.Duration(opts.UpdateRate)
	}

	return &ScrollEngine{
		minInterval: interval,
		wheelStep:   opts.WheelStep,
		lineStep:    opts.LineStep,
		minThumb:    minThumb,
		policy:      opts.Policy,
	}
}

// OnWheel records a wheel movement. Positive notches scroll down. O(1):
// the delta is coalesced and applied on the next allowed tick.
func (e *ScrollEngine) OnWheel(notches float64) {
	e.mu.Lock()
	e.pendingDelta += notches * e.wheelStep
	e.mu.Unlock()
}

// OnTouchDrag records a direct drag of the content in pixels. Dragging the
// content down (positive delta) scrolls up, matching touch conventions.
func (e *ScrollEngine) OnTouchDrag(deltaPixels float64) {
	e.mu.Lock()
	e.pendingDelta -= deltaPixels
	e.mu.Unlock()
}

// OnKey records a keyboard scroll command.
func (e *ScrollEngine) OnKey(key ScrollKey) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch key {
	case ScrollKeyUp:
		e.pendingDelta -= e.lineStep
	case ScrollKeyDown:
		e.pendingDelta += e.lineStep
	case ScrollKeyPageUp:
		e.pendingDelta -= e.state.ViewportHeight * 0.9
	case ScrollKeyPageDown:
		e.pendingDelta += e.state.ViewportHeight * 0.9
	case ScrollKeyHome:
		e.pendingTarget = 0
		e.hasTarget = true
		e.pendingDelta = 0
	case ScrollKeyEnd:
		e.pendingTarget = e.state.MaxScroll()
		e.hasTarget = true
		e.pendingDelta = 0
	}
}

// ScrollTo jumps to an absolute offset immediately (programmatic scrolling,
// e.g. jump to bottom on a new message). The offset is clamped, never rejected.
func (e *ScrollEngine) ScrollTo(offset float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.applyLocked(offset)
}

// SetContentHeight refreshes the observed content height and re-clamps the
// offset at once, so shrinking content can never leave the view past the end.
func (e *ScrollEngine) SetContentHeight(h float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if h < 0 {
		h = 0
	}
	if h == e.state.ContentHeight {
		return
	}
	e.state.ContentHeight = h
	e.applyLocked(e.state.Offset)
}

// SetViewportHeight refreshes the observed viewport height and re-clamps.
func (e *ScrollEngine) SetViewportHeight(h float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if h < 0 {
		h = 0
	}
	if h == e.state.ViewportHeight {
		return
	}
	e.state.ViewportHeight = h
	e.applyLocked(e.state.Offset)
}

// Flush applies the coalesced input at the start of a frame tick, honoring
// the update-rate cap. It reports whether the state changed.
func (e *ScrollEngine) Flush(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pendingDelta == 0 && !e.hasTarget {
		return false
	}
	if e.minInterval > 0 && now.Sub(e.lastApply) < e.minInterval {
		// Too soon; keep coalescing into the next allowed tick.
		return false
	}

	target := e.state.Offset + e.pendingDelta
	if e.hasTarget {
		target = e.pendingTarget + e.pendingDelta
	}
	e.pendingDelta = 0
	e.hasTarget = false
	e.lastApply = now

	return e.applyLocked(target)
}

// applyLocked clamps and stores a candidate offset. Returns true when the
// offset actually changed; only then is a render requested and, under the
// invalidation policy, the warp generation bumped.
func (e *ScrollEngine) applyLocked(candidate float64) bool {
	// NaN is rejected outright; infinities clamp to the nearest end, so
	// ScrollTo(+Inf) is the idiom for "jump to bottom".
	if math.IsNaN(candidate) {
		candidate = 0
	}
	clamped := util.Clamp(candidate, 0, e.state.MaxScroll())
	if clamped == e.state.Offset {
		return false
	}
	e.state.Offset = clamped
	e.renderRequested = true
	if e.policy.InvalidateOnScroll() {
		e.warpGeneration++
	}
	return true
}

// Snapshot returns the coherent state for this tick. The content transform
// and the scrollbar must both be fed from one snapshot; neither may take an
// independent second read.
func (e *ScrollEngine) Snapshot() ScrollState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// View returns the read-only tuple exposed to the host UI.
func (e *ScrollEngine) View() (offset, contentHeight float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Offset, e.state.ContentHeight
}

// WarpGeneration returns the filter-identity counter. Renderers re-send the
// warp parameters whenever it changes.
func (e *ScrollEngine) WarpGeneration() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.warpGeneration
}

// TakeRenderRequest consumes the pending render flag.
func (e *ScrollEngine) TakeRenderRequest() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.renderRequested
	e.renderRequested = false
	return r
}

// Scrollbar computes the emulated scrollbar metrics from the current state.
func (e *ScrollEngine) Scrollbar() ScrollbarMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scrollbarLocked()
}

func (e *ScrollEngine) scrollbarLocked() ScrollbarMetrics {
	return ComputeScrollbar(e.state, e.minThumb)
}

// ComputeScrollbar derives the scrollbar metrics from a state snapshot; the
// frame tick calls it with the same snapshot the content transform and warp
// node consume, so all three agree within the tick.
func ComputeScrollbar(s ScrollState, minThumb float64) ScrollbarMetrics {
	if s.ContentHeight <= 0 || s.ViewportHeight <= 0 || s.ContentHeight <= s.ViewportHeight {
		return ScrollbarMetrics{ThumbStart: 0, ThumbSize: 1}
	}

	size := util.Clamp(s.ViewportHeight/s.ContentHeight, minThumb, 1)
	maxScroll := s.MaxScroll()
	start := 0.0
	if maxScroll > 0 {
		start = s.Offset / maxScroll * (1 - size)
	}
	return ScrollbarMetrics{ThumbStart: start, ThumbSize: size}
}

// MinThumbFraction exposes the configured thumb floor.
func (e *ScrollEngine) MinThumbFraction() float64 {
	return e.minThumb
}

// JumpTo handles a click on the emulated track: frac is the click position
// as a fraction of the track. The thumb centers on the click point.
func (e *ScrollEngine) JumpTo(frac float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m := e.scrollbarLocked()
	if m.ThumbSize >= 1 {
		return
	}
	start := util.Clamp(frac-m.ThumbSize/2, 0, 1-m.ThumbSize)
	e.applyLocked(start / (1 - m.ThumbSize) * e.state.MaxScroll())
}

// DragThumb handles a drag of the thumb by a fraction of the track.
func (e *ScrollEngine) DragThumb(deltaFrac float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m := e.scrollbarLocked()
	if m.ThumbSize >= 1 {
		return
	}
	e.applyLocked(e.state.Offset + deltaFrac/(1-m.ThumbSize)*e.state.MaxScroll())
}
