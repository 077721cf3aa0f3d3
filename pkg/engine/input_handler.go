package engine

import (
	"github.com/go-gl/glfw/v3.3/glfw"
)

type dragMode int

const (
	dragNone dragMode = iota
	dragContent
	dragThumb
)

// InputHandler translates raw GLFW events into scroll-engine operations.
// Handlers do O(1) work: they deposit deltas and return; all recomputation
// happens in the frame tick. Native scrolling does not exist here at all.
type InputHandler struct {
	window *glfw.Window
	scroll *ScrollEngine

	onToggleOverlay func()
	onQuit          func()

	mode        dragMode
	lastCursorY float64

	// window-coordinate geometry refreshed by the engine every frame
	winWidth  float64
	winHeight float64
}

// NewInputHandler wires the callbacks on the window.
func NewInputHandler(window *glfw.Window, scroll *ScrollEngine, onToggleOverlay, onQuit func()) *InputHandler {
	h := &InputHandler{
		window:          window,
		scroll:          scroll,
		onToggleOverlay: onToggleOverlay,
		onQuit:          onQuit,
	}

	window.SetScrollCallback(func(_ *glfw.Window, _, yoffset float64) {
		// GLFW reports scroll-up as positive; scrolling down grows the offset.
		h.scroll.OnWheel(-yoffset)
	})

	window.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action != glfw.Press && action != glfw.Repeat {
			return
		}
		switch key {
		case glfw.KeyUp:
			h.scroll.OnKey(ScrollKeyUp)
		case glfw.KeyDown:
			h.scroll.OnKey(ScrollKeyDown)
		case glfw.KeyPageUp:
			h.scroll.OnKey(ScrollKeyPageUp)
		case glfw.KeyPageDown:
			h.scroll.OnKey(ScrollKeyPageDown)
		case glfw.KeyHome:
			h.scroll.OnKey(ScrollKeyHome)
		case glfw.KeyEnd:
			h.scroll.OnKey(ScrollKeyEnd)
		case glfw.KeyF1:
			if action == glfw.Press && h.onToggleOverlay != nil {
				h.onToggleOverlay()
			}
		case glfw.KeyEscape:
			if h.onQuit != nil {
				h.onQuit()
			}
		}
	})

	window.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft {
			return
		}
		if action == glfw.Release {
			h.mode = dragNone
			return
		}

		x, y := h.window.GetCursorPos()
		h.lastCursorY = y

		if h.winWidth > 0 && x >= h.winWidth-scrollbarWidthPx {
			bar := h.scroll.Scrollbar()
			frac := y / h.winHeight
			top := bar.ThumbStart
			bottom := bar.ThumbStart + bar.ThumbSize
			if frac >= top && frac <= bottom {
				h.mode = dragThumb
			} else {
				h.scroll.JumpTo(frac)
			}
			return
		}

		h.mode = dragContent
	})

	window.SetCursorPosCallback(func(_ *glfw.Window, _, y float64) {
		delta := y - h.lastCursorY
		switch h.mode {
		case dragContent:
			h.scroll.OnTouchDrag(delta)
		case dragThumb:
			if h.winHeight > 0 {
				h.scroll.DragThumb(delta / h.winHeight)
			}
		default:
			return
		}
		h.lastCursorY = y
	})

	return h
}

// UpdateGeometry refreshes the window-coordinate size used for scrollbar hit
// testing. Called by the engine when the window size changes.
func (h *InputHandler) UpdateGeometry(width, height float64) {
	h.winWidth = width
	h.winHeight = height
}
