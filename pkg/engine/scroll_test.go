package engine

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestScroll returns an uncapped engine whose wheel step is 1, so wheel
// notches map directly to pixels in the assertions.
func newTestScroll(viewport, content float64) *ScrollEngine {
	e := NewScrollEngine(ScrollOptions{WheelStep: 1, LineStep: 24, UpdateRate: 0, MinThumbFraction: 0.1})
	e.SetViewportHeight(viewport)
	e.SetContentHeight(content)
	return e
}

func TestScrollWheelEndToEnd(t *testing.T) {
	e := newTestScroll(800, 2000)
	now := time.Now()

	e.OnWheel(100)
	assert.True(t, e.Flush(now))
	offset, _ := e.View()
	assert.Equal(t, 100.0, offset)

	// Overshoot lands exactly on the max scroll, never past it.
	e.OnWheel(5000)
	assert.True(t, e.Flush(now.Add(time.Second)))
	offset, _ = e.View()
	assert.Equal(t, 1200.0, offset)

	// Scrolling up past the top pins to zero.
	e.OnWheel(-99999)
	assert.True(t, e.Flush(now.Add(2*time.Second)))
	offset, _ = e.View()
	assert.Equal(t, 0.0, offset)
}

func TestScrollOvershootSequenceStaysClamped(t *testing.T) {
	e := newTestScroll(800, 2000)
	now := time.Now()

	for i := 0; i < 50; i++ {
		e.OnWheel(1000)
		e.Flush(now.Add(time.Duration(i) * time.Millisecond))

		s := e.Snapshot()
		require.GreaterOrEqual(t, s.Offset, 0.0)
		require.LessOrEqual(t, s.Offset, s.MaxScroll())
	}
	for i := 0; i < 50; i++ {
		e.OnWheel(-1000)
		e.Flush(now.Add(time.Duration(100+i) * time.Millisecond))

		s := e.Snapshot()
		require.GreaterOrEqual(t, s.Offset, 0.0)
		require.LessOrEqual(t, s.Offset, s.MaxScroll())
	}
}

func TestScrollContentShrinkReclamps(t *testing.T) {
	e := newTestScroll(150, 1000)
	e.ScrollTo(math.Inf(1))
	offset, _ := e.View()
	require.Equal(t, 850.0, offset)

	// Content shrinks under the view; the offset must follow immediately,
	// without waiting for the next input.
	e.SetContentHeight(200)
	offset, _ = e.View()
	assert.Equal(t, 50.0, offset)

	// Shrinking below the viewport pins to zero.
	e.SetContentHeight(100)
	offset, _ = e.View()
	assert.Equal(t, 0.0, offset)
}

func TestScrollToClampsNonFinite(t *testing.T) {
	e := newTestScroll(800, 2000)

	e.ScrollTo(math.NaN())
	offset, _ := e.View()
	assert.Equal(t, 0.0, offset)

	e.ScrollTo(math.Inf(1))
	offset, _ = e.View()
	assert.Equal(t, 1200.0, offset)

	e.ScrollTo(-500)
	offset, _ = e.View()
	assert.Equal(t, 0.0, offset)
}

func TestScrollThrottleCoalesces(t *testing.T) {
	e := NewScrollEngine(ScrollOptions{WheelStep: 1, UpdateRate: 60})
	e.SetViewportHeight(800)
	e.SetContentHeight(2000)

	now := time.Now()
	e.OnWheel(10)
	require.True(t, e.Flush(now))

	// Inside the interval nothing is applied, the delta keeps accumulating.
	e.OnWheel(10)
	assert.False(t, e.Flush(now.Add(5*time.Millisecond)))
	e.OnWheel(10)
	assert.False(t, e.Flush(now.Add(10*time.Millisecond)))

	offset, _ := e.View()
	assert.Equal(t, 10.0, offset)

	// Once the interval elapses both queued deltas land in one update.
	assert.True(t, e.Flush(now.Add(20*time.Millisecond)))
	offset, _ = e.View()
	assert.Equal(t, 30.0, offset)
}

func TestScrollFlushNoPendingIsIdempotent(t *testing.T) {
	e := newTestScroll(800, 2000)
	assert.False(t, e.Flush(time.Now()))
	assert.False(t, e.TakeRenderRequest(), "only real offset changes may request a render")

	// A wheel event that cancels itself out still applies as zero movement.
	e.OnWheel(10)
	e.OnWheel(-10)
	assert.False(t, e.Flush(time.Now()))
	assert.False(t, e.TakeRenderRequest())
}

func TestScrollKeys(t *testing.T) {
	e := newTestScroll(800, 2000)
	now := time.Now()

	t.Run("end then home", func(t *testing.T) {
		e.OnKey(ScrollKeyEnd)
		require.True(t, e.Flush(now))
		offset, _ := e.View()
		assert.Equal(t, 1200.0, offset)

		e.OnKey(ScrollKeyHome)
		require.True(t, e.Flush(now.Add(time.Second)))
		offset, _ = e.View()
		assert.Equal(t, 0.0, offset)
	})

	t.Run("lines and pages", func(t *testing.T) {
		e.OnKey(ScrollKeyDown)
		require.True(t, e.Flush(now.Add(2*time.Second)))
		offset, _ := e.View()
		assert.Equal(t, 24.0, offset)

		e.OnKey(ScrollKeyPageDown)
		require.True(t, e.Flush(now.Add(3*time.Second)))
		offset, _ = e.View()
		assert.Equal(t, 24.0+800*0.9, offset)

		e.OnKey(ScrollKeyPageUp)
		e.OnKey(ScrollKeyUp)
		require.True(t, e.Flush(now.Add(4*time.Second)))
		offset, _ = e.View()
		assert.Equal(t, 0.0, offset)
	})
}

func TestScrollTouchDragDirection(t *testing.T) {
	e := newTestScroll(800, 2000)
	e.ScrollTo(600)

	// Dragging the content downward reveals earlier content.
	e.OnTouchDrag(100)
	require.True(t, e.Flush(time.Now()))
	offset, _ := e.View()
	assert.Equal(t, 500.0, offset)
}

func TestScrollbarMetrics(t *testing.T) {
	t.Run("content fits", func(t *testing.T) {
		m := ComputeScrollbar(ScrollState{Offset: 0, ContentHeight: 500, ViewportHeight: 800}, 0.1)
		assert.Equal(t, 1.0, m.ThumbSize)
		assert.Equal(t, 0.0, m.ThumbStart)
	})

	t.Run("proportional thumb", func(t *testing.T) {
		m := ComputeScrollbar(ScrollState{Offset: 0, ContentHeight: 2000, ViewportHeight: 800}, 0.1)
		assert.InDelta(t, 0.4, m.ThumbSize, 1e-9)
		assert.Equal(t, 0.0, m.ThumbStart)

		m = ComputeScrollbar(ScrollState{Offset: 1200, ContentHeight: 2000, ViewportHeight: 800}, 0.1)
		assert.InDelta(t, 0.6, m.ThumbStart, 1e-9, "thumb at the end of the track at max scroll")
	})

	t.Run("thumb floor on huge content", func(t *testing.T) {
		m := ComputeScrollbar(ScrollState{Offset: 0, ContentHeight: 800 * 50, ViewportHeight: 800}, 0.1)
		assert.Equal(t, 0.1, m.ThumbSize, "thumb never shrinks below the floor")
	})

	t.Run("degenerate geometry", func(t *testing.T) {
		m := ComputeScrollbar(ScrollState{}, 0.1)
		assert.Equal(t, 1.0, m.ThumbSize)
	})
}

func TestScrollbarJumpAndDrag(t *testing.T) {
	e := newTestScroll(800, 2000)

	// Click the middle of the track: the thumb centers there.
	e.JumpTo(0.5)
	m := e.Scrollbar()
	assert.InDelta(t, 0.5, m.ThumbStart+m.ThumbSize/2, 1e-9)

	// Drag the thumb to the very bottom of the track.
	e.DragThumb(1)
	offset, _ := e.View()
	assert.Equal(t, 1200.0, offset)

	// And back past the top.
	e.DragThumb(-5)
	offset, _ = e.View()
	assert.Equal(t, 0.0, offset)
}

func TestScrollbarJumpNoopWhenContentFits(t *testing.T) {
	e := newTestScroll(800, 400)
	e.JumpTo(0.9)
	e.DragThumb(0.5)
	offset, _ := e.View()
	assert.Equal(t, 0.0, offset)
}

func TestScrollWarpGenerationPolicy(t *testing.T) {
	t.Run("no invalidation", func(t *testing.T) {
		e := NewScrollEngine(ScrollOptions{WheelStep: 1, Policy: NoInvalidation{}})
		e.SetViewportHeight(800)
		e.SetContentHeight(2000)

		gen := e.WarpGeneration()
		e.ScrollTo(300)
		e.ScrollTo(600)
		assert.Equal(t, gen, e.WarpGeneration())
	})

	t.Run("force filter invalidation", func(t *testing.T) {
		e := NewScrollEngine(ScrollOptions{WheelStep: 1, Policy: ForceFilterInvalidation{}})
		e.SetViewportHeight(800)
		e.SetContentHeight(2000)

		gen := e.WarpGeneration()
		e.ScrollTo(300)
		assert.Equal(t, gen+1, e.WarpGeneration())

		// A clamped no-op scroll must not bump the generation.
		e.ScrollTo(300)
		assert.Equal(t, gen+1, e.WarpGeneration())

		e.ScrollTo(600)
		assert.Equal(t, gen+2, e.WarpGeneration())
	})
}

func TestScrollRenderRequest(t *testing.T) {
	e := newTestScroll(800, 2000)

	e.ScrollTo(100)
	assert.True(t, e.TakeRenderRequest())
	assert.False(t, e.TakeRenderRequest(), "the request flag is consumed")

	// Clamped no-op movement requests nothing.
	e.ScrollTo(100)
	assert.False(t, e.TakeRenderRequest())
}

func TestScrollSnapshotCoherence(t *testing.T) {
	e := newTestScroll(800, 2000)
	e.ScrollTo(600)

	s := e.Snapshot()
	m := ComputeScrollbar(s, e.MinThumbFraction())

	// The snapshot and the metrics derived from it agree on the same tick.
	assert.Equal(t, 600.0, s.Offset)
	assert.InDelta(t, 600.0/1200.0*(1-m.ThumbSize), m.ThumbStart, 1e-9)
}
