package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunPassListOrderAndSkip(t *testing.T) {
	var ran []string
	pass := func(name string, ready bool) renderPass {
		return renderPass{
			name:  name,
			ready: func(*frameState) bool { return ready },
			run:   func(*frameState) { ran = append(ran, name) },
		}
	}

	t.Run("all ready", func(t *testing.T) {
		ran = nil
		executed := runPassList([]renderPass{
			pass("mask", true), pass("bright", true), pass("composite", true),
		}, &frameState{})
		assert.Equal(t, []string{"mask", "bright", "composite"}, executed)
		assert.Equal(t, executed, ran)
	})

	t.Run("unready pass skipped, later passes still run", func(t *testing.T) {
		ran = nil
		executed := runPassList([]renderPass{
			pass("mask", true), pass("bloom-blur", false), pass("composite", true),
		}, &frameState{})
		assert.Equal(t, []string{"mask", "composite"}, executed)
	})

	t.Run("nil ready means always run", func(t *testing.T) {
		ran = nil
		executed := runPassList([]renderPass{
			{name: "mask", run: func(*frameState) { ran = append(ran, "mask") }},
		}, &frameState{})
		assert.Equal(t, []string{"mask"}, executed)
	})
}

func TestRunPassListSharesFrameState(t *testing.T) {
	// A pass records its completion on the frame; downstream passes see it.
	var sawBloom bool
	passes := []renderPass{
		{
			name: "bloom-blur",
			run:  func(f *frameState) { f.bloomDone = true },
		},
		{
			name: "composite",
			run:  func(f *frameState) { sawBloom = f.bloomDone },
		},
	}
	runPassList(passes, &frameState{})
	assert.True(t, sawBloom)
}

func TestOverlayAlpha(t *testing.T) {
	// Zero intensity is a hard kill switch regardless of the fade term.
	assert.Equal(t, 0.0, overlayAlpha(0, 1))
	assert.Equal(t, 0.0, overlayAlpha(0, 0.5))
	assert.Equal(t, 0.0, overlayAlpha(-1, 1))

	assert.Equal(t, 0.5, overlayAlpha(0.5, 1))
	assert.InDelta(t, 0.25, overlayAlpha(0.5, 0.5), 1e-12)

	// The fade term is clamped before it scales the intensity.
	assert.Equal(t, 0.7, overlayAlpha(0.7, 5))
	assert.Equal(t, 0.0, overlayAlpha(0.7, -1))
}
