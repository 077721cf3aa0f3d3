package engine

import (
	"math"
	"sync"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"

	"phosphor/internal/noise"
	"phosphor/pkg/config"
)

const (
	sampleRate      = 44100
	framesPerBuffer = 1024
	numChannels     = 2

	humFrequency = 50.0 // mains hum fundamental
)

// AudioEngine produces the CRT ambience: a low mains hum with harmonics and
// a faint phosphor hiss. The level follows the overlay intensity, so turning
// the overlay off also silences the tube. Audio is strictly optional; any
// device failure leaves a disabled engine and the renderer runs on.
type AudioEngine struct {
	stream   *portaudio.Stream
	noiseGen *noise.NoiseGenerator
	log      *zap.Logger

	mu     sync.Mutex
	volume float64
	level  float64

	phase    float64
	hissPos  float64
	smoothed float64

	enabled bool
}

// NewAudioEngine opens the default output stream. Failure is reported but
// not returned: the caller gets a silent engine.
func NewAudioEngine(cfg config.AudioConfig, log *zap.Logger) *AudioEngine {
	ae := &AudioEngine{
		noiseGen: noise.NewNoiseGenerator(1),
		log:      log,
		volume:   cfg.Volume,
	}
	if !cfg.Enabled {
		return ae
	}

	if err := portaudio.Initialize(); err != nil {
		log.Warn("audio disabled: portaudio init failed", zap.Error(err))
		return ae
	}

	stream, err := portaudio.OpenDefaultStream(0, numChannels, sampleRate, framesPerBuffer, ae.callback)
	if err != nil {
		log.Warn("audio disabled: no output stream", zap.Error(err))
		portaudio.Terminate()
		return ae
	}
	if err := stream.Start(); err != nil {
		log.Warn("audio disabled: stream start failed", zap.Error(err))
		stream.Close()
		portaudio.Terminate()
		return ae
	}

	ae.stream = stream
	ae.enabled = true
	log.Info("CRT ambience started", zap.Int("sample_rate", sampleRate))
	return ae
}

// SetIntensity ties the ambience level to the overlay intensity.
func (ae *AudioEngine) SetIntensity(v float64) {
	ae.mu.Lock()
	defer ae.mu.Unlock()
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	ae.level = v
}

// callback synthesizes one buffer of hum plus hiss.
func (ae *AudioEngine) callback(out []float32) {
	ae.mu.Lock()
	target := ae.volume * ae.level
	ae.mu.Unlock()

	step := 2 * math.Pi * humFrequency / sampleRate
	for i := 0; i < len(out); i += numChannels {
		// Slow level ramp avoids clicks when intensity jumps.
		ae.smoothed += (target - ae.smoothed) * 0.0005

		hum := 0.5*math.Sin(ae.phase) +
			0.22*math.Sin(2*ae.phase) +
			0.12*math.Sin(3*ae.phase)
		hiss := ae.noiseGen.FBM1D(ae.hissPos, 3, 2.0, 0.5, 7) * 0.3

		sample := float32((hum*0.6 + hiss) * ae.smoothed * 0.25)
		for ch := 0; ch < numChannels; ch++ {
			out[i+ch] = sample
		}

		ae.phase += step
		if ae.phase > 2*math.Pi {
			ae.phase -= 2 * math.Pi
		}
		ae.hissPos += 0.37
	}
}

// Shutdown stops and closes the stream. Safe to call when disabled.
func (ae *AudioEngine) Shutdown() {
	if !ae.enabled {
		return
	}
	ae.enabled = false
	ae.stream.Stop()
	ae.stream.Close()
	portaudio.Terminate()
}
