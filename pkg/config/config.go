package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Config represents the main configuration
type Config struct {
	Display DisplayConfig `yaml:"display"`
	Overlay OverlayConfig `yaml:"overlay"`
	Scroll  ScrollConfig  `yaml:"scroll"`
	Content ContentConfig `yaml:"content"`
	Audio   AudioConfig   `yaml:"audio"`
	Logging LoggingConfig `yaml:"logging"`
}

// DisplayConfig contains window and frame-loop configuration
type DisplayConfig struct {
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	Title         string  `yaml:"title"`
	VSync         bool    `yaml:"vsync"`
	FrameRate     int     `yaml:"framerate"`
	PixelRatioCap float64 `yaml:"pixel_ratio_cap"` // cap on device pixel ratio, >= 0.25
}

// OverlayConfig contains every tunable of the CRT overlay. Out-of-range
// values are clamped by the engine before use, never rejected.
type OverlayConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Intensity float64 `yaml:"intensity"`

	MaskKind   string  `yaml:"mask_kind"` // dot-grid, subpixel-stripe, interlaced-stripe
	DotPitch   float64 `yaml:"dot_pitch"`
	DotScale   float64 `yaml:"dot_scale"`
	DotFalloff float64 `yaml:"dot_falloff"`
	Brightness float64 `yaml:"brightness"`

	ConvergenceRedX     float64 `yaml:"convergence_red_x"`
	ConvergenceRedY     float64 `yaml:"convergence_red_y"`
	ConvergenceBlueX    float64 `yaml:"convergence_blue_x"`
	ConvergenceBlueY    float64 `yaml:"convergence_blue_y"`
	ConvergenceStrength float64 `yaml:"convergence_strength"`

	GlowRadius     float64 `yaml:"glow_radius"`
	GlowIntensity  float64 `yaml:"glow_intensity"`
	BloomThreshold float64 `yaml:"bloom_threshold"`
	BloomRadius    float64 `yaml:"bloom_radius"`
	BloomIntensity float64 `yaml:"bloom_intensity"`

	BlendMode        string  `yaml:"blend_mode"` // additive, screen, soft-light, lighten, tone-mapped
	Gamma            float64 `yaml:"gamma"`
	Distortion       float64 `yaml:"distortion"`
	ScanlineStrength float64 `yaml:"scanline_strength"`
	WarpScale        float64 `yaml:"warp_scale"` // max displacement in pixels, <= 0 disables the warp
	Animate          bool    `yaml:"animate"`
}

// ScrollConfig contains scroll engine configuration
type ScrollConfig struct {
	WheelStep        float64 `yaml:"wheel_step"`  // pixels per wheel notch
	LineStep         float64 `yaml:"line_step"`   // pixels per arrow key press
	UpdateRate       int     `yaml:"update_rate"` // max scroll recomputations per second
	MinThumbFraction float64 `yaml:"min_thumb_fraction"`
	// ForceFilterInvalidation works around compositors that cache the warp
	// lookup as a static texture across scroll updates.
	ForceFilterInvalidation bool `yaml:"force_filter_invalidation"`
}

// ContentConfig contains terminal content configuration
type ContentConfig struct {
	Columns    int `yaml:"columns"`
	LineHeight int `yaml:"line_height"`
}

// AudioConfig contains ambience configuration
type AudioConfig struct {
	Enabled bool    `yaml:"enabled"`
	Volume  float64 `yaml:"volume"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig creates a default configuration
func DefaultConfig() *Config {
	return &Config{
		Display: DisplayConfig{
			Width:         1024,
			Height:        768,
			Title:         "phosphor",
			VSync:         true,
			FrameRate:     60,
			PixelRatioCap: 2.0,
		},
		Overlay: OverlayConfig{
			Enabled:             true,
			Intensity:           0.55,
			MaskKind:            "dot-grid",
			DotPitch:            4.0,
			DotScale:            1.0,
			DotFalloff:          1.6,
			Brightness:          1.15,
			ConvergenceRedX:     0.6,
			ConvergenceRedY:     0.0,
			ConvergenceBlueX:    -0.6,
			ConvergenceBlueY:    0.1,
			ConvergenceStrength: 1.0,
			GlowRadius:          14.0,
			GlowIntensity:       0.35,
			BloomThreshold:      0.65,
			BloomRadius:         3.0,
			BloomIntensity:      0.5,
			BlendMode:           "screen",
			Gamma:               1.1,
			Distortion:          0.12,
			ScanlineStrength:    0.22,
			WarpScale:           6.0,
			Animate:             true,
		},
		Scroll: ScrollConfig{
			WheelStep:               48,
			LineStep:                24,
			UpdateRate:              60,
			MinThumbFraction:        0.1,
			ForceFilterInvalidation: false,
		},
		Content: ContentConfig{
			Columns:    96,
			LineHeight: 18,
		},
		Audio: AudioConfig{
			Enabled: true,
			Volume:  0.4,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads the configuration from a file. A missing file is not an
// error: defaults are returned together with the wrapped cause so the caller
// can decide whether to mention it.
func LoadConfig(filePath string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(filePath)
	if err != nil {
		return config, fmt.Errorf("config file not found, using defaults: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return config, fmt.Errorf("error parsing config: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to a file
func SaveConfig(config *Config, filePath string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("error serializing config: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}
