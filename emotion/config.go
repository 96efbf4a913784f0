package emotion

import "fmt"

// Config holds the emotion curve parameters
type Config struct {
	FrameSize int `json:"frame_size" yaml:"frame_size"`
	HopSize   int `json:"hop_size" yaml:"hop_size"`

	SmoothingSigma  float64 `json:"smoothing_sigma" yaml:"smoothing_sigma"`
	ModeGap         float64 `json:"mode_gap" yaml:"mode_gap"`
	ActiveThreshold float64 `json:"active_threshold" yaml:"active_threshold"` // chroma level of a sounding pitch class
	BrightnessHz    float64 `json:"brightness_hz" yaml:"brightness_hz"`
	MinTempo        float64 `json:"min_tempo" yaml:"min_tempo"`
	TempoRange      float64 `json:"tempo_range" yaml:"tempo_range"`

	VocalArousalBoost float64 `json:"vocal_arousal_boost" yaml:"vocal_arousal_boost"`

	MinSegmentSeconds float64 `json:"min_segment_seconds" yaml:"min_segment_seconds"`
	MaxCurvePoints    int     `json:"max_curve_points" yaml:"max_curve_points"`
}

// DefaultConfig returns the emotion defaults
func DefaultConfig() Config {
	return Config{
		FrameSize:         2048,
		HopSize:           2048,
		SmoothingSigma:    2,
		ModeGap:           0.1,
		ActiveThreshold:   0.1,
		BrightnessHz:      4000,
		MinTempo:          60,
		TempoRange:        140,
		VocalArousalBoost: 0.1,
		MinSegmentSeconds: 5,
		MaxCurvePoints:    100,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.FrameSize <= 0 || c.HopSize <= 0 {
		return fmt.Errorf("frame size and hop size must be positive")
	}
	if c.BrightnessHz <= 0 || c.TempoRange <= 0 {
		return fmt.Errorf("brightness and tempo range must be positive")
	}
	if c.MaxCurvePoints <= 0 {
		return fmt.Errorf("max curve points must be positive")
	}
	return nil
}
