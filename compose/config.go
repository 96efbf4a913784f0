package compose

import "fmt"

// Config holds the effect templates that are worth tuning per installation
type Config struct {
	BeatDurationRatio     float64 `json:"beat_duration_ratio" yaml:"beat_duration_ratio"` // of the beat interval
	DefaultBeatIntervalMs int     `json:"default_beat_interval_ms" yaml:"default_beat_interval_ms"`
	BeatIntensity         float64 `json:"beat_intensity" yaml:"beat_intensity"`
	DownbeatIntensity     float64 `json:"downbeat_intensity" yaml:"downbeat_intensity"`
	ExplosionMs           int     `json:"explosion_ms" yaml:"explosion_ms"`
	StrobeMs              int     `json:"strobe_ms" yaml:"strobe_ms"`
	DefaultBuildupMs      int     `json:"default_buildup_ms" yaml:"default_buildup_ms"`
	MinChordConfidence    float64 `json:"min_chord_confidence" yaml:"min_chord_confidence"`

	Firmware FirmwareConfig `json:"firmware" yaml:"firmware"`
}

// FirmwareConfig describes the target LED device
type FirmwareConfig struct {
	LEDCount int `json:"led_count" yaml:"led_count"`
	FPS      int `json:"fps" yaml:"fps"`
}

// DefaultConfig returns the composer defaults
func DefaultConfig() Config {
	return Config{
		BeatDurationRatio:     0.8,
		DefaultBeatIntervalMs: 500,
		BeatIntensity:         0.5,
		DownbeatIntensity:     0.8,
		ExplosionMs:           2000,
		StrobeMs:              1000,
		DefaultBuildupMs:      4000,
		MinChordConfidence:    0.3,
		Firmware:              DefaultFirmwareConfig(),
	}
}

// DefaultFirmwareConfig is a 144 LED strip at 60 frames per second
func DefaultFirmwareConfig() FirmwareConfig {
	return FirmwareConfig{LEDCount: 144, FPS: 60}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.BeatDurationRatio <= 0 || c.BeatDurationRatio > 1 {
		return fmt.Errorf("beat duration ratio %v outside (0, 1]", c.BeatDurationRatio)
	}
	if c.ExplosionMs <= 0 || c.StrobeMs <= 0 {
		return fmt.Errorf("explosion and strobe durations must be positive")
	}
	if c.Firmware.LEDCount <= 0 || c.Firmware.FPS <= 0 {
		return fmt.Errorf("led count and fps must be positive")
	}
	return nil
}
