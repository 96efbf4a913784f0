package beats

import "fmt"

// Config holds the beat, drop and buildup detection parameters
type Config struct {
	FrameSize int `json:"frame_size" yaml:"frame_size"`
	HopSize   int `json:"hop_size" yaml:"hop_size"`

	// Downbeats
	BeatsPerBar         int     `json:"beats_per_bar" yaml:"beats_per_bar"`
	DownbeatStdFactor   float64 `json:"downbeat_std_factor" yaml:"downbeat_std_factor"`
	DownbeatBarFraction float64 `json:"downbeat_bar_fraction" yaml:"downbeat_bar_fraction"`

	// Drops
	SmoothingSigma        float64 `json:"smoothing_sigma" yaml:"smoothing_sigma"` // frames
	DropWindowSeconds     float64 `json:"drop_window_seconds" yaml:"drop_window_seconds"`
	SustainSeconds        float64 `json:"sustain_seconds" yaml:"sustain_seconds"` // candidate energy is the mean RMS over this span
	SlopeSeconds          float64 `json:"slope_seconds" yaml:"slope_seconds"`
	MinSlopeFrames        int     `json:"min_slope_frames" yaml:"min_slope_frames"`
	MinDropSpacingSeconds float64 `json:"min_drop_spacing_seconds" yaml:"min_drop_spacing_seconds"`
	MinDropSpacingBeats   float64 `json:"min_drop_spacing_beats" yaml:"min_drop_spacing_beats"`
	DefaultBeatInterval   float64 `json:"default_beat_interval" yaml:"default_beat_interval"`
	BeatSnapSeconds       float64 `json:"beat_snap_seconds" yaml:"beat_snap_seconds"`
	DownbeatGateSeconds   float64 `json:"downbeat_gate_seconds" yaml:"downbeat_gate_seconds"`

	Gate GateConfig `json:"gate" yaml:"gate"`

	// Buildups
	BuildupLookbackSeconds float64 `json:"buildup_lookback_seconds" yaml:"buildup_lookback_seconds"`
	MinBuildupFrames       int     `json:"min_buildup_frames" yaml:"min_buildup_frames"`
	MinBuildupMs           int     `json:"min_buildup_ms" yaml:"min_buildup_ms"`
	MaxBuildupMs           int     `json:"max_buildup_ms" yaml:"max_buildup_ms"`
}

// GateConfig holds the drop gate thresholds
type GateConfig struct {
	MinMedianEnergy float64 `json:"min_median_energy" yaml:"min_median_energy"`
	EnergyRatio     float64 `json:"energy_ratio" yaml:"energy_ratio"`
	FluxRatio       float64 `json:"flux_ratio" yaml:"flux_ratio"`
	BassRatio       float64 `json:"bass_ratio" yaml:"bass_ratio"`
	HarmonicRatio   float64 `json:"harmonic_ratio" yaml:"harmonic_ratio"`
	MinConfidence   float64 `json:"min_confidence" yaml:"min_confidence"`
}

// DefaultConfig returns the detection defaults
func DefaultConfig() Config {
	return Config{
		FrameSize:              2048,
		HopSize:                512,
		BeatsPerBar:            4,
		DownbeatStdFactor:      0.5,
		DownbeatBarFraction:    0.8,
		SmoothingSigma:         2,
		DropWindowSeconds:      2,
		SustainSeconds:         0.5,
		SlopeSeconds:           1.5,
		MinSlopeFrames:         8,
		MinDropSpacingSeconds:  8,
		MinDropSpacingBeats:    16,
		DefaultBeatInterval:    0.5,
		BeatSnapSeconds:        0.2,
		DownbeatGateSeconds:    0.5,
		Gate:                   DefaultGateConfig(),
		BuildupLookbackSeconds: 8,
		MinBuildupFrames:       10,
		MinBuildupMs:           2000,
		MaxBuildupMs:           8000,
	}
}

// DefaultGateConfig returns the drop gate thresholds
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MinMedianEnergy: 1e-6,
		EnergyRatio:     1.6,
		FluxRatio:       1.4,
		BassRatio:       1.3,
		HarmonicRatio:   1.15,
		MinConfidence:   0.55,
	}
}

// Validate checks the configuration for values the detector cannot use
func (c Config) Validate() error {
	if c.FrameSize <= 0 || c.HopSize <= 0 {
		return fmt.Errorf("frame size and hop size must be positive")
	}
	if c.HopSize > c.FrameSize {
		return fmt.Errorf("hop size %d exceeds frame size %d", c.HopSize, c.FrameSize)
	}
	if c.BeatsPerBar <= 0 {
		return fmt.Errorf("beats per bar must be positive")
	}
	if c.DropWindowSeconds <= 0 {
		return fmt.Errorf("drop window must be positive")
	}
	if c.SustainSeconds <= 0 || c.SustainSeconds > c.DropWindowSeconds {
		return fmt.Errorf("sustain span %vs outside (0, %v]", c.SustainSeconds, c.DropWindowSeconds)
	}
	if c.MinBuildupMs > c.MaxBuildupMs {
		return fmt.Errorf("min buildup %dms exceeds max %dms", c.MinBuildupMs, c.MaxBuildupMs)
	}
	return nil
}
