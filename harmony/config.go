package harmony

import "fmt"

// Config holds the key, chord and harmonic change parameters
type Config struct {
	// Key and harmonic change share one chroma framing
	FrameSize int `json:"frame_size" yaml:"frame_size"`
	HopSize   int `json:"hop_size" yaml:"hop_size"`

	// Chords use longer hops so changes are read at phrase rate
	ChordFrameSize     int     `json:"chord_frame_size" yaml:"chord_frame_size"`
	ChordHopSize       int     `json:"chord_hop_size" yaml:"chord_hop_size"`
	MinChordEnergy     float64 `json:"min_chord_energy" yaml:"min_chord_energy"`
	MinChordConfidence float64 `json:"min_chord_confidence" yaml:"min_chord_confidence"`
	MinChordGapMs      int     `json:"min_chord_gap_ms" yaml:"min_chord_gap_ms"`
	SmoothingWindowMs  int     `json:"smoothing_window_ms" yaml:"smoothing_window_ms"`
	SmoothingMargin    float64 `json:"smoothing_margin" yaml:"smoothing_margin"`

	ChangeSigma    float64 `json:"change_sigma" yaml:"change_sigma"`
	MaxCurvePoints int     `json:"max_curve_points" yaml:"max_curve_points"`
	PeakPercentile float64 `json:"peak_percentile" yaml:"peak_percentile"`
}

// DefaultConfig returns the harmony defaults
func DefaultConfig() Config {
	return Config{
		FrameSize:          4096,
		HopSize:            2048,
		ChordFrameSize:     8192,
		ChordHopSize:       8192,
		MinChordEnergy:     0.1,
		MinChordConfidence: 0.3,
		MinChordGapMs:      500,
		SmoothingWindowMs:  2000,
		SmoothingMargin:    0.15,
		ChangeSigma:        2,
		MaxCurvePoints:     200,
		PeakPercentile:     0.85,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.FrameSize <= 0 || c.HopSize <= 0 || c.ChordFrameSize <= 0 || c.ChordHopSize <= 0 {
		return fmt.Errorf("frame and hop sizes must be positive")
	}
	if c.HopSize > c.FrameSize || c.ChordHopSize > c.ChordFrameSize {
		return fmt.Errorf("hop size exceeds frame size")
	}
	if c.PeakPercentile < 0 || c.PeakPercentile > 1 {
		return fmt.Errorf("peak percentile %v outside [0, 1]", c.PeakPercentile)
	}
	if c.MaxCurvePoints <= 0 {
		return fmt.Errorf("max curve points must be positive")
	}
	return nil
}
