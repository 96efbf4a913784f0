package structure

import "fmt"

// Config holds the segmentation parameters
type Config struct {
	FrameSize int `json:"frame_size" yaml:"frame_size"`
	HopSize   int `json:"hop_size" yaml:"hop_size"`

	// Recurrence novelty
	Neighbors    int     `json:"neighbors" yaml:"neighbors"`
	PathWidth    int     `json:"path_width" yaml:"path_width"`
	NoveltySigma float64 `json:"novelty_sigma" yaml:"novelty_sigma"`
	// Feature sequences longer than this are average-pooled before the
	// n x n recurrence matrices are built
	MaxFrames int `json:"max_frames" yaml:"max_frames"`

	// Cue fusion, applied when at least MinFusionBeats beats are known
	NoveltyWeight  float64 `json:"novelty_weight" yaml:"novelty_weight"`
	HarmonicWeight float64 `json:"harmonic_weight" yaml:"harmonic_weight"`
	EnergyWeight   float64 `json:"energy_weight" yaml:"energy_weight"`
	MinSyncBeats   int     `json:"min_sync_beats" yaml:"min_sync_beats"`
	MinFusionBeats int     `json:"min_fusion_beats" yaml:"min_fusion_beats"`

	// Peak picking
	BarsMin                int     `json:"bars_min" yaml:"bars_min"`
	KernelBars             int     `json:"kernel_bars" yaml:"kernel_bars"`
	DeltaFactor            float64 `json:"delta_factor" yaml:"delta_factor"`
	HarmonicPeakPercentile float64 `json:"harmonic_peak_percentile" yaml:"harmonic_peak_percentile"`

	MinBoundarySeconds float64 `json:"min_boundary_seconds" yaml:"min_boundary_seconds"`
	FallbackBoundaries int     `json:"fallback_boundaries" yaml:"fallback_boundaries"`

	// Clustering
	MaxClusters  int   `json:"max_clusters" yaml:"max_clusters"`
	ClusterSeed  int64 `json:"cluster_seed" yaml:"cluster_seed"`
	ClusterInits int   `json:"cluster_inits" yaml:"cluster_inits"`

	// Labelling
	IntroMaxStart     float64 `json:"intro_max_start" yaml:"intro_max_start"`
	OutroWindow       float64 `json:"outro_window" yaml:"outro_window"`
	InstrumentalMax   float64 `json:"instrumental_max" yaml:"instrumental_max"`
	BridgeMinPosition float64 `json:"bridge_min_position" yaml:"bridge_min_position"`
	BridgeMaxPosition float64 `json:"bridge_max_position" yaml:"bridge_max_position"`
	MinSegmentSeconds float64 `json:"min_segment_seconds" yaml:"min_segment_seconds"`
	MergeDecay        float64 `json:"merge_decay" yaml:"merge_decay"`
}

// DefaultConfig returns the segmentation defaults
func DefaultConfig() Config {
	return Config{
		FrameSize:              2048,
		HopSize:                512,
		Neighbors:              20,
		PathWidth:              5,
		NoveltySigma:           2,
		MaxFrames:              1024,
		NoveltyWeight:          0.5,
		HarmonicWeight:         0.3,
		EnergyWeight:           0.2,
		MinSyncBeats:           4,
		MinFusionBeats:         8,
		BarsMin:                4,
		KernelBars:             4,
		DeltaFactor:            0.2,
		HarmonicPeakPercentile: 0.9,
		MinBoundarySeconds:     6,
		FallbackBoundaries:     6,
		MaxClusters:            5,
		ClusterSeed:            42,
		ClusterInits:           10,
		IntroMaxStart:          30,
		OutroWindow:            30,
		InstrumentalMax:        20,
		BridgeMinPosition:      0.3,
		BridgeMaxPosition:      0.8,
		MinSegmentSeconds:      5,
		MergeDecay:             0.95,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.FrameSize <= 0 || c.HopSize <= 0 {
		return fmt.Errorf("frame size and hop size must be positive")
	}
	if c.MaxFrames < 16 {
		return fmt.Errorf("max frames %d is too small", c.MaxFrames)
	}
	if c.MaxClusters < 2 {
		return fmt.Errorf("max clusters must be at least 2")
	}
	if c.FallbackBoundaries < 3 {
		return fmt.Errorf("fallback boundaries must be at least 3")
	}
	if c.BridgeMinPosition >= c.BridgeMaxPosition {
		return fmt.Errorf("bridge band [%v, %v] is empty", c.BridgeMinPosition, c.BridgeMaxPosition)
	}
	return nil
}
