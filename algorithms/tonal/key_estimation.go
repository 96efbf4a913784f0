package tonal

import (
	"math"
	"sort"

	"github.com/RyanBlaney/genesis-map/algorithms/chroma"
	"github.com/RyanBlaney/genesis-map/algorithms/common"
)

// KeyMode represents major or minor mode
type KeyMode int

const (
	KeyModeMajor KeyMode = iota
	KeyModeMinor
)

func (m KeyMode) String() string {
	if m == KeyModeMinor {
		return "minor"
	}
	return "major"
}

// Krumhansl-Kessler probe tone profiles, index 0 = tonic
var (
	MajorProfile = []float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	MinorProfile = []float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
)

// KeyCandidate represents a potential key with its profile correlation
type KeyCandidate struct {
	Key         int     `json:"key"`  // Key number (0=C, 1=C#, ..., 11=B)
	Mode        KeyMode `json:"mode"` // Major or Minor
	KeyName     string  `json:"key_name"`
	Correlation float64 `json:"correlation"` // Pearson r in [-1, 1]
}

// KeyEstimationResult contains the winning key and the evidence behind it
type KeyEstimationResult struct {
	Key        int     `json:"key"`
	Mode       KeyMode `json:"mode"`
	KeyName    string  `json:"key_name"` // e.g. "C major"
	Confidence float64 `json:"confidence"`
	Strength   float64 `json:"strength"` // (r + 1) / 2 of the winner
	Margin     float64 `json:"margin"`   // r(best) - r(second best)

	// All 24 candidates, best first
	Candidates []KeyCandidate `json:"candidates"`
}

// KeyEstimator correlates a chroma profile against all 24 rotated
// major/minor templates
type KeyEstimator struct {
	// margin at which the runner-up no longer discounts confidence
	fullMargin float64
}

// NewKeyEstimator creates a new key estimator
func NewKeyEstimator() *KeyEstimator {
	return &KeyEstimator{fullMargin: 0.05}
}

// EstimateKey returns the best (root, mode) for a 12-bin chroma profile.
// Confidence is strength * sqrt(min(1, margin/0.05)) so a near tie between
// two keys scores low even when the top correlation is high.
func (ke *KeyEstimator) EstimateKey(chromaVector []float64) KeyEstimationResult {
	candidates := ke.Candidates(chromaVector)
	best := candidates[0]
	margin := best.Correlation - candidates[1].Correlation
	strength := (best.Correlation + 1) / 2

	confidence := strength * math.Sqrt(math.Min(1, margin/ke.fullMargin))
	if math.IsNaN(confidence) {
		confidence = 0
	}

	return KeyEstimationResult{
		Key:        best.Key,
		Mode:       best.Mode,
		KeyName:    best.KeyName,
		Confidence: common.Clamp(confidence, 0, 1),
		Strength:   strength,
		Margin:     margin,
		Candidates: candidates,
	}
}

// Candidates scores all 24 keys, sorted by correlation (stable: major
// before minor, lower root first on ties)
func (ke *KeyEstimator) Candidates(chromaVector []float64) []KeyCandidate {
	normalized := normalizeProfile(chromaVector)
	candidates := make([]KeyCandidate, 0, 24)
	for _, mode := range []KeyMode{KeyModeMajor, KeyModeMinor} {
		profile := MajorProfile
		if mode == KeyModeMinor {
			profile = MinorProfile
		}
		for root := range 12 {
			candidates = append(candidates, KeyCandidate{
				Key:         root,
				Mode:        mode,
				KeyName:     GetKeyName(root, mode),
				Correlation: correlateWithProfile(normalized, profile, root),
			})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Correlation > candidates[j].Correlation
	})
	return candidates
}

// ModeSign returns +1 when the profile fits major keys better than minor ones
// by at least gap, -1 for the converse, and 0 when ambiguous
func (ke *KeyEstimator) ModeSign(chromaVector []float64, gap float64) float64 {
	normalized := normalizeProfile(chromaVector)
	bestMajor, bestMinor := -1.0, -1.0
	for root := range 12 {
		bestMajor = math.Max(bestMajor, correlateWithProfile(normalized, MajorProfile, root))
		bestMinor = math.Max(bestMinor, correlateWithProfile(normalized, MinorProfile, root))
	}
	switch diff := bestMajor - bestMinor; {
	case math.Abs(diff) < gap:
		return 0
	case diff > 0:
		return 1
	default:
		return -1
	}
}

// correlateWithProfile aligns pitch class root with the profile tonic
func correlateWithProfile(chromaVector, profile []float64, root int) float64 {
	rotated := make([]float64, 12)
	for j := range 12 {
		rotated[j] = chromaVector[(j+root)%12]
	}
	return common.Correlation(rotated, profile)
}

func normalizeProfile(chromaVector []float64) []float64 {
	out := make([]float64, 12)
	copy(out, chromaVector)
	if total := common.Sum(out); total > 1e-10 {
		for i := range out {
			out[i] /= total
		}
	}
	return out
}

// GetKeyName returns "<root> <mode>", e.g. "A minor"
func GetKeyName(key int, mode KeyMode) string {
	return chroma.PitchClasses[((key%12)+12)%12] + " " + mode.String()
}
