package harmony

import (
	"github.com/RyanBlaney/genesis-map/algorithms/tonal"
	"github.com/RyanBlaney/genesis-map/palette"
)

// KeyEstimate is the global key of a track
type KeyEstimate struct {
	Root       int           `json:"root"` // pitch class, 0 = C
	Mode       tonal.KeyMode `json:"mode"`
	Name       string        `json:"name"` // "C major"
	Confidence float64       `json:"confidence"`
}

// Minor reports whether the key is minor
func (k KeyEstimate) Minor() bool {
	return k.Mode == tonal.KeyModeMinor
}

// Palette returns the three key colors
func (k KeyEstimate) Palette() []palette.RGB {
	return palette.KeyPalette(k.Root, k.Minor())
}

// ChordEvent marks where a chord starts
type ChordEvent struct {
	TimeMs     int         `json:"time_ms"`
	Chord      string      `json:"chord"`
	Confidence float64     `json:"confidence"`
	Color      palette.RGB `json:"color"`

	Root    int                `json:"-"`
	Quality tonal.ChordQuality `json:"-"`
}

// ChangePeak is a local maximum of the harmonic change curve
type ChangePeak struct {
	TimeMs   int     `json:"time_ms"`
	Strength float64 `json:"strength"`
}

// HarmonicChangeCurve is the smoothed, downsampled chroma change curve plus
// its strongest peaks
type HarmonicChangeCurve struct {
	CurveTimesMs  []int        `json:"curve_times_ms"`
	CurveStrength []float64    `json:"curve_strength"`
	Peaks         []ChangePeak `json:"peaks"`
}

// Analysis bundles everything the harmony engine produces for one track
type Analysis struct {
	Key    KeyEstimate          `json:"key"`
	Chords []ChordEvent         `json:"chords"`
	Change *HarmonicChangeCurve `json:"harmonic_change,omitempty"`
}
