package emotion

import "github.com/RyanBlaney/genesis-map/palette"

// State is the emotional reading of one analysis frame
type State struct {
	Timestamp  float64 `json:"timestamp"` // seconds
	Valence    float64 `json:"valence"`   // [-1, 1]
	Arousal    float64 `json:"arousal"`   // [0, 1]
	Tension    float64 `json:"tension"`   // [0, 1]
	Confidence float64 `json:"confidence"`
}

// Mood classifies the state
func (s State) Mood() Mood {
	return Classify(s.Valence, s.Arousal)
}

// MoodSegment is a run of states sharing a mood
type MoodSegment struct {
	Mood    Mood          `json:"mood"`
	Start   float64       `json:"start"`
	End     float64       `json:"end"`
	Valence float64       `json:"valence"` // mean over the run
	Arousal float64       `json:"arousal"`
	Colors  []palette.RGB `json:"colors"`
}

// Contains reports whether t falls in [Start, End]
func (m MoodSegment) Contains(t float64) bool {
	return t >= m.Start && t <= m.End
}

// Curves are downsampled valence, arousal and tension traces
type Curves struct {
	Valence      []float64 `json:"valence"`
	Arousal      []float64 `json:"arousal"`
	Tension      []float64 `json:"tension"`
	TimestampsMs []int     `json:"timestamps_ms"`
}

// Analysis bundles the emotion engine output
type Analysis struct {
	States       []State       `json:"-"`
	Segments     []MoodSegment `json:"mood_segments"`
	Curves       Curves        `json:"curves"`
	DominantMood Mood          `json:"dominant_mood"`
}
