package genesis

import (
	"github.com/RyanBlaney/genesis-map/beats"
	"github.com/RyanBlaney/genesis-map/compose"
	"github.com/RyanBlaney/genesis-map/emotion"
	"github.com/RyanBlaney/genesis-map/harmony"
	"github.com/RyanBlaney/genesis-map/palette"
	"github.com/RyanBlaney/genesis-map/stems"
	"github.com/RyanBlaney/genesis-map/structure"
)

// Version is the GenesisMap schema version
const Version = "v4.0"

// GenesisMap is the complete analysis of one track
type GenesisMap struct {
	Version   string           `json:"version"`
	Metadata  Metadata         `json:"metadata"`
	Beats     BeatsSection     `json:"beats"`
	Drops     DropsSection     `json:"drops"`
	Harmony   HarmonySection   `json:"harmony"`
	Structure StructureSection `json:"structure"`
	Emotion   EmotionSection   `json:"emotion"`
	Stems     stems.Summary    `json:"stems"`
	Effects   []EffectSummary  `json:"effects"`

	// Composed is the full effect list; Effects may be a truncated view of it
	Composed []compose.Effect `json:"-"`
}

// Metadata describes the analysed input
type Metadata struct {
	Filename   string `json:"filename"`
	DurationMs int    `json:"duration_ms"`
	SampleRate int    `json:"sample_rate"`
	AnalyzedAt string `json:"analyzed_at"` // RFC 3339, UTC
}

type BeatsSection struct {
	Tempo           float64 `json:"tempo"`
	BeatTimesMs     []int   `json:"beat_times_ms"`
	DownbeatTimesMs []int   `json:"downbeat_times_ms"`
	TotalBeats      int     `json:"total_beats"`
	GrooveScore     float64 `json:"groove_score"`
}

type DropsSection struct {
	Events        []beats.DropEvent `json:"events"`
	TotalDrops    int               `json:"total_drops"`
	TotalBuildups int               `json:"total_buildups"`
}

type HarmonySection struct {
	Key            string                       `json:"key"`
	KeyConfidence  float64                      `json:"key_confidence"`
	ColorPalette   []palette.RGB                `json:"color_palette"`
	Progression    []harmony.ChordEvent         `json:"progression"`
	TotalChords    int                          `json:"total_chords"`
	HarmonicChange *harmony.HarmonicChangeCurve `json:"harmonic_change,omitempty"`
}

type StructureSection struct {
	Segments      []SegmentEntry    `json:"segments"`
	Transitions   []TransitionEntry `json:"transitions"`
	Form          string            `json:"form"`
	TotalSegments int               `json:"total_segments"`
}

type SegmentEntry struct {
	Label      structure.Label `json:"label"`
	StartMs    int             `json:"start_ms"`
	EndMs      int             `json:"end_ms"`
	Confidence float64         `json:"confidence"`
	DurationMs int             `json:"duration_ms"`
}

type TransitionEntry struct {
	TimeMs   int             `json:"time_ms"`
	From     structure.Label `json:"from"`
	To       structure.Label `json:"to"`
	Strength float64         `json:"strength"`
}

type EmotionSection struct {
	Curves       emotion.Curves `json:"curves"`
	MoodSegments []MoodEntry    `json:"mood_segments"`
	DominantMood emotion.Mood   `json:"dominant_mood"`
}

type MoodEntry struct {
	Mood    emotion.Mood  `json:"mood"`
	StartMs int           `json:"start_ms"`
	EndMs   int           `json:"end_ms"`
	Valence float64       `json:"valence"`
	Arousal float64       `json:"arousal"`
	Colors  []palette.RGB `json:"colors"`
}

// EffectSummary is the condensed effect record of the map
type EffectSummary struct {
	Type       compose.EffectType `json:"type"`
	StartMs    int                `json:"start_ms"`
	DurationMs int                `json:"duration_ms"`
	Intensity  float64            `json:"intensity"`
	Colors     []palette.RGB      `json:"colors"`
}
