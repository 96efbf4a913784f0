package genesis

import (
	"time"

	"github.com/RyanBlaney/genesis-map/beats"
	"github.com/RyanBlaney/genesis-map/compose"
	"github.com/RyanBlaney/genesis-map/emotion"
	"github.com/RyanBlaney/genesis-map/harmony"
	"github.com/RyanBlaney/genesis-map/palette"
	"github.com/RyanBlaney/genesis-map/stems"
	"github.com/RyanBlaney/genesis-map/structure"
)

// Parts are the stage outputs a GenesisMap is assembled from. Nil stage
// outputs produce empty sections.
type Parts struct {
	Filename   string
	Duration   float64 // seconds
	SampleRate int
	AnalyzedAt time.Time

	Beats      *beats.BeatGrid
	Drops      []beats.DropEvent
	Harmony    *harmony.Analysis
	Segments   []structure.Segment
	Emotion    *emotion.Analysis
	Stems      *stems.Features
	Effects    []compose.Effect
	MaxEffects int // 0 keeps all
}

// Build assembles a GenesisMap. Slices in the result are never nil, so every
// section encodes as a JSON array or object.
func Build(p Parts) *GenesisMap {
	return &GenesisMap{
		Version: Version,
		Metadata: Metadata{
			Filename:   p.Filename,
			DurationMs: toMs(p.Duration),
			SampleRate: p.SampleRate,
			AnalyzedAt: p.AnalyzedAt.UTC().Format(time.RFC3339),
		},
		Beats:     beatsSection(p.Beats),
		Drops:     dropsSection(p.Drops),
		Harmony:   harmonySection(p.Harmony),
		Structure: structureSection(p.Segments),
		Emotion:   emotionSection(p.Emotion),
		Stems:     p.Stems.Summary(),
		Effects:   effectSummaries(p.Effects, p.MaxEffects),
		Composed:  p.Effects,
	}
}

func toMs(seconds float64) int {
	return int(seconds * 1000)
}

func timesMs(seconds []float64) []int {
	out := make([]int, len(seconds))
	for i, s := range seconds {
		out[i] = toMs(s)
	}
	return out
}

func beatsSection(g *beats.BeatGrid) BeatsSection {
	if g == nil {
		return BeatsSection{BeatTimesMs: []int{}, DownbeatTimesMs: []int{}}
	}
	return BeatsSection{
		Tempo:           g.Tempo,
		BeatTimesMs:     timesMs(g.BeatTimes),
		DownbeatTimesMs: timesMs(g.Downbeats),
		TotalBeats:      len(g.BeatTimes),
		GrooveScore:     g.GrooveScore,
	}
}

func dropsSection(events []beats.DropEvent) DropsSection {
	s := DropsSection{Events: make([]beats.DropEvent, 0, len(events))}
	for _, e := range events {
		s.Events = append(s.Events, e)
		switch e.Type {
		case beats.EventDrop:
			s.TotalDrops++
		case beats.EventBuildup:
			s.TotalBuildups++
		}
	}
	return s
}

func harmonySection(a *harmony.Analysis) HarmonySection {
	if a == nil {
		return HarmonySection{ColorPalette: []palette.RGB{}, Progression: []harmony.ChordEvent{}}
	}
	progression := a.Chords
	if progression == nil {
		progression = []harmony.ChordEvent{}
	}
	return HarmonySection{
		Key:            a.Key.Name,
		KeyConfidence:  a.Key.Confidence,
		ColorPalette:   a.Key.Palette(),
		Progression:    progression,
		TotalChords:    len(progression),
		HarmonicChange: a.Change,
	}
}

func structureSection(segments []structure.Segment) StructureSection {
	s := StructureSection{
		Segments:      make([]SegmentEntry, 0, len(segments)),
		Transitions:   []TransitionEntry{},
		Form:          structure.Form(segments),
		TotalSegments: len(segments),
	}
	for _, seg := range segments {
		s.Segments = append(s.Segments, SegmentEntry{
			Label:      seg.Label,
			StartMs:    toMs(seg.Start),
			EndMs:      toMs(seg.End),
			Confidence: seg.Confidence,
			DurationMs: toMs(seg.End - seg.Start),
		})
	}
	for _, t := range structure.Transitions(segments) {
		s.Transitions = append(s.Transitions, TransitionEntry{
			TimeMs:   toMs(t.Time),
			From:     t.From,
			To:       t.To,
			Strength: t.Strength,
		})
	}
	return s
}

func emotionSection(a *emotion.Analysis) EmotionSection {
	if a == nil {
		return EmotionSection{
			Curves:       emotion.SampleCurves(nil, 100),
			MoodSegments: []MoodEntry{},
			DominantMood: emotion.MoodNeutral,
		}
	}
	s := EmotionSection{
		Curves:       a.Curves,
		MoodSegments: make([]MoodEntry, 0, len(a.Segments)),
		DominantMood: a.DominantMood,
	}
	for _, m := range a.Segments {
		s.MoodSegments = append(s.MoodSegments, MoodEntry{
			Mood:    m.Mood,
			StartMs: toMs(m.Start),
			EndMs:   toMs(m.End),
			Valence: m.Valence,
			Arousal: m.Arousal,
			Colors:  m.Colors,
		})
	}
	return s
}

func effectSummaries(effects []compose.Effect, limit int) []EffectSummary {
	if limit > 0 && len(effects) > limit {
		effects = effects[:limit]
	}
	out := make([]EffectSummary, len(effects))
	for i, e := range effects {
		colors := e.Colors
		if colors == nil {
			colors = []palette.RGB{}
		}
		out[i] = EffectSummary{
			Type:       e.Type,
			StartMs:    e.StartMs,
			DurationMs: e.DurationMs,
			Intensity:  e.Intensity,
			Colors:     colors,
		}
	}
	return out
}
