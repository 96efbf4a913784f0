package compose

import (
	"math"
	"slices"
	"sort"

	"github.com/RyanBlaney/genesis-map/algorithms/tonal"
	"github.com/RyanBlaney/genesis-map/beats"
	"github.com/RyanBlaney/genesis-map/emotion"
	"github.com/RyanBlaney/genesis-map/harmony"
	"github.com/RyanBlaney/genesis-map/logging"
	"github.com/RyanBlaney/genesis-map/palette"
	"github.com/RyanBlaney/genesis-map/stems"
	"github.com/RyanBlaney/genesis-map/structure"
)

// Request carries everything one composition needs. Compose never modifies
// it, so a request can be reused or shared between goroutines.
type Request struct {
	Beats    *beats.BeatGrid
	Drops    []beats.DropEvent
	Moods    []emotion.MoodSegment
	Sections []structure.Segment
	Harmony  *harmony.Analysis
	Stems    *stems.Features // nil when separation was skipped
}

var (
	warmColors = []palette.RGB{{255, 100, 0}, {255, 50, 0}, {200, 50, 0}}
	softWhites = []palette.RGB{{255, 255, 200}, {200, 200, 255}, {255, 200, 255}}
	dropColors = []palette.RGB{palette.White, {255, 0, 0}, {255, 127, 0}}
	sweepColor = []palette.RGB{{0, 0, 255}, {0, 255, 255}, palette.White}
	bridgeHues = []palette.RGB{{128, 0, 128}, {0, 128, 128}, {128, 128, 0}}
	introColor = palette.RGB{0, 0, 100}
)

// Composer turns analysis results into an ordered effect list. It holds only
// its configuration.
type Composer struct {
	config Config
	logger logging.Logger
}

// NewComposer creates a composer
func NewComposer(config Config) *Composer {
	return &Composer{
		config: config,
		logger: logging.WithFields(logging.Fields{
			"component": "effect_composer",
		}),
	}
}

// Compose runs a default composer over req
func Compose(req Request) []Effect {
	return NewComposer(DefaultConfig()).Compose(req)
}

// Compose generates every effect group and orders the result by start time,
// then layer. Equal requests produce equal lists.
func (c *Composer) Compose(req Request) []Effect {
	groups := []struct {
		name    string
		effects []Effect
	}{
		{"mood", c.moodEffects(req)},
		{"beats", c.beatEffects(req)},
		{"bass", c.bassEffects(req)},
		{"vocals", c.vocalEffects(req)},
		{"drops", c.dropEffects(req)},
		{"structure", c.structureEffects(req)},
		{"chords", c.chordEffects(req)},
	}

	effects := []Effect{}
	counts := logging.Fields{}
	for _, g := range groups {
		effects = append(effects, g.effects...)
		counts[g.name] = len(g.effects)
	}
	SortEffects(effects)

	c.logger.Debug("Effects composed", logging.Fields{
		"function": "Compose",
		"total":    len(effects),
		"groups":   counts,
	})
	return effects
}

// SortEffects stable-sorts by start time, lower layers first on ties
func SortEffects(effects []Effect) {
	sort.SliceStable(effects, func(i, j int) bool {
		if effects[i].StartMs != effects[j].StartMs {
			return effects[i].StartMs < effects[j].StartMs
		}
		return effects[i].Layer < effects[j].Layer
	})
}

func toMs(seconds float64) int {
	return int(seconds * 1000)
}

// moodTemplate picks the background effect for a mood
func moodTemplate(m emotion.Mood) (EffectType, float64, float64) {
	switch m {
	case emotion.MoodHappy, emotion.MoodExcited:
		return Rainbow, 0.6, 0.5
	case emotion.MoodSad, emotion.MoodDepressed:
		return Fade, 0.3, 0.2
	case emotion.MoodAngry, emotion.MoodTense:
		return Gradient, 0.8, 0.7
	default:
		return Solid, 0.4, 0.3
	}
}

func (c *Composer) moodEffects(req Request) []Effect {
	effects := make([]Effect, 0, len(req.Moods))
	for _, m := range req.Moods {
		kind, intensity, speed := moodTemplate(m.Mood)
		colors := slices.Clone(m.Colors)
		if len(colors) == 0 {
			colors = []palette.RGB{palette.Gray}
		}
		effects = append(effects, Effect{
			Type:       kind,
			Layer:      Background,
			StartMs:    toMs(m.Start),
			DurationMs: toMs(m.End) - toMs(m.Start),
			Intensity:  intensity,
			Speed:      speed,
			Colors:     colors,
			Params:     map[string]any{"mood": string(m.Mood)},
		})
	}
	return effects
}

// colorAt prefers the mood segment covering t, then the key hue, then gray
func colorAt(req Request, t float64) palette.RGB {
	for _, m := range req.Moods {
		if m.Contains(t) {
			if len(m.Colors) == 0 {
				return palette.Gray
			}
			return m.Colors[0]
		}
	}
	if req.Harmony != nil {
		return palette.FromHSV(palette.ChromaticHue(req.Harmony.Key.Root), 1, 1)
	}
	return palette.Gray
}

func (c *Composer) beatEffects(req Request) []Effect {
	if req.Beats == nil {
		return nil
	}
	times := req.Beats.BeatTimes
	effects := make([]Effect, 0, len(times))
	for i, t := range times {
		start := toMs(t)
		interval := c.config.DefaultBeatIntervalMs
		if i+1 < len(times) {
			interval = toMs(times[i+1]) - start
		}
		downbeat := req.Beats.IsDownbeat(t)
		intensity := c.config.BeatIntensity
		if downbeat {
			intensity = c.config.DownbeatIntensity
		}
		effects = append(effects, Effect{
			Type:       Pulse,
			Layer:      Rhythm,
			StartMs:    start,
			DurationMs: int(float64(interval) * c.config.BeatDurationRatio),
			Intensity:  intensity,
			Speed:      0.7,
			Colors:     []palette.RGB{colorAt(req, t)},
			Params:     map[string]any{"is_downbeat": downbeat},
		})
	}
	return effects
}

func (c *Composer) bassEffects(req Request) []Effect {
	if req.Stems == nil || req.Stems.Bass == nil {
		return nil
	}
	bass := req.Stems.Bass
	effects := make([]Effect, 0, len(bass.PeakTimes))
	for i, t := range bass.PeakTimes {
		effects = append(effects, Effect{
			Type:       Wave,
			Layer:      Rhythm,
			StartMs:    toMs(t),
			DurationMs: 300,
			Intensity:  bass.PeakLevels[i],
			Speed:      0.6,
			Colors:     slices.Clone(warmColors),
			Params:     map[string]any{"direction": "outward"},
		})
	}
	return effects
}

func (c *Composer) vocalEffects(req Request) []Effect {
	vocals := req.Stems.VocalTrack()
	if vocals == nil {
		return nil
	}
	effects := []Effect{}
	for _, run := range vocals.Runs() {
		start, end := toMs(run.Start), toMs(run.End)
		if end <= start {
			continue
		}
		effects = append(effects, Effect{
			Type:       Breathe,
			Layer:      Melody,
			StartMs:    start,
			DurationMs: end - start,
			Intensity:  0.6,
			Speed:      0.3,
			Colors:     slices.Clone(softWhites),
			Params:     map[string]any{"center_focus": true},
		})
	}
	return effects
}

func (c *Composer) dropEffects(req Request) []Effect {
	effects := []Effect{}
	for _, d := range req.Drops {
		start := toMs(d.Timestamp)
		switch d.Type {
		case beats.EventDrop:
			explosion := Effect{
				Type:       Explosion,
				Layer:      Accent,
				StartMs:    start,
				DurationMs: c.config.ExplosionMs,
				Intensity:  1.0,
				Speed:      0.9,
				Colors:     slices.Clone(dropColors),
				Params:     map[string]any{"strobe_count": 3},
			}
			effects = append(effects, explosion, Effect{
				Type:       Strobe,
				Layer:      Accent,
				StartMs:    explosion.EndMs(),
				DurationMs: c.config.StrobeMs,
				Intensity:  0.8,
				Speed:      0.95,
				Colors:     []palette.RGB{palette.White},
				Params:     map[string]any{"frequency_hz": 10},
			})
		case beats.EventBuildup:
			duration := d.DurationMs
			if duration <= 0 {
				duration = c.config.DefaultBuildupMs
			}
			// buildups carry their own start time
			effects = append(effects, Effect{
				Type:       Sweep,
				Layer:      Accent,
				StartMs:    start,
				DurationMs: duration,
				Intensity:  0.3,
				Speed:      0.3,
				Colors:     slices.Clone(sweepColor),
				Params: map[string]any{
					"intensity_end": 1.0,
					"speed_end":     0.9,
					"direction":     "up",
				},
			})
		}
	}
	return effects
}

func (c *Composer) structureEffects(req Request) []Effect {
	effects := []Effect{}
	for _, s := range req.Sections {
		start, end := toMs(s.Start), toMs(s.End)
		switch s.Label {
		case structure.LabelIntro:
			effects = append(effects, Effect{
				Type:       Fade,
				Layer:      Background,
				StartMs:    start,
				DurationMs: min(5000, end-start),
				Intensity:  0,
				Speed:      0.2,
				Colors:     []palette.RGB{introColor},
				Params:     map[string]any{"fade_in": true, "target_intensity": 0.4},
			})
		case structure.LabelChorus:
			effects = append(effects, Effect{
				Type:       Rainbow,
				Layer:      Background,
				StartMs:    start,
				DurationMs: end - start,
				Intensity:  0.7,
				Speed:      0.5,
				Colors:     []palette.RGB{},
				Params:     map[string]any{"wave_length": 30},
			})
		case structure.LabelBridge:
			effects = append(effects, Effect{
				Type:       Gradient,
				Layer:      Background,
				StartMs:    start,
				DurationMs: end - start,
				Intensity:  0.5,
				Speed:      0.3,
				Colors:     slices.Clone(bridgeHues),
				Params:     map[string]any{"blend_mode": "smooth"},
			})
		case structure.LabelOutro:
			effects = append(effects, Effect{
				Type:       Fade,
				Layer:      Background,
				StartMs:    start,
				DurationMs: end - start,
				Intensity:  0.4,
				Speed:      0.1,
				Colors:     []palette.RGB{palette.Black},
				Params:     map[string]any{"fade_out": true, "target_intensity": 0.0},
			})
		case structure.LabelVerse, structure.LabelInstrumental:
			// the mood layer already covers these
		}
	}
	return effects
}

func (c *Composer) chordEffects(req Request) []Effect {
	if req.Harmony == nil {
		return nil
	}
	effects := []Effect{}
	for _, ev := range req.Harmony.Chords {
		if ev.Confidence <= c.config.MinChordConfidence {
			continue
		}
		hue := 0.0
		if chord, ok := tonal.ParseChord(ev.Chord); ok {
			hue = palette.ChromaticHue(chord.Root)
		}
		effects = append(effects, Effect{
			Type:       Sparkle,
			Layer:      Melody,
			StartMs:    ev.TimeMs,
			DurationMs: 500,
			Intensity:  math.Min(1, ev.Confidence),
			Speed:      0.6,
			Colors:     []palette.RGB{palette.FromHSV(hue, 1, 1)},
			Params:     map[string]any{"density": 0.3},
		})
	}
	return effects
}
