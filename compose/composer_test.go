package compose

import (
	"reflect"
	"testing"

	"github.com/RyanBlaney/genesis-map/algorithms/tonal"
	"github.com/RyanBlaney/genesis-map/beats"
	"github.com/RyanBlaney/genesis-map/emotion"
	"github.com/RyanBlaney/genesis-map/harmony"
	"github.com/RyanBlaney/genesis-map/palette"
	"github.com/RyanBlaney/genesis-map/stems"
	"github.com/RyanBlaney/genesis-map/structure"
)

// fullRequest builds a 40 s song with every analysis present
func fullRequest() Request {
	grid := &beats.BeatGrid{Tempo: 120}
	for i := range 80 {
		t := float64(i) * 0.5
		grid.BeatTimes = append(grid.BeatTimes, t)
		if i%4 == 0 {
			grid.Downbeats = append(grid.Downbeats, t)
		}
	}

	presence := make([]bool, 400)
	for i := 100; i < 200; i++ {
		presence[i] = true
	}

	return Request{
		Beats: grid,
		Drops: []beats.DropEvent{
			{Timestamp: 12, Type: beats.EventBuildup, Confidence: 0.6, DurationMs: 4000},
			{Timestamp: 16, Type: beats.EventDrop, Confidence: 0.9, EnergyRatio: 3},
			{Timestamp: 30.5, Type: beats.EventDrop, Confidence: 0.7, EnergyRatio: 2.5},
		},
		Moods: []emotion.MoodSegment{
			{Mood: emotion.MoodCalm, Start: 0, End: 16, Colors: emotion.MoodCalm.Palette()},
			{Mood: emotion.MoodExcited, Start: 16, End: 40, Colors: emotion.MoodExcited.Palette()},
		},
		Sections: []structure.Segment{
			{Label: structure.LabelIntro, Start: 0, End: 8, Confidence: 0.8},
			{Label: structure.LabelVerse, Start: 8, End: 16, Confidence: 0.6},
			{Label: structure.LabelChorus, Start: 16, End: 28, Confidence: 0.7},
			{Label: structure.LabelBridge, Start: 28, End: 34, Confidence: 0.6},
			{Label: structure.LabelOutro, Start: 34, End: 40, Confidence: 0.8},
		},
		Harmony: &harmony.Analysis{
			Key: harmony.KeyEstimate{Root: 9, Mode: tonal.KeyModeMinor, Name: "A minor", Confidence: 0.8},
			Chords: []harmony.ChordEvent{
				{TimeMs: 0, Chord: "Am", Confidence: 0.9},
				{TimeMs: 2000, Chord: "F", Confidence: 0.2},
				{TimeMs: 4000, Chord: "C", Confidence: 0.6},
			},
		},
		Stems: &stems.Features{
			Bass: &stems.BassFeatures{
				Envelope:   stems.Envelope{RMS: make([]float64, 400), FramePeriod: 0.1},
				PeakTimes:  []float64{1, 2.5, 20},
				PeakLevels: []float64{0.5, 1, 0.75},
			},
			Vocals: &stems.VocalFeatures{
				Envelope: stems.Envelope{RMS: make([]float64, 400), FramePeriod: 0.1},
				Presence: presence,
			},
		},
	}
}

func countType(effects []Effect, kind EffectType) int {
	n := 0
	for _, e := range effects {
		if e.Type == kind {
			n++
		}
	}
	return n
}

func TestComposeOrdering(t *testing.T) {
	effects := Compose(fullRequest())
	if len(effects) == 0 {
		t.Fatal("no effects")
	}
	for i := 1; i < len(effects); i++ {
		prev, cur := effects[i-1], effects[i]
		if cur.StartMs < prev.StartMs || (cur.StartMs == prev.StartMs && cur.Layer < prev.Layer) {
			t.Fatalf("effects %d and %d out of order: (%d, %s) then (%d, %s)",
				i-1, i, prev.StartMs, prev.Layer, cur.StartMs, cur.Layer)
		}
	}
}

func TestComposeIdempotent(t *testing.T) {
	req := fullRequest()
	composer := NewComposer(DefaultConfig())
	first := composer.Compose(req)
	second := composer.Compose(req)
	if !reflect.DeepEqual(first, second) {
		t.Error("two compositions of the same request differ")
	}
	if !reflect.DeepEqual(req, fullRequest()) {
		t.Error("Compose modified its request")
	}
}

func TestDropPairing(t *testing.T) {
	req := fullRequest()
	effects := Compose(req)

	for _, d := range req.Drops {
		if d.Type != beats.EventDrop {
			continue
		}
		at := toMs(d.Timestamp)
		var explosion *Effect
		for i := range effects {
			e := &effects[i]
			if e.Type == Explosion && abs(e.StartMs-at) <= 250 {
				explosion = e
				break
			}
		}
		if explosion == nil {
			t.Errorf("no explosion within 250 ms of drop at %d ms", at)
			continue
		}
		found := false
		for _, e := range effects {
			if e.Type == Strobe && e.StartMs == explosion.StartMs+explosion.DurationMs {
				found = true
				if e.DurationMs != 1000 || e.Params["frequency_hz"] != 10 {
					t.Errorf("strobe after %d ms = %+v", at, e)
				}
			}
		}
		if !found {
			t.Errorf("no strobe following the explosion at %d ms", explosion.StartMs)
		}
	}

	if n := countType(effects, Explosion); n != 2 {
		t.Errorf("got %d explosions, want 2", n)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestBuildupSweep(t *testing.T) {
	effects := Compose(fullRequest())
	var sweeps []Effect
	for _, e := range effects {
		if e.Type == Sweep {
			sweeps = append(sweeps, e)
		}
	}
	if len(sweeps) != 1 {
		t.Fatalf("got %d sweeps, want 1", len(sweeps))
	}
	s := sweeps[0]
	if s.StartMs != 12000 || s.DurationMs != 4000 || s.Layer != Accent {
		t.Errorf("sweep = %+v", s)
	}
	if s.Params["intensity_end"] != 1.0 || s.Params["direction"] != "up" {
		t.Errorf("sweep params = %v", s.Params)
	}
}

func TestBeatPulses(t *testing.T) {
	req := fullRequest()
	effects := Compose(req)

	var pulses []Effect
	for _, e := range effects {
		if e.Type == Pulse {
			pulses = append(pulses, e)
		}
	}
	if len(pulses) != len(req.Beats.BeatTimes) {
		t.Fatalf("got %d pulses for %d beats", len(pulses), len(req.Beats.BeatTimes))
	}
	for i, p := range pulses {
		if p.DurationMs != 400 {
			t.Errorf("pulse %d duration %d, want 400", i, p.DurationMs)
		}
		wantIntensity := 0.5
		if i%4 == 0 {
			wantIntensity = 0.8
		}
		if p.Intensity != wantIntensity {
			t.Errorf("pulse %d intensity %v, want %v", i, p.Intensity, wantIntensity)
		}
	}
	if pulses[0].Colors[0] != emotion.MoodCalm.Palette()[0] {
		t.Errorf("first pulse color %v, want calm", pulses[0].Colors[0])
	}
	if last := pulses[len(pulses)-1]; last.Colors[0] != emotion.MoodExcited.Palette()[0] {
		t.Errorf("last pulse color %v, want excited", last.Colors[0])
	}
}

func TestBeatColorFallbacks(t *testing.T) {
	grid := &beats.BeatGrid{BeatTimes: []float64{1}}

	withKey := Compose(Request{Beats: grid, Harmony: &harmony.Analysis{Key: harmony.KeyEstimate{Root: 0}}})
	if got := withKey[0].Colors[0]; got != palette.FromHSV(0, 1, 1) {
		t.Errorf("key color = %v", got)
	}
	bare := Compose(Request{Beats: grid})
	if got := bare[0].Colors[0]; got != palette.Gray {
		t.Errorf("fallback color = %v, want gray", got)
	}
	if bare[0].DurationMs != 400 {
		t.Errorf("single beat duration %d, want 0.8 of the default interval", bare[0].DurationMs)
	}
}

func TestComposeWithoutStems(t *testing.T) {
	req := fullRequest()
	req.Stems = nil
	effects := Compose(req)
	if n := countType(effects, Wave); n != 0 {
		t.Errorf("got %d bass waves without stems", n)
	}
	if n := countType(effects, Breathe); n != 0 {
		t.Errorf("got %d vocal breathes without stems", n)
	}
	if countType(effects, Pulse) == 0 {
		t.Error("beats should still compose without stems")
	}
}

func TestStemEffects(t *testing.T) {
	effects := Compose(fullRequest())

	var waves, breathes []Effect
	for _, e := range effects {
		switch e.Type {
		case Wave:
			waves = append(waves, e)
		case Breathe:
			breathes = append(breathes, e)
		}
	}
	if len(waves) != 3 {
		t.Fatalf("got %d waves, want 3", len(waves))
	}
	if waves[1].StartMs != 2500 || waves[1].Intensity != 1 || waves[1].DurationMs != 300 {
		t.Errorf("wave = %+v", waves[1])
	}
	if len(breathes) != 1 {
		t.Fatalf("got %d breathes, want 1", len(breathes))
	}
	if b := breathes[0]; b.StartMs != 10000 || b.DurationMs != 10000 || b.Layer != Melody {
		t.Errorf("breathe = %+v", b)
	}
}

func TestStructureScenes(t *testing.T) {
	effects := Compose(fullRequest())

	scenes := map[EffectType][]Effect{}
	for _, e := range effects {
		if e.Layer == Background && e.Params["mood"] == nil {
			scenes[e.Type] = append(scenes[e.Type], e)
		}
	}
	if fades := scenes[Fade]; len(fades) != 2 {
		t.Fatalf("got %d scene fades, want intro and outro", len(fades))
	}
	intro, outro := scenes[Fade][0], scenes[Fade][1]
	if intro.StartMs != 0 || intro.DurationMs != 5000 || intro.Params["fade_in"] != true {
		t.Errorf("intro = %+v", intro)
	}
	if outro.StartMs != 34000 || outro.Colors[0] != palette.Black {
		t.Errorf("outro = %+v", outro)
	}
	if r := scenes[Rainbow]; len(r) != 1 || r[0].DurationMs != 12000 || len(r[0].Colors) != 0 {
		t.Errorf("chorus rainbow = %+v", r)
	}
	if g := scenes[Gradient]; len(g) != 1 || g[0].StartMs != 28000 {
		t.Errorf("bridge gradient = %+v", g)
	}
}

func TestMoodBackgrounds(t *testing.T) {
	effects := Compose(fullRequest())
	var moods []Effect
	for _, e := range effects {
		if e.Params["mood"] != nil {
			moods = append(moods, e)
		}
	}
	if len(moods) != 2 {
		t.Fatalf("got %d mood effects, want 2", len(moods))
	}
	if moods[0].Type != Solid || moods[0].Intensity != 0.4 {
		t.Errorf("calm background = %+v", moods[0])
	}
	if moods[1].Type != Rainbow || moods[1].StartMs != 16000 || moods[1].DurationMs != 24000 {
		t.Errorf("excited background = %+v", moods[1])
	}
}

func TestChordSparkles(t *testing.T) {
	effects := Compose(fullRequest())
	var sparkles []Effect
	for _, e := range effects {
		if e.Type == Sparkle {
			sparkles = append(sparkles, e)
		}
	}
	if len(sparkles) != 2 {
		t.Fatalf("got %d sparkles, want 2 above the confidence floor", len(sparkles))
	}
	if want := palette.FromHSV(palette.ChromaticHue(9), 1, 1); sparkles[0].Colors[0] != want {
		t.Errorf("A minor sparkle color %v, want %v", sparkles[0].Colors[0], want)
	}
	if sparkles[1].StartMs != 4000 || sparkles[1].Colors[0] != palette.FromHSV(0, 1, 1) {
		t.Errorf("C sparkle = %+v", sparkles[1])
	}
}

func TestComposeEmptyRequest(t *testing.T) {
	effects := Compose(Request{})
	if effects == nil || len(effects) != 0 {
		t.Errorf("Compose(empty) = %v, want empty", effects)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	cfg := DefaultConfig()
	cfg.BeatDurationRatio = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero beat duration ratio")
	}
	cfg = DefaultConfig()
	cfg.Firmware.LEDCount = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero led count")
	}
}
