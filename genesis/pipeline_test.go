package genesis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/RyanBlaney/genesis-map/apperrors"
	"github.com/RyanBlaney/genesis-map/compose"
	"github.com/RyanBlaney/genesis-map/stems"
)

const songSeconds = 12

func runSong(t *testing.T, sep stems.Separator, opts Options) *GenesisMap {
	t.Helper()
	m, err := NewPipeline(DefaultConfig(), sep).Run(context.Background(), Input{
		Filename:   "song.wav",
		Path:       "/music/song.wav",
		Samples:    song(songSeconds),
		SampleRate: testSampleRate,
	}, opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return m
}

func TestRunProducesCompleteMap(t *testing.T) {
	m := runSong(t, nil, DefaultOptions())

	if m.Version != "v4.0" {
		t.Errorf("version = %q", m.Version)
	}
	if m.Metadata.Filename != "song.wav" || m.Metadata.SampleRate != testSampleRate {
		t.Errorf("metadata = %+v", m.Metadata)
	}
	if m.Metadata.DurationMs != songSeconds*1000 {
		t.Errorf("duration = %d ms", m.Metadata.DurationMs)
	}
	if m.Beats.Tempo <= 0 || m.Beats.TotalBeats != len(m.Beats.BeatTimesMs) || m.Beats.TotalBeats == 0 {
		t.Errorf("beats = tempo %v, %d beats", m.Beats.Tempo, m.Beats.TotalBeats)
	}
	if m.Harmony.Key == "" || len(m.Harmony.ColorPalette) != 3 {
		t.Errorf("harmony key %q, palette %v", m.Harmony.Key, m.Harmony.ColorPalette)
	}
	if m.Harmony.TotalChords != len(m.Harmony.Progression) {
		t.Errorf("total chords %d for %d events", m.Harmony.TotalChords, len(m.Harmony.Progression))
	}

	segs := m.Structure.Segments
	if len(segs) == 0 || segs[0].StartMs != 0 {
		t.Fatalf("segments = %+v", segs)
	}
	for i := 1; i < len(segs); i++ {
		if segs[i].StartMs != segs[i-1].EndMs {
			t.Errorf("gap between segments %d and %d", i-1, i)
		}
	}
	if last := segs[len(segs)-1].EndMs; last < songSeconds*1000-50 || last > songSeconds*1000 {
		t.Errorf("last segment ends at %d ms", last)
	}
	if len(m.Structure.Transitions) != len(segs)-1 || len(m.Structure.Form) != len(segs) {
		t.Errorf("transitions %d, form %q for %d segments", len(m.Structure.Transitions), m.Structure.Form, len(segs))
	}

	if n := len(m.Emotion.Curves.Valence); n == 0 || n > 100 {
		t.Errorf("emotion curves have %d points", n)
	}
	if len(m.Emotion.MoodSegments) == 0 || m.Emotion.DominantMood == "" {
		t.Errorf("emotion = %+v", m.Emotion)
	}

	if len(m.Stems) != 0 {
		t.Errorf("stems section %v without separation", m.Stems)
	}
	if len(m.Effects) == 0 || len(m.Effects) > 100 || len(m.Composed) < len(m.Effects) {
		t.Errorf("%d effects of %d composed", len(m.Effects), len(m.Composed))
	}
	for _, e := range m.Composed {
		if e.Type == compose.Wave || e.Type == compose.Breathe {
			t.Fatalf("stem effect %s composed without stems", e.Type)
		}
	}
}

func TestRunJSONShape(t *testing.T) {
	m := runSong(t, nil, DefaultOptions())
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"version", "metadata", "beats", "drops", "harmony", "structure", "emotion", "stems", "effects"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("missing top-level key %q", key)
		}
	}
	if _, ok := doc["Composed"]; ok {
		t.Error("full effect list leaked into the map")
	}

	var beats map[string]any
	if err := json.Unmarshal(doc["beats"], &beats); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"tempo", "beat_times_ms", "downbeat_times_ms", "total_beats", "groove_score"} {
		if _, ok := beats[key]; !ok {
			t.Errorf("beats missing %q", key)
		}
	}

	var effects []map[string]any
	if err := json.Unmarshal(doc["effects"], &effects); err != nil {
		t.Fatal(err)
	}
	if _, ok := effects[0]["type"].(string); !ok {
		t.Errorf("effect type = %v, want a name", effects[0]["type"])
	}
}

func TestRunProgress(t *testing.T) {
	var mu sync.Mutex
	var fractions []float64
	var messages []string
	opts := DefaultOptions()
	opts.Progress = func(f float64, msg string) {
		mu.Lock()
		defer mu.Unlock()
		fractions = append(fractions, f)
		messages = append(messages, msg)
	}
	runSong(t, nil, opts)

	if len(fractions) != 8 {
		t.Fatalf("got %d progress calls, want 8: %v", len(fractions), messages)
	}
	if fractions[0] != ProgressLoaded || fractions[len(fractions)-1] != ProgressDone {
		t.Errorf("progress runs %v to %v", fractions[0], fractions[len(fractions)-1])
	}
	for i := 1; i < len(fractions); i++ {
		if fractions[i] <= fractions[i-1] {
			t.Errorf("progress went from %v to %v (%s)", fractions[i-1], fractions[i], messages[i])
		}
	}
}

func TestRunMaxEffects(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxEffects = 0
	all := runSong(t, nil, opts)
	if len(all.Effects) != len(all.Composed) {
		t.Errorf("MaxEffects 0 kept %d of %d", len(all.Effects), len(all.Composed))
	}

	opts.MaxEffects = 5
	few := runSong(t, nil, opts)
	if len(few.Effects) != min(5, len(few.Composed)) {
		t.Errorf("MaxEffects 5 kept %d", len(few.Effects))
	}
}

func TestRunWithStems(t *testing.T) {
	sep := &fakeSeparator{seconds: songSeconds}
	opts := DefaultOptions()
	opts.Stems = true
	opts.MaxEffects = 0
	m := runSong(t, sep, opts)

	if sep.calls != 1 {
		t.Errorf("separator called %d times", sep.calls)
	}
	if _, ok := m.Stems[stems.Bass]; !ok {
		t.Error("stems section missing bass")
	}
	v, ok := m.Stems[stems.Vocals]
	if !ok || v.PresenceRatio <= 0 || v.PresenceRatio >= 1 {
		t.Errorf("vocal summary = %+v", v)
	}

	breathes := 0
	for _, e := range m.Composed {
		if e.Type == compose.Breathe {
			breathes++
			if e.StartMs < 3500 || e.EndMs() > 8500 {
				t.Errorf("breathe %d-%d ms outside the sung part", e.StartMs, e.EndMs())
			}
		}
	}
	if breathes == 0 {
		t.Error("no breathe effect for the vocal stem")
	}
}

func TestRunErrors(t *testing.T) {
	ctx := context.Background()
	p := NewPipeline(DefaultConfig(), nil)

	if _, err := p.Run(ctx, Input{SampleRate: testSampleRate}, DefaultOptions()); !errors.Is(err, apperrors.ErrEmptySignal) {
		t.Errorf("empty input error = %v", err)
	}
	if _, err := p.Run(ctx, Input{Samples: []float64{0, 1}}, DefaultOptions()); err == nil {
		t.Error("expected error for zero sample rate")
	}

	opts := DefaultOptions()
	opts.Stems = true
	in := Input{Samples: song(2), SampleRate: testSampleRate}
	if _, err := p.Run(ctx, in, opts); err == nil {
		t.Error("expected error when stems are requested without a separator")
	}

	failing := NewPipeline(DefaultConfig(), &fakeSeparator{err: separatorFailure()})
	_, err := failing.Run(ctx, Input{Samples: song(4), SampleRate: testSampleRate}, opts)
	var cerr *apperrors.CollaboratorError
	if !errors.As(err, &cerr) || cerr.Collaborator != "demucs" {
		t.Errorf("separator failure error = %v, want CollaboratorError", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := p.Run(cancelled, in, DefaultOptions()); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled run error = %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	cfg := DefaultConfig()
	cfg.StemHopSize = cfg.StemFrameSize * 2
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for hop larger than frame")
	}
}
