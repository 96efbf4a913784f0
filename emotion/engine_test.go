package emotion

import (
	"context"
	"math"
	"testing"

	"github.com/RyanBlaney/genesis-map/features"
	"github.com/RyanBlaney/genesis-map/stems"
)

func TestStatesRanges(t *testing.T) {
	signal := triadSignal(10)
	engine := NewEngine(DefaultConfig())

	analysis, err := engine.Analyze(context.Background(), signal, testSampleRate, 120, nil)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	states := analysis.States
	if want := 1 + len(signal)/2048; len(states) != want {
		t.Fatalf("got %d states, want %d", len(states), want)
	}
	for i, s := range states {
		if s.Valence < -1 || s.Valence > 1 {
			t.Errorf("state %d valence %v out of [-1, 1]", i, s.Valence)
		}
		if s.Arousal < 0 || s.Arousal > 1 {
			t.Errorf("state %d arousal %v out of [0, 1]", i, s.Arousal)
		}
		if s.Tension < 0 || s.Tension > 1 {
			t.Errorf("state %d tension %v out of [0, 1]", i, s.Tension)
		}
		if s.Confidence < 0 || s.Confidence > 1 {
			t.Errorf("state %d confidence %v out of [0, 1]", i, s.Confidence)
		}
		if want := float64(i*2048) / testSampleRate; math.Abs(s.Timestamp-want) > 1e-9 {
			t.Errorf("state %d timestamp %v, want %v", i, s.Timestamp, want)
		}
	}
	if len(analysis.Segments) == 0 {
		t.Fatal("no mood segments")
	}
	if analysis.Segments[0].Start != 0 {
		t.Errorf("first mood segment starts at %v", analysis.Segments[0].Start)
	}
	if last := analysis.Segments[len(analysis.Segments)-1]; last.End != states[len(states)-1].Timestamp {
		t.Errorf("last mood segment ends at %v, want %v", last.End, states[len(states)-1].Timestamp)
	}
	if n := len(analysis.Curves.Valence); n == 0 || n > 100 {
		t.Errorf("curves have %d points", n)
	}
}

func TestTempoRaisesArousal(t *testing.T) {
	ex := features.NewExtractor(triadSignal(8), testSampleRate)
	engine := NewEngine(DefaultConfig())

	slow, err := engine.States(context.Background(), ex, 60, nil)
	if err != nil {
		t.Fatal(err)
	}
	fast, err := engine.States(context.Background(), ex, 200, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := range slow {
		if slow[i].Arousal <= 1e-9 || fast[i].Arousal >= 1-1e-9 {
			continue
		}
		if d := fast[i].Arousal - slow[i].Arousal; math.Abs(d-0.2) > 1e-6 {
			t.Errorf("frame %d: arousal rose by %v, want 0.2", i, d)
		}
		if slow[i].Valence != fast[i].Valence {
			t.Errorf("frame %d: tempo changed valence", i)
		}
	}
}

func TestVocalPresenceRaisesArousal(t *testing.T) {
	ex := features.NewExtractor(triadSignal(10), testSampleRate)
	engine := NewEngine(DefaultConfig())

	vocals := &stems.VocalFeatures{
		Envelope: stems.Envelope{RMS: make([]float64, 100), FramePeriod: 0.1},
		Presence: make([]bool, 100),
	}
	for i := range 50 {
		vocals.Presence[i] = true
	}

	plain, err := engine.States(context.Background(), ex, 60, nil)
	if err != nil {
		t.Fatal(err)
	}
	sung, err := engine.States(context.Background(), ex, 60, vocals)
	if err != nil {
		t.Fatal(err)
	}
	for i := range plain {
		d := sung[i].Arousal - plain[i].Arousal
		switch ts := plain[i].Timestamp; {
		case ts < 4:
			if math.Abs(d-0.1) > 1e-6 {
				t.Errorf("frame at %.2fs: boost %v, want 0.1", ts, d)
			}
		case ts > 6:
			if math.Abs(d) > 1e-9 {
				t.Errorf("frame at %.2fs: boost %v without vocals", ts, d)
			}
		}
	}
}

func TestLoudSectionRaisesArousalAndTension(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	states, err := engine.States(context.Background(),
		features.NewExtractor(quietThenLoud(20), testSampleRate), 120, nil)
	if err != nil {
		t.Fatal(err)
	}

	var quiet, loud, quietConf, loudConf float64
	var nq, nl int
	peak, peakAt := -1.0, 0.0
	for _, s := range states {
		switch {
		case s.Timestamp < 9:
			quiet += s.Arousal
			quietConf += s.Confidence
			nq++
		case s.Timestamp > 11:
			loud += s.Arousal
			loudConf += s.Confidence
			nl++
		}
		if s.Tension > peak {
			peak, peakAt = s.Tension, s.Timestamp
		}
	}
	if loud/float64(nl) <= quiet/float64(nq) {
		t.Errorf("loud arousal %.3f not above quiet %.3f", loud/float64(nl), quiet/float64(nq))
	}
	if loudConf/float64(nl) <= quietConf/float64(nq) {
		t.Errorf("loud confidence not above quiet confidence")
	}
	if math.Abs(peakAt-10) > 1 {
		t.Errorf("tension peaks at %.2fs, want near the 10s switch", peakAt)
	}
}

func TestDissonance(t *testing.T) {
	tests := []struct {
		name   string
		chroma []float64
		want   float64
	}{
		{"single note", []float64{1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, 0},
		{"major triad", []float64{1, 0, 0, 0, 1, 0, 0, 1, 0, 0, 0, 0}, 0.5 / 3},
		{"semitone", []float64{1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, 1},
		{"weighted tritone", []float64{0.5, 0, 0, 0, 0, 0, 0.4, 0, 0, 0, 0, 0}, 0.9 * 0.2},
		{"quiet classes ignored", []float64{1, 0.05, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Dissonance(tt.chroma, 0.1); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Dissonance() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		valence, arousal float64
		want             Mood
	}{
		{0.5, 0.6, MoodHappy},
		{0.1, 0.8, MoodExcited},
		{-0.5, 0.6, MoodAngry},
		{0, 0.65, MoodTense},
		{-0.4, 0.4, MoodSad},
		{-0.8, 0.1, MoodSad}, // sad shadows depressed
		{0.5, 0.2, MoodCalm},
		{0.1, 0.2, MoodRelaxed},
		{0, 0.5, MoodNeutral},
		{-0.2, 0.1, MoodNeutral}, // no quadrant
	}
	for _, tt := range tests {
		if got := Classify(tt.valence, tt.arousal); got != tt.want {
			t.Errorf("Classify(%v, %v) = %s, want %s", tt.valence, tt.arousal, got, tt.want)
		}
	}
}

func TestMoodPalettes(t *testing.T) {
	for _, q := range quadrants {
		if p := q.mood.Palette(); len(p) != 3 {
			t.Errorf("%s palette has %d colors", q.mood, len(p))
		}
	}
	if p := Mood("unknown").Palette(); p[0] != MoodNeutral.Palette()[0] {
		t.Error("unknown mood should use the neutral palette")
	}
}

func TestSegmentAbsorbsShortRuns(t *testing.T) {
	happy, sad, calm := [2]float64{0.5, 0.6}, [2]float64{-0.5, 0.2}, [2]float64{0.5, 0.2}
	points := repeat(happy, 10)
	points = append(points, repeat(sad, 3)...)
	points = append(points, repeat(calm, 12)...)
	states := statesAt(points...)

	segments := Segment(states, 5)
	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2: %+v", len(segments), segments)
	}
	first, second := segments[0], segments[1]
	if first.Mood != MoodHappy || first.Start != 0 || first.End != 10 {
		t.Errorf("first segment = %+v", first)
	}
	if second.Mood != MoodCalm || second.Start != 10 || second.End != 24 {
		t.Errorf("second segment = %+v", second)
	}
	// the absorbed sad states count toward the calm averages
	if math.Abs(second.Valence-0.3) > 1e-9 {
		t.Errorf("calm valence = %v, want 0.3", second.Valence)
	}
	if len(second.Colors) != 3 || second.Colors[0] != MoodCalm.Palette()[0] {
		t.Errorf("calm colors = %v", second.Colors)
	}
}

func TestSegmentEdgeCases(t *testing.T) {
	if got := Segment(nil, 5); got == nil || len(got) != 0 {
		t.Errorf("Segment(nil) = %v, want empty", got)
	}

	// a single short run still yields one segment
	states := statesAt(repeat([2]float64{0.5, 0.6}, 3)...)
	got := Segment(states, 5)
	if len(got) != 1 || got[0].Start != 0 || got[0].End != 2 {
		t.Errorf("Segment(short) = %+v", got)
	}
}

func TestDominantMood(t *testing.T) {
	if got := DominantMood(nil); got != MoodNeutral {
		t.Errorf("DominantMood(nil) = %s", got)
	}
	states := statesAt([2]float64{0.6, 0.7}, [2]float64{0.4, 0.5}, [2]float64{0.5, 0.6})
	if got := DominantMood(states); got != MoodHappy {
		t.Errorf("DominantMood() = %s, want happy", got)
	}
}

func TestSampleCurves(t *testing.T) {
	tests := []struct {
		states, want int
	}{
		{0, 0},
		{50, 50},
		{100, 100},
		{250, 84},
	}
	for _, tt := range tests {
		states := make([]State, tt.states)
		for i := range states {
			states[i] = State{Timestamp: float64(i) * 0.0929, Valence: 0.1, Arousal: 0.2, Tension: 0.3}
		}
		c := SampleCurves(states, 100)
		if len(c.Valence) != tt.want || len(c.TimestampsMs) != tt.want {
			t.Errorf("%d states: got %d points, want %d", tt.states, len(c.Valence), tt.want)
			continue
		}
		if c.Valence == nil || c.TimestampsMs == nil {
			t.Errorf("%d states: nil curves", tt.states)
		}
		for i := 1; i < len(c.TimestampsMs); i++ {
			if c.TimestampsMs[i] <= c.TimestampsMs[i-1] {
				t.Fatalf("timestamps not increasing at %d", i)
			}
		}
	}
}

func TestAnalyzeErrors(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	if _, err := engine.Analyze(context.Background(), nil, testSampleRate, 120, nil); err == nil {
		t.Error("expected error for empty signal")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := engine.Analyze(ctx, triadSignal(2), testSampleRate, 120, nil); err == nil {
		t.Error("expected error for cancelled context")
	}
}
