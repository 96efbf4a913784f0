package structure

import (
	"math"
	"math/rand"
	"testing"
)

const testSampleRate = 22050

// sectionSignal alternates a quiet C major pad with a loud, noisy F# major
// section, sectionSeconds each
func sectionSignal(sections int, sectionSeconds float64) []float64 {
	rng := rand.New(rand.NewSource(7))
	per := int(sectionSeconds * testSampleRate)
	signal := make([]float64, per*sections)
	for s := range sections {
		for i := range per {
			t := float64(s*per+i) / testSampleRate
			var v float64
			if s%2 == 0 {
				v = 0.1 * (math.Sin(2*math.Pi*261.63*t) + math.Sin(2*math.Pi*329.63*t) + math.Sin(2*math.Pi*392.0*t))
			} else {
				v = 0.25*(math.Sin(2*math.Pi*369.99*t)+math.Sin(2*math.Pi*466.16*t)+math.Sin(2*math.Pi*554.37*t)) +
					0.2*rng.NormFloat64()
			}
			signal[s*per+i] = v
		}
	}
	return signal
}

// beatFrames returns onset-envelope frames of a steady beat at hop 512
func beatFrames(bpm, seconds float64) []int {
	frames := []int{}
	for t := 0.0; t < seconds; t += 60 / bpm {
		frames = append(frames, int(t*testSampleRate/512))
	}
	return frames
}

// assertPartition checks that segments tile [0, duration] exactly
func assertPartition(t testing.TB, segments []Segment, duration float64) {
	t.Helper()
	if len(segments) == 0 {
		t.Fatalf("no segments")
	}
	if segments[0].Start != 0 {
		t.Errorf("first segment starts at %v, want 0", segments[0].Start)
	}
	if end := segments[len(segments)-1].End; math.Abs(end-duration) > 1e-9 {
		t.Errorf("last segment ends at %v, want %v", end, duration)
	}
	for i, s := range segments {
		if s.Duration() <= 0 {
			t.Errorf("segment %d has non-positive duration %v", i, s.Duration())
		}
		if i > 0 && s.Start != segments[i-1].End {
			t.Errorf("gap or overlap between segment %d and %d: %v != %v", i-1, i, segments[i-1].End, s.Start)
		}
		if s.Confidence <= 0 || s.Confidence > 1 {
			t.Errorf("segment %d confidence %v", i, s.Confidence)
		}
	}
}
