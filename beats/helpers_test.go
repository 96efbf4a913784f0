package beats

import (
	"math"
)

const testSampleRate = 22050

// clickTrack renders decaying 1 kHz bursts at the given tempo
func clickTrack(bpm, seconds float64, sampleRate int) []float64 {
	n := int(seconds * float64(sampleRate))
	signal := make([]float64, n)
	period := 60.0 / bpm
	clickLen := int(0.1 * float64(sampleRate))
	for t := 0.0; t < seconds; t += period {
		start := int(t * float64(sampleRate))
		for k := 0; k < clickLen && start+k < n; k++ {
			tt := float64(k) / float64(sampleRate)
			signal[start+k] += math.Sin(2*math.Pi*1000*tt) * math.Exp(-tt/0.01)
		}
	}
	return signal
}

// chordTone sums equal-amplitude sines
func chordTone(t float64, freqs ...float64) float64 {
	v := 0.0
	for _, f := range freqs {
		v += math.Sin(2 * math.Pi * f * t)
	}
	return v
}

// dropSignal holds a C major chord over a 60 Hz bass, ramps amplitude from
// 1 to 1.5 over [18.5, 20) seconds and then jumps to 3x on a D major chord
func dropSignal(seconds float64, sampleRate int) []float64 {
	n := int(seconds * float64(sampleRate))
	signal := make([]float64, n)
	for i := range signal {
		t := float64(i) / float64(sampleRate)
		gain := 1.0
		switch {
		case t >= 20:
			gain = 3
		case t >= 18.5:
			gain = 1 + 0.5*(t-18.5)/1.5
		}
		var tone float64
		if t < 20 {
			tone = chordTone(t, 261.63, 329.63, 392.0)
		} else {
			tone = chordTone(t, 293.66, 369.99, 440.0)
		}
		signal[i] = 0.05 * gain * (tone + 1.5*math.Sin(2*math.Pi*60*t))
	}
	return signal
}

// steadySignal is the pre-ramp part of dropSignal held for the whole clip
func steadySignal(seconds float64, sampleRate int) []float64 {
	n := int(seconds * float64(sampleRate))
	signal := make([]float64, n)
	for i := range signal {
		t := float64(i) / float64(sampleRate)
		signal[i] = 0.05 * (chordTone(t, 261.63, 329.63, 392.0) + 1.5*math.Sin(2*math.Pi*60*t))
	}
	return signal
}

// regularGrid builds a 120 BPM grid with downbeats on every fourth beat
func regularGrid(seconds float64) *BeatGrid {
	grid := &BeatGrid{Tempo: 120, HopSize: 512, SampleRate: testSampleRate}
	for i := 0; float64(i)*0.5 < seconds; i++ {
		t := float64(i) * 0.5
		grid.BeatTimes = append(grid.BeatTimes, t)
		grid.BeatFrames = append(grid.BeatFrames, int(t*testSampleRate/512))
		if i%4 == 0 {
			grid.Downbeats = append(grid.Downbeats, t)
		}
	}
	return grid
}

// fMeasure scores estimated beats against reference beats with a 70 ms
// window, ignoring beats in the first five seconds
func fMeasure(reference, estimated []float64) float64 {
	trim := func(b []float64) []float64 {
		out := []float64{}
		for _, t := range b {
			if t >= 5 {
				out = append(out, t)
			}
		}
		return out
	}
	ref, est := trim(reference), trim(estimated)
	if len(ref) == 0 || len(est) == 0 {
		return 0
	}
	used := make([]bool, len(est))
	hits := 0
	for _, r := range ref {
		for j, e := range est {
			if !used[j] && math.Abs(r-e) <= 0.07 {
				used[j] = true
				hits++
				break
			}
		}
	}
	precision := float64(hits) / float64(len(est))
	recall := float64(hits) / float64(len(ref))
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}
