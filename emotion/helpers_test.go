package emotion

import (
	"math"
	"math/rand"
)

const testSampleRate = 22050

// triadSignal sustains C4 E4 G4 with a little seeded noise on top
func triadSignal(seconds float64) []float64 {
	rng := rand.New(rand.NewSource(3))
	n := int(seconds * testSampleRate)
	signal := make([]float64, n)
	for i := range signal {
		t := float64(i) / testSampleRate
		signal[i] = 0.2*(math.Sin(2*math.Pi*261.63*t)+math.Sin(2*math.Pi*329.63*t)+math.Sin(2*math.Pi*392.0*t)) +
			0.01*rng.NormFloat64()
	}
	return signal
}

// quietThenLoud switches from a soft tone to loud noise halfway through
func quietThenLoud(seconds float64) []float64 {
	rng := rand.New(rand.NewSource(5))
	n := int(seconds * testSampleRate)
	signal := make([]float64, n)
	for i := range signal {
		t := float64(i) / testSampleRate
		if i < n/2 {
			signal[i] = 0.05 * math.Sin(2*math.Pi*220*t)
		} else {
			signal[i] = 0.6 * rng.NormFloat64()
		}
	}
	return signal
}

// statesAt builds one state per second from (valence, arousal) pairs
func statesAt(points ...[2]float64) []State {
	states := make([]State, len(points))
	for i, p := range points {
		states[i] = State{Timestamp: float64(i), Valence: p[0], Arousal: p[1]}
	}
	return states
}

// repeat returns count copies of p
func repeat(p [2]float64, count int) [][2]float64 {
	out := make([][2]float64, count)
	for i := range out {
		out[i] = p
	}
	return out
}
