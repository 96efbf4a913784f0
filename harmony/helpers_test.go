package harmony

import "math"

const testSampleRate = 22050

// note frequencies in the fourth octave
var (
	noteC4  = 261.63
	noteD4  = 293.66
	noteE4  = 329.63
	noteF4  = 349.23
	noteG3  = 196.00
	noteA3  = 220.00
	noteB3  = 246.94
	noteA4  = 440.00
	cMajor  = []float64{noteC4, noteE4, 392.00}
	aMinor  = []float64{noteA3, noteC4, noteE4}
	gMajor  = []float64{noteG3, noteB3, noteD4}
	fMajor  = []float64{noteF4, noteA4, 523.25}
	allFour = [][]float64{cMajor, aMinor, gMajor, fMajor}
)

// chordSignal plays each chord for secondsEach, as equal-amplitude sines
func chordSignal(secondsEach float64, chords ...[]float64) []float64 {
	per := int(secondsEach * testSampleRate)
	signal := make([]float64, per*len(chords))
	for c, freqs := range chords {
		for i := 0; i < per; i++ {
			t := float64(c*per+i) / testSampleRate
			v := 0.0
			for _, f := range freqs {
				v += math.Sin(2 * math.Pi * f * t)
			}
			signal[c*per+i] = 0.2 * v
		}
	}
	return signal
}
