package spectral

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT wraps mjibson/go-dsp for real-valued frames
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute returns the full complex spectrum of x. go-dsp handles
// non-power-of-two sizes with Bluestein's algorithm.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return fft.FFTReal(x)
}

// Magnitudes returns |X[k]| for the len(x)/2+1 non-negative frequency bins
func (f *FFT) Magnitudes(x []float64) []float64 {
	if len(x) == 0 {
		return []float64{}
	}
	spectrum := fft.FFTReal(x)
	bins := len(x)/2 + 1
	mags := make([]float64, bins)
	for k := range bins {
		mags[k] = cmplx.Abs(spectrum[k])
	}
	return mags
}

// BinFrequencies returns the centre frequency of each of the n/2+1 bins
func BinFrequencies(sampleRate, fftSize int) []float64 {
	bins := fftSize/2 + 1
	freqs := make([]float64, bins)
	for k := range bins {
		freqs[k] = float64(k) * float64(sampleRate) / float64(fftSize)
	}
	return freqs
}
