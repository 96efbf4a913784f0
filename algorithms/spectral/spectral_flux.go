package spectral

import (
	"math"
)

// SpectralFlux computes the frame-to-frame spectral change
type SpectralFlux struct{}

// NewSpectralFlux creates a new spectral flux calculator
func NewSpectralFlux() *SpectralFlux {
	return &SpectralFlux{}
}

// Compute returns the L2 norm of the difference between consecutive frames.
// The output has one value per frame; frame 0 is zero.
func (sf *SpectralFlux) Compute(spectrogram [][]float64) []float64 {
	flux := make([]float64, len(spectrogram))
	for t := 1; t < len(spectrogram); t++ {
		sum := 0.0
		for f := 0; f < len(spectrogram[t]) && f < len(spectrogram[t-1]); f++ {
			diff := spectrogram[t][f] - spectrogram[t-1][f]
			sum += diff * diff
		}
		flux[t] = math.Sqrt(sum)
	}
	return flux
}

// ComputeRectified keeps only energy increases, the usual onset cue
func (sf *SpectralFlux) ComputeRectified(spectrogram [][]float64) []float64 {
	flux := make([]float64, len(spectrogram))
	for t := 1; t < len(spectrogram); t++ {
		sum := 0.0
		for f := 0; f < len(spectrogram[t]) && f < len(spectrogram[t-1]); f++ {
			if diff := spectrogram[t][f] - spectrogram[t-1][f]; diff > 0 {
				sum += diff * diff
			}
		}
		flux[t] = math.Sqrt(sum)
	}
	return flux
}

// BandEnergy sums the magnitudes of the lowest numBins bins of each frame
func BandEnergy(spectrogram [][]float64, numBins int) []float64 {
	energy := make([]float64, len(spectrogram))
	for t, frame := range spectrogram {
		sum := 0.0
		for k := 0; k < numBins && k < len(frame); k++ {
			sum += frame[k]
		}
		energy[t] = sum
	}
	return energy
}
