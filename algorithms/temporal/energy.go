package temporal

import (
	"math"
)

// Energy computes frame energy envelopes
type Energy struct {
	frameSize  int
	hopSize    int
	sampleRate int
}

// NewEnergy creates a new energy calculator
func NewEnergy(frameSize, hopSize, sampleRate int) *Energy {
	return &Energy{
		frameSize:  frameSize,
		hopSize:    hopSize,
		sampleRate: sampleRate,
	}
}

// ComputeRMS returns the RMS of centred frames: the signal is zero padded by
// frameSize/2 on both sides, so frame t is centred on sample t*hopSize and
// lines up with a centred STFT of the same hop.
func (e *Energy) ComputeRMS(signal []float64) []float64 {
	if len(signal) == 0 || e.hopSize <= 0 || e.frameSize <= 0 {
		return []float64{}
	}

	numFrames := 1 + len(signal)/e.hopSize
	half := e.frameSize / 2
	energies := make([]float64, numFrames)

	for i := range numFrames {
		startIdx := i*e.hopSize - half
		endIdx := startIdx + e.frameSize

		sumSquares := 0.0
		for j := max(startIdx, 0); j < endIdx && j < len(signal); j++ {
			sumSquares += signal[j] * signal[j]
		}
		energies[i] = math.Sqrt(sumSquares / float64(e.frameSize))
	}

	return energies
}

// ComputeEnergyDerivative returns |e[i] - e[i-1]| with a leading zero, the
// energy change cue used for boundary fusion
func (e *Energy) ComputeEnergyDerivative(energies []float64) []float64 {
	derivative := make([]float64, len(energies))
	for i := 1; i < len(energies); i++ {
		derivative[i] = math.Abs(energies[i] - energies[i-1])
	}
	return derivative
}

// FrameTime converts a frame index to seconds
func (e *Energy) FrameTime(frame int) float64 {
	if e.sampleRate <= 0 {
		return 0
	}
	return float64(frame*e.hopSize) / float64(e.sampleRate)
}
