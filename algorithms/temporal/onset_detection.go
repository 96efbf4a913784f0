package temporal

import (
	"fmt"

	"github.com/RyanBlaney/genesis-map/algorithms/common"
	"github.com/RyanBlaney/genesis-map/algorithms/spectral"
	"github.com/RyanBlaney/genesis-map/algorithms/windowing"
)

// OnsetDetection computes onset strength envelopes and picks onsets from them
type OnsetDetection struct {
	stft     *spectral.STFT
	melScale *spectral.MelScale
	numMels  int
	lag      int
}

// NewOnsetDetection creates a new onset detector (128 mel bands, lag 1)
func NewOnsetDetection() *OnsetDetection {
	return &OnsetDetection{
		stft:     spectral.NewSTFT(),
		melScale: spectral.NewMelScale(),
		numMels:  128,
		lag:      1,
	}
}

// Strength computes the onset envelope of signal with a 2048-sample centred
// STFT at the given hop
func (od *OnsetDetection) Strength(signal []float64, sampleRate, hopSize int) ([]float64, error) {
	params := spectral.STFTParams{WindowSize: 2048, HopSize: hopSize, Center: true}
	result, err := od.stft.Compute(signal, sampleRate, params, windowing.NewHann(params.WindowSize))
	if err != nil {
		return nil, fmt.Errorf("onset stft: %w", err)
	}
	return od.StrengthFromSTFT(result), nil
}

// StrengthFromSTFT computes the half-wave rectified log-mel flux averaged over
// bands. The curve is delayed by lag + windowSize/(2*hop) frames so that a
// peak lands on the frame of the onset rather than on the first centred
// frame whose window reaches it.
func (od *OnsetDetection) StrengthFromSTFT(result *spectral.STFTResult) []float64 {
	if result == nil || result.TimeFrames == 0 {
		return []float64{}
	}
	mel := od.melScale.MelSpectrogram(result, od.numMels, 0, float64(result.SampleRate)/2)
	logMel := spectral.PowerToDB(mel, 80)

	n := len(logMel)
	pad := od.lag + result.WindowSize/(2*result.HopSize)
	envelope := make([]float64, n)
	for t := od.lag; t < n; t++ {
		dst := t - od.lag + pad
		if dst >= n {
			break
		}
		sum := 0.0
		for b := range logMel[t] {
			if d := logMel[t][b] - logMel[t-od.lag][b]; d > 0 {
				sum += d
			}
		}
		envelope[dst] = sum / float64(len(logMel[t]))
	}
	return envelope
}

// DetectOnsets normalizes the envelope to [0, 1] and peak-picks it with
// windows of 30 ms (max) and 100 ms (average), delta 0.07
func (od *OnsetDetection) DetectOnsets(envelope []float64, sampleRate, hopSize int) []int {
	if len(envelope) == 0 {
		return []int{}
	}
	norm := common.MinMaxNormalize(envelope)
	framesPerSec := float64(sampleRate) / float64(hopSize)
	return common.PeakPick(norm, common.PeakPickParams{
		PreMax:  int(0.03 * framesPerSec),
		PostMax: 1,
		PreAvg:  int(0.10 * framesPerSec),
		PostAvg: int(0.10*framesPerSec) + 1,
		Delta:   0.07,
		Wait:    int(0.03 * framesPerSec),
	})
}
