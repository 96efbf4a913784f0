package spectral

import (
	"fmt"
	"math"
)

// MFCC computes Mel-Frequency Cepstral Coefficients
type MFCC struct {
	numCoefficients int
	numMelFilters   int
	sampleRate      int
	lowFreq         float64
	highFreq        float64

	melScale  *MelScale
	dctMatrix [][]float64
}

// MFCCParams contains parameters for MFCC computation
type MFCCParams struct {
	NumCoefficients int     `json:"num_coefficients"` // default: 13
	NumMelFilters   int     `json:"num_mel_filters"`  // default: 128
	LowFreq         float64 `json:"low_freq"`         // default: 0
	HighFreq        float64 `json:"high_freq"`        // default: sampleRate/2
}

// NewMFCC creates a new MFCC computer with default parameters
func NewMFCC(sampleRate, numCoefficients int) *MFCC {
	return NewMFCCWithParams(sampleRate, MFCCParams{NumCoefficients: numCoefficients})
}

// NewMFCCWithParams creates a new MFCC computer with custom parameters
func NewMFCCWithParams(sampleRate int, params MFCCParams) *MFCC {
	if params.NumCoefficients <= 0 {
		params.NumCoefficients = 13
	}
	if params.NumMelFilters <= 0 {
		params.NumMelFilters = 128
	}
	if params.HighFreq <= 0 {
		params.HighFreq = float64(sampleRate) / 2.0
	}

	m := &MFCC{
		numCoefficients: params.NumCoefficients,
		numMelFilters:   params.NumMelFilters,
		sampleRate:      sampleRate,
		lowFreq:         params.LowFreq,
		highFreq:        params.HighFreq,
		melScale:        NewMelScale(),
	}
	m.createDCTMatrix()
	return m
}

// ComputeFrames returns one coefficient vector per STFT frame (time x coeff).
// Log-mel values are in dB with an 80 dB floor before the DCT.
func (m *MFCC) ComputeFrames(result *STFTResult) ([][]float64, error) {
	if result == nil || len(result.Magnitude) == 0 {
		return nil, fmt.Errorf("empty spectrogram")
	}
	if result.SampleRate != m.sampleRate {
		return nil, fmt.Errorf("spectrogram sample rate %d does not match MFCC sample rate %d", result.SampleRate, m.sampleRate)
	}

	mel := m.melScale.MelSpectrogram(result, m.numMelFilters, m.lowFreq, m.highFreq)
	logMel := PowerToDB(mel, 80)

	frames := make([][]float64, len(logMel))
	for t, frame := range logMel {
		frames[t] = m.applyDCT(frame)
	}
	return frames, nil
}

// createDCTMatrix builds an orthonormal DCT-II basis
func (m *MFCC) createDCTMatrix() {
	n := float64(m.numMelFilters)
	m.dctMatrix = make([][]float64, m.numCoefficients)
	for k := range m.numCoefficients {
		m.dctMatrix[k] = make([]float64, m.numMelFilters)
		scale := math.Sqrt(2.0 / n)
		if k == 0 {
			scale = math.Sqrt(1.0 / n)
		}
		for j := range m.numMelFilters {
			m.dctMatrix[k][j] = scale * math.Cos(math.Pi*float64(k)*(float64(j)+0.5)/n)
		}
	}
}

func (m *MFCC) applyDCT(logMel []float64) []float64 {
	coeffs := make([]float64, m.numCoefficients)
	for k, basis := range m.dctMatrix {
		sum := 0.0
		for j := 0; j < len(logMel) && j < len(basis); j++ {
			sum += logMel[j] * basis[j]
		}
		coeffs[k] = sum
	}
	return coeffs
}
