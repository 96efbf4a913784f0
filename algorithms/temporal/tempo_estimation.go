package temporal

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// TempoEstimation estimates a global tempo from an onset strength envelope
type TempoEstimation struct {
	startBPM  float64
	stdOctave float64
	maxBPM    float64
	acSeconds float64
}

// NewTempoEstimation creates an estimator with a log-normal prior centred on
// 120 BPM (one octave standard deviation) and an 8 s autocorrelation horizon
func NewTempoEstimation() *TempoEstimation {
	return &TempoEstimation{
		startBPM:  120,
		stdOctave: 1.0,
		maxBPM:    320,
		acSeconds: 8.0,
	}
}

// EstimateTempo picks the autocorrelation lag maximizing
// log1p(1e6 * acf) + logprior(bpm) and returns its BPM. Returns 0 when the
// envelope carries no energy.
func (te *TempoEstimation) EstimateTempo(envelope []float64, sampleRate, hopSize int) float64 {
	if len(envelope) < 2 || sampleRate <= 0 || hopSize <= 0 {
		return 0
	}
	frameRate := float64(sampleRate) / float64(hopSize)
	maxLag := min(int(te.acSeconds*frameRate), len(envelope)-1)
	if maxLag < 1 {
		return 0
	}

	acf := Autocorrelation(envelope, maxLag)
	if acf[0] <= 0 {
		return 0
	}

	bestScore := math.Inf(-1)
	bestLag := 0
	for lag := 1; lag <= maxLag; lag++ {
		bpm := 60.0 * frameRate / float64(lag)
		if bpm >= te.maxBPM {
			continue
		}
		strength := math.Max(acf[lag]/acf[0], 0)
		prior := (math.Log2(bpm) - math.Log2(te.startBPM)) / te.stdOctave
		score := math.Log1p(1e6*strength) - 0.5*prior*prior
		if score > bestScore {
			bestScore = score
			bestLag = lag
		}
	}
	if bestLag == 0 {
		return 0
	}
	return 60.0 * frameRate / float64(bestLag)
}

// Autocorrelation returns the raw autocorrelation of x for lags [0, maxLag],
// computed as the inverse transform of the zero-padded power spectrum
func Autocorrelation(x []float64, maxLag int) []float64 {
	n := len(x)
	size := 1
	for size < 2*n {
		size <<= 1
	}
	padded := make([]float64, size)
	copy(padded, x)

	fft := fourier.NewFFT(size)
	coeff := fft.Coefficients(nil, padded)
	for i, c := range coeff {
		re, im := real(c), imag(c)
		coeff[i] = complex(re*re+im*im, 0)
	}
	seq := fft.Sequence(nil, coeff)

	out := make([]float64, min(maxLag, n-1)+1)
	for lag := range out {
		out[lag] = seq[lag] / float64(size)
	}
	return out
}
