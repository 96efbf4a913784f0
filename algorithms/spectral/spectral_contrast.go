package spectral

import (
	"math"
	"sort"
)

// SpectralContrast measures the peak/valley difference in octave bands.
// Bands start at [0, fmin) and double from fmin; the last band runs to Nyquist.
type SpectralContrast struct {
	sampleRate int
	numBands   int
	fmin       float64
	quantile   float64
}

// NewSpectralContrast creates a calculator producing numBands+1 rows
func NewSpectralContrast(sampleRate int, numBands int) *SpectralContrast {
	if numBands <= 0 {
		numBands = 6
	}
	return &SpectralContrast{
		sampleRate: sampleRate,
		numBands:   numBands,
		fmin:       200.0,
		quantile:   0.02,
	}
}

// bandEdges returns numBands+2 edges in Hz
func (sc *SpectralContrast) bandEdges() []float64 {
	edges := make([]float64, sc.numBands+2)
	for i := 1; i < len(edges); i++ {
		edges[i] = sc.fmin * math.Pow(2, float64(i-1))
	}
	return edges
}

// Compute calculates spectral contrast (dB) for a single magnitude spectrum
func (sc *SpectralContrast) Compute(spectrum []float64) []float64 {
	rows := sc.numBands + 1
	contrast := make([]float64, rows)
	if len(spectrum) < 2 {
		return contrast
	}
	binHz := float64(sc.sampleRate) / float64((len(spectrum)-1)*2)
	edges := sc.bandEdges()

	for band := range rows {
		lo := int(math.Ceil(edges[band] / binHz))
		hi := int(math.Ceil(edges[band+1] / binHz))
		if band == rows-1 {
			hi = len(spectrum)
		}
		hi = min(hi, len(spectrum))
		if lo >= hi {
			continue
		}
		contrast[band] = sc.bandContrast(spectrum[lo:hi])
	}
	return contrast
}

// ComputeFrames returns time x band contrast
func (sc *SpectralContrast) ComputeFrames(spectrogram [][]float64) [][]float64 {
	out := make([][]float64, len(spectrogram))
	for t, spectrum := range spectrogram {
		out[t] = sc.Compute(spectrum)
	}
	return out
}

func (sc *SpectralContrast) bandContrast(band []float64) float64 {
	sorted := make([]float64, len(band))
	copy(sorted, band)
	sort.Float64s(sorted)

	count := max(1, int(math.Round(sc.quantile*float64(len(sorted)))))
	valley, peak := 0.0, 0.0
	for i := range count {
		valley += sorted[i]
		peak += sorted[len(sorted)-1-i]
	}
	valley /= float64(count)
	peak /= float64(count)

	return 10 * math.Log10((peak+1e-10)/(valley+1e-10))
}
