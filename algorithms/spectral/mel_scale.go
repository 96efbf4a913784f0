package spectral

import (
	"math"
	"sync"
)

// MelScale builds and caches triangular mel filter banks
type MelScale struct {
	mu    sync.Mutex
	banks map[melKey][][]float64
}

type melKey struct {
	numFilters int
	fftSize    int
	sampleRate int
	lowFreq    float64
	highFreq   float64
}

// NewMelScale creates a new mel scale converter
func NewMelScale() *MelScale {
	return &MelScale{banks: make(map[melKey][][]float64)}
}

// HzToMel converts frequency in Hz to mel scale
func HzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// MelToHz converts mel scale to frequency in Hz
func MelToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// FilterBank returns numFilters area-normalized triangles over the
// fftSize/2+1 bins. Triangles are evaluated on the continuous bin frequencies
// so narrow low-frequency filters never collapse to zero rows.
func (ms *MelScale) FilterBank(numFilters, fftSize, sampleRate int, lowFreq, highFreq float64) [][]float64 {
	if numFilters <= 0 || fftSize <= 0 {
		return nil
	}
	if highFreq <= 0 || highFreq > float64(sampleRate)/2 {
		highFreq = float64(sampleRate) / 2
	}
	key := melKey{numFilters, fftSize, sampleRate, lowFreq, highFreq}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	if bank, ok := ms.banks[key]; ok {
		return bank
	}

	lowMel := HzToMel(lowFreq)
	highMel := HzToMel(highFreq)
	edges := make([]float64, numFilters+2)
	for i := range edges {
		edges[i] = MelToHz(lowMel + (highMel-lowMel)*float64(i)/float64(numFilters+1))
	}

	binFreqs := BinFrequencies(sampleRate, fftSize)
	bank := make([][]float64, numFilters)
	for m := range numFilters {
		lower, center, upper := edges[m], edges[m+1], edges[m+2]
		norm := 2.0 / (upper - lower)
		bank[m] = make([]float64, len(binFreqs))
		for k, f := range binFreqs {
			rise := (f - lower) / (center - lower)
			fall := (upper - f) / (upper - center)
			w := math.Min(rise, fall)
			if w > 0 {
				bank[m][k] = w * norm
			}
		}
	}

	ms.banks[key] = bank
	return bank
}

// Apply projects a power spectrum onto a filter bank
func Apply(powerSpectrum []float64, filterBank [][]float64) []float64 {
	mel := make([]float64, len(filterBank))
	for i, filter := range filterBank {
		sum := 0.0
		for j := 0; j < len(filter) && j < len(powerSpectrum); j++ {
			sum += powerSpectrum[j] * filter[j]
		}
		mel[i] = sum
	}
	return mel
}

// MelSpectrogram converts a magnitude spectrogram (time x freq) into a mel
// power spectrogram (time x numFilters)
func (ms *MelScale) MelSpectrogram(result *STFTResult, numFilters int, lowFreq, highFreq float64) [][]float64 {
	if result == nil || len(result.Magnitude) == 0 {
		return [][]float64{}
	}
	bank := ms.FilterBank(numFilters, result.WindowSize, result.SampleRate, lowFreq, highFreq)
	out := make([][]float64, len(result.Magnitude))
	power := make([]float64, result.FreqBins)
	for t, frame := range result.Magnitude {
		for k, m := range frame {
			power[k] = m * m
		}
		out[t] = Apply(power, bank)
	}
	return out
}

// PowerToDB converts power values to decibels relative to the global maximum,
// flooring at -topDB
func PowerToDB(power [][]float64, topDB float64) [][]float64 {
	ref := 1e-10
	for _, frame := range power {
		for _, v := range frame {
			ref = math.Max(ref, v)
		}
	}
	refDB := 10 * math.Log10(ref)
	out := make([][]float64, len(power))
	for t, frame := range power {
		out[t] = make([]float64, len(frame))
		for i, v := range frame {
			db := 10*math.Log10(math.Max(v, 1e-10)) - refDB
			if topDB > 0 && db < -topDB {
				db = -topDB
			}
			out[t][i] = db
		}
	}
	return out
}
