package spectral

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/RyanBlaney/genesis-map/algorithms/common"
)

// HPSS splits a magnitude spectrogram into harmonic and percussive parts by
// median filtering. Sustained partials are smooth along time, transients are
// smooth along frequency.
type HPSS struct {
	kernelSize int
}

// HPSSResult holds the masked spectrograms (time x frequency)
type HPSSResult struct {
	Harmonic   [][]float64
	Percussive [][]float64
}

// NewHPSS creates a separator with the given median kernel (31 if <= 0)
func NewHPSS(kernelSize int) *HPSS {
	if kernelSize <= 0 {
		kernelSize = 31
	}
	return &HPSS{kernelSize: kernelSize}
}

// Separate applies soft Wiener masks H^2/(H^2+P^2) to the input spectrogram
func (h *HPSS) Separate(magnitude [][]float64) (*HPSSResult, error) {
	numFrames := len(magnitude)
	if numFrames == 0 {
		return nil, fmt.Errorf("empty spectrogram")
	}
	numBins := len(magnitude[0])

	harmonic := make([][]float64, numFrames)
	percussive := make([][]float64, numFrames)
	for t := range numFrames {
		harmonic[t] = make([]float64, numBins)
		percussive[t] = common.MedianFilter(magnitude[t], h.kernelSize)
	}

	// time-direction medians, one bin per job
	jobs := make(chan int, numBins)
	var wg sync.WaitGroup
	for range max(1, min(runtime.NumCPU(), numBins)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			column := make([]float64, numFrames)
			for f := range jobs {
				for t := range numFrames {
					column[t] = magnitude[t][f]
				}
				filtered := common.MedianFilter(column, h.kernelSize)
				for t := range numFrames {
					harmonic[t][f] = filtered[t]
				}
			}
		}()
	}
	for f := range numBins {
		jobs <- f
	}
	close(jobs)
	wg.Wait()

	res := &HPSSResult{
		Harmonic:   make([][]float64, numFrames),
		Percussive: make([][]float64, numFrames),
	}
	for t := range numFrames {
		res.Harmonic[t] = make([]float64, numBins)
		res.Percussive[t] = make([]float64, numBins)
		for f := range numBins {
			hh := harmonic[t][f] * harmonic[t][f]
			pp := percussive[t][f] * percussive[t][f]
			if hh+pp <= 0 {
				continue
			}
			res.Harmonic[t][f] = magnitude[t][f] * hh / (hh + pp)
			res.Percussive[t][f] = magnitude[t][f] * pp / (hh + pp)
		}
	}
	return res, nil
}

// HarmonicRatio returns, per frame, the harmonic energy over the percussive
// energy (root of summed squares, 1e-10 guard)
func (r *HPSSResult) HarmonicRatio() []float64 {
	ratio := make([]float64, len(r.Harmonic))
	for t := range r.Harmonic {
		hSum, pSum := 0.0, 0.0
		for f := range r.Harmonic[t] {
			hSum += r.Harmonic[t][f] * r.Harmonic[t][f]
			pSum += r.Percussive[t][f] * r.Percussive[t][f]
		}
		ratio[t] = math.Sqrt(hSum) / (math.Sqrt(pSum) + 1e-10)
	}
	return ratio
}
