package spectral

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/RyanBlaney/genesis-map/algorithms/windowing"
)

// STFT provides Short-Time Fourier Transform functionality
type STFT struct {
	fft *FFT
}

// STFTParams controls framing. With Center set the signal is zero padded by
// WindowSize/2 on both sides so frame t is centred on sample t*HopSize.
type STFTParams struct {
	WindowSize int  `json:"window_size"`
	HopSize    int  `json:"hop_size"`
	Center     bool `json:"center"`
}

// DefaultSTFTParams returns 2048/512 centred framing
func DefaultSTFTParams() STFTParams {
	return STFTParams{WindowSize: 2048, HopSize: 512, Center: true}
}

// STFTResult holds a magnitude spectrogram
type STFTResult struct {
	Magnitude      [][]float64 `json:"magnitude"`       // Time x Frequency magnitude matrix
	TimeFrames     int         `json:"time_frames"`     // Number of time frames
	FreqBins       int         `json:"freq_bins"`       // Number of frequency bins
	SampleRate     int         `json:"sample_rate"`     // Sample rate
	WindowSize     int         `json:"window_size"`     // FFT window size
	HopSize        int         `json:"hop_size"`        // Hop size between frames
	FreqResolution float64     `json:"freq_resolution"` // Frequency resolution (Hz/bin)
	TimeResolution float64     `json:"time_resolution"` // Time resolution (seconds/frame)
}

// NewSTFT creates a new STFT calculator
func NewSTFT() *STFT {
	return &STFT{
		fft: NewFFT(),
	}
}

// FrameCount returns the number of frames Compute produces for n samples
func FrameCount(n int, params STFTParams) int {
	if n <= 0 || params.HopSize <= 0 {
		return 0
	}
	if params.Center {
		return 1 + n/params.HopSize
	}
	if n < params.WindowSize {
		return 0
	}
	return 1 + (n-params.WindowSize)/params.HopSize
}

// Compute computes the magnitude STFT using a pool of workers
func (s *STFT) Compute(signal []float64, sampleRate int, params STFTParams, window windowing.Window) (*STFTResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	if params.WindowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}
	if params.HopSize <= 0 {
		return nil, fmt.Errorf("hop size must be positive")
	}
	if window != nil && window.Size() != params.WindowSize {
		return nil, fmt.Errorf("window length %d does not match window size %d", window.Size(), params.WindowSize)
	}

	numFrames := FrameCount(len(signal), params)
	if numFrames <= 0 {
		return nil, fmt.Errorf("signal too short for given window size and hop size")
	}

	padded := signal
	if params.Center {
		pad := params.WindowSize / 2
		padded = make([]float64, len(signal)+2*pad)
		copy(padded[pad:], signal)
	}

	freqBins := params.WindowSize/2 + 1
	magnitude := make([][]float64, numFrames)

	numWorkers := s.getOptimalWorkerCount(numFrames)
	jobs := make(chan int, numFrames)

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Reuse frame buffer for this worker
			frame := make([]float64, params.WindowSize)
			for t := range jobs {
				start := t * params.HopSize
				clear(frame)
				if start < len(padded) {
					copy(frame, padded[start:min(start+params.WindowSize, len(padded))])
				}
				if window != nil {
					_ = window.ApplyInPlace(frame)
				}
				magnitude[t] = s.fft.Magnitudes(frame)
			}
		}()
	}

	for t := range numFrames {
		jobs <- t
	}
	close(jobs)
	wg.Wait()

	return &STFTResult{
		Magnitude:      magnitude,
		TimeFrames:     numFrames,
		FreqBins:       freqBins,
		SampleRate:     sampleRate,
		WindowSize:     params.WindowSize,
		HopSize:        params.HopSize,
		FreqResolution: float64(sampleRate) / float64(params.WindowSize),
		TimeResolution: float64(params.HopSize) / float64(sampleRate),
	}, nil
}

// ComputeWithWindow computes an uncentred STFT (frames start at t*hop)
func (s *STFT) ComputeWithWindow(signal []float64, windowSize, hopSize, sampleRate int, window windowing.Window) (*STFTResult, error) {
	return s.Compute(signal, sampleRate, STFTParams{WindowSize: windowSize, HopSize: hopSize}, window)
}

// Power returns the squared magnitude spectrogram
func (r *STFTResult) Power() [][]float64 {
	power := make([][]float64, len(r.Magnitude))
	for t, frame := range r.Magnitude {
		power[t] = make([]float64, len(frame))
		for f, m := range frame {
			power[t][f] = m * m
		}
	}
	return power
}

// getOptimalWorkerCount determines the optimal number of workers based on workload
func (s *STFT) getOptimalWorkerCount(numFrames int) int {
	numCPU := runtime.NumCPU()

	// For small workloads, don't over-parallelize
	if numFrames < 100 {
		return max(1, min(numCPU/2, numFrames))
	}
	if numFrames < 1000 {
		return max(1, min(numCPU, 8))
	}
	return numCPU
}
