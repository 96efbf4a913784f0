package features

import (
	"fmt"
	"math"
	"sync"

	"github.com/RyanBlaney/genesis-map/algorithms/chroma"
	"github.com/RyanBlaney/genesis-map/algorithms/spectral"
	"github.com/RyanBlaney/genesis-map/algorithms/temporal"
	"github.com/RyanBlaney/genesis-map/algorithms/windowing"
	"github.com/RyanBlaney/genesis-map/logging"
	"golang.org/x/sync/singleflight"
)

// Series names
const (
	SeriesOnset          = "onset"
	SeriesRMS            = "rms"
	SeriesChroma         = "chroma"
	SeriesMFCC           = "mfcc"
	SeriesContrast       = "contrast"
	SeriesCentroid       = "centroid"
	SeriesRolloff        = "rolloff"
	SeriesZCR            = "zcr"
	SeriesTonnetz        = "tonnetz"
	SeriesBassEnergy     = "bass_energy"
	SeriesFlux           = "flux"
	SeriesHarmonicRatio  = "harmonic_ratio"
	SeriesHarmonicChange = "harmonic_change"
)

// BassBins is the number of low FFT bins summed for the bass energy cue
// (about 0-200 Hz at 22.05 kHz with a 2048-point FFT)
const BassBins = 20

// Extractor computes named feature series of one signal on demand.
// Results are cached per (name, Params), and concurrent requests for the same
// series share a single computation, so stages running in parallel pay for
// one STFT per framing.
type Extractor struct {
	signal     []float64
	sampleRate int

	group singleflight.Group
	mu    sync.RWMutex
	stfts map[Params]*spectral.STFTResult
	cache map[string]*Series

	stft   *spectral.STFT
	logger logging.Logger
}

// NewExtractor creates an extractor over a mono signal
func NewExtractor(signal []float64, sampleRate int) *Extractor {
	return &Extractor{
		signal:     signal,
		sampleRate: sampleRate,
		stfts:      make(map[Params]*spectral.STFTResult),
		cache:      make(map[string]*Series),
		stft:       spectral.NewSTFT(),
		logger: logging.WithFields(logging.Fields{
			"component":   "feature_extractor",
			"sample_rate": sampleRate,
		}),
	}
}

// Signal returns the analysed samples
func (e *Extractor) Signal() []float64 {
	return e.signal
}

// SampleRate returns the signal sample rate
func (e *Extractor) SampleRate() int {
	return e.sampleRate
}

// Duration returns the signal length in seconds
func (e *Extractor) Duration() float64 {
	if e.sampleRate <= 0 {
		return 0
	}
	return float64(len(e.signal)) / float64(e.sampleRate)
}

// STFT returns the centred Hann magnitude spectrogram for p
func (e *Extractor) STFT(p Params) (*spectral.STFTResult, error) {
	e.mu.RLock()
	result, ok := e.stfts[p]
	e.mu.RUnlock()
	if ok {
		return result, nil
	}

	v, err, _ := e.group.Do(fmt.Sprintf("stft/%d/%d", p.FrameSize, p.HopSize), func() (any, error) {
		e.logger.Debug("Computing STFT", logging.Fields{
			"function":   "STFT",
			"frame_size": p.FrameSize,
			"hop_size":   p.HopSize,
		})
		params := spectral.STFTParams{WindowSize: p.FrameSize, HopSize: p.HopSize, Center: true}
		res, err := e.stft.Compute(e.signal, e.sampleRate, params, windowing.NewHann(p.FrameSize))
		if err != nil {
			return nil, err
		}
		e.mu.Lock()
		e.stfts[p] = res
		e.mu.Unlock()
		return res, nil
	})
	if err != nil {
		return nil, fmt.Errorf("stft %dx%d: %w", p.FrameSize, p.HopSize, err)
	}
	return v.(*spectral.STFTResult), nil
}

// series memoizes compute under (name, p)
func (e *Extractor) series(name string, p Params, compute func() ([][]float64, error)) (*Series, error) {
	key := fmt.Sprintf("%s/%d/%d", name, p.FrameSize, p.HopSize)
	e.mu.RLock()
	s, ok := e.cache[key]
	e.mu.RUnlock()
	if ok {
		return s, nil
	}

	v, err, _ := e.group.Do(key, func() (any, error) {
		frames, err := compute()
		if err != nil {
			return nil, err
		}
		s := &Series{Name: name, Frames: frames, Hop: p.HopSize, SampleRate: e.sampleRate}
		e.mu.Lock()
		e.cache[key] = s
		e.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s series: %w", name, err)
	}
	return v.(*Series), nil
}

func scalar(values []float64) [][]float64 {
	frames := make([][]float64, len(values))
	for t, v := range values {
		frames[t] = []float64{v}
	}
	return frames
}

// RMS is the centred frame RMS energy
func (e *Extractor) RMS(p Params) (*Series, error) {
	return e.series(SeriesRMS, p, func() ([][]float64, error) {
		energy := temporal.NewEnergy(p.FrameSize, p.HopSize, e.sampleRate)
		return scalar(energy.ComputeRMS(e.signal)), nil
	})
}

// Onset is the log-mel flux onset strength envelope
func (e *Extractor) Onset(p Params) (*Series, error) {
	return e.series(SeriesOnset, p, func() ([][]float64, error) {
		res, err := e.STFT(p)
		if err != nil {
			return nil, err
		}
		return scalar(temporal.NewOnsetDetection().StrengthFromSTFT(res)), nil
	})
}

// Chroma is the max-normalized 12-bin chromagram
func (e *Extractor) Chroma(p Params) (*Series, error) {
	return e.series(SeriesChroma, p, func() ([][]float64, error) {
		res, err := e.STFT(p)
		if err != nil {
			return nil, err
		}
		return chroma.NewChromaSTFTDefault(e.sampleRate).FromSTFT(res), nil
	})
}

// MFCC returns 13 coefficients per frame
func (e *Extractor) MFCC(p Params) (*Series, error) {
	return e.series(SeriesMFCC, p, func() ([][]float64, error) {
		res, err := e.STFT(p)
		if err != nil {
			return nil, err
		}
		return spectral.NewMFCC(e.sampleRate, 13).ComputeFrames(res)
	})
}

// Contrast returns 7 spectral contrast rows per frame
func (e *Extractor) Contrast(p Params) (*Series, error) {
	return e.series(SeriesContrast, p, func() ([][]float64, error) {
		res, err := e.STFT(p)
		if err != nil {
			return nil, err
		}
		return spectral.NewSpectralContrast(e.sampleRate, 6).ComputeFrames(res.Magnitude), nil
	})
}

// Centroid is the spectral centroid in Hz
func (e *Extractor) Centroid(p Params) (*Series, error) {
	return e.series(SeriesCentroid, p, func() ([][]float64, error) {
		res, err := e.STFT(p)
		if err != nil {
			return nil, err
		}
		return scalar(spectral.NewSpectralCentroid(e.sampleRate).ComputeFrames(res.Magnitude)), nil
	})
}

// Rolloff is the 85% spectral rolloff in Hz
func (e *Extractor) Rolloff(p Params) (*Series, error) {
	return e.series(SeriesRolloff, p, func() ([][]float64, error) {
		res, err := e.STFT(p)
		if err != nil {
			return nil, err
		}
		return scalar(spectral.NewSpectralRolloff(e.sampleRate, 0.85).ComputeFrames(res.Magnitude)), nil
	})
}

// ZCR is the zero crossing rate of centred frames
func (e *Extractor) ZCR(p Params) (*Series, error) {
	return e.series(SeriesZCR, p, func() ([][]float64, error) {
		return scalar(spectral.NewZeroCrossingRate(p.FrameSize, p.HopSize).ComputeFrames(e.signal)), nil
	})
}

// Tonnetz is the 6-D tonal centroid of the chromagram
func (e *Extractor) Tonnetz(p Params) (*Series, error) {
	return e.series(SeriesTonnetz, p, func() ([][]float64, error) {
		c, err := e.Chroma(p)
		if err != nil {
			return nil, err
		}
		return chroma.NewTonnetz().Compute(c.Frames), nil
	})
}

// BassEnergy sums the magnitudes of the lowest BassBins bins
func (e *Extractor) BassEnergy(p Params) (*Series, error) {
	return e.series(SeriesBassEnergy, p, func() ([][]float64, error) {
		res, err := e.STFT(p)
		if err != nil {
			return nil, err
		}
		return scalar(spectral.BandEnergy(res.Magnitude, BassBins)), nil
	})
}

// Flux is the L2 norm of the magnitude frame difference (frame 0 = 0)
func (e *Extractor) Flux(p Params) (*Series, error) {
	return e.series(SeriesFlux, p, func() ([][]float64, error) {
		res, err := e.STFT(p)
		if err != nil {
			return nil, err
		}
		return scalar(spectral.NewSpectralFlux().Compute(res.Magnitude)), nil
	})
}

// HarmonicRatio is the per-frame harmonic/percussive energy ratio from
// median-filter separation
func (e *Extractor) HarmonicRatio(p Params) (*Series, error) {
	return e.series(SeriesHarmonicRatio, p, func() ([][]float64, error) {
		res, err := e.STFT(p)
		if err != nil {
			return nil, err
		}
		sep, err := spectral.NewHPSS(31).Separate(res.Magnitude)
		if err != nil {
			return nil, err
		}
		return scalar(sep.HarmonicRatio()), nil
	})
}

// HarmonicChange is the L2 norm of the chroma first difference; frame 0
// repeats frame 1 so the curve keeps one value per frame
func (e *Extractor) HarmonicChange(p Params) (*Series, error) {
	return e.series(SeriesHarmonicChange, p, func() ([][]float64, error) {
		c, err := e.Chroma(p)
		if err != nil {
			return nil, err
		}
		return scalar(ChromaChange(c.Frames)), nil
	})
}

// ChromaChange returns ||c[t] - c[t-1]|| with the first value duplicated.
// Fewer than two frames yields zeros.
func ChromaChange(chromagram [][]float64) []float64 {
	n := len(chromagram)
	out := make([]float64, n)
	if n < 2 {
		return out
	}
	for t := 1; t < n; t++ {
		sum := 0.0
		for b := range chromagram[t] {
			d := chromagram[t][b] - chromagram[t-1][b]
			sum += d * d
		}
		out[t] = math.Sqrt(sum)
	}
	out[0] = out[1]
	return out
}
