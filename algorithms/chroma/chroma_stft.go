package chroma

import (
	"math"

	"github.com/RyanBlaney/genesis-map/algorithms/spectral"
	"github.com/RyanBlaney/genesis-map/algorithms/windowing"
)

// PitchClasses names the 12 chroma bins starting at C
var PitchClasses = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Normalization selects how each chroma frame is scaled
type Normalization int

const (
	// NormMax scales each frame so its largest bin is 1
	NormMax Normalization = iota
	// NormSum scales each frame to unit sum
	NormSum
)

// ChromaSTFT computes a chromagram by folding STFT power onto pitch classes
//
// Each FFT bin between minFreq and maxFreq is assigned to the pitch class of
// its nearest MIDI note. Frames with no energy stay all-zero.
type ChromaSTFT struct {
	sampleRate int
	stft       *spectral.STFT
	tuningFreq float64 // A4 frequency (default 440 Hz)
	minFreq    float64
	maxFreq    float64
	norm       Normalization
}

// NewChromaSTFT creates a new STFT-based chromagram calculator
func NewChromaSTFT(sampleRate int, tuningFreq float64) *ChromaSTFT {
	return &ChromaSTFT{
		sampleRate: sampleRate,
		stft:       spectral.NewSTFT(),
		tuningFreq: tuningFreq,
		minFreq:    80.0,   // Approximate E2
		maxFreq:    8000.0, // High enough for harmonics
		norm:       NormMax,
	}
}

// NewChromaSTFTDefault creates chromagram with standard A4=440Hz tuning
func NewChromaSTFTDefault(sampleRate int) *ChromaSTFT {
	return NewChromaSTFT(sampleRate, 440.0)
}

// WithNormalization returns a copy using the given frame normalization
func (cs *ChromaSTFT) WithNormalization(norm Normalization) *ChromaSTFT {
	cp := *cs
	cp.norm = norm
	return &cp
}

// ComputeChroma computes a chromagram (time x 12) from an audio signal with a
// centred Hann STFT
func (cs *ChromaSTFT) ComputeChroma(signal []float64, windowSize, hopSize int) ([][]float64, error) {
	if len(signal) == 0 {
		return [][]float64{}, nil
	}

	params := spectral.STFTParams{WindowSize: windowSize, HopSize: hopSize, Center: true}
	stftResult, err := cs.stft.Compute(signal, cs.sampleRate, params, windowing.NewHann(windowSize))
	if err != nil {
		return nil, err
	}

	return cs.FromSTFT(stftResult), nil
}

// FromSTFT converts an existing magnitude spectrogram to a chromagram
func (cs *ChromaSTFT) FromSTFT(stftResult *spectral.STFTResult) [][]float64 {
	chromagram := make([][]float64, stftResult.TimeFrames)
	mapping := cs.calculateChromaMapping(stftResult.FreqBins, stftResult.FreqResolution)

	for t := 0; t < stftResult.TimeFrames; t++ {
		chromagram[t] = make([]float64, len(PitchClasses))
		for f := 0; f < stftResult.FreqBins; f++ {
			if bin := mapping[f]; bin >= 0 {
				magnitude := stftResult.Magnitude[t][f]
				chromagram[t][bin] += magnitude * magnitude
			}
		}
		cs.normalizeChromaFrame(chromagram[t])
	}

	return chromagram
}

// calculateChromaMapping maps FFT bins to chroma bins, -1 outside the range
func (cs *ChromaSTFT) calculateChromaMapping(freqBins int, freqResolution float64) []int {
	mapping := make([]int, freqBins)

	for f := range freqBins {
		frequency := float64(f) * freqResolution
		if frequency < cs.minFreq || frequency > cs.maxFreq {
			mapping[f] = -1
			continue
		}
		midiNote := int(math.Round(cs.frequencyToMIDI(frequency)))
		mapping[f] = ((midiNote % 12) + 12) % 12
	}

	return mapping
}

// frequencyToMIDI converts frequency to MIDI note number (A4 = 69)
func (cs *ChromaSTFT) frequencyToMIDI(frequency float64) float64 {
	if frequency <= 0 {
		return 0
	}
	return 69.0 + 12.0*math.Log2(frequency/cs.tuningFreq)
}

func (cs *ChromaSTFT) normalizeChromaFrame(chromaFrame []float64) {
	scale := 0.0
	for _, energy := range chromaFrame {
		switch cs.norm {
		case NormSum:
			scale += energy
		default:
			scale = math.Max(scale, energy)
		}
	}
	if scale > 1e-10 {
		for i := range chromaFrame {
			chromaFrame[i] /= scale
		}
	}
}

// MeanChroma averages a chromagram over time
func MeanChroma(chromagram [][]float64) []float64 {
	mean := make([]float64, len(PitchClasses))
	if len(chromagram) == 0 {
		return mean
	}
	for _, frame := range chromagram {
		for bin, v := range frame {
			mean[bin] += v
		}
	}
	for bin := range mean {
		mean[bin] /= float64(len(chromagram))
	}
	return mean
}

// DominantPitchClass returns the bin with the most energy, -1 for silence
func DominantPitchClass(frame []float64) int {
	best, bin := 0.0, -1
	for i, v := range frame {
		if v > best {
			best, bin = v, i
		}
	}
	return bin
}
