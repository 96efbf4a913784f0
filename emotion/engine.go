package emotion

import (
	"context"
	"fmt"
	"math"

	"github.com/RyanBlaney/genesis-map/algorithms/common"
	"github.com/RyanBlaney/genesis-map/algorithms/tonal"
	"github.com/RyanBlaney/genesis-map/apperrors"
	"github.com/RyanBlaney/genesis-map/features"
	"github.com/RyanBlaney/genesis-map/logging"
	"github.com/RyanBlaney/genesis-map/stems"
)

// intervalDissonance rates the 12 intervals from unison to major seventh
var intervalDissonance = [12]float64{0, 1, 0.8, 0.3, 0.2, 0.1, 0.9, 0, 0.2, 0.3, 0.7, 0.8}

// Engine derives valence, arousal and tension curves
type Engine struct {
	config Config
	keys   *tonal.KeyEstimator
	logger logging.Logger
}

// NewEngine creates an emotion engine
func NewEngine(config Config) *Engine {
	return &Engine{
		config: config,
		keys:   tonal.NewKeyEstimator(),
		logger: logging.WithFields(logging.Fields{
			"component": "emotion_engine",
		}),
	}
}

func (e *Engine) params() features.Params {
	return features.Params{FrameSize: e.config.FrameSize, HopSize: e.config.HopSize}
}

// Analyze computes the emotional trajectory of a mono signal. tempo is the
// beat grid tempo in BPM; vocals may be nil.
func (e *Engine) Analyze(ctx context.Context, signal []float64, sampleRate int, tempo float64, vocals *stems.VocalFeatures) (*Analysis, error) {
	if len(signal) == 0 {
		return nil, apperrors.ErrEmptySignal
	}
	return e.AnalyzeFeatures(ctx, features.NewExtractor(signal, sampleRate), tempo, vocals)
}

// AnalyzeFeatures is Analyze over a shared extractor
func (e *Engine) AnalyzeFeatures(ctx context.Context, ex *features.Extractor, tempo float64, vocals *stems.VocalFeatures) (*Analysis, error) {
	logger := e.logger.WithContext(ctx).WithFields(logging.Fields{"function": "AnalyzeFeatures"})

	states, err := e.States(ctx, ex, tempo, vocals)
	if err != nil {
		return nil, err
	}
	analysis := &Analysis{
		States:       states,
		Segments:     Segment(states, e.config.MinSegmentSeconds),
		Curves:       SampleCurves(states, e.config.MaxCurvePoints),
		DominantMood: DominantMood(states),
	}

	logger.Info("Emotion analysis complete", logging.Fields{
		"states":        len(states),
		"mood_segments": len(analysis.Segments),
		"dominant_mood": analysis.DominantMood,
		"vocals":        vocals != nil,
	})
	return analysis, nil
}

// cues are the per-frame inputs of the three curves, truncated to a common
// length
type cues struct {
	rms           []float64
	onset         []float64
	centroid      []float64
	contrast      []float64 // mean over bands
	zcr           []float64
	harmonicRatio []float64
	chroma        [][]float64
}

func (e *Engine) cues(ex *features.Extractor) (*cues, error) {
	p := e.params()
	rms, err := ex.RMS(p)
	if err != nil {
		return nil, err
	}
	onset, err := ex.Onset(p)
	if err != nil {
		return nil, err
	}
	centroid, err := ex.Centroid(p)
	if err != nil {
		return nil, err
	}
	contrast, err := ex.Contrast(p)
	if err != nil {
		return nil, err
	}
	zcr, err := ex.ZCR(p)
	if err != nil {
		return nil, err
	}
	hr, err := ex.HarmonicRatio(p)
	if err != nil {
		return nil, err
	}
	chroma, err := ex.Chroma(p)
	if err != nil {
		return nil, err
	}

	n := min(rms.Len(), onset.Len(), centroid.Len(), contrast.Len(), zcr.Len(), hr.Len(), chroma.Len())
	meanContrast := make([]float64, n)
	for t := range n {
		meanContrast[t] = common.Mean(contrast.Frames[t])
	}
	return &cues{
		rms:           rms.Values()[:n],
		onset:         onset.Values()[:n],
		centroid:      centroid.Values()[:n],
		contrast:      meanContrast,
		zcr:           zcr.Values()[:n],
		harmonicRatio: hr.Values()[:n],
		chroma:        chroma.Frames[:n],
	}, nil
}

// States returns one smoothed emotional state per analysis frame
func (e *Engine) States(ctx context.Context, ex *features.Extractor, tempo float64, vocals *stems.VocalFeatures) ([]State, error) {
	c, err := e.cues(ex)
	if err != nil {
		return nil, fmt.Errorf("emotion cues: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := len(c.rms)
	if n == 0 {
		return []State{}, nil
	}

	meanChroma := make([]float64, 12)
	for _, frame := range c.chroma {
		for b := range min(12, len(frame)) {
			meanChroma[b] += frame[b] / float64(n)
		}
	}
	mode := e.keys.ModeSign(meanChroma, e.config.ModeGap)

	dissonance := make([]float64, n)
	for t, frame := range c.chroma {
		dissonance[t] = Dissonance(frame, e.config.ActiveThreshold)
	}

	energy := normalize(c.rms)
	onset := normalize(c.onset)
	complexity := normalize(c.contrast)
	roughness := normalize(c.zcr)
	spectralFlux := normalize(absDiff(c.centroid))
	dynamicFlux := normalize(absDiff(c.rms))
	tempoTerm := common.Clamp((tempo-e.config.MinTempo)/e.config.TempoRange, 0, 1)

	frameTime := func(i int) float64 {
		return float64(i*e.config.HopSize) / float64(ex.SampleRate())
	}

	valence := make([]float64, n)
	arousal := make([]float64, n)
	tension := make([]float64, n)
	boosted := 0
	for t := range n {
		brightness := common.Clamp(c.centroid[t]/e.config.BrightnessHz, 0, 1)
		valence[t] = math.Tanh(0.3*mode +
			0.3*(brightness-0.5) -
			0.2*dissonance[t] +
			0.2*common.Clamp(c.harmonicRatio[t]-1, -1, 1))

		a := 0.3*energy[t] + 0.2*tempoTerm + 0.2*onset[t] + 0.2*complexity[t] + 0.1*roughness[t]
		if vocals.PresentAt(frameTime(t)) {
			a += e.config.VocalArousalBoost
			boosted++
		}
		arousal[t] = common.Clamp(a, 0, 1)

		tension[t] = common.Clamp(0.4*dissonance[t]+0.3*spectralFlux[t]+0.3*dynamicFlux[t], 0, 1)
	}

	sigma := e.config.SmoothingSigma
	valence = common.GaussianFilter1D(valence, sigma)
	arousal = common.GaussianFilter1D(arousal, sigma)
	tension = common.GaussianFilter1D(tension, sigma)

	centroidStd := common.StdDev(c.centroid)
	states := make([]State, n)
	for t := range n {
		confidence := math.Min(1, 2*c.rms[t])
		if t > 0 && t < n-1 && math.Abs(c.centroid[t]-c.centroid[t-1]) > centroidStd {
			confidence *= 0.7
		}
		states[t] = State{
			Timestamp:  frameTime(t),
			Valence:    valence[t],
			Arousal:    arousal[t],
			Tension:    tension[t],
			Confidence: confidence,
		}
	}

	e.logger.Debug("Emotion curves computed", logging.Fields{
		"function":     "States",
		"frames":       n,
		"mode":         mode,
		"tempo":        tempo,
		"vocal_frames": boosted,
		"centroid_std": centroidStd,
	})
	return states, nil
}

// Dissonance averages the interval weights of every pair of pitch classes
// above threshold, each pair weighted by the product of its magnitudes.
// Fewer than two active classes give 0.
func Dissonance(chroma []float64, threshold float64) float64 {
	active := make([]int, 0, len(chroma))
	for pc, v := range chroma {
		if v > threshold {
			active = append(active, pc)
		}
	}
	if len(active) < 2 {
		return 0
	}
	total, pairs := 0.0, 0
	for i := 0; i < len(active); i++ {
		for j := i + 1; j < len(active); j++ {
			interval := (active[j] - active[i]) % 12
			total += intervalDissonance[interval] * chroma[active[i]] * chroma[active[j]]
			pairs++
		}
	}
	return total / float64(pairs)
}

// normalize divides by the maximum; an all-zero curve stays zero
func normalize(x []float64) []float64 {
	peak := common.Max(x) + 1e-10
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v / peak
	}
	return out
}

// absDiff is |x[i] - x[i-1]| with a leading zero so it keeps len(x) values
func absDiff(x []float64) []float64 {
	out := make([]float64, len(x))
	for i := 1; i < len(x); i++ {
		out[i] = math.Abs(x[i] - x[i-1])
	}
	return out
}

// Segment groups states into mood segments. A mood run shorter than
// minDuration is absorbed by the run that follows it, which takes over its
// start and its valence/arousal samples, so the segments cover the states
// without gaps. The last segment ends at the last state.
func Segment(states []State, minDuration float64) []MoodSegment {
	segments := []MoodSegment{}
	if len(states) == 0 {
		return segments
	}

	current := states[0].Mood()
	start := states[0].Timestamp
	sumV, sumA, count := 0.0, 0.0, 0
	commit := func(end float64) {
		segments = append(segments, MoodSegment{
			Mood:    current,
			Start:   start,
			End:     end,
			Valence: sumV / float64(count),
			Arousal: sumA / float64(count),
			Colors:  current.Palette(),
		})
	}

	for _, s := range states {
		if mood := s.Mood(); mood != current {
			if s.Timestamp-start >= minDuration {
				commit(s.Timestamp)
				start = s.Timestamp
				sumV, sumA, count = 0, 0, 0
			}
			current = mood
		}
		sumV += s.Valence
		sumA += s.Arousal
		count++
	}
	commit(states[len(states)-1].Timestamp)
	return segments
}

// DominantMood classifies the mean valence and arousal; no states is neutral
func DominantMood(states []State) Mood {
	if len(states) == 0 {
		return MoodNeutral
	}
	v, a := 0.0, 0.0
	for _, s := range states {
		v += s.Valence
		a += s.Arousal
	}
	n := float64(len(states))
	return Classify(v/n, a/n)
}

// SampleCurves keeps every ceil(n/maxPoints)-th state
func SampleCurves(states []State, maxPoints int) Curves {
	idx := common.DownsampleIndices(len(states), maxPoints)
	c := Curves{
		Valence:      make([]float64, len(idx)),
		Arousal:      make([]float64, len(idx)),
		Tension:      make([]float64, len(idx)),
		TimestampsMs: make([]int, len(idx)),
	}
	for k, i := range idx {
		s := states[i]
		c.Valence[k] = s.Valence
		c.Arousal[k] = s.Arousal
		c.Tension[k] = s.Tension
		c.TimestampsMs[k] = int(s.Timestamp * 1000)
	}
	return c
}
