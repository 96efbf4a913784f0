package harmony

import (
	"context"
	"fmt"

	"github.com/RyanBlaney/genesis-map/algorithms/chroma"
	"github.com/RyanBlaney/genesis-map/algorithms/common"
	"github.com/RyanBlaney/genesis-map/algorithms/tonal"
	"github.com/RyanBlaney/genesis-map/apperrors"
	"github.com/RyanBlaney/genesis-map/features"
	"github.com/RyanBlaney/genesis-map/logging"
)

// Engine estimates key, chord progression and harmonic change
type Engine struct {
	config Config
	keys   *tonal.KeyEstimator
	chords *tonal.ChordMatcher
	logger logging.Logger
}

// NewEngine creates a harmony engine
func NewEngine(config Config) *Engine {
	return &Engine{
		config: config,
		keys:   tonal.NewKeyEstimator(),
		chords: tonal.NewChordMatcher(),
		logger: logging.WithFields(logging.Fields{
			"component": "harmony_engine",
		}),
	}
}

func (e *Engine) params() features.Params {
	return features.Params{FrameSize: e.config.FrameSize, HopSize: e.config.HopSize}
}

func (e *Engine) chordParams() features.Params {
	return features.Params{FrameSize: e.config.ChordFrameSize, HopSize: e.config.ChordHopSize}
}

// Analyze runs key, chord and harmonic change detection over a mono signal
func (e *Engine) Analyze(ctx context.Context, signal []float64, sampleRate int) (*Analysis, error) {
	if len(signal) == 0 {
		return nil, apperrors.ErrEmptySignal
	}
	return e.AnalyzeFeatures(ctx, features.NewExtractor(signal, sampleRate))
}

// AnalyzeFeatures is Analyze over a shared extractor
func (e *Engine) AnalyzeFeatures(ctx context.Context, ex *features.Extractor) (*Analysis, error) {
	logger := e.logger.WithContext(ctx).WithFields(logging.Fields{"function": "AnalyzeFeatures"})

	key, err := e.DetectKey(ex)
	if err != nil {
		return nil, fmt.Errorf("key detection: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	chords, err := e.DetectChords(ex)
	if err != nil {
		return nil, fmt.Errorf("chord detection: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	change, err := e.ComputeHarmonicChange(ex)
	if err != nil {
		return nil, fmt.Errorf("harmonic change: %w", err)
	}

	logger.Info("Harmony analysis complete", logging.Fields{
		"key":            key.Name,
		"key_confidence": key.Confidence,
		"chords":         len(chords),
		"change_peaks":   len(change.Peaks),
	})
	return &Analysis{Key: key, Chords: chords, Change: change}, nil
}

// DetectKey correlates the mean chroma against the 24 Krumhansl-Kessler keys
func (e *Engine) DetectKey(ex *features.Extractor) (KeyEstimate, error) {
	c, err := ex.Chroma(e.params())
	if err != nil {
		return KeyEstimate{}, err
	}
	if c.Len() == 0 {
		return KeyEstimate{Name: tonal.GetKeyName(0, tonal.KeyModeMajor)}, nil
	}

	result := e.keys.EstimateKey(chroma.MeanChroma(c.Frames))
	e.logger.Debug("Key estimated", logging.Fields{
		"function": "DetectKey",
		"key":      result.KeyName,
		"strength": result.Strength,
		"margin":   result.Margin,
	})
	return KeyEstimate{
		Root:       result.Key,
		Mode:       result.Mode,
		Name:       result.KeyName,
		Confidence: result.Confidence,
	}, nil
}

// DetectChords matches each chroma frame against the chord templates and
// emits an event when the label changes, then smooths the result
func (e *Engine) DetectChords(ex *features.Extractor) ([]ChordEvent, error) {
	c, err := ex.Chroma(e.chordParams())
	if err != nil {
		return nil, err
	}

	raw := []ChordEvent{}
	lastLabel := ""
	lastTime := 0
	for t, frame := range c.Frames {
		chord, score, ok := e.chords.Match(frame, e.config.MinChordEnergy)
		if !ok {
			continue
		}
		confidence := ChordConfidence(score)
		label := chord.Label()
		if confidence <= e.config.MinChordConfidence || label == lastLabel {
			continue
		}

		timeMs := int(c.FrameTime(t) * 1000)
		if len(raw) > 0 && timeMs-lastTime <= e.config.MinChordGapMs {
			continue
		}
		raw = append(raw, ChordEvent{
			TimeMs:     timeMs,
			Chord:      label,
			Confidence: confidence,
			Color:      ChordColor(chord),
			Root:       chord.Root,
			Quality:    chord.Quality,
		})
		lastLabel, lastTime = label, timeMs
	}

	smoothed := SmoothChords(raw, e.config.SmoothingWindowMs, e.config.SmoothingMargin)
	e.logger.Debug("Chords detected", logging.Fields{
		"function": "DetectChords",
		"frames":   c.Len(),
		"raw":      len(raw),
		"smoothed": len(smoothed),
	})
	return smoothed, nil
}

// ChordConfidence rescales a cosine template score so that a flat chroma
// frame (cosine 0.5 against any triad) maps to 0 and a perfect match to 1
func ChordConfidence(score float64) float64 {
	return common.Clamp(2*score-1, 0, 1)
}

// SmoothChords suppresses rapid flips. An event arriving within windowMs of
// the incumbent replaces it only when its confidence is higher by more than
// margin; otherwise it is dropped. Consecutive events with the same label are
// then merged into the earlier one, keeping the higher confidence.
func SmoothChords(events []ChordEvent, windowMs int, margin float64) []ChordEvent {
	if len(events) == 0 {
		return []ChordEvent{}
	}

	smoothed := []ChordEvent{events[0]}
	for _, ev := range events[1:] {
		last := &smoothed[len(smoothed)-1]
		if ev.TimeMs-last.TimeMs < windowMs {
			if ev.Confidence > last.Confidence+margin {
				*last = ev
			}
			continue
		}
		smoothed = append(smoothed, ev)
	}

	merged := smoothed[:1]
	for _, ev := range smoothed[1:] {
		last := &merged[len(merged)-1]
		if ev.Chord == last.Chord {
			last.Confidence = max(last.Confidence, ev.Confidence)
			continue
		}
		merged = append(merged, ev)
	}
	return merged
}

// ComputeHarmonicChange smooths the chroma change curve, downsamples it and
// keeps local maxima at or above the configured percentile
func (e *Engine) ComputeHarmonicChange(ex *features.Extractor) (*HarmonicChangeCurve, error) {
	curve := &HarmonicChangeCurve{
		CurveTimesMs:  []int{},
		CurveStrength: []float64{},
		Peaks:         []ChangePeak{},
	}
	c, err := ex.Chroma(e.params())
	if err != nil {
		return nil, err
	}
	if c.Len() < 2 {
		return curve, nil
	}

	change := common.GaussianFilter1D(features.ChromaChange(c.Frames), e.config.ChangeSigma)
	timeMs := func(i int) int { return int(c.FrameTime(i) * 1000) }

	for _, i := range common.DownsampleIndices(len(change), e.config.MaxCurvePoints) {
		curve.CurveTimesMs = append(curve.CurveTimesMs, timeMs(i))
		curve.CurveStrength = append(curve.CurveStrength, change[i])
	}

	threshold := 0.0
	if common.Max(change) > 0 {
		threshold = common.Percentile(change, e.config.PeakPercentile)
	}
	for _, i := range common.LocalMaxima(change, threshold) {
		curve.Peaks = append(curve.Peaks, ChangePeak{TimeMs: timeMs(i), Strength: change[i]})
	}
	return curve, nil
}
