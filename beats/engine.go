package beats

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/RyanBlaney/genesis-map/algorithms/common"
	"github.com/RyanBlaney/genesis-map/algorithms/temporal"
	"github.com/RyanBlaney/genesis-map/apperrors"
	"github.com/RyanBlaney/genesis-map/features"
	"github.com/RyanBlaney/genesis-map/logging"
)

// Engine derives the beat grid, drops and buildups of a track
type Engine struct {
	config  Config
	gate    *DropGate
	tempo   *temporal.TempoEstimation
	tracker *temporal.BeatTracker
	logger  logging.Logger
}

// NewEngine creates a beat engine
func NewEngine(config Config) *Engine {
	return &Engine{
		config:  config,
		gate:    NewDropGate(config.Gate),
		tempo:   temporal.NewTempoEstimation(),
		tracker: temporal.NewBeatTracker(),
		logger: logging.WithFields(logging.Fields{
			"component": "beat_engine",
		}),
	}
}

// Gate exposes the drop gate so thresholds can be inspected or replaced
func (e *Engine) Gate() *DropGate {
	return e.gate
}

// SetGate replaces the drop gate
func (e *Engine) SetGate(g *DropGate) {
	e.gate = g
}

func (e *Engine) params() features.Params {
	return features.Params{FrameSize: e.config.FrameSize, HopSize: e.config.HopSize}
}

// Detect runs beat tracking, downbeat selection, drop and buildup detection
// over a mono signal
func (e *Engine) Detect(ctx context.Context, signal []float64, sampleRate int) (*BeatGrid, []DropEvent, error) {
	if len(signal) == 0 {
		return nil, nil, apperrors.ErrEmptySignal
	}
	return e.DetectFeatures(ctx, features.NewExtractor(signal, sampleRate))
}

// DetectFeatures is Detect over a shared extractor
func (e *Engine) DetectFeatures(ctx context.Context, ex *features.Extractor) (*BeatGrid, []DropEvent, error) {
	logger := e.logger.WithContext(ctx).WithFields(logging.Fields{"function": "DetectFeatures"})

	grid, err := e.Track(ex)
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	drops, err := e.Drops(ex, grid)
	if err != nil {
		return nil, nil, err
	}
	buildups, err := e.Buildups(ex, drops)
	if err != nil {
		return nil, nil, err
	}

	events := append(drops, buildups...)
	sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp < events[j].Timestamp })

	logger.Info("Beat detection complete", logging.Fields{
		"tempo":     grid.Tempo,
		"beats":     len(grid.BeatTimes),
		"downbeats": len(grid.Downbeats),
		"drops":     len(drops),
		"buildups":  len(buildups),
	})
	return grid, events, nil
}

// Track estimates tempo, beats, downbeats and groove
func (e *Engine) Track(ex *features.Extractor) (*BeatGrid, error) {
	p := e.params()
	onsetSeries, err := ex.Onset(p)
	if err != nil {
		return nil, fmt.Errorf("onset envelope: %w", err)
	}
	onset := onsetSeries.Values()
	sr := ex.SampleRate()

	tempo := e.tempo.EstimateTempo(onset, sr, p.HopSize)
	frames := e.tracker.Track(onset, tempo, sr, p.HopSize)

	grid := &BeatGrid{
		Tempo:      tempo,
		BeatFrames: frames,
		BeatTimes:  make([]float64, len(frames)),
		HopSize:    p.HopSize,
		SampleRate: sr,
	}
	for i, f := range frames {
		grid.BeatTimes[i] = onsetSeries.FrameTime(f)
	}

	downbeats, err := e.Downbeats(onset, grid)
	if err != nil {
		if !apperrors.IsInsufficient(err) {
			return nil, err
		}
		e.logger.Debug("No downbeats", logging.Fields{"reason": err.Error()})
		downbeats = []float64{}
	}
	grid.Downbeats = downbeats
	grid.GrooveScore = GrooveScore(grid.BeatTimes)
	return grid, nil
}

// Downbeats keeps beats whose onset strength exceeds mean + k*std and then
// walks them left to right, accepting one only when it lies at least a
// fraction of a bar after the previously accepted downbeat
func (e *Engine) Downbeats(onset []float64, grid *BeatGrid) ([]float64, error) {
	if len(grid.BeatFrames) < 4 {
		return nil, apperrors.Insufficient("downbeats need 4 beats, got %d", len(grid.BeatFrames))
	}
	if grid.Tempo <= 0 || len(onset) == 0 {
		return nil, apperrors.Insufficient("no tempo")
	}

	strengths := make([]float64, len(grid.BeatFrames))
	for i, f := range grid.BeatFrames {
		strengths[i] = onset[min(max(f, 0), len(onset)-1)]
	}
	threshold := common.Mean(strengths) + e.config.DownbeatStdFactor*common.StdDev(strengths)

	bar := 60.0 / grid.Tempo * float64(e.config.BeatsPerBar)
	last := -bar
	downbeats := []float64{}
	for i, s := range strengths {
		if s <= threshold {
			continue
		}
		if t := grid.BeatTimes[i]; t-last >= bar*e.config.DownbeatBarFraction {
			downbeats = append(downbeats, t)
			last = t
		}
	}
	return downbeats, nil
}

// dropCues are the smoothed per-frame curves the gate inspects
type dropCues struct {
	rms, flux, bass, harmonic []float64
}

func (e *Engine) cues(ex *features.Extractor) (*dropCues, error) {
	p := e.params()
	rms, err := ex.RMS(p)
	if err != nil {
		return nil, err
	}
	flux, err := ex.Flux(p)
	if err != nil {
		return nil, err
	}
	bass, err := ex.BassEnergy(p)
	if err != nil {
		return nil, err
	}
	harmonic, err := ex.HarmonicChange(p)
	if err != nil {
		return nil, err
	}

	n := min(rms.Len(), flux.Len(), bass.Len(), harmonic.Len())
	sigma := e.config.SmoothingSigma
	smooth := func(s *features.Series) []float64 {
		return common.GaussianFilter1D(s.Values()[:n], sigma)
	}
	return &dropCues{
		rms:      smooth(rms),
		flux:     smooth(flux),
		bass:     smooth(bass),
		harmonic: smooth(harmonic),
	}, nil
}

// Drops scans the smoothed energy curve for frames passing the drop gate,
// then applies spacing, beat snapping and downbeat gating
func (e *Engine) Drops(ex *features.Extractor, grid *BeatGrid) ([]DropEvent, error) {
	c, err := e.cues(ex)
	if err != nil {
		return nil, fmt.Errorf("drop cues: %w", err)
	}
	return e.scanDrops(c, ex.SampleRate(), grid), nil
}

func (e *Engine) scanDrops(c *dropCues, sampleRate int, grid *BeatGrid) []DropEvent {
	hop := e.config.HopSize
	frameRate := float64(sampleRate) / float64(hop)
	window := int(frameRate * e.config.DropWindowSeconds)
	sustain := max(1, int(frameRate*e.config.SustainSeconds))
	slopeSpan := max(int(frameRate*e.config.SlopeSeconds), e.config.MinSlopeFrames)
	minGap := math.Max(e.config.MinDropSpacingSeconds,
		e.config.MinDropSpacingBeats*grid.BeatInterval(e.config.DefaultBeatInterval))

	rejected := map[string]int{}
	drops := []DropEvent{}
	n := len(c.rms)
	for i := window; i < n-window; i++ {
		prev := c.rms[max(0, i-2*window):i]
		if len(prev) < window {
			continue
		}
		seg := c.rms[max(i-slopeSpan, 0):i]
		if len(seg) < e.config.MinSlopeFrames {
			continue
		}

		cand := Candidate{
			Frame:        i,
			Energy:       common.Mean(c.rms[i:min(n, i+sustain)]),
			EnergyP95:    common.Percentile(prev, 0.95),
			EnergyMedian: common.Median(prev),
			Slope:        common.Slope(seg, 0),
			Flux:         c.flux[i] / (common.Mean(c.flux[i-window:i]) + 1e-6),
			Bass:         c.bass[i] / (common.Mean(c.bass[i-window:i]) + 1e-6),
			Harmonic:     c.harmonic[i] / (common.Mean(c.harmonic[i-window:i]) + 1e-6),
		}
		confidence, stage, ok := e.gate.Evaluate(cand)
		if !ok {
			rejected[stage]++
			continue
		}

		timestamp := float64(i*hop) / float64(sampleRate)
		if len(drops) > 0 && timestamp-drops[len(drops)-1].Timestamp < minGap {
			rejected["spacing"]++
			continue
		}
		if len(grid.BeatTimes) > 0 {
			if beat, d := nearest(grid.BeatTimes, timestamp); d < e.config.BeatSnapSeconds {
				timestamp = beat
			}
		}
		// only gated when downbeats were found at all
		if len(grid.Downbeats) > 0 {
			if _, d := nearest(grid.Downbeats, timestamp); d > e.config.DownbeatGateSeconds {
				rejected["downbeat"]++
				continue
			}
		}

		drops = append(drops, DropEvent{
			Timestamp:   timestamp,
			Type:        EventDrop,
			Confidence:  confidence,
			EnergyRatio: cand.EnergyRatio(),
		})
	}

	e.logger.Debug("Drop scan complete", logging.Fields{
		"function": "scanDrops",
		"frames":   n,
		"accepted": len(drops),
		"rejected": rejected,
	})
	return drops
}

// Buildups looks back from each drop for a stretch where both energy and
// spectral centroid rise
func (e *Engine) Buildups(ex *features.Extractor, drops []DropEvent) ([]DropEvent, error) {
	if len(drops) == 0 {
		return []DropEvent{}, nil
	}
	p := e.params()
	rms, err := ex.RMS(p)
	if err != nil {
		return nil, fmt.Errorf("buildup energy: %w", err)
	}
	centroid, err := ex.Centroid(p)
	if err != nil {
		return nil, fmt.Errorf("buildup centroid: %w", err)
	}
	return e.findBuildups(rms.Values(), centroid.Values(), ex.SampleRate(), drops), nil
}

func (e *Engine) findBuildups(rms, centroid []float64, sampleRate int, drops []DropEvent) []DropEvent {
	hop := e.config.HopSize
	frameRate := float64(sampleRate) / float64(hop)
	lookback := int(e.config.BuildupLookbackSeconds * frameRate)
	n := min(len(rms), len(centroid))

	buildups := []DropEvent{}
	for _, drop := range drops {
		if drop.Type != EventDrop {
			continue
		}
		dropFrame := min(int(math.Floor(drop.Timestamp*frameRate)), n)
		start := max(0, dropFrame-lookback)
		if start >= dropFrame-e.config.MinBuildupFrames {
			continue
		}

		energy := common.MaxNormalize(rms[start:dropFrame])
		bright := common.MaxNormalize(centroid[start:dropFrame])
		energySlope := common.Slope(energy, 1/frameRate)
		brightSlope := common.Slope(bright, 1/frameRate)
		if energySlope <= 0 || brightSlope <= 0 {
			continue
		}

		rise := start
		for i := 0; i+1 < len(energy); i++ {
			if energy[i+1] > energy[i] {
				rise = start + i
				break
			}
		}
		riseTime := float64(rise*hop) / float64(sampleRate)
		duration := int((drop.Timestamp - riseTime) * 1000)
		if duration < e.config.MinBuildupMs || duration > e.config.MaxBuildupMs {
			continue
		}

		buildups = append(buildups, DropEvent{
			Timestamp:   riseTime,
			Type:        EventBuildup,
			Confidence:  math.Min(1, 10*(energySlope+brightSlope)/2),
			EnergyRatio: math.Max(1, energy[len(energy)-1]/(energy[0]+1e-6)),
			DurationMs:  duration,
		})
	}
	return buildups
}

// GrooveScore maps the coefficient of variation of beat intervals to (0, 1];
// fewer than four beats score 0
func GrooveScore(beatTimes []float64) float64 {
	if len(beatTimes) < 4 {
		return 0
	}
	intervals := common.Diff(beatTimes)
	cv := common.StdDev(intervals) / (common.Mean(intervals) + 1e-6)
	return math.Exp(-5 * cv)
}
