package structure

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/RyanBlaney/genesis-map/algorithms/common"
	"github.com/RyanBlaney/genesis-map/algorithms/stats"
	"github.com/RyanBlaney/genesis-map/apperrors"
	"github.com/RyanBlaney/genesis-map/features"
	"github.com/RyanBlaney/genesis-map/logging"
)

// Segmenter splits a track into labelled sections
type Segmenter struct {
	config     Config
	recurrence *stats.Recurrence
	logger     logging.Logger
}

// NewSegmenter creates a segmenter
func NewSegmenter(config Config) *Segmenter {
	return &Segmenter{
		config:     config,
		recurrence: stats.NewRecurrence(config.Neighbors, config.PathWidth),
		logger: logging.WithFields(logging.Fields{
			"component": "structural_segmenter",
		}),
	}
}

func (s *Segmenter) params() features.Params {
	return features.Params{FrameSize: s.config.FrameSize, HopSize: s.config.HopSize}
}

// Analyze segments a mono signal. beatFrames are onset-envelope frame
// indices at the segmenter hop; nil is allowed.
func (s *Segmenter) Analyze(ctx context.Context, signal []float64, sampleRate int, beatFrames []int) ([]Segment, error) {
	if len(signal) == 0 {
		return nil, apperrors.ErrEmptySignal
	}
	return s.AnalyzeFeatures(ctx, features.NewExtractor(signal, sampleRate), beatFrames)
}

// AnalyzeFeatures is Analyze over a shared extractor. The returned segments
// cover [0, duration] without gaps or overlaps.
func (s *Segmenter) AnalyzeFeatures(ctx context.Context, ex *features.Extractor, beatFrames []int) ([]Segment, error) {
	logger := s.logger.WithContext(ctx).WithFields(logging.Fields{"function": "AnalyzeFeatures"})
	duration := ex.Duration()

	stack, err := s.featureStack(ex)
	if err != nil {
		return nil, err
	}
	if len(stack) < 2 {
		return []Segment{{Label: LabelIntro, Start: 0, End: duration, Confidence: 0.8}}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	boundaries, err := s.boundaries(ex, stack, beatFrames)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	spans, means := s.spans(stack, boundaries, ex.SampleRate(), duration)
	clusters, err := s.cluster(means)
	if err != nil {
		return nil, fmt.Errorf("segment clustering: %w", err)
	}
	segments := MergeShort(s.label(spans, clusters, duration), s.config.MinSegmentSeconds, s.config.MergeDecay)

	logger.Info("Structure analysis complete", logging.Fields{
		"boundaries": len(boundaries),
		"segments":   len(segments),
		"form":       Form(segments),
	})
	return segments, nil
}

// featureStack returns MFCC, chroma, contrast and tonnetz per frame, each
// dimension scaled by its largest absolute value over time
func (s *Segmenter) featureStack(ex *features.Extractor) ([][]float64, error) {
	p := s.params()
	mfcc, err := ex.MFCC(p)
	if err != nil {
		return nil, fmt.Errorf("structure mfcc: %w", err)
	}
	chroma, err := ex.Chroma(p)
	if err != nil {
		return nil, fmt.Errorf("structure chroma: %w", err)
	}
	contrast, err := ex.Contrast(p)
	if err != nil {
		return nil, fmt.Errorf("structure contrast: %w", err)
	}
	tonnetz, err := ex.Tonnetz(p)
	if err != nil {
		return nil, fmt.Errorf("structure tonnetz: %w", err)
	}
	return normalizeDims(features.Stack(mfcc, chroma, contrast, tonnetz)), nil
}

func normalizeDims(frames [][]float64) [][]float64 {
	if len(frames) == 0 {
		return frames
	}
	dim := len(frames[0])
	scale := make([]float64, dim)
	for _, f := range frames {
		for d, v := range f {
			scale[d] = math.Max(scale[d], math.Abs(v))
		}
	}
	out := make([][]float64, len(frames))
	for t, f := range frames {
		out[t] = make([]float64, dim)
		for d, v := range f {
			if scale[d] > 1e-10 {
				out[t][d] = v / scale[d]
			}
		}
	}
	return out
}

// grid maps the rows of a synchronised feature sequence back to frames
type grid struct {
	rows    [][]float64
	frameAt []int
	beats   bool
}

// syncToBeats aggregates frames between consecutive beats with the median.
// Row i covers [beat i, beat i+1), the last row runs to the end.
func syncToBeats(frames [][]float64, beatFrames []int) grid {
	n := len(frames)
	starts := []int{}
	for _, b := range beatFrames {
		if b >= 0 && b < n && (len(starts) == 0 || b > starts[len(starts)-1]) {
			starts = append(starts, b)
		}
	}
	return grid{rows: resync(frames, starts, common.Median), frameAt: starts, beats: true}
}

// resync reduces frames over [starts[i], starts[i+1]), the last block running
// to the end
func resync(frames [][]float64, starts []int, reduce func([]float64) float64) [][]float64 {
	rows := make([][]float64, len(starts))
	for i, start := range starts {
		start = min(start, len(frames)-1)
		end := len(frames)
		if i+1 < len(starts) {
			end = max(start+1, min(starts[i+1], len(frames)))
		}
		rows[i] = aggregate(frames[start:end], reduce)
	}
	return rows
}

// pool averages blocks of frames so that at most maxRows remain
func pool(frames [][]float64, frameAt []int, maxRows int) ([][]float64, []int) {
	if len(frames) <= maxRows {
		return frames, frameAt
	}
	stride := (len(frames) + maxRows - 1) / maxRows
	rows := [][]float64{}
	at := []int{}
	for i := 0; i < len(frames); i += stride {
		rows = append(rows, aggregate(frames[i:min(i+stride, len(frames))], common.Mean))
		at = append(at, frameAt[i])
	}
	return rows, at
}

func aggregate(block [][]float64, reduce func([]float64) float64) []float64 {
	if len(block) == 0 {
		return nil
	}
	out := make([]float64, len(block[0]))
	column := make([]float64, len(block))
	for d := range out {
		for t, f := range block {
			column[t] = f[d]
		}
		out[d] = reduce(column)
	}
	return out
}

func zscoreOrZero(x []float64) []float64 {
	if common.StdDev(x) < 1e-6 {
		return make([]float64, len(x))
	}
	return common.ZScore(x)
}

// boundaries returns sorted, pruned boundary frames including frame 0 and
// the frame past the last sample
func (s *Segmenter) boundaries(ex *features.Extractor, stack [][]float64, beatFrames []int) ([]int, error) {
	cfg := s.config
	p := s.params()
	sr := ex.SampleRate()

	var g grid
	if len(beatFrames) >= cfg.MinSyncBeats {
		g = syncToBeats(stack, beatFrames)
	}
	if len(g.rows) < 2 {
		g = grid{rows: stack, frameAt: make([]int, len(stack))}
		for i := range g.frameAt {
			g.frameAt[i] = i
		}
	}
	g.rows, g.frameAt = pool(g.rows, g.frameAt, cfg.MaxFrames)
	rows := len(g.rows)

	novelty := common.GaussianFilter1D(s.recurrence.Novelty(g.rows), cfg.NoveltySigma)

	var harmonic []float64
	if g.beats && len(beatFrames) >= cfg.MinFusionBeats {
		chroma, err := ex.Chroma(p)
		if err != nil {
			return nil, err
		}
		rms, err := ex.RMS(p)
		if err != nil {
			return nil, err
		}
		harmonic = features.ChromaChange(resync(chroma.Frames, g.frameAt, common.Median))
		energy := common.AbsDiff(common.Column(resync(rms.Frames, g.frameAt, common.Mean), 0))

		nz, hz, ez := zscoreOrZero(novelty), zscoreOrZero(harmonic), zscoreOrZero(energy)
		fused := make([]float64, rows)
		for i := range fused {
			fused[i] = cfg.NoveltyWeight*nz[i] + cfg.HarmonicWeight*hz[i] + cfg.EnergyWeight*ez[i]
		}
		novelty = fused
	}

	beatsPerBar := 4
	if g.beats {
		times := make([]float64, len(g.frameAt))
		for i, f := range g.frameAt {
			times[i] = float64(f*p.HopSize) / float64(sr)
		}
		if len(times) > 1 {
			if median := common.Median(common.Diff(times)); median > 0 {
				switch tempo := 60 / median; {
				case tempo > 180:
					beatsPerBar = 2
				case tempo < 80:
					beatsPerBar = 8
				}
			}
		}
	}
	minBeats := max(beatsPerBar*cfg.BarsMin, beatsPerBar*3)
	kernel := max(beatsPerBar*cfg.KernelBars, beatsPerBar*2)

	indices := common.PeakPick(novelty, common.PeakPickParams{
		PreMax:  max(1, kernel/2),
		PostMax: max(1, kernel/2),
		PreAvg:  kernel,
		PostAvg: kernel,
		Delta:   math.Max(0, common.StdDev(novelty)*cfg.DeltaFactor),
		Wait:    minBeats,
	})

	if len(harmonic) == rows {
		scores := zscoreOrZero(harmonic)
		if threshold := common.Percentile(scores, cfg.HarmonicPeakPercentile); threshold > 0 {
			for i, v := range scores {
				if v >= threshold {
					indices = append(indices, i)
				}
			}
		}
	}

	if len(indices) == 0 {
		count := max(3, min(cfg.FallbackBoundaries, rows/max(beatsPerBar*4, 1)))
		for _, v := range common.Linspace(0, float64(rows-1), count) {
			indices = append(indices, int(v))
		}
	}
	indices = append(indices, 0, rows-1)

	lastFrame := int(math.Ceil(float64(len(ex.Signal())) / float64(p.HopSize)))
	frames := []int{lastFrame}
	for _, i := range indices {
		frames = append(frames, g.frameAt[min(max(i, 0), rows-1)])
	}
	frames = uniqueSorted(frames)

	frames = s.prune(frames, sr)
	if len(frames) <= 2 {
		fallback := []int{}
		for _, v := range common.Linspace(0, float64(lastFrame), cfg.FallbackBoundaries) {
			fallback = append(fallback, int(v))
		}
		frames = uniqueSorted(fallback)
	}

	s.logger.Debug("Boundaries detected", logging.Fields{
		"function":      "boundaries",
		"rows":          rows,
		"beat_sync":     g.beats,
		"beats_per_bar": beatsPerBar,
		"peaks":         len(indices),
		"boundaries":    len(frames),
	})
	return frames, nil
}

// prune drops inner boundaries that would leave a segment shorter than
// MinBoundarySeconds on either side. The first and last are always kept.
func (s *Segmenter) prune(frames []int, sampleRate int) []int {
	if len(frames) <= 2 {
		return frames
	}
	t := func(f int) float64 { return float64(f*s.config.HopSize) / float64(sampleRate) }
	minimum := s.config.MinBoundarySeconds

	kept := []int{frames[0]}
	for i := 1; i < len(frames)-1; i++ {
		left := t(frames[i]) - t(kept[len(kept)-1])
		right := t(frames[i+1]) - t(frames[i])
		if left < minimum || right < minimum {
			continue
		}
		kept = append(kept, frames[i])
	}
	return append(kept, frames[len(frames)-1])
}

// spans converts boundary frames to contiguous time spans covering
// [0, duration] and returns the mean feature vector of each
func (s *Segmenter) spans(stack [][]float64, boundaries []int, sampleRate int, duration float64) ([]span, [][]float64) {
	n := len(stack)
	edges := []float64{0}
	frames := []int{0}
	for _, f := range boundaries[1:] {
		t := math.Min(float64(f*s.config.HopSize)/float64(sampleRate), duration)
		if t > edges[len(edges)-1] {
			edges = append(edges, t)
			frames = append(frames, f)
		}
	}
	if len(edges) == 1 {
		edges = append(edges, duration)
		frames = append(frames, n)
	}
	edges[len(edges)-1] = duration

	spans := make([]span, 0, len(edges)-1)
	means := make([][]float64, 0, len(edges)-1)
	for i := 0; i+1 < len(edges); i++ {
		lo := min(frames[i], n-1)
		hi := max(lo+1, min(frames[i+1], n))
		spans = append(spans, span{start: edges[i], end: edges[i+1]})
		means = append(means, aggregate(stack[lo:hi], common.Mean))
	}
	return spans, means
}

// cluster groups segment means with seeded k-means,
// k = min(MaxClusters, max(2, n/3))
func (s *Segmenter) cluster(means [][]float64) ([]int, error) {
	if len(means) < 2 {
		return make([]int, len(means)), nil
	}
	k := min(s.config.MaxClusters, max(2, len(means)/3))
	result, err := stats.NewClusteringWithParams(stats.ClusteringParams{
		NumClusters:   k,
		MaxIterations: 300,
		Tolerance:     1e-4,
		NumInit:       s.config.ClusterInits,
		RandomSeed:    s.config.ClusterSeed,
	}).Fit(means)
	if err != nil {
		return nil, err
	}
	return result.Labels, nil
}

func uniqueSorted(values []int) []int {
	sort.Ints(values)
	out := []int{}
	for _, v := range values {
		if len(out) == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
