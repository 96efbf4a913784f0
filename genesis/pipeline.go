package genesis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/RyanBlaney/genesis-map/apperrors"
	"github.com/RyanBlaney/genesis-map/beats"
	"github.com/RyanBlaney/genesis-map/compose"
	"github.com/RyanBlaney/genesis-map/emotion"
	"github.com/RyanBlaney/genesis-map/features"
	"github.com/RyanBlaney/genesis-map/harmony"
	"github.com/RyanBlaney/genesis-map/logging"
	"github.com/RyanBlaney/genesis-map/stems"
	"github.com/RyanBlaney/genesis-map/structure"
)

// Config gathers the stage configurations of a pipeline
type Config struct {
	Beats     beats.Config     `json:"beats" yaml:"beats"`
	Harmony   harmony.Config   `json:"harmony" yaml:"harmony"`
	Structure structure.Config `json:"structure" yaml:"structure"`
	Emotion   emotion.Config   `json:"emotion" yaml:"emotion"`
	Compose   compose.Config   `json:"compose" yaml:"compose"`

	// StemFrameSize and StemHopSize frame the stem envelopes
	StemFrameSize int `json:"stem_frame_size" yaml:"stem_frame_size"`
	StemHopSize   int `json:"stem_hop_size" yaml:"stem_hop_size"`
}

// DefaultConfig returns the default configuration of every stage
func DefaultConfig() Config {
	p := features.DefaultParams()
	return Config{
		Beats:         beats.DefaultConfig(),
		Harmony:       harmony.DefaultConfig(),
		Structure:     structure.DefaultConfig(),
		Emotion:       emotion.DefaultConfig(),
		Compose:       compose.DefaultConfig(),
		StemFrameSize: p.FrameSize,
		StemHopSize:   p.HopSize,
	}
}

// Validate checks every stage configuration
func (c Config) Validate() error {
	checks := []struct {
		name string
		err  error
	}{
		{"beats", c.Beats.Validate()},
		{"harmony", c.Harmony.Validate()},
		{"structure", c.Structure.Validate()},
		{"emotion", c.Emotion.Validate()},
		{"compose", c.Compose.Validate()},
	}
	for _, check := range checks {
		if check.err != nil {
			return fmt.Errorf("%s: %w", check.name, check.err)
		}
	}
	if c.StemFrameSize <= 0 || c.StemHopSize <= 0 || c.StemHopSize > c.StemFrameSize {
		return fmt.Errorf("stem framing %d/%d is invalid", c.StemFrameSize, c.StemHopSize)
	}
	return nil
}

// Input is a decoded track
type Input struct {
	Filename   string
	Path       string // source file handed to the stem separator
	Samples    []float64
	SampleRate int
}

// Options control one run
type Options struct {
	Stems      bool // separate stems, requires a Separator
	MaxEffects int  // effects kept in the map, 0 keeps all
	Progress   ProgressFunc
}

// DefaultOptions keeps the first 100 effects and skips stem separation
func DefaultOptions() Options {
	return Options{MaxEffects: 100}
}

// Pipeline runs every analysis stage over a track and composes the result
// into a GenesisMap. A Pipeline holds no per-job state and may run several
// jobs at once.
type Pipeline struct {
	config    Config
	beats     *beats.Engine
	harmony   *harmony.Engine
	structure *structure.Segmenter
	emotion   *emotion.Engine
	composer  *compose.Composer
	separator stems.Separator
	logger    logging.Logger
}

// NewPipeline creates a pipeline. separator may be nil when stems are never
// requested.
func NewPipeline(config Config, separator stems.Separator) *Pipeline {
	return &Pipeline{
		config:    config,
		beats:     beats.NewEngine(config.Beats),
		harmony:   harmony.NewEngine(config.Harmony),
		structure: structure.NewSegmenter(config.Structure),
		emotion:   emotion.NewEngine(config.Emotion),
		composer:  compose.NewComposer(config.Compose),
		separator: separator,
		logger: logging.WithFields(logging.Fields{
			"component": "genesis_pipeline",
		}),
	}
}

// stageResults collects what the concurrent stages produce
type stageResults struct {
	harmony  *harmony.Analysis
	segments []structure.Segment
	emotion  *emotion.Analysis
}

// Run analyses in and returns its GenesisMap. The context is checked between
// stages; cancellation returns ctx.Err().
func (p *Pipeline) Run(ctx context.Context, in Input, opts Options) (*GenesisMap, error) {
	logger := p.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "Run",
		"filename": in.Filename,
	})
	if len(in.Samples) == 0 {
		return nil, apperrors.ErrEmptySignal
	}
	if in.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", in.SampleRate)
	}
	if opts.Stems && p.separator == nil {
		return nil, fmt.Errorf("stem separation requested without a separator")
	}

	start := time.Now()
	progress := newProgressReporter(opts.Progress)
	ex := features.NewExtractor(in.Samples, in.SampleRate)
	progress.report(ProgressLoaded, "Audio loaded")

	grid, drops, err := p.beats.DetectFeatures(ctx, ex)
	if err != nil {
		return nil, fmt.Errorf("beat detection: %w", err)
	}
	progress.report(ProgressBeats, "Beats and drops detected")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var stemFeatures *stems.Features
	if opts.Stems {
		stemFeatures, err = p.separate(ctx, in.Path)
		if err != nil {
			return nil, err
		}
		progress.report(ProgressStems, "Stem separation complete")
	} else {
		progress.report(ProgressStems, "Stem separation skipped")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results, err := p.analyze(ctx, ex, grid, stemFeatures, progress)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	effects := p.composer.Compose(compose.Request{
		Beats:    grid,
		Drops:    drops,
		Moods:    results.emotion.Segments,
		Sections: results.segments,
		Harmony:  results.harmony,
		Stems:    stemFeatures,
	})
	progress.report(ProgressEffects, "Effects generated")

	m := Build(Parts{
		Filename:   in.Filename,
		Duration:   ex.Duration(),
		SampleRate: in.SampleRate,
		AnalyzedAt: time.Now(),
		Beats:      grid,
		Drops:      drops,
		Harmony:    results.harmony,
		Segments:   results.segments,
		Emotion:    results.emotion,
		Stems:      stemFeatures,
		Effects:    effects,
		MaxEffects: opts.MaxEffects,
	})
	progress.report(ProgressDone, "Analysis complete")

	logger.Info("Analysis complete", logging.Fields{
		"duration": time.Since(start).String(),
		"tempo":    grid.Tempo,
		"key":      results.harmony.Key.Name,
		"form":     m.Structure.Form,
		"effects":  len(effects),
	})
	return m, nil
}

// separate runs the stem separator and extracts typed stem features
func (p *Pipeline) separate(ctx context.Context, path string) (*stems.Features, error) {
	waveforms, err := p.separator.Separate(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("stem separation: %w", err)
	}
	f, err := stems.Extract(waveforms, features.Params{
		FrameSize: p.config.StemFrameSize,
		HopSize:   p.config.StemHopSize,
	})
	if err != nil {
		return nil, fmt.Errorf("stem features: %w", err)
	}
	return f, nil
}

// analyze runs harmony, structure and emotion concurrently over the shared
// extractor and waits for all three
func (p *Pipeline) analyze(ctx context.Context, ex *features.Extractor, grid *beats.BeatGrid, stemFeatures *stems.Features, progress *progressReporter) (*stageResults, error) {
	var results stageResults
	stages := []struct {
		name string
		run  func() error
	}{
		{"harmony", func() (err error) {
			results.harmony, err = p.harmony.AnalyzeFeatures(ctx, ex)
			return err
		}},
		{"structure", func() (err error) {
			results.segments, err = p.structure.AnalyzeFeatures(ctx, ex, grid.BeatFrames)
			return err
		}},
		{"emotion", func() (err error) {
			results.emotion, err = p.emotion.AnalyzeFeatures(ctx, ex, grid.Tempo, stemFeatures.VocalTrack())
			return err
		}},
	}

	errs := make([]error, len(stages))
	var wg sync.WaitGroup
	for i, stage := range stages {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := stage.run(); err != nil {
				errs[i] = fmt.Errorf("%s analysis: %w", stage.name, err)
				return
			}
			progress.stageDone(fmt.Sprintf("%s analysis complete", stage.name))
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return &results, nil
}
