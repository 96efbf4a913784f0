package genesis

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/RyanBlaney/genesis-map/stems"
)

// FileAnalyzer decodes audio files and runs a pipeline over them. It is what
// the CLI and the job server hold.
type FileAnalyzer struct {
	loader   stems.Loader
	pipeline *Pipeline
}

// NewFileAnalyzer creates an analyzer decoding with loader
func NewFileAnalyzer(loader stems.Loader, pipeline *Pipeline) *FileAnalyzer {
	return &FileAnalyzer{loader: loader, pipeline: pipeline}
}

// AnalyzeFile decodes path and returns its GenesisMap. filename is recorded
// in the metadata; when empty the base name of path is used.
func (a *FileAnalyzer) AnalyzeFile(ctx context.Context, path, filename string, opts Options) (*GenesisMap, error) {
	if filename == "" {
		filename = filepath.Base(path)
	}
	audio, err := a.loader.DecodeFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load audio: %w", err)
	}
	return a.pipeline.Run(ctx, Input{
		Filename:   filename,
		Path:       path,
		Samples:    audio.PCM,
		SampleRate: audio.SampleRate,
	}, opts)
}
