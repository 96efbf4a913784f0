package stems

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/RyanBlaney/genesis-map/apperrors"
	"github.com/RyanBlaney/genesis-map/logging"
	"github.com/RyanBlaney/genesis-map/transcode"
)

// Loader decodes an audio file to mono PCM
type Loader interface {
	DecodeFile(ctx context.Context, path string) (*transcode.AudioData, error)
}

// DemucsConfig configures the demucs command line separator
type DemucsConfig struct {
	Binary    string        `json:"binary" yaml:"binary"`
	Model     string        `json:"model" yaml:"model"`
	WorkDir   string        `json:"work_dir" yaml:"work_dir"` // empty uses the system temp dir
	Timeout   time.Duration `json:"timeout" yaml:"timeout"`
	KeepFiles bool          `json:"keep_files" yaml:"keep_files"`
}

// DefaultDemucsConfig returns the htdemucs four-stem setup
func DefaultDemucsConfig() DemucsConfig {
	return DemucsConfig{
		Binary:  "demucs",
		Model:   "htdemucs",
		Timeout: 10 * time.Minute,
	}
}

// runResult holds command execution output
type runResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// DemucsSeparator runs the demucs CLI into a scratch directory and decodes
// the stems it writes
type DemucsSeparator struct {
	config DemucsConfig
	loader Loader
	logger logging.Logger
}

// NewDemucsSeparator creates a separator that decodes stems with loader
func NewDemucsSeparator(config DemucsConfig, loader Loader) *DemucsSeparator {
	return &DemucsSeparator{
		config: config,
		loader: loader,
		logger: logging.WithFields(logging.Fields{
			"component": "demucs_separator",
		}),
	}
}

// Separate splits path into bass, drums, vocals and other
func (s *DemucsSeparator) Separate(ctx context.Context, path string) (map[Name]Waveform, error) {
	logger := s.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "Separate",
		"input":    filepath.Base(path),
	})

	binary, err := exec.LookPath(s.config.Binary)
	if err != nil {
		return nil, apperrors.NewCollaboratorError("demucs", "stem_separation",
			fmt.Errorf("%w: %s", apperrors.ErrToolNotInstalled, s.config.Binary))
	}

	outDir, err := os.MkdirTemp(s.config.WorkDir, "genesis-stems-*")
	if err != nil {
		return nil, fmt.Errorf("create stem dir: %w", err)
	}
	if !s.config.KeepFiles {
		defer os.RemoveAll(outDir)
	}

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	logger.Info("Running stem separation", logging.Fields{"model": s.config.Model})
	result, err := run(ctx, binary, "-n", s.config.Model, "-o", outDir, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		cerr := apperrors.NewCollaboratorError("demucs", "stem_separation", err)
		if result != nil {
			cerr.ExitCode = result.ExitCode
			cerr.Stderr = lastLine(result.Stderr)
		}
		return nil, cerr
	}

	// demucs writes <out>/<model>/<track>/<stem>.wav
	track := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	waveforms, err := s.load(ctx, filepath.Join(outDir, s.config.Model, track))
	if err != nil {
		return nil, err
	}

	logger.Info("Stem separation complete", logging.Fields{
		"stems":    len(waveforms),
		"duration": result.Duration.String(),
	})
	return waveforms, nil
}

// load decodes every known stem found in dir
func (s *DemucsSeparator) load(ctx context.Context, dir string) (map[Name]Waveform, error) {
	waveforms := make(map[Name]Waveform)
	for _, name := range Names {
		path := findStem(dir, name)
		if path == "" {
			continue
		}
		audio, err := s.loader.DecodeFile(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("load %s stem: %w", name, err)
		}
		waveforms[name] = Waveform{Samples: audio.PCM, SampleRate: audio.SampleRate}
	}
	if len(waveforms) == 0 {
		return nil, apperrors.NewCollaboratorError("demucs", "stem_separation",
			fmt.Errorf("no stems found in %s", dir))
	}
	return waveforms, nil
}

func findStem(dir string, name Name) string {
	for _, ext := range []string{".wav", ".mp3", ".flac"} {
		path := filepath.Join(dir, string(name)+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func run(ctx context.Context, name string, args ...string) (*runResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()

	result := &runResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
	}
	if err != nil {
		return result, fmt.Errorf("%s failed: %w", filepath.Base(name), err)
	}
	return result, nil
}

// lastLine keeps the final non-empty stderr line, which is where demucs
// reports the actual failure after its progress output
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
