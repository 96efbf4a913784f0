package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/RyanBlaney/genesis-map/compose"
	"github.com/RyanBlaney/genesis-map/config"
	"github.com/RyanBlaney/genesis-map/genesis"
	"github.com/RyanBlaney/genesis-map/logging"
	"github.com/RyanBlaney/genesis-map/stems"
	"github.com/RyanBlaney/genesis-map/transcode"
)

// loadConfig reads --config or falls back to the defaults, then installs the
// configured logger as the global one
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	logger, err := cfg.Logging.NewLogger()
	if err != nil {
		return nil, err
	}
	logging.SetGlobalLogger(logger)
	return cfg, nil
}

// newAnalyzer wires the decoder, the stem separator and the pipeline. It
// must run after the global logger is installed.
func newAnalyzer(cfg *config.Config) *genesis.FileAnalyzer {
	decoder := transcode.NewDecoder(cfg.Transcode)
	separator := stems.NewDemucsSeparator(cfg.Stems.Demucs, decoder)
	return genesis.NewFileAnalyzer(decoder, genesis.NewPipeline(cfg.Pipeline, separator))
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	input := args[0]
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !transcode.IsSupported(input) {
		return fmt.Errorf("unsupported input %q (supported: %s)", input, strings.Join(transcode.SupportedFormats(), ", "))
	}

	opts := genesis.DefaultOptions()
	opts.Stems = withStems || cfg.Stems.Enabled
	opts.MaxEffects = cfg.Output.MaxEffects
	if maxEffects >= 0 {
		opts.MaxEffects = maxEffects
	}

	var bar *progressBar
	if !quiet {
		bar = newProgressBar(cmd.ErrOrStderr(), filepath.Base(input))
		opts.Progress = bar.update
	}

	start := time.Now()
	m, err := newAnalyzer(cfg).AnalyzeFile(cmd.Context(), input, "", opts)
	if bar != nil {
		bar.finish(err == nil)
	}
	if err != nil {
		return fmt.Errorf("analyze %s: %w", input, err)
	}

	out := outputPath
	if out == "" {
		out = strings.TrimSuffix(input, filepath.Ext(input)) + ".genesis.json"
	}
	if err := writeMap(cmd.OutOrStdout(), out, m); err != nil {
		return err
	}
	if effectsBinPath != "" {
		if err := writeFile(effectsBinPath, func(w io.Writer) error {
			return compose.WriteBinary(w, m.Composed)
		}); err != nil {
			return err
		}
	}
	if effectsJSONPath != "" {
		if err := writeFile(effectsJSONPath, func(w io.Writer) error {
			return compose.WriteJSON(w, m.Composed, cfg.Pipeline.Compose.Firmware)
		}); err != nil {
			return err
		}
	}

	if out != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %.0f BPM, key %s, form %s, %d effects (%s) -> %s\n",
			m.Metadata.Filename, m.Beats.Tempo, m.Harmony.Key, m.Structure.Form,
			len(m.Composed), time.Since(start).Round(time.Millisecond), out)
	}
	return nil
}

// writeMap writes the GenesisMap as indented JSON to path, or to stdout for "-"
func writeMap(stdout io.Writer, path string, m *genesis.GenesisMap) error {
	encode := func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	}
	if path == "-" {
		return encode(stdout)
	}
	return writeFile(path, encode)
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// progressBar renders pipeline progress as a single mpb bar
type progressBar struct {
	p   *mpb.Progress
	bar *mpb.Bar

	mu      sync.Mutex
	message string
}

func newProgressBar(out io.Writer, name string) *progressBar {
	pb := &progressBar{message: "Loading audio"}
	pb.p = mpb.New(mpb.WithWidth(48), mpb.WithOutput(out))
	pb.bar = pb.p.AddBar(100,
		mpb.PrependDecorators(
			decor.Name(name+" "),
			decor.Percentage(decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.Any(func(decor.Statistics) string {
				pb.mu.Lock()
				defer pb.mu.Unlock()
				return pb.message
			}),
		),
	)
	return pb
}

func (pb *progressBar) update(fraction float64, message string) {
	pb.mu.Lock()
	pb.message = message
	pb.mu.Unlock()
	pb.bar.SetCurrent(int64(fraction * 100))
}

func (pb *progressBar) finish(ok bool) {
	if ok {
		pb.bar.SetCurrent(100)
	} else {
		pb.bar.Abort(false)
	}
	pb.p.Wait()
}
