package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Server.MaxUploadBytes != 50<<20 {
		t.Errorf("max upload = %d", cfg.Server.MaxUploadBytes)
	}
	if cfg.Output.MaxEffects != 100 {
		t.Errorf("max effects = %d", cfg.Output.MaxEffects)
	}
}

func TestParseOverlaysDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
pipeline:
  beats:
    beats_per_bar: 3
  compose:
    firmware:
      led_count: 300
transcode:
  target_sample_rate: 44100
  timeout: 90s
stems:
  enabled: true
  demucs:
    model: htdemucs_ft
    timeout: 15m
server:
  addr: ":9000"
logging:
  level: debug
  format: json
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Pipeline.Beats.BeatsPerBar != 3 {
		t.Errorf("beats per bar = %d", cfg.Pipeline.Beats.BeatsPerBar)
	}
	if cfg.Pipeline.Beats.HopSize != 512 {
		t.Errorf("unset hop size lost its default: %d", cfg.Pipeline.Beats.HopSize)
	}
	if cfg.Pipeline.Compose.Firmware.LEDCount != 300 || cfg.Pipeline.Compose.Firmware.FPS != 60 {
		t.Errorf("firmware = %+v", cfg.Pipeline.Compose.Firmware)
	}
	if cfg.Transcode.TargetSampleRate != 44100 || cfg.Transcode.Timeout != 90*time.Second {
		t.Errorf("transcode = %+v", cfg.Transcode)
	}
	if cfg.Transcode.FFmpegPath != "ffmpeg" {
		t.Errorf("ffmpeg path = %q", cfg.Transcode.FFmpegPath)
	}
	if !cfg.Stems.Enabled || cfg.Stems.Demucs.Model != "htdemucs_ft" || cfg.Stems.Demucs.Binary != "demucs" {
		t.Errorf("stems = %+v", cfg.Stems)
	}
	if cfg.Stems.Demucs.Timeout != 15*time.Minute {
		t.Errorf("demucs timeout = %v", cfg.Stems.Demucs.Timeout)
	}
	if cfg.Server.Addr != ":9000" || len(cfg.Server.AllowedExtensions) != 5 {
		t.Errorf("server = %+v", cfg.Server)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed", "pipeline: [unclosed"},
		{"bad log level", "logging:\n  level: loud\n"},
		{"bad log format", "logging:\n  format: xml\n"},
		{"hop over frame", "pipeline:\n  stem_hop_size: 100000\n"},
		{"negative sample rate", "transcode:\n  target_sample_rate: -1\n"},
		{"no extensions", "server:\n  allowed_extensions: []\n"},
		{"zero upload", "server:\n  max_upload_bytes: 0\n"},
		{"stems without binary", "stems:\n  enabled: true\n  demucs:\n    binary: \"\"\n"},
		{"negative effects", "output:\n  max_effects: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	if err := os.WriteFile(path, []byte("output:\n  max_effects: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Output.MaxEffects != 0 {
		t.Errorf("max effects = %d", cfg.Output.MaxEffects)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestAllowsExtension(t *testing.T) {
	s := Default().Server
	for path, want := range map[string]bool{
		"track.MP3":  true,
		"mix.flac":   true,
		"notes.txt":  false,
		"no_ext":     false,
		"a.b.wav":    true,
		"video.webm": false,
	} {
		if got := s.AllowsExtension(path); got != want {
			t.Errorf("AllowsExtension(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestLoggingNewLogger(t *testing.T) {
	if _, err := (LoggingConfig{Level: "warn", Format: "json"}).NewLogger(); err != nil {
		t.Errorf("NewLogger() error = %v", err)
	}
	if _, err := (LoggingConfig{Level: "chatty"}).NewLogger(); err == nil {
		t.Error("expected error for unknown level")
	}
}
