package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/genesis-map/genesis"
	"github.com/RyanBlaney/genesis-map/logging"
	"github.com/RyanBlaney/genesis-map/stems"
	"github.com/RyanBlaney/genesis-map/transcode"
)

// Config is the complete application configuration. Every section has a
// working default, so a config file only lists what it changes.
type Config struct {
	Pipeline  genesis.Config          `json:"pipeline" yaml:"pipeline"`
	Transcode transcode.DecoderConfig `json:"transcode" yaml:"transcode"`
	Stems     StemsConfig             `json:"stems" yaml:"stems"`
	Server    ServerConfig            `json:"server" yaml:"server"`
	Logging   LoggingConfig           `json:"logging" yaml:"logging"`
	Output    OutputConfig            `json:"output" yaml:"output"`
}

// StemsConfig enables and configures stem separation
type StemsConfig struct {
	Enabled bool               `json:"enabled" yaml:"enabled"`
	Demucs  stems.DemucsConfig `json:"demucs" yaml:"demucs"`
}

// ServerConfig configures the HTTP job server
type ServerConfig struct {
	Addr              string   `json:"addr" yaml:"addr"`
	MaxUploadBytes    int64    `json:"max_upload_bytes" yaml:"max_upload_bytes"`
	UploadDir         string   `json:"upload_dir" yaml:"upload_dir"` // empty uses the system temp dir
	AllowedExtensions []string `json:"allowed_extensions" yaml:"allowed_extensions"`
	MaxConcurrentJobs int      `json:"max_concurrent_jobs" yaml:"max_concurrent_jobs"`
}

// LoggingConfig selects the log level and line format
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "text" or "json"
}

// OutputConfig controls what a GenesisMap keeps
type OutputConfig struct {
	MaxEffects int `json:"max_effects" yaml:"max_effects"` // 0 keeps all
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Pipeline:  genesis.DefaultConfig(),
		Transcode: transcode.DefaultDecoderConfig(),
		Stems: StemsConfig{
			Demucs: stems.DefaultDemucsConfig(),
		},
		Server: ServerConfig{
			Addr:              ":8000",
			MaxUploadBytes:    50 << 20,
			AllowedExtensions: []string{".mp3", ".wav", ".flac", ".m4a", ".ogg"},
			MaxConcurrentJobs: 2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Output: OutputConfig{
			MaxEffects: genesis.DefaultOptions().MaxEffects,
		},
	}
}

// Load reads a YAML file over the defaults and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section
func (c *Config) Validate() error {
	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := c.Transcode.Validate(); err != nil {
		return fmt.Errorf("transcode: %w", err)
	}
	if c.Stems.Enabled && c.Stems.Demucs.Binary == "" {
		return fmt.Errorf("stems: demucs binary is required when stems are enabled")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server: max upload bytes must be positive")
	}
	if len(c.Server.AllowedExtensions) == 0 {
		return fmt.Errorf("server: at least one extension must be allowed")
	}
	if c.Server.MaxConcurrentJobs <= 0 {
		return fmt.Errorf("server: max concurrent jobs must be positive")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging: unknown format %q", c.Logging.Format)
	}
	if c.Output.MaxEffects < 0 {
		return fmt.Errorf("output: max effects must not be negative")
	}
	return nil
}

// AllowsExtension reports whether the server accepts uploads named like path
func (s ServerConfig) AllowsExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range s.AllowedExtensions {
		if strings.ToLower(allowed) == ext {
			return true
		}
	}
	return false
}

// NewLogger builds the logger the logging section describes
func (c LoggingConfig) NewLogger() (logging.Logger, error) {
	level, err := logging.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	var logger logging.Logger
	if c.Format == "json" {
		logger = logging.NewJSONLogger(os.Stderr)
	} else {
		logger = logging.NewDefaultLogger()
	}
	logger.SetLevel(level)
	return logger, nil
}
