package transcode

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/RyanBlaney/genesis-map/apperrors"
	"github.com/RyanBlaney/genesis-map/logging"
)

// AudioData represents decoded mono audio
type AudioData struct {
	PCM        []float64     `json:"-"` // mono samples in [-1, 1]
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"` // channels of the source before downmix
	Duration   time.Duration `json:"duration"`
	Format     string        `json:"format"` // "wav", "mp3" or the ffmpeg codec name
	Path       string        `json:"path,omitempty"`
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	TargetSampleRate int           `json:"target_sample_rate" yaml:"target_sample_rate"` // 0 keeps the source rate
	MaxFileSize      int64         `json:"max_file_size" yaml:"max_file_size"`           // bytes, 0 for no limit
	FFmpegPath       string        `json:"ffmpeg_path" yaml:"ffmpeg_path"`
	FFprobePath      string        `json:"ffprobe_path" yaml:"ffprobe_path"`
	Timeout          time.Duration `json:"timeout" yaml:"timeout"` // per ffmpeg invocation
	ResampleQuality  int           `json:"resample_quality" yaml:"resample_quality"`

	// Loudness normalization for the ffmpeg path
	EnableNormalization bool    `json:"enable_normalization" yaml:"enable_normalization"`
	TargetLUFS          float64 `json:"target_lufs" yaml:"target_lufs"`
	TargetPeak          float64 `json:"target_peak" yaml:"target_peak"`
	LoudnessRange       float64 `json:"loudness_range" yaml:"loudness_range"`
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() DecoderConfig {
	return DecoderConfig{
		TargetSampleRate: 22050,
		MaxFileSize:      200 << 20,
		FFmpegPath:       "ffmpeg",
		FFprobePath:      "ffprobe",
		Timeout:          2 * time.Minute,
		ResampleQuality:  4,
		TargetLUFS:       -16.0, // streaming loudness
		TargetPeak:       -1.0,
		LoudnessRange:    8.0,
	}
}

// Validate checks the decoder configuration
func (c DecoderConfig) Validate() error {
	if c.TargetSampleRate < 0 {
		return fmt.Errorf("target sample rate must not be negative: %d", c.TargetSampleRate)
	}
	if c.MaxFileSize < 0 {
		return fmt.Errorf("max file size must not be negative: %d", c.MaxFileSize)
	}
	if c.ResampleQuality < 1 || c.ResampleQuality > 64 {
		return fmt.Errorf("resample quality must be in [1, 64]: %d", c.ResampleQuality)
	}
	if c.FFmpegPath == "" {
		return fmt.Errorf("ffmpeg path is required")
	}
	return nil
}

// Decoder loads audio files as mono float64 PCM. WAV and MP3 are decoded in
// process, everything else goes through ffmpeg.
type Decoder struct {
	config DecoderConfig
	logger logging.Logger
}

// AudioMetadata holds detected audio properties from ffprobe
type AudioMetadata struct {
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Codec      string  `json:"codec"`
	Duration   float64 `json:"duration"`
	Bitrate    int     `json:"bitrate"`
	Format     string  `json:"format"`
}

// ffmpegFormats are the extensions handed to ffmpeg
var ffmpegFormats = []string{".flac", ".m4a", ".ogg", ".aac", ".opus", ".webm"}

// NewDecoder creates a new audio decoder
func NewDecoder(config DecoderConfig) *Decoder {
	return &Decoder{
		config: config,
		logger: logging.WithFields(logging.Fields{
			"component": "audio_decoder",
		}),
	}
}

// SupportedFormats lists the file extensions DecodeFile accepts
func SupportedFormats() []string {
	return append([]string{".wav", ".mp3"}, ffmpegFormats...)
}

// IsSupported reports whether path has a decodable extension
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, f := range SupportedFormats() {
		if f == ext {
			return true
		}
	}
	return false
}

// DecodeFile decodes an audio file to mono PCM at the target sample rate
func (d *Decoder) DecodeFile(ctx context.Context, path string) (*AudioData, error) {
	logger := d.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "DecodeFile",
		"filename": filepath.Base(path),
	})

	if !IsSupported(path) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, filepath.Ext(path))
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, apperrors.NewCollaboratorError("loader", "load", err)
	}
	if d.config.MaxFileSize > 0 && info.Size() > d.config.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", apperrors.ErrFileTooLarge, info.Size(), d.config.MaxFileSize)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Debug("Starting audio file decode", logging.Fields{"size": info.Size()})

	var audio *AudioData
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		audio, err = d.decodeWAV(path)
	case ".mp3":
		audio, err = d.decodeMP3(path)
	default:
		audio, err = d.decodeFileWithFFmpeg(ctx, path)
	}
	if err != nil {
		return nil, err
	}
	if len(audio.PCM) == 0 {
		return nil, apperrors.NewCollaboratorError(audio.Format, "load", errors.New("no audio samples decoded"))
	}
	audio.Path = path
	audio.Duration = time.Duration(len(audio.PCM)) * time.Second / time.Duration(audio.SampleRate)

	logger.Debug("Audio decode completed", logging.Fields{
		"format":          audio.Format,
		"sample_rate":     audio.SampleRate,
		"source_channels": audio.Channels,
		"samples":         len(audio.PCM),
		"duration":        audio.Duration.Seconds(),
	})
	return audio, nil
}

// ProbeFile uses ffprobe to get audio information from a file
func (d *Decoder) ProbeFile(ctx context.Context, path string) (*AudioMetadata, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-select_streams", "a:0",
		path,
	}

	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.config.FFprobePath, args...)
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return nil, collaboratorFailure("ffprobe", err, stderr.String())
	}
	return parseFFprobeOutput(output)
}

// parseFFprobeOutput parses ffprobe JSON to extract audio metadata
func parseFFprobeOutput(jsonData []byte) (*AudioMetadata, error) {
	var probe struct {
		Streams []struct {
			CodecType     string `json:"codec_type"`
			CodecName     string `json:"codec_name"`
			SampleRate    string `json:"sample_rate"`
			Channels      int    `json:"channels"`
			Duration      string `json:"duration"`
			BitRate       string `json:"bit_rate"`
			CodecLongName string `json:"codec_long_name"`
		} `json:"streams"`
	}

	if err := json.Unmarshal(jsonData, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(probe.Streams) == 0 {
		return nil, fmt.Errorf("%w: no audio streams found", apperrors.ErrUnsupportedFormat)
	}

	stream := probe.Streams[0]
	if stream.CodecType != "audio" {
		return nil, fmt.Errorf("%w: stream is %s", apperrors.ErrUnsupportedFormat, stream.CodecType)
	}
	if stream.Channels <= 0 || stream.Channels > 8 {
		return nil, fmt.Errorf("invalid channel count: %d", stream.Channels)
	}

	// unparsable optional fields stay zero
	sampleRate, _ := strconv.Atoi(stream.SampleRate)
	duration, _ := strconv.ParseFloat(stream.Duration, 64)
	bitrate, _ := strconv.Atoi(stream.BitRate)

	return &AudioMetadata{
		SampleRate: sampleRate,
		Channels:   stream.Channels,
		Codec:      stream.CodecName,
		Duration:   duration,
		Bitrate:    bitrate,
		Format:     stream.CodecLongName,
	}, nil
}

// decodeFileWithFFmpeg probes the file and has ffmpeg write f64le mono to
// stdout
func (d *Decoder) decodeFileWithFFmpeg(ctx context.Context, path string) (*AudioData, error) {
	logger := d.logger.WithFields(logging.Fields{
		"function": "decodeFileWithFFmpeg",
		"filename": filepath.Base(path),
	})

	if _, err := exec.LookPath(d.config.FFmpegPath); err != nil {
		return nil, apperrors.NewCollaboratorError("ffmpeg", "load",
			fmt.Errorf("%w: %s", apperrors.ErrToolNotInstalled, d.config.FFmpegPath))
	}

	// the probe only informs the output rate and the log; ffmpeg decides
	metadata, err := d.ProbeFile(ctx, path)
	if err != nil {
		logger.Warn("Probe failed, decoding without metadata", logging.Fields{"error": err.Error()})
		metadata = &AudioMetadata{}
	}

	sampleRate := d.config.TargetSampleRate
	if sampleRate == 0 {
		sampleRate = metadata.SampleRate
	}
	if sampleRate == 0 {
		sampleRate = 44100
	}

	args := append([]string{"-i", path}, d.buildFFmpegArgs(sampleRate)...)
	args = append(args, "pipe:1")

	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	logger.Debug("Running ffmpeg command", logging.Fields{
		"args": strings.Join(args, " "),
	})

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.config.FFmpegPath, args...)
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Error(err, "FFmpeg decode failed", logging.Fields{
			"stderr": stderr.String(),
		})
		return nil, collaboratorFailure("ffmpeg", err, stderr.String())
	}

	codec := metadata.Codec
	if codec == "" {
		codec = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	return &AudioData{
		PCM:        bytesToFloat64(output),
		SampleRate: sampleRate,
		Channels:   metadata.Channels,
		Format:     codec,
	}, nil
}

// buildFFmpegArgs builds the output arguments for mono f64le at sampleRate
func (d *Decoder) buildFFmpegArgs(sampleRate int) []string {
	args := []string{
		"-f", "f64le",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
	}
	if d.config.EnableNormalization {
		// EBU R128 loudness normalization
		args = append(args, "-af", fmt.Sprintf("loudnorm=I=%.1f:TP=%.1f:LRA=%.1f",
			d.config.TargetLUFS, d.config.TargetPeak, d.config.LoudnessRange))
	}
	return append(args, "-v", "error")
}

func (d *Decoder) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.config.Timeout > 0 {
		return context.WithTimeout(ctx, d.config.Timeout)
	}
	return context.WithCancel(ctx)
}

func collaboratorFailure(tool string, err error, stderr string) error {
	cerr := apperrors.NewCollaboratorError(tool, "load", err)
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cerr.ExitCode = exitErr.ExitCode()
	}
	cerr.Stderr = strings.TrimSpace(stderr)
	return cerr
}

// bytesToFloat64 converts raw little-endian float64 bytes, dropping a
// trailing partial sample
func bytesToFloat64(data []byte) []float64 {
	samples := make([]float64, len(data)/8)
	for i := range samples {
		samples[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return samples
}
