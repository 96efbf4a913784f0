package transcode

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/RyanBlaney/genesis-map/apperrors"
	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavFormatFloat = 3

// decodeWAV reads a PCM wav file and averages its channels
func (d *Decoder) decodeWAV(path string) (*AudioData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewCollaboratorError("wav", "load", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%w: invalid WAV file", apperrors.ErrUnsupportedFormat)
	}
	if decoder.WavAudioFormat == wavFormatFloat {
		return nil, fmt.Errorf("%w: floating point WAV", apperrors.ErrUnsupportedFormat)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, apperrors.NewCollaboratorError("wav", "load", fmt.Errorf("read PCM data: %w", err))
	}
	channels := buf.Format.NumChannels
	if channels <= 0 {
		return nil, apperrors.NewCollaboratorError("wav", "load", errors.New("no channels"))
	}

	pcm := downmixInts(buf, channels)
	sampleRate := buf.Format.SampleRate
	pcm, sampleRate = d.resample(pcm, sampleRate)

	return &AudioData{
		PCM:        pcm,
		SampleRate: sampleRate,
		Channels:   channels,
		Format:     "wav",
	}, nil
}

// downmixInts scales integer samples to [-1, 1] by the source bit depth and
// averages the channels of each frame
func downmixInts(buf *audio.IntBuffer, channels int) []float64 {
	depth := buf.SourceBitDepth
	if depth <= 0 {
		depth = 16
	}
	scale := 1 / float64(int64(1)<<(depth-1))

	frames := len(buf.Data) / channels
	pcm := make([]float64, frames)
	for i := range frames {
		sum := 0
		for c := range channels {
			sum += buf.Data[i*channels+c]
		}
		pcm[i] = float64(sum) / float64(channels) * scale
	}
	return pcm
}

// decodeMP3 streams an mp3 through beep, resampling on the way
func (d *Decoder) decodeMP3(path string) (*AudioData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewCollaboratorError("mp3", "load", err)
	}

	// the stream owns f from here
	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return nil, apperrors.NewCollaboratorError("mp3", "load", err)
	}
	defer streamer.Close()

	sampleRate := int(format.SampleRate)
	var source beep.Streamer = streamer
	if target := d.config.TargetSampleRate; target > 0 && target != sampleRate {
		source = beep.Resample(d.config.ResampleQuality, format.SampleRate, beep.SampleRate(target), streamer)
		sampleRate = target
	}

	pcm, err := drainMono(source)
	if err != nil {
		return nil, apperrors.NewCollaboratorError("mp3", "load", err)
	}
	return &AudioData{
		PCM:        pcm,
		SampleRate: sampleRate,
		Channels:   format.NumChannels,
		Format:     "mp3",
	}, nil
}

// resample converts mono pcm to the target rate with beep's resampler
func (d *Decoder) resample(pcm []float64, sampleRate int) ([]float64, int) {
	target := d.config.TargetSampleRate
	if target <= 0 || target == sampleRate || len(pcm) == 0 {
		return pcm, sampleRate
	}
	resampler := beep.Resample(d.config.ResampleQuality,
		beep.SampleRate(sampleRate), beep.SampleRate(target), &monoStreamer{samples: pcm})
	out, _ := drainMono(resampler)
	return out, target
}

// drainMono reads s to the end and averages its two channels
func drainMono(s beep.Streamer) ([]float64, error) {
	var pcm []float64
	buf := make([][2]float64, 4096)
	for {
		n, ok := s.Stream(buf)
		for _, frame := range buf[:n] {
			pcm = append(pcm, 0.5*(frame[0]+frame[1]))
		}
		if !ok {
			break
		}
	}
	return pcm, s.Err()
}

// monoStreamer is a beep.Streamer over a mono slice
type monoStreamer struct {
	samples []float64
	pos     int
}

func (m *monoStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	if m.pos >= len(m.samples) {
		return 0, false
	}
	for n < len(samples) && m.pos < len(m.samples) {
		v := m.samples[m.pos]
		samples[n] = [2]float64{v, v}
		n++
		m.pos++
	}
	return n, true
}

func (m *monoStreamer) Err() error {
	return nil
}

// EncodeWAV writes mono pcm as 16-bit PCM wav
func EncodeWAV(w io.WriteSeeker, pcm []float64, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	data := make([]int, len(pcm))
	for i, v := range pcm {
		v = max(-1, min(1, v))
		data[i] = int(v * 32767)
	}

	enc := wav.NewEncoder(w, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}
