package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/RyanBlaney/sonido-beat/algorithms/common"
	"github.com/RyanBlaney/sonido-beat/algorithms/filters"
	"github.com/RyanBlaney/sonido-beat/logging"
)

var (
	// ErrUnsupportedFormat is returned when no native decoder recognises the
	// input and the ffmpeg fallback is disabled
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrEmptyAudio is returned when a container decodes to zero samples
	ErrEmptyAudio = errors.New("no audio samples decoded")
)

// AudioData represents decoded mono audio
type AudioData struct {
	PCM        []float64       `json:"-"` // Mono samples in [-1, 1]
	SampleRate int             `json:"sample_rate"`
	Channels   int             `json:"channels"` // Always 1 after decoding
	Duration   time.Duration   `json:"duration"`
	Timestamp  time.Time       `json:"timestamp"`
	Metadata   *StreamMetadata `json:"metadata,omitempty"`
}

// StreamMetadata describes where decoded audio came from
type StreamMetadata struct {
	Source         string    `json:"source"`
	Format         Format    `json:"format"`
	Decoder        string    `json:"decoder"` // "native" or "ffmpeg"
	SourceRate     int       `json:"source_sample_rate"`
	SourceChannels int       `json:"source_channels"`
	BitDepth       int       `json:"bit_depth,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	TargetSampleRate int           `json:"target_sample_rate" yaml:"target_sample_rate"` // 0 keeps the source rate
	MaxDuration      time.Duration `json:"max_duration" yaml:"max_duration"`             // 0 means no limit
	DCBlockHz        float64       `json:"dc_block_hz" yaml:"dc_block_hz"`               // DC blocker cutoff, 0 disables
	AllowFFmpeg      bool          `json:"allow_ffmpeg" yaml:"allow_ffmpeg"`
	FFmpegPath       string        `json:"ffmpeg_path" yaml:"ffmpeg_path"`
	Timeout          time.Duration `json:"timeout" yaml:"timeout"` // Timeout for ffmpeg operations
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		TargetSampleRate: 0,
		MaxDuration:      0,
		DCBlockHz:        0,
		AllowFFmpeg:      false,
		FFmpegPath:       "ffmpeg", // Assume in PATH
		Timeout:          30 * time.Second,
	}
}

// Validate checks the decoder configuration
func (c *DecoderConfig) Validate() error {
	var errs []error
	if c.TargetSampleRate < 0 {
		errs = append(errs, fmt.Errorf("target sample rate must be non-negative: %d", c.TargetSampleRate))
	}
	if c.MaxDuration < 0 {
		errs = append(errs, fmt.Errorf("max duration must be non-negative: %v", c.MaxDuration))
	}
	if c.DCBlockHz < 0 {
		errs = append(errs, fmt.Errorf("dc block cutoff must be non-negative: %v", c.DCBlockHz))
	}
	if c.AllowFFmpeg {
		if c.FFmpegPath == "" {
			errs = append(errs, errors.New("ffmpeg path is required when ffmpeg is allowed"))
		}
		if c.Timeout <= 0 {
			errs = append(errs, fmt.Errorf("timeout must be positive: %v", c.Timeout))
		}
	}
	return errors.Join(errs...)
}

// Decoder turns WAV, MP3 and FLAC containers into mono PCM, handing
// anything else to ffmpeg when allowed
type Decoder struct {
	config    *DecoderConfig
	resampler *common.Resampler
}

// NewDecoder creates a new audio decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{
		config:    config,
		resampler: common.NewResampler(),
	}
}

// pcm is interleaved samples straight out of a container decoder
type pcm struct {
	samples    []float64
	sampleRate int
	channels   int
	bitDepth   int
}

// DecodeFile decodes an audio file and returns mono PCM data
func (d *Decoder) DecodeFile(ctx context.Context, filename string) (*AudioData, error) {
	logger := logging.WithContext(ctx).WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "DecodeFile",
		"filename":  filename,
	})

	logger.Debug("Starting audio file decode")

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read audio file: %w", err)
	}

	format := DetectFormat(data)
	if format == FormatUnknown {
		if !d.config.AllowFFmpeg {
			return nil, fmt.Errorf("%s: %w", filepath.Base(filename), ErrUnsupportedFormat)
		}
		logger.Debug("Unrecognised container, falling back to ffmpeg")
		return d.decodeFileWithFFmpeg(ctx, filename, logger)
	}

	audioData, err := d.decodeNative(ctx, data, format, filename, logger)
	if errors.Is(err, ErrUnsupportedFormat) && d.config.AllowFFmpeg {
		// e.g. IEEE float WAV
		logger.Debug("Native decoder declined, falling back to ffmpeg")
		return d.decodeFileWithFFmpeg(ctx, filename, logger)
	}
	return audioData, err
}

// DecodeBytes decodes an in-memory audio container
func (d *Decoder) DecodeBytes(ctx context.Context, data []byte) (*AudioData, error) {
	logger := logging.WithContext(ctx).WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "DecodeBytes",
		"data_size": len(data),
	})

	if len(data) == 0 {
		return nil, ErrEmptyAudio
	}

	format := DetectFormat(data)
	if format == FormatUnknown {
		if !d.config.AllowFFmpeg {
			return nil, ErrUnsupportedFormat
		}
		return d.decodeBytesWithFFmpeg(ctx, data, logger)
	}

	return d.decodeNative(ctx, data, format, "", logger)
}

// DecodeReader decodes audio from an io.Reader
func (d *Decoder) DecodeReader(ctx context.Context, reader io.Reader) (*AudioData, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read audio data: %w", err)
	}
	return d.DecodeBytes(ctx, data)
}

func (d *Decoder) decodeNative(ctx context.Context, data []byte, format Format, source string, logger logging.Logger) (*AudioData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		raw *pcm
		err error
	)
	switch format {
	case FormatWAV:
		raw, err = decodeWAV(bytes.NewReader(data))
	case FormatMP3:
		raw, err = decodeMP3(bytes.NewReader(data))
	case FormatFLAC:
		raw, err = decodeFLAC(bytes.NewReader(data))
	default:
		err = ErrUnsupportedFormat
	}
	if err != nil {
		logger.Error(err, "Native decode failed", logging.Fields{"format": format})
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}

	logger.Debug("Native decode completed", logging.Fields{
		"format":      format,
		"sample_rate": raw.sampleRate,
		"channels":    raw.channels,
		"bit_depth":   raw.bitDepth,
	})

	return d.finish(raw, &StreamMetadata{
		Source:         source,
		Format:         format,
		Decoder:        "native",
		SourceRate:     raw.sampleRate,
		SourceChannels: raw.channels,
		BitDepth:       raw.bitDepth,
	})
}

// finish downmixes, trims to MaxDuration, removes DC and resamples decoded PCM
func (d *Decoder) finish(raw *pcm, metadata *StreamMetadata) (*AudioData, error) {
	if raw.sampleRate <= 0 {
		return nil, fmt.Errorf("invalid source sample rate: %d", raw.sampleRate)
	}

	mono := Downmix(raw.samples, raw.channels)
	if len(mono) == 0 {
		return nil, ErrEmptyAudio
	}

	if d.config.MaxDuration > 0 {
		limit := int(d.config.MaxDuration.Seconds() * float64(raw.sampleRate))
		if limit > 0 && limit < len(mono) {
			mono = mono[:limit]
		}
	}

	if d.config.DCBlockHz > 0 {
		mono = filters.NewDCRemovalWithCutoff(raw.sampleRate, d.config.DCBlockHz).ProcessBuffer(mono)
	}

	sampleRate := raw.sampleRate
	if target := d.config.TargetSampleRate; target > 0 && target != sampleRate {
		mono = d.resampler.Resample(mono, sampleRate, target)
		sampleRate = target
	}

	now := time.Now()
	metadata.Timestamp = now

	return &AudioData{
		PCM:        mono,
		SampleRate: sampleRate,
		Channels:   1,
		Duration:   time.Duration(len(mono)) * time.Second / time.Duration(sampleRate),
		Timestamp:  now,
		Metadata:   metadata,
	}, nil
}

// Downmix averages interleaved channels into one. Trailing samples that do
// not fill a whole frame are dropped.
func Downmix(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		return interleaved
	}

	frames := len(interleaved) / channels
	mono := make([]float64, frames)
	for i := range mono {
		sum := 0.0
		for ch := range channels {
			sum += interleaved[i*channels+ch]
		}
		mono[i] = sum / float64(channels)
	}
	return mono
}

// GetSupportedFormats returns the containers decoded without ffmpeg
func (d *Decoder) GetSupportedFormats() []Format {
	return []Format{FormatWAV, FormatMP3, FormatFLAC}
}
