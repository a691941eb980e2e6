package transcode

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/RyanBlaney/sonido-beat/logging"
)

// ffmpegFallbackRate is requested from ffmpeg when no target rate is set,
// since raw f64le output carries no header to read the source rate from
const ffmpegFallbackRate = 44100

// decodeFileWithFFmpeg decodes any container ffmpeg understands
func (d *Decoder) decodeFileWithFFmpeg(ctx context.Context, filename string, logger logging.Logger) (*AudioData, error) {
	args := append([]string{"-i", filename}, d.buildFFmpegArgs()...)
	output, err := d.runFFmpeg(ctx, args, nil, logger)
	if err != nil {
		return nil, err
	}
	return d.processFFmpegOutput(output, filename)
}

// decodeBytesWithFFmpeg pipes an in-memory container through ffmpeg
func (d *Decoder) decodeBytesWithFFmpeg(ctx context.Context, data []byte, logger logging.Logger) (*AudioData, error) {
	args := append([]string{"-i", "pipe:0"}, d.buildFFmpegArgs()...)
	output, err := d.runFFmpeg(ctx, args, data, logger)
	if err != nil {
		return nil, err
	}
	return d.processFFmpegOutput(output, "")
}

func (d *Decoder) runFFmpeg(ctx context.Context, args []string, stdin []byte, logger logging.Logger) ([]byte, error) {
	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, d.config.FFmpegPath, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	logger.Debug("Running ffmpeg command", logging.Fields{
		"args": strings.Join(args, " "),
	})

	output, err := cmd.Output()
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			logger.Error(err, "Ffmpeg decode failed", logging.Fields{
				"stderr": string(exitError.Stderr),
			})
		}
		return nil, fmt.Errorf("ffmpeg decode failed: %w", err)
	}
	return output, nil
}

// outputRate is the rate ffmpeg is asked to produce
func (d *Decoder) outputRate() int {
	if d.config.TargetSampleRate > 0 {
		return d.config.TargetSampleRate
	}
	return ffmpegFallbackRate
}

// buildFFmpegArgs builds the output half of the ffmpeg command line
func (d *Decoder) buildFFmpegArgs() []string {
	args := []string{
		"-vn",
		"-f", "f64le", // Raw float64 little-endian
		"-ac", "1", // Downmix in ffmpeg
		"-ar", strconv.Itoa(d.outputRate()),
	}

	if d.config.MaxDuration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.2f", d.config.MaxDuration.Seconds()))
	}

	return append(args, "-v", "error", "pipe:1")
}

// processFFmpegOutput wraps raw f64le output in AudioData
func (d *Decoder) processFFmpegOutput(output []byte, source string) (*AudioData, error) {
	samples := bytesToFloat64(output)
	if len(samples) == 0 {
		return nil, ErrEmptyAudio
	}

	rate := d.outputRate()
	// ffmpeg already resampled and trimmed; finish only wraps the result
	raw := &pcm{samples: samples, sampleRate: rate, channels: 1}
	return d.finish(raw, &StreamMetadata{
		Source:         source,
		Format:         FormatUnknown,
		Decoder:        "ffmpeg",
		SourceRate:     rate,
		SourceChannels: 1,
	})
}

// bytesToFloat64 converts raw float64 little-endian bytes to []float64
func bytesToFloat64(data []byte) []float64 {
	if len(data)%8 != 0 {
		// Trim to multiple of 8 bytes
		data = data[:len(data)-(len(data)%8)]
	}

	if len(data) == 0 {
		return nil
	}

	sampleCount := len(data) / 8
	samples := make([]float64, sampleCount)

	for i := range sampleCount {
		bits := binary.LittleEndian.Uint64(data[i*8 : i*8+8])
		samples[i] = math.Float64frombits(bits)
	}

	return samples
}

// CheckFFmpeg verifies that the configured ffmpeg binary runs
func (d *Decoder) CheckFFmpeg(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, d.config.FFmpegPath, "-version")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg not found at %s: %w", d.config.FFmpegPath, err)
	}
	return nil
}
