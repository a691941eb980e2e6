package transcode

import (
	"fmt"
	"io"

	"github.com/go-audio/wav"
)

const wavFormatPCM = 1

func decodeWAV(r io.ReadSeeker) (*pcm, error) {
	dec := wav.NewDecoder(r)
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return nil, fmt.Errorf("read wav header: %w", err)
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("wav audio format %d: %w", dec.WavAudioFormat, ErrUnsupportedFormat)
	}
	if dec.NumChans < 1 {
		return nil, fmt.Errorf("wav has no channels")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read wav pcm: %w", err)
	}

	bitDepth := buf.SourceBitDepth
	samples := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		if bitDepth == 8 {
			// 8-bit WAV is unsigned
			v -= 128
		}
		samples[i] = scaleInt(v, bitDepth)
	}

	return &pcm{
		samples:    samples,
		sampleRate: buf.Format.SampleRate,
		channels:   buf.Format.NumChannels,
		bitDepth:   bitDepth,
	}, nil
}

// scaleInt maps signed integer PCM of the given bit depth onto [-1, 1)
func scaleInt(v int, bitDepth int) float64 {
	if bitDepth <= 0 || bitDepth > 32 {
		return float64(v)
	}
	return float64(v) / float64(int64(1)<<(bitDepth-1))
}
