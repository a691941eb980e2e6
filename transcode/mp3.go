package transcode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always emits 16-bit little-endian stereo
const (
	mp3Channels = 2
	mp3BitDepth = 16
)

func decodeMP3(r io.Reader) (*pcm, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("create mp3 decoder: %w", err)
	}

	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("read mp3 frames: %w", err)
	}

	numSamples := len(data) / 2
	samples := make([]float64, numSamples)
	for i := range numSamples {
		sample16 := int16(binary.LittleEndian.Uint16(data[i*2:]))
		samples[i] = float64(sample16) / 32768.0
	}

	return &pcm{
		samples:    samples,
		sampleRate: dec.SampleRate(),
		channels:   mp3Channels,
		bitDepth:   mp3BitDepth,
	}, nil
}
