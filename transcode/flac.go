package transcode

import (
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
)

func decodeFLAC(r io.Reader) (*pcm, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("open flac stream: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	channels := int(info.NChannels)
	bitDepth := int(info.BitsPerSample)
	if channels < 1 {
		return nil, fmt.Errorf("flac has no channels")
	}

	samples := make([]float64, 0, int(info.NSamples)*channels)
	for {
		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse flac frame: %w", err)
		}

		for i := 0; i < int(frame.BlockSize); i++ {
			for ch := range channels {
				samples = append(samples, scaleInt(int(frame.Subframes[ch].Samples[i]), bitDepth))
			}
		}
	}

	return &pcm{
		samples:    samples,
		sampleRate: int(info.SampleRate),
		channels:   channels,
		bitDepth:   bitDepth,
	}, nil
}
