package analysis

import (
	"time"

	"github.com/RyanBlaney/sonido-beat/transcode"
)

// Segment is the half-open sample range [Start, End) between two onsets
type Segment struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Segments slices a buffer at its onsets. Each segment runs from one onset
// to the next; the last one runs to the end of the buffer. Audio before the
// first onset is not part of any segment.
func Segments(onsets []int, numSamples int) []Segment {
	segments := make([]Segment, 0, len(onsets))
	for i, start := range onsets {
		if start >= numSamples {
			break
		}
		end := numSamples
		if i+1 < len(onsets) {
			end = min(onsets[i+1], numSamples)
		}
		segments = append(segments, Segment{Start: start, End: end})
	}
	return segments
}

func onsetTimes(onsets []int, sampleRate int) []float64 {
	times := make([]float64, len(onsets))
	if sampleRate <= 0 {
		return times
	}
	for i, onset := range onsets {
		times[i] = float64(onset) / float64(sampleRate)
	}
	return times
}

func calculateDuration(audioData *transcode.AudioData) time.Duration {
	if audioData.SampleRate <= 0 {
		return 0
	}
	seconds := float64(len(audioData.PCM)) / float64(audioData.SampleRate)
	return time.Duration(seconds * float64(time.Second))
}

func sourceOf(audioData *transcode.AudioData) string {
	if audioData.Metadata == nil {
		return ""
	}
	return audioData.Metadata.Source
}
