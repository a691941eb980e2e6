package temporal

import (
	"math"

	"github.com/RyanBlaney/sonido-beat/algorithms/common"
)

// Display envelope density: points per minute of audio, clamped
const (
	displayPointsPerMinute = 200
	minDisplayPoints       = 150
	maxDisplayPoints       = 2000
)

// Envelope provides amplitude envelope extraction
type Envelope struct{}

// NewEnvelope creates a new envelope extractor
func NewEnvelope() *Envelope {
	return &Envelope{}
}

// ComputePeak computes peak envelope (maximum absolute value per frame)
func (e *Envelope) ComputePeak(signal []float64, frameSize, hopSize int) []float64 {
	if len(signal) < frameSize || frameSize <= 0 || hopSize <= 0 {
		return []float64{}
	}

	numFrames := (len(signal)-frameSize)/hopSize + 1
	envelope := make([]float64, numFrames)

	for i := range numFrames {
		start := i * hopSize
		envelope[i] = common.MaxAbs(signal[start : start+frameSize])
	}

	return envelope
}

// DisplayPoints returns how many envelope points a signal of the given
// length gets for drawing: about 200 per minute, between 150 and 2000
func DisplayPoints(numSamples, sampleRate int) int {
	if numSamples <= 0 || sampleRate <= 0 {
		return 0
	}

	minutes := float64(numSamples) / float64(sampleRate) / 60.0
	points := int(math.Floor(minutes * displayPointsPerMinute))
	points = max(points, minDisplayPoints)
	points = min(points, maxDisplayPoints)

	// never more points than samples
	return min(points, numSamples)
}

// ComputeDisplay downsamples signal to a coarse, peak-normalised envelope
// for waveform rendering. Each point is the mean |x| of one block; samples
// past the last full block are dropped.
func (e *Envelope) ComputeDisplay(signal []float64, sampleRate int) []float64 {
	points := DisplayPoints(len(signal), sampleRate)
	if points == 0 {
		return []float64{}
	}

	blockSize := len(signal) / points
	waveform := make([]float64, points)
	for i := range points {
		start := i * blockSize
		waveform[i] = common.MeanAbs(signal[start : start+blockSize])
	}

	common.PeakNormalizeInPlace(waveform)
	return waveform
}
