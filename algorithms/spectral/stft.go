package spectral

import (
	"fmt"
	"runtime"
	"sync"
)

// MagnitudeTransform turns one real frame into its magnitude spectrum
// (N/2+1 bins). FFT and DFT both satisfy it.
type MagnitudeTransform interface {
	Magnitudes(frame []float64) []float64
}

// STFT provides frame-local magnitude spectra over a sliding frame
type STFT struct {
	transform MagnitudeTransform
}

// STFTResult holds the magnitude spectrogram of a signal
type STFTResult struct {
	Magnitude  [][]float64 `json:"magnitude"`   // Time x Frequency magnitude matrix
	TimeFrames int         `json:"time_frames"` // Number of time frames
	FreqBins   int         `json:"freq_bins"`   // Number of frequency bins
	WindowSize int         `json:"window_size"` // Frame length in samples
	HopSize    int         `json:"hop_size"`    // Hop size between frames
}

// NewSTFT creates a new STFT calculator. A nil transform selects the FFT.
func NewSTFT(transform MagnitudeTransform) *STFT {
	if transform == nil {
		transform = NewFFT()
	}
	return &STFT{
		transform: transform,
	}
}

// ComputeMagnitudes computes the magnitude spectrum of every full frame,
// spreading frames over a pool of workers. Frames are not windowed.
// A signal shorter than one frame yields an empty result, not an error.
func (s *STFT) ComputeMagnitudes(signal []float64, windowSize int, hopSize int) (*STFTResult, error) {
	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}

	if hopSize <= 0 {
		return nil, fmt.Errorf("hop size must be positive")
	}

	freqBins := windowSize/2 + 1
	result := &STFTResult{
		FreqBins:   freqBins,
		WindowSize: windowSize,
		HopSize:    hopSize,
	}

	if len(signal) < windowSize {
		result.Magnitude = [][]float64{}
		return result, nil
	}

	numFrames := (len(signal)-windowSize)/hopSize + 1
	magnitude := make([][]float64, numFrames)

	numWorkers := s.getOptimalWorkerCount(numFrames)

	// Each worker owns distinct rows of magnitude, so no locking is needed
	jobs := make(chan int, numFrames)

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for frameIdx := range jobs {
				start := frameIdx * hopSize
				magnitude[frameIdx] = s.transform.Magnitudes(signal[start : start+windowSize])
			}
		}()
	}

	for frameIdx := range numFrames {
		jobs <- frameIdx
	}
	close(jobs)

	wg.Wait()

	result.Magnitude = magnitude
	result.TimeFrames = numFrames

	return result, nil
}

// getOptimalWorkerCount determines the number of workers based on workload
func (s *STFT) getOptimalWorkerCount(numFrames int) int {
	numCPU := runtime.NumCPU()

	// For small workloads, don't over-parallelize
	if numFrames < 100 {
		return max(1, min(numCPU/2, numFrames))
	}

	// For medium workloads, use most CPUs
	if numFrames < 1000 {
		return min(numCPU, 8)
	}

	return numCPU
}
