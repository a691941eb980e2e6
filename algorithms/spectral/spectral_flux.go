package spectral

import (
	"gonum.org/v1/gonum/stat"
)

// SpectralFlux measures frame-to-frame increase in spectral magnitude
type SpectralFlux struct{}

// NewSpectralFlux creates a new spectral flux calculator
func NewSpectralFlux() *SpectralFlux {
	return &SpectralFlux{}
}

// ComputePair returns the mean over bins of max(0, cur[k] - prev[k]).
// Bins missing from either spectrum are ignored.
func (sf *SpectralFlux) ComputePair(prev, cur []float64) float64 {
	bins := min(len(prev), len(cur))
	if bins == 0 {
		return 0.0
	}

	increases := make([]float64, bins)
	for k := range bins {
		if diff := cur[k] - prev[k]; diff > 0 {
			increases[k] = diff
		}
	}

	return stat.Mean(increases, nil)
}

// Compute calculates spectral flux for a spectrogram. The result has one
// value per frame; frame 0 has no predecessor and is always 0.
func (sf *SpectralFlux) Compute(spectrogram [][]float64) []float64 {
	if len(spectrogram) == 0 {
		return []float64{}
	}

	flux := make([]float64, len(spectrogram))
	for t := 1; t < len(spectrogram); t++ {
		flux[t] = sf.ComputePair(spectrogram[t-1], spectrogram[t])
	}

	return flux
}
