package temporal

import (
	"github.com/RyanBlaney/sonido-beat/algorithms/common"
)

// Energy computes frame energy sequences used by the onset and tempo paths
type Energy struct{}

// NewEnergy creates a new energy calculator
func NewEnergy() *Energy {
	return &Energy{}
}

// ComputeShortTimeEnergy calculates mean-square energy for overlapping
// frames. Only full frames are produced.
func (e *Energy) ComputeShortTimeEnergy(signal []float64, frameSize, hopSize int) []float64 {
	if len(signal) < frameSize || hopSize <= 0 || frameSize <= 0 {
		return []float64{}
	}

	numFrames := (len(signal)-frameSize)/hopSize + 1
	energies := make([]float64, numFrames)

	for i := range numFrames {
		start := i * hopSize
		energies[i] = common.MeanSquare(signal[start : start+frameSize])
	}

	return energies
}

// ComputeWindowEnergies partitions signal into non-overlapping windows and
// returns the sum of squared samples of each. A trailing partial window is
// included.
func (e *Energy) ComputeWindowEnergies(signal []float64, windowSize int) []float64 {
	if len(signal) == 0 || windowSize <= 0 {
		return []float64{}
	}

	numWindows := (len(signal) + windowSize - 1) / windowSize
	energies := make([]float64, numWindows)

	for i := range numWindows {
		start := i * windowSize
		end := min(start+windowSize, len(signal))
		energies[i] = common.SumSquares(signal[start:end])
	}

	return energies
}

// ComputePeakEnergy returns the indices of strict local maxima that exceed
// threshold. The first and last entries never qualify since they lack a
// neighbour on one side.
func (e *Energy) ComputePeakEnergy(energies []float64, threshold float64) []int {
	if len(energies) < 3 {
		return []int{}
	}

	var positions []int
	for i := 1; i < len(energies)-1; i++ {
		if energies[i] > threshold &&
			energies[i] > energies[i-1] &&
			energies[i] > energies[i+1] {
			positions = append(positions, i)
		}
	}

	return positions
}
