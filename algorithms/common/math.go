package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic statistics shared by the frame feature extractors. gonum does the
// heavy lifting where it has a matching primitive.

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// MaxAbs returns the largest absolute value in data
func MaxAbs(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return math.Max(floats.Max(data), -floats.Min(data))
}

// Max returns the largest value in data, or 0 for an empty slice
func Max(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return floats.Max(data)
}

// MeanAbs returns the mean absolute amplitude of a frame
func MeanAbs(frame []float64) float64 {
	if len(frame) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, v := range frame {
		sum += math.Abs(v)
	}
	return sum / float64(len(frame))
}

// SumSquares returns the energy (sum of squared samples) of a frame
func SumSquares(frame []float64) float64 {
	if len(frame) == 0 {
		return 0.0
	}
	return floats.Dot(frame, frame)
}

// MeanSquare returns the short-time energy of a frame normalised by its length
func MeanSquare(frame []float64) float64 {
	if len(frame) == 0 {
		return 0.0
	}
	return SumSquares(frame) / float64(len(frame))
}

// RoundHalfUp rounds x to the nearest integer, halves away from -Inf.
// Positive interval histograms rely on 0.25 -> 0.3 style rounding.
func RoundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
