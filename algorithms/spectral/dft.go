package spectral

import (
	"math"
)

// DFT evaluates the discrete Fourier transform directly, one bin at a time.
// It costs O(N²) per frame and serves as the reference the FFT path is
// checked against.
type DFT struct{}

// NewDFT creates a new direct DFT calculator
func NewDFT() *DFT {
	return &DFT{}
}

// Magnitudes returns |X[k]| for k = 0..N/2 computed from the definition
func (d *DFT) Magnitudes(frame []float64) []float64 {
	n := len(frame)
	if n == 0 {
		return []float64{}
	}

	bins := n/2 + 1
	magnitudes := make([]float64, bins)

	for k := range bins {
		re, im := 0.0, 0.0
		for t, x := range frame {
			angle := 2.0 * math.Pi * float64(k) * float64(t) / float64(n)
			re += x * math.Cos(angle)
			im -= x * math.Sin(angle)
		}
		magnitudes[k] = math.Hypot(re, im)
	}

	return magnitudes
}
