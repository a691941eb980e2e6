package spectral

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT provides Fast Fourier Transform functionality backed by mjibson/go-dsp
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the complex spectrum of a real frame.
// go-dsp handles all sizes, including non-power-of-2 lengths.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	return fft.FFTReal(x)
}

// Magnitudes returns |X[k]| for k = 0..N/2 (DC through Nyquist).
// No window is applied and no scaling is performed.
func (f *FFT) Magnitudes(frame []float64) []float64 {
	if len(frame) == 0 {
		return []float64{}
	}

	spectrum := f.Compute(frame)
	bins := len(frame)/2 + 1

	magnitudes := make([]float64, bins)
	for k := range bins {
		magnitudes[k] = cmplx.Abs(spectrum[k])
	}

	return magnitudes
}
