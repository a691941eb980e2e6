package common

// Resampler converts decoded audio between sample rates by linear
// interpolation. The detectors are rate-agnostic, so this only runs when a
// decoder is configured with a target rate.
type Resampler struct{}

// NewResampler creates a new resampler
func NewResampler() *Resampler {
	return &Resampler{}
}

// linearInterpolate samples data at a fractional index
func (r *Resampler) linearInterpolate(data []float64, index float64) float64 {
	if len(data) == 0 {
		return 0.0
	}

	if index <= 0 {
		return data[0]
	}
	if index >= float64(len(data)-1) {
		return data[len(data)-1]
	}

	i := int(index)
	frac := index - float64(i)

	return data[i] + frac*(data[i+1]-data[i])
}

// Resample resamples a signal from originalRate to targetRate. Equal or
// invalid rates return the input unchanged.
func (r *Resampler) Resample(signal []float64, originalRate, targetRate int) []float64 {
	if len(signal) == 0 || originalRate <= 0 || targetRate <= 0 || originalRate == targetRate {
		return signal
	}

	ratio := float64(originalRate) / float64(targetRate)
	newLength := int(float64(len(signal)) / ratio)

	if newLength <= 0 {
		return []float64{}
	}

	resampled := make([]float64, newLength)
	for i := range resampled {
		resampled[i] = r.linearInterpolate(signal, float64(i)*ratio)
	}

	return resampled
}
