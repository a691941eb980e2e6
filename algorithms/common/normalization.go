package common

// PeakNormalize scales signal so its largest absolute sample is 1.0.
// The input is never modified; silent or already-normalized signals come
// back as an unchanged copy.
func PeakNormalize(signal []float64) []float64 {
	normalized := make([]float64, len(signal))
	copy(normalized, signal)

	peak := MaxAbs(signal)
	if peak < 1e-10 || peak == 1.0 {
		return normalized
	}

	for i := range normalized {
		normalized[i] /= peak
	}

	return normalized
}

// PeakNormalizeInPlace is PeakNormalize without the copy
func PeakNormalizeInPlace(signal []float64) {
	peak := MaxAbs(signal)
	if peak < 1e-10 || peak == 1.0 {
		return
	}

	for i := range signal {
		signal[i] /= peak
	}
}
