package spectral

// ZeroCrossingRate computes the fraction of adjacent-sample sign changes in
// a frame. A sample equal to zero counts as non-negative.
type ZeroCrossingRate struct{}

// NewZeroCrossingRate creates a new zero crossing rate calculator
func NewZeroCrossingRate() *ZeroCrossingRate {
	return &ZeroCrossingRate{}
}

// Crossings counts sign changes between adjacent samples
func (zcr *ZeroCrossingRate) Crossings(frame []float64) int {
	crossings := 0
	for i := 1; i < len(frame); i++ {
		if (frame[i-1] >= 0 && frame[i] < 0) || (frame[i-1] < 0 && frame[i] >= 0) {
			crossings++
		}
	}
	return crossings
}

// ComputeNormalized calculates ZCR in the 0-1 range, normalised by the
// maximum possible number of crossings (len(frame) - 1)
func (zcr *ZeroCrossingRate) ComputeNormalized(frame []float64) float64 {
	if len(frame) < 2 {
		return 0.0
	}

	return float64(zcr.Crossings(frame)) / float64(len(frame)-1)
}

// ComputeFramesNormalized calculates normalised ZCR for overlapping frames
func (zcr *ZeroCrossingRate) ComputeFramesNormalized(signal []float64, frameSize, hopSize int) []float64 {
	if frameSize <= 0 || hopSize <= 0 || len(signal) < frameSize {
		return []float64{}
	}

	numFrames := (len(signal)-frameSize)/hopSize + 1
	zcrValues := make([]float64, numFrames)

	for i := range numFrames {
		start := i * hopSize
		zcrValues[i] = zcr.ComputeNormalized(signal[start : start+frameSize])
	}

	return zcrValues
}

// FindRisingCrossing searches signal[start:end] backward and returns the last
// index p where signal[p-1] <= 0 and signal[p] > 0. ok is false when the
// range holds no such crossing.
func FindRisingCrossing(signal []float64, start, end int) (int, bool) {
	start = max(start, 1)
	end = min(end, len(signal))

	for p := end - 1; p >= start; p-- {
		if signal[p-1] <= 0 && signal[p] > 0 {
			return p, true
		}
	}
	return 0, false
}
