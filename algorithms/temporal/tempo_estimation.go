package temporal

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-beat/algorithms/common"
)

// TempoConfig tunes the energy-peak tempo estimator
type TempoConfig struct {
	// WindowDuration is the energy window length in seconds
	WindowDuration float64 `json:"window_duration" yaml:"window_duration"`
	// PeakRatio scales the maximum window energy into the peak threshold
	PeakRatio float64 `json:"peak_ratio" yaml:"peak_ratio"`
}

// DefaultTempoConfig returns 50 ms windows and a 0.6 peak ratio
func DefaultTempoConfig() TempoConfig {
	return TempoConfig{
		WindowDuration: 0.05,
		PeakRatio:      0.6,
	}
}

// Validate checks the tempo configuration
func (c TempoConfig) Validate() error {
	if !(c.WindowDuration > 0) {
		return fmt.Errorf("%w: window duration must be positive, got %v", ErrInvalidConfig, c.WindowDuration)
	}
	if !(c.PeakRatio >= 0) {
		return fmt.Errorf("%w: peak ratio must be non-negative, got %v", ErrInvalidConfig, c.PeakRatio)
	}
	return nil
}

// TempoEstimate is a determined tempo. A nil *TempoEstimate means the tempo
// could not be determined.
type TempoEstimate struct {
	BPM           int     `json:"bpm"`
	Interval      float64 `json:"interval"`       // Winning inter-peak interval, seconds (0.1 s resolution)
	PeakCount     int     `json:"peak_count"`     // Energy peaks found
	IntervalCount int     `json:"interval_count"` // Inter-peak intervals measured
	Confidence    float64 `json:"confidence"`     // Share of intervals in the winning bin
	Category      string  `json:"category"`
}

// TempoEstimation estimates tempo from the spacing of short-window energy
// peaks
type TempoEstimation struct {
	energy *Energy
}

// NewTempoEstimation creates a new tempo estimator
func NewTempoEstimation() *TempoEstimation {
	return &TempoEstimation{
		energy: NewEnergy(),
	}
}

// EstimateTempo estimates tempo in BPM with the default configuration
func (te *TempoEstimation) EstimateTempo(signal []float64, sampleRate int) (*TempoEstimate, error) {
	return te.EstimateTempoWithConfig(signal, sampleRate, DefaultTempoConfig())
}

// EstimateTempoWithConfig estimates tempo in BPM. It returns nil (and no
// error) when fewer than two energy peaks are found, including for empty
// and silent signals.
func (te *TempoEstimation) EstimateTempoWithConfig(signal []float64, sampleRate int, cfg TempoConfig) (*TempoEstimate, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidConfig, sampleRate)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if len(signal) == 0 {
		return nil, nil
	}

	windowSize := max(1, int(math.Round(float64(sampleRate)*cfg.WindowDuration)))
	energies := te.energy.ComputeWindowEnergies(signal, windowSize)

	threshold := cfg.PeakRatio * common.Max(energies)
	peakWindows := te.energy.ComputePeakEnergy(energies, threshold)
	if len(peakWindows) < 2 {
		return nil, nil
	}

	peakTimes := make([]float64, len(peakWindows))
	for i, w := range peakWindows {
		peakTimes[i] = float64(w*windowSize) / float64(sampleRate)
	}

	intervals := make([]float64, len(peakTimes)-1)
	for i := range intervals {
		intervals[i] = peakTimes[i+1] - peakTimes[i]
	}

	bin, count := te.dominantInterval(intervals)
	if bin <= 0 {
		return nil, nil
	}
	interval := float64(bin) / 10.0

	bpm := int(common.RoundHalfUp(60.0 / interval))

	return &TempoEstimate{
		BPM:           bpm,
		Interval:      interval,
		PeakCount:     len(peakWindows),
		IntervalCount: len(intervals),
		Confidence:    float64(count) / float64(len(intervals)),
		Category:      ClassifyTempoCategory(bpm),
	}, nil
}

// intervalHistogram counts intervals rounded to tenths of a second,
// remembering the order in which bins first appear
type intervalHistogram struct {
	order  []int
	counts map[int]int
}

func newIntervalHistogram() *intervalHistogram {
	return &intervalHistogram{counts: make(map[int]int)}
}

func (h *intervalHistogram) add(interval float64) {
	bin := int(common.RoundHalfUp(interval * 10))
	if _, seen := h.counts[bin]; !seen {
		h.order = append(h.order, bin)
	}
	h.counts[bin]++
}

// mode returns the most frequent bin; ties go to the bin seen first
func (h *intervalHistogram) mode() (bin int, count int) {
	for _, b := range h.order {
		if c := h.counts[b]; c > count {
			bin, count = b, c
		}
	}
	return bin, count
}

// dominantInterval returns the most common interval in tenths of a second
func (te *TempoEstimation) dominantInterval(intervals []float64) (int, int) {
	hist := newIntervalHistogram()
	for _, interval := range intervals {
		hist.add(interval)
	}
	return hist.mode()
}

// ClassifyTempoCategory classifies tempo into broad categories
func ClassifyTempoCategory(bpm int) string {
	switch {
	case bpm < 60:
		return "very_slow"
	case bpm < 90:
		return "slow"
	case bpm < 120:
		return "moderate"
	case bpm < 150:
		return "fast"
	default:
		return "very_fast"
	}
}
