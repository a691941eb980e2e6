package temporal

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is wrapped by every configuration error returned from
// the onset detector and tempo estimator.
var ErrInvalidConfig = errors.New("invalid configuration")

// OnsetMode selects which per-frame features drive the onset score
type OnsetMode int

const (
	// OnsetModeMultiFeature combines amplitude, spectral flux and ZCR deltas
	OnsetModeMultiFeature OnsetMode = iota
	// OnsetModeEnergy frames the signal but scores only short-time energy
	OnsetModeEnergy
	// OnsetModeSimple works on raw successive sample differences
	OnsetModeSimple
)

func (m OnsetMode) String() string {
	switch m {
	case OnsetModeMultiFeature:
		return "multi"
	case OnsetModeEnergy:
		return "energy"
	case OnsetModeSimple:
		return "simple"
	default:
		return "unknown"
	}
}

// ParseOnsetMode maps "multi", "energy" or "simple" onto an OnsetMode
func ParseOnsetMode(s string) (OnsetMode, error) {
	switch s {
	case "multi", "multi-feature", "":
		return OnsetModeMultiFeature, nil
	case "energy":
		return OnsetModeEnergy, nil
	case "simple":
		return OnsetModeSimple, nil
	default:
		return OnsetModeMultiFeature, fmt.Errorf("%w: unknown onset mode %q", ErrInvalidConfig, s)
	}
}

// MarshalText lets JSON and YAML carry the mode by name
func (m OnsetMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText
func (m *OnsetMode) UnmarshalText(text []byte) error {
	mode, err := ParseOnsetMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// SpectrumMethod selects how frame magnitude spectra are computed
type SpectrumMethod string

const (
	SpectrumFFT SpectrumMethod = "fft"
	SpectrumDFT SpectrumMethod = "dft"
)

// Sensitivity curve bounds: threshold = minThreshold * sensitivityBase^s
const (
	minThreshold    = 0.0001
	sensitivityBase = 200.0
)

// SensitivityToThreshold maps a sensitivity in [0,1] onto a detection
// threshold along 0.0001 * 200^s (0 -> 0.0001, 1 -> 0.02)
func SensitivityToThreshold(sensitivity float64) float64 {
	return minThreshold * math.Pow(sensitivityBase, sensitivity)
}

// OnsetConfig configures DetectOnsets. Frame and hop sizes are ignored in
// simple mode, which always steps one sample at a time.
type OnsetConfig struct {
	Mode      OnsetMode `json:"mode" yaml:"mode"`
	FrameSize int       `json:"frame_size" yaml:"frame_size"`
	HopSize   int       `json:"hop_size" yaml:"hop_size"`

	// Per-feature weights for the onset score
	AmplitudeWeight float64 `json:"amplitude_weight" yaml:"amplitude_weight"`
	FluxWeight      float64 `json:"flux_weight" yaml:"flux_weight"`
	ZCRWeight       float64 `json:"zcr_weight" yaml:"zcr_weight"`

	// Threshold is used unless Sensitivity is set
	Threshold   float64  `json:"threshold" yaml:"threshold"`
	Sensitivity *float64 `json:"sensitivity,omitempty" yaml:"sensitivity,omitempty"`

	// MinGap is the refractory gap in samples between reported onsets
	MinGap int `json:"min_gap" yaml:"min_gap"`

	PeakPicking        bool `json:"peak_picking" yaml:"peak_picking"`
	ZeroCrossingRefine bool `json:"zero_crossing_refine" yaml:"zero_crossing_refine"`

	Spectrum SpectrumMethod `json:"spectrum" yaml:"spectrum"`
}

// DefaultOnsetConfig returns the multi-feature defaults
func DefaultOnsetConfig() OnsetConfig {
	return OnsetConfig{
		Mode:               OnsetModeMultiFeature,
		FrameSize:          1024,
		HopSize:            256,
		AmplitudeWeight:    1.0,
		FluxWeight:         1.0,
		ZCRWeight:          0.5,
		Threshold:          0.2,
		MinGap:             1024,
		PeakPicking:        false,
		ZeroCrossingRefine: false,
		Spectrum:           SpectrumFFT,
	}
}

// DefaultSimpleOnsetConfig returns the sample-difference defaults
func DefaultSimpleOnsetConfig() OnsetConfig {
	cfg := DefaultOnsetConfig()
	cfg.Mode = OnsetModeSimple
	cfg.FrameSize = 1
	cfg.HopSize = 1
	cfg.Threshold = 0.3
	cfg.MinGap = 5
	return cfg
}

// EffectiveThreshold returns the threshold implied by Sensitivity when set,
// otherwise Threshold
func (c OnsetConfig) EffectiveThreshold() float64 {
	if c.Sensitivity != nil {
		return SensitivityToThreshold(*c.Sensitivity)
	}
	return c.Threshold
}

// frameGeometry returns the frame and hop sizes actually used by the mode
func (c OnsetConfig) frameGeometry() (frameSize, hopSize int) {
	if c.Mode == OnsetModeSimple {
		return 1, 1
	}
	return c.FrameSize, c.HopSize
}

// Validate reports every problem with the configuration at once
func (c OnsetConfig) Validate() error {
	var errs []error

	switch c.Mode {
	case OnsetModeMultiFeature, OnsetModeEnergy:
		if c.FrameSize <= 0 {
			errs = append(errs, fmt.Errorf("frame size must be positive, got %d", c.FrameSize))
		}
		if c.HopSize <= 0 {
			errs = append(errs, fmt.Errorf("hop size must be positive, got %d", c.HopSize))
		}
	case OnsetModeSimple:
	default:
		errs = append(errs, fmt.Errorf("unknown onset mode %d", int(c.Mode)))
	}

	if c.AmplitudeWeight < 0 || c.FluxWeight < 0 || c.ZCRWeight < 0 {
		errs = append(errs, fmt.Errorf("feature weights must be non-negative"))
	}
	if math.IsNaN(c.AmplitudeWeight) || math.IsNaN(c.FluxWeight) || math.IsNaN(c.ZCRWeight) {
		errs = append(errs, fmt.Errorf("feature weights must be numbers"))
	}

	if c.Sensitivity != nil {
		s := *c.Sensitivity
		if math.IsNaN(s) || s < 0 || s > 1 {
			errs = append(errs, fmt.Errorf("sensitivity must be within [0, 1], got %v", s))
		}
	} else if math.IsNaN(c.Threshold) {
		errs = append(errs, fmt.Errorf("threshold must be a number"))
	}

	if c.MinGap < 0 {
		errs = append(errs, fmt.Errorf("minimum gap must be non-negative, got %d", c.MinGap))
	}

	switch c.Spectrum {
	case SpectrumFFT, SpectrumDFT, "":
	default:
		errs = append(errs, fmt.Errorf("unknown spectrum method %q", c.Spectrum))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
