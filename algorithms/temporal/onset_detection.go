package temporal

import (
	"fmt"

	"github.com/RyanBlaney/sonido-beat/algorithms/common"
	"github.com/RyanBlaney/sonido-beat/algorithms/spectral"
)

// FeatureVector summarises one analysis frame
type FeatureVector struct {
	Start      int       `json:"start"`     // Sample offset of the frame
	Amplitude  float64   `json:"amplitude"` // Mean |x|, mean x² (energy mode) or the raw sample (simple mode)
	ZCR        float64   `json:"zcr"`       // Normalised zero-crossing rate
	Magnitudes []float64 `json:"-"`         // DC..Nyquist magnitude spectrum
}

// OnsetDetection detects transients (note/hit onsets) in audio signals.
// It holds no per-call state and is safe for concurrent use.
type OnsetDetection struct {
	spectralFlux *spectral.SpectralFlux
	zcr          *spectral.ZeroCrossingRate
	energy       *Energy
	fftSTFT      *spectral.STFT
	dftSTFT      *spectral.STFT
}

// NewOnsetDetection creates a new onset detector
func NewOnsetDetection() *OnsetDetection {
	return &OnsetDetection{
		spectralFlux: spectral.NewSpectralFlux(),
		zcr:          spectral.NewZeroCrossingRate(),
		energy:       NewEnergy(),
		fftSTFT:      spectral.NewSTFT(spectral.NewFFT()),
		dftSTFT:      spectral.NewSTFT(spectral.NewDFT()),
	}
}

// DetectOnsets returns the strictly increasing sample indices of detected
// transients. Empty or too-short signals yield an empty list; only an
// invalid configuration produces an error.
func (od *OnsetDetection) DetectOnsets(signal []float64, sampleRate int, cfg OnsetConfig) ([]int, error) {
	if err := validateInput(sampleRate, cfg); err != nil {
		return nil, err
	}

	normalized := common.PeakNormalize(signal)

	scores, features, err := od.scoreFrames(normalized, cfg)
	if err != nil {
		return nil, err
	}
	if len(scores) < 2 {
		return []int{}, nil
	}

	return od.pickOnsets(normalized, scores, features, cfg), nil
}

// DetectOnsetsSimple runs the sample-difference detector: a sample is an
// onset when it rises more than threshold above its predecessor and lies
// more than minGap samples after the previous onset.
func (od *OnsetDetection) DetectOnsetsSimple(signal []float64, sampleRate int, threshold float64, minGap int, refine bool) ([]int, error) {
	cfg := DefaultSimpleOnsetConfig()
	cfg.Threshold = threshold
	cfg.MinGap = minGap
	cfg.ZeroCrossingRefine = refine

	return od.DetectOnsets(signal, sampleRate, cfg)
}

// OnsetScores returns the per-frame onset score curve for a signal after
// peak normalisation. Entry 0 is always 0.
func (od *OnsetDetection) OnsetScores(signal []float64, cfg OnsetConfig) ([]float64, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	scores, _, err := od.scoreFrames(common.PeakNormalize(signal), cfg)
	return scores, err
}

// ExtractFeatures returns one FeatureVector per frame for the configured mode
func (od *OnsetDetection) ExtractFeatures(signal []float64, cfg OnsetConfig) ([]FeatureVector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return od.extractFeatures(signal, cfg)
}

func validateInput(sampleRate int, cfg OnsetConfig) error {
	if sampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidConfig, sampleRate)
	}
	return cfg.Validate()
}

func (od *OnsetDetection) extractFeatures(signal []float64, cfg OnsetConfig) ([]FeatureVector, error) {
	frameSize, hopSize := cfg.frameGeometry()
	if len(signal) == 0 || len(signal) < frameSize {
		return []FeatureVector{}, nil
	}

	numFrames := (len(signal)-frameSize)/hopSize + 1
	features := make([]FeatureVector, numFrames)

	switch cfg.Mode {
	case OnsetModeSimple:
		for i, x := range signal {
			features[i] = FeatureVector{Start: i, Amplitude: x}
		}

	case OnsetModeEnergy:
		energies := od.energy.ComputeShortTimeEnergy(signal, frameSize, hopSize)
		for i := range features {
			features[i] = FeatureVector{Start: i * hopSize, Amplitude: energies[i]}
		}

	default:
		stft := od.fftSTFT
		if cfg.Spectrum == SpectrumDFT {
			stft = od.dftSTFT
		}
		spectrogram, err := stft.ComputeMagnitudes(signal, frameSize, hopSize)
		if err != nil {
			return nil, fmt.Errorf("compute frame spectra: %w", err)
		}

		for i := range features {
			start := i * hopSize
			frame := signal[start : start+frameSize]
			features[i] = FeatureVector{
				Start:      start,
				Amplitude:  common.MeanAbs(frame),
				ZCR:        od.zcr.ComputeNormalized(frame),
				Magnitudes: spectrogram.Magnitude[i],
			}
		}
	}

	return features, nil
}

// scoreFrames combines the non-negative feature deltas of each frame into
// one onset score
func (od *OnsetDetection) scoreFrames(signal []float64, cfg OnsetConfig) ([]float64, []FeatureVector, error) {
	features, err := od.extractFeatures(signal, cfg)
	if err != nil {
		return nil, nil, err
	}

	scores := make([]float64, len(features))
	multi := cfg.Mode == OnsetModeMultiFeature

	for i := 1; i < len(features); i++ {
		prev, cur := features[i-1], features[i]

		score := cfg.AmplitudeWeight * max(0, cur.Amplitude-prev.Amplitude)
		if multi {
			score += cfg.FluxWeight * od.spectralFlux.ComputePair(prev.Magnitudes, cur.Magnitudes)
			score += cfg.ZCRWeight * max(0, cur.ZCR-prev.ZCR)
		}
		scores[i] = score
	}

	return scores, features, nil
}

// pickOnsets applies threshold, optional local-maximum check, optional
// zero-crossing refinement and the refractory gap. The gap is measured
// between reported indices so the output never violates it.
func (od *OnsetDetection) pickOnsets(signal []float64, scores []float64, features []FeatureVector, cfg OnsetConfig) []int {
	frameSize, _ := cfg.frameGeometry()
	threshold := cfg.EffectiveThreshold()

	onsets := []int{}
	lastOnset := -1

	for i := 1; i < len(scores); i++ {
		score := scores[i]
		if score <= threshold {
			continue
		}

		if cfg.PeakPicking {
			if score < scores[i-1] || (i+1 < len(scores) && score < scores[i+1]) {
				continue
			}
		}

		position := features[i].Start
		if cfg.ZeroCrossingRefine {
			if p, ok := spectral.FindRisingCrossing(signal, position, position+frameSize); ok {
				position = p
			}
		}

		if lastOnset >= 0 && position-lastOnset <= cfg.MinGap {
			continue
		}

		onsets = append(onsets, position)
		lastOnset = position
	}

	return onsets
}

// OnsetDensity calculates onset density (onsets per second)
func OnsetDensity(onsets []int, numSamples int, sampleRate int) float64 {
	if numSamples <= 0 || sampleRate <= 0 {
		return 0.0
	}

	duration := float64(numSamples) / float64(sampleRate)
	return float64(len(onsets)) / duration
}
