package temporal

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"
)

// three percussive hits with decay
var threeHits = []float64{0, 0.8, 0.5, 0.2, 0, 0, 0, 0.9, 0.6, 0.3, 0, 0, 0, 1.0, 0.7, 0.3, 0, 0}

func threeHitsMultiConfig() OnsetConfig {
	cfg := DefaultOnsetConfig()
	cfg.FrameSize = 4
	cfg.HopSize = 1
	cfg.Threshold = 0.2
	cfg.MinGap = 1
	cfg.Spectrum = SpectrumDFT
	return cfg
}

// toneBursts returns one second of silence at 44.1 kHz with 2048-sample
// 440 Hz bursts starting at each of starts
func toneBursts(starts ...int) []float64 {
	const sampleRate = 44100
	signal := make([]float64, sampleRate)
	for _, b := range starts {
		for i := range 2048 {
			signal[b+i] = math.Sin(2 * math.Pi * 440 * float64(i) / sampleRate)
		}
	}
	return signal
}

func clickTrain(n, spacing, first int) []float64 {
	signal := make([]float64, n)
	for p := first; p < n; p += spacing {
		signal[p] = 1.0
	}
	return signal
}

func assertOnsetInvariants(t *testing.T, onsets []int, n int, minGap int) {
	t.Helper()
	for i, p := range onsets {
		if p < 0 || p >= n {
			t.Fatalf("onset %d = %d out of bounds [0, %d)", i, p, n)
		}
		if i > 0 {
			if p <= onsets[i-1] {
				t.Fatalf("onsets not strictly increasing: %v", onsets)
			}
			if p-onsets[i-1] <= minGap {
				t.Fatalf("onsets %d and %d closer than gap %d", onsets[i-1], p, minGap)
			}
		}
	}
}

func TestDetectOnsetsSimpleThreeHits(t *testing.T) {
	od := NewOnsetDetection()

	onsets, err := od.DetectOnsetsSimple(threeHits, 44100, 0.5, 2, true)
	if err != nil {
		t.Fatalf("DetectOnsetsSimple: %v", err)
	}
	if len(onsets) != 3 {
		t.Fatalf("got %d onsets %v, want 3", len(onsets), onsets)
	}
	want := []int{1, 7, 13}
	if !reflect.DeepEqual(onsets, want) {
		t.Errorf("onsets = %v, want %v", onsets, want)
	}
}

func TestDetectOnsetsMultiFeatureThreeHits(t *testing.T) {
	od := NewOnsetDetection()

	simple, err := od.DetectOnsetsSimple(threeHits, 44100, 0.5, 2, true)
	if err != nil {
		t.Fatalf("simple: %v", err)
	}

	multi, err := od.DetectOnsets(threeHits, 44100, threeHitsMultiConfig())
	if err != nil {
		t.Fatalf("multi: %v", err)
	}
	if len(multi) < len(simple) {
		t.Fatalf("multi-feature found %d onsets, fewer than simple %d", len(multi), len(simple))
	}
	if want := []int{4, 6, 10, 12}; !reflect.DeepEqual(multi, want) {
		t.Errorf("multi = %v, want %v", multi, want)
	}
}

func TestDetectOnsetsFFTMatchesDFT(t *testing.T) {
	od := NewOnsetDetection()

	dftCfg := threeHitsMultiConfig()
	fftCfg := dftCfg
	fftCfg.Spectrum = SpectrumFFT

	a, err := od.DetectOnsets(threeHits, 44100, dftCfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := od.DetectOnsets(threeHits, 44100, fftCfg)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("dft %v != fft %v", a, b)
	}

	dftScores, _ := od.OnsetScores(threeHits, dftCfg)
	fftScores, _ := od.OnsetScores(threeHits, fftCfg)
	for i := range dftScores {
		if math.Abs(dftScores[i]-fftScores[i]) > 1e-9 {
			t.Errorf("score %d: dft %v fft %v", i, dftScores[i], fftScores[i])
		}
	}
}

func TestDetectOnsetsPeakPickingAndRefinement(t *testing.T) {
	od := NewOnsetDetection()

	cfg := threeHitsMultiConfig()
	cfg.PeakPicking = true
	picked, err := od.DetectOnsets(threeHits, 44100, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{4, 10}; !reflect.DeepEqual(picked, want) {
		t.Errorf("peak-picked = %v, want %v", picked, want)
	}

	cfg = threeHitsMultiConfig()
	cfg.ZeroCrossingRefine = true
	refined, err := od.DetectOnsets(threeHits, 44100, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{7, 13}; !reflect.DeepEqual(refined, want) {
		t.Errorf("refined = %v, want %v", refined, want)
	}
	for _, p := range refined {
		if !(threeHits[p-1] <= 0 && threeHits[p] > 0) {
			t.Errorf("refined onset %d is not a rising zero crossing", p)
		}
	}
}

func TestDetectOnsetsEnergyMode(t *testing.T) {
	starts := []int{4096, 22050}
	signal := toneBursts(starts...)

	cfg := DefaultOnsetConfig()
	cfg.Mode = OnsetModeEnergy
	cfg.FrameSize = 512
	cfg.Threshold = 0.05

	for _, peakPicking := range []bool{false, true} {
		cfg.PeakPicking = peakPicking
		onsets, err := NewOnsetDetection().DetectOnsets(signal, 44100, cfg)
		if err != nil {
			t.Fatal(err)
		}
		if len(onsets) != len(starts) {
			t.Fatalf("peakPicking=%v: onsets = %v, want %d", peakPicking, onsets, len(starts))
		}
		for i, b := range starts {
			if onsets[i] < b-cfg.FrameSize || onsets[i] > b {
				t.Errorf("onset %d = %d, want within [%d, %d]", i, onsets[i], b-cfg.FrameSize, b)
			}
		}
	}
}

func TestDetectOnsetsMultiFeatureFindsBursts(t *testing.T) {
	starts := []int{4096, 22050}
	signal := toneBursts(starts...)
	cfg := DefaultOnsetConfig()

	onsets, err := NewOnsetDetection().DetectOnsets(signal, 44100, cfg)
	if err != nil {
		t.Fatal(err)
	}
	assertOnsetInvariants(t, onsets, len(signal), cfg.MinGap)

	for _, b := range starts {
		found := false
		for _, p := range onsets {
			if p >= b-cfg.FrameSize && p <= b+cfg.FrameSize {
				found = true
			}
		}
		if !found {
			t.Errorf("no onset near burst at %d: %v", b, onsets)
		}
	}
}

func TestSimpleNeverExceedsMultiFeature(t *testing.T) {
	od := NewOnsetDetection()

	cases := []struct {
		name   string
		signal []float64
	}{
		{"bursts", toneBursts(4096, 22050)},
		{"clicks", clickTrain(44100, 2000, 1000)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			multiCfg := DefaultOnsetConfig()
			multiCfg.FrameSize = 256
			multiCfg.HopSize = 64

			simple, err := od.DetectOnsetsSimple(tc.signal, 44100, multiCfg.Threshold, multiCfg.MinGap, false)
			if err != nil {
				t.Fatal(err)
			}
			multi, err := od.DetectOnsets(tc.signal, 44100, multiCfg)
			if err != nil {
				t.Fatal(err)
			}
			if len(simple) > len(multi) {
				t.Errorf("simple %d > multi %d", len(simple), len(multi))
			}
		})
	}
}

func TestOnsetInvariantsOnNoise(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	signal := make([]float64, 20000)
	for i := range signal {
		signal[i] = 0.05 * (rng.Float64()*2 - 1)
		// sporadic loud hits
		if i%1500 < 40 {
			signal[i] *= 15
		}
	}

	configs := map[string]OnsetConfig{}
	base := DefaultOnsetConfig()
	base.FrameSize = 256
	base.HopSize = 64
	base.MinGap = 300
	configs["multi"] = base

	refined := base
	refined.ZeroCrossingRefine = true
	refined.HopSize = 512
	refined.MinGap = 0
	configs["multi-refine-nonoverlap"] = refined

	picked := base
	picked.PeakPicking = true
	picked.ZeroCrossingRefine = true
	configs["multi-pick-refine"] = picked

	energy := base
	energy.Mode = OnsetModeEnergy
	energy.Threshold = 0.001
	configs["energy"] = energy

	simple := DefaultSimpleOnsetConfig()
	simple.ZeroCrossingRefine = true
	configs["simple"] = simple

	od := NewOnsetDetection()
	for name, cfg := range configs {
		t.Run(name, func(t *testing.T) {
			onsets, err := od.DetectOnsets(signal, 44100, cfg)
			if err != nil {
				t.Fatal(err)
			}
			assertOnsetInvariants(t, onsets, len(signal), cfg.MinGap)

			again, err := od.DetectOnsets(signal, 44100, cfg)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(onsets, again) {
				t.Errorf("second run differs: %v vs %v", onsets, again)
			}
		})
	}
}

func TestDetectOnsetsDegenerateInput(t *testing.T) {
	od := NewOnsetDetection()

	for _, signal := range [][]float64{nil, {}, make([]float64, 100)} {
		onsets, err := od.DetectOnsets(signal, 44100, DefaultOnsetConfig())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if onsets == nil || len(onsets) != 0 {
			t.Errorf("len %d: onsets = %v, want empty", len(signal), onsets)
		}
	}

	// frame longer than the signal
	short := []float64{0, 1, 0, 1, 0, 1}
	onsets, err := od.DetectOnsets(short, 44100, DefaultOnsetConfig())
	if err != nil || len(onsets) != 0 {
		t.Errorf("short signal: onsets=%v err=%v", onsets, err)
	}

	// silence stays silent in every mode
	silent := make([]float64, 4096)
	for _, mode := range []OnsetMode{OnsetModeSimple, OnsetModeEnergy, OnsetModeMultiFeature} {
		cfg := DefaultOnsetConfig()
		cfg.Mode = mode
		onsets, err := od.DetectOnsets(silent, 44100, cfg)
		if err != nil || len(onsets) != 0 {
			t.Errorf("%v on silence: onsets=%v err=%v", mode, onsets, err)
		}
	}
}

func TestDetectOnsetsDoesNotModifyInput(t *testing.T) {
	signal := []float64{0, 0.4, 0.1, 0, 0.2, 0}
	orig := append([]float64(nil), signal...)

	if _, err := NewOnsetDetection().DetectOnsetsSimple(signal, 8000, 0.1, 0, true); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(signal, orig) {
		t.Errorf("input modified: %v", signal)
	}
}

func TestDetectOnsetsInvalidConfig(t *testing.T) {
	od := NewOnsetDetection()
	signal := make([]float64, 4096)

	zeroFrame := DefaultOnsetConfig()
	zeroFrame.FrameSize = 0

	negHop := DefaultOnsetConfig()
	negHop.HopSize = -1

	badSensitivity := DefaultOnsetConfig()
	s := 1.5
	badSensitivity.Sensitivity = &s

	negWeight := DefaultOnsetConfig()
	negWeight.FluxWeight = -1

	negGap := DefaultOnsetConfig()
	negGap.MinGap = -3

	badSpectrum := DefaultOnsetConfig()
	badSpectrum.Spectrum = "wavelet"

	cases := map[string]OnsetConfig{
		"zero frame":      zeroFrame,
		"negative hop":    negHop,
		"sensitivity":     badSensitivity,
		"negative weight": negWeight,
		"negative gap":    negGap,
		"spectrum":        badSpectrum,
	}
	for name, cfg := range cases {
		// empty input still reports the configuration error
		for _, in := range [][]float64{signal, nil} {
			if _, err := od.DetectOnsets(in, 44100, cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("%s: err = %v, want ErrInvalidConfig", name, err)
			}
		}
	}

	if _, err := od.DetectOnsets(signal, 0, DefaultOnsetConfig()); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("zero sample rate: err = %v, want ErrInvalidConfig", err)
	}

	// simple mode ignores frame geometry
	simple := DefaultSimpleOnsetConfig()
	simple.FrameSize = 0
	if _, err := od.DetectOnsets(signal, 44100, simple); err != nil {
		t.Errorf("simple mode with zero frame size: %v", err)
	}
}

func TestSensitivityToThreshold(t *testing.T) {
	if got := SensitivityToThreshold(0); math.Abs(got-0.0001) > 1e-15 {
		t.Errorf("sensitivity 0 -> %v, want 0.0001", got)
	}
	if got := SensitivityToThreshold(1); math.Abs(got-0.02) > 1e-15 {
		t.Errorf("sensitivity 1 -> %v, want 0.02", got)
	}
	if got, want := SensitivityToThreshold(0.5), 0.0001*math.Sqrt(200); math.Abs(got-want) > 1e-15 {
		t.Errorf("sensitivity 0.5 -> %v, want %v", got, want)
	}

	cfg := DefaultOnsetConfig()
	if cfg.EffectiveThreshold() != cfg.Threshold {
		t.Errorf("without sensitivity the threshold must be used")
	}
	s := 1.0
	cfg.Sensitivity = &s
	if math.Abs(cfg.EffectiveThreshold()-0.02) > 1e-15 {
		t.Errorf("EffectiveThreshold = %v, want 0.02", cfg.EffectiveThreshold())
	}
}

func TestSensitivityControlsDetection(t *testing.T) {
	// gentle rises of 0.01 per hit: only a sensitive detector sees them
	signal := make([]float64, 200)
	for i := 20; i < len(signal); i += 40 {
		signal[i] = 0.01
	}
	signal[len(signal)-1] = 1.0 // peak for normalisation

	od := NewOnsetDetection()
	cfg := DefaultSimpleOnsetConfig()
	cfg.MinGap = 0

	sensitive, insensitive := 0.0, 1.0
	cfg.Sensitivity = &sensitive
	many, err := od.DetectOnsets(signal, 8000, cfg)
	if err != nil {
		t.Fatal(err)
	}

	cfg.Sensitivity = &insensitive
	few, err := od.DetectOnsets(signal, 8000, cfg)
	if err != nil {
		t.Fatal(err)
	}

	if len(many) != 6 || len(few) != 1 {
		t.Errorf("sensitive found %v, insensitive found %v", many, few)
	}
}

func TestOnsetModeText(t *testing.T) {
	for _, mode := range []OnsetMode{OnsetModeSimple, OnsetModeEnergy, OnsetModeMultiFeature} {
		text, err := mode.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var back OnsetMode
		if err := back.UnmarshalText(text); err != nil || back != mode {
			t.Errorf("round trip %v -> %q -> %v (%v)", mode, text, back, err)
		}
	}
	if _, err := ParseOnsetMode("spectral"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("unknown mode err = %v", err)
	}
}

func TestOnsetDensity(t *testing.T) {
	if got := OnsetDensity([]int{1, 2, 3, 4}, 88200, 44100); got != 2 {
		t.Errorf("density = %v, want 2", got)
	}
	if got := OnsetDensity(nil, 0, 44100); got != 0 {
		t.Errorf("density on empty = %v, want 0", got)
	}
}

func TestExtractFeatures(t *testing.T) {
	cfg := threeHitsMultiConfig()
	features, err := NewOnsetDetection().ExtractFeatures(threeHits, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(features) != len(threeHits)-cfg.FrameSize+1 {
		t.Fatalf("frames = %d", len(features))
	}
	f := features[1] // samples 1..4: 0.8 0.5 0.2 0
	if math.Abs(f.Amplitude-0.375) > 1e-12 {
		t.Errorf("amplitude = %v, want 0.375", f.Amplitude)
	}
	if len(f.Magnitudes) != cfg.FrameSize/2+1 {
		t.Errorf("bins = %d", len(f.Magnitudes))
	}
	if f.Start != 1 || f.ZCR != 0 {
		t.Errorf("start=%d zcr=%v", f.Start, f.ZCR)
	}
}
