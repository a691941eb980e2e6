package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/RyanBlaney/sonido-beat/algorithms/temporal"
)

func TestDefaultAnalysisConfigIsValid(t *testing.T) {
	cfg := DefaultAnalysisConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Workers < 1 {
		t.Errorf("workers = %d", cfg.Workers)
	}
	if cfg.Onset.Mode != temporal.OnsetModeMultiFeature || !cfg.EnableTempo {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFromReaderMergesDefaults(t *testing.T) {
	doc := `
workers: 2
log_level: debug
include_waveform: true
onset:
  mode: energy
  frame_size: 512
  sensitivity: 0.5
tempo:
  window_duration: 0.1
decoder:
  allow_ffmpeg: true
  timeout: 10s
`
	cfg, err := LoadFromReader(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Workers != 2 || cfg.LogLevel != "debug" || !cfg.IncludeWaveform {
		t.Errorf("top-level fields = %+v", cfg)
	}
	if cfg.Onset.Mode != temporal.OnsetModeEnergy || cfg.Onset.FrameSize != 512 {
		t.Errorf("onset = %+v", cfg.Onset)
	}
	// untouched keys keep their defaults
	if cfg.Onset.HopSize != 256 || cfg.Tempo.PeakRatio != 0.6 || !cfg.EnableTempo {
		t.Errorf("defaults lost: onset=%+v tempo=%+v", cfg.Onset, cfg.Tempo)
	}
	if cfg.Onset.Sensitivity == nil || *cfg.Onset.Sensitivity != 0.5 {
		t.Errorf("sensitivity = %v", cfg.Onset.Sensitivity)
	}
	if cfg.Tempo.WindowDuration != 0.1 {
		t.Errorf("window duration = %v", cfg.Tempo.WindowDuration)
	}
	if !cfg.Decoder.AllowFFmpeg || cfg.Decoder.Timeout != 10*time.Second || cfg.Decoder.FFmpegPath != "ffmpeg" {
		t.Errorf("decoder = %+v", cfg.Decoder)
	}
}

func TestLoadFromReaderEmptyDocument(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Onset.FrameSize != 1024 {
		t.Errorf("frame size = %d, want default", cfg.Onset.FrameSize)
	}
}

func TestLoadFromReaderRejectsUnknownKeys(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("onset:\n  frame_sise: 512\n"))
	if err == nil {
		t.Fatal("expected an error for a misspelled key")
	}
}

func TestLoadFromReaderRejectsBadMode(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("onset:\n  mode: spectral\n"))
	if err == nil {
		t.Fatal("expected an error for an unknown mode")
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := DefaultAnalysisConfig()
	cfg.Onset.HopSize = 0
	cfg.Tempo.WindowDuration = -1
	cfg.Workers = 0
	cfg.LogLevel = "chatty"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	if !errors.Is(err, temporal.ErrInvalidConfig) {
		t.Errorf("err = %v, want it to wrap ErrInvalidConfig", err)
	}
	for _, want := range []string{"onset:", "tempo:", "workers", "log level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}

	if Validate(nil) == nil {
		t.Error("nil config should not validate")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beat.yaml")
	if err := os.WriteFile(path, []byte("workers: 3\nenable_tempo: false\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 3 || cfg.EnableTempo {
		t.Errorf("cfg = %+v", cfg)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file err = %v", err)
	}
}
