package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/RyanBlaney/sonido-beat/algorithms/temporal"
	"github.com/RyanBlaney/sonido-beat/logging"
	"github.com/RyanBlaney/sonido-beat/transcode"
	"gopkg.in/yaml.v3"
)

// AnalysisConfig holds everything the analyzer and its decoder need
type AnalysisConfig struct {
	Onset   temporal.OnsetConfig    `json:"onset" yaml:"onset"`
	Tempo   temporal.TempoConfig    `json:"tempo" yaml:"tempo"`
	Decoder transcode.DecoderConfig `json:"decoder" yaml:"decoder"`

	// Feature selection
	EnableTempo     bool `json:"enable_tempo" yaml:"enable_tempo"`
	IncludeWaveform bool `json:"include_waveform" yaml:"include_waveform"`

	// Workers bounds how many buffers a batch analyzes at once
	Workers  int    `json:"workers" yaml:"workers"`
	LogLevel string `json:"log_level" yaml:"log_level"`
}

// DefaultAnalysisConfig returns default analysis configuration
func DefaultAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		Onset:           temporal.DefaultOnsetConfig(),
		Tempo:           temporal.DefaultTempoConfig(),
		Decoder:         *transcode.DefaultDecoderConfig(),
		EnableTempo:     true,
		IncludeWaveform: false,
		Workers:         runtime.NumCPU(),
		LogLevel:        "info",
	}
}

// Load reads the YAML configuration file at path on top of the defaults
// and validates the result
func Load(path string) (*AnalysisConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Keys absent from the document keep their default values.
func LoadFromReader(r io.Reader) (*AnalysisConfig, error) {
	cfg := DefaultAnalysisConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *AnalysisConfig) error {
	if cfg == nil {
		return errors.New("config: nil configuration")
	}

	var errs []error
	if err := cfg.Onset.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("onset: %w", err))
	}
	if err := cfg.Tempo.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tempo: %w", err))
	}
	if err := cfg.Decoder.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("decoder: %w", err))
	}
	if cfg.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", cfg.Workers))
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
