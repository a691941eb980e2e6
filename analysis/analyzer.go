package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-beat/algorithms/temporal"
	"github.com/RyanBlaney/sonido-beat/analysis/config"
	"github.com/RyanBlaney/sonido-beat/logging"
	"github.com/RyanBlaney/sonido-beat/transcode"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Report is the result of analyzing one buffer
type Report struct {
	ID           string                  `json:"id"`
	Source       string                  `json:"source,omitempty"`
	SampleRate   int                     `json:"sample_rate"`
	NumSamples   int                     `json:"num_samples"`
	Duration     time.Duration           `json:"duration"`
	Mode         temporal.OnsetMode      `json:"mode"`
	Onsets       []int                   `json:"onsets"`
	OnsetTimes   []float64               `json:"onset_times"` // Seconds
	OnsetDensity float64                 `json:"onset_density"`
	Segments     []Segment               `json:"segments"`
	Tempo        *temporal.TempoEstimate `json:"tempo"` // nil when undetermined
	Waveform     []float64               `json:"waveform,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
}

// Analyzer runs onset detection and tempo estimation over decoded audio
type Analyzer struct {
	config         *config.AnalysisConfig
	decoder        *transcode.Decoder
	onsetDetector  *temporal.OnsetDetection
	tempoEstimator *temporal.TempoEstimation
	envelope       *temporal.Envelope
	logger         logging.Logger
}

// NewAnalyzer creates a new analyzer with configuration
func NewAnalyzer(cfg *config.AnalysisConfig) *Analyzer {
	if cfg == nil {
		cfg = config.DefaultAnalysisConfig()
	}

	logger := logging.WithFields(logging.Fields{
		"component": "beat_analyzer",
	})

	return &Analyzer{
		config:         cfg,
		decoder:        transcode.NewDecoder(&cfg.Decoder),
		onsetDetector:  temporal.NewOnsetDetection(),
		tempoEstimator: temporal.NewTempoEstimation(),
		envelope:       temporal.NewEnvelope(),
		logger:         logger,
	}
}

// Analyze detects onsets and estimates tempo for one mono buffer
func (a *Analyzer) Analyze(ctx context.Context, audioData *transcode.AudioData) (*Report, error) {
	if audioData == nil {
		return nil, errors.New("audio data cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := a.logger.WithContext(ctx).WithFields(logging.Fields{
		"function":    "Analyze",
		"sample_rate": audioData.SampleRate,
		"samples":     len(audioData.PCM),
		"mode":        a.config.Onset.Mode,
	})

	logger.Debug("Starting beat analysis")

	onsets, err := a.onsetDetector.DetectOnsets(audioData.PCM, audioData.SampleRate, a.config.Onset)
	if err != nil {
		logger.Error(err, "Onset detection failed")
		return nil, fmt.Errorf("detect onsets: %w", err)
	}

	var tempo *temporal.TempoEstimate
	if a.config.EnableTempo {
		tempo, err = a.tempoEstimator.EstimateTempoWithConfig(audioData.PCM, audioData.SampleRate, a.config.Tempo)
		if err != nil {
			logger.Error(err, "Tempo estimation failed")
			return nil, fmt.Errorf("estimate tempo: %w", err)
		}
	}

	report := &Report{
		ID:           uuid.NewString(),
		Source:       sourceOf(audioData),
		SampleRate:   audioData.SampleRate,
		NumSamples:   len(audioData.PCM),
		Duration:     calculateDuration(audioData),
		Mode:         a.config.Onset.Mode,
		Onsets:       onsets,
		OnsetTimes:   onsetTimes(onsets, audioData.SampleRate),
		OnsetDensity: temporal.OnsetDensity(onsets, len(audioData.PCM), audioData.SampleRate),
		Segments:     Segments(onsets, len(audioData.PCM)),
		Tempo:        tempo,
		CreatedAt:    time.Now(),
	}

	if a.config.IncludeWaveform {
		report.Waveform = a.envelope.ComputeDisplay(audioData.PCM, audioData.SampleRate)
	}

	fields := logging.Fields{
		"report_id": report.ID,
		"onsets":    len(onsets),
	}
	if tempo != nil {
		fields["bpm"] = tempo.BPM
	}
	logger.Debug("Beat analysis completed", fields)

	return report, nil
}

// AnalyzeFile decodes a file with the configured decoder and analyzes it
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*Report, error) {
	audioData, err := a.decoder.DecodeFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	report, err := a.Analyze(ctx, audioData)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", path, err)
	}
	if report.Source == "" {
		report.Source = path
	}
	return report, nil
}

// AnalyzeBatch analyzes buffers concurrently, at most config.Workers at a
// time. Reports come back in input order; the first failure cancels the rest.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, buffers []*transcode.AudioData) ([]*Report, error) {
	return a.runBatch(ctx, len(buffers), func(ctx context.Context, i int) (*Report, error) {
		report, err := a.Analyze(ctx, buffers[i])
		if err != nil {
			return nil, fmt.Errorf("buffer %d: %w", i, err)
		}
		return report, nil
	})
}

// AnalyzeFiles decodes and analyzes files concurrently, preserving order
func (a *Analyzer) AnalyzeFiles(ctx context.Context, paths []string) ([]*Report, error) {
	return a.runBatch(ctx, len(paths), func(ctx context.Context, i int) (*Report, error) {
		return a.AnalyzeFile(ctx, paths[i])
	})
}

func (a *Analyzer) runBatch(ctx context.Context, n int, analyze func(context.Context, int) (*Report, error)) ([]*Report, error) {
	reports := make([]*Report, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, a.config.Workers))

	for i := range n {
		g.Go(func() error {
			report, err := analyze(gctx, i)
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		a.logger.Error(err, "Batch analysis failed", logging.Fields{"items": n})
		return nil, err
	}
	return reports, nil
}

// GetConfig returns the analyzer configuration
func (a *Analyzer) GetConfig() *config.AnalysisConfig {
	return a.config
}
