// Command sonido-beat detects onsets and estimates tempo for audio files and
// prints one JSON report per file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/RyanBlaney/sonido-beat/algorithms/temporal"
	"github.com/RyanBlaney/sonido-beat/analysis"
	"github.com/RyanBlaney/sonido-beat/analysis/config"
	"github.com/RyanBlaney/sonido-beat/logging"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sonido-beat", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: sonido-beat [flags] file...")
		fs.PrintDefaults()
	}

	configPath := fs.String("config", "", "path to a YAML configuration file")
	mode := fs.String("mode", "", "onset mode: simple, energy or multi")
	sensitivity := fs.Float64("sensitivity", 0, "onset sensitivity in [0, 1], overrides the threshold")
	peaks := fs.Bool("peaks", false, "only report local maxima of the onset score")
	refine := fs.Bool("refine", false, "move onsets to the preceding rising zero crossing")
	waveform := fs.Bool("waveform", false, "include a display waveform in each report")
	workers := fs.Int("workers", 0, "files analyzed concurrently (0 keeps the configured value)")
	ffmpeg := fs.Bool("ffmpeg", false, "decode unrecognised formats with ffmpeg")
	logLevel := fs.String("log-level", "", "debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg := config.DefaultAnalysisConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "sonido-beat: %v\n", err)
			return 1
		}
		cfg = loaded
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["mode"] {
		m, err := temporal.ParseOnsetMode(*mode)
		if err != nil {
			fmt.Fprintf(stderr, "sonido-beat: %v\n", err)
			return 2
		}
		applyMode(cfg, m)
	}
	if set["sensitivity"] {
		s := *sensitivity
		cfg.Onset.Sensitivity = &s
	}
	if set["peaks"] {
		cfg.Onset.PeakPicking = *peaks
	}
	if set["refine"] {
		cfg.Onset.ZeroCrossingRefine = *refine
	}
	if set["waveform"] {
		cfg.IncludeWaveform = *waveform
	}
	if set["workers"] && *workers > 0 {
		cfg.Workers = *workers
	}
	if set["ffmpeg"] {
		cfg.Decoder.AllowFFmpeg = *ffmpeg
	}
	if set["log-level"] {
		cfg.LogLevel = *logLevel
	}

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(stderr, "sonido-beat: invalid configuration: %v\n", err)
		return 2
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	logger := logging.NewDefaultLoggerWithWriters(stderr, stderr, false)
	logger.SetLevel(level)
	logging.SetGlobalLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	paths := fs.Args()
	logging.Info("Analyzing files", logging.Fields{
		"files":   len(paths),
		"mode":    cfg.Onset.Mode,
		"workers": cfg.Workers,
	})

	reports, err := analysis.NewAnalyzer(cfg).AnalyzeFiles(ctx, paths)
	if err != nil {
		fmt.Fprintf(stderr, "sonido-beat: %v\n", err)
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	for _, report := range reports {
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(stderr, "sonido-beat: write report: %v\n", err)
			return 1
		}
	}
	return 0
}

// applyMode switches the onset mode. Simple mode has its own threshold and
// gap defaults, so moving into or out of it resets the onset settings.
func applyMode(cfg *config.AnalysisConfig, m temporal.OnsetMode) {
	if m == cfg.Onset.Mode {
		return
	}

	sensitivity := cfg.Onset.Sensitivity
	switch {
	case m == temporal.OnsetModeSimple:
		cfg.Onset = temporal.DefaultSimpleOnsetConfig()
	case cfg.Onset.Mode == temporal.OnsetModeSimple:
		cfg.Onset = temporal.DefaultOnsetConfig()
		cfg.Onset.Mode = m
	default:
		cfg.Onset.Mode = m
	}
	cfg.Onset.Sensitivity = sensitivity
}
