package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-drop/drop"
	"github.com/RyanBlaney/sonido-drop/drop/config"
	"github.com/RyanBlaney/sonido-drop/logging"
	"github.com/RyanBlaney/sonido-drop/store"
	"github.com/RyanBlaney/sonido-drop/track"
	"github.com/RyanBlaney/sonido-drop/transcode"
)

var errPartialFailure = errors.New("some tracks failed")

func (a *app) newAnalyzeCmd() *cobra.Command {
	defaults := config.DefaultAnalysisConfig()

	cmd := &cobra.Command{
		Use:   "analyze FILE...",
		Short: "Profile a frequency band and locate drops",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.analysisConfig()
			if err != nil {
				return err
			}
			if err := applyPointerFlags(cmd, cfg); err != nil {
				return err
			}
			return a.runAnalyze(cmd, cfg, args)
		},
	}

	flags := cmd.Flags()
	flags.String("band", defaults.Profile.Band, "frequency band to profile")
	flags.String("mode", defaults.Profile.Mode, "profile mode: avg or peak")
	flags.Float64("sensitivity", 0, "percentile (0-100) used as the peak threshold; required for peak mode")
	flags.Float64("bpm", 0, "known tempo; skips tempo estimation")
	flags.Float64("rate-duration", defaults.Profile.RateDuration, "fraction of a beat between timestamps")
	flags.Float64("rate-frequencies", defaults.Profile.RateFrequencies, "fraction of the band width per sub-band window")
	flags.String("percentile-method", defaults.Profile.PercentileMethod, "percentile method: linear, lower, higher, midpoint, nearest")
	flags.String("window", defaults.Spectral.Window, "STFT window: hann, hamming, blackman or rectangular")
	flags.Int("workers", defaults.Workers, "tracks analyzed in parallel")
	flags.StringP("format", "f", "text", "output format: text, json or yaml")
	flags.String("db", "", "sqlite file to record reports in")

	// bound per run: format and db are shared keys with other commands
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		a.bindFlags(cmd, map[string]string{
			"profile.band":              "band",
			"profile.mode":              "mode",
			"profile.rate_duration":     "rate-duration",
			"profile.rate_frequencies":  "rate-frequencies",
			"profile.percentile_method": "percentile-method",
			"spectral.window":           "window",
			"workers":                   "workers",
			"format":                    "format",
			"db":                        "db",
		}, false)
	}

	return cmd
}

// applyPointerFlags sets the optional settings only when their flags are
// given, so an absent --sensitivity stays absent
func applyPointerFlags(cmd *cobra.Command, cfg *config.AnalysisConfig) error {
	if cmd.Flags().Changed("sensitivity") {
		v, err := cmd.Flags().GetFloat64("sensitivity")
		if err != nil {
			return err
		}
		cfg.Profile.Sensitivity = &v
	}
	if cmd.Flags().Changed("bpm") {
		v, err := cmd.Flags().GetFloat64("bpm")
		if err != nil {
			return err
		}
		cfg.Tempo.HintBPM = &v
	}
	return nil
}

func (a *app) runAnalyze(cmd *cobra.Command, cfg *config.AnalysisConfig, paths []string) error {
	ctx := cmd.Context()
	logger := logging.WithFields(logging.Fields{"component": "cli", "command": "analyze"})

	format, err := parseFormat(a.v.GetString("format"))
	if err != nil {
		return err
	}

	registry, err := a.bandRegistry()
	if err != nil {
		return err
	}

	analyzer, err := drop.NewAnalyzerWithBands(cfg, registry)
	if err != nil {
		return err
	}

	var history *store.SQLiteStore
	if path := a.v.GetString("db"); path != "" {
		history, err = store.Open(path)
		if err != nil {
			return err
		}
		defer history.Close()
	}

	loader := transcode.NewLoader(nil, cfg.Trim)
	if err := loader.CheckDecoder(paths); err != nil {
		return err
	}

	jobs := make([]drop.Job, len(paths))
	for i, path := range paths {
		jobs[i] = drop.Job{
			Source: path,
			Load: func(ctx context.Context) (*track.Track, error) {
				return loader.Load(ctx, path)
			},
		}
	}

	results := analyzer.AnalyzeBatch(ctx, jobs, cfg.Workers)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		if history != nil {
			if _, err := history.Save(ctx, r.Report); err != nil {
				logger.Error(err, "Failed to record report", logging.Fields{"source": r.Source})
			}
		}
	}

	if err := writeResults(cmd.OutOrStdout(), format, results); err != nil {
		return err
	}

	switch {
	case failed == 0:
		return nil
	case len(paths) == 1:
		return results[0].Err
	default:
		return fmt.Errorf("%w: %d of %d", errPartialFailure, failed, len(paths))
	}
}
