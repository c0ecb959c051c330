package main

import (
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-drop/drop"
	"github.com/RyanBlaney/sonido-drop/transcode"
)

// tempoResult is one line of `tempo` output
type tempoResult struct {
	Source  string   `json:"source" yaml:"source"`
	BPM     float64  `json:"bpm" yaml:"bpm"`
	RawBPM  float64  `json:"raw_bpm" yaml:"raw_bpm"`
	Beats   int      `json:"beats" yaml:"beats"`
	Nearest *float64 `json:"nearest,omitempty" yaml:"nearest,omitempty"`
	Error   string   `json:"error,omitempty" yaml:"error,omitempty"`
}

func (a *app) newTempoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tempo FILE...",
		Short: "Estimate the canonical tempo of tracks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.analysisConfig()
			if err != nil {
				return err
			}
			if err := applyPointerFlags(cmd, cfg); err != nil {
				return err
			}
			format, err := parseFormat(a.v.GetString("format"))
			if err != nil {
				return err
			}

			var reference *float64
			if cmd.Flags().Changed("reference") {
				ref, _ := cmd.Flags().GetFloat64("reference")
				reference = &ref
			}
			if unfolded, _ := cmd.Flags().GetBool("no-fold"); unfolded {
				cfg.Tempo.FoldFastTempo = false
			}

			loader := transcode.NewLoader(nil, cfg.Trim)
			if err := loader.CheckDecoder(args); err != nil {
				return err
			}
			estimator := drop.NewTempoEstimator(cfg.Tempo)

			results := make([]tempoResult, 0, len(args))
			var firstErr error
			for _, path := range args {
				res := tempoResult{Source: path}

				estimate, err := estimateFile(cmd, loader, estimator, path, cfg.Tempo.HintBPM)
				if err != nil {
					res.Error = err.Error()
					if firstErr == nil {
						firstErr = err
					}
				} else {
					res.BPM, res.RawBPM, res.Beats = estimate.BPM, estimate.RawBPM, len(estimate.BeatFrames)
					if reference != nil {
						nearest := drop.NearestOctave(estimate.BPM, *reference)
						res.Nearest = &nearest
					}
				}
				results = append(results, res)
			}

			if err := writeTempo(cmd.OutOrStdout(), format, results); err != nil {
				return err
			}
			return firstErr
		},
	}

	flags := cmd.Flags()
	flags.Float64("bpm", 0, "known tempo; only folded and used to seed beat tracking")
	flags.Float64("reference", 0, "report the octave of the estimate closest to this tempo")
	flags.Bool("no-fold", false, "round the tempo without halving fast tempos")
	flags.StringP("format", "f", "text", "output format: text, json or yaml")

	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		a.bindFlags(cmd, map[string]string{"format": "format"}, false)
	}

	return cmd
}

func estimateFile(cmd *cobra.Command, loader *transcode.Loader, estimator *drop.TempoEstimator, path string, hint *float64) (*drop.TempoEstimate, error) {
	t, err := loader.Load(cmd.Context(), path)
	if err != nil {
		return nil, err
	}
	return estimator.Estimate(t, hint)
}
