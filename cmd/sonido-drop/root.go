package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/sonido-drop/drop"
	"github.com/RyanBlaney/sonido-drop/drop/config"
	"github.com/RyanBlaney/sonido-drop/logging"
)

const envPrefix = "SONIDO_DROP"

// configKeys are the settings reachable from the config file and the
// environment (SONIDO_DROP_PROFILE_BAND, SONIDO_DROP_WORKERS, ...)
var configKeys = []string{
	"spectral.window_size", "spectral.hop_size", "spectral.top_db", "spectral.amin", "spectral.window",
	"tempo.fold_threshold", "tempo.fold_fast_tempo", "tempo.tightness", "tempo.start_bpm",
	"tempo.std_octave", "tempo.max_bpm", "tempo.max_lag", "tempo.hop_size", "tempo.fft_size",
	"tempo.mel_bands", "tempo.hint_bpm",
	"profile.band", "profile.mode", "profile.rate_duration", "profile.rate_frequencies",
	"profile.sensitivity", "profile.percentile_method",
	"trim.frame_length", "trim.hop_length", "trim.top_db",
	"workers", "db", "bands_file", "format", "log_level", "log_format",
}

// app carries the per-invocation viper instance shared by all commands
type app struct {
	v *viper.Viper
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "sonido-drop",
		Short:         "Locate drops in electronic music tracks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initConfig(cmd); err != nil {
				return err
			}
			return a.setupLogging(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (yaml)")
	flags.String("log-level", "warn", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")
	flags.Bool("no-color", false, "disable colored output")
	flags.String("bands-file", "", "yaml file with extra frequency bands")

	a.bindFlags(root, map[string]string{
		"log_level":  "log-level",
		"log_format": "log-format",
		"bands_file": "bands-file",
	}, true)

	root.AddCommand(
		a.newAnalyzeCmd(),
		a.newTempoCmd(),
		a.newBandsCmd(),
		a.newHistoryCmd(),
	)

	return root
}

// bindFlags ties viper keys to flags of cmd
func (a *app) bindFlags(cmd *cobra.Command, keys map[string]string, persistent bool) {
	flags := cmd.Flags()
	if persistent {
		flags = cmd.PersistentFlags()
	}
	for key, name := range keys {
		if err := a.v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", name, err))
		}
	}
}

func (a *app) initConfig(cmd *cobra.Command) error {
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()
	for _, key := range configKeys {
		if err := a.v.BindEnv(key); err != nil {
			return err
		}
	}

	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return nil
	}

	a.v.SetConfigFile(path)
	if err := a.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return nil
}

func (a *app) setupLogging(cmd *cobra.Command) error {
	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		color.NoColor = true
	}

	level, err := logrus.ParseLevel(a.v.GetString("log_level"))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	base := logrus.New()
	base.SetOutput(os.Stderr)
	base.SetLevel(level)

	switch format := a.v.GetString("log_format"); format {
	case "json":
		base.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		base.SetFormatter(&logrus.TextFormatter{
			DisableColors: color.NoColor,
			FullTimestamp: true,
		})
	default:
		return fmt.Errorf("invalid log format %q (want text or json)", format)
	}

	logging.SetGlobalLogger(logging.NewLogrusLogger(base))
	return nil
}

// analysisConfig overlays the config file, environment and bound flags on
// the defaults
func (a *app) analysisConfig() (*config.AnalysisConfig, error) {
	cfg := config.DefaultAnalysisConfig()
	if err := a.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return cfg, nil
}

// bandRegistry returns the predefined bands plus those of --bands-file
func (a *app) bandRegistry() (*drop.BandRegistry, error) {
	path := a.v.GetString("bands_file")
	if path == "" {
		return drop.DefaultBands, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bands file: %w", err)
	}
	defer f.Close()

	registry := drop.NewBandRegistry()
	if _, err := registry.LoadBands(f); err != nil {
		return nil, fmt.Errorf("failed to load bands from %s: %w", path, err)
	}
	return registry, nil
}

// exitCode maps the pipeline's error kinds to process exit codes
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errPartialFailure):
		return 2
	default:
		return 1
	}
}
