package config

import (
	"fmt"
	"runtime"

	"github.com/RyanBlaney/sonido-drop/algorithms/windowing"
	"github.com/RyanBlaney/sonido-drop/track"
)

// SpectralConfig controls the spectrogram behind the spectral index
type SpectralConfig struct {
	WindowSize int     `json:"window_size" yaml:"window_size" mapstructure:"window_size"`
	HopSize    int     `json:"hop_size" yaml:"hop_size" mapstructure:"hop_size"`
	TopDB      float64 `json:"top_db" yaml:"top_db" mapstructure:"top_db"` // dynamic range kept below the peak, 0 keeps all
	Amin       float64 `json:"amin" yaml:"amin" mapstructure:"amin"`        // magnitude floor before the log
	Window     string  `json:"window" yaml:"window" mapstructure:"window"`  // hann, hamming, blackman or rectangular
}

// TempoConfig controls beat tracking and tempo canonicalization
type TempoConfig struct {
	FoldThreshold float64 `json:"fold_threshold" yaml:"fold_threshold" mapstructure:"fold_threshold"`
	FoldFastTempo bool    `json:"fold_fast_tempo" yaml:"fold_fast_tempo" mapstructure:"fold_fast_tempo"`
	Tightness     float64 `json:"tightness" yaml:"tightness" mapstructure:"tightness"`
	StartBPM      float64 `json:"start_bpm" yaml:"start_bpm" mapstructure:"start_bpm"`
	StdOctave     float64 `json:"std_octave" yaml:"std_octave" mapstructure:"std_octave"`
	MaxBPM        float64 `json:"max_bpm" yaml:"max_bpm" mapstructure:"max_bpm"`
	MaxLag        int     `json:"max_lag" yaml:"max_lag" mapstructure:"max_lag"`
	HopSize       int     `json:"hop_size" yaml:"hop_size" mapstructure:"hop_size"`
	FFTSize       int     `json:"fft_size" yaml:"fft_size" mapstructure:"fft_size"`
	MelBands      int     `json:"mel_bands" yaml:"mel_bands" mapstructure:"mel_bands"`

	// HintBPM skips tempo estimation when the tempo is already known
	HintBPM *float64 `json:"hint_bpm,omitempty" yaml:"hint_bpm,omitempty" mapstructure:"hint_bpm"`
}

// ProfileConfig selects the band and mode of the energy profile
type ProfileConfig struct {
	Band            string  `json:"band" yaml:"band" mapstructure:"band"`
	Mode            string  `json:"mode" yaml:"mode" mapstructure:"mode"` // "avg" or "peak"
	RateDuration    float64 `json:"rate_duration" yaml:"rate_duration" mapstructure:"rate_duration"`
	RateFrequencies float64 `json:"rate_frequencies" yaml:"rate_frequencies" mapstructure:"rate_frequencies"`

	// Sensitivity is the percentile (0-100) used as the peak threshold.
	// Peak mode refuses to run without it.
	Sensitivity *float64 `json:"sensitivity,omitempty" yaml:"sensitivity,omitempty" mapstructure:"sensitivity"`

	PercentileMethod string `json:"percentile_method" yaml:"percentile_method" mapstructure:"percentile_method"`
}

// AnalysisConfig aggregates the configuration of a full drop analysis
type AnalysisConfig struct {
	Spectral SpectralConfig   `json:"spectral" yaml:"spectral" mapstructure:"spectral"`
	Tempo    TempoConfig      `json:"tempo" yaml:"tempo" mapstructure:"tempo"`
	Profile  ProfileConfig    `json:"profile" yaml:"profile" mapstructure:"profile"`
	Trim     track.TrimConfig `json:"trim" yaml:"trim" mapstructure:"trim"`
	Workers  int              `json:"workers" yaml:"workers" mapstructure:"workers"`
}

// DefaultSpectralConfig returns an 8192-sample window (2048 x 4) with hop 512
func DefaultSpectralConfig() SpectralConfig {
	return SpectralConfig{
		WindowSize: 8192,
		HopSize:    512,
		TopDB:      80.0,
		Amin:       1e-5,
		Window:     "hann",
	}
}

// DefaultTempoConfig returns the beat tracking defaults
func DefaultTempoConfig() TempoConfig {
	return TempoConfig{
		FoldThreshold: 110,
		FoldFastTempo: true,
		Tightness:     100,
		StartBPM:      120,
		StdOctave:     1.0,
		MaxBPM:        320,
		MaxLag:        384,
		HopSize:       512,
		FFTSize:       2048,
		MelBands:      128,
	}
}

// DefaultProfileConfig profiles the bass band in peak mode. Sensitivity is
// deliberately unset.
func DefaultProfileConfig() ProfileConfig {
	return ProfileConfig{
		Band:             "bass",
		Mode:             "peak",
		RateDuration:     1.0 / 16.0,
		RateFrequencies:  1.0 / 12.0,
		PercentileMethod: "linear",
	}
}

// DefaultAnalysisConfig returns defaults for every stage
func DefaultAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		Spectral: DefaultSpectralConfig(),
		Tempo:    DefaultTempoConfig(),
		Profile:  DefaultProfileConfig(),
		Trim:     track.DefaultTrimConfig(),
		Workers:  max(runtime.NumCPU()/2, 1),
	}
}

// Validate checks the numeric settings. Band, mode and sensitivity are
// checked by the profiler, which owns their error types.
func (c *AnalysisConfig) Validate() error {
	if c.Spectral.WindowSize <= 0 || c.Spectral.HopSize <= 0 {
		return fmt.Errorf("spectral window (%d) and hop (%d) must be positive", c.Spectral.WindowSize, c.Spectral.HopSize)
	}
	if c.Spectral.Amin <= 0 {
		return fmt.Errorf("spectral amin must be positive, got %v", c.Spectral.Amin)
	}
	if _, err := windowing.New(c.Spectral.Window, c.Spectral.WindowSize); err != nil {
		return fmt.Errorf("spectral window: %w", err)
	}
	if c.Tempo.FFTSize <= 0 || c.Tempo.HopSize <= 0 || c.Tempo.MelBands <= 0 {
		return fmt.Errorf("tempo fft (%d), hop (%d) and mel bands (%d) must be positive",
			c.Tempo.FFTSize, c.Tempo.HopSize, c.Tempo.MelBands)
	}
	if c.Tempo.FoldThreshold <= 0 || c.Tempo.Tightness <= 0 || c.Tempo.StartBPM <= 0 {
		return fmt.Errorf("tempo fold threshold, tightness and start bpm must be positive")
	}
	if c.Trim.FrameLength <= 0 || c.Trim.HopLength <= 0 {
		return fmt.Errorf("trim frame (%d) and hop (%d) must be positive", c.Trim.FrameLength, c.Trim.HopLength)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}
