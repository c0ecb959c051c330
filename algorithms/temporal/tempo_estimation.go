package temporal

import (
	"fmt"
	"math"
)

// TempoOptions controls autocorrelation tempo estimation
type TempoOptions struct {
	StartBPM  float64 // center of the log-normal tempo prior
	StdOctave float64 // prior width in octaves
	MaxBPM    float64 // tempi above this are never selected
	MaxLag    int     // autocorrelation length in onset frames
}

// DefaultTempoOptions returns the standard tempo search settings
func DefaultTempoOptions() TempoOptions {
	return TempoOptions{
		StartBPM:  120,
		StdOctave: 1.0,
		MaxBPM:    320,
		MaxLag:    384,
	}
}

// TempoEstimation estimates a global tempo from an onset strength envelope
type TempoEstimation struct {
	onsetDetector *OnsetDetection
}

// NewTempoEstimation creates a new tempo estimator
func NewTempoEstimation() *TempoEstimation {
	return &TempoEstimation{
		onsetDetector: NewOnsetDetection(),
	}
}

// EstimateTempo computes the onset envelope of signal and estimates its tempo
func (te *TempoEstimation) EstimateTempo(signal []float64, sampleRate int, onsetCfg OnsetConfig, opts TempoOptions) (float64, []float64, error) {
	onset, err := te.onsetDetector.OnsetStrength(signal, sampleRate, onsetCfg)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to compute onset strength: %w", err)
	}

	return te.EstimateFromOnsets(onset, sampleRate, onsetCfg.HopSize, opts), onset, nil
}

// EstimateFromOnsets picks the autocorrelation lag maximizing
//
//	log1p(1e6 * ac[lag]) - 0.5 * ((log2(bpm) - log2(StartBPM)) / StdOctave)^2
//
// where bpm = 60 * sampleRate / (hopSize * lag). With no usable lag the
// prior center is returned.
func (te *TempoEstimation) EstimateFromOnsets(onset []float64, sampleRate, hopSize int, opts TempoOptions) float64 {
	if sampleRate <= 0 || hopSize <= 0 {
		return opts.StartBPM
	}

	maxLag := opts.MaxLag
	if maxLag <= 0 || maxLag > len(onset) {
		maxLag = len(onset)
	}
	autocorr := te.calculateAutocorrelation(onset, maxLag)

	framesPerMinute := 60.0 * float64(sampleRate) / float64(hopSize)
	logStart := math.Log2(opts.StartBPM)
	std := opts.StdOctave
	if std <= 0 {
		std = 1.0
	}

	bestScore := math.Inf(-1)
	bestBPM := opts.StartBPM

	for lag := 1; lag < len(autocorr); lag++ {
		bpm := framesPerMinute / float64(lag)
		if opts.MaxBPM > 0 && bpm > opts.MaxBPM {
			continue
		}

		prior := -0.5 * math.Pow((math.Log2(bpm)-logStart)/std, 2)
		score := math.Log1p(1e6*math.Max(autocorr[lag], 0)) + prior
		if score > bestScore {
			bestScore = score
			bestBPM = bpm
		}
	}

	return bestBPM
}

// calculateAutocorrelation returns the autocorrelation for lags [0, maxLag),
// normalized so the zero lag is 1
func (te *TempoEstimation) calculateAutocorrelation(signal []float64, maxLag int) []float64 {
	if maxLag > len(signal) {
		maxLag = len(signal)
	}

	autocorr := make([]float64, maxLag)
	for lag := range maxLag {
		sum := 0.0
		for i := 0; i < len(signal)-lag; i++ {
			sum += signal[i] * signal[i+lag]
		}
		autocorr[lag] = sum
	}

	if len(autocorr) > 0 && autocorr[0] > 0 {
		norm := autocorr[0]
		for i := range autocorr {
			autocorr[i] /= norm
		}
	}

	return autocorr
}
