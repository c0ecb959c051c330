package temporal

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-drop/algorithms/spectral"
	"github.com/RyanBlaney/sonido-drop/algorithms/windowing"
)

// OnsetConfig controls the onset strength envelope
type OnsetConfig struct {
	FFTSize  int     `json:"fft_size" yaml:"fft_size" mapstructure:"fft_size"`
	HopSize  int     `json:"hop_size" yaml:"hop_size" mapstructure:"hop_size"`
	MelBands int     `json:"mel_bands" yaml:"mel_bands" mapstructure:"mel_bands"`
	TopDB    float64 `json:"top_db" yaml:"top_db" mapstructure:"top_db"`
}

// DefaultOnsetConfig returns the standard onset settings
func DefaultOnsetConfig() OnsetConfig {
	return OnsetConfig{
		FFTSize:  2048,
		HopSize:  512,
		MelBands: 128,
		TopDB:    80,
	}
}

// OnsetDetection computes onset strength envelopes
type OnsetDetection struct {
	stft     *spectral.STFT
	melScale *spectral.MelScale
}

// NewOnsetDetection creates a new onset detector
func NewOnsetDetection() *OnsetDetection {
	return &OnsetDetection{
		stft:     spectral.NewSTFT(),
		melScale: spectral.NewMelScale(),
	}
}

// OnsetStrength computes a spectral-flux onset envelope: the mel power
// spectrogram is converted to dB, the positive first difference along time is
// averaged across mel bands, and the result is delayed so that frame i lines
// up with the centered STFT frame i. The envelope has one value per STFT frame.
func (od *OnsetDetection) OnsetStrength(signal []float64, sampleRate int, cfg OnsetConfig) ([]float64, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if cfg.FFTSize <= 0 || cfg.HopSize <= 0 || cfg.MelBands <= 0 {
		return nil, fmt.Errorf("invalid onset config: fft=%d hop=%d mels=%d", cfg.FFTSize, cfg.HopSize, cfg.MelBands)
	}

	stftResult, err := od.stft.ComputeCentered(signal, cfg.FFTSize, cfg.HopSize, sampleRate,
		windowing.NewPeriodicHann(cfg.FFTSize))
	if err != nil {
		return nil, fmt.Errorf("failed to compute STFT: %w", err)
	}

	mel := od.melScale.MelPowerFrames(stftResult, cfg.MelBands, 0, float64(sampleRate)/2)
	melDB := melToDB(mel, cfg.TopDB)

	numFrames := len(melDB)
	envelope := make([]float64, numFrames)

	// lag-1 difference plus the half-window centering delay
	offset := 1 + cfg.FFTSize/(2*cfg.HopSize)
	for t := 1; t < numFrames; t++ {
		out := t - 1 + offset
		if out >= numFrames {
			break
		}

		sum := 0.0
		for m := range melDB[t] {
			sum += math.Max(0, melDB[t][m]-melDB[t-1][m])
		}
		envelope[out] = sum / float64(len(melDB[t]))
	}

	return envelope, nil
}

// melToDB converts Time x Mel power to dB (ref 1.0) floored at max - topDB
func melToDB(mel [][]float64, topDB float64) [][]float64 {
	var flat []float64
	for _, frame := range mel {
		flat = append(flat, frame...)
	}

	db := spectral.PowerToDB(flat, 1.0, spectral.DefaultPowerAmin, topDB)

	out := make([][]float64, len(mel))
	for t, frame := range mel {
		out[t] = db[t*len(frame) : (t+1)*len(frame)]
	}
	return out
}
