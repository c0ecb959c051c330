package drop

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-drop/algorithms/common"
	"github.com/RyanBlaney/sonido-drop/algorithms/spectral"
	"github.com/RyanBlaney/sonido-drop/algorithms/temporal"
	"github.com/RyanBlaney/sonido-drop/drop/config"
	"github.com/RyanBlaney/sonido-drop/logging"
	"github.com/RyanBlaney/sonido-drop/track"
)

// TempoEstimate is the canonical tempo of a track and its beat positions
type TempoEstimate struct {
	BPM        float64 `json:"bpm" yaml:"bpm"`
	RawBPM     float64 `json:"raw_bpm" yaml:"raw_bpm"`
	BeatFrames []int   `json:"beat_frames" yaml:"beat_frames"`
	Hinted     bool    `json:"hinted" yaml:"hinted"`

	SampleRate int `json:"sample_rate" yaml:"sample_rate"`
	HopSize    int `json:"hop_size" yaml:"hop_size"`
}

// BeatTimes converts BeatFrames to seconds
func (e *TempoEstimate) BeatTimes() []float64 {
	if e.SampleRate <= 0 {
		return []float64{}
	}
	return spectral.FramesToTime(e.BeatFrames, e.SampleRate, e.HopSize)
}

// BeatDuration returns the length of one beat in seconds
func (e *TempoEstimate) BeatDuration() float64 {
	return 60.0 / e.BPM
}

// Canonicalize halves bpm while it exceeds threshold, then rounds half to
// even. Applying it to its own result changes nothing.
func Canonicalize(bpm, threshold float64) float64 {
	if math.IsInf(bpm, 0) || math.IsNaN(bpm) || threshold <= 0 {
		return bpm
	}
	for bpm > threshold {
		bpm /= 2
	}
	return common.RoundHalfEven(bpm)
}

// NearestOctave returns whichever of round(bpm/2), round(bpm) and
// round(2*bpm) lies closest to reference; ties go to the slower tempo
func NearestOctave(bpm, reference float64) float64 {
	candidates := []float64{
		common.RoundHalfEven(bpm / 2),
		common.RoundHalfEven(bpm),
		common.RoundHalfEven(2 * bpm),
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if math.Abs(c-reference) < math.Abs(best-reference) {
			best = c
		}
	}
	return best
}

// TempoEstimator tracks beats on a track's mono waveform
type TempoEstimator struct {
	cfg    config.TempoConfig
	tempo  *temporal.TempoEstimation
	beats  *temporal.BeatTracker
	logger logging.Logger
}

// NewTempoEstimator creates a tempo estimator
func NewTempoEstimator(cfg config.TempoConfig) *TempoEstimator {
	return &TempoEstimator{
		cfg:   cfg,
		tempo: temporal.NewTempoEstimation(),
		beats: temporal.NewBeatTracker(),
		logger: logging.WithFields(logging.Fields{
			"component": "tempo_estimator",
		}),
	}
}

// Estimate runs beat tracking over the track's mono waveform. A non-nil
// hintBPM replaces the estimated tempo and seeds the beat tracker. The
// resulting tempo is folded below the configured threshold (when enabled)
// and rounded; beat frames keep the resolution of the unfolded tempo.
func (te *TempoEstimator) Estimate(t *track.Track, hintBPM *float64) (*TempoEstimate, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if hintBPM != nil && (*hintBPM <= 0 || math.IsNaN(*hintBPM) || math.IsInf(*hintBPM, 0)) {
		return nil, fmt.Errorf("%w: tempo hint %v", ErrInvalidParameter, *hintBPM)
	}

	onsetCfg := temporal.OnsetConfig{
		FFTSize:  te.cfg.FFTSize,
		HopSize:  te.cfg.HopSize,
		MelBands: te.cfg.MelBands,
		TopDB:    spectral.DefaultTopDB,
	}

	onset, err := temporal.NewOnsetDetection().OnsetStrength(t.Mono(), t.SampleRate(), onsetCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to compute onset strength: %w", err)
	}

	var raw float64
	if hintBPM != nil {
		raw = *hintBPM
	} else {
		raw = te.tempo.EstimateFromOnsets(onset, t.SampleRate(), te.cfg.HopSize, temporal.TempoOptions{
			StartBPM:  te.cfg.StartBPM,
			StdOctave: te.cfg.StdOctave,
			MaxBPM:    te.cfg.MaxBPM,
			MaxLag:    te.cfg.MaxLag,
		})
	}

	beats, err := te.beats.TrackBeats(onset, raw, t.SampleRate(), te.cfg.HopSize, te.cfg.Tightness)
	if err != nil {
		return nil, fmt.Errorf("failed to track beats: %w", err)
	}

	bpm := common.RoundHalfEven(raw)
	if te.cfg.FoldFastTempo {
		bpm = Canonicalize(raw, te.cfg.FoldThreshold)
	}

	te.logger.Debug("Tempo estimated", logging.Fields{
		"raw_bpm": raw,
		"bpm":     bpm,
		"beats":   len(beats),
		"hinted":  hintBPM != nil,
	})

	return &TempoEstimate{
		BPM:        bpm,
		RawBPM:     raw,
		BeatFrames: beats,
		Hinted:     hintBPM != nil,
		SampleRate: t.SampleRate(),
		HopSize:    te.cfg.HopSize,
	}, nil
}
