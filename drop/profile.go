package drop

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-drop/algorithms/common"
	"github.com/RyanBlaney/sonido-drop/algorithms/stats"
	"github.com/RyanBlaney/sonido-drop/drop/config"
	"github.com/RyanBlaney/sonido-drop/logging"
)

// Mode selects the shape of an energy profile
type Mode string

const (
	ModeAverage Mode = "avg"
	ModePeak    Mode = "peak"
)

// ParseMode validates a mode name
func ParseMode(name string) (Mode, error) {
	switch Mode(name) {
	case ModeAverage, ModePeak:
		return Mode(name), nil
	default:
		return "", fmt.Errorf("%w: %q (want %q or %q)", ErrInvalidMode, name, ModeAverage, ModePeak)
	}
}

// EnergyProfile is either an *AverageEnergy or an *ActivitySequence
type EnergyProfile interface {
	Mode() Mode
	energyProfile()
}

// AverageEnergy is the result of an avg-mode profile
type AverageEnergy struct {
	Band       FrequencyBand `json:"band" yaml:"band"`
	Timestamps []float64     `json:"timestamps" yaml:"timestamps"`
	Levels     []float64     `json:"levels" yaml:"levels"`
	MeanLevel  float64       `json:"mean_level" yaml:"mean_level"`
}

// ActivitySequence is the result of a peak-mode profile: Activity[i] is 1
// when Levels[i] reaches the Sensitivity-th percentile of all levels
type ActivitySequence struct {
	Band        FrequencyBand `json:"band" yaml:"band"`
	Timestamps  []float64     `json:"timestamps" yaml:"timestamps"`
	Levels      []float64     `json:"levels" yaml:"levels"`
	Activity    []int         `json:"activity" yaml:"activity"`
	Sensitivity float64       `json:"sensitivity" yaml:"sensitivity"`
	Threshold   float64       `json:"threshold" yaml:"threshold"`
}

func (*AverageEnergy) Mode() Mode        { return ModeAverage }
func (*AverageEnergy) energyProfile()    {}
func (*ActivitySequence) Mode() Mode     { return ModePeak }
func (*ActivitySequence) energyProfile() {}

// ProfileRequest describes one profiling pass
type ProfileRequest struct {
	Band            string
	Mode            string
	RateDuration    float64 // fraction of a beat between timestamps
	RateFrequencies float64 // fraction of the band width per sub-band window
	Sensitivity     *float64
}

// RequestFromConfig builds a request from profile configuration
func RequestFromConfig(cfg config.ProfileConfig) ProfileRequest {
	return ProfileRequest{
		Band:            cfg.Band,
		Mode:            cfg.Mode,
		RateDuration:    cfg.RateDuration,
		RateFrequencies: cfg.RateFrequencies,
		Sensitivity:     cfg.Sensitivity,
	}
}

// EnergyProfiler samples a SpectralIndex across one frequency band at fixed
// sub-beat intervals
type EnergyProfiler struct {
	index       *SpectralIndex
	bands       *BandRegistry
	percentiles *stats.Percentiles
	logger      logging.Logger
}

// NewEnergyProfiler creates a profiler over index. A nil registry uses
// DefaultBands.
func NewEnergyProfiler(index *SpectralIndex, bands *BandRegistry) *EnergyProfiler {
	return NewEnergyProfilerWithMethod(index, bands, stats.Linear)
}

// NewEnergyProfilerWithMethod creates a profiler with a specific percentile method
func NewEnergyProfilerWithMethod(index *SpectralIndex, bands *BandRegistry, method stats.PercentileMethod) *EnergyProfiler {
	if bands == nil {
		bands = DefaultBands
	}
	return &EnergyProfiler{
		index:       index,
		bands:       bands,
		percentiles: stats.NewPercentilesWithMethod(method),
		logger: logging.WithFields(logging.Fields{
			"component": "energy_profiler",
		}),
	}
}

// Profile validates the request and dispatches on its mode. Checks run in
// order: band, mode, sensitivity, numeric parameters.
func (p *EnergyProfiler) Profile(tempo *TempoEstimate, req ProfileRequest) (EnergyProfile, error) {
	if _, err := p.bands.Lookup(req.Band); err != nil {
		return nil, err
	}

	mode, err := ParseMode(req.Mode)
	if err != nil {
		return nil, err
	}

	if mode == ModePeak {
		return p.Activity(tempo, req.Band, req.RateDuration, req.RateFrequencies, req.Sensitivity)
	}
	return p.Average(tempo, req.Band, req.RateDuration, req.RateFrequencies)
}

// Average returns the mean of the per-timestamp band levels
func (p *EnergyProfiler) Average(tempo *TempoEstimate, bandName string, rateDuration, rateFrequencies float64) (*AverageEnergy, error) {
	band, err := p.bands.Lookup(bandName)
	if err != nil {
		return nil, err
	}

	timestamps, levels, err := p.bandLevels(tempo, band, rateDuration, rateFrequencies)
	if err != nil {
		return nil, err
	}

	return &AverageEnergy{
		Band:       band,
		Timestamps: timestamps,
		Levels:     levels,
		MeanLevel:  common.Mean(levels),
	}, nil
}

// Activity classifies each timestamp as active (1) when its band level is at
// or above the sensitivity-th percentile of all levels. sensitivity is
// required; nil fails with ErrSensitivityRequired.
func (p *EnergyProfiler) Activity(tempo *TempoEstimate, bandName string, rateDuration, rateFrequencies float64, sensitivity *float64) (*ActivitySequence, error) {
	band, err := p.bands.Lookup(bandName)
	if err != nil {
		return nil, err
	}
	if sensitivity == nil {
		return nil, ErrSensitivityRequired
	}
	if s := *sensitivity; math.IsNaN(s) || s < 0 || s > 100 {
		return nil, fmt.Errorf("%w: sensitivity %v outside [0, 100]", ErrInvalidParameter, s)
	}

	timestamps, levels, err := p.bandLevels(tempo, band, rateDuration, rateFrequencies)
	if err != nil {
		return nil, err
	}

	threshold, err := p.percentiles.CalculatePercentile(levels, *sensitivity)
	if err != nil {
		return nil, fmt.Errorf("failed to compute sensitivity threshold: %w", err)
	}

	activity := make([]int, len(levels))
	active := 0
	for i, level := range levels {
		if level >= threshold {
			activity[i] = 1
			active++
		}
	}

	p.logger.Debug("Activity profiled", logging.Fields{
		"band":        band.Name,
		"timestamps":  len(timestamps),
		"active":      active,
		"threshold":   threshold,
		"sensitivity": *sensitivity,
	})

	return &ActivitySequence{
		Band:        band,
		Timestamps:  timestamps,
		Levels:      levels,
		Activity:    activity,
		Sensitivity: *sensitivity,
		Threshold:   threshold,
	}, nil
}

// bandLevels samples the band at every timestamp. Timestamps step by
// beat*rateDuration over [0, duration). The band is cut into windows of
// ceil(width*rateFrequencies) Hz; each window contributes the mean of the
// levels at its start and midpoint, and a timestamp's level is the mean
// over windows.
func (p *EnergyProfiler) bandLevels(tempo *TempoEstimate, band FrequencyBand, rateDuration, rateFrequencies float64) ([]float64, []float64, error) {
	if p.index == nil {
		return nil, nil, fmt.Errorf("%w: no spectral index", ErrInvalidTrack)
	}
	if tempo == nil || !(tempo.BPM > 0) || math.IsInf(tempo.BPM, 0) {
		return nil, nil, fmt.Errorf("%w: tempo must be positive", ErrInvalidParameter)
	}
	if !(rateDuration > 0) || !(rateFrequencies > 0) || math.IsInf(rateDuration, 0) || math.IsInf(rateFrequencies, 0) {
		return nil, nil, fmt.Errorf("%w: rates must be positive (duration %v, frequencies %v)",
			ErrInvalidParameter, rateDuration, rateFrequencies)
	}

	interval := tempo.BeatDuration() * rateDuration
	timestamps := common.Arange(0, p.index.TrackDuration(), interval)

	step := math.Ceil((band.StopHz - band.StartHz) * rateFrequencies)
	windows := common.Arange(band.StartHz, band.StopHz, step)
	if len(windows) == 0 {
		return nil, nil, fmt.Errorf("%w: band %q yields no windows", ErrInvalidParameter, band.Name)
	}

	levels := make([]float64, len(timestamps))
	for i, ts := range timestamps {
		sum := 0.0
		for _, f := range windows {
			sum += (p.index.LookupDB(ts, f) + p.index.LookupDB(ts, f+step/2)) / 2
		}
		levels[i] = sum / float64(len(windows))
	}

	return timestamps, levels, nil
}
