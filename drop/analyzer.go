package drop

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/RyanBlaney/sonido-drop/algorithms/stats"
	"github.com/RyanBlaney/sonido-drop/drop/config"
	"github.com/RyanBlaney/sonido-drop/logging"
	"github.com/RyanBlaney/sonido-drop/track"
)

// Report is the outcome of analyzing one track
type Report struct {
	Source         string           `json:"source" yaml:"source"`
	Duration       float64          `json:"duration" yaml:"duration"`
	SampleRate     int              `json:"sample_rate" yaml:"sample_rate"`
	Channels       int              `json:"channels" yaml:"channels"`
	TrimmedSeconds float64          `json:"trimmed_seconds" yaml:"trimmed_seconds"`
	Tempo          *TempoEstimate   `json:"tempo" yaml:"tempo"`
	Band           FrequencyBand    `json:"band" yaml:"band"`
	Mode           Mode             `json:"mode" yaml:"mode"`
	Sensitivity    *float64         `json:"sensitivity,omitempty" yaml:"sensitivity,omitempty"`
	MeanLevel      *float64         `json:"mean_level,omitempty" yaml:"mean_level,omitempty"`
	Events         []float64        `json:"events" yaml:"events"`
	Limits         []float64        `json:"limits" yaml:"limits"`
	Segments       []DetectionEvent `json:"segments" yaml:"segments"`
	Drop           *float64         `json:"drop,omitempty" yaml:"drop,omitempty"`
	AnalyzedAt     time.Time        `json:"analyzed_at" yaml:"analyzed_at"`
}

// Analyzer runs the full pipeline: spectral index and tempo, then the band
// profile, then transient location
type Analyzer struct {
	cfg    *config.AnalysisConfig
	bands  *BandRegistry
	method stats.PercentileMethod
	tempo  *TempoEstimator
	events *TransientLocator
	logger logging.Logger
}

// NewAnalyzer creates an analyzer using DefaultBands. A nil config uses
// DefaultAnalysisConfig.
func NewAnalyzer(cfg *config.AnalysisConfig) (*Analyzer, error) {
	return NewAnalyzerWithBands(cfg, DefaultBands)
}

// NewAnalyzerWithBands creates an analyzer resolving bands from registry
func NewAnalyzerWithBands(cfg *config.AnalysisConfig, registry *BandRegistry) (*Analyzer, error) {
	if cfg == nil {
		cfg = config.DefaultAnalysisConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	if registry == nil {
		registry = DefaultBands
	}

	method, err := stats.ParsePercentileMethod(cfg.Profile.PercentileMethod)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}

	return &Analyzer{
		cfg:    cfg,
		bands:  registry,
		method: method,
		tempo:  NewTempoEstimator(cfg.Tempo),
		events: NewTransientLocator(),
		logger: logging.WithFields(logging.Fields{
			"component": "analyzer",
		}),
	}, nil
}

// Config returns the analyzer configuration
func (a *Analyzer) Config() *config.AnalysisConfig {
	return a.cfg
}

// Analyze runs the pipeline on t with the configured tempo hint
func (a *Analyzer) Analyze(ctx context.Context, t *track.Track) (*Report, error) {
	return a.AnalyzeSource(ctx, "", t, a.cfg.Tempo.HintBPM)
}

// AnalyzeSource runs the pipeline on t, labelling the report with source.
// A non-nil hintBPM overrides the configured hint.
func (a *Analyzer) AnalyzeSource(ctx context.Context, source string, t *track.Track, hintBPM *float64) (*Report, error) {
	logger := a.logger.WithFields(logging.Fields{"source": source})

	if err := t.Validate(); err != nil {
		return nil, err
	}

	// Fail on request errors before the expensive stages
	req := RequestFromConfig(a.cfg.Profile)
	band, err := a.bands.Lookup(req.Band)
	if err != nil {
		return nil, err
	}
	mode, err := ParseMode(req.Mode)
	if err != nil {
		return nil, err
	}
	if mode == ModePeak && req.Sensitivity == nil {
		return nil, ErrSensitivityRequired
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	index, err := NewSpectralIndex(t, a.cfg.Spectral)
	if err != nil {
		return nil, fmt.Errorf("failed to build spectral index: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tempo, err := a.tempo.Estimate(t, hintBPM)
	if err != nil {
		return nil, fmt.Errorf("failed to estimate tempo: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	profiler := NewEnergyProfilerWithMethod(index, a.bands, a.method)
	profile, err := profiler.Profile(tempo, req)
	if err != nil {
		return nil, fmt.Errorf("failed to profile band %q: %w", band.Name, err)
	}

	report := &Report{
		Source:         source,
		Duration:       t.Duration(),
		SampleRate:     t.SampleRate(),
		Channels:       t.Channels(),
		TrimmedSeconds: float64(t.TrimmedSamples()) / float64(t.SampleRate()),
		Tempo:          tempo,
		Band:           band,
		Mode:           mode,
		Events:         []float64{},
		Limits:         []float64{},
		Segments:       []DetectionEvent{},
		AnalyzedAt:     time.Now().UTC(),
	}

	switch p := profile.(type) {
	case *AverageEnergy:
		mean := p.MeanLevel
		report.MeanLevel = &mean

	case *ActivitySequence:
		sensitivity := p.Sensitivity
		report.Sensitivity = &sensitivity

		end := t.Duration()
		events, err := a.events.Locate(p, &end)
		if err != nil {
			return nil, fmt.Errorf("failed to locate events: %w", err)
		}
		report.Events = events.Times
		report.Limits = events.Limits()
		report.Segments = events.Segments()
		if first, ok := events.First(); ok {
			report.Drop = &first
		}
	}

	fields := logging.Fields{
		"bpm":    tempo.BPM,
		"band":   band.Name,
		"mode":   string(mode),
		"events": len(report.Events),
	}
	if report.Drop != nil {
		fields["drop"] = *report.Drop
	}
	logger.Info("Analysis complete", fields)

	return report, nil
}

// Job is one track of a batch. Track is used when set, otherwise Load is
// called inside the worker so only in-flight tracks are held in memory.
type Job struct {
	Source  string
	Track   *track.Track
	Load    func(ctx context.Context) (*track.Track, error)
	HintBPM *float64
}

// Result pairs a job's source with its report or error
type Result struct {
	Source string  `json:"source" yaml:"source"`
	Report *Report `json:"report,omitempty" yaml:"report,omitempty"`
	Err    error   `json:"-" yaml:"-"`
}

// AnalyzeBatch runs independent pipelines for jobs on a pool of workers.
// Results are returned in job order. Once ctx is done, jobs not yet started
// fail with the context error.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, jobs []Job, workers int) []Result {
	results := make([]Result, len(jobs))
	if len(jobs) == 0 {
		return results
	}

	if workers <= 0 {
		workers = a.cfg.Workers
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(jobs))

	type batchJob struct {
		index int
		job   Job
	}

	queue := make(chan batchJob, len(jobs))
	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for bj := range queue {
				results[bj.index] = a.runJob(ctx, bj.job)
			}
		}()
	}

	for i, job := range jobs {
		queue <- batchJob{index: i, job: job}
	}
	close(queue)

	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	a.logger.Info("Batch complete", logging.Fields{
		"jobs":    len(jobs),
		"failed":  failed,
		"workers": workers,
	})

	return results
}

func (a *Analyzer) runJob(ctx context.Context, job Job) Result {
	result := Result{Source: job.Source}

	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	t := job.Track
	if t == nil {
		if job.Load == nil {
			result.Err = fmt.Errorf("%w: job %q has neither track nor loader", ErrInvalidParameter, job.Source)
			return result
		}

		var err error
		t, err = job.Load(ctx)
		if err != nil {
			a.logger.Error(err, "Failed to load track", logging.Fields{"source": job.Source})
			result.Err = fmt.Errorf("failed to load %s: %w", job.Source, err)
			return result
		}
	}

	hint := job.HintBPM
	if hint == nil {
		hint = a.cfg.Tempo.HintBPM
	}

	report, err := a.AnalyzeSource(ctx, job.Source, t, hint)
	if err != nil {
		a.logger.Error(err, "Analysis failed", logging.Fields{"source": job.Source})
		result.Err = err
		return result
	}
	result.Report = report
	return result
}
