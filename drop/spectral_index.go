package drop

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/RyanBlaney/sonido-drop/algorithms/common"
	"github.com/RyanBlaney/sonido-drop/algorithms/spectral"
	"github.com/RyanBlaney/sonido-drop/algorithms/windowing"
	"github.com/RyanBlaney/sonido-drop/drop/config"
	"github.com/RyanBlaney/sonido-drop/logging"
	"github.com/RyanBlaney/sonido-drop/track"
)

// SpectralIndex is a decibel spectrogram of a track with nearest-cell lookup
// from continuous (seconds, Hz) coordinates. It is read-only after
// construction and safe for concurrent use.
//
// Lookup rounds half to even on both axes (2.5 -> 2, 3.5 -> 4) and clamps
// the result into the matrix, so queries at or past Nyquist resolve to the
// last bin and queries past the last frame resolve to the last frame.
type SpectralIndex struct {
	spectrogram *mat.Dense // bins x frames, dB relative to the loudest cell
	frequencies []float64
	times       []float64

	timeIndexRatio      float64
	frequencyIndexRatio float64

	sampleRate int
	duration   float64
}

// NewSpectralIndex computes the centered STFT of the track's channel-major
// mono mix, converts it to dB and derives the lookup ratios
func NewSpectralIndex(t *track.Track, cfg config.SpectralConfig) (*SpectralIndex, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if cfg.WindowSize <= 0 || cfg.HopSize <= 0 {
		return nil, fmt.Errorf("%w: window %d, hop %d", ErrInvalidParameter, cfg.WindowSize, cfg.HopSize)
	}

	logger := logging.WithFields(logging.Fields{
		"component":   "spectral_index",
		"window_size": cfg.WindowSize,
		"hop_size":    cfg.HopSize,
	})

	amin := cfg.Amin
	if amin <= 0 {
		amin = spectral.DefaultAmplitudeAmin
	}

	window, err := windowing.New(cfg.Window, cfg.WindowSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}

	stft, err := spectral.NewSTFT().ComputeCentered(t.AnalysisMono(), cfg.WindowSize, cfg.HopSize,
		t.SampleRate(), window)
	if err != nil {
		return nil, fmt.Errorf("failed to compute spectrogram: %w", err)
	}

	db := spectral.AmplitudeToDB(stft.Magnitude, amin, cfg.TopDB)

	bins, frames := stft.FreqBins, stft.TimeFrames
	spectrogram := mat.NewDense(bins, frames, nil)
	for f, frame := range db {
		for k, v := range frame {
			spectrogram.Set(k, f, v)
		}
	}

	idx := &SpectralIndex{
		spectrogram: spectrogram,
		frequencies: spectral.FFTFrequencies(t.SampleRate(), cfg.WindowSize),
		times:       spectral.FrameTimes(frames, t.SampleRate(), cfg.HopSize),
		sampleRate:  t.SampleRate(),
		duration:    t.Duration(),
	}

	if last := idx.times[len(idx.times)-1]; last > 0 {
		idx.timeIndexRatio = float64(frames) / last
	}
	if nyquist := idx.frequencies[len(idx.frequencies)-1]; nyquist > 0 {
		idx.frequencyIndexRatio = float64(bins) / nyquist
	}

	logger.Debug("Spectral index built", logging.Fields{
		"bins":                  bins,
		"frames":                frames,
		"time_index_ratio":      idx.timeIndexRatio,
		"frequency_index_ratio": idx.frequencyIndexRatio,
	})

	return idx, nil
}

// Index returns the (row, col) cell a query resolves to
func (s *SpectralIndex) Index(timeSeconds, freqHz float64) (row, col int) {
	rows, cols := s.spectrogram.Dims()
	row = common.RoundIndex(freqHz*s.frequencyIndexRatio, rows)
	col = common.RoundIndex(timeSeconds*s.timeIndexRatio, cols)
	return row, col
}

// LookupDB returns the decibel level at the cell nearest to (time, frequency)
func (s *SpectralIndex) LookupDB(timeSeconds, freqHz float64) float64 {
	row, col := s.Index(timeSeconds, freqHz)
	return s.spectrogram.At(row, col)
}

// At returns the decibel level of a cell
func (s *SpectralIndex) At(row, col int) float64 {
	return s.spectrogram.At(row, col)
}

// Spectrogram returns the bins x frames dB matrix. The matrix is shared
// with the index and must not be modified.
func (s *SpectralIndex) Spectrogram() mat.Matrix {
	return s.spectrogram
}

// Bins returns the number of frequency bins
func (s *SpectralIndex) Bins() int {
	rows, _ := s.spectrogram.Dims()
	return rows
}

// Frames returns the number of time frames
func (s *SpectralIndex) Frames() int {
	_, cols := s.spectrogram.Dims()
	return cols
}

// Frequencies returns a copy of the center frequency of each bin in Hz
func (s *SpectralIndex) Frequencies() []float64 { return slices.Clone(s.frequencies) }

// Times returns a copy of the time of each frame in seconds
func (s *SpectralIndex) Times() []float64 { return slices.Clone(s.times) }

// TimeIndexRatio returns frames per second of the lookup, 0 for single-frame tracks
func (s *SpectralIndex) TimeIndexRatio() float64 { return s.timeIndexRatio }

// FrequencyIndexRatio returns bins per Hz of the lookup
func (s *SpectralIndex) FrequencyIndexRatio() float64 { return s.frequencyIndexRatio }

// TrackDuration returns the analyzed track length in seconds, measured from
// its sample count
func (s *SpectralIndex) TrackDuration() float64 { return s.duration }

// SampleRate returns the sample rate of the analyzed track
func (s *SpectralIndex) SampleRate() int { return s.sampleRate }
