package track

import (
	"fmt"
	"math"
	"strings"

	"github.com/RyanBlaney/sonido-drop/algorithms/temporal"
	"github.com/RyanBlaney/sonido-drop/logging"
)

var supportedExtensions = map[string]bool{
	"mp3": true,
	"wav": true,
}

// Decoded is raw PCM as produced by a decoder: integer samples interleaved
// by channel, with the byte width they were stored in
type Decoded struct {
	Samples     []int `json:"-"`
	Channels    int   `json:"channels"`
	SampleWidth int   `json:"sample_width"` // bytes per sample
	SampleRate  int   `json:"sample_rate"`
}

// TrimConfig controls leading-silence removal
type TrimConfig struct {
	FrameLength int     `json:"frame_length" yaml:"frame_length" mapstructure:"frame_length"`
	HopLength   int     `json:"hop_length" yaml:"hop_length" mapstructure:"hop_length"`
	TopDB       float64 `json:"top_db" yaml:"top_db" mapstructure:"top_db"` // silence floor below peak
}

// DefaultTrimConfig returns the fixed trim parameters
func DefaultTrimConfig() TrimConfig {
	return TrimConfig{
		FrameLength: 128,
		HopLength:   32,
		TopDB:       40,
	}
}

// Track is a normalized, silence-trimmed waveform ready for analysis.
// It is immutable once constructed; slices returned by accessors are shared
// and must not be modified.
type Track struct {
	stereo       [][]float64 // per-channel rows
	analysis     []float64   // channel-major: all of channel 0, then channel 1...
	mono         []float64
	analysisMono []float64

	sampleRate  int
	channels    int
	sampleWidth int
	extension   string
	trimmed     int
}

// IsSupportedExtension reports whether ext (with or without a leading dot,
// any case) names a supported container
func IsSupportedExtension(ext string) bool {
	return supportedExtensions[normalizeExtension(ext)]
}

func normalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// New builds a Track from decoded samples using the default trim settings
func New(decoded Decoded, extension string) (*Track, error) {
	return NewWithConfig(decoded, extension, DefaultTrimConfig())
}

// NewWithConfig builds a Track: samples are normalized by 2^(8*width-1),
// split into per-channel and channel-major layouts, stripped of leading
// silence and downmixed to mono.
func NewWithConfig(decoded Decoded, extension string, trim TrimConfig) (*Track, error) {
	ext := normalizeExtension(extension)
	if !supportedExtensions[ext] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, extension)
	}

	logger := logging.WithFields(logging.Fields{
		"component": "track",
		"extension": ext,
	})

	if decoded.SampleWidth < 1 || decoded.SampleWidth > 4 {
		return nil, fmt.Errorf("%w: sample width %d bytes", ErrInvalidTrack, decoded.SampleWidth)
	}
	if decoded.Channels < 1 {
		if len(decoded.Samples) > 0 {
			return nil, fmt.Errorf("%w: %d channels", ErrInvalidTrack, decoded.Channels)
		}
		decoded.Channels = 1
	}

	channels := decoded.Channels
	frames := len(decoded.Samples) / channels
	if rem := len(decoded.Samples) % channels; rem != 0 {
		logger.Warn("Dropping incomplete trailing frame", logging.Fields{
			"samples":  len(decoded.Samples),
			"channels": channels,
		})
	}

	normalized := Clip(Normalize(decoded.Samples[:frames*channels], decoded.SampleWidth))

	stereo := make([][]float64, channels)
	for c := range stereo {
		stereo[c] = make([]float64, frames)
		for i := range frames {
			stereo[c][i] = normalized[i*channels+c]
		}
	}

	analysis := make([]float64, 0, frames*channels)
	for c := range channels {
		analysis = append(analysis, stereo[c]...)
	}

	cut := temporal.NewSilenceDetection().LeadingSilence(downmix(stereo), trim.FrameLength, trim.HopLength, trim.TopDB)

	t := &Track{
		sampleRate:  decoded.SampleRate,
		channels:    channels,
		sampleWidth: decoded.SampleWidth,
		extension:   ext,
		trimmed:     cut,
	}

	t.stereo = make([][]float64, channels)
	for c := range stereo {
		t.stereo[c] = stereo[c][cut:]
	}

	kept := frames - cut
	t.analysis = make([]float64, 0, kept*channels)
	for c := range channels {
		t.analysis = append(t.analysis, analysis[c*frames+cut:(c+1)*frames]...)
	}

	t.mono = downmix(t.stereo)
	t.analysisMono = make([]float64, kept)
	for c := range channels {
		for i, v := range t.analysis[c*kept : (c+1)*kept] {
			t.analysisMono[i] += v
		}
	}
	for i := range t.analysisMono {
		t.analysisMono[i] /= float64(channels)
	}

	logger.Debug("Track constructed", logging.Fields{
		"channels":        channels,
		"sample_rate":     decoded.SampleRate,
		"sample_width":    decoded.SampleWidth,
		"samples":         kept,
		"trimmed_samples": cut,
	})

	return t, nil
}

// Normalize divides integer samples by 2^(8*width-1), mapping full-scale
// PCM of the given byte width onto [-1, 1)
func Normalize(samples []int, width int) []float64 {
	divisor := math.Pow(2, float64(8*width-1))
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s) / divisor
	}
	return out
}

// Clip limits samples to [-1, 1] in place and returns them. Applying it to
// already clipped samples changes nothing.
func Clip(samples []float64) []float64 {
	for i, s := range samples {
		switch {
		case s > 1:
			samples[i] = 1
		case s < -1:
			samples[i] = -1
		case math.IsNaN(s):
			samples[i] = 0
		}
	}
	return samples
}

func downmix(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return []float64{}
	}
	mono := make([]float64, len(rows[0]))
	for _, row := range rows {
		for i, v := range row {
			mono[i] += v
		}
	}
	for i := range mono {
		mono[i] /= float64(len(rows))
	}
	return mono
}

// Validate returns ErrInvalidTrack when the track cannot be analyzed
func (t *Track) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: nil track", ErrInvalidTrack)
	}
	if t.sampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidTrack, t.sampleRate)
	}
	if len(t.mono) == 0 {
		return fmt.Errorf("%w: no samples", ErrInvalidTrack)
	}
	return nil
}

// Stereo returns the per-channel waveform used for export and playback
func (t *Track) Stereo() [][]float64 { return t.stereo }

// Mono returns the channel mean of Stereo
func (t *Track) Mono() []float64 { return t.mono }

// Analysis returns the channel-major waveform used for spectral analysis
func (t *Track) Analysis() []float64 { return t.analysis }

// AnalysisChannel returns channel c of the channel-major waveform
func (t *Track) AnalysisChannel(c int) []float64 {
	if c < 0 || c >= t.channels {
		return nil
	}
	n := t.NumSamples()
	return t.analysis[c*n : (c+1)*n]
}

// AnalysisMono returns the channel mean of the channel-major waveform
func (t *Track) AnalysisMono() []float64 { return t.analysisMono }

// Interleaved returns a fresh frame-interleaved copy of Stereo for writers
func (t *Track) Interleaved() []float64 {
	n := t.NumSamples()
	out := make([]float64, n*t.channels)
	for c, row := range t.stereo {
		for i, v := range row {
			out[i*t.channels+c] = v
		}
	}
	return out
}

// NumSamples returns the per-channel sample count after trimming
func (t *Track) NumSamples() int { return len(t.mono) }

// TrimmedSamples returns how many leading samples per channel were removed
func (t *Track) TrimmedSamples() int { return t.trimmed }

func (t *Track) SampleRate() int   { return t.sampleRate }
func (t *Track) Channels() int     { return t.channels }
func (t *Track) SampleWidth() int  { return t.sampleWidth }
func (t *Track) Extension() string { return t.extension }

// Duration returns the trimmed track length in seconds
func (t *Track) Duration() float64 {
	if t.sampleRate <= 0 {
		return 0
	}
	return float64(t.NumSamples()) / float64(t.sampleRate)
}

// Bitrate returns the uncompressed PCM bitrate in kbit/s
func (t *Track) Bitrate() float64 {
	return float64(t.sampleRate*t.sampleWidth*8*t.channels) / 1000
}
