package track

import (
	"errors"
	"math"
	"testing"
)

// silenceThenTone returns interleaved 16-bit stereo: 1000 silent frames then
// a half-scale 440 Hz tone on both channels
func silenceThenTone(rate int) Decoded {
	const frames = 2000
	samples := make([]int, 0, frames*2)
	for i := range frames {
		v := 0
		if i >= 1000 {
			v = int(16384 * math.Sin(2*math.Pi*440*float64(i-1000)/float64(rate)))
		}
		samples = append(samples, v, v/2)
	}
	return Decoded{Samples: samples, Channels: 2, SampleWidth: 2, SampleRate: rate}
}

func TestUnsupportedFormat(t *testing.T) {
	decoded := Decoded{Samples: []int{1, 2}, Channels: 1, SampleWidth: 2, SampleRate: 8000}

	for _, ext := range []string{"flac", "ogg", "", "mp4"} {
		if _, err := New(decoded, ext); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("extension %q: err = %v, want ErrUnsupportedFormat", ext, err)
		}
	}
	for _, ext := range []string{"wav", ".WAV", "Mp3", " mp3 "} {
		if _, err := New(decoded, ext); err != nil {
			t.Errorf("extension %q: unexpected error %v", ext, err)
		}
	}
}

func TestNormalizationRange(t *testing.T) {
	tests := []struct {
		width   int
		samples []int
	}{
		{1, []int{-128, -1, 0, 127}},
		{2, []int{-32768, -12345, 0, 32767}},
		{3, []int{-8388608, 0, 8388607}},
		{2, []int{40000, -40000}}, // out of range for the declared width
	}

	for _, tt := range tests {
		normalized := Clip(Normalize(tt.samples, tt.width))
		for i, v := range normalized {
			if v < -1 || v > 1 {
				t.Errorf("width %d: sample %d normalized to %v", tt.width, tt.samples[i], v)
			}
		}

		again := Clip(append([]float64(nil), normalized...))
		for i := range normalized {
			if again[i] != normalized[i] {
				t.Errorf("width %d: clipping twice changed %v to %v", tt.width, normalized[i], again[i])
			}
		}
	}

	if got := Normalize([]int{-32768}, 2)[0]; got != -1 {
		t.Errorf("full scale = %v, want -1", got)
	}
}

func TestTrimAlignment(t *testing.T) {
	tr, err := New(silenceThenTone(8000), "wav")
	if err != nil {
		t.Fatal(err)
	}

	if tr.TrimmedSamples() != 960 {
		t.Errorf("trimmed = %d, want 960", tr.TrimmedSamples())
	}
	if tr.NumSamples() != 2000-960 {
		t.Errorf("samples = %d, want %d", tr.NumSamples(), 2000-960)
	}

	for c, row := range tr.Stereo() {
		if len(row) != tr.NumSamples() {
			t.Errorf("channel %d has %d samples, want %d", c, len(row), tr.NumSamples())
		}
	}
	if len(tr.Analysis()) != tr.Channels()*tr.NumSamples() {
		t.Errorf("analysis length = %d", len(tr.Analysis()))
	}
	if len(tr.AnalysisMono()) != len(tr.Mono()) {
		t.Errorf("analysis mono = %d, mono = %d", len(tr.AnalysisMono()), len(tr.Mono()))
	}

	for c := range tr.Channels() {
		analysis := tr.AnalysisChannel(c)
		for i, v := range tr.Stereo()[c] {
			if analysis[i] != v {
				t.Fatalf("channel %d sample %d: analysis %v != stereo %v", c, i, analysis[i], v)
			}
		}
	}
	for i := range tr.Mono() {
		if math.Abs(tr.Mono()[i]-tr.AnalysisMono()[i]) > 1e-15 {
			t.Fatalf("mono layouts differ at %d", i)
		}
	}
	if tr.AnalysisChannel(2) != nil {
		t.Error("expected nil for out-of-range channel")
	}
}

func TestMonoIsChannelMean(t *testing.T) {
	decoded := Decoded{
		Samples:     []int{16384, 0, -16384, 8192},
		Channels:    2,
		SampleWidth: 2,
		SampleRate:  8000,
	}
	tr, err := New(decoded, "wav")
	if err != nil {
		t.Fatal(err)
	}

	want := []float64{0.25, -0.125}
	for i, v := range tr.Mono() {
		if v != want[i] {
			t.Errorf("mono[%d] = %v, want %v", i, v, want[i])
		}
	}

	interleaved := tr.Interleaved()
	wantInterleaved := []float64{0.5, 0, -0.5, 0.25}
	for i, v := range interleaved {
		if v != wantInterleaved[i] {
			t.Errorf("interleaved[%d] = %v, want %v", i, v, wantInterleaved[i])
		}
	}
}

func TestIncompleteFrameDropped(t *testing.T) {
	tr, err := New(Decoded{Samples: []int{100, 200, 300, 400, 500}, Channels: 2, SampleWidth: 2, SampleRate: 8000}, "wav")
	if err != nil {
		t.Fatal(err)
	}
	if tr.NumSamples() != 2 {
		t.Errorf("samples = %d, want 2", tr.NumSamples())
	}
}

func TestMetadata(t *testing.T) {
	tr, err := New(silenceThenTone(44100), ".mp3")
	if err != nil {
		t.Fatal(err)
	}
	if tr.Extension() != "mp3" {
		t.Errorf("extension = %q", tr.Extension())
	}
	if tr.Bitrate() != 1411.2 {
		t.Errorf("bitrate = %v, want 1411.2", tr.Bitrate())
	}
	if want := float64(tr.NumSamples()) / 44100; tr.Duration() != want {
		t.Errorf("duration = %v, want %v", tr.Duration(), want)
	}
	if tr.SampleWidth() != 2 || tr.Channels() != 2 || tr.SampleRate() != 44100 {
		t.Errorf("metadata = %d/%d/%d", tr.SampleWidth(), tr.Channels(), tr.SampleRate())
	}
	if err := tr.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestInvalidTracks(t *testing.T) {
	empty, err := New(Decoded{Channels: 2, SampleWidth: 2, SampleRate: 8000}, "wav")
	if err != nil {
		t.Fatal(err)
	}
	if err := empty.Validate(); !errors.Is(err, ErrInvalidTrack) {
		t.Errorf("empty track: err = %v, want ErrInvalidTrack", err)
	}

	noRate, err := New(Decoded{Samples: []int{1, 2, 3}, Channels: 1, SampleWidth: 2}, "wav")
	if err != nil {
		t.Fatal(err)
	}
	if err := noRate.Validate(); !errors.Is(err, ErrInvalidTrack) {
		t.Errorf("no sample rate: err = %v, want ErrInvalidTrack", err)
	}

	if _, err := New(Decoded{Samples: []int{1}, Channels: 1, SampleWidth: 0, SampleRate: 8000}, "wav"); !errors.Is(err, ErrInvalidTrack) {
		t.Errorf("zero width: err = %v, want ErrInvalidTrack", err)
	}
	if _, err := New(Decoded{Samples: []int{1}, Channels: 0, SampleWidth: 2, SampleRate: 8000}, "wav"); !errors.Is(err, ErrInvalidTrack) {
		t.Errorf("zero channels: err = %v, want ErrInvalidTrack", err)
	}
}
