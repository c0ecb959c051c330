package drop

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/RyanBlaney/sonido-drop/drop/config"
	"github.com/RyanBlaney/sonido-drop/track"
)

// tinyIndex has 5 bins over [0, 4] Hz and 5 frames over [0, 2] s, so the
// ratios are exactly 1.25 bins/Hz and 2.5 frames/s
func tinyIndex(t *testing.T) *SpectralIndex {
	t.Helper()

	tr := synthTrack(t, 8, 2, func(i int) float64 {
		return 0.5 * math.Sin(float64(i))
	})
	idx, err := NewSpectralIndex(tr, config.SpectralConfig{WindowSize: 8, HopSize: 4, TopDB: 80, Amin: 1e-5})
	if err != nil {
		t.Fatal(err)
	}
	return idx
}

func TestSpectralIndexShape(t *testing.T) {
	idx := tinyIndex(t)

	if idx.Bins() != 5 || idx.Frames() != 5 {
		t.Fatalf("shape = %dx%d, want 5x5", idx.Bins(), idx.Frames())
	}
	if idx.FrequencyIndexRatio() != 1.25 {
		t.Errorf("frequency ratio = %v, want 1.25", idx.FrequencyIndexRatio())
	}
	if idx.TimeIndexRatio() != 2.5 {
		t.Errorf("time ratio = %v, want 2.5", idx.TimeIndexRatio())
	}
	if idx.TrackDuration() != 2 {
		t.Errorf("duration = %v, want 2", idx.TrackDuration())
	}

	wantFreqs := []float64{0, 1, 2, 3, 4}
	for i, f := range idx.Frequencies() {
		if f != wantFreqs[i] {
			t.Errorf("frequency[%d] = %v, want %v", i, f, wantFreqs[i])
		}
	}
	wantTimes := []float64{0, 0.5, 1, 1.5, 2}
	for i, ts := range idx.Times() {
		if ts != wantTimes[i] {
			t.Errorf("time[%d] = %v, want %v", i, ts, wantTimes[i])
		}
	}

	rows, cols := idx.Spectrogram().Dims()
	if rows != 5 || cols != 5 {
		t.Errorf("spectrogram dims = %dx%d, want 5x5", rows, cols)
	}
	if idx.Spectrogram().At(2, 3) != idx.At(2, 3) {
		t.Error("spectrogram and At disagree")
	}
}

func TestSpectralIndexAxesAreCopies(t *testing.T) {
	idx := tinyIndex(t)

	freqs := idx.Frequencies()
	freqs[1] = 1000
	times := idx.Times()
	times[1] = 1000

	if idx.Frequencies()[1] != 1 || idx.Times()[1] != 0.5 {
		t.Errorf("axes changed through returned slices: %v, %v", idx.Frequencies(), idx.Times())
	}
	if row, col := idx.Index(0.5, 1); row != 1 || col != 1 {
		t.Errorf("Index(0.5, 1) = (%d, %d), want (1, 1)", row, col)
	}
}

func TestSpectralIndexRoundsHalfToEven(t *testing.T) {
	idx := tinyIndex(t)

	tests := []struct {
		time, freq float64
		row, col   int
	}{
		{0, 0, 0, 0},
		{1, 2, 2, 2},     // 2.5 -> 2 on both axes
		{0.5, 1.2, 2, 1}, // 1.5 -> 2 (row), 1.25 -> 1 (col)
		{0.6, 0.4, 0, 2}, // 0.5 -> 0 (row), 1.5 -> 2 (col)
		{0.2, 3.6, 4, 0},
	}

	for _, tt := range tests {
		row, col := idx.Index(tt.time, tt.freq)
		if row != tt.row || col != tt.col {
			t.Errorf("Index(%v, %v) = (%d, %d), want (%d, %d)", tt.time, tt.freq, row, col, tt.row, tt.col)
		}
		if got, want := idx.LookupDB(tt.time, tt.freq), idx.At(row, col); got != want {
			t.Errorf("LookupDB(%v, %v) = %v, want cell value %v", tt.time, tt.freq, got, want)
		}
	}
}

func TestSpectralIndexClampsBoundaries(t *testing.T) {
	idx := tinyIndex(t)

	tests := []struct {
		time, freq float64
		row, col   int
	}{
		{2, 4, 4, 4},      // Nyquist and last frame round past the matrix
		{100, 1000, 4, 4}, // far outside
		{-1, -1, 0, 0},    // negative queries
		{math.NaN(), 2, 2, 0},
	}
	for _, tt := range tests {
		row, col := idx.Index(tt.time, tt.freq)
		if row != tt.row || col != tt.col {
			t.Errorf("Index(%v, %v) = (%d, %d), want (%d, %d)", tt.time, tt.freq, row, col, tt.row, tt.col)
		}
	}
}

func TestSpectralIndexDecibels(t *testing.T) {
	tr := synthTrack(t, 8000, 2, func(i int) float64 {
		return 0.5 * math.Sin(2*math.Pi*1000*float64(i)/8000)
	})
	idx, err := NewSpectralIndex(tr, config.DefaultSpectralConfig())
	if err != nil {
		t.Fatal(err)
	}

	if want := 1 + 16000/512; idx.Frames() != want {
		t.Errorf("frames = %d, want %d", idx.Frames(), want)
	}
	if idx.Bins() != 4097 {
		t.Errorf("bins = %d, want 4097", idx.Bins())
	}

	peak := math.Inf(-1)
	for r := range idx.Bins() {
		for c := range idx.Frames() {
			v := idx.At(r, c)
			if v > 0 {
				t.Fatalf("cell (%d, %d) = %v dB is above the reference", r, c, v)
			}
			if v < -80-1e-9 {
				t.Fatalf("cell (%d, %d) = %v dB is below the floor", r, c, v)
			}
			peak = math.Max(peak, v)
		}
	}
	if peak != 0 {
		t.Errorf("loudest cell = %v dB, want 0", peak)
	}

	if tone := idx.LookupDB(1.0, 1000); tone < -3 {
		t.Errorf("1 kHz at 1 s = %v dB, want near 0", tone)
	}
	if off := idx.LookupDB(1.0, 3000); off > -60 {
		t.Errorf("3 kHz at 1 s = %v dB, want near the floor", off)
	}
}

func TestSpectralIndexLookupIsPure(t *testing.T) {
	idx := tinyIndex(t)
	want := idx.LookupDB(1.1, 2.7)

	var wg sync.WaitGroup
	errs := make(chan float64, 16)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				if got := idx.LookupDB(1.1, 2.7); got != want {
					errs <- got
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for got := range errs {
		t.Errorf("LookupDB changed between calls: %v != %v", got, want)
	}
}

func TestSpectralIndexSingleFrame(t *testing.T) {
	tr := synthTrack(t, 8, 0.25, func(i int) float64 { return 0.5 })
	idx, err := NewSpectralIndex(tr, config.SpectralConfig{WindowSize: 8, HopSize: 4, TopDB: 80, Amin: 1e-5})
	if err != nil {
		t.Fatal(err)
	}
	if idx.Frames() != 1 || idx.TimeIndexRatio() != 0 {
		t.Errorf("frames = %d, ratio = %v", idx.Frames(), idx.TimeIndexRatio())
	}
	if _, col := idx.Index(0.2, 0); col != 0 {
		t.Errorf("col = %d, want 0", col)
	}
}

func TestSpectralIndexInvalidTrack(t *testing.T) {
	empty, err := track.New(track.Decoded{Channels: 1, SampleWidth: 2, SampleRate: 8000}, "wav")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewSpectralIndex(empty, config.DefaultSpectralConfig()); !errors.Is(err, ErrInvalidTrack) {
		t.Errorf("err = %v, want ErrInvalidTrack", err)
	}
}

func TestSpectralIndexWindow(t *testing.T) {
	tr := synthTrack(t, 8, 2, func(i int) float64 {
		return 0.5 * math.Sin(float64(i))
	})

	cfg := config.SpectralConfig{WindowSize: 8, HopSize: 4, TopDB: 80, Amin: 1e-5, Window: "blackman"}
	idx, err := NewSpectralIndex(tr, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Bins() != 5 || idx.Frames() != 5 {
		t.Errorf("shape = %dx%d, want 5x5", idx.Bins(), idx.Frames())
	}

	cfg.Window = "triangle"
	if _, err := NewSpectralIndex(tr, cfg); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("err = %v, want ErrInvalidParameter", err)
	}
}
