package drop

import (
	"errors"
	"math"
	"testing"

	"github.com/RyanBlaney/sonido-drop/drop/config"
	"github.com/RyanBlaney/sonido-drop/track"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		raw, want float64
	}{
		{0, 0},
		{60, 60},
		{110, 110},
		{110.4, 110},
		{110.6, 55},
		{120, 60},
		{128, 64},
		{140.2, 70},
		{176, 88},
		{300, 75},
		{82.5, 82}, // ties round to even
		{83.5, 84},
	}

	for _, tt := range tests {
		if got := Canonicalize(tt.raw, 110); got != tt.want {
			t.Errorf("Canonicalize(%v) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestCanonicalizeFoldsByOctaves(t *testing.T) {
	// 176 -> 88 -> 44 once the threshold sits below 88
	if got := Canonicalize(176, 60); got != 44 {
		t.Errorf("Canonicalize(176, 60) = %v, want 44", got)
	}
}

func TestCanonicalizeProperties(t *testing.T) {
	for raw := 0.0; raw <= 1000; raw += 0.37 {
		once := Canonicalize(raw, 110)
		if once > 110 {
			t.Fatalf("Canonicalize(%v) = %v exceeds threshold", raw, once)
		}
		if twice := Canonicalize(once, 110); twice != once {
			t.Fatalf("Canonicalize not idempotent for %v: %v then %v", raw, once, twice)
		}

		// result is raw/2^k rounded for some k >= 0
		found := false
		for k, v := 0, raw; k < 20; k, v = k+1, v/2 {
			if math.RoundToEven(v) == once {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("Canonicalize(%v) = %v is not an octave of the input", raw, once)
		}
	}
}

func TestNearestOctave(t *testing.T) {
	tests := []struct {
		bpm, reference, want float64
	}{
		{64, 128, 128},
		{64, 64, 64},
		{64, 30, 32},
		{87.5, 175, 175},
		{60, 90, 60}, // 60 and 120 tie, slower wins
	}
	for _, tt := range tests {
		if got := NearestOctave(tt.bpm, tt.reference); got != tt.want {
			t.Errorf("NearestOctave(%v, %v) = %v, want %v", tt.bpm, tt.reference, got, tt.want)
		}
	}
}

// clickTrack is 8 s of 120 BPM clicks at 20480 Hz, where a 512 hop gives
// exactly 20 onset frames per beat
func clickTrack(t *testing.T) *track.Track {
	const rate = 20480
	spacing := rate / 2
	return synthTrack(t, rate, 8, func(i int) float64 {
		if i%spacing < 64 {
			return 0.9
		}
		return 0
	})
}

func TestTempoEstimatorClickTrack(t *testing.T) {
	tr := clickTrack(t)

	estimate, err := NewTempoEstimator(config.DefaultTempoConfig()).Estimate(tr, nil)
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(estimate.RawBPM-120) > 1 {
		t.Errorf("raw bpm = %v, want 120", estimate.RawBPM)
	}
	if estimate.BPM != 60 {
		t.Errorf("bpm = %v, want 60 after folding", estimate.BPM)
	}
	if estimate.Hinted {
		t.Error("estimate marked as hinted")
	}
	if len(estimate.BeatFrames) == 0 {
		t.Fatal("no beats tracked")
	}

	times := estimate.BeatTimes()
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			t.Fatalf("beat times not ascending: %v", times)
		}
	}
}

func TestTempoEstimatorHint(t *testing.T) {
	tr := clickTrack(t)

	estimate, err := NewTempoEstimator(config.DefaultTempoConfig()).Estimate(tr, ptr(176))
	if err != nil {
		t.Fatal(err)
	}
	if estimate.RawBPM != 176 || estimate.BPM != 88 || !estimate.Hinted {
		t.Errorf("estimate = %+v, want raw 176 folded to 88", estimate)
	}

	cfg := config.DefaultTempoConfig()
	cfg.FoldFastTempo = false
	estimate, err = NewTempoEstimator(cfg).Estimate(tr, ptr(176.4))
	if err != nil {
		t.Fatal(err)
	}
	if estimate.BPM != 176 {
		t.Errorf("unfolded bpm = %v, want 176", estimate.BPM)
	}

	if _, err := NewTempoEstimator(cfg).Estimate(tr, ptr(-5)); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("negative hint: err = %v", err)
	}
}

func TestTempoEstimatorInvalidTrack(t *testing.T) {
	empty, err := track.New(track.Decoded{Channels: 1, SampleWidth: 2, SampleRate: 8000}, "wav")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewTempoEstimator(config.DefaultTempoConfig()).Estimate(empty, nil); !errors.Is(err, ErrInvalidTrack) {
		t.Errorf("err = %v, want ErrInvalidTrack", err)
	}
}
