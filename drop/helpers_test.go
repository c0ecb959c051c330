package drop

import (
	"math"
	"testing"

	"github.com/RyanBlaney/sonido-drop/track"
)

// synthTrack renders fn (sample index -> amplitude in [-1, 1]) as a 16-bit
// mono wav track
func synthTrack(t *testing.T, sampleRate int, seconds float64, fn func(i int) float64) *track.Track {
	t.Helper()

	samples := make([]int, int(seconds*float64(sampleRate)))
	for i := range samples {
		samples[i] = int(math.Round(fn(i) * 32767))
	}

	tr, err := track.New(track.Decoded{
		Samples:     samples,
		Channels:    1,
		SampleWidth: 2,
		SampleRate:  sampleRate,
	}, "wav")
	if err != nil {
		t.Fatal(err)
	}
	return tr
}

// bassDropTrack is 4 s at 8 kHz: a 1 kHz tone throughout, joined at 2 s by
// a comb of tones covering 50-80 Hz
func bassDropTrack(t *testing.T) *track.Track {
	const rate = 8000
	return synthTrack(t, rate, 4, func(i int) float64 {
		sec := float64(i) / rate
		v := 0.3 * math.Sin(2*math.Pi*1000*sec)
		if sec >= 2 {
			for k := 0; k <= 30; k++ {
				v += 0.015 * math.Sin(2*math.Pi*float64(50+k)*sec+1.7*float64(k))
			}
		}
		return v
	})
}

func ptr(v float64) *float64 { return &v }
