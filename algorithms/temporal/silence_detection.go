package temporal

import (
	"github.com/RyanBlaney/sonido-drop/algorithms/common"
	"github.com/RyanBlaney/sonido-drop/algorithms/spectral"
)

// SilenceDetection finds silent regions from a framed energy envelope
type SilenceDetection struct {
	envelopeExtractor *Envelope
}

// NewSilenceDetection creates a new silence detector
func NewSilenceDetection() *SilenceDetection {
	return &SilenceDetection{
		envelopeExtractor: NewEnvelope(),
	}
}

// NonSilentFrames marks frames whose power lies within topDB decibels of the
// loudest frame. Frames come from a centered RMS envelope, so frame i covers
// sample i*hopLength.
func (sd *SilenceDetection) NonSilentFrames(signal []float64, frameLength, hopLength int, topDB float64) []bool {
	rms := sd.envelopeExtractor.ComputeRMSCentered(signal, frameLength, hopLength)
	if len(rms) == 0 {
		return []bool{}
	}

	power := make([]float64, len(rms))
	for i, r := range rms {
		power[i] = r * r
	}

	db := spectral.PowerToDB(power, common.Max(power), spectral.DefaultPowerAmin, 0)

	nonSilent := make([]bool, len(db))
	for i, v := range db {
		nonSilent[i] = v > -topDB
	}
	return nonSilent
}

// LeadingSilence returns the number of samples before the first non-silent
// frame, clamped to the signal length. A signal with no frame above the
// floor has nothing trimmed.
func (sd *SilenceDetection) LeadingSilence(signal []float64, frameLength, hopLength int, topDB float64) int {
	for i, loud := range sd.NonSilentFrames(signal, frameLength, hopLength, topDB) {
		if loud {
			return min(i*hopLength, len(signal))
		}
	}
	return 0
}

// DetectSilence returns [start, end) sample ranges of silent runs lasting at
// least minFrames frames
func (sd *SilenceDetection) DetectSilence(signal []float64, frameLength, hopLength int, topDB float64, minFrames int) [][2]int {
	nonSilent := sd.NonSilentFrames(signal, frameLength, hopLength, topDB)

	var segments [][2]int
	start := -1
	flush := func(end int) {
		if start >= 0 && end-start >= max(minFrames, 1) {
			segments = append(segments, [2]int{
				min(start*hopLength, len(signal)),
				min(end*hopLength, len(signal)),
			})
		}
		start = -1
	}

	for i, loud := range nonSilent {
		switch {
		case !loud && start < 0:
			start = i
		case loud:
			flush(i)
		}
	}
	flush(len(nonSilent))

	return segments
}
