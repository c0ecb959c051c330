package temporal

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-drop/algorithms/common"
	"github.com/RyanBlaney/sonido-drop/algorithms/windowing"
)

// BeatTracker places beats on an onset envelope with the dynamic programming
// method of Ellis, given a global tempo.
//
// References:
//   - Ellis, D.P.W. (2007). "Beat Tracking by Dynamic Programming"
//     Journal of New Music Research, 36(1), 51-60
type BeatTracker struct{}

// NewBeatTracker creates a new beat tracker
func NewBeatTracker() *BeatTracker {
	return &BeatTracker{}
}

// TrackBeats returns beat positions as onset frame indices in ascending order.
// tightness weighs the penalty for beat intervals deviating from the period
// implied by bpm. An onset envelope with no energy yields no beats.
func (bt *BeatTracker) TrackBeats(onset []float64, bpm float64, sampleRate, hopSize int, tightness float64) ([]int, error) {
	if bpm <= 0 || math.IsNaN(bpm) || math.IsInf(bpm, 0) {
		return nil, fmt.Errorf("invalid tempo %v", bpm)
	}
	if sampleRate <= 0 || hopSize <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d or hop size %d", sampleRate, hopSize)
	}
	if tightness <= 0 {
		return nil, fmt.Errorf("tightness must be positive, got %v", tightness)
	}

	if !hasEnergy(onset) {
		return []int{}, nil
	}

	framesPerSecond := float64(sampleRate) / float64(hopSize)
	period := max(int(common.RoundHalfEven(60.0*framesPerSecond/bpm)), 1)

	localScore := bt.localScore(onset, period)
	backlink, cumScore := bt.dynamicProgram(localScore, period, tightness)

	beats := []int{lastBeat(cumScore)}
	for backlink[beats[len(beats)-1]] >= 0 {
		beats = append(beats, backlink[beats[len(beats)-1]])
	}
	for i, j := 0, len(beats)-1; i < j; i, j = i+1, j-1 {
		beats[i], beats[j] = beats[j], beats[i]
	}

	return bt.trimBeats(localScore, beats), nil
}

// localScore smooths the std-normalized onset envelope with a gaussian
// spanning one period on either side
func (bt *BeatTracker) localScore(onset []float64, period int) []float64 {
	norm := common.StandardDeviation(onset)
	if norm <= 0 {
		norm = math.SmallestNonzeroFloat64
	}

	kernel := make([]float64, 2*period+1)
	for k := -period; k <= period; k++ {
		x := float64(k) * 32.0 / float64(period)
		kernel[k+period] = math.Exp(-0.5 * x * x)
	}

	score := make([]float64, len(onset))
	for i := range onset {
		sum := 0.0
		for k := -period; k <= period; k++ {
			if j := i + k; j >= 0 && j < len(onset) {
				sum += onset[j] / norm * kernel[k+period]
			}
		}
		score[i] = sum
	}
	return score
}

// dynamicProgram finds, for every frame, the best preceding beat between
// period/2 and 2*period frames back. backlink is -1 where a beat chain starts.
func (bt *BeatTracker) dynamicProgram(localScore []float64, period int, tightness float64) ([]int, []float64) {
	minGap := int(common.RoundHalfEven(float64(period) / 2))
	maxGap := 2 * period

	// candidate offsets ordered from the farthest back to the nearest
	offsets := make([]int, 0, maxGap-minGap+1)
	weights := make([]float64, 0, maxGap-minGap+1)
	for gap := maxGap; gap >= minGap; gap-- {
		offsets = append(offsets, gap)
		l := math.Log(float64(gap) / float64(period))
		weights = append(weights, -tightness*l*l)
	}

	backlink := make([]int, len(localScore))
	cumScore := make([]float64, len(localScore))
	threshold := 0.01 * common.Max(localScore)
	firstBeat := true

	for i, score := range localScore {
		bestIdx := 0
		bestValue := math.Inf(-1)
		for c, gap := range offsets {
			value := weights[c]
			if prev := i - gap; prev >= 0 {
				value += cumScore[prev]
			}
			if value > bestValue {
				bestValue = value
				bestIdx = c
			}
		}

		cumScore[i] = score + bestValue

		if firstBeat && score < threshold {
			backlink[i] = -1
		} else {
			backlink[i] = i - offsets[bestIdx]
			firstBeat = false
		}
	}

	return backlink, cumScore
}

// lastBeat picks the last local maximum of the cumulative score above half
// the median of all local maxima
func lastBeat(cumScore []float64) int {
	maxima := common.LocalMaxima(cumScore)

	var peaks []float64
	for i, isMax := range maxima {
		if isMax {
			peaks = append(peaks, cumScore[i])
		}
	}
	if len(peaks) == 0 {
		return argmax(cumScore)
	}
	median := common.Median(peaks)

	for i := len(cumScore) - 1; i >= 0; i-- {
		value := 0.0
		if maxima[i] {
			value = cumScore[i]
		}
		if 2*value > median {
			return i
		}
	}
	return argmax(cumScore)
}

// trimBeats drops weak beats at the start and end of the track, where the
// smoothed local score falls below half its RMS
func (bt *BeatTracker) trimBeats(localScore []float64, beats []int) []int {
	if len(beats) == 0 {
		return beats
	}

	kernel := windowing.NewHann(5, true).Coefficients()
	half := len(kernel) / 2

	smoothed := make([]float64, len(beats))
	for j := range beats {
		sum := 0.0
		for k, w := range kernel {
			if idx := j + k - half; idx >= 0 && idx < len(beats) {
				sum += localScore[beats[idx]] * w
			}
		}
		smoothed[j] = sum
	}

	threshold := 0.5 * common.RMS(smoothed)

	first, last := -1, -1
	for j, v := range smoothed {
		if v > threshold {
			if first < 0 {
				first = j
			}
			last = j
		}
	}
	if first < 0 {
		return []int{}
	}

	// the last strong beat closes the range
	return beats[first:last]
}

func hasEnergy(x []float64) bool {
	for _, v := range x {
		if v != 0 {
			return true
		}
	}
	return false
}

func argmax(x []float64) int {
	best := 0
	for i, v := range x {
		if v > x[best] {
			best = i
		}
	}
	return best
}
