package spectral

import (
	"math"
)

// MelScale provides mel frequency conversion and triangular filter banks
type MelScale struct{}

// NewMelScale creates a new mel scale converter
func NewMelScale() *MelScale {
	return &MelScale{}
}

// HzToMel converts frequency in Hz to mel scale
func (ms *MelScale) HzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// MelToHz converts mel scale to frequency in Hz
func (ms *MelScale) MelToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// CreateMelFilterBank creates numFilters triangular filters over the
// windowSize/2+1 bins of an FFT, spaced evenly on the mel scale between
// lowFreq and highFreq.
func (ms *MelScale) CreateMelFilterBank(numFilters int, windowSize int, sampleRate int, lowFreq, highFreq float64) [][]float64 {
	if numFilters <= 0 || windowSize <= 0 {
		return nil
	}

	lowMel := ms.HzToMel(lowFreq)
	highMel := ms.HzToMel(highFreq)
	melStep := (highMel - lowMel) / float64(numFilters+1)

	binPoints := make([]int, numFilters+2)
	for i := range binPoints {
		hz := ms.MelToHz(lowMel + float64(i)*melStep)
		bin := int(math.Floor((float64(windowSize)+1.0)*hz/float64(sampleRate) + 0.5))
		binPoints[i] = min(bin, windowSize/2)
	}

	bins := windowSize/2 + 1
	filterBank := make([][]float64, numFilters)
	for m := range numFilters {
		filter := make([]float64, bins)
		left, center, right := binPoints[m], binPoints[m+1], binPoints[m+2]

		for k := left; k < center; k++ {
			filter[k] = float64(k-left) / float64(center-left)
		}
		for k := center; k < right; k++ {
			filter[k] = float64(right-k) / float64(right-center)
		}
		// degenerate triangles (narrow low bands) keep their center bin
		if left == center || center == right {
			filter[center] = 1
		}

		filterBank[m] = filter
	}

	return filterBank
}

// MelPowerFrames maps every magnitude frame of an STFT onto the filter bank,
// returning Time x Mel power.
func (ms *MelScale) MelPowerFrames(stft *STFTResult, numFilters int, lowFreq, highFreq float64) [][]float64 {
	filterBank := ms.CreateMelFilterBank(numFilters, stft.WindowSize, stft.SampleRate, lowFreq, highFreq)

	frames := make([][]float64, len(stft.Magnitude))
	power := make([]float64, stft.FreqBins)

	for t, magnitude := range stft.Magnitude {
		for k, m := range magnitude {
			power[k] = m * m
		}

		mel := make([]float64, len(filterBank))
		for i, filter := range filterBank {
			sum := 0.0
			for k, w := range filter {
				if w != 0 {
					sum += power[k] * w
				}
			}
			mel[i] = sum
		}
		frames[t] = mel
	}

	return frames
}
