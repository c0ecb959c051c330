package temporal

import (
	"math"
)

// Envelope provides amplitude envelope extraction
type Envelope struct{}

// NewEnvelope creates a new envelope extractor
func NewEnvelope() *Envelope {
	return &Envelope{}
}

// ComputeRMS computes the RMS envelope of frames starting at i*hopSize.
// Trailing samples that do not fill a frame are dropped.
func (e *Envelope) ComputeRMS(signal []float64, frameSize, hopSize int) []float64 {
	if len(signal) < frameSize || frameSize <= 0 || hopSize <= 0 {
		return []float64{}
	}

	numFrames := (len(signal)-frameSize)/hopSize + 1
	envelope := make([]float64, numFrames)

	for i := range numFrames {
		startIdx := i * hopSize
		envelope[i] = frameRMS(signal[startIdx : startIdx+frameSize])
	}

	return envelope
}

// ComputeRMSCentered computes the RMS envelope with frame i centered on
// sample i*hopSize. The signal is padded with frameSize/2 zeros on both
// sides, giving 1 + len(signal)/hopSize frames for even frame sizes.
func (e *Envelope) ComputeRMSCentered(signal []float64, frameSize, hopSize int) []float64 {
	if len(signal) == 0 || frameSize <= 0 || hopSize <= 0 {
		return []float64{}
	}

	pad := frameSize / 2
	padded := make([]float64, len(signal)+2*pad)
	copy(padded[pad:], signal)

	return e.ComputeRMS(padded, frameSize, hopSize)
}

// ComputePeak computes peak envelope (maximum absolute value per frame)
func (e *Envelope) ComputePeak(signal []float64, frameSize, hopSize int) []float64 {
	if len(signal) < frameSize || frameSize <= 0 || hopSize <= 0 {
		return []float64{}
	}

	numFrames := (len(signal)-frameSize)/hopSize + 1
	envelope := make([]float64, numFrames)

	for i := range numFrames {
		startIdx := i * hopSize
		peak := 0.0
		for _, v := range signal[startIdx : startIdx+frameSize] {
			peak = math.Max(peak, math.Abs(v))
		}
		envelope[i] = peak
	}

	return envelope
}

func frameRMS(frame []float64) float64 {
	sumSquares := 0.0
	for _, v := range frame {
		sumSquares += v * v
	}
	return math.Sqrt(sumSquares / float64(len(frame)))
}
