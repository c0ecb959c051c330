package windowing

import (
	"fmt"
	"math"
	"strings"
)

// Window is a fixed set of coefficients applied by element-wise product
type Window interface {
	ApplyInPlace(signal []float64) error
	Coefficients() []float64
	Size() int
}

// New returns the periodic analysis window called name. An empty name
// selects Hann.
func New(name string, size int) (Window, error) {
	if size <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", size)
	}

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "hann", "hanning":
		return NewPeriodicHann(size), nil
	case "hamming":
		return NewHamming(size, false), nil
	case "blackman":
		return NewBlackman(size, false), nil
	case "rectangular", "boxcar", "ones":
		return NewRectangular(size), nil
	default:
		return nil, fmt.Errorf("unknown window %q", name)
	}
}

// cosineSum fills a generalized cosine window: a0 - a1*cos(x) + a2*cos(2x)
// with x stepping 2*pi/N (periodic) or 2*pi/(N-1) (symmetric)
func cosineSum(size int, symmetric bool, a0, a1, a2 float64) []float64 {
	if size <= 0 {
		return []float64{}
	}
	if size == 1 {
		return []float64{1}
	}

	denominator := float64(size)
	if symmetric {
		denominator = float64(size - 1)
	}

	coefficients := make([]float64, size)
	for i := range size {
		x := 2 * math.Pi * float64(i) / denominator
		coefficients[i] = a0 - a1*math.Cos(x) + a2*math.Cos(2*x)
	}
	return coefficients
}

func applyCoefficients(coefficients, signal []float64) error {
	if len(signal) != len(coefficients) {
		return fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), len(coefficients))
	}
	for i, c := range coefficients {
		signal[i] *= c
	}
	return nil
}

func copyCoefficients(coefficients []float64) []float64 {
	out := make([]float64, len(coefficients))
	copy(out, coefficients)
	return out
}
