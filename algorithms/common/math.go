package common

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic numeric helpers used across algorithms, backed by gonum where it has one

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// StandardDeviation calculates the sample (n-1) standard deviation
func StandardDeviation(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	return stat.StdDev(data, nil)
}

// Max returns the largest value, or 0 for empty input
func Max(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return floats.Max(data)
}

// RMS calculates root mean square
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return math.Sqrt(floats.Dot(data, data) / float64(len(data)))
}

// RoundHalfEven rounds to the nearest integer, ties to the even neighbour
// (2.5 -> 2, 3.5 -> 4). All index rounding in this module uses it.
func RoundHalfEven(x float64) float64 {
	return math.RoundToEven(x)
}

// RoundIndex rounds x half-to-even and clamps the result into [0, n-1].
// n must be positive.
func RoundIndex(x float64, n int) int {
	if math.IsNaN(x) {
		return 0
	}
	idx := RoundHalfEven(x)
	if idx < 0 {
		return 0
	}
	if idx > float64(n-1) {
		return n - 1
	}
	return int(idx)
}

// Arange returns start, start+step, ... stopping before stop. The element
// count is ceil((stop-start)/step); values are start+i*step so no error
// accumulates along long ranges.
func Arange(start, stop, step float64) []float64 {
	if step <= 0 || stop <= start {
		return []float64{}
	}

	n := int(math.Ceil((stop - start) / step))
	values := make([]float64, n)
	for i := range n {
		values[i] = start + float64(i)*step
	}
	return values
}

// LocalMaxima marks x[i] as a peak when x[i] > x[i-1] and x[i] >= x[i+1].
// Edges compare against themselves, so the first sample is never a peak and
// the last one is a peak when it rises.
func LocalMaxima(x []float64) []bool {
	peaks := make([]bool, len(x))
	for i := range x {
		left := x[i]
		if i > 0 {
			left = x[i-1]
		}
		right := x[i]
		if i < len(x)-1 {
			right = x[i+1]
		}
		peaks[i] = x[i] > left && x[i] >= right
	}
	return peaks
}

// Median returns the median of data without modifying it
func Median(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2.0
	}
	return sorted[mid]
}
