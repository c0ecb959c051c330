package stats

import (
	"fmt"
	"math"
	"sort"
)

// PercentileMethod selects how a percentile falling between two ranks is resolved
type PercentileMethod int

const (
	// Linear interpolation between the two closest ranks (numpy default)
	Linear PercentileMethod = iota

	// Lower of the two closest ranks
	Lower

	// Higher of the two closest ranks
	Higher

	// Midpoint of the two closest ranks
	Midpoint

	// Nearest rank, ties to the even rank
	Nearest
)

// Percentiles computes percentiles over the virtual rank position
// h = (n-1) * p/100 of the sorted data, so the 0th percentile is the minimum
// and the 100th the maximum for every method.
//
// References:
//   - Hyndman, R.J., Fan, Y. (1996). "Sample Quantiles in Statistical Packages"
//     The American Statistician, 50(4), 361-365 (definition 7 for Linear)
type Percentiles struct {
	method PercentileMethod
}

// NewPercentiles creates a new percentile calculator using linear interpolation
func NewPercentiles() *Percentiles {
	return &Percentiles{method: Linear}
}

// NewPercentilesWithMethod creates a percentile calculator with the given method
func NewPercentilesWithMethod(method PercentileMethod) *Percentiles {
	return &Percentiles{method: method}
}

// CalculatePercentile computes a single percentile (0-100) of data.
// data is not modified.
func (p *Percentiles) CalculatePercentile(data []float64, percentile float64) (float64, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("empty data")
	}

	if math.IsNaN(percentile) || percentile < 0 || percentile > 100 {
		return 0, fmt.Errorf("percentile must be between 0 and 100, got %v", percentile)
	}

	values := make([]float64, len(data))
	copy(values, data)
	sort.Float64s(values)

	return p.fromSorted(values, percentile), nil
}

// CalculatePercentiles computes several percentiles with a single sort
func (p *Percentiles) CalculatePercentiles(data []float64, percentiles []float64) (map[float64]float64, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty data")
	}

	values := make([]float64, len(data))
	copy(values, data)
	sort.Float64s(values)

	result := make(map[float64]float64, len(percentiles))
	for _, pct := range percentiles {
		if math.IsNaN(pct) || pct < 0 || pct > 100 {
			return nil, fmt.Errorf("percentile must be between 0 and 100, got %v", pct)
		}
		result[pct] = p.fromSorted(values, pct)
	}

	return result, nil
}

func (p *Percentiles) fromSorted(sorted []float64, percentile float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}

	h := float64(n-1) * percentile / 100.0
	lower := int(math.Floor(h))
	upper := int(math.Ceil(h))
	lower = min(max(lower, 0), n-1)
	upper = min(max(upper, 0), n-1)

	switch p.method {
	case Lower:
		return sorted[lower]
	case Higher:
		return sorted[upper]
	case Midpoint:
		return (sorted[lower] + sorted[upper]) / 2.0
	case Nearest:
		return sorted[min(int(math.RoundToEven(h)), n-1)]
	default:
		if lower == upper {
			return sorted[lower]
		}
		fraction := h - float64(lower)
		return sorted[lower] + fraction*(sorted[upper]-sorted[lower])
	}
}

// MethodName returns a human-readable method name
func (p *Percentiles) MethodName() string {
	switch p.method {
	case Linear:
		return "linear"
	case Lower:
		return "lower"
	case Higher:
		return "higher"
	case Midpoint:
		return "midpoint"
	case Nearest:
		return "nearest"
	default:
		return "unknown"
	}
}

// ParsePercentileMethod maps a method name to a PercentileMethod
func ParsePercentileMethod(name string) (PercentileMethod, error) {
	switch name {
	case "", "linear":
		return Linear, nil
	case "lower":
		return Lower, nil
	case "higher":
		return Higher, nil
	case "midpoint":
		return Midpoint, nil
	case "nearest":
		return Nearest, nil
	default:
		return Linear, fmt.Errorf("unknown percentile method %q", name)
	}
}
