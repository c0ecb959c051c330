package stats

import (
	"math"
	"testing"
)

func TestLinearMatchesNumpy(t *testing.T) {
	data := []float64{15, 20, 35, 40, 50}
	p := NewPercentiles()

	// numpy.percentile(data, q) with the default method
	tests := []struct {
		q, want float64
	}{
		{0, 15},
		{25, 20},
		{40, 29},
		{50, 35},
		{90, 46},
		{100, 50},
	}
	for _, tt := range tests {
		got, err := p.CalculatePercentile(data, tt.q)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("percentile(%v) = %v, want %v", tt.q, got, tt.want)
		}
	}
}

func TestMethods(t *testing.T) {
	data := []float64{4, 1, 3, 2} // sorted: 1 2 3 4, h = 3*0.5 = 1.5
	tests := []struct {
		method PercentileMethod
		want   float64
	}{
		{Linear, 2.5},
		{Lower, 2},
		{Higher, 3},
		{Midpoint, 2.5},
		{Nearest, 3}, // 1.5 rounds to the even rank 2
	}
	for _, tt := range tests {
		got, err := NewPercentilesWithMethod(tt.method).CalculatePercentile(data, 50)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("%s median = %v, want %v", NewPercentilesWithMethod(tt.method).MethodName(), got, tt.want)
		}
	}
}

func TestDoesNotModifyInput(t *testing.T) {
	data := []float64{3, 1, 2}
	if _, err := NewPercentiles().CalculatePercentile(data, 50); err != nil {
		t.Fatal(err)
	}
	if data[0] != 3 || data[1] != 1 || data[2] != 2 {
		t.Errorf("input reordered: %v", data)
	}
}

func TestErrors(t *testing.T) {
	p := NewPercentiles()
	if _, err := p.CalculatePercentile(nil, 50); err == nil {
		t.Error("expected error for empty data")
	}
	for _, q := range []float64{-1, 100.5, math.NaN()} {
		if _, err := p.CalculatePercentile([]float64{1}, q); err == nil {
			t.Errorf("expected error for percentile %v", q)
		}
	}
	if _, err := ParsePercentileMethod("cubic"); err == nil {
		t.Error("expected error for unknown method")
	}
}

func TestCalculatePercentiles(t *testing.T) {
	got, err := NewPercentiles().CalculatePercentiles([]float64{1, 2, 3, 4, 5}, []float64{0, 50, 100})
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 1 || got[50] != 3 || got[100] != 5 {
		t.Errorf("got %v", got)
	}
}

func TestSingleValue(t *testing.T) {
	got, err := NewPercentilesWithMethod(Higher).CalculatePercentile([]float64{7}, 99)
	if err != nil || got != 7 {
		t.Errorf("got %v, %v", got, err)
	}
}
