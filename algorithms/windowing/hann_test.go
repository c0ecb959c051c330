package windowing

import (
	"math"
	"testing"
)

func TestPeriodicHannShape(t *testing.T) {
	h := NewPeriodicHann(8)
	c := h.Coefficients()

	if c[0] != 0 {
		t.Errorf("first coefficient = %v, want 0", c[0])
	}
	// periodic window peaks at N/2 and is symmetric around it
	if math.Abs(c[4]-1) > 1e-12 {
		t.Errorf("c[N/2] = %v, want 1", c[4])
	}
	for i := 1; i < 4; i++ {
		if math.Abs(c[i]-c[8-i]) > 1e-12 {
			t.Errorf("c[%d]=%v != c[%d]=%v", i, c[i], 8-i, c[8-i])
		}
	}
}

func TestPeriodicHannConstantOverlapAdd(t *testing.T) {
	const n = 64
	c := NewPeriodicHann(n).Coefficients()
	hop := n / 4

	// sum of shifted windows is flat (= 2 for hop N/4)
	for i := range hop {
		sum := 0.0
		for k := 0; k < n/hop; k++ {
			sum += c[i+k*hop]
		}
		if math.Abs(sum-2) > 1e-9 {
			t.Errorf("overlap-add at %d = %v, want 2", i, sum)
		}
	}
}

func TestSymmetricHannEndpoints(t *testing.T) {
	c := NewHann(9, true).Coefficients()
	if c[0] != 0 || math.Abs(c[8]) > 1e-12 {
		t.Errorf("symmetric endpoints = %v, %v, want 0, 0", c[0], c[8])
	}
}

func TestApplyInPlace(t *testing.T) {
	h := NewPeriodicHann(4)
	signal := []float64{1, 1, 1, 1}
	if err := h.ApplyInPlace(signal); err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 0.5, 1, 0.5}
	for i := range want {
		if math.Abs(signal[i]-want[i]) > 1e-12 {
			t.Errorf("signal[%d] = %v, want %v", i, signal[i], want[i])
		}
	}

	if err := h.ApplyInPlace([]float64{1, 2}); err == nil {
		t.Error("expected size mismatch error")
	}
}

func TestDegenerateSizes(t *testing.T) {
	if got := NewPeriodicHann(0).Size(); got != 0 {
		t.Errorf("size = %d", got)
	}
	if c := NewPeriodicHann(1).Coefficients(); len(c) != 1 || c[0] != 1 {
		t.Errorf("single-sample window = %v", c)
	}
}

func TestNamedWindows(t *testing.T) {
	tests := []struct {
		name        string
		first, peak float64
	}{
		{"hann", 0, 1},
		{"", 0, 1},
		{"Hamming", 0.08, 1},
		{"blackman", 0, 1},
		{"boxcar", 1, 1},
	}

	for _, tt := range tests {
		w, err := New(tt.name, 16)
		if err != nil {
			t.Fatalf("New(%q): %v", tt.name, err)
		}
		c := w.Coefficients()
		if w.Size() != 16 || len(c) != 16 {
			t.Fatalf("%q: size %d, %d coefficients", tt.name, w.Size(), len(c))
		}
		if math.Abs(c[0]-tt.first) > 1e-12 || math.Abs(c[8]-tt.peak) > 1e-12 {
			t.Errorf("%q: c[0] = %v, c[N/2] = %v, want %v, %v", tt.name, c[0], c[8], tt.first, tt.peak)
		}
	}

	if _, err := New("kaiser", 16); err == nil {
		t.Error("expected error for unknown window")
	}
	if _, err := New("hann", 0); err == nil {
		t.Error("expected error for empty window")
	}
}
