package windowing

// Hann is a raised-cosine window.
//
// The periodic form (denominator N) is the one to use for spectral analysis:
// overlapping frames at hop N/4 sum to a constant. The symmetric form
// (denominator N-1) is meant for filter design and smoothing kernels.
type Hann struct {
	size         int
	symmetric    bool
	coefficients []float64
}

// NewHann creates a new Hann window
func NewHann(size int, symmetric bool) *Hann {
	return &Hann{
		size:         size,
		symmetric:    symmetric,
		coefficients: cosineSum(size, symmetric, 0.5, 0.5, 0),
	}
}

// NewPeriodicHann creates the analysis (periodic) Hann window
func NewPeriodicHann(size int) *Hann {
	return NewHann(size, false)
}

// ApplyInPlace multiplies signal by the window
func (h *Hann) ApplyInPlace(signal []float64) error {
	return applyCoefficients(h.coefficients, signal)
}

// Coefficients returns a copy of the window coefficients
func (h *Hann) Coefficients() []float64 {
	return copyCoefficients(h.coefficients)
}

// Size returns the window length
func (h *Hann) Size() int {
	return h.size
}
