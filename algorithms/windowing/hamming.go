package windowing

// Hamming is a raised cosine that does not reach zero at the edges, trading
// sidelobe decay for a lower first sidelobe than Hann
type Hamming struct {
	size         int
	symmetric    bool
	coefficients []float64
}

// NewHamming creates a new Hamming window
func NewHamming(size int, symmetric bool) *Hamming {
	return &Hamming{
		size:         size,
		symmetric:    symmetric,
		coefficients: cosineSum(size, symmetric, 0.54, 0.46, 0),
	}
}

func (h *Hamming) ApplyInPlace(signal []float64) error { return applyCoefficients(h.coefficients, signal) }
func (h *Hamming) Coefficients() []float64             { return copyCoefficients(h.coefficients) }
func (h *Hamming) Size() int                           { return h.size }
