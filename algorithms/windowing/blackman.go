package windowing

// Blackman is a three-term cosine window with low leakage and a wide main lobe
type Blackman struct {
	size         int
	symmetric    bool
	coefficients []float64
}

// NewBlackman creates a new Blackman window
func NewBlackman(size int, symmetric bool) *Blackman {
	return &Blackman{
		size:         size,
		symmetric:    symmetric,
		coefficients: cosineSum(size, symmetric, 0.42, 0.5, 0.08),
	}
}

func (b *Blackman) ApplyInPlace(signal []float64) error { return applyCoefficients(b.coefficients, signal) }
func (b *Blackman) Coefficients() []float64             { return copyCoefficients(b.coefficients) }
func (b *Blackman) Size() int                           { return b.size }
