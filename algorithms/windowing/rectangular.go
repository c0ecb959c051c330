package windowing

// Rectangular (boxcar) leaves frames untouched
type Rectangular struct {
	size         int
	coefficients []float64
}

// NewRectangular creates a new rectangular window
func NewRectangular(size int) *Rectangular {
	return &Rectangular{
		size:         size,
		coefficients: cosineSum(size, false, 1, 0, 0),
	}
}

func (r *Rectangular) ApplyInPlace(signal []float64) error { return applyCoefficients(r.coefficients, signal) }
func (r *Rectangular) Coefficients() []float64             { return copyCoefficients(r.coefficients) }
func (r *Rectangular) Size() int                           { return r.size }
