package windowing

// Rectangular represents a rectangular (boxcar) window function. Selecting
// it disables tapering.
type Rectangular struct {
	taper
}

// NewRectangular creates a new rectangular window
func NewRectangular(size int) *Rectangular {
	if size < 0 {
		size = 0
	}

	r := &Rectangular{taper: taper{kind: KindRectangular}}
	r.coefficients = make([]float64, size)
	for i := range r.coefficients {
		r.coefficients[i] = 1.0
	}
	return r
}
