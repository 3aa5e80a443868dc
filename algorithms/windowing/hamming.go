package windowing

import (
	"github.com/mjibson/go-dsp/window"
)

// Hamming represents a symmetric Hamming window function
type Hamming struct {
	taper
}

// NewHamming creates a new Hamming window
func NewHamming(size int) *Hamming {
	h := &Hamming{taper: taper{kind: KindHamming}}
	h.coefficients = generate(window.Hamming, size)
	return h
}
