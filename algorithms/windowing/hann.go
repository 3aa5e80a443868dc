package windowing

import (
	"github.com/mjibson/go-dsp/window"
)

// Hann is the symmetric Hann window, w[j] = 0.5·(1 − cos(2πj/(N−1))), the
// taper used for key analysis
type Hann struct {
	taper
}

// NewHann creates a new Hann window
func NewHann(size int) *Hann {
	h := &Hann{taper: taper{kind: KindHann}}
	h.coefficients = generate(window.Hann, size)
	return h
}
