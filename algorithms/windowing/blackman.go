package windowing

import (
	"github.com/mjibson/go-dsp/window"
)

// Blackman represents a symmetric Blackman window function (a0=0.42,
// a1=0.5, a2=0.08)
type Blackman struct {
	taper
}

// NewBlackman creates a new Blackman window
func NewBlackman(size int) *Blackman {
	b := &Blackman{taper: taper{kind: KindBlackman}}
	b.coefficients = generate(window.Blackman, size)
	return b
}
