package windowing

import (
	"fmt"
	"strings"
)

// Window is a taper applied to an analysis frame before the transform
type Window interface {
	ApplyInPlace(signal []float64) error
	GetType() string
}

// Kind names a window family
type Kind string

const (
	KindHann        Kind = "hann"
	KindHamming     Kind = "hamming"
	KindBlackman    Kind = "blackman"
	KindRectangular Kind = "rectangular"
)

// ParseKind resolves a window name. The empty string selects Hann.
func ParseKind(name string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(name))) {
	case "", KindHann, "hanning":
		return KindHann, nil
	case KindHamming:
		return KindHamming, nil
	case KindBlackman:
		return KindBlackman, nil
	case KindRectangular, "none", "boxcar":
		return KindRectangular, nil
	default:
		return KindHann, fmt.Errorf("unknown window type %q", name)
	}
}

// New builds a symmetric window of the given kind and size. Unknown kinds
// fall back to Hann.
func New(kind Kind, size int) Window {
	switch kind {
	case KindHamming:
		return NewHamming(size)
	case KindBlackman:
		return NewBlackman(size)
	case KindRectangular:
		return NewRectangular(size)
	default:
		return NewHann(size)
	}
}

// taper holds precomputed coefficients and implements Window for every kind
type taper struct {
	kind         Kind
	coefficients []float64
}

// ApplyInPlace applies the window to a signal in-place
func (t *taper) ApplyInPlace(signal []float64) error {
	if len(signal) != len(t.coefficients) {
		return fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), len(t.coefficients))
	}

	for i, c := range t.coefficients {
		signal[i] *= c
	}

	return nil
}

// GetType returns the window type
func (t *taper) GetType() string {
	return string(t.kind)
}

// generate returns the symmetric coefficients produced by gen, or an empty
// window for a non-positive size
func generate(gen func(int) []float64, size int) []float64 {
	if size <= 0 {
		return []float64{}
	}
	return gen(size)
}
