package spectral

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"github.com/RyanBlaney/sonido-key/algorithms/common"
)

// Spectrum is a complex frequency-domain frame. Bin k corresponds to
// k·sampleRate/len(Spectrum) Hz.
type Spectrum []complex128

// BinFrequency returns the physical frequency of bin k
func (s Spectrum) BinFrequency(k int, sampleRate int) float64 {
	if len(s) == 0 {
		return 0
	}
	return float64(k) * float64(sampleRate) / float64(len(s))
}

// Magnitudes returns |X[k]| for every bin
func (s Spectrum) Magnitudes() []float64 {
	return common.Magnitudes(s)
}

// IsZero reports whether every bin is exactly zero
func (s Spectrum) IsZero() bool {
	for _, v := range s {
		if v != 0 {
			return false
		}
	}
	return true
}

// Transformer computes the forward DFT X[k] = Σₙ x[n]·e^(−2πi·k·n/N),
// unnormalized. Implementations do not modify their input.
type Transformer interface {
	Transform(window []complex128) []complex128
	Name() string
}

// Mode selects a transform implementation
type Mode int

const (
	// ModeFast is the recursive radix-2 FFT (default)
	ModeFast Mode = iota
	// ModeDirect is the O(N²) reference DFT
	ModeDirect
	// ModeGoDSP delegates to mjibson/go-dsp
	ModeGoDSP
	// ModeGonum delegates to gonum's dsp/fourier
	ModeGonum
)

func (m Mode) String() string {
	switch m {
	case ModeFast:
		return "fft"
	case ModeDirect:
		return "dft"
	case ModeGoDSP:
		return "godsp"
	case ModeGonum:
		return "gonum"
	default:
		return "unknown"
	}
}

// ParseMode resolves a mode name. The empty string selects ModeFast.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "fft", "fast":
		return ModeFast, nil
	case "dft", "direct":
		return ModeDirect, nil
	case "godsp", "go-dsp":
		return ModeGoDSP, nil
	case "gonum":
		return ModeGonum, nil
	default:
		return ModeFast, fmt.Errorf("unknown transform mode %q", name)
	}
}

// NewTransformer returns a fresh transformer for mode. Transformers may hold
// per-size plans, so concurrent callers should each own one.
func NewTransformer(mode Mode) Transformer {
	switch mode {
	case ModeDirect:
		return NewDirectDFT()
	case ModeGoDSP:
		return NewGoDSPFFT()
	case ModeGonum:
		return NewGonumFFT()
	default:
		return NewFFT()
	}
}

// twiddle returns e^(−2πi·k/n)
func twiddle(k, n int) complex128 {
	return cmplx.Rect(1, -2*math.Pi*float64(k)/float64(n))
}

// RealToComplex widens a real frame into a complex one
func RealToComplex(x []float64) []complex128 {
	out := make([]complex128, len(x))
	for i, v := range x {
		out[i] = complex(v, 0)
	}
	return out
}
