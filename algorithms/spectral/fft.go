package spectral

import (
	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/RyanBlaney/sonido-key/algorithms/common"
)

// FFT is the recursive Cooley-Tukey transform: even/odd decimation down to
// single samples, O(N log N). Input lengths must be powers of two; other
// lengths are handed to the direct transform.
type FFT struct {
	direct *DirectDFT
}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{direct: NewDirectDFT()}
}

// Name implements Transformer
func (f *FFT) Name() string {
	return ModeFast.String()
}

// Transform computes the forward transform of window
func (f *FFT) Transform(window []complex128) []complex128 {
	if len(window) > 1 && !common.IsPowerOfTwo(len(window)) {
		return f.direct.Transform(window)
	}
	return recursiveFFT(window)
}

// Compute transforms a real frame
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return f.Transform(RealToComplex(x))
}

func recursiveFFT(x []complex128) []complex128 {
	n := len(x)
	if n <= 1 {
		out := make([]complex128, n)
		copy(out, x)
		return out
	}

	half := n / 2

	// Divide
	even := make([]complex128, half)
	odd := make([]complex128, half)
	for i := range half {
		even[i] = x[2*i]
		odd[i] = x[2*i+1]
	}

	// Conquer
	evenFFT := recursiveFFT(even)
	oddFFT := recursiveFFT(odd)

	// Combine
	result := make([]complex128, n)
	for k := range half {
		t := twiddle(k, n) * oddFFT[k]
		result[k] = evenFFT[k] + t
		result[k+half] = evenFFT[k] - t
	}

	return result
}

// GoDSPFFT computes the transform with mjibson/go-dsp. It accepts any
// length.
type GoDSPFFT struct{}

// NewGoDSPFFT creates a go-dsp backed transformer
func NewGoDSPFFT() *GoDSPFFT {
	return &GoDSPFFT{}
}

// Name implements Transformer
func (g *GoDSPFFT) Name() string {
	return ModeGoDSP.String()
}

// Transform computes the forward transform of window
func (g *GoDSPFFT) Transform(window []complex128) []complex128 {
	if len(window) == 0 {
		return []complex128{}
	}
	return fft.FFT(window)
}

// GonumFFT computes the transform with gonum's dsp/fourier. The plan for the
// last seen size is kept between calls.
type GonumFFT struct {
	plan *fourier.CmplxFFT
}

// NewGonumFFT creates a gonum backed transformer
func NewGonumFFT() *GonumFFT {
	return &GonumFFT{}
}

// Name implements Transformer
func (g *GonumFFT) Name() string {
	return ModeGonum.String()
}

// Transform computes the forward transform of window
func (g *GonumFFT) Transform(window []complex128) []complex128 {
	if len(window) == 0 {
		return []complex128{}
	}
	if g.plan == nil || g.plan.Len() != len(window) {
		g.plan = fourier.NewCmplxFFT(len(window))
	}
	return g.plan.Coefficients(nil, window)
}
