package common

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic numeric helpers shared by the spectral, chroma and tonal packages.
// Statistics go through gonum.

// Correlation calculates the Pearson correlation coefficient between two
// series. Unlike most helpers here it does not guard the degenerate case:
// a zero-variance series yields NaN, and callers rely on that.
func Correlation(x, y []float64) float64 {
	if len(x) != len(y) || len(x) == 0 {
		return math.NaN()
	}
	return stat.Correlation(x, y, nil)
}

// Sum returns the sum of data
func Sum(data []float64) float64 {
	return floats.Sum(data)
}

// ArgMax returns the index of the largest element, or -1 for an empty slice
func ArgMax(data []float64) int {
	if len(data) == 0 {
		return -1
	}
	return floats.MaxIdx(data)
}

// Magnitudes returns |x| for every element of a complex spectrum
func Magnitudes(spectrum []complex128) []float64 {
	mags := make([]float64, len(spectrum))
	for i, v := range spectrum {
		mags[i] = cmplx.Abs(v)
	}
	return mags
}

// IsPowerOfTwo checks if n is a power of 2
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Mod returns a modulo n in the range [0, n) for any sign of a
func Mod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}
