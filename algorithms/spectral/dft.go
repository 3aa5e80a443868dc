package spectral

// DirectDFT is the O(N²) reference transform. It has no size restriction and
// serves as the correctness baseline for the fast paths.
type DirectDFT struct{}

// NewDirectDFT creates a direct transformer
func NewDirectDFT() *DirectDFT {
	return &DirectDFT{}
}

// Name implements Transformer
func (d *DirectDFT) Name() string {
	return ModeDirect.String()
}

// Transform computes the forward transform of window
func (d *DirectDFT) Transform(window []complex128) []complex128 {
	n := len(window)
	result := make([]complex128, n)

	for k := range n {
		var sum complex128
		for i, x := range window {
			// k·i mod n keeps the angle small for large windows
			sum += x * twiddle((k*i)%n, n)
		}
		result[k] = sum
	}

	return result
}
