package windowing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// coefficients recovers a window's taper by applying it to a constant signal
func coefficients(t *testing.T, w Window, size int) []float64 {
	t.Helper()
	signal := make([]float64, size)
	for i := range signal {
		signal[i] = 1
	}
	require.NoError(t, w.ApplyInPlace(signal))
	return signal
}

func TestHannMatchesRaisedCosine(t *testing.T) {
	const size = 128
	coeffs := coefficients(t, NewHann(size), size)

	for j, c := range coeffs {
		want := 0.5 * (1 - math.Cos(2*math.Pi*float64(j)/float64(size-1)))
		assert.InDelta(t, want, c, 1e-12, "coefficient %d", j)
	}
	assert.InDelta(t, 0.0, coeffs[0], 1e-12)
	assert.InDelta(t, 0.0, coeffs[size-1], 1e-12)
}

func TestApplyInPlaceRejectsLengthMismatch(t *testing.T) {
	w := New(KindHann, 4)
	assert.Error(t, w.ApplyInPlace(make([]float64, 3)))
	assert.Error(t, w.ApplyInPlace(make([]float64, 5)))
}

func TestRectangularIsIdentity(t *testing.T) {
	w := New(KindRectangular, 8)
	signal := []float64{1, -2, 3, -4, 5, -6, 7, -8}
	want := append([]float64(nil), signal...)

	require.NoError(t, w.ApplyInPlace(signal))
	assert.Equal(t, want, signal)
	assert.Equal(t, "rectangular", w.GetType())
}

func TestEmptyWindow(t *testing.T) {
	for _, kind := range []Kind{KindHann, KindHamming, KindBlackman, KindRectangular} {
		assert.NoError(t, New(kind, 0).ApplyInPlace(nil), "%s", kind)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"", KindHann, false},
		{"Hann", KindHann, false},
		{"hamming", KindHamming, false},
		{"blackman", KindBlackman, false},
		{"none", KindRectangular, false},
		{"kaiser", KindHann, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWindowsAreSymmetric(t *testing.T) {
	for _, kind := range []Kind{KindHann, KindHamming, KindBlackman} {
		w := New(kind, 33)
		coeffs := coefficients(t, w, 33)
		for i := range coeffs {
			assert.InDelta(t, coeffs[i], coeffs[len(coeffs)-1-i], 1e-12, "%s[%d]", kind, i)
		}
		assert.Equal(t, string(kind), w.GetType())
	}
}
