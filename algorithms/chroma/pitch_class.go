package chroma

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-key/algorithms/common"
	"github.com/RyanBlaney/sonido-key/algorithms/spectral"
	"github.com/RyanBlaney/sonido-key/logging"
)

const (
	// NumPitchClasses is the size of a pitch class histogram
	NumPitchClasses = 12

	// DefaultReferencePitch is the frequency of A4 (MIDI 69) in Hz
	DefaultReferencePitch = 440.0
	// DefaultMinFrequency and DefaultMaxFrequency bound the band folded
	// into the histogram, in Hz
	DefaultMinFrequency = 20.0
	DefaultMaxFrequency = 5000.0
)

var pitchClassNames = [NumPitchClasses]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// PitchClassNames returns the note names indexed by pitch class (0=C)
func PitchClassNames() [NumPitchClasses]string {
	return pitchClassNames
}

// PitchClassName returns the note name of pitch class i
func PitchClassName(i int) (string, error) {
	if i < 0 || i >= NumPitchClasses {
		return "", fmt.Errorf("invalid pitch number %d, valid pitch numbers are 0 (C) to 11 (B)", i)
	}
	return pitchClassNames[i], nil
}

// NameOrDefault returns the note name of pitch class i, or "C" with a
// warning when i is out of range
func NameOrDefault(i int) string {
	name, err := PitchClassName(i)
	if err != nil {
		logging.WithFields(logging.Fields{
			"component": "chroma",
			"function":  "NameOrDefault",
		}).Warn("Invalid pitch number, displaying pitch 'C'", logging.Fields{
			"pitch": i,
			"error": err.Error(),
		})
		return pitchClassNames[0]
	}
	return name
}

// PitchHistogram holds spectral energy folded into 12 pitch classes, index
// 0 = C
type PitchHistogram [NumPitchClasses]float64

// Sum returns the total energy in the histogram
func (h PitchHistogram) Sum() float64 {
	return common.Sum(h[:])
}

// Normalized returns a copy scaled to sum to 1. A zero histogram is returned
// unchanged.
func (h PitchHistogram) Normalized() PitchHistogram {
	total := h.Sum()
	if total == 0 {
		return h
	}
	for i := range h {
		h[i] /= total
	}
	return h
}

// Dominant returns the pitch class holding the most energy, or -1 for an
// all-zero histogram
func (h PitchHistogram) Dominant() int {
	if h.Sum() == 0 {
		return -1
	}
	return common.ArgMax(h[:])
}

// Binning selects how the upper neighbour of a fractional MIDI number is
// chosen
type Binning int

const (
	// BinningStrict sends the fractional weight to floor(midi)+1
	BinningStrict Binning = iota
	// BinningRounded sends it to round(midi). When frac < 0.5 that is
	// floor(midi), so the whole amplitude lands on one pitch class.
	BinningRounded
)

func (b Binning) String() string {
	if b == BinningRounded {
		return "rounded"
	}
	return "strict"
}

// ParseBinning resolves a binning name; the empty string selects strict
func ParseBinning(name string) (Binning, error) {
	switch name {
	case "", "strict":
		return BinningStrict, nil
	case "rounded", "round":
		return BinningRounded, nil
	default:
		return BinningStrict, fmt.Errorf("unknown binning %q", name)
	}
}

// HistogramBuilder folds an averaged spectrum into a pitch class histogram
type HistogramBuilder struct {
	SampleRate     int
	ReferencePitch float64
	MinFrequency   float64
	MaxFrequency   float64
	Binning        Binning
}

// NewHistogramBuilder returns a builder with A4 = 440 Hz and the 20-5000 Hz
// analysis band
func NewHistogramBuilder(sampleRate int) *HistogramBuilder {
	return &HistogramBuilder{
		SampleRate:     sampleRate,
		ReferencePitch: DefaultReferencePitch,
		MinFrequency:   DefaultMinFrequency,
		MaxFrequency:   DefaultMaxFrequency,
	}
}

// MidiNumber maps a frequency to a fractional MIDI note number
func (b *HistogramBuilder) MidiNumber(freq float64) float64 {
	return 69 + 12*math.Log2(freq/b.ReferencePitch)
}

// Neighbours returns the two pitch classes a frequency contributes to and
// the weight carried by the upper one
func (b *HistogramBuilder) Neighbours(freq float64) (lower, upper int, frac float64) {
	midi := b.MidiNumber(freq)
	floor := math.Floor(midi)
	frac = midi - floor

	hi := floor + 1
	if b.Binning == BinningRounded {
		hi = math.Round(midi)
	}

	return common.Mod(int(floor), NumPitchClasses), common.Mod(int(hi), NumPitchClasses), frac
}

// Build folds the positive-frequency half of spectrum into a histogram. Bin
// 0 and the Nyquist half are skipped, as is anything outside
// [MinFrequency, MaxFrequency].
func (b *HistogramBuilder) Build(spectrum spectral.Spectrum) PitchHistogram {
	var hist PitchHistogram

	n := len(spectrum)
	if n == 0 || b.SampleRate <= 0 || b.ReferencePitch <= 0 {
		return hist
	}

	for k := 1; k < n/2; k++ {
		f := spectrum.BinFrequency(k, b.SampleRate)
		if f < b.MinFrequency || f > b.MaxFrequency {
			continue
		}

		lower, upper, frac := b.Neighbours(f)
		amplitude := math.Hypot(real(spectrum[k]), imag(spectrum[k]))

		hist[lower] += amplitude * (1 - frac)
		hist[upper] += amplitude * frac
	}

	return hist
}
