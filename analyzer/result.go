package analyzer

import (
	"math"
	"time"

	"github.com/RyanBlaney/sonido-key/algorithms/chroma"
	"github.com/RyanBlaney/sonido-key/algorithms/tonal"
)

// Result is the outcome of one key analysis
type Result struct {
	ID         string        `json:"id"`
	Path       string        `json:"path,omitempty"`
	SampleRate int           `json:"sample_rate,omitempty"`
	Channels   int           `json:"channels,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`

	WindowSize       int    `json:"window_size"`
	Mode             string `json:"mode"`
	Taper            string `json:"taper"`
	Binning          string `json:"binning"`
	Profiles         string `json:"profiles"`
	WindowsExpected  int    `json:"windows_expected"`
	WindowsProcessed int    `json:"windows_processed"`

	Histogram  chroma.PitchHistogram `json:"histogram"`
	Key        tonal.KeyEstimate     `json:"key"`
	KeyName    string                `json:"key_name"`
	Related    RelatedKeys           `json:"related"`
	Candidates []tonal.Candidate     `json:"candidates"`

	Cached  bool          `json:"cached"`
	Elapsed time.Duration `json:"elapsed"`
}

// RelatedKeys names the keys closest to the estimate on the circle of
// fifths
type RelatedKeys struct {
	Relative    string `json:"relative"`
	Parallel    string `json:"parallel"`
	Dominant    string `json:"dominant"`
	Subdominant string `json:"subdominant"`
}

func relatedKeys(k tonal.KeyEstimate) RelatedKeys {
	return RelatedKeys{
		Relative:    k.Relative().String(),
		Parallel:    k.Parallel().String(),
		Dominant:    k.Dominant().String(),
		Subdominant: k.Subdominant().String(),
	}
}

// finite drops candidates whose score is NaN. They only occur for a
// histogram without variance and cannot be encoded as JSON.
func finite(candidates []tonal.Candidate) []tonal.Candidate {
	out := make([]tonal.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !math.IsNaN(c.Score) {
			out = append(out, c)
		}
	}
	return out
}

// Top returns at most n of the best candidates
func (r *Result) Top(n int) []tonal.Candidate {
	return r.Candidates[:min(n, len(r.Candidates))]
}
