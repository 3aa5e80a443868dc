package tonal

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/RyanBlaney/sonido-key/algorithms/chroma"
	"github.com/RyanBlaney/sonido-key/algorithms/common"
	"github.com/RyanBlaney/sonido-key/logging"
)

// Profile is a relative weighting of the 12 pitch classes for a key with
// tonic C
type Profile [chroma.NumPitchClasses]float64

// ProfileSet selects a pair of major/minor key profiles
type ProfileSet int

const (
	// ProfileKrumhansl is the Krumhansl-Schmuckler probe tone profile pair
	// (default)
	ProfileKrumhansl ProfileSet = iota
	// ProfileTemperley is Temperley's corpus-derived pair
	ProfileTemperley
	// ProfileShaath is Sha'ath's pair tuned for popular music
	ProfileShaath
	// ProfileEDMA is the pair derived from electronic dance music
	ProfileEDMA
	// ProfileBgate is the Bgate pair
	ProfileBgate
)

type profileTemplate struct {
	name  string
	major Profile
	minor Profile
}

var profileTemplates = map[ProfileSet]profileTemplate{
	// Krumhansl-Schmuckler probe tone ratings
	ProfileKrumhansl: {
		name:  "krumhansl",
		major: Profile{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88},
		minor: Profile{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17},
	},
	// corpus-based
	ProfileTemperley: {
		name:  "temperley",
		major: Profile{5.0, 2.0, 3.5, 2.0, 4.5, 4.0, 2.0, 4.5, 2.0, 3.5, 1.5, 4.0},
		minor: Profile{5.0, 2.0, 3.5, 4.5, 2.0, 4.0, 2.0, 4.5, 3.5, 2.0, 1.5, 4.0},
	},
	ProfileShaath: {
		name:  "shaath",
		major: Profile{6.6, 2.0, 3.5, 2.3, 4.6, 4.0, 2.5, 5.2, 2.4, 3.7, 2.3, 3.4},
		minor: Profile{6.5, 2.7, 3.5, 5.4, 2.6, 3.5, 2.5, 4.7, 4.0, 2.7, 3.4, 3.2},
	},
	ProfileEDMA: {
		name:  "edma",
		major: Profile{17.7661, 0.145624, 14.9265, 0.160186, 19.8049, 11.3587, 0.291248, 22.062, 0.145624, 8.15494, 0.232998, 4.95122},
		minor: Profile{18.2648, 0.737619, 14.0499, 16.8599, 0.702494, 14.4362, 0.702494, 18.6161, 4.56621, 1.93186, 7.37619, 1.75623},
	},
	ProfileBgate: {
		name:  "bgate",
		major: Profile{16.8, 0.86, 12.95, 1.41, 13.49, 11.93, 1.25, 20.28, 1.80, 8.04, 0.62, 10.57},
		minor: Profile{18.16, 0.69, 12.99, 13.34, 1.07, 11.15, 1.38, 21.07, 7.49, 1.53, 6.24, 1.61},
	},
}

func (s ProfileSet) String() string {
	if t, ok := profileTemplates[s]; ok {
		return t.name
	}
	return "unknown"
}

// Major returns a copy of the major profile with tonic C
func (s ProfileSet) Major() Profile {
	return s.template().major
}

// Minor returns a copy of the minor profile with tonic C
func (s ProfileSet) Minor() Profile {
	return s.template().minor
}

func (s ProfileSet) template() profileTemplate {
	if t, ok := profileTemplates[s]; ok {
		return t
	}
	return profileTemplates[ProfileKrumhansl]
}

// ParseProfileSet resolves a profile set name; the empty string selects
// Krumhansl-Schmuckler
func ParseProfileSet(name string) (ProfileSet, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "", "krumhansl-schmuckler", "ks":
		return ProfileKrumhansl, nil
	}
	for set, t := range profileTemplates {
		if t.name == name {
			return set, nil
		}
	}
	return ProfileKrumhansl, fmt.Errorf("unknown key profile %q", name)
}

// Rotate transposes p so that its tonic lands on pitch class i:
// out[j] = p[(j - i) mod 12]. Rotating by 0 or 12 returns p unchanged.
func Rotate(p Profile, i int) Profile {
	var out Profile
	for j := range out {
		out[j] = p[common.Mod(j-i, len(p))]
	}
	return out
}

// Correlate returns the Pearson correlation between a histogram and a
// profile. A histogram with zero variance yields NaN.
func Correlate(h chroma.PitchHistogram, p Profile) float64 {
	return common.Correlation(h[:], p[:])
}

// Mode is the scale mode of a key
type Mode int

const (
	// Major is scanned before Minor, so it wins ties
	Major Mode = iota
	Minor
)

func (m Mode) String() string {
	if m == Minor {
		return "minor"
	}
	return "major"
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "major":
		*m = Major
	case "minor":
		*m = Minor
	default:
		return fmt.Errorf("unknown mode %q", text)
	}
	return nil
}

// KeyEstimate is a tonic pitch class (0=C ... 11=B) and a mode
type KeyEstimate struct {
	Tonic int  `json:"tonic"`
	Mode  Mode `json:"mode"`
}

// String renders the key as e.g. "C major". An out-of-range tonic is shown
// as C.
func (k KeyEstimate) String() string {
	return chroma.NameOrDefault(k.Tonic) + " " + k.Mode.String()
}

// ParseKey parses keys of the form "C# minor"
func ParseKey(s string) (KeyEstimate, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return KeyEstimate{}, fmt.Errorf("invalid key %q", s)
	}

	var mode Mode
	if err := mode.UnmarshalText([]byte(fields[1])); err != nil {
		return KeyEstimate{}, fmt.Errorf("invalid key %q: %w", s, err)
	}

	names := chroma.PitchClassNames()
	tonic := slices.Index(names[:], strings.ToUpper(fields[0]))
	if tonic < 0 {
		return KeyEstimate{}, fmt.Errorf("invalid key %q: unknown pitch %q", s, fields[0])
	}

	return KeyEstimate{Tonic: tonic, Mode: mode}, nil
}

// Relative returns the relative minor of a major key and vice versa
func (k KeyEstimate) Relative() KeyEstimate {
	if k.Mode == Major {
		return KeyEstimate{Tonic: common.Mod(k.Tonic-3, 12), Mode: Minor}
	}
	return KeyEstimate{Tonic: common.Mod(k.Tonic+3, 12), Mode: Major}
}

// Parallel returns the key with the same tonic and the other mode
func (k KeyEstimate) Parallel() KeyEstimate {
	if k.Mode == Major {
		return KeyEstimate{Tonic: k.Tonic, Mode: Minor}
	}
	return KeyEstimate{Tonic: k.Tonic, Mode: Major}
}

// Dominant returns the key a fifth above
func (k KeyEstimate) Dominant() KeyEstimate {
	return KeyEstimate{Tonic: common.Mod(k.Tonic+7, 12), Mode: k.Mode}
}

// Subdominant returns the key a fifth below
func (k KeyEstimate) Subdominant() KeyEstimate {
	return KeyEstimate{Tonic: common.Mod(k.Tonic-7, 12), Mode: k.Mode}
}

// IsCompatible reports whether other is the same key or one of its
// relative, parallel, dominant or subdominant keys
func (k KeyEstimate) IsCompatible(other KeyEstimate) bool {
	switch other {
	case k, k.Relative(), k.Parallel(), k.Dominant(), k.Subdominant():
		return true
	}
	return false
}

// Candidate is one of the 24 keys together with its correlation score
type Candidate struct {
	Key   KeyEstimate `json:"key"`
	Score float64     `json:"score"`
}

// Classifier matches pitch class histograms against rotated key profiles
type Classifier struct {
	profiles ProfileSet
	logger   logging.Logger
}

// NewClassifier creates a classifier for the given profile set
func NewClassifier(profiles ProfileSet) *Classifier {
	return &Classifier{
		profiles: profiles,
		logger: logging.WithFields(logging.Fields{
			"component": "key_classifier",
			"profiles":  profiles.String(),
		}),
	}
}

// Profiles returns the profile set in use
func (c *Classifier) Profiles() ProfileSet {
	return c.profiles
}

// scores returns the 24 candidates in scan order: the 12 major rotations
// followed by the 12 minor rotations
func (c *Classifier) scores(h chroma.PitchHistogram) []Candidate {
	candidates := make([]Candidate, 0, 24)
	for _, mode := range []Mode{Major, Minor} {
		base := c.profiles.Major()
		if mode == Minor {
			base = c.profiles.Minor()
		}
		for i := range chroma.NumPitchClasses {
			candidates = append(candidates, Candidate{
				Key:   KeyEstimate{Tonic: i, Mode: mode},
				Score: Correlate(h, Rotate(base, i)),
			})
		}
	}
	return candidates
}

// Classify returns the key whose rotated profile correlates best with h.
// Only a strictly greater score replaces the current best, so ties keep the
// earlier candidate and NaN scores never win. A histogram with no variance
// yields C major.
func (c *Classifier) Classify(h chroma.PitchHistogram) KeyEstimate {
	best := -math.MaxFloat64
	estimate := KeyEstimate{Tonic: 0, Mode: Major}

	for _, cand := range c.scores(h) {
		if best < cand.Score {
			best = cand.Score
			estimate = cand.Key
		}
	}

	if best == -math.MaxFloat64 {
		c.logger.Debug("Histogram has no variance, defaulting to C major")
	}

	return estimate
}

// Rank returns all 24 candidates ordered by descending score. Equal scores
// keep scan order and NaN scores sort last, so Rank(h)[0].Key equals
// Classify(h).
func (c *Classifier) Rank(h chroma.PitchHistogram) []Candidate {
	candidates := c.scores(h)
	slices.SortStableFunc(candidates, func(a, b Candidate) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return candidates
}
