package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/RyanBlaney/sonido-key/algorithms/chroma"
	"github.com/RyanBlaney/sonido-key/algorithms/spectral"
	"github.com/RyanBlaney/sonido-key/algorithms/tonal"
	"github.com/RyanBlaney/sonido-key/algorithms/windowing"
	"github.com/RyanBlaney/sonido-key/logging"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "SONIDO_KEY_"

// DefaultWindowSize is the analysis window of the command line tool. It is
// larger than spectral.DefaultWindowSize, which only replaces invalid sizes.
const DefaultWindowSize = 16384

// Config holds every tunable of a key analysis
type Config struct {
	Mode           spectral.Mode
	WindowSize     int
	ReferencePitch float64
	Binning        chroma.Binning
	Taper          windowing.Kind
	Normalization  spectral.Normalization
	Workers        int
	Profiles       tonal.ProfileSet

	DBPath      string
	FFmpegPath  string
	FFprobePath string
	Timeout     time.Duration
	MaxDuration time.Duration

	LogLevel logging.Level
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Mode:           spectral.ModeFast,
		WindowSize:     DefaultWindowSize,
		ReferencePitch: chroma.DefaultReferencePitch,
		Binning:        chroma.BinningStrict,
		Taper:          windowing.KindHann,
		Normalization:  spectral.NormalizeExpected,
		Workers:        1,
		Profiles:       tonal.ProfileKrumhansl,
		FFmpegPath:     "ffmpeg",
		FFprobePath:    "ffprobe",
		Timeout:        2 * time.Minute,
		LogLevel:       logging.InfoLevel,
	}
}

// LoadEnv reads .env files (".env" when no path is given; missing files are
// skipped) and then applies SONIDO_KEY_* variables on top of c. Variables
// already present in the environment win over .env entries.
func (c *Config) LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return c.ApplyEnv(os.LookupEnv)
}

// ApplyEnv applies overrides read through lookup
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error

	get := func(name string, apply func(string) error) {
		value, ok := lookup(EnvPrefix + name)
		if !ok || value == "" {
			return
		}
		if err := apply(value); err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
		}
	}

	get("MODE", func(v string) (err error) {
		c.Mode, err = spectral.ParseMode(v)
		return err
	})
	get("WINDOW_SIZE", func(v string) (err error) {
		c.WindowSize, err = strconv.Atoi(v)
		return err
	})
	get("REFERENCE_PITCH", func(v string) (err error) {
		c.ReferencePitch, err = strconv.ParseFloat(v, 64)
		return err
	})
	get("BINNING", func(v string) (err error) {
		c.Binning, err = chroma.ParseBinning(v)
		return err
	})
	get("TAPER", func(v string) (err error) {
		c.Taper, err = windowing.ParseKind(v)
		return err
	})
	get("NORMALIZATION", func(v string) (err error) {
		c.Normalization, err = spectral.ParseNormalization(v)
		return err
	})
	get("WORKERS", func(v string) (err error) {
		c.Workers, err = strconv.Atoi(v)
		return err
	})
	get("PROFILE", func(v string) (err error) {
		c.Profiles, err = tonal.ParseProfileSet(v)
		return err
	})
	get("DB", func(v string) error {
		c.DBPath = v
		return nil
	})
	get("FFMPEG", func(v string) error {
		c.FFmpegPath = v
		return nil
	})
	get("FFPROBE", func(v string) error {
		c.FFprobePath = v
		return nil
	})
	get("TIMEOUT", func(v string) (err error) {
		c.Timeout, err = time.ParseDuration(v)
		return err
	})
	get("MAX_DURATION", func(v string) (err error) {
		c.MaxDuration, err = time.ParseDuration(v)
		return err
	})
	get("LOG_LEVEL", func(v string) (err error) {
		c.LogLevel, err = logging.ParseLevel(v)
		return err
	})

	return errors.Join(errs...)
}

// Validate repairs out-of-range values in place and returns one note per
// repair. Range problems are never fatal.
func (c *Config) Validate() []string {
	var notes []string

	ws := spectral.ValidateWindowSize(c.WindowSize)
	if ws.Recovered {
		notes = append(notes, ws.String())
		c.WindowSize = ws.Size
	}

	if c.ReferencePitch <= 0 || math.IsNaN(c.ReferencePitch) || math.IsInf(c.ReferencePitch, 0) {
		notes = append(notes, fmt.Sprintf("reference pitch %v rejected, using %v",
			c.ReferencePitch, chroma.DefaultReferencePitch))
		c.ReferencePitch = chroma.DefaultReferencePitch
	}

	if c.Workers < 1 {
		notes = append(notes, fmt.Sprintf("worker count %d rejected, using 1", c.Workers))
		c.Workers = 1
	}

	return notes
}

// CacheKey identifies the settings that influence an analysis result
func (c *Config) CacheKey() string {
	return fmt.Sprintf("mode=%s;window=%d;ref=%g;binning=%s;taper=%s;norm=%s;profiles=%s;max=%s",
		c.Mode, c.WindowSize, c.ReferencePitch, c.Binning, c.Taper, c.Normalization, c.Profiles, c.MaxDuration)
}
