package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-key/algorithms/chroma"
	"github.com/RyanBlaney/sonido-key/algorithms/spectral"
	"github.com/RyanBlaney/sonido-key/algorithms/tonal"
	"github.com/RyanBlaney/sonido-key/algorithms/windowing"
	"github.com/RyanBlaney/sonido-key/logging"
)

func mapLookup(env map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, spectral.ModeFast, c.Mode)
	assert.Equal(t, 16384, c.WindowSize)
	assert.Equal(t, 440.0, c.ReferencePitch)
	assert.Equal(t, chroma.BinningStrict, c.Binning)
	assert.Equal(t, windowing.KindHann, c.Taper)
	assert.Equal(t, spectral.NormalizeExpected, c.Normalization)
	assert.Equal(t, 1, c.Workers)
	assert.Equal(t, tonal.ProfileKrumhansl, c.Profiles)
	assert.Empty(t, c.Validate())
}

func TestApplyEnv(t *testing.T) {
	c := Default()
	err := c.ApplyEnv(mapLookup(map[string]string{
		"SONIDO_KEY_MODE":            "dft",
		"SONIDO_KEY_WINDOW_SIZE":     "4096",
		"SONIDO_KEY_REFERENCE_PITCH": "432",
		"SONIDO_KEY_BINNING":         "rounded",
		"SONIDO_KEY_TAPER":           "hamming",
		"SONIDO_KEY_NORMALIZATION":   "actual",
		"SONIDO_KEY_WORKERS":         "4",
		"SONIDO_KEY_PROFILE":         "temperley",
		"SONIDO_KEY_DB":              "/tmp/keys.db",
		"SONIDO_KEY_TIMEOUT":         "10s",
		"SONIDO_KEY_MAX_DURATION":    "90s",
		"SONIDO_KEY_LOG_LEVEL":       "debug",
		"SONIDO_KEY_FFMPEG":          "",
	}))
	require.NoError(t, err)

	assert.Equal(t, spectral.ModeDirect, c.Mode)
	assert.Equal(t, 4096, c.WindowSize)
	assert.Equal(t, 432.0, c.ReferencePitch)
	assert.Equal(t, chroma.BinningRounded, c.Binning)
	assert.Equal(t, windowing.KindHamming, c.Taper)
	assert.Equal(t, spectral.NormalizeActual, c.Normalization)
	assert.Equal(t, 4, c.Workers)
	assert.Equal(t, tonal.ProfileTemperley, c.Profiles)
	assert.Equal(t, "/tmp/keys.db", c.DBPath)
	assert.Equal(t, 10*time.Second, c.Timeout)
	assert.Equal(t, 90*time.Second, c.MaxDuration)
	assert.Equal(t, logging.DebugLevel, c.LogLevel)
	assert.Equal(t, "ffmpeg", c.FFmpegPath, "empty values are ignored")
}

func TestApplyEnvReportsEveryBadValue(t *testing.T) {
	c := Default()
	err := c.ApplyEnv(mapLookup(map[string]string{
		"SONIDO_KEY_WINDOW_SIZE": "big",
		"SONIDO_KEY_MODE":        "wavelet",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SONIDO_KEY_WINDOW_SIZE")
	assert.Contains(t, err.Error(), "SONIDO_KEY_MODE")
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SONIDO_KEY_REFERENCE_PITCH=415\nSONIDO_KEY_BINNING=rounded\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("SONIDO_KEY_REFERENCE_PITCH")
		os.Unsetenv("SONIDO_KEY_BINNING")
	})

	c := Default()
	require.NoError(t, c.LoadEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, 415.0, c.ReferencePitch)
	assert.Equal(t, chroma.BinningRounded, c.Binning)
}

func TestValidateRecovers(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		check  func(*testing.T, *Config)
	}{
		{"window not power of two", func(c *Config) { c.WindowSize = 1000 }, func(t *testing.T, c *Config) {
			assert.Equal(t, spectral.DefaultWindowSize, c.WindowSize)
		}},
		{"window too large", func(c *Config) { c.WindowSize = 1 << 16 }, func(t *testing.T, c *Config) {
			assert.Equal(t, spectral.DefaultWindowSize, c.WindowSize)
		}},
		{"negative reference", func(c *Config) { c.ReferencePitch = -1 }, func(t *testing.T, c *Config) {
			assert.Equal(t, 440.0, c.ReferencePitch)
		}},
		{"no workers", func(c *Config) { c.Workers = 0 }, func(t *testing.T, c *Config) {
			assert.Equal(t, 1, c.Workers)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			notes := c.Validate()
			assert.Len(t, notes, 1)
			tt.check(t, c)
			assert.Empty(t, c.Validate(), "second pass has nothing to repair")
		})
	}
}

func TestCacheKeyChangesWithSettings(t *testing.T) {
	a := Default()
	b := Default()
	assert.Equal(t, a.CacheKey(), b.CacheKey())

	b.Binning = chroma.BinningRounded
	assert.NotEqual(t, a.CacheKey(), b.CacheKey())

	b = Default()
	b.Workers = 8
	assert.Equal(t, a.CacheKey(), b.CacheKey(), "worker count does not change results")
}
