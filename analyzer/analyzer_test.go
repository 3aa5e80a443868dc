package analyzer

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-key/algorithms/chroma"
	"github.com/RyanBlaney/sonido-key/algorithms/spectral"
	"github.com/RyanBlaney/sonido-key/algorithms/tonal"
	"github.com/RyanBlaney/sonido-key/config"
	"github.com/RyanBlaney/sonido-key/logging"
	"github.com/RyanBlaney/sonido-key/store"
)

const (
	testSampleRate = 44100
	// three half-overlapped windows of 4096
	testSamples = 8192
)

var (
	cMajorTriad = []float64{261.63, 329.63, 392.00}
	aMinorTriad = []float64{220.00, 261.63, 329.63}
)

func TestMain(m *testing.M) {
	logging.SetGlobalLogger(&logging.NoOpLogger{})
	os.Exit(m.Run())
}

func chord(n int, freqs []float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		var v float64
		for _, f := range freqs {
			v += math.Sin(2 * math.Pi * f * float64(i) / testSampleRate)
		}
		out[i] = float32(v)
	}
	return out
}

func testConfig(binning chroma.Binning) *config.Config {
	cfg := config.Default()
	cfg.WindowSize = 4096
	cfg.Binning = binning
	return cfg
}

func TestAnalyzeSamplesTriads(t *testing.T) {
	tests := []struct {
		name  string
		freqs []float64
		want  tonal.KeyEstimate
	}{
		{"C major triad", cMajorTriad, tonal.KeyEstimate{Tonic: 0, Mode: tonal.Major}},
		{"A minor triad", aMinorTriad, tonal.KeyEstimate{Tonic: 9, Mode: tonal.Minor}},
	}

	for _, tt := range tests {
		for _, binning := range []chroma.Binning{chroma.BinningStrict, chroma.BinningRounded} {
			t.Run(tt.name+"/"+binning.String(), func(t *testing.T) {
				a := New(testConfig(binning))

				result, err := a.AnalyzeSamples(context.Background(), chord(testSamples, tt.freqs), testSampleRate)
				require.NoError(t, err)

				assert.Equal(t, tt.want, result.Key)
				assert.Equal(t, tt.want.String(), result.KeyName)
				assert.Equal(t, 4, result.WindowsExpected)
				assert.Equal(t, 3, result.WindowsProcessed)
				assert.Equal(t, 4096, result.WindowSize)
				require.Len(t, result.Candidates, 24)
				assert.Equal(t, tt.want, result.Candidates[0].Key)
				assert.NotEmpty(t, result.ID)
			})
		}
	}
}

func TestAnalyzeSamplesLibraryTransformsAgree(t *testing.T) {
	for _, mode := range []spectral.Mode{spectral.ModeGoDSP, spectral.ModeGonum} {
		cfg := testConfig(chroma.BinningStrict)
		cfg.Mode = mode

		result, err := New(cfg).AnalyzeSamples(context.Background(), chord(testSamples, aMinorTriad), testSampleRate)
		require.NoError(t, err)
		assert.Equal(t, tonal.KeyEstimate{Tonic: 9, Mode: tonal.Minor}, result.Key, "mode %s", mode)
		assert.Equal(t, mode.String(), result.Mode)
	}
}

func TestAnalyzeSamplesShortSignal(t *testing.T) {
	a := New(testConfig(chroma.BinningStrict))

	result, err := a.AnalyzeSamples(context.Background(), chord(4000, cMajorTriad), testSampleRate)
	require.NoError(t, err)

	assert.Equal(t, 0, result.WindowsProcessed)
	assert.Equal(t, chroma.PitchHistogram{}, result.Histogram)
	assert.Equal(t, tonal.KeyEstimate{Tonic: 0, Mode: tonal.Major}, result.Key)
	assert.Empty(t, result.Candidates)

	_, err = json.Marshal(result)
	assert.NoError(t, err, "degenerate results must still encode")
}

func TestAnalyzeSamplesRejectsBadSampleRate(t *testing.T) {
	_, err := New(nil).AnalyzeSamples(context.Background(), chord(10, cMajorTriad), 0)
	assert.Error(t, err)
}

func TestNewRecoversInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.WindowSize = 3000
	cfg.ReferencePitch = 0

	a := New(cfg)
	assert.Equal(t, spectral.DefaultWindowSize, a.Config().WindowSize)
	assert.Equal(t, 440.0, a.Config().ReferencePitch)
}

func writeChordWAV(t *testing.T, path string, freqs []float64) {
	t.Helper()

	samples := chord(testSamples, freqs)
	data := make([]int, len(samples))
	for i, v := range samples {
		data[i] = int(math.Round(float64(v) * 10000))
	}

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, testSampleRate, 16, 1, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: testSampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
}

func TestAnalyzeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a_minor.wav")
	writeChordWAV(t, path, aMinorTriad)

	result, err := New(testConfig(chroma.BinningStrict)).Analyze(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "A minor", result.KeyName)
	assert.Equal(t, testSampleRate, result.SampleRate)
	assert.Equal(t, 1, result.Channels)
	assert.Equal(t, path, result.Path)
	assert.False(t, result.Cached)
	assert.Equal(t, "hann", result.Taper)
	assert.Equal(t, RelatedKeys{
		Relative:    "C major",
		Parallel:    "A major",
		Dominant:    "E minor",
		Subdominant: "D minor",
	}, result.Related)
}

func TestAnalyzeMissingFile(t *testing.T) {
	_, err := New(nil).Analyze(context.Background(), filepath.Join(t.TempDir(), "nope.wav"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load audio")
}

func TestAnalyzeUsesStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "c_major.wav")
	writeChordWAV(t, path, cMajorTriad)

	s, err := store.Open(context.Background(), filepath.Join(dir, "keys.db"))
	require.NoError(t, err)
	defer s.Close()

	a := New(testConfig(chroma.BinningStrict))
	a.Store = s

	first, err := a.Analyze(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, "C major", first.KeyName)

	second, err := a.Analyze(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Key, second.Key)
	assert.Equal(t, first.Histogram, second.Histogram)
	assert.Equal(t, testSampleRate, second.SampleRate)
	assert.Equal(t, 1, second.Channels)
	assert.Equal(t, first.Duration, second.Duration)
	assert.Equal(t, first.WindowsExpected, second.WindowsExpected)
	assert.Equal(t, first.WindowsProcessed, second.WindowsProcessed)
	assert.Equal(t, first.Taper, second.Taper)
	assert.Equal(t, first.Related, second.Related)

	// different settings miss the cache
	other := New(testConfig(chroma.BinningRounded))
	other.Store = s
	third, err := other.Analyze(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, third.Cached)
}

func TestResultTop(t *testing.T) {
	r := &Result{Candidates: make([]tonal.Candidate, 24)}
	assert.Len(t, r.Top(3), 3)
	assert.Len(t, r.Top(50), 24)
}
