package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mdobak/go-xerrors"

	"github.com/RyanBlaney/sonido-key/algorithms/chroma"
	"github.com/RyanBlaney/sonido-key/algorithms/spectral"
	"github.com/RyanBlaney/sonido-key/algorithms/tonal"
	"github.com/RyanBlaney/sonido-key/config"
	"github.com/RyanBlaney/sonido-key/logging"
	"github.com/RyanBlaney/sonido-key/store"
	"github.com/RyanBlaney/sonido-key/transcode"
)

// Analyzer runs the full pipeline: decode, average the spectrum, fold it
// into a pitch class histogram and classify the key. Store and Progress
// are optional.
type Analyzer struct {
	Decoder  *transcode.Decoder
	Store    *store.Store
	Progress spectral.Progress

	cfg        *config.Config
	classifier *tonal.Classifier
	logger     logging.Logger
}

// New creates an analyzer. cfg is validated in place; every repair is
// logged as a warning.
func New(cfg *config.Config) *Analyzer {
	if cfg == nil {
		cfg = config.Default()
	}

	logger := logging.WithFields(logging.Fields{
		"component": "key_analyzer",
	})

	for _, note := range cfg.Validate() {
		logger.Warn("Configuration value recovered", logging.Fields{
			"note": note,
		})
	}

	return &Analyzer{
		Decoder: transcode.NewDecoder(&transcode.DecoderConfig{
			FFmpegPath:  cfg.FFmpegPath,
			FFprobePath: cfg.FFprobePath,
			Timeout:     cfg.Timeout,
			MaxDuration: cfg.MaxDuration,
		}),
		cfg:        cfg,
		classifier: tonal.NewClassifier(cfg.Profiles),
		logger:     logger,
	}
}

// Config returns the validated configuration
func (a *Analyzer) Config() *config.Config {
	return a.cfg
}

// Analyze estimates the key of the audio file at path. A failure to read or
// decode the file is returned with a stack trace attached.
func (a *Analyzer) Analyze(ctx context.Context, path string) (*Result, error) {
	logger := a.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "Analyze",
		"path":     path,
	})

	var fp store.Fingerprint
	if a.Store != nil {
		var err error
		if fp, err = store.FingerprintFile(path, a.cfg.CacheKey()); err != nil {
			return nil, xerrors.New("cannot read audio file", err)
		}
		if result, err := a.lookup(ctx, fp); err == nil {
			logger.Info("Using cached analysis", logging.Fields{"analysis_id": result.ID})
			return result, nil
		} else if !errors.Is(err, store.ErrNotFound) {
			logger.Warn("Result cache unavailable", logging.Fields{"error": err.Error()})
		}
	}

	data, err := a.Decoder.DecodeFile(ctx, path)
	if err != nil {
		return nil, xerrors.New("failed to load audio", err)
	}

	logger.Info("Audio loaded", logging.Fields{
		"sample_rate": data.SampleRate,
		"channels":    data.Channels,
		"frames":      data.Frames,
		"duration":    data.Duration.Round(time.Millisecond).String(),
	})

	result, err := a.AnalyzeSamples(ctx, data.Mono, data.SampleRate)
	if err != nil {
		return nil, err
	}
	result.Path = data.Path
	result.Channels = data.Channels
	result.Duration = data.Duration

	if a.Store != nil {
		err := a.Store.Save(ctx, &store.Record{
			ID:          result.ID,
			Fingerprint: fp,
			Key:         result.Key,
			Histogram:   result.Histogram,
			Windows:     result.WindowsProcessed,
			Expected:    result.WindowsExpected,
			SampleRate:  result.SampleRate,
			Channels:    result.Channels,
			Duration:    result.Duration,
		})
		if err != nil {
			logger.Warn("Failed to cache analysis", logging.Fields{"error": err.Error()})
		}
	}

	return result, nil
}

// AnalyzeSamples estimates the key of a mono signal. A signal shorter than
// one window is not an error: its histogram is empty and the key is C major.
func (a *Analyzer) AnalyzeSamples(ctx context.Context, samples []float32, sampleRate int) (*Result, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	id := uuid.NewString()
	logger := a.logger.WithContext(logging.ContextWithFields(ctx, logging.Fields{
		"analysis_id": id,
	}))

	progress := a.Progress
	if progress == nil {
		progress = spectral.NewLogProgress(logger)
	}

	start := time.Now()

	average := spectral.NewAverager(samples, spectral.AveragerOptions{
		WindowSize:    a.cfg.WindowSize,
		Mode:          a.cfg.Mode,
		Taper:         a.cfg.Taper,
		Normalization: a.cfg.Normalization,
		Workers:       a.cfg.Workers,
		Progress:      progress,
		Logger:        logger,
	}).Compute()

	builder := chroma.NewHistogramBuilder(sampleRate)
	builder.ReferencePitch = a.cfg.ReferencePitch
	builder.Binning = a.cfg.Binning
	histogram := builder.Build(average.Spectrum)

	key := a.classifier.Classify(histogram)

	result := &Result{
		ID:               id,
		SampleRate:       sampleRate,
		WindowSize:       average.WindowSize,
		Mode:             average.Mode,
		Taper:            average.Taper,
		Binning:          a.cfg.Binning.String(),
		Profiles:         a.classifier.Profiles().String(),
		WindowsExpected:  average.Expected,
		WindowsProcessed: average.Processed,
		Histogram:        histogram,
		Key:              key,
		KeyName:          key.String(),
		Related:          relatedKeys(key),
		Candidates:       finite(a.classifier.Rank(histogram)),
		Elapsed:          time.Since(start),
	}

	logger.Debug("Key estimated", logging.Fields{
		"key":       result.KeyName,
		"windows":   result.WindowsProcessed,
		"dominant":  histogram.Dominant(),
		"elapsed":   result.Elapsed.String(),
		"histogram": fmt.Sprintf("%.3f", histogram.Normalized()),
	})

	return result, nil
}

func (a *Analyzer) lookup(ctx context.Context, fp store.Fingerprint) (*Result, error) {
	rec, err := a.Store.Lookup(ctx, fp)
	if err != nil {
		return nil, err
	}

	return &Result{
		ID:               rec.ID,
		Path:             fp.Path,
		SampleRate:       rec.SampleRate,
		Channels:         rec.Channels,
		Duration:         rec.Duration,
		WindowSize:       a.cfg.WindowSize,
		Mode:             a.cfg.Mode.String(),
		Taper:            string(a.cfg.Taper),
		Binning:          a.cfg.Binning.String(),
		Profiles:         a.classifier.Profiles().String(),
		WindowsExpected:  rec.Expected,
		WindowsProcessed: rec.Windows,
		Histogram:        rec.Histogram,
		Key:              rec.Key,
		KeyName:          rec.Key.String(),
		Related:          relatedKeys(rec.Key),
		Candidates:       finite(a.classifier.Rank(rec.Histogram)),
		Cached:           true,
	}, nil
}
