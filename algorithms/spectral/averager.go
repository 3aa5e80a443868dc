package spectral

import (
	"fmt"
	"math"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/RyanBlaney/sonido-key/algorithms/windowing"
	"github.com/RyanBlaney/sonido-key/logging"
)

// OverlapFactor is the hop between consecutive windows as a fraction of the
// window size
const OverlapFactor = 0.5

// Normalization selects the divisor of the running average
type Normalization int

const (
	// NormalizeExpected weights every window by 1/⌊len/(W·0.5)⌋, the count
	// estimated before the loop. The loop can process one window fewer than
	// the estimate; the resulting under-scaling is accepted.
	NormalizeExpected Normalization = iota
	// NormalizeActual rescales the sum by the number of windows processed
	NormalizeActual
)

func (n Normalization) String() string {
	if n == NormalizeActual {
		return "actual"
	}
	return "expected"
}

// ParseNormalization resolves a normalization name; the empty string
// selects NormalizeExpected
func ParseNormalization(name string) (Normalization, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "expected", "estimated":
		return NormalizeExpected, nil
	case "actual", "processed":
		return NormalizeActual, nil
	default:
		return NormalizeExpected, fmt.Errorf("unknown normalization %q", name)
	}
}

// AveragerOptions configures an Averager. Zero values select the defaults:
// DefaultWindowSize, ModeFast, Hann taper, NormalizeExpected, one worker.
type AveragerOptions struct {
	WindowSize    int
	Mode          Mode
	Taper         windowing.Kind
	Normalization Normalization
	Workers       int
	Progress      Progress
	Logger        logging.Logger
}

// AverageResult holds the averaged spectrum of a whole signal
type AverageResult struct {
	Spectrum   Spectrum      `json:"-"`
	WindowSize int           `json:"window_size"`
	HopSize    int           `json:"hop_size"`
	Mode       string        `json:"mode"`
	Taper      string        `json:"taper"`
	Expected   int           `json:"windows_expected"`
	Processed  int           `json:"windows_processed"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Averager slices a mono signal into half-overlapping windows, tapers and
// transforms each one, and accumulates a running average spectrum
type Averager struct {
	samples    []float32
	windowSize WindowSizeResult
	opts       AveragerOptions
	logger     logging.Logger
}

// NewAverager creates an averager over samples. An invalid window size is
// replaced by DefaultWindowSize with a warning; see WindowSize for the
// outcome.
func NewAverager(samples []float32, opts AveragerOptions) *Averager {
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	logger = logger.WithFields(logging.Fields{
		"component": "spectral_averager",
	})

	var ws WindowSizeResult
	if opts.WindowSize == 0 {
		ws = WindowSizeResult{Size: DefaultWindowSize}
	} else {
		ws = ValidateWindowSize(opts.WindowSize)
	}
	if ws.Recovered {
		logger.Warn("Invalid window size, falling back to default", logging.Fields{
			"requested": ws.Requested,
			"using":     ws.Size,
			"reason":    ws.Reason.Error(),
		})
	}

	if opts.Progress == nil {
		opts.Progress = noProgress{}
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	return &Averager{
		samples:    samples,
		windowSize: ws,
		opts:       opts,
		logger:     logger,
	}
}

// WindowSize reports the validated window size
func (a *Averager) WindowSize() WindowSizeResult {
	return a.windowSize
}

// ExpectedWindows returns ⌊signalLength / (W·OverlapFactor)⌋
func ExpectedWindows(signalLength, windowSize int) int {
	if windowSize <= 0 {
		return 0
	}
	return int(math.Floor(float64(signalLength) / (float64(windowSize) * OverlapFactor)))
}

// Compute runs the analysis. A signal shorter than one window yields an
// all-zero spectrum and Processed == 0.
func (a *Averager) Compute() *AverageResult {
	w := a.windowSize.Size
	hop := int(math.Floor(OverlapFactor * float64(w)))
	expected := ExpectedWindows(len(a.samples), w)

	a.logger.Debug("Starting spectrum averaging", logging.Fields{
		"samples":     len(a.samples),
		"window_size": w,
		"hop_size":    hop,
		"mode":        a.opts.Mode.String(),
		"expected":    expected,
		"workers":     a.opts.Workers,
	})

	start := time.Now()
	a.opts.Progress.Start(expected)

	out := make(Spectrum, w)
	processed := 0
	if expected > 0 {
		scale := complex(1.0/float64(expected), 0)
		workers := a.workerCount(expected)
		if workers == 1 {
			processed = a.accumulate(out, scale, w, hop)
		} else {
			processed = a.accumulateParallel(out, scale, w, hop, workers)
		}
	}

	if a.opts.Normalization == NormalizeActual && processed > 0 && processed != expected {
		rescale := complex(float64(expected)/float64(processed), 0)
		for j := range out {
			out[j] *= rescale
		}
	}

	elapsed := time.Since(start)
	a.opts.Progress.Finish(processed, elapsed)

	if processed == 0 {
		a.logger.Debug("Signal shorter than one window, spectrum is empty", logging.Fields{
			"samples":     len(a.samples),
			"window_size": w,
		})
	}

	return &AverageResult{
		Spectrum:   out,
		WindowSize: w,
		HopSize:    hop,
		Mode:       a.opts.Mode.String(),
		Taper:      windowing.New(a.opts.Taper, 0).GetType(),
		Expected:   expected,
		Processed:  processed,
		Elapsed:    elapsed,
	}
}

// frameProcessor owns the scratch buffers for one thread of control
type frameProcessor struct {
	transformer Transformer
	taper       windowing.Window
	frame       []float64
	buf         []complex128
}

func (a *Averager) newFrameProcessor(w int) *frameProcessor {
	return &frameProcessor{
		transformer: NewTransformer(a.opts.Mode),
		taper:       windowing.New(a.opts.Taper, w),
		frame:       make([]float64, w),
		buf:         make([]complex128, w),
	}
}

// process tapers and transforms the window starting at offset and adds the
// scaled result to sum
func (fp *frameProcessor) process(samples []float32, offset int, scale complex128, sum Spectrum) {
	for j := range fp.frame {
		fp.frame[j] = float64(samples[offset+j])
	}
	// lengths always match here
	_ = fp.taper.ApplyInPlace(fp.frame)

	for j, v := range fp.frame {
		fp.buf[j] = complex(v, 0)
	}

	result := fp.transformer.Transform(fp.buf)
	for j, v := range result {
		sum[j] += v * scale
	}
}

func (a *Averager) accumulate(out Spectrum, scale complex128, w, hop int) int {
	fp := a.newFrameProcessor(w)

	runs := 0
	for i := 0; i+w <= len(a.samples); i += hop {
		before := time.Now()
		fp.process(a.samples, i, scale, out)
		a.opts.Progress.Step(runs, time.Since(before))
		runs++
	}

	return runs
}

// accumulateParallel splits the windows into one contiguous run per worker.
// Each worker keeps its own partial sum; partials are added in worker order,
// so the result does not depend on scheduling.
func (a *Averager) accumulateParallel(out Spectrum, scale complex128, w, hop, workers int) int {
	windows := 0
	if len(a.samples) >= w {
		windows = (len(a.samples)-w)/hop + 1
	}

	partials := make([]Spectrum, workers)
	counts := make([]int, workers)

	var wg sync.WaitGroup
	for worker := range workers {
		first := worker * windows / workers
		last := (worker + 1) * windows / workers

		wg.Add(1)
		go func() {
			defer wg.Done()

			fp := a.newFrameProcessor(w)
			sum := make(Spectrum, w)
			for index := first; index < last; index++ {
				before := time.Now()
				fp.process(a.samples, index*hop, scale, sum)
				a.opts.Progress.Step(index, time.Since(before))
				counts[worker]++
			}
			partials[worker] = sum
		}()
	}

	wg.Wait()

	processed := 0
	for worker, sum := range partials {
		for j, v := range sum {
			out[j] += v
		}
		processed += counts[worker]
	}

	return processed
}

func (a *Averager) workerCount(expected int) int {
	workers := min(a.opts.Workers, runtime.NumCPU(), expected)
	return max(workers, 1)
}
