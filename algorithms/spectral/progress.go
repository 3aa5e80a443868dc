package spectral

import (
	"sync"
	"time"

	"github.com/RyanBlaney/sonido-key/logging"
)

// Progress receives timing callbacks from the averager. Step may be called
// from several goroutines when the averager runs with workers.
type Progress interface {
	Start(expected int)
	Step(index int, elapsed time.Duration)
	Finish(processed int, elapsed time.Duration)
}

// DefaultWarmupWindows is the number of windows LogProgress times before it
// reports an estimated finish
const DefaultWarmupWindows = 50

// LogProgress reports timing through the logger: an estimated finish time
// once the warm-up is over, and a summary when the run completes.
type LogProgress struct {
	Warmup int
	logger logging.Logger

	mu       sync.Mutex
	expected int
	steps    int
	busy     time.Duration
}

// NewLogProgress creates a LogProgress writing to logger. A nil logger uses
// the global one.
func NewLogProgress(logger logging.Logger) *LogProgress {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &LogProgress{
		Warmup: DefaultWarmupWindows,
		logger: logger.WithFields(logging.Fields{"component": "spectral_averager"}),
	}
}

func (p *LogProgress) Start(expected int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.expected = expected
	p.steps = 0
	p.busy = 0
}

func (p *LogProgress) Step(index int, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.steps++
	p.busy += elapsed

	if p.steps == p.Warmup && p.expected > 0 {
		perWindow := p.busy / time.Duration(p.steps)
		p.logger.Info("Estimated finish time", logging.Fields{
			"estimated":    (perWindow * time.Duration(p.expected)).Round(time.Millisecond).String(),
			"windows_done": p.steps,
			"windows":      p.expected,
		})
	}
}

func (p *LogProgress) Finish(processed int, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	perWindow := 0.0
	if processed > 0 {
		perWindow = float64(p.busy.Microseconds()) / 1000.0 / float64(processed)
	}

	p.logger.Info("Spectrum averaging finished", logging.Fields{
		"windows":       processed,
		"elapsed":       elapsed.Round(time.Millisecond).String(),
		"ms_per_window": perWindow,
	})
}

type noProgress struct{}

func (noProgress) Start(int)                 {}
func (noProgress) Step(int, time.Duration)   {}
func (noProgress) Finish(int, time.Duration) {}
