package spectral

import (
	"errors"
	"fmt"

	"github.com/RyanBlaney/sonido-key/algorithms/common"
)

const (
	// MinWindowSize is the smallest accepted analysis window
	MinWindowSize = 128
	// MaxWindowSize is the largest accepted analysis window (2^15)
	MaxWindowSize = 32768
	// DefaultWindowSize replaces an invalid window size
	DefaultWindowSize = 4096
)

var (
	ErrWindowTooSmall      = fmt.Errorf("window size is too small, minimum value is %d", MinWindowSize)
	ErrWindowTooLarge      = fmt.Errorf("window size is too big, maximum value is %d", MaxWindowSize)
	ErrWindowNotPowerOfTwo = errors.New("window size is not a power of two")
)

// WindowSizeResult carries either a validated window size or the recovery
// that was applied to an invalid one
type WindowSizeResult struct {
	Requested int
	Size      int
	Recovered bool
	Reason    error
}

// ValidateWindowSize checks that size is a power of two within
// [MinWindowSize, MaxWindowSize]. Invalid sizes are replaced by
// DefaultWindowSize and the result records why.
func ValidateWindowSize(size int) WindowSizeResult {
	var reason error
	switch {
	case size < MinWindowSize:
		reason = ErrWindowTooSmall
	case size > MaxWindowSize:
		reason = ErrWindowTooLarge
	case !common.IsPowerOfTwo(size):
		reason = ErrWindowNotPowerOfTwo
	}

	if reason != nil {
		return WindowSizeResult{
			Requested: size,
			Size:      DefaultWindowSize,
			Recovered: true,
			Reason:    reason,
		}
	}

	return WindowSizeResult{Requested: size, Size: size}
}

func (r WindowSizeResult) String() string {
	if !r.Recovered {
		return fmt.Sprintf("window size %d", r.Size)
	}
	return fmt.Sprintf("window size %d rejected (%v), using %d", r.Requested, r.Reason, r.Size)
}
