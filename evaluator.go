package mandelbrot

import (
	"errors"
	"fmt"
	"math"
)

// Evaluator produces the iteration counts of every pixel of a grid.
//
// Implementations are interchangeable: for the same arguments every
// evaluator returns a grid of the same size with the same escape
// classification for each pixel. Evaluators are safe for concurrent use.
type Evaluator interface {
	// Name returns a short identifier for logs ("sequential", "parallel/wgpu").
	Name() string

	// Evaluate computes a width×height grid with iteration budget maxIter.
	Evaluate(width, height int, maxIter uint32) (*Grid, error)

	// Close releases resources held by the evaluator.
	Close()
}

// Evaluator kinds accepted by NewEvaluator.
const (
	KindSequential = "sequential"
	KindParallel   = "parallel"
)

// Kinds returns the evaluator kinds accepted by NewEvaluator.
func Kinds() []string {
	return []string{KindSequential, KindParallel}
}

// ErrInvalidSize is returned for non-positive or oversized dimensions or a
// zero iteration budget.
var ErrInvalidSize = errors.New("mandelbrot: invalid grid size")

// NewEvaluator creates an evaluator of the given kind. For KindParallel the
// device is chosen with WithDevice, defaulting to DefaultDevice().
func NewEvaluator(kind string, opts ...Option) (Evaluator, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	switch kind {
	case KindSequential:
		return NewSequentialEvaluator(), nil
	case KindParallel:
		name := o.device
		if name == "" {
			name = DefaultDevice()
		}
		dev, err := NewDevice(name, DeviceConfig{Workers: o.workers, Timeout: o.timeout})
		if err != nil {
			return nil, err
		}
		return NewParallelEvaluator(dev), nil
	default:
		return nil, fmt.Errorf("mandelbrot: unknown evaluator kind %q (want one of %v)", kind, Kinds())
	}
}

// checkSize validates the arguments of Evaluate.
func checkSize(width, height int, maxIter uint32) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if maxIter == 0 {
		return fmt.Errorf("%w: iteration budget must be positive", ErrInvalidSize)
	}
	if uint64(width) > math.MaxUint32 || uint64(height) > math.MaxUint32 || width > math.MaxInt/height {
		return fmt.Errorf("%w: %dx%d overflows", ErrInvalidSize, width, height)
	}
	return nil
}
