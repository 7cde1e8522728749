package mandelbrot

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// errEvaluatorClosed is the cause reported when Evaluate runs after Close.
var errEvaluatorClosed = errors.New("evaluator closed")

// ParallelEvaluator computes a grid with a single data-parallel dispatch on
// a compute Device: build the kernel, allocate a width*height buffer,
// enqueue one invocation over the whole 2D index space, wait on the
// barrier, read the flat buffer back.
//
// Each pixel is an independent work unit, so no synchronization between
// units is needed. Calls to Evaluate are serialized on the device.
type ParallelEvaluator struct {
	mu     sync.Mutex
	device Device
	opened bool
	closed bool
}

var _ Evaluator = (*ParallelEvaluator)(nil)

// NewParallelEvaluator creates an evaluator that dispatches to d. The
// device is opened lazily by the first Evaluate and owned by the evaluator.
func NewParallelEvaluator(d Device) *ParallelEvaluator {
	return &ParallelEvaluator{device: d}
}

// Name returns "parallel/<device>".
func (e *ParallelEvaluator) Name() string {
	return KindParallel + "/" + e.device.Name()
}

// Device returns the underlying device.
func (e *ParallelEvaluator) Device() Device {
	return e.device
}

// Close closes the device. Close is safe to call multiple times.
func (e *ParallelEvaluator) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	if e.opened {
		e.device.Close()
		e.opened = false
	}
}

// Evaluate computes a width×height grid on the device. Any device failure
// aborts the computation and is returned as a *DeviceError; nothing is
// retried and no partial grid is returned.
func (e *ParallelEvaluator) Evaluate(width, height int, maxIter uint32) (*Grid, error) {
	if err := checkSize(width, height, maxIter); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, e.fail(StageOpen, errEvaluatorClosed)
	}

	propagateLogger(e.device)
	log := Logger().With("device", e.device.Name())

	if !e.opened {
		if err := e.device.Open(); err != nil {
			return nil, e.fail(StageOpen, err)
		}
		e.opened = true
		log.Info("compute device opened")
	}

	start := time.Now()
	prog, err := e.device.Build(EscapeKernel())
	if err != nil {
		return nil, e.fail(StageBuild, err)
	}
	defer prog.Release()
	log.Debug("kernel built", "elapsed", time.Since(start))

	params := KernelParams{
		Width:   uint32(width),  //nolint:gosec // checked by checkSize
		Height:  uint32(height), //nolint:gosec // checked by checkSize
		MaxIter: maxIter,
	}
	n := params.Pixels()

	buf, err := e.device.Alloc(n)
	if err != nil {
		return nil, e.fail(StageAlloc, err)
	}
	defer buf.Release()
	if buf.Len() != n {
		return nil, e.fail(StageAlloc, fmt.Errorf("allocated %d slots, want %d", buf.Len(), n))
	}

	start = time.Now()
	if err := e.device.Enqueue(prog, buf, params); err != nil {
		return nil, e.fail(StageEnqueue, err)
	}
	log.Debug("dispatch enqueued", "width", width, "height", height, "max_iter", maxIter)

	if err := e.device.Finish(); err != nil {
		return nil, e.fail(StageSync, err)
	}
	log.Debug("dispatch finished", "elapsed", time.Since(start))

	counts := make([]uint32, n)
	if err := e.device.Read(buf, counts); err != nil {
		return nil, e.fail(StageReadback, err)
	}

	return gridFromBuffer(width, height, counts)
}

func (e *ParallelEvaluator) fail(stage Stage, err error) error {
	Logger().Debug("compute dispatch failed", "device", e.device.Name(), "stage", stage.String(), "err", err)
	return &DeviceError{Device: e.device.Name(), Stage: stage, Err: err}
}
