package mandelbrot

import (
	"errors"
	"fmt"
	"time"
)

// Device is a compute accelerator that executes a Kernel as one independent
// work unit per pixel.
//
// The ParallelEvaluator drives a device through a fixed sequence:
// Open (once), Build, Alloc, Enqueue, Finish, Read, then releases the
// program and the buffer. Implementations do not need to be safe for
// concurrent use; the evaluator serializes access.
type Device interface {
	// Name returns the registry name of the device (e.g. "wgpu", "software").
	Name() string

	// Open creates the device context. It is called once before first use.
	Open() error

	// Build compiles k into an executable program.
	Build(k *Kernel) (Program, error)

	// Alloc allocates a device buffer of words uint32 slots. The contents
	// are unspecified.
	Alloc(words int) (DeviceBuffer, error)

	// Enqueue submits one dispatch of p over the params.Width × params.Height
	// index space (index 0 = column, index 1 = row). Work unit (col, row)
	// writes its count to slot params.Width*row+col of buf. Enqueue returns
	// once the dispatch is submitted; it does not wait for completion.
	Enqueue(p Program, buf DeviceBuffer, params KernelParams) error

	// Finish blocks until every work unit of the last Enqueue has completed.
	Finish() error

	// Read copies buf into dst. len(dst) must equal buf.Len().
	Read(buf DeviceBuffer, dst []uint32) error

	// Close releases the device context.
	Close()
}

// Program is a kernel compiled for one device.
type Program interface {
	Release()
}

// DeviceBuffer is device-resident memory holding uint32 slots.
type DeviceBuffer interface {
	// Len returns the number of uint32 slots.
	Len() int

	// Release frees the buffer. Release is idempotent.
	Release()
}

// DeviceConfig carries the options a device factory may honor.
type DeviceConfig struct {
	// Workers bounds the number of goroutines of CPU devices.
	// Zero means GOMAXPROCS.
	Workers int

	// Timeout bounds the Finish barrier of GPU devices.
	// Zero means the device default.
	Timeout time.Duration
}

// Stage identifies the step of a device dispatch that failed.
type Stage uint8

// Dispatch stages in execution order.
const (
	StageOpen Stage = iota
	StageBuild
	StageAlloc
	StageEnqueue
	StageSync
	StageReadback
)

// Stage sentinels. A *DeviceError matches exactly one of them with errors.Is.
var (
	// ErrDeviceUnavailable reports that no device context could be created.
	ErrDeviceUnavailable = errors.New("mandelbrot: compute device unavailable")

	// ErrKernelBuild reports that the kernel failed to compile.
	ErrKernelBuild = errors.New("mandelbrot: kernel build failed")

	// ErrBufferAlloc reports that the device buffer could not be allocated.
	ErrBufferAlloc = errors.New("mandelbrot: device buffer allocation failed")

	// ErrEnqueue reports that the dispatch could not be submitted.
	ErrEnqueue = errors.New("mandelbrot: kernel enqueue failed")

	// ErrSync reports that waiting for dispatch completion failed.
	ErrSync = errors.New("mandelbrot: device synchronization failed")

	// ErrReadback reports that the result buffer could not be read back.
	ErrReadback = errors.New("mandelbrot: buffer readback failed")
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageOpen:
		return "open"
	case StageBuild:
		return "build"
	case StageAlloc:
		return "alloc"
	case StageEnqueue:
		return "enqueue"
	case StageSync:
		return "sync"
	case StageReadback:
		return "readback"
	default:
		return fmt.Sprintf("Stage(%d)", uint8(s))
	}
}

// Err returns the sentinel error of the stage.
func (s Stage) Err() error {
	switch s {
	case StageOpen:
		return ErrDeviceUnavailable
	case StageBuild:
		return ErrKernelBuild
	case StageAlloc:
		return ErrBufferAlloc
	case StageEnqueue:
		return ErrEnqueue
	case StageSync:
		return ErrSync
	case StageReadback:
		return ErrReadback
	default:
		return nil
	}
}

// DeviceError is returned by the ParallelEvaluator when a device stage fails.
// errors.Is matches both the stage sentinel and the underlying cause.
type DeviceError struct {
	Device string
	Stage  Stage
	Err    error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("mandelbrot: %s device: %s: %v", e.Device, e.Stage, e.Err)
}

// Unwrap returns the stage sentinel and the cause.
func (e *DeviceError) Unwrap() []error {
	if s := e.Stage.Err(); s != nil {
		return []error{s, e.Err}
	}
	return []error{e.Err}
}

// IsDeviceError reports whether err came from a compute device stage.
// Callers use it to decide whether to retry on the SequentialEvaluator.
func IsDeviceError(err error) bool {
	var de *DeviceError
	return errors.As(err, &de)
}
