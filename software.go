package mandelbrot

import (
	"errors"
	"fmt"

	"github.com/gogpu/mandelbrot/internal/parallel"
)

// SoftwareDevice is a compute Device that runs the kernel's host function
// on a goroutine pool. It needs no hardware and is always registered as
// "software".
//
// A dispatch splits the index space into row bands, several per worker;
// each band writes a disjoint range of the buffer.
type SoftwareDevice struct {
	workers int
	pool    *parallel.WorkerPool
	pending *parallel.Batch
}

var _ Device = (*SoftwareDevice)(nil)

// NewSoftwareDevice creates a software device with the given number of
// workers. Zero or negative means GOMAXPROCS.
func NewSoftwareDevice(workers int) *SoftwareDevice {
	return &SoftwareDevice{workers: workers}
}

// Name returns "software".
func (d *SoftwareDevice) Name() string { return DeviceSoftware }

// Open starts the worker pool.
func (d *SoftwareDevice) Open() error {
	if d.pool != nil {
		return nil
	}
	d.pool = parallel.NewWorkerPool(d.workers)
	return nil
}

// Workers returns the pool size, or 0 before Open.
func (d *SoftwareDevice) Workers() int {
	if d.pool == nil {
		return 0
	}
	return d.pool.Workers()
}

// Close stops the worker pool.
func (d *SoftwareDevice) Close() {
	if d.pool == nil {
		return
	}
	d.pool.Close()
	d.pool = nil
	d.pending = nil
}

type softwareProgram struct {
	fn func(col, row uint32, p KernelParams) uint32
}

func (*softwareProgram) Release() {}

type softwareBuffer struct {
	data []uint32
}

func (b *softwareBuffer) Len() int { return len(b.data) }

func (b *softwareBuffer) Release() { b.data = nil }

// Build binds the kernel's host function.
func (d *SoftwareDevice) Build(k *Kernel) (Program, error) {
	if k == nil || k.Host == nil {
		return nil, errors.New("kernel has no host function")
	}
	return &softwareProgram{fn: k.Host}, nil
}

// Alloc allocates a host-resident buffer.
func (d *SoftwareDevice) Alloc(words int) (DeviceBuffer, error) {
	if words <= 0 {
		return nil, fmt.Errorf("invalid buffer size %d", words)
	}
	return &softwareBuffer{data: make([]uint32, words)}, nil
}

// Enqueue submits one band of rows per work item and returns without
// waiting for them to run.
func (d *SoftwareDevice) Enqueue(p Program, buf DeviceBuffer, params KernelParams) error {
	if d.pool == nil {
		return errors.New("device not open")
	}
	prog, ok := p.(*softwareProgram)
	if !ok {
		return fmt.Errorf("program %T was not built by the software device", p)
	}
	sb, ok := buf.(*softwareBuffer)
	if !ok {
		return fmt.Errorf("buffer %T was not allocated by the software device", buf)
	}
	if sb.Len() != params.Pixels() {
		return fmt.Errorf("buffer holds %d slots, dispatch needs %d", sb.Len(), params.Pixels())
	}
	if d.pending != nil {
		return errors.New("previous dispatch not finished")
	}

	width := int(params.Width)
	bands := parallel.Split(int(params.Height), d.pool.Workers()*parallel.BandsPerWorker)
	work := make([]func(), len(bands))
	for i, band := range bands {
		work[i] = func() {
			for row := band.Start; row < band.End; row++ {
				out := sb.data[row*width : (row+1)*width]
				for col := range out {
					out[col] = prog.fn(uint32(col), uint32(row), params) //nolint:gosec // bounded by params
				}
			}
		}
	}
	d.pending = d.pool.Dispatch(work)

	Logger().Debug("software dispatch", "bands", len(bands), "workers", d.pool.Workers())
	return nil
}

// Finish waits for the pending dispatch.
func (d *SoftwareDevice) Finish() error {
	if d.pending == nil {
		return nil
	}
	b := d.pending
	d.pending = nil
	return b.Wait()
}

// Read copies the buffer into dst.
func (d *SoftwareDevice) Read(buf DeviceBuffer, dst []uint32) error {
	sb, ok := buf.(*softwareBuffer)
	if !ok {
		return fmt.Errorf("buffer %T was not allocated by the software device", buf)
	}
	if len(dst) != sb.Len() {
		return fmt.Errorf("destination holds %d slots, buffer %d", len(dst), sb.Len())
	}
	copy(dst, sb.data)
	return nil
}
