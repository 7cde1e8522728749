//go:build !nogpu

// Package gpu registers the wgpu compute device for the ParallelEvaluator.
//
// Import this package to run the escape-time kernel as a WGSL compute
// shader through wgpu/hal. The device opens a Vulkan adapter on first use;
// if none is available, the evaluator reports a device error and callers
// may fall back to the sequential evaluator or the "software" device.
//
// Usage:
//
//	import _ "github.com/gogpu/mandelbrot/gpu" // enable the "wgpu" device
package gpu

import (
	"errors"
	"sync"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/mandelbrot"
	gpuimpl "github.com/gogpu/mandelbrot/internal/gpu"
)

// ErrNoHAL is returned by SetDeviceProvider when the provider does not
// expose its HAL device and queue.
var ErrNoHAL = errors.New("gpu: provider does not implement HalDevice/HalQueue")

var (
	providerMu sync.RWMutex
	provider   gpucontext.DeviceProvider
)

func init() {
	mandelbrot.RegisterDevice(mandelbrot.DeviceWGPU, newDevice)
}

func newDevice(cfg mandelbrot.DeviceConfig) mandelbrot.Device {
	d := gpuimpl.NewDevice(cfg)

	providerMu.RLock()
	p := provider
	providerMu.RUnlock()
	if p != nil {
		if err := d.SetDeviceProvider(p); err != nil {
			mandelbrot.Logger().Warn("shared GPU device not usable, opening a private one", "err", err)
		}
	}
	return d
}

// SetDeviceProvider makes wgpu devices created afterwards share the GPU
// device of an external provider (e.g., a gogpu application) instead of
// opening their own. The provider must also implement HalDevice() any and
// HalQueue() any. A nil provider restores private devices.
func SetDeviceProvider(p gpucontext.DeviceProvider) error {
	if p != nil {
		if _, ok := p.(interface {
			HalDevice() any
			HalQueue() any
		}); !ok {
			return ErrNoHAL
		}
	}
	providerMu.Lock()
	defer providerMu.Unlock()
	provider = p
	return nil
}
