package mandelbrot

import (
	"fmt"
	"sort"
	"sync"
)

// Registered device names.
const (
	// DeviceWGPU runs the kernel as a WGSL compute shader.
	// Registered by importing github.com/gogpu/mandelbrot/gpu.
	DeviceWGPU = "wgpu"

	// DeviceSoftware runs work units on a goroutine pool. Always registered.
	DeviceSoftware = "software"
)

// DeviceFactory creates a new, unopened device.
type DeviceFactory func(cfg DeviceConfig) Device

var (
	registryMu sync.RWMutex
	devices    = make(map[string]DeviceFactory)
	// Priority order for DefaultDevice (first registered wins).
	devicePriority = []string{DeviceWGPU, DeviceSoftware}
)

func init() {
	RegisterDevice(DeviceSoftware, func(cfg DeviceConfig) Device {
		return NewSoftwareDevice(cfg.Workers)
	})
}

// RegisterDevice registers a device factory under name, replacing any
// previous registration. It is typically called from init functions.
func RegisterDevice(name string, factory DeviceFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	devices[name] = factory
}

// UnregisterDevice removes a device from the registry.
// This is useful for testing.
func UnregisterDevice(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(devices, name)
}

// Devices returns the sorted names of all registered devices.
func Devices() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(devices))
	for name := range devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewDevice creates the device registered under name.
func NewDevice(name string, cfg DeviceConfig) (Device, error) {
	registryMu.RLock()
	factory, ok := devices[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q is not registered (available: %v)", ErrDeviceUnavailable, name, Devices())
	}
	return factory(cfg), nil
}

// DefaultDevice returns the name of the preferred registered device:
// "wgpu" when the gpu package is linked in, otherwise "software".
func DefaultDevice() string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, name := range devicePriority {
		if _, ok := devices[name]; ok {
			return name
		}
	}
	return DeviceSoftware
}
