package mandelbrot

import "time"

// Option configures NewEvaluator.
//
// Example:
//
//	// GPU evaluator (requires importing github.com/gogpu/mandelbrot/gpu)
//	ev, err := mandelbrot.NewEvaluator(mandelbrot.KindParallel,
//	    mandelbrot.WithDevice(mandelbrot.DeviceWGPU))
//
//	// CPU data-parallel evaluator on 8 goroutines
//	ev, err := mandelbrot.NewEvaluator(mandelbrot.KindParallel,
//	    mandelbrot.WithDevice(mandelbrot.DeviceSoftware),
//	    mandelbrot.WithWorkers(8))
type Option func(*options)

// options holds optional evaluator configuration.
type options struct {
	device  string
	workers int
	timeout time.Duration
}

// defaultOptions returns the default evaluator options.
func defaultOptions() options {
	return options{
		device:  "", // DefaultDevice()
		workers: 0,  // GOMAXPROCS
		timeout: 0,  // device default
	}
}

// WithDevice selects the compute device of a parallel evaluator by its
// registry name. Ignored by the sequential evaluator.
func WithDevice(name string) Option {
	return func(o *options) {
		o.device = name
	}
}

// WithWorkers sets the goroutine count of CPU devices.
// Zero or negative values mean GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithTimeout bounds how long GPU devices wait for a dispatch to finish.
// Zero means the device default.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}
