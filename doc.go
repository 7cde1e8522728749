// Package mandelbrot renders the Mandelbrot set as a grayscale raster using
// escape-time iteration.
//
// # Overview
//
// Every pixel (col, row) of a width×height grid is mapped to a point
// c = x0 + i·y0 of the complex plane, with the real axis spanning
// [-2.5, 1.0] and the imaginary axis spanning [-1.0, 1.0]. The recurrence
// z ← z² + c is iterated from z = 0 until |z|² exceeds 4 or the iteration
// budget is exhausted. The number of iterations taken is the pixel's
// iteration count; a [ColorMode] turns counts into gray pixels.
//
// # Quick Start
//
//	ev := mandelbrot.NewSequentialEvaluator()
//	grid, err := ev.Evaluate(1000, 600, mandelbrot.DefaultMaxIter)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	img := mandelbrot.Render(grid, mandelbrot.DefaultMaxIter, mandelbrot.ColorCompat)
//	err = mandelbrot.SaveFile("mandelbrot.png", img, mandelbrot.FormatPNG)
//
// # Evaluators
//
// Two strategies produce the same [Grid]:
//
//   - [SequentialEvaluator] loops over every pixel on the calling goroutine.
//   - [ParallelEvaluator] dispatches one kernel invocation covering the whole
//     index space to a compute [Device], waits on a barrier and reads the
//     flat result buffer back.
//
// Devices are registered by name. The "software" device is always available
// and runs work units on a goroutine pool. The "wgpu" device runs the kernel
// as a WGSL compute shader and is registered by importing the gpu package:
//
//	import _ "github.com/gogpu/mandelbrot/gpu"
//
// Neither evaluator falls back to the other on failure. Device failures are
// reported as [*DeviceError] values matching one stage sentinel
// ([ErrDeviceUnavailable], [ErrKernelBuild], [ErrBufferAlloc], [ErrEnqueue],
// [ErrSync], [ErrReadback]) so callers can choose their own policy.
//
// # Precision
//
// All arithmetic is single precision on both paths. The host and device
// expressions of the recurrence are generated from the same constants (see
// [EscapeKernel]). Pixels close to the set boundary may still differ by a few
// iterations between a GPU and the host because of evaluation order.
package mandelbrot

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
