package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"slices"
	"time"

	"github.com/gogpu/mandelbrot"
)

// config holds the command-line settings.
type config struct {
	width    int
	height   int
	maxIter  uint
	output   string
	backend  string
	device   string
	workers  int
	timeout  time.Duration
	format   string
	color    string
	fallback bool
	verify   bool
	verbose  bool
}

// parseFlags parses args (without the program name) into a config.
func parseFlags(args []string, stderr io.Writer) (config, error) {
	var cfg config
	fs := flag.NewFlagSet("mandelbrot", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.IntVar(&cfg.width, "width", mandelbrot.DefaultWidth, "image width in pixels")
	fs.IntVar(&cfg.height, "height", mandelbrot.DefaultHeight, "image height in pixels")
	fs.UintVar(&cfg.maxIter, "max-iter", uint(mandelbrot.DefaultMaxIter), "iteration budget")
	fs.StringVar(&cfg.output, "output", mandelbrot.DefaultOutput, "output file")
	fs.StringVar(&cfg.backend, "backend", mandelbrot.KindParallel, "evaluator: parallel or sequential")
	fs.StringVar(&cfg.device, "device", "", "compute device for the parallel evaluator (default: best available)")
	fs.IntVar(&cfg.workers, "workers", 0, "goroutines of the software device (0 = GOMAXPROCS)")
	fs.DurationVar(&cfg.timeout, "timeout", 0, "GPU dispatch timeout (0 = device default)")
	fs.StringVar(&cfg.format, "format", "", "output format: png, tiff or bmp (default: from file extension)")
	fs.StringVar(&cfg.color, "color", mandelbrot.ColorCompat.String(), "in-set coloring: compat or black")
	fs.BoolVar(&cfg.fallback, "fallback", false, "retry on the sequential evaluator when the device fails")
	fs.BoolVar(&cfg.verify, "verify", false, "cross-check against the other evaluator")
	fs.BoolVar(&cfg.verbose, "v", false, "debug logging on stderr")

	if err := fs.Parse(args); err != nil {
		return config{}, err
	}
	if fs.NArg() > 0 {
		return config{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return cfg, cfg.validate()
}

// validate checks the config before any work is done.
func (c *config) validate() error {
	if c.width <= 0 || c.height <= 0 {
		return fmt.Errorf("invalid size %dx%d", c.width, c.height)
	}
	if c.maxIter == 0 || c.maxIter > math.MaxUint32 {
		return fmt.Errorf("invalid -max-iter %d", c.maxIter)
	}
	if c.output == "" {
		return errors.New("-output must not be empty")
	}
	if !slices.Contains(mandelbrot.Kinds(), c.backend) {
		return fmt.Errorf("unknown -backend %q (want one of %v)", c.backend, mandelbrot.Kinds())
	}
	if c.device != "" && !slices.Contains(mandelbrot.Devices(), c.device) {
		return fmt.Errorf("unknown -device %q (available: %v)", c.device, mandelbrot.Devices())
	}
	if c.timeout < 0 {
		return fmt.Errorf("invalid -timeout %v", c.timeout)
	}
	if _, err := c.outputFormat(); err != nil {
		return err
	}
	if _, err := mandelbrot.ParseColorMode(c.color); err != nil {
		return err
	}
	return nil
}

// outputFormat returns the -format value, or the format implied by the
// output file extension.
func (c *config) outputFormat() (mandelbrot.Format, error) {
	if c.format != "" {
		return mandelbrot.ParseFormat(c.format)
	}
	return mandelbrot.FormatFromPath(c.output)
}

func (c *config) options() []mandelbrot.Option {
	return []mandelbrot.Option{
		mandelbrot.WithDevice(c.device),
		mandelbrot.WithWorkers(c.workers),
		mandelbrot.WithTimeout(c.timeout),
	}
}
