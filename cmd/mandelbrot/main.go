// Command mandelbrot renders the Mandelbrot set to an image file.
//
// By default it evaluates a 10000×6000 grid with 1000 iterations on the
// best available compute device and writes Mandelbrot_set_1.png:
//
//	mandelbrot
//	mandelbrot -backend sequential -width 1920 -height 1080 -output set.png
//	mandelbrot -device software -workers 8 -verify
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/mandelbrot"
	_ "github.com/gogpu/mandelbrot/gpu" // register the wgpu device
)

func main() {
	cfg, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "mandelbrot:", err)
		os.Exit(1)
	}
	if cfg.verbose {
		mandelbrot.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	if err := run(cfg, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "mandelbrot:", err)
		os.Exit(1)
	}
}

// run evaluates the grid, colors it and writes the output file. Nothing is
// written when any step fails.
func run(cfg config, stdout io.Writer) error {
	format, err := cfg.outputFormat()
	if err != nil {
		return err
	}
	mode, err := mandelbrot.ParseColorMode(cfg.color)
	if err != nil {
		return err
	}
	maxIter := uint32(cfg.maxIter) //nolint:gosec // checked by validate

	ev, err := mandelbrot.NewEvaluator(cfg.backend, cfg.options()...)
	if err != nil {
		return err
	}
	defer ev.Close()

	start := time.Now()
	grid, used, err := evaluate(ev, cfg, maxIter)
	if err != nil {
		return err
	}
	img := mandelbrot.Render(grid, maxIter, mode)
	elapsed := time.Since(start)

	fmt.Fprintf(stdout, "Elapsed: %ss\n", formatSeconds(elapsed))

	if cfg.verify {
		if err := verify(grid, used, cfg, maxIter, stdout); err != nil {
			return err
		}
	}

	if err := mandelbrot.SaveFile(cfg.output, img, format); err != nil {
		return err
	}

	p := message.NewPrinter(language.English)
	p.Fprintf(stdout, "%s: %d×%d (%d pixels) with %s, max-iter %d\n",
		cfg.output, cfg.width, cfg.height, cfg.width*cfg.height, used, maxIter)
	return nil
}

// evaluate runs ev and, with -fallback, retries on the sequential evaluator
// when a compute device stage fails. It returns the name of the evaluator
// that produced the grid.
func evaluate(ev mandelbrot.Evaluator, cfg config, maxIter uint32) (*mandelbrot.Grid, string, error) {
	grid, err := ev.Evaluate(cfg.width, cfg.height, maxIter)
	if err == nil {
		return grid, ev.Name(), nil
	}
	if !cfg.fallback || !mandelbrot.IsDeviceError(err) {
		return nil, "", err
	}

	mandelbrot.Logger().Warn("compute device failed, falling back to sequential evaluation", "err", err)
	seq := mandelbrot.NewSequentialEvaluator()
	grid, err = seq.Evaluate(cfg.width, cfg.height, maxIter)
	if err != nil {
		return nil, "", err
	}
	return grid, seq.Name(), nil
}

// verify evaluates the grid again with the other evaluator and reports how
// many pixels disagree.
func verify(grid *mandelbrot.Grid, used string, cfg config, maxIter uint32, stdout io.Writer) error {
	var other mandelbrot.Evaluator
	if used == mandelbrot.KindSequential {
		ev, err := mandelbrot.NewEvaluator(mandelbrot.KindParallel, cfg.options()...)
		if err != nil {
			return err
		}
		other = ev
	} else {
		other = mandelbrot.NewSequentialEvaluator()
	}
	defer other.Close()

	ref, err := other.Evaluate(cfg.width, cfg.height, maxIter)
	if err != nil {
		return fmt.Errorf("verify with %s: %w", other.Name(), err)
	}
	cmp, err := grid.Compare(ref, maxIter)
	if err != nil {
		return err
	}

	p := message.NewPrinter(language.English)
	p.Fprintf(stdout, "Verify %s against %s: %d differing, %d classification mismatches, max divergence %d\n",
		used, other.Name(), cmp.Differing, cmp.ClassMismatch, cmp.MaxDiff)
	return nil
}

// formatSeconds renders d as seconds with millisecond resolution.
func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(float64(d.Milliseconds())/1000, 'f', -1, 32)
}
