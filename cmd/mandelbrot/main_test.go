package main

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gogpu/mandelbrot"
)

// brokenDevice fails to open.
type brokenDevice struct{}

var errBroken = errors.New("no adapter")

func (brokenDevice) Name() string { return "broken" }

func (brokenDevice) Open() error { return errBroken }

func (brokenDevice) Build(*mandelbrot.Kernel) (mandelbrot.Program, error) {
	return nil, errBroken
}

func (brokenDevice) Alloc(int) (mandelbrot.DeviceBuffer, error) {
	return nil, errBroken
}

func (brokenDevice) Enqueue(mandelbrot.Program, mandelbrot.DeviceBuffer, mandelbrot.KernelParams) error {
	return errBroken
}

func (brokenDevice) Finish() error { return errBroken }

func (brokenDevice) Read(mandelbrot.DeviceBuffer, []uint32) error { return errBroken }

func (brokenDevice) Close() {}

func registerBroken(t *testing.T) {
	t.Helper()
	mandelbrot.RegisterDevice("broken", func(mandelbrot.DeviceConfig) mandelbrot.Device { return brokenDevice{} })
	t.Cleanup(func() { mandelbrot.UnregisterDevice("broken") })
}

func testConfig(t *testing.T, args ...string) config {
	t.Helper()
	out := filepath.Join(t.TempDir(), "set.png")
	base := []string{"-width", "70", "-height", "40", "-max-iter", "100", "-output", out}
	cfg, err := parseFlags(append(base, args...), &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	return cfg
}

func TestRunSequential(t *testing.T) {
	cfg := testConfig(t, "-backend", "sequential")
	var stdout bytes.Buffer
	if err := run(cfg, &stdout); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "Elapsed: ") {
		t.Errorf("stdout = %q, want Elapsed line first", stdout.String())
	}

	f, err := os.Open(cfg.output)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 70 || b.Dy() != 40 {
		t.Errorf("image is %dx%d, want 70x40", b.Dx(), b.Dy())
	}
}

func TestRunSoftwareVerify(t *testing.T) {
	cfg := testConfig(t, "-device", "software", "-workers", "2", "-verify")
	var stdout bytes.Buffer
	if err := run(cfg, &stdout); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "0 differing, 0 classification mismatches") {
		t.Errorf("verify output = %q", stdout.String())
	}
	if !strings.Contains(stdout.String(), "2,800 pixels") {
		t.Errorf("summary should format pixel count: %q", stdout.String())
	}
}

func TestRunDeviceFailure(t *testing.T) {
	registerBroken(t)
	cfg := testConfig(t, "-device", "broken")

	err := run(cfg, &bytes.Buffer{})
	if !errors.Is(err, mandelbrot.ErrDeviceUnavailable) || !errors.Is(err, errBroken) {
		t.Fatalf("run() = %v, want device unavailable error", err)
	}
	if _, statErr := os.Stat(cfg.output); !os.IsNotExist(statErr) {
		t.Errorf("output file exists after failure: %v", statErr)
	}
}

func TestRunFallback(t *testing.T) {
	registerBroken(t)
	cfg := testConfig(t, "-device", "broken", "-fallback")

	var stdout bytes.Buffer
	if err := run(cfg, &stdout); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "with sequential") {
		t.Errorf("summary should name the fallback evaluator: %q", stdout.String())
	}
	if _, err := os.Stat(cfg.output); err != nil {
		t.Errorf("output not written: %v", err)
	}
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0"},
		{1500 * time.Millisecond, "1.5"},
		{2345*time.Millisecond + 999*time.Microsecond, "2.345"},
	}
	for _, tt := range tests {
		if got := formatSeconds(tt.d); got != tt.want {
			t.Errorf("formatSeconds(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
