package mandelbrot

import (
	"fmt"
	"image/color"
	"math"
)

// Pixel is a gray value stored in an RGB triple. All three channels are
// always equal.
type Pixel struct {
	R, G, B uint8
}

// Gray returns the pixel with all channels set to v.
func Gray(v uint8) Pixel {
	return Pixel{R: v, G: v, B: v}
}

// Common pixels.
var (
	Black = Gray(0)
	White = Gray(255)
)

// Color converts the pixel to an opaque color.RGBA.
func (p Pixel) Color() color.RGBA {
	return color.RGBA{R: p.R, G: p.G, B: p.B, A: 255}
}

// ColorMode selects how iteration counts become gray levels.
type ColorMode uint8

const (
	// ColorCompat reproduces the reference output byte for byte. A pixel
	// that reached the iteration budget is drawn with the low byte of the
	// count, so maxIter = 1000 yields gray 232.
	ColorCompat ColorMode = iota

	// ColorInSetBlack draws pixels that reached the iteration budget black.
	ColorInSetBlack
)

// String returns the CLI name of the mode.
func (m ColorMode) String() string {
	switch m {
	case ColorCompat:
		return "compat"
	case ColorInSetBlack:
		return "black"
	default:
		return fmt.Sprintf("ColorMode(%d)", uint8(m))
	}
}

// ParseColorMode parses a mode name as returned by String.
func ParseColorMode(s string) (ColorMode, error) {
	switch s {
	case "compat", "":
		return ColorCompat, nil
	case "black":
		return ColorInSetBlack, nil
	default:
		return 0, fmt.Errorf("mandelbrot: unknown color mode %q (want compat or black)", s)
	}
}

// MapColor maps an iteration count to a pixel using ColorCompat.
func MapColor(n, maxIter uint32) Pixel {
	return ColorCompat.Map(n, maxIter)
}

// Map converts iteration count n to a gray pixel. It is total over all
// uint32 inputs:
//
//   - n > maxIter: white
//   - n == maxIter: mode dependent (see ColorCompat, ColorInSetBlack)
//   - otherwise: round(n/maxIter*255)
func (m ColorMode) Map(n, maxIter uint32) Pixel {
	if n > maxIter {
		return White
	}
	if n == maxIter {
		if m == ColorInSetBlack {
			return Black
		}
		return Gray(uint8(n)) //nolint:gosec // truncation is the documented behavior
	}
	ratio := float32(n) / float32(maxIter)
	return Gray(clamp255(math.Round(float64(float32(ratio * 255)))))
}

// clamp255 clamps v into a byte.
func clamp255(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
