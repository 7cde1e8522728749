package mandelbrot

import (
	"errors"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Format is a lossless output file format.
type Format uint8

const (
	// FormatPNG writes PNG (the reference format).
	FormatPNG Format = iota

	// FormatTIFF writes deflate-compressed TIFF.
	FormatTIFF

	// FormatBMP writes uncompressed BMP.
	FormatBMP
)

// ErrUnknownFormat is returned for unsupported format names or extensions.
var ErrUnknownFormat = errors.New("mandelbrot: unknown image format")

// String returns the canonical name of the format.
func (f Format) String() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatTIFF:
		return "tiff"
	case FormatBMP:
		return "bmp"
	default:
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
}

// ParseFormat parses a format name ("png", "tiff"/"tif", "bmp").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "png":
		return FormatPNG, nil
	case "tiff", "tif":
		return FormatTIFF, nil
	case "bmp":
		return FormatBMP, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// FormatFromPath picks the format from the file extension of path.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return 0, fmt.Errorf("%w: %q has no extension", ErrUnknownFormat, path)
	}
	return ParseFormat(ext)
}

// Encode writes img to w in format f.
func Encode(w io.Writer, img *Image, f Format) error {
	rgba := img.ToRGBA()
	var err error
	switch f {
	case FormatPNG:
		err = png.Encode(w, rgba)
	case FormatTIFF:
		err = tiff.Encode(w, rgba, &tiff.Options{Compression: tiff.Deflate})
	case FormatBMP:
		err = bmp.Encode(w, rgba)
	default:
		return fmt.Errorf("%w: %v", ErrUnknownFormat, f)
	}
	if err != nil {
		return fmt.Errorf("mandelbrot: encode %s: %w", f, err)
	}
	return nil
}

// SaveFile encodes img into path. The data is written to a temporary file
// in the same directory and renamed into place only after encoding
// succeeded, so a failed save never leaves a partial file at path.
func SaveFile(path string, img *Image, f Format) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return fmt.Errorf("mandelbrot: create output: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err = Encode(tmp, img, f); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("mandelbrot: close output: %w", err)
	}
	// CreateTemp uses 0600.
	if err = os.Chmod(tmpName, 0o644); err != nil { //nolint:gosec // output image is meant to be readable
		return fmt.Errorf("mandelbrot: chmod output: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("mandelbrot: rename output: %w", err)
	}
	Logger().Debug("image saved", "path", path, "format", f.String(),
		"width", img.Width(), "height", img.Height())
	return nil
}
