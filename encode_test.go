package mandelbrot

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func testImage(t *testing.T) *Image {
	t.Helper()
	g, err := NewSequentialEvaluator().Evaluate(21, 12, 64)
	if err != nil {
		t.Fatal(err)
	}
	return Render(g, 64, ColorCompat)
}

func TestEncodeRoundTrip(t *testing.T) {
	img := testImage(t)
	decoders := map[Format]func(*bytes.Reader) (image.Image, error){
		FormatPNG:  func(r *bytes.Reader) (image.Image, error) { return png.Decode(r) },
		FormatTIFF: func(r *bytes.Reader) (image.Image, error) { return tiff.Decode(r) },
		FormatBMP:  func(r *bytes.Reader) (image.Image, error) { return bmp.Decode(r) },
	}
	for f, decode := range decoders {
		t.Run(f.String(), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, img, f); err != nil {
				t.Fatalf("Encode: %v", err)
			}
			got, err := decode(bytes.NewReader(buf.Bytes()))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.Bounds() != img.Bounds() {
				t.Fatalf("bounds = %v, want %v", got.Bounds(), img.Bounds())
			}
			for y := 0; y < img.Height(); y++ {
				for x := 0; x < img.Width(); x++ {
					r, _, _, _ := got.At(x, y).RGBA()
					if want := img.PixelAt(x, y).R; uint8(r>>8) != want {
						t.Fatalf("pixel (%d, %d) = %d, want %d", x, y, r>>8, want)
					}
				}
			}
		})
	}
}

func TestEncodeUnknownFormat(t *testing.T) {
	err := Encode(&bytes.Buffer{}, testImage(t), Format(9))
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Encode() = %v, want ErrUnknownFormat", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"png", FormatPNG, false},
		{"PNG", FormatPNG, false},
		{"tif", FormatTIFF, false},
		{"tiff", FormatTIFF, false},
		{"bmp", FormatBMP, false},
		{"jpeg", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v", tt.in, err)
			continue
		}
		if tt.wantErr && !errors.Is(err, ErrUnknownFormat) {
			t.Errorf("ParseFormat(%q) error = %v, want ErrUnknownFormat", tt.in, err)
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatFromPath(t *testing.T) {
	if f, err := FormatFromPath("out/Mandelbrot_set_1.png"); err != nil || f != FormatPNG {
		t.Errorf("FormatFromPath(png) = %v, %v", f, err)
	}
	if f, err := FormatFromPath("set.TIF"); err != nil || f != FormatTIFF {
		t.Errorf("FormatFromPath(TIF) = %v, %v", f, err)
	}
	if _, err := FormatFromPath("noext"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("FormatFromPath(noext) = %v, want ErrUnknownFormat", err)
	}
}

func TestSaveFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultOutput)
	if err := SaveFile(path, testImage(t), FormatPNG); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if cfg.Width != 21 || cfg.Height != 12 {
		t.Errorf("saved %dx%d, want 21x12", cfg.Width, cfg.Height)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want only the output file", len(entries))
	}
}

func TestSaveFileFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.png")
	if err := SaveFile(path, testImage(t), Format(9)); err == nil {
		t.Fatal("expected error")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("failed save left %d entries behind", len(entries))
	}
}

func TestSaveFileMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "set.png")
	if err := SaveFile(path, testImage(t), FormatPNG); err == nil {
		t.Fatal("expected error for missing directory")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("output exists: %v", err)
	}
}
