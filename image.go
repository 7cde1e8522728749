package mandelbrot

import (
	"image"
	"image/color"
)

// Image is a width×height raster of gray pixels stored as RGB triples, row
// by row. It implements image.Image.
type Image struct {
	width  int
	height int
	pix    []uint8 // RGB, 3 bytes per pixel
}

// NewImage creates a black image.
func NewImage(width, height int) *Image {
	return &Image{
		width:  width,
		height: height,
		pix:    make([]uint8, width*height*3),
	}
}

// Render maps every count of g through mode and returns a new image of the
// same size. The image does not share memory with g.
func Render(g *Grid, maxIter uint32, mode ColorMode) *Image {
	img := NewImage(g.Width, g.Height)
	for i, n := range g.Counts {
		p := mode.Map(n, maxIter)
		img.pix[i*3+0] = p.R
		img.pix[i*3+1] = p.G
		img.pix[i*3+2] = p.B
	}
	return img
}

// Width returns the width of the image.
func (m *Image) Width() int {
	return m.width
}

// Height returns the height of the image.
func (m *Image) Height() int {
	return m.height
}

// Pix returns the raw RGB data.
func (m *Image) Pix() []uint8 {
	return m.pix
}

// PixelAt returns the pixel at (x, y). Out-of-range coordinates return Black.
func (m *Image) PixelAt(x, y int) Pixel {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		return Black
	}
	i := (y*m.width + x) * 3
	return Pixel{R: m.pix[i], G: m.pix[i+1], B: m.pix[i+2]}
}

// SetPixel sets the pixel at (x, y). Out-of-range coordinates are ignored.
func (m *Image) SetPixel(x, y int, p Pixel) {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		return
	}
	i := (y*m.width + x) * 3
	m.pix[i+0] = p.R
	m.pix[i+1] = p.G
	m.pix[i+2] = p.B
}

// ToRGBA converts the image to an opaque image.RGBA. Encoders take their
// fast path on this type.
func (m *Image) ToRGBA() *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, m.width, m.height))
	for i, j := 0, 0; i < len(m.pix); i, j = i+3, j+4 {
		dst.Pix[j+0] = m.pix[i+0]
		dst.Pix[j+1] = m.pix[i+1]
		dst.Pix[j+2] = m.pix[i+2]
		dst.Pix[j+3] = 255
	}
	return dst
}

// At implements the image.Image interface.
func (m *Image) At(x, y int) color.Color {
	return m.PixelAt(x, y).Color()
}

// Bounds implements the image.Image interface.
func (m *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.width, m.height)
}

// ColorModel implements the image.Image interface.
func (m *Image) ColorModel() color.Model {
	return color.RGBAModel
}
