package mandelbrot

import "fmt"

// Grid is a dense width×height array of iteration counts stored as one flat
// slice. The count of pixel (col, row) lives at Counts[Width*row+col], the
// same layout the compute devices write.
type Grid struct {
	Width  int
	Height int
	Counts []uint32
}

// NewGrid allocates a zeroed grid.
func NewGrid(width, height int) *Grid {
	return &Grid{
		Width:  width,
		Height: height,
		Counts: make([]uint32, width*height),
	}
}

// gridFromBuffer reinterprets a flat readback buffer as a grid without
// copying. The caller hands over ownership of counts.
func gridFromBuffer(width, height int, counts []uint32) (*Grid, error) {
	if len(counts) != width*height {
		return nil, fmt.Errorf("mandelbrot: buffer holds %d counts, want %dx%d", len(counts), width, height)
	}
	return &Grid{Width: width, Height: height, Counts: counts}, nil
}

// Index returns the flat index of (col, row).
func (g *Grid) Index(col, row int) int {
	return g.Width*row + col
}

// At returns the count of (col, row). Out-of-range coordinates return 0.
func (g *Grid) At(col, row int) uint32 {
	if col < 0 || col >= g.Width || row < 0 || row >= g.Height {
		return 0
	}
	return g.Counts[g.Index(col, row)]
}

// Set stores the count of (col, row). Out-of-range coordinates are ignored.
func (g *Grid) Set(col, row int, n uint32) {
	if col < 0 || col >= g.Width || row < 0 || row >= g.Height {
		return
	}
	g.Counts[g.Index(col, row)] = n
}

// Equal reports whether both grids have the same size and identical counts.
func (g *Grid) Equal(o *Grid) bool {
	if g.Width != o.Width || g.Height != o.Height || len(g.Counts) != len(o.Counts) {
		return false
	}
	for i, n := range g.Counts {
		if o.Counts[i] != n {
			return false
		}
	}
	return true
}

// Comparison summarizes how two grids of the same size differ.
type Comparison struct {
	// Differing is the number of pixels whose counts are not identical.
	Differing int

	// ClassMismatch is the number of pixels that reached maxIter in one
	// grid but escaped in the other.
	ClassMismatch int

	// MaxDiff is the largest absolute count difference of any pixel.
	MaxDiff uint32
}

// Compare compares g against o. Both grids must share dimensions.
func (g *Grid) Compare(o *Grid, maxIter uint32) (Comparison, error) {
	if g.Width != o.Width || g.Height != o.Height {
		return Comparison{}, fmt.Errorf("mandelbrot: compare %dx%d grid with %dx%d grid",
			g.Width, g.Height, o.Width, o.Height)
	}
	var c Comparison
	for i, a := range g.Counts {
		b := o.Counts[i]
		if a == b {
			continue
		}
		c.Differing++
		d := a - b
		if b > a {
			d = b - a
		}
		c.MaxDiff = max(c.MaxDiff, d)
		if (a >= maxIter) != (b >= maxIter) {
			c.ClassMismatch++
		}
	}
	return c, nil
}
