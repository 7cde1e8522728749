package mandelbrot

// SequentialEvaluator computes every pixel on the calling goroutine.
// It holds no state and is safe for concurrent use.
type SequentialEvaluator struct{}

var _ Evaluator = SequentialEvaluator{}

// NewSequentialEvaluator returns a SequentialEvaluator.
func NewSequentialEvaluator() SequentialEvaluator {
	return SequentialEvaluator{}
}

// Name returns "sequential".
func (SequentialEvaluator) Name() string { return KindSequential }

// Close is a no-op.
func (SequentialEvaluator) Close() {}

// Evaluate runs the escape-time kernel once per pixel, column by column.
// The only failure is an invalid size.
func (SequentialEvaluator) Evaluate(width, height int, maxIter uint32) (*Grid, error) {
	if err := checkSize(width, height, maxIter); err != nil {
		return nil, err
	}

	g := NewGrid(width, height)
	p := KernelParams{Width: uint32(width), Height: uint32(height), MaxIter: maxIter} //nolint:gosec // checked by checkSize
	for col := 0; col < width; col++ {
		for row := 0; row < height; row++ {
			g.Counts[width*row+col] = Escape(uint32(col), uint32(row), p) //nolint:gosec // bounded by width/height
		}
	}
	return g, nil
}
