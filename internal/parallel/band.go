// Package parallel provides the goroutine pool and work partitioning used by
// the software compute device.
//
// The escape-time workload is embarrassingly parallel: every pixel is an
// independent work unit. Units are grouped into horizontal bands of rows so
// that a work item is large enough to amortize scheduling, while keeping
// several bands per worker for stealing to even out the load.
package parallel

// BandsPerWorker is how many bands Split aims to give each worker.
const BandsPerWorker = 4

// Band is the half-open row range [Start, End).
type Band struct {
	Start int
	End   int
}

// Rows returns the number of rows in the band.
func (b Band) Rows() int {
	return b.End - b.Start
}

// Split partitions rows [0, rows) into at most parts contiguous bands of
// near-equal height. Bands never overlap and cover every row exactly once.
// It returns nil when rows <= 0. parts <= 0 is treated as 1.
func Split(rows, parts int) []Band {
	if rows <= 0 {
		return nil
	}
	parts = min(max(parts, 1), rows)

	bands := make([]Band, 0, parts)
	base, extra := rows/parts, rows%parts
	start := 0
	for i := range parts {
		h := base
		if i < extra {
			h++
		}
		bands = append(bands, Band{Start: start, End: start + h})
		start += h
	}
	return bands
}

// SplitFixed partitions rows [0, rows) into bands of at most size rows.
// The last band may be shorter. size <= 0 is treated as 1.
func SplitFixed(rows, size int) []Band {
	if rows <= 0 {
		return nil
	}
	size = max(size, 1)

	bands := make([]Band, 0, (rows+size-1)/size)
	for start := 0; start < rows; start += size {
		bands = append(bands, Band{Start: start, End: min(start+size, rows)})
	}
	return bands
}
