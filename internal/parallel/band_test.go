package parallel

import "testing"

func checkCover(t *testing.T, bands []Band, rows int) {
	t.Helper()
	next := 0
	for i, b := range bands {
		if b.Start != next {
			t.Fatalf("band %d starts at %d, want %d", i, b.Start, next)
		}
		if b.Rows() <= 0 {
			t.Fatalf("band %d is empty: %+v", i, b)
		}
		next = b.End
	}
	if next != rows {
		t.Fatalf("bands cover %d rows, want %d", next, rows)
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		rows, parts int
		wantBands   int
	}{
		{10, 3, 3},
		{6000, 32, 32},
		{3, 8, 3},
		{1, 1, 1},
		{5, 0, 1},
		{5, -2, 1},
	}
	for _, tt := range tests {
		bands := Split(tt.rows, tt.parts)
		if len(bands) != tt.wantBands {
			t.Errorf("Split(%d, %d) gave %d bands, want %d", tt.rows, tt.parts, len(bands), tt.wantBands)
			continue
		}
		checkCover(t, bands, tt.rows)

		// Heights differ by at most one row.
		minH, maxH := bands[0].Rows(), bands[0].Rows()
		for _, b := range bands {
			minH, maxH = min(minH, b.Rows()), max(maxH, b.Rows())
		}
		if maxH-minH > 1 {
			t.Errorf("Split(%d, %d) heights range %d..%d", tt.rows, tt.parts, minH, maxH)
		}
	}
	if Split(0, 4) != nil {
		t.Error("Split(0, 4) should be nil")
	}
}

func TestSplitFixed(t *testing.T) {
	bands := SplitFixed(6000, 3352)
	if len(bands) != 2 || bands[0].Rows() != 3352 || bands[1].Rows() != 2648 {
		t.Errorf("SplitFixed(6000, 3352) = %+v", bands)
	}
	checkCover(t, bands, 6000)

	checkCover(t, SplitFixed(7, 0), 7)
	if n := len(SplitFixed(7, 0)); n != 7 {
		t.Errorf("SplitFixed(7, 0) gave %d bands, want 7", n)
	}
	if SplitFixed(-1, 3) != nil {
		t.Error("SplitFixed(-1, 3) should be nil")
	}
}
