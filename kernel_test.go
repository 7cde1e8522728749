package mandelbrot

import (
	"strings"
	"testing"
)

func TestMapPoint(t *testing.T) {
	tests := []struct {
		name          string
		col, row      uint32
		width, height uint32
		wantX, wantY  float32
	}{
		{"top left", 0, 0, 7, 4, -2.5, -1},
		{"origin", 5, 2, 7, 4, 0, 0},
		{"minus one", 3, 2, 7, 4, -1, 0},
		{"reference center", 5000, 3000, 10000, 6000, -0.75, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := MapPoint(tt.col, tt.row, tt.width, tt.height)
			if !approxEqual(x, tt.wantX) || !approxEqual(y, tt.wantY) {
				t.Errorf("MapPoint(%d, %d) = (%v, %v), want (%v, %v)", tt.col, tt.row, x, y, tt.wantX, tt.wantY)
			}
		})
	}
}

func approxEqual(a, b float32) bool {
	d := a - b
	return d > -1e-6 && d < 1e-6
}

func TestEscape(t *testing.T) {
	p := KernelParams{Width: 7, Height: 4, MaxIter: 1000}
	tests := []struct {
		name     string
		col, row uint32
		want     uint32
	}{
		// c = -2.5 - i: |c|² = 7.25 after the first step.
		{"corner escapes", 0, 0, 1},
		{"origin in set", 5, 2, 1000},
		{"period two bulb in set", 3, 2, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Escape(tt.col, tt.row, p); got != tt.want {
				t.Errorf("Escape(%d, %d) = %d, want %d", tt.col, tt.row, got, tt.want)
			}
		})
	}
}

func TestEscapeBudget(t *testing.T) {
	for _, maxIter := range []uint32{1, 2, 17, 100} {
		p := KernelParams{Width: 35, Height: 20, MaxIter: maxIter}
		for row := range p.Height {
			for col := range p.Width {
				if n := Escape(col, row, p); n > maxIter {
					t.Fatalf("Escape(%d, %d) = %d exceeds maxIter %d", col, row, n, maxIter)
				}
			}
		}
	}
}

func TestEscapeCornersFast(t *testing.T) {
	p := KernelParams{Width: 100, Height: 60, MaxIter: 1000}
	corners := [][2]uint32{{0, 0}, {0, 59}, {99, 0}, {99, 59}}
	for _, c := range corners {
		if n := Escape(c[0], c[1], p); n > 5 {
			t.Errorf("corner %v took %d iterations, want <= 5", c, n)
		}
	}
}

func TestKernelParamsPixels(t *testing.T) {
	p := KernelParams{Width: DefaultWidth, Height: DefaultHeight}
	if got := p.Pixels(); got != 60_000_000 {
		t.Errorf("Pixels() = %d, want 60000000", got)
	}
}

func TestEscapeKernelSource(t *testing.T) {
	k := EscapeKernel()
	if k != EscapeKernel() {
		t.Error("EscapeKernel should return the same kernel every call")
	}
	if k.Name != "escape_time" || k.Host == nil {
		t.Fatalf("unexpected kernel %q (host %v)", k.Name, k.Host != nil)
	}
	if k.WorkgroupSize != [2]uint32{8, 8} {
		t.Errorf("WorkgroupSize = %v", k.WorkgroupSize)
	}
	for _, want := range []string{
		"@compute @workgroup_size(8, 8, 1)",
		"fn escape_time(",
		"* 3.5 - 2.5",
		"* 2.0 - 1.0",
		"> 4.0",
		"counts[band_row * params.width + col] = n;",
	} {
		if !strings.Contains(k.Source, want) {
			t.Errorf("kernel source missing %q", want)
		}
	}
	if strings.Contains(k.Source, "{{") {
		t.Error("kernel source contains unexpanded template actions")
	}
}

func TestWGSLFloat(t *testing.T) {
	tests := []struct {
		in   float32
		want string
	}{
		{2, "2.0"},
		{3.5, "3.5"},
		{0.25, "0.25"},
		{-1, "-1.0"},
	}
	for _, tt := range tests {
		if got := wgslFloat(tt.in); got != tt.want {
			t.Errorf("wgslFloat(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
