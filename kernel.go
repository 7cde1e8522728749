package mandelbrot

import (
	"strconv"
	"strings"
	"sync"
	"text/template"
)

// Reference configuration of the renderer.
const (
	// DefaultWidth is the reference image width in pixels.
	DefaultWidth = 10000

	// DefaultHeight is the reference image height in pixels.
	DefaultHeight = 6000

	// DefaultMaxIter is the iteration budget shared by the evaluators and
	// the color mapper.
	DefaultMaxIter uint32 = 1000

	// DefaultOutput is the file name written by the reference program.
	DefaultOutput = "Mandelbrot_set_1.png"
)

// Complex-plane mapping and escape test. The host kernel and the generated
// WGSL source both read these values.
const (
	realSpan       float32 = 3.5
	realOffset     float32 = 2.5
	imagSpan       float32 = 2.0
	imagOffset     float32 = 1.0
	escapeRadiusSq float32 = 4.0

	workgroupX = 8
	workgroupY = 8

	kernelEntry = "escape_time"
)

// KernelParams are the uniform inputs of one kernel dispatch.
type KernelParams struct {
	Width   uint32
	Height  uint32
	MaxIter uint32
}

// Pixels returns Width*Height.
func (p KernelParams) Pixels() int {
	return int(p.Width) * int(p.Height)
}

// MapPoint maps pixel (col, row) of a width×height grid to the complex
// point c = x0 + i·y0. The real axis covers [-2.5, 1.0) and the imaginary
// axis [-1.0, 1.0).
func MapPoint(col, row, width, height uint32) (x0, y0 float32) {
	// Explicit float32 conversions stop the compiler from fusing the
	// multiply into the following subtraction.
	x0 = float32(float32(col)/float32(width)*realSpan) - realOffset
	y0 = float32(float32(row)/float32(height)*imagSpan) - imagOffset
	return x0, y0
}

// Escape returns the number of iterations of z ← z² + c, starting at z = 0,
// performed before |z|² exceeds 4, capped at p.MaxIter. c is the point
// MapPoint assigns to (col, row). The result is always in [0, p.MaxIter].
func Escape(col, row uint32, p KernelParams) uint32 {
	x0, y0 := MapPoint(col, row, p.Width, p.Height)

	var x, y float32
	var n uint32
	for n < p.MaxIter {
		xx := float32(x * x)
		yy := float32(y * y)
		if xx+yy > escapeRadiusSq {
			break
		}
		xNext := float32(xx-yy) + x0
		y = float32(2*x*y) + y0
		x = xNext
		n++
	}
	return n
}

// Kernel bundles the two expressions of the escape-time recurrence: WGSL
// source for compute devices and the equivalent host function.
type Kernel struct {
	// Name is the WGSL entry point.
	Name string

	// Source is the WGSL compute shader. It binds a uniform parameter block
	// at @group(0) @binding(0) and the u32 count buffer at @binding(1).
	Source string

	// WorkgroupSize is the (x, y) workgroup size declared in Source.
	WorkgroupSize [2]uint32

	// Host computes one work unit on the CPU.
	Host func(col, row uint32, p KernelParams) uint32
}

// EscapeKernel returns the escape-time kernel. The WGSL source is rendered
// once from the same constants Escape uses.
func EscapeKernel() *Kernel {
	return escapeKernel()
}

var escapeKernel = sync.OnceValue(func() *Kernel {
	var sb strings.Builder
	err := wgslTemplate.Execute(&sb, struct {
		Entry          string
		WorkgroupX     int
		WorkgroupY     int
		RealSpan       float32
		RealOffset     float32
		ImagSpan       float32
		ImagOffset     float32
		EscapeRadiusSq float32
	}{
		Entry:          kernelEntry,
		WorkgroupX:     workgroupX,
		WorkgroupY:     workgroupY,
		RealSpan:       realSpan,
		RealOffset:     realOffset,
		ImagSpan:       imagSpan,
		ImagOffset:     imagOffset,
		EscapeRadiusSq: escapeRadiusSq,
	})
	if err != nil {
		// The template and its data are fixed at compile time.
		panic("mandelbrot: render kernel source: " + err.Error())
	}
	return &Kernel{
		Name:          kernelEntry,
		Source:        sb.String(),
		WorkgroupSize: [2]uint32{workgroupX, workgroupY},
		Host:          Escape,
	}
})

// wgslFloat formats v as a WGSL f32 literal ("2" becomes "2.0").
func wgslFloat(v float32) string {
	s := strconv.FormatFloat(float64(v), 'f', -1, 32)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

var wgslTemplate = template.Must(template.New("escape_time.wgsl").
	Funcs(template.FuncMap{"f32": wgslFloat}).
	Parse(escapeTimeWGSL))

// Params must stay 32 bytes; internal/gpu packs the same layout.
const escapeTimeWGSL = `// Escape-time Mandelbrot kernel. One invocation per pixel.

struct Params {
    width: u32,
    height: u32,
    max_iter: u32,
    row_offset: u32,
    rows: u32,
    pad0: u32,
    pad1: u32,
    pad2: u32,
}

@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var<storage, read_write> counts: array<u32>;

@compute @workgroup_size({{.WorkgroupX}}, {{.WorkgroupY}}, 1)
fn {{.Entry}}(@builtin(global_invocation_id) gid: vec3<u32>) {
    let col = gid.x;
    let band_row = gid.y;
    if (col >= params.width || band_row >= params.rows) {
        return;
    }
    let row = params.row_offset + band_row;

    let x0 = f32(col) / f32(params.width) * {{f32 .RealSpan}} - {{f32 .RealOffset}};
    let y0 = f32(row) / f32(params.height) * {{f32 .ImagSpan}} - {{f32 .ImagOffset}};

    var x: f32 = 0.0;
    var y: f32 = 0.0;
    var n: u32 = 0u;
    loop {
        if (n >= params.max_iter) {
            break;
        }
        let xx = x * x;
        let yy = y * y;
        if (xx + yy > {{f32 .EscapeRadiusSq}}) {
            break;
        }
        let x_next = xx - yy + x0;
        y = 2.0 * x * y + y0;
        x = x_next;
        n = n + 1u;
    }

    counts[band_row * params.width + col] = n;
}
`
