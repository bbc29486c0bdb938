// Package interp implements Catmull-Rom shift-and-magnify, the
// interpolation step feeding the eSRRF pipeline.
package interp

import (
	"context"
	"fmt"
	"math"

	"github.com/lumoscope/liquid/discover"
	"github.com/lumoscope/liquid/engine"
	"github.com/lumoscope/liquid/imgstack"
	"github.com/lumoscope/liquid/parallel"
)

const Designation = "CRShiftAndMagnify"

type Args struct {
	Input  *imgstack.Stack
	ShiftY float64
	ShiftX float64
	MagY   float64
	MagX   float64
}

func (a Args) Signature() engine.Signature {
	return engine.Signature{
		Shapes: [][]int{{a.Input.Frames, a.Input.Height, a.Input.Width}},
		DType:  "float32",
		Params: []engine.Param{
			{Name: "shift_y", Value: a.ShiftY},
			{Name: "shift_x", Value: a.ShiftX},
			{Name: "mag_y", Value: a.MagY},
			{Name: "mag_x", Value: a.MagX},
		},
	}
}

func (a Args) Validate() error {
	if err := a.Input.Validate(); err != nil {
		return err
	}
	if a.MagY < 1 || a.MagX < 1 {
		return fmt.Errorf("magnification must be >= 1, got %gx%g", a.MagY, a.MagX)
	}
	return nil
}

func (a Args) outDims() (int, int) {
	return int(math.Round(float64(a.Input.Height) * a.MagY)), int(math.Round(float64(a.Input.Width) * a.MagX))
}

// New builds the operation. A nil enumerator gets a private one.
func New(enum *discover.Enumerator, opts ...engine.Option) (*engine.Operation, error) {
	if enum == nil {
		enum = discover.New()
	}
	return engine.New(Designation, engine.CPUVariants(run), append(opts, engine.WithDevices(enum))...)
}

func run(ctx context.Context, eargs engine.Args, loop parallel.Runner) (*imgstack.Stack, error) {
	a, ok := eargs.(Args)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected args type %T", Designation, eargs)
	}
	outH, outW := a.outDims()
	out := imgstack.New(a.Input.Frames, outH, outW)

	// Shard over global output rows: frame t, row y = index t*outH+y.
	err := loop(ctx, a.Input.Frames*outH, func(lo, hi int) error {
		for row := lo; row < hi; row++ {
			t, y := row/outH, row%outH
			resampleRow(a.Input.Frame(t), a.Input.Height, a.Input.Width, out.Frame(t), outW, y, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// A single input frame collapses to a 2D result.
	return out.Squeeze(), nil
}

func resampleRow(src []float32, h, w int, dst []float32, outW, y int, a Args) {
	fy := float64(y)/a.MagY - a.ShiftY
	for x := 0; x < outW; x++ {
		fx := float64(x)/a.MagX - a.ShiftX
		dst[y*outW+x] = Sample(src, h, w, fy, fx)
	}
}

// Sample evaluates the Catmull-Rom spline at fractional coordinates,
// clamping reads at the image border.
func Sample(src []float32, h, w int, fy, fx float64) float32 {
	y0 := int(math.Floor(fy))
	x0 := int(math.Floor(fx))
	ty := fy - float64(y0)
	tx := fx - float64(x0)

	var rows [4]float64
	for j := 0; j < 4; j++ {
		yy := clamp(y0-1+j, h)
		var p [4]float64
		for i := 0; i < 4; i++ {
			p[i] = float64(src[yy*w+clamp(x0-1+i, w)])
		}
		rows[j] = catmullRom(p[0], p[1], p[2], p[3], tx)
	}
	return float32(catmullRom(rows[0], rows[1], rows[2], rows[3], ty))
}

func catmullRom(p0, p1, p2, p3, t float64) float64 {
	return p1 + 0.5*t*(p2-p0+t*(2*p0-5*p1+4*p2-p3+t*(3*(p1-p2)+p3-p0)))
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
