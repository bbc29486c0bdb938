// Package radiality implements the SRRF radiality transform: for each
// magnified grid position, how strongly the surrounding intensity
// gradients converge on it. True emitters produce high radiality,
// shot noise does not.
package radiality

import (
	"context"
	"fmt"
	"math"

	"github.com/lumoscope/liquid/discover"
	"github.com/lumoscope/liquid/engine"
	"github.com/lumoscope/liquid/imgstack"
	"github.com/lumoscope/liquid/parallel"
)

const Designation = "SRRFRadiality"

// ringSamples is the number of points on the sampling ring around each
// magnified position.
const ringSamples = 12

type Args struct {
	Input *imgstack.Stack

	// Magnification is the super-resolution upsampling factor.
	Magnification int

	// RingRadius is the sampling ring radius in original pixels.
	RingRadius float64
}

func (a Args) Signature() engine.Signature {
	return engine.Signature{
		Shapes: [][]int{{a.Input.Frames, a.Input.Height, a.Input.Width}},
		DType:  "float32",
		Params: []engine.Param{
			{Name: "magnification", Value: float64(a.Magnification)},
			{Name: "ring_radius", Value: a.RingRadius},
		},
	}
}

func (a Args) Validate() error {
	if err := a.Input.Validate(); err != nil {
		return err
	}
	if a.Magnification < 1 {
		return fmt.Errorf("magnification must be >= 1, got %d", a.Magnification)
	}
	if a.RingRadius <= 0 {
		return fmt.Errorf("ring radius must be positive, got %g", a.RingRadius)
	}
	return nil
}

// New builds the operation. A nil enumerator gets a private one.
func New(enum *discover.Enumerator, opts ...engine.Option) (*engine.Operation, error) {
	if enum == nil {
		enum = discover.New()
	}
	return engine.New(Designation, engine.CPUVariants(run), append(opts, engine.WithDevices(enum))...)
}

// ring holds the precomputed sample offsets. It is built per call and
// passed by value into the row loop: variants keep no state between
// invocations.
type ring struct {
	dy [ringSamples]float64
	dx [ringSamples]float64
	r  float64
}

func makeRing(radius float64) ring {
	rg := ring{r: radius}
	for k := 0; k < ringSamples; k++ {
		theta := 2 * math.Pi * float64(k) / ringSamples
		rg.dy[k] = radius * math.Sin(theta)
		rg.dx[k] = radius * math.Cos(theta)
	}
	return rg
}

func run(ctx context.Context, eargs engine.Args, loop parallel.Runner) (*imgstack.Stack, error) {
	a, ok := eargs.(Args)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected args type %T", Designation, eargs)
	}

	in := a.Input
	mag := a.Magnification
	mH, mW := in.Height*mag, in.Width*mag
	out := imgstack.New(in.Frames, mH, mW)
	rg := makeRing(a.RingRadius)

	// Gradients are per frame and read-only once built, so they are
	// computed up front rather than inside the sharded loop.
	gx := make([][]float64, in.Frames)
	gy := make([][]float64, in.Frames)
	for t := 0; t < in.Frames; t++ {
		gx[t], gy[t] = robertsCross(in.Frame(t), in.Height, in.Width)
	}

	err := loop(ctx, in.Frames*mH, func(lo, hi int) error {
		for row := lo; row < hi; row++ {
			t, ym := row/mH, row%mH
			radialityRow(gx[t], gy[t], out.Frame(t), in.Height, in.Width, mW, ym, mag, rg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out.Squeeze(), nil
}

// robertsCross computes the 45-degree rotated gradient pair used by
// SRRF, one value per pixel with clamped borders.
func robertsCross(src []float32, h, w int) (gx, gy []float64) {
	gx = make([]float64, h*w)
	gy = make([]float64, h*w)
	at := func(y, x int) float64 {
		if y < 0 {
			y = 0
		} else if y >= h {
			y = h - 1
		}
		if x < 0 {
			x = 0
		} else if x >= w {
			x = w - 1
		}
		return float64(src[y*w+x])
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := at(y, x)
			b := at(y, x+1)
			c := at(y+1, x)
			d := at(y+1, x+1)
			gx[y*w+x] = d - a + b - c
			gy[y*w+x] = d - a - b + c
		}
	}
	return gx, gy
}

func radialityRow(gx, gy []float64, dst []float32, h, w, mW, ym, mag int, rg ring) {
	yc := (float64(ym) + 0.5) / float64(mag)
	for xm := 0; xm < mW; xm++ {
		xc := (float64(xm) + 0.5) / float64(mag)

		var rad float64
		for k := 0; k < ringSamples; k++ {
			sy := yc + rg.dy[k]
			sx := xc + rg.dx[k]
			sgx := bilinear(gx, h, w, sy, sx)
			sgy := bilinear(gy, h, w, sy, sx)
			g := math.Hypot(sgx, sgy)
			if g == 0 {
				continue
			}

			// Perpendicular distance of the grid center from the line
			// through the sample point along its gradient.
			dy := yc - sy
			dx := xc - sx
			dist := math.Abs(dx*sgy-dy*sgx) / g
			if dist >= rg.r {
				continue
			}

			weight := 1 - dist/rg.r
			if dx*sgx+dy*sgy < 0 {
				// Gradient points away from the center: diverging
				// intensity counts against radiality.
				weight = -weight
			}
			rad += weight
		}
		dst[ym*mW+xm] = float32(rad / ringSamples)
	}
}

func bilinear(src []float64, h, w int, fy, fx float64) float64 {
	y0 := int(math.Floor(fy))
	x0 := int(math.Floor(fx))
	ty := fy - float64(y0)
	tx := fx - float64(x0)

	cl := func(y, x int) float64 {
		if y < 0 {
			y = 0
		} else if y >= h {
			y = h - 1
		}
		if x < 0 {
			x = 0
		} else if x >= w {
			x = w - 1
		}
		return src[y*w+x]
	}

	top := cl(y0, x0)*(1-tx) + cl(y0, x0+1)*tx
	bottom := cl(y0+1, x0)*(1-tx) + cl(y0+1, x0+1)*tx
	return top*(1-ty) + bottom*ty
}
