// Package nlm implements patch-based non-local-means denoising.
package nlm

import (
	"context"
	"fmt"
	"math"

	"github.com/lumoscope/liquid/discover"
	"github.com/lumoscope/liquid/engine"
	"github.com/lumoscope/liquid/imgstack"
	"github.com/lumoscope/liquid/parallel"
)

const Designation = "NLMDenoising"

type Args struct {
	Input *imgstack.Stack

	// PatchSize is the odd edge length of the compared patches.
	PatchSize int

	// PatchDistance bounds the search window radius.
	PatchDistance int

	// H is the filtering parameter: larger values smooth more.
	H float64
}

func (a Args) Signature() engine.Signature {
	return engine.Signature{
		Shapes: [][]int{{a.Input.Frames, a.Input.Height, a.Input.Width}},
		DType:  "float32",
		Params: []engine.Param{
			{Name: "patch_size", Value: float64(a.PatchSize)},
			{Name: "patch_distance", Value: float64(a.PatchDistance)},
			{Name: "h", Value: a.H},
		},
	}
}

func (a Args) Validate() error {
	if err := a.Input.Validate(); err != nil {
		return err
	}
	if a.PatchSize <= 0 || a.PatchSize%2 == 0 {
		return fmt.Errorf("patch size must be positive and odd, got %d", a.PatchSize)
	}
	if a.PatchDistance <= 0 {
		return fmt.Errorf("patch distance must be positive, got %d", a.PatchDistance)
	}
	if a.H <= 0 {
		return fmt.Errorf("filtering parameter must be positive, got %g", a.H)
	}
	return nil
}

// New builds the operation. A nil enumerator gets a private one.
func New(enum *discover.Enumerator, opts ...engine.Option) (*engine.Operation, error) {
	if enum == nil {
		enum = discover.New()
	}
	variants := append(engine.CPUVariants(run), offloadedVariant(enum))
	return engine.New(Designation, variants, append(opts, engine.WithDevices(enum))...)
}

func run(ctx context.Context, eargs engine.Args, loop parallel.Runner) (*imgstack.Stack, error) {
	a, ok := eargs.(Args)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected args type %T", Designation, eargs)
	}

	in := a.Input
	out := imgstack.New(in.Frames, in.Height, in.Width)

	err := loop(ctx, in.Frames*in.Height, func(lo, hi int) error {
		for row := lo; row < hi; row++ {
			t, y := row/in.Height, row%in.Height
			denoiseRow(in.Frame(t), out.Frame(t), in.Height, in.Width, y, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out.Squeeze(), nil
}

func denoiseRow(src, dst []float32, h, w, y int, a Args) {
	pr := a.PatchSize / 2
	area := float64(a.PatchSize * a.PatchSize)
	h2 := a.H * a.H

	for x := 0; x < w; x++ {
		var sumW, sumV float64
		for dy := -a.PatchDistance; dy <= a.PatchDistance; dy++ {
			for dx := -a.PatchDistance; dx <= a.PatchDistance; dx++ {
				var d2 float64
				for i := -pr; i <= pr; i++ {
					for j := -pr; j <= pr; j++ {
						p := float64(src[clamp(y+i, h)*w+clamp(x+j, w)])
						q := float64(src[clamp(y+dy+i, h)*w+clamp(x+dx+j, w)])
						d2 += (p - q) * (p - q)
					}
				}
				wgt := math.Exp(-d2 / area / h2)
				sumW += wgt
				sumV += wgt * float64(src[clamp(y+dy, h)*w+clamp(x+dx, w)])
			}
		}
		dst[y*w+x] = float32(sumV / sumW)
	}
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
