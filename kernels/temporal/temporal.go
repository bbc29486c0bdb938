// Package temporal projects a radiality time series down to a single
// super-resolved frame. Fluctuation statistics over time separate real
// emitters from noise that survived the spatial transforms.
package temporal

import (
	"context"
	"fmt"

	"github.com/lumoscope/liquid/discover"
	"github.com/lumoscope/liquid/engine"
	"github.com/lumoscope/liquid/imgstack"
	"github.com/lumoscope/liquid/parallel"
)

const Designation = "TemporalCorrelations"

// Projection selects the statistic computed along the time axis.
type Projection string

const (
	// Average is the per-pixel mean over frames.
	Average Projection = "avg"

	// Variance is the per-pixel population variance over frames.
	Variance Projection = "var"

	// TAC2 is the lag-1 temporal auto-correlation of mean-centered
	// frames.
	TAC2 Projection = "tac2"

	// PairwiseProductSum averages the products of all ordered frame
	// pairs, skipping frames with no positive signal.
	PairwiseProductSum Projection = "pps"
)

// Projections lists the supported statistics in display order.
var Projections = []Projection{Average, Variance, TAC2, PairwiseProductSum}

func projectionIndex(p Projection) (int, bool) {
	for i, known := range Projections {
		if known == p {
			return i, true
		}
	}
	return 0, false
}

type Args struct {
	Input      *imgstack.Stack
	Projection Projection
}

func (a Args) Signature() engine.Signature {
	idx, _ := projectionIndex(a.Projection)
	return engine.Signature{
		Shapes: [][]int{{a.Input.Frames, a.Input.Height, a.Input.Width}},
		DType:  "float32",
		Params: []engine.Param{
			{Name: "projection", Value: float64(idx)},
		},
	}
}

func (a Args) Validate() error {
	if err := a.Input.Validate(); err != nil {
		return err
	}
	if _, ok := projectionIndex(a.Projection); !ok {
		return fmt.Errorf("unknown projection %q", a.Projection)
	}
	if a.Projection == TAC2 && a.Input.Frames < 2 {
		return fmt.Errorf("projection %q needs at least two frames, got %d", a.Projection, a.Input.Frames)
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

func run(ctx context.Context, eargs engine.Args, loop parallel.Runner) (*imgstack.Stack, error) {
	a, ok := eargs.(Args)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected args type %T", Designation, eargs)
	}

	in := a.Input
	out := imgstack.New(1, in.Height, in.Width)

	var rowFn func(y int)
	switch a.Projection {
	case Average:
		rowFn = func(y int) { meanRow(in, out.Data, y, false) }
	case Variance:
		rowFn = func(y int) { meanRow(in, out.Data, y, true) }
	case TAC2:
		rowFn = func(y int) { tac2Row(in, out.Data, y) }
	case PairwiseProductSum:
		active, pairs := activeFrames(in)
		rowFn = func(y int) { ppsRow(in, out.Data, y, active, pairs) }
	default:
		return nil, fmt.Errorf("unknown projection %q", a.Projection)
	}

	err := loop(ctx, in.Height, func(lo, hi int) error {
		for y := lo; y < hi; y++ {
			rowFn(y)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out.Squeeze(), nil
}

func meanRow(in *imgstack.Stack, dst []float32, y int, variance bool) {
	w := in.Width
	n := float64(in.Frames)
	for x := 0; x < w; x++ {
		var sum float64
		for t := 0; t < in.Frames; t++ {
			sum += float64(in.At(t, y, x))
		}
		mean := sum / n
		if !variance {
			dst[y*w+x] = float32(mean)
			continue
		}
		var sq float64
		for t := 0; t < in.Frames; t++ {
			d := float64(in.At(t, y, x)) - mean
			sq += d * d
		}
		dst[y*w+x] = float32(sq / n)
	}
}

func tac2Row(in *imgstack.Stack, dst []float32, y int) {
	w := in.Width
	n := float64(in.Frames)
	for x := 0; x < w; x++ {
		var sum float64
		for t := 0; t < in.Frames; t++ {
			sum += float64(in.At(t, y, x))
		}
		mean := sum / n

		var acc float64
		for t := 0; t < in.Frames-1; t++ {
			acc += (float64(in.At(t, y, x)) - mean) * (float64(in.At(t+1, y, x)) - mean)
		}
		dst[y*w+x] = float32(acc / (n - 1))
	}
}

// activeFrames reports which frames carry any positive signal and how
// many ordered pairs the sum will be normalized by. Frames without
// signal skip their pair products but still advance the pair count.
func activeFrames(in *imgstack.Stack) ([]bool, int) {
	active := make([]bool, in.Frames)
	for t := 0; t < in.Frames; t++ {
		for _, v := range in.Frame(t) {
			if v > 0 {
				active[t] = true
				break
			}
		}
	}
	pairs := 0
	for t := 0; t < in.Frames; t++ {
		pairs += in.Frames - t
	}
	if pairs < 1 {
		pairs = 1
	}
	return active, pairs
}

func ppsRow(in *imgstack.Stack, dst []float32, y int, active []bool, pairs int) {
	w := in.Width
	for x := 0; x < w; x++ {
		var pps float64
		for t0 := 0; t0 < in.Frames; t0++ {
			if !active[t0] {
				continue
			}
			r0 := clampPositive(in.At(t0, y, x))
			for t1 := t0; t1 < in.Frames; t1++ {
				pps += r0 * clampPositive(in.At(t1, y, x))
			}
		}
		dst[y*w+x] = float32(pps / float64(pairs))
	}
}

func clampPositive(v float32) float64 {
	if v < 0 {
		return 0
	}
	return float64(v)
}
