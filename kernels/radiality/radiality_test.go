package radiality

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/lumoscope/liquid/engine"
	"github.com/lumoscope/liquid/imgstack"
	"github.com/lumoscope/liquid/kernels/kerneltest"
)

func defaultArgs(in *imgstack.Stack) Args {
	return Args{Input: in, Magnification: 2, RingRadius: 1.5}
}

func TestMagnifiedShape(t *testing.T) {
	op, err := New(nil, engine.WithTesting())
	require.NoError(t, err)
	defer op.Close()

	in := kerneltest.Spots(3, 16, 16, 1)
	out, err := op.Run(context.Background(), Args{Input: in, Magnification: 4, RingRadius: 1.5},
		engine.WithForcedVariant(engine.Unthreaded))
	require.NoError(t, err)
	if diff := cmp.Diff([]int{3, 64, 64}, out.Shape()); diff != "" {
		t.Errorf("unexpected shape (-want +got):\n%s", diff)
	}
}

func TestEmitterOutshinesBackground(t *testing.T) {
	op, err := New(nil, engine.WithTesting())
	require.NoError(t, err)
	defer op.Close()

	// A single gaussian emitter in the center of an empty frame.
	in := imgstack.New(1, 17, 17)
	for dy := -3; dy <= 3; dy++ {
		for dx := -3; dx <= 3; dx++ {
			in.Set(0, 8+dy, 8+dx, gauss(dy, dx))
		}
	}

	out, err := op.Run(context.Background(), defaultArgs(in), engine.WithForcedVariant(engine.Unthreaded))
	require.NoError(t, err)

	center := out.Data[17*34+17]
	corner := out.Data[2*34+2]
	require.Greater(t, center, corner, "radiality must peak at the emitter, not the empty corner")
	require.Greater(t, float64(center), 0.0)
}

func gauss(dy, dx int) float32 {
	d2 := float64(dy*dy + dx*dx)
	return float32(1.0 / (1.0 + d2))
}

func TestFlatImageZeroRadiality(t *testing.T) {
	op, err := New(nil, engine.WithTesting())
	require.NoError(t, err)
	defer op.Close()

	in := imgstack.New(1, 12, 12)
	for i := range in.Data {
		in.Data[i] = 0.7
	}

	out, err := op.Run(context.Background(), defaultArgs(in), engine.WithForcedVariant(engine.Unthreaded))
	require.NoError(t, err)
	for i, v := range out.Data {
		require.InDelta(t, 0, v, 1e-6, "pixel %d", i)
	}
}

func TestVariantsAgree(t *testing.T) {
	op, err := New(nil, engine.WithTesting())
	require.NoError(t, err)
	defer op.Close()

	kerneltest.RequireVariantsAgree(t, op, defaultArgs(kerneltest.Spots(2, 20, 20, 7)), 1e-4)
}

func TestValidate(t *testing.T) {
	in := imgstack.New(1, 8, 8)
	cases := []struct {
		name string
		args Args
		ok   bool
	}{
		{"valid", Args{Input: in, Magnification: 2, RingRadius: 1.5}, true},
		{"zero magnification", Args{Input: in, Magnification: 0, RingRadius: 1.5}, false},
		{"zero radius", Args{Input: in, Magnification: 2, RingRadius: 0}, false},
		{"nil input", Args{Magnification: 2, RingRadius: 1.5}, false},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.args.Validate()
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}
