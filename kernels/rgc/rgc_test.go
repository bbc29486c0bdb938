package rgc

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
	return Args{Input: in, Magnification: 2, Radius: 1.5, Sensitivity: 1, DoIntensityWeighting: true}
}

func TestMagnifiedShape(t *testing.T) {
	op, err := New(nil, engine.WithTesting())
	require.NoError(t, err)
	defer op.Close()

	in := kerneltest.Spots(2, 16, 16, 3)
	args := defaultArgs(in)
	args.Magnification = 5
	out, err := op.Run(context.Background(), args, engine.WithForcedVariant(engine.Unthreaded))
	require.NoError(t, err)
	if diff := cmp.Diff([]int{2, 80, 80}, out.Shape()); diff != "" {
		t.Errorf("unexpected shape (-want +got):\n%s", diff)
	}
}

func TestSingleFrameCollapses(t *testing.T) {
	op, err := New(nil, engine.WithTesting())
	require.NoError(t, err)
	defer op.Close()

	out, err := op.Run(context.Background(), defaultArgs(kerneltest.Spots(1, 16, 16, 3)),
		engine.WithForcedVariant(engine.Unthreaded))
	require.NoError(t, err)
	if diff := cmp.Diff([]int{32, 32}, out.Shape()); diff != "" {
		t.Errorf("unexpected shape (-want +got):\n%s", diff)
	}
}

func TestEmitterConvergence(t *testing.T) {
	op, err := New(nil, engine.WithTesting())
	require.NoError(t, err)
	defer op.Close()

	// One emitter at (8,8) in a dark frame.
	in := imgstack.New(1, 17, 17)
	for dy := -3; dy <= 3; dy++ {
		for dx := -3; dx <= 3; dx++ {
			d2 := float32(dy*dy + dx*dx)
			in.Set(0, 8+dy, 8+dx, 1/(1+d2))
		}
	}

	out, err := op.Run(context.Background(), defaultArgs(in), engine.WithForcedVariant(engine.Unthreaded))
	require.NoError(t, err)

	mW := 34
	center := out.Data[17*mW+17]
	corner := out.Data[3*mW+3]
	require.Greater(t, center, corner, "convergence must peak at the emitter")
	require.GreaterOrEqual(t, float64(corner), 0.0, "convergence map is non-negative")
}

func TestSensitivitySharpens(t *testing.T) {
	op, err := New(nil, engine.WithTesting())
	require.NoError(t, err)
	defer op.Close()

	in := kerneltest.Spots(1, 16, 16, 11)
	base := defaultArgs(in)
	base.DoIntensityWeighting = false

	sharp := base
	sharp.Sensitivity = 2

	outBase, err := op.Run(context.Background(), base, engine.WithForcedVariant(engine.Unthreaded))
	require.NoError(t, err)
	outSharp, err := op.Run(context.Background(), sharp, engine.WithForcedVariant(engine.Unthreaded))
	require.NoError(t, err)

	// Squaring values in [0,1] never increases them.
	for i := range outSharp.Data {
		require.LessOrEqual(t, outSharp.Data[i], outBase.Data[i]+1e-6, "pixel %d", i)
	}
}

func TestVariantsAgree(t *testing.T) {
	op, err := New(nil, engine.WithTesting())
	require.NoError(t, err)
	defer op.Close()

	kerneltest.RequireVariantsAgree(t, op, defaultArgs(kerneltest.Spots(2, 16, 16, 5)), 1e-4)
}

func TestValidate(t *testing.T) {
	in := imgstack.New(1, 8, 8)
	cases := []struct {
		name string
		args Args
		ok   bool
	}{
		{"valid", Args{Input: in, Magnification: 5, Radius: 1.5, Sensitivity: 1}, true},
		{"zero magnification", Args{Input: in, Magnification: 0, Radius: 1.5, Sensitivity: 1}, false},
		{"zero radius", Args{Input: in, Magnification: 5, Radius: 0, Sensitivity: 1}, false},
		{"zero sensitivity", Args{Input: in, Magnification: 5, Radius: 1.5, Sensitivity: 0}, false},
		{"nil input", Args{Magnification: 5, Radius: 1.5, Sensitivity: 1}, false},
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
