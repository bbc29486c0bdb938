package interp

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/lumoscope/liquid/engine"
	"github.com/lumoscope/liquid/imgstack"
	"github.com/lumoscope/liquid/kernels/kerneltest"
)

func TestMagnifiedShape(t *testing.T) {
	op, err := New(nil, engine.WithTesting())
	require.NoError(t, err)
	defer op.Close()

	in := kerneltest.Gradient(3, 16, 16)
	out, err := op.Run(context.Background(), Args{Input: in, MagY: 4, MagX: 4}, engine.WithForcedVariant(engine.Unthreaded))
	require.NoError(t, err)
	if diff := cmp.Diff([]int{3, 64, 64}, out.Shape()); diff != "" {
		t.Errorf("unexpected shape (-want +got):\n%s", diff)
	}
}

func TestSingleFrameCollapses(t *testing.T) {
	op, err := New(nil, engine.WithTesting())
	require.NoError(t, err)
	defer op.Close()

	in := kerneltest.Gradient(1, 16, 16)
	out, err := op.Run(context.Background(), Args{Input: in, MagY: 2, MagX: 2}, engine.WithForcedVariant(engine.Unthreaded))
	require.NoError(t, err)
	if diff := cmp.Diff([]int{32, 32}, out.Shape()); diff != "" {
		t.Errorf("unexpected shape (-want +got):\n%s", diff)
	}
}

func TestIdentityMagnification(t *testing.T) {
	op, err := New(nil, engine.WithTesting())
	require.NoError(t, err)
	defer op.Close()

	in := kerneltest.Gradient(2, 8, 8)
	out, err := op.Run(context.Background(), Args{Input: in, MagY: 1, MagX: 1}, engine.WithForcedVariant(engine.Unthreaded))
	require.NoError(t, err)

	// Magnification 1 with no shift must reproduce the input exactly:
	// Catmull-Rom interpolates through its control points.
	require.InDeltaSlice(t, toFloat64(in.Data), toFloat64(out.Data), 1e-6)
}

func TestVariantsAgree(t *testing.T) {
	op, err := New(nil, engine.WithTesting())
	require.NoError(t, err)
	defer op.Close()

	kerneltest.RequireVariantsAgree(t, op, Args{
		Input:  kerneltest.Noise(3, 32, 32, 7),
		ShiftY: 0.25,
		ShiftX: -0.5,
		MagY:   3,
		MagX:   3,
	}, 1e-3)
}

func TestValidate(t *testing.T) {
	require.Error(t, Args{Input: imgstack.New(1, 4, 4), MagY: 0.5, MagX: 2}.Validate())
	require.Error(t, Args{Input: &imgstack.Stack{}}.Validate())
	require.NoError(t, Args{Input: imgstack.New(1, 4, 4), MagY: 2, MagX: 2}.Validate())
}

func toFloat64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
