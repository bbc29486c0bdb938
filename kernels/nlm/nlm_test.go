package nlm

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/lumoscope/liquid/discover"
	"github.com/lumoscope/liquid/engine"
	"github.com/lumoscope/liquid/imgstack"
	"github.com/lumoscope/liquid/kernels/kerneltest"
)

func defaultArgs(in *imgstack.Stack) Args {
	return Args{Input: in, PatchSize: 3, PatchDistance: 3, H: 0.1}
}

func TestShapePreserved(t *testing.T) {
	op, err := New(nil, engine.WithTesting())
	require.NoError(t, err)
	defer op.Close()

	in := kerneltest.Noise(3, 64, 64, 1)
	out, err := op.Run(context.Background(), defaultArgs(in), engine.WithForcedVariant(engine.Unthreaded))
	require.NoError(t, err)
	if diff := cmp.Diff([]int{3, 64, 64}, out.Shape()); diff != "" {
		t.Errorf("unexpected shape (-want +got):\n%s", diff)
	}
}

func TestSingleFrameCollapses(t *testing.T) {
	op, err := New(nil, engine.WithTesting())
	require.NoError(t, err)
	defer op.Close()

	in := kerneltest.Noise(1, 64, 64, 1)
	out, err := op.Run(context.Background(), defaultArgs(in), engine.WithForcedVariant(engine.Unthreaded))
	require.NoError(t, err)
	if diff := cmp.Diff([]int{64, 64}, out.Shape()); diff != "" {
		t.Errorf("unexpected shape (-want +got):\n%s", diff)
	}
}

func TestFlatImageUnchanged(t *testing.T) {
	op, err := New(nil, engine.WithTesting())
	require.NoError(t, err)
	defer op.Close()

	in := imgstack.New(1, 16, 16)
	for i := range in.Data {
		in.Data[i] = 0.5
	}

	out, err := op.Run(context.Background(), defaultArgs(in), engine.WithForcedVariant(engine.Unthreaded))
	require.NoError(t, err)
	for i, v := range out.Data {
		require.InDelta(t, 0.5, v, 1e-6, "pixel %d", i)
	}
}

func TestDenoisingReducesVariance(t *testing.T) {
	op, err := New(nil, engine.WithTesting())
	require.NoError(t, err)
	defer op.Close()

	in := kerneltest.Noise(1, 32, 32, 3)
	out, err := op.Run(context.Background(), defaultArgs(in), engine.WithForcedVariant(engine.ThreadedStatic))
	require.NoError(t, err)

	variance := func(data []float32) float64 {
		var mean float64
		for _, v := range data {
			mean += float64(v)
		}
		mean /= float64(len(data))
		var sum float64
		for _, v := range data {
			d := float64(v) - mean
			sum += d * d
		}
		return sum / float64(len(data))
	}

	require.Less(t, variance(out.Data), variance(in.Data), "denoising must reduce pixel variance of pure noise")
}

func TestVariantsAgree(t *testing.T) {
	op, err := New(nil, engine.WithTesting())
	require.NoError(t, err)
	defer op.Close()

	kerneltest.RequireVariantsAgree(t, op, defaultArgs(kerneltest.Noise(2, 24, 24, 5)), 1e-3)
}

func TestValidate(t *testing.T) {
	in := imgstack.New(1, 8, 8)
	cases := []struct {
		name string
		args Args
		ok   bool
	}{
		{"valid", Args{Input: in, PatchSize: 3, PatchDistance: 2, H: 0.1}, true},
		{"even patch", Args{Input: in, PatchSize: 4, PatchDistance: 2, H: 0.1}, false},
		{"negative patch", Args{Input: in, PatchSize: -3, PatchDistance: 2, H: 0.1}, false},
		{"zero distance", Args{Input: in, PatchSize: 3, PatchDistance: 0, H: 0.1}, false},
		{"zero h", Args{Input: in, PatchSize: 3, PatchDistance: 2, H: 0}, false},
		{"nil input", Args{PatchSize: 3, PatchDistance: 2, H: 0.1}, false},
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

func TestBenchmarkOmitsOffloadedWithoutDevice(t *testing.T) {
	op, err := New(discover.NewWithBackends(), engine.WithTesting())
	require.NoError(t, err)
	defer op.Close()

	timings, err := op.Benchmark(context.Background(), defaultArgs(kerneltest.Noise(1, 16, 16, 9)))
	require.NoError(t, err)
	for _, entry := range timings {
		require.NotEqual(t, engine.Offloaded, entry.Variant)
	}
	require.Len(t, timings, 4)
}
