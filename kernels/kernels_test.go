package kernels

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumoscope/liquid/engine"
	"github.com/lumoscope/liquid/imgstack"
)

func TestLookup(t *testing.T) {
	for _, info := range Catalog() {
		found, ok := Lookup(info.Designation)
		require.True(t, ok, info.Designation)
		require.Equal(t, info.Designation, found.Designation)
	}

	_, ok := Lookup("NoSuchKernel")
	require.False(t, ok)
}

func TestCatalogArgsValidateWithDefaults(t *testing.T) {
	in := imgstack.New(4, 16, 16)
	for i := range in.Data {
		in.Data[i] = float32(i%7) / 7
	}

	for _, info := range Catalog() {
		t.Run(info.Designation, func(t *testing.T) {
			args := info.Args(in, DefaultParams())
			require.NoError(t, args.Validate())
		})
	}
}

func TestCatalogOperationsConstruct(t *testing.T) {
	for _, info := range Catalog() {
		t.Run(info.Designation, func(t *testing.T) {
			op, err := info.New(nil, engine.WithTesting())
			require.NoError(t, err)
			require.Equal(t, info.Designation, op.Designation())
			require.NoError(t, op.Close())
		})
	}
}

func TestCatalogEndToEnd(t *testing.T) {
	info, ok := Lookup("CRShiftAndMagnify")
	require.True(t, ok)

	op, err := info.New(nil, engine.WithTesting())
	require.NoError(t, err)
	defer op.Close()

	in := imgstack.New(2, 8, 8)
	p := DefaultParams()
	p.MagY, p.MagX = 2, 2

	out, err := op.Run(context.Background(), info.Args(in, p))
	require.NoError(t, err)
	require.Equal(t, []int{2, 16, 16}, out.Shape())
}
