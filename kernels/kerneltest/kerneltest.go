// Package kerneltest holds helpers shared by the kernel test suites.
package kerneltest

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/lumoscope/liquid/engine"
	"github.com/lumoscope/liquid/imgstack"
)

// Gradient returns a stack with a smooth, frame-dependent ramp —
// deterministic data with structure for interpolation kernels.
func Gradient(frames, height, width int) *imgstack.Stack {
	s := imgstack.New(frames, height, width)
	for t := 0; t < frames; t++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				s.Set(t, y, x, float32(t+1)*float32(y+x)/float32(height+width))
			}
		}
	}
	return s
}

// Noise returns a stack of deterministic pseudo-random pixels in [0, 1).
func Noise(frames, height, width int, seed int64) *imgstack.Stack {
	rng := rand.New(rand.NewSource(seed))
	s := imgstack.New(frames, height, width)
	for i := range s.Data {
		s.Data[i] = rng.Float32()
	}
	return s
}

// Spots returns a mostly dark stack with a few bright emitters, the
// shape radiality kernels are built for.
func Spots(frames, height, width int, seed int64) *imgstack.Stack {
	rng := rand.New(rand.NewSource(seed))
	s := imgstack.New(frames, height, width)
	for i := range s.Data {
		s.Data[i] = 0.05 * rng.Float32()
	}
	for t := 0; t < frames; t++ {
		for k := 0; k < 3; k++ {
			cy := 2 + rng.Intn(height-4)
			cx := 2 + rng.Intn(width-4)
			for dy := -2; dy <= 2; dy++ {
				for dx := -2; dx <= 2; dx++ {
					g := float32(math.Exp(-float64(dy*dy+dx*dx) / 2))
					s.Set(t, cy+dy, cx+dx, s.At(t, cy+dy, cx+dx)+g)
				}
			}
		}
	}
	return s
}

// RequireVariantsAgree forces every registered variant on identical
// arguments and asserts the results match the first applicable variant
// within relTol. Variants that are inapplicable on this host (e.g.
// offloaded without a device) are skipped.
func RequireVariantsAgree(t *testing.T, op *engine.Operation, args engine.Args, relTol float64) {
	t.Helper()
	ctx := context.Background()

	var reference *imgstack.Stack
	var referenceTag engine.Tag
	for _, tag := range op.Variants() {
		out, err := op.Run(ctx, args, engine.WithForcedVariant(tag))
		if errors.Is(err, engine.ErrDeviceUnavailable) || errors.Is(err, engine.ErrVariantUnavailable) {
			continue
		}
		if err != nil {
			t.Fatalf("variant %s: %v", tag, err)
		}

		if reference == nil {
			reference, referenceTag = out, tag
			continue
		}

		if len(out.Data) != len(reference.Data) {
			t.Fatalf("variant %s: %d values, %s produced %d", tag, len(out.Data), referenceTag, len(reference.Data))
		}
		for i := range out.Data {
			a, b := float64(reference.Data[i]), float64(out.Data[i])
			diff := math.Abs(a - b)
			if diff <= 1e-7 {
				continue
			}
			if rel := diff / math.Max(math.Abs(a), math.Abs(b)); rel > relTol {
				t.Fatalf("variant %s diverges from %s at %d: %g vs %g (rel %g)", tag, referenceTag, i, b, a, rel)
			}
		}
	}

	if reference == nil {
		t.Fatal("no applicable variant produced a result")
	}
}
