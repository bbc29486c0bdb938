package engine

import (
	"math"

	"github.com/lumoscope/liquid/imgstack"
)

// absTol guards the relative comparison for values near zero, where a
// relative difference is meaningless.
const absTol = 1e-7

// maxRelativeDifference reports the largest element-wise relative
// difference between two results. Mismatched shapes count as full
// divergence.
func maxRelativeDifference(a, b *imgstack.Stack) float64 {
	if a == nil || b == nil || len(a.Data) != len(b.Data) {
		return math.Inf(1)
	}

	var worst float64
	for i := range a.Data {
		av, bv := float64(a.Data[i]), float64(b.Data[i])
		if math.IsNaN(av) && math.IsNaN(bv) {
			continue
		}
		diff := math.Abs(av - bv)
		if diff <= absTol {
			continue
		}
		scale := math.Max(math.Abs(av), math.Abs(bv))
		if rel := diff / scale; rel > worst {
			worst = rel
		}
	}
	return worst
}
