package engine

import (
	"context"

	"github.com/lumoscope/liquid/discover"
	"github.com/lumoscope/liquid/imgstack"
	"github.com/lumoscope/liquid/parallel"
)

// Tag names one implementation strategy of an operation.
type Tag string

const (
	Unthreaded      Tag = "unthreaded"
	Threaded        Tag = "threaded"
	ThreadedStatic  Tag = "threaded_static"
	ThreadedDynamic Tag = "threaded_dynamic"
	ThreadedGuided  Tag = "threaded_guided"
	Offloaded       Tag = "offloaded"
)

// DefaultPriority is the tie-break order when two variants have equal
// recorded latency: earlier tags win. Operations may override it.
var DefaultPriority = []Tag{Unthreaded, Threaded, ThreadedStatic, ThreadedDynamic, ThreadedGuided, Offloaded}

// Hardware is the state applicability predicates decide on.
type Hardware struct {
	Devices []discover.Device
	System  discover.SystemInfo
}

// Variant is one callable strategy implementing an operation. Run must
// be a pure function of its arguments plus per-call scratch: nothing
// may persist across invocations, so concurrent calls through the same
// variant are safe.
type Variant struct {
	Tag Tag

	// Run executes the strategy. Errors are surfaced to the selector
	// as a ComputeError carrying the tag.
	Run func(ctx context.Context, args Args) (*imgstack.Stack, error)

	// Applicable reports whether the variant can run on the current
	// hardware. nil means always applicable; every operation must
	// register at least one such variant.
	Applicable func(hw Hardware) bool
}

func (v Variant) applicable(hw Hardware) bool {
	return v.Applicable == nil || v.Applicable(hw)
}

// OffloadRequirement is the usual applicability predicate for
// device-offloaded variants: at least one enumerated device.
func OffloadRequirement(hw Hardware) bool {
	return len(hw.Devices) > 0
}

// CPUVariants builds the standard CPU variant set from one
// range-sharded kernel body: the always-applicable unthreaded variant
// plus one threaded variant per pool scheduling policy. The body must
// write only into the rows of each [lo, hi) shard it is handed.
func CPUVariants(body func(ctx context.Context, args Args, loop parallel.Runner) (*imgstack.Stack, error)) []Variant {
	wrap := func(loop parallel.Runner) func(ctx context.Context, args Args) (*imgstack.Stack, error) {
		return func(ctx context.Context, args Args) (*imgstack.Stack, error) {
			return body(ctx, args, loop)
		}
	}

	return []Variant{
		{Tag: Unthreaded, Run: wrap(parallel.Serial)},
		{Tag: ThreadedStatic, Run: wrap(parallel.Pooled(parallel.Static))},
		{Tag: ThreadedDynamic, Run: wrap(parallel.Pooled(parallel.Dynamic))},
		{Tag: ThreadedGuided, Run: wrap(parallel.Pooled(parallel.Guided))},
	}
}

// Args carries the call arguments of one operation invocation. Each
// operation defines its own concrete type.
type Args interface {
	// Signature fingerprints the cost-determining parameters of the
	// call: shapes, dtype and scalar parameters, never pixel data.
	Signature() Signature

	// Validate rejects malformed arguments before any variant runs.
	Validate() error
}
