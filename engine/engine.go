// Package engine picks, at runtime, the fastest implementation variant
// of each image-restoration operation for the current hardware and
// input shape. Callers never choose a variant manually: the selector
// consults persisted benchmark history keyed by call signature and
// device set, cold-starts with a full sweep, and keeps tuning itself
// with the latency of every production call.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lumoscope/liquid/discover"
	"github.com/lumoscope/liquid/envconfig"
	"github.com/lumoscope/liquid/imgstack"
	"github.com/lumoscope/liquid/store"
)

// SelectionPolicy decides which statistic of a variant's latency
// history competes for selection.
type SelectionPolicy int

const (
	// BestTime selects on the lowest recorded latency.
	BestTime SelectionPolicy = iota

	// MeanTime selects on the mean recorded latency, more robust to a
	// single lucky run.
	MeanTime
)

// Operation composes a variant registry, signature builder, benchmark
// store and selector behind Run and Benchmark. One Operation is built
// per kernel designation and is safe for concurrent use.
type Operation struct {
	designation string
	variants    []Variant
	priority    []Tag
	policy      SelectionPolicy
	relTol      float64
	testing     bool
	clearOnOpen bool

	store    *store.Store
	ownStore bool
	devices  *discover.Enumerator
}

// executed is the outcome of one timed variant execution.
type executed struct {
	result  *imgstack.Stack
	elapsed time.Duration
}

// Option configures an Operation at construction.
type Option func(*Operation)

// WithClearBenchmarks wipes the operation's history namespace during
// construction, forcing the next Run into a cold-start sweep.
func WithClearBenchmarks() Option {
	return func(o *Operation) { o.clearOnOpen = true }
}

// WithTesting uses a minimal, non-persisted benchmarking mode: an
// in-memory store and single-run sweeps.
func WithTesting() Option {
	return func(o *Operation) { o.testing = true }
}

// WithSelectionPolicy overrides the default BestTime policy.
func WithSelectionPolicy(p SelectionPolicy) Option {
	return func(o *Operation) { o.policy = p }
}

// WithStore shares an already open benchmark store.
func WithStore(s *store.Store) Option {
	return func(o *Operation) { o.store = s }
}

// WithDevices shares a device enumerator between operations so
// discovery and program caches are not duplicated.
func WithDevices(e *discover.Enumerator) Option {
	return func(o *Operation) { o.devices = e }
}

// WithPriority overrides the tie-break order of DefaultPriority.
func WithPriority(tags ...Tag) Option {
	return func(o *Operation) { o.priority = tags }
}

// WithTolerance sets the relative tolerance used by the benchmark
// sweep's divergence check (default 1e-3).
func WithTolerance(rel float64) Option {
	return func(o *Operation) { o.relTol = rel }
}

// New builds the engine for one operation. The variant list is fixed
// afterwards; registration order is the order Benchmark reports.
func New(designation string, variants []Variant, opts ...Option) (*Operation, error) {
	if designation == "" {
		return nil, fmt.Errorf("engine: missing designation")
	}
	if len(variants) == 0 {
		return nil, fmt.Errorf("engine: %s: no variants", designation)
	}

	o := &Operation{
		designation: designation,
		variants:    variants,
		priority:    DefaultPriority,
		relTol:      1e-3,
		testing:     envconfig.Testing(),
	}
	for _, opt := range opts {
		opt(o)
	}

	seen := make(map[Tag]bool, len(variants))
	always := false
	for _, v := range variants {
		if v.Tag == "" || v.Run == nil {
			return nil, fmt.Errorf("engine: %s: variant missing tag or callable", designation)
		}
		if seen[v.Tag] {
			return nil, fmt.Errorf("engine: %s: duplicate variant %s", designation, v.Tag)
		}
		seen[v.Tag] = true
		if v.Applicable == nil {
			always = true
		}
	}
	// The selector must never come up empty-handed, whatever the
	// hardware looks like.
	if !always {
		return nil, fmt.Errorf("engine: %s: no always-applicable variant", designation)
	}

	if o.devices == nil {
		o.devices = discover.New()
	}

	if o.store == nil {
		var err error
		if o.testing {
			o.store, err = store.OpenMemory()
		} else {
			o.store, err = store.Open(envconfig.Home())
		}
		if err != nil {
			return nil, fmt.Errorf("engine: %s: open benchmark store: %w", designation, err)
		}
		o.ownStore = true
	}

	if o.clearOnOpen {
		if err := o.store.Clear(designation); err != nil {
			return nil, fmt.Errorf("engine: %s: %w", designation, err)
		}
		slog.Debug("cleared benchmark history", "op", designation)
	}

	return o, nil
}

// Designation returns the operation's stable name, which is also its
// benchmark history namespace.
func (o *Operation) Designation() string { return o.designation }

// Variants returns the registered tags in registration order.
func (o *Operation) Variants() []Tag {
	tags := make([]Tag, len(o.variants))
	for i, v := range o.variants {
		tags[i] = v.Tag
	}
	return tags
}

// Close releases the benchmark store if this operation opened it.
func (o *Operation) Close() error {
	if o.ownStore {
		return o.store.Close()
	}
	return nil
}

func (o *Operation) hardware(ctx context.Context) Hardware {
	return Hardware{
		Devices: o.devices.Devices(ctx),
		System:  discover.GetSystemInfo(),
	}
}

// applicable returns the currently applicable variants in registration
// order.
func (o *Operation) applicable(hw Hardware) []Variant {
	out := make([]Variant, 0, len(o.variants))
	for _, v := range o.variants {
		if v.applicable(hw) {
			out = append(out, v)
		}
	}
	return out
}

func (o *Operation) variant(tag Tag) (Variant, bool) {
	for _, v := range o.variants {
		if v.Tag == tag {
			return v, true
		}
	}
	return Variant{}, false
}

func (o *Operation) priorityIndex(tag Tag) int {
	for i, t := range o.priority {
		if t == tag {
			return i
		}
	}
	return len(o.priority)
}

// execute times one variant and wraps failures with its tag.
func (o *Operation) execute(ctx context.Context, v Variant, args Args) (result executed, err error) {
	start := time.Now()
	out, err := v.Run(ctx, args)
	elapsed := time.Since(start)
	if err != nil {
		return executed{}, &ComputeError{Variant: v.Tag, Err: err}
	}
	return executed{result: out, elapsed: elapsed}, nil
}
