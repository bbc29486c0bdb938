package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/lumoscope/liquid/imgstack"
	"github.com/lumoscope/liquid/logutil"
)

// RunOption adjusts a single Run call.
type RunOption func(*runConfig)

type runConfig struct {
	forced Tag
}

// WithForcedVariant dispatches directly to one variant tag, bypassing
// selection. Forcing a tag that is unknown or inapplicable on the
// current hardware is an error, never a silent fallback.
func WithForcedVariant(tag Tag) RunOption {
	return func(c *runConfig) { c.forced = tag }
}

// Run executes the operation on args, selecting the fastest known
// variant for the call signature. The chosen variant's latency joins
// the history, so selection keeps tuning itself with every production
// call.
func (o *Operation) Run(ctx context.Context, args Args, opts ...RunOption) (*imgstack.Stack, error) {
	var cfg runConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := args.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}

	hw := o.hardware(ctx)
	if cfg.forced != "" {
		return o.runForced(ctx, args, hw, cfg.forced)
	}

	sig := args.Signature()
	fingerprint := sig.Fingerprint()
	devset := o.setID(hw)
	candidates := o.applicable(hw)

	history, err := o.store.Lookup(o.designation, fingerprint, devset)
	if err != nil {
		return nil, err
	}

	// Drop history of variants that are not applicable right now, e.g.
	// offloaded measurements taken while a device was still present.
	for tag := range history {
		found := false
		for _, v := range candidates {
			if string(v.Tag) == tag {
				found = true
				break
			}
		}
		if !found {
			delete(history, tag)
		}
	}

	if len(history) == 0 {
		return o.coldStart(ctx, args, hw, fingerprint, sig)
	}

	return o.runWarm(ctx, args, hw, fingerprint, devset, candidates, history)
}

// coldStart runs a full benchmark sweep to populate history, then
// answers the call from the sweep's own measurements.
func (o *Operation) coldStart(ctx context.Context, args Args, hw Hardware, fingerprint string, sig Signature) (*imgstack.Stack, error) {
	slog.Info("cold start, benchmarking all variants", "op", o.designation, "signature", sig.String())

	timings, err := o.sweep(ctx, args, hw, fingerprint)
	if err != nil {
		return nil, err
	}

	best := timings[0]
	for _, entry := range timings[1:] {
		if o.better(entry, best) {
			best = entry
		}
	}
	slog.Debug("cold start selected", "op", o.designation, "variant", best.Variant, "best", best.Elapsed)
	return best.Result, nil
}

func (o *Operation) better(a, b Timing) bool {
	at, bt := a.Elapsed, b.Elapsed
	if o.policy == MeanTime {
		at, bt = a.Mean, b.Mean
	}
	if at != bt {
		return at < bt
	}
	return o.priorityIndex(a.Variant) < o.priorityIndex(b.Variant)
}

// runWarm picks the historically fastest applicable variant and falls
// back along the ranking when execution fails.
func (o *Operation) runWarm(ctx context.Context, args Args, hw Hardware, fingerprint, devset string, candidates []Variant, history map[string][]time.Duration) (*imgstack.Stack, error) {
	ranked := o.rank(history)

	var failures []error
	for _, tag := range ranked {
		v, ok := o.variant(tag)
		if !ok {
			continue
		}
		exec, err := o.execute(ctx, v, args)
		if err != nil {
			// A previously winning variant can stop working, e.g. a
			// device that vanished since it was benchmarked. Fall back
			// to the next-best historical variant.
			slog.Warn("selected variant failed, falling back", "op", o.designation, "error", err)
			failures = append(failures, err)
			continue
		}

		logutil.Trace("selected variant", "op", o.designation, "variant", tag, "elapsed", exec.elapsed)
		if err := o.store.Record(o.designation, string(tag), fingerprint, devset, exec.elapsed); err != nil {
			return nil, err
		}
		return exec.result, nil
	}

	// Ranked variants exhausted; try any remaining applicable variant
	// that has no history yet before giving up.
	for _, v := range candidates {
		if _, ok := history[string(v.Tag)]; ok {
			continue
		}
		exec, err := o.execute(ctx, v, args)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		if err := o.store.Record(o.designation, string(v.Tag), fingerprint, devset, exec.elapsed); err != nil {
			return nil, err
		}
		return exec.result, nil
	}

	return nil, fmt.Errorf("%s: %w: %v", o.designation, ErrNoVariantSucceeded, errors.Join(failures...))
}

// rank orders tags with recorded history from fastest to slowest under
// the operation's selection policy, breaking ties by declared priority.
func (o *Operation) rank(history map[string][]time.Duration) []Tag {
	type scored struct {
		tag   Tag
		score float64
	}

	ranked := make([]scored, 0, len(history))
	for tag, series := range history {
		samples := make([]float64, len(series))
		for i, d := range series {
			samples[i] = d.Seconds()
		}
		var score float64
		switch o.policy {
		case MeanTime:
			score = stat.Mean(samples, nil)
		default:
			score = floats.Min(samples)
		}
		ranked = append(ranked, scored{tag: Tag(tag), score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score < ranked[j].score
		}
		return o.priorityIndex(ranked[i].tag) < o.priorityIndex(ranked[j].tag)
	})

	tags := make([]Tag, len(ranked))
	for i, s := range ranked {
		tags[i] = s.tag
	}
	return tags
}

// runForced dispatches directly to tag. Forced executions are not
// recorded: they exist for controlled testing and must not skew the
// history selection feeds on.
func (o *Operation) runForced(ctx context.Context, args Args, hw Hardware, tag Tag) (*imgstack.Stack, error) {
	v, ok := o.variant(tag)
	if !ok {
		return nil, fmt.Errorf("%s: %w: unknown tag %q", o.designation, ErrVariantUnavailable, tag)
	}
	if !v.applicable(hw) {
		if tag == Offloaded {
			return nil, fmt.Errorf("%s: forced %s: %w", o.designation, tag, ErrDeviceUnavailable)
		}
		return nil, fmt.Errorf("%s: %w: %s not applicable", o.designation, ErrVariantUnavailable, tag)
	}

	exec, err := o.execute(ctx, v, args)
	if err != nil {
		return nil, err
	}
	return exec.result, nil
}
