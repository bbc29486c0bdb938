package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lumoscope/liquid/discover"
	"github.com/lumoscope/liquid/envconfig"
	"github.com/lumoscope/liquid/imgstack"
	"github.com/lumoscope/liquid/logutil"
)

// Timing is one benchmark sweep entry: the best elapsed wall time of a
// variant on the swept arguments, plus the result it produced.
type Timing struct {
	Elapsed time.Duration
	Variant Tag
	Result  *imgstack.Stack
	Runs    int
	Mean    time.Duration
}

// Benchmark times every currently applicable variant on identical
// arguments, strictly sequentially so no two variants' parallel
// sections overlap. Entries come back in registration order, not speed
// order. Every successful run is appended to the operation's history.
// A failing variant is logged and skipped; Benchmark fails only when
// no variant succeeds.
func (o *Operation) Benchmark(ctx context.Context, args Args) ([]Timing, error) {
	if err := args.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}

	hw := o.hardware(ctx)
	sig := args.Signature()
	return o.sweep(ctx, args, hw, sig.Fingerprint())
}

func (o *Operation) sweep(ctx context.Context, args Args, hw Hardware, fingerprint string) ([]Timing, error) {
	runs := envconfig.BenchRuns()
	if o.testing {
		runs = 1
	}
	devset := o.setID(hw)

	slog.Debug("benchmark sweep", "op", o.designation, "signature", fingerprint, "devices", devset, "runs", runs)

	var timings []Timing
	var reference *imgstack.Stack
	var referenceTag Tag
	for _, v := range o.variants {
		if !v.applicable(hw) {
			logutil.Trace("skipping inapplicable variant", "op", o.designation, "variant", v.Tag)
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry := Timing{Variant: v.Tag}
		var total time.Duration
		var failed error
		for run := 0; run < runs; run++ {
			exec, err := o.execute(ctx, v, args)
			if err != nil {
				failed = err
				break
			}
			if err := o.store.Record(o.designation, string(v.Tag), fingerprint, devset, exec.elapsed); err != nil {
				return nil, err
			}
			if entry.Runs == 0 || exec.elapsed < entry.Elapsed {
				entry.Elapsed = exec.elapsed
			}
			total += exec.elapsed
			entry.Result = exec.result
			entry.Runs++
		}
		if failed != nil {
			// Skipped for this sweep: no history entry, the sweep
			// carries on with the remaining variants.
			slog.Warn("variant failed during benchmark sweep", "op", o.designation, "error", failed)
			continue
		}
		entry.Mean = total / time.Duration(entry.Runs)

		if reference == nil {
			reference, referenceTag = entry.Result, v.Tag
		} else if rel := maxRelativeDifference(reference, entry.Result); rel > o.relTol {
			// Kernel math is the kernel's responsibility; the engine
			// only flags the anomaly.
			slog.Warn("variant results diverge beyond tolerance",
				"op", o.designation,
				"reference", referenceTag,
				"variant", v.Tag,
				"relative", rel,
				"tolerance", o.relTol,
			)
		}

		slog.Debug("benchmarked variant", "op", o.designation, "variant", v.Tag, "best", entry.Elapsed, "mean", entry.Mean)
		timings = append(timings, entry)
	}

	if len(timings) == 0 {
		return nil, fmt.Errorf("%s: %w", o.designation, ErrNoVariantSucceeded)
	}
	return timings, nil
}

func (o *Operation) setID(hw Hardware) string {
	return discover.SetID(hw.Devices)
}
