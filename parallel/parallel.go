// Package parallel runs loop iterations across a worker pool sized to
// the host. The scheduling policy controls only how the iteration range
// is assigned to workers, never the pool size. Callers shard work so
// that no two concurrently running ranges write the same output cell;
// any accumulation across shards belongs in a reduction after For
// returns.
package parallel

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/lumoscope/liquid/envconfig"
)

// Policy selects how iterations are handed to pool workers.
type Policy int

const (
	// Static splits the range into equal contiguous chunks assigned up
	// front. Lowest overhead, best when per-iteration cost is uniform.
	Static Policy = iota

	// Dynamic hands out small fixed-size chunks as workers finish.
	// Better load balance under uneven cost, more coordination.
	Dynamic

	// Guided starts with large chunks and shrinks them geometrically,
	// amortizing overhead early and balancing load late.
	Guided
)

func (p Policy) String() string {
	switch p {
	case Static:
		return "static"
	case Dynamic:
		return "dynamic"
	case Guided:
		return "guided"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

const (
	dynamicChunk   = 8
	guidedMinChunk = 4
)

// For executes fn over [0, n) in half-open [lo, hi) ranges. The first
// error cancels the remaining assignments; already running ranges
// complete before For returns.
func For(ctx context.Context, n int, policy Policy, fn func(lo, hi int) error) error {
	if n <= 0 {
		return nil
	}

	workers := envconfig.NumThreads()
	if workers > n {
		workers = n
	}
	if workers == 1 {
		return fn(0, n)
	}

	switch policy {
	case Static:
		return forStatic(ctx, n, workers, fn)
	case Dynamic:
		return forDynamic(ctx, n, workers, fn)
	case Guided:
		return forGuided(ctx, n, workers, fn)
	default:
		return fmt.Errorf("parallel: unknown policy %d", int(policy))
	}
}

func forStatic(ctx context.Context, n, workers int, fn func(lo, hi int) error) error {
	g, ctx := errgroup.WithContext(ctx)
	chunk := (n + workers - 1) / workers
	for lo := 0; lo < n; lo += chunk {
		lo, hi := lo, min(lo+chunk, n)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(lo, hi)
		})
	}
	return g.Wait()
}

func forDynamic(ctx context.Context, n, workers int, fn func(lo, hi int) error) error {
	g, ctx := errgroup.WithContext(ctx)
	var next atomic.Int64
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				if err := ctx.Err(); err != nil {
					return err
				}
				lo := int(next.Add(dynamicChunk)) - dynamicChunk
				if lo >= n {
					return nil
				}
				if err := fn(lo, min(lo+dynamicChunk, n)); err != nil {
					return err
				}
			}
		})
	}
	return g.Wait()
}

func forGuided(ctx context.Context, n, workers int, fn func(lo, hi int) error) error {
	g, ctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	next := 0
	claim := func() (int, int) {
		mu.Lock()
		defer mu.Unlock()
		if next >= n {
			return n, n
		}
		chunk := max((n-next)/workers, guidedMinChunk)
		lo := next
		next = min(lo+chunk, n)
		return lo, next
	}

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				if err := ctx.Err(); err != nil {
					return err
				}
				lo, hi := claim()
				if lo >= hi {
					return nil
				}
				if err := fn(lo, hi); err != nil {
					return err
				}
			}
		})
	}
	return g.Wait()
}
