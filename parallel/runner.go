package parallel

import "context"

// Runner abstracts how a kernel walks its iteration range, so one
// kernel body serves both the unthreaded variant and every pool
// scheduling policy.
type Runner func(ctx context.Context, n int, fn func(lo, hi int) error) error

// Serial runs the whole range on the calling goroutine.
func Serial(ctx context.Context, n int, fn func(lo, hi int) error) error {
	if n <= 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(0, n)
}

// Pooled returns a Runner dispatching to the worker pool under the
// given scheduling policy.
func Pooled(policy Policy) Runner {
	return func(ctx context.Context, n int, fn func(lo, hi int) error) error {
		return For(ctx, n, policy, fn)
	}
}
