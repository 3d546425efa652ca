package bound

import (
	"context"
	"time"
)

// Result carries the outcome of a bounded call. Err is informational:
// callers that use Call never see it propagate, the fallback value is
// already substituted.
type Result[T any] struct {
	Value    T
	Err      error
	TimedOut bool
}

// Call runs fn under a hard deadline and substitutes fallback when fn
// fails or the deadline expires. Every external call in the assistant
// core goes through this so that no single upstream can hang or fail a
// turn.
func Call[T any](ctx context.Context, timeout time.Duration, fallback T, fn func(ctx context.Context) (T, error)) Result[T] {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}

	done := make(chan outcome, 1)
	go func() {
		v, err := fn(callCtx)
		done <- outcome{value: v, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return Result[T]{Value: fallback, Err: out.err}
		}
		return Result[T]{Value: out.value}
	case <-callCtx.Done():
		return Result[T]{Value: fallback, Err: callCtx.Err(), TimedOut: true}
	}
}

// Go spawns fn as a best-effort background task detached from the request
// lifecycle. Failures are reported to onErr only; the caller holds no
// reference whose failure could propagate.
func Go(timeout time.Duration, onErr func(error), fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := fn(ctx); err != nil && onErr != nil {
			onErr(err)
		}
	}()
}
