package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
)

// ErrTimeout is returned by WithDeadline when the call outlives its budget.
var ErrTimeout = eris.New("call exceeded its deadline")

// WithDeadline runs fn under a context bounded by d. A non-positive d runs fn
// with the parent context unchanged. When the deadline (and not the parent)
// expires, the error wraps ErrTimeout.
func WithDeadline[T any](ctx context.Context, d time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	val, err := fn(callCtx)
	if err != nil && ctx.Err() == nil && (errors.Is(err, context.DeadlineExceeded) || callCtx.Err() != nil) {
		var zero T
		return zero, eris.Wrapf(ErrTimeout, "after %s: %v", d, err)
	}
	return val, err
}
