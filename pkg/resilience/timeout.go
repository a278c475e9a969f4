package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout marks a call abandoned by WithTimeout. It also matches
// context.DeadlineExceeded.
var ErrTimeout = errors.New("operation timed out")

// WithTimeout bounds fn to timeout. It returns once the deadline passes even
// if fn ignores its context; fn keeps running in the background until it
// notices. A non-positive timeout calls fn directly.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := make(chan error, 1)
	go func() { result <- fn(callCtx) }()

	select {
	case err := <-result:
		return err
	case <-callCtx.Done():
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return fmt.Errorf("%s: %w after %v: %w", name, ErrTimeout, timeout, context.DeadlineExceeded)
}
