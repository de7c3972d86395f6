package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy is a fixed-budget, fixed-delay retry policy. The same policy is
// applied to every unreliable single-action step in the extraction driver
// (consent gate, shadow lookups, navigation).
type Policy struct {
	Attempts int
	Delay    time.Duration

	// OnRetry is invoked before each re-attempt with the attempt number
	// that just failed and its error.
	OnRetry func(attempt int, err error)
}

func (p Policy) withDefaults() Policy {
	if p.Attempts < 1 {
		p.Attempts = 3
	}
	if p.Delay <= 0 {
		p.Delay = 2 * time.Second
	}
	return p
}

// Do runs op until it succeeds or the attempt budget is exhausted.
func Do(ctx context.Context, p Policy, op func(context.Context) error) error {
	_, err := Value(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Value runs op until it returns a value without error or the attempt
// budget is exhausted.
func Value[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	p = p.withDefaults()

	var zero T
	var lastErr error

	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == p.Attempts {
			break
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(p.Delay):
		}
	}

	return zero, fmt.Errorf("giving up after %d attempts: %w", p.Attempts, lastErr)
}
