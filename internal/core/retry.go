package core

import (
	"context"
	"log"
	"time"
)

// Retry calls fn until it succeeds, returns a non-retryable error, or the
// policy runs out of attempts. It returns the last result, the number of
// calls made and the last error.
//
// The wait between attempts is skipped after the final attempt and is
// interrupted by ctx.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context, attempt Attempt) (T, error)) (T, int, error) {
	policy = policy.normalized()

	var result T
	var errs []error
	calls := 0
	for i := 1; i <= policy.MaxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return result, calls, err
		}

		calls++
		var err error
		result, err = fn(ctx, Attempt{Number: i, Errors: errs})
		if err == nil {
			return result, calls, nil
		}
		errs = append(errs, err)

		if !IsRetryable(err) || i == policy.MaxAttempts {
			return result, calls, err
		}

		log.Printf("[Node] Attempt %d/%d failed (%s): %v", i, policy.MaxAttempts, KindOf(err), err)
		if policy.Wait > 0 {
			timer := time.NewTimer(policy.Wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return result, calls, ctx.Err()
			}
		}
	}
	return result, calls, errs[len(errs)-1]
}
