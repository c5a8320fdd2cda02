package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"uk.co.dudmesh.pinboard/internal/model"
)

type retrier struct {
	retries uint64
	base    time.Duration
}

// do runs fn with bounded exponential retries. Domain sentinels and context
// errors are returned as-is; anything else that outlives the retries is
// reported as a storage failure.
func (r retrier) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	base := r.base
	if base <= 0 {
		base = DefaultOptions.RetryBase
	}
	backoff := retry.WithMaxRetries(r.retries, retry.NewExponential(base))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			if isPermanent(err) {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})
	if err == nil || isPermanent(err) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, model.ErrorStorageFailure, err)
}

func isPermanent(err error) bool {
	return errors.Is(err, model.ErrorUserNotFound) ||
		errors.Is(err, model.ErrorVersionConflict) ||
		errors.Is(err, model.ErrorHandleTaken) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
