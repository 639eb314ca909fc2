// Package txretry reruns database work that lost an optimistic-lock race.
package txretry

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/your-org/marketplace-api/internal/pkg/apperror"
)

// ErrVersionConflict marks a guarded write that matched no row because the
// version moved underneath it.
var ErrVersionConflict = errors.New("optimistic lock conflict")

const (
	defaultAttempts = 5
	defaultDelay    = 15 * time.Millisecond
)

// Conflict returns a 409 error for entity that Do will retry.
func Conflict(entity string) error {
	return apperror.Wrap(apperror.CodeConflict, ErrVersionConflict, entity+" was modified concurrently, please retry").
		WithDetails(map[string]any{"entity": entity})
}

// IsConflict reports whether err came from a lost version race.
func IsConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// Do runs fn, retrying with a short constant backoff while it fails with a
// version conflict. Other errors return immediately. When retries run out the
// last conflict error is returned.
func Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return DoN(ctx, defaultAttempts, defaultDelay, fn)
}

// DoN is Do with explicit retry count and delay.
func DoN(ctx context.Context, retries uint64, delay time.Duration, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(retries, retry.NewConstant(delay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && IsConflict(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
