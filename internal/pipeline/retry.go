package pipeline

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/vectorstore"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/zotero"
)

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var storeErr *vectorstore.RetryableError
	var zoteroErr *zotero.RetryableError
	return errors.As(err, &storeErr) || errors.As(err, &zoteroErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

const MaxRetries = 3

// Retry calls fn until it succeeds, fails permanently or MaxRetries attempts
// are used up.
func Retry[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	return retry(ctx, Backoff, nil, fn)
}

func retry[T any](ctx context.Context, backoff func(int) time.Duration, onRetry func(int, error), fn func(context.Context) (T, error)) (T, error) {
	var v T
	var err error
	for attempt := range MaxRetries {
		v, err = fn(ctx)
		if err == nil || !IsRetryable(err) {
			return v, err
		}
		if attempt == MaxRetries-1 {
			break
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}
		select {
		case <-time.After(backoff(attempt)):
		case <-ctx.Done():
			return v, ctx.Err()
		}
	}
	return v, err
}
