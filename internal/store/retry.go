package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Retry policy for transient backend failures: exponential backoff
// starting at retryBase, retryAttempts tries in total. The waits sum
// to under 1.2 s so a stuck backend surfaces quickly.
const (
	retryAttempts = 6
	retryBase     = 25 * time.Millisecond
)

// ErrTransient marks a backend failure as transient; IsRetriable
// accepts any error that wraps it.
var ErrTransient = errors.New("transient backend error")

// IsRetriable reports whether err is a transient backend condition:
// lock contention, deadlock, or serialization failure.
func IsRetriable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return true
		}
	}
	return errors.Is(err, ErrTransient)
}

// WithRetry runs fn with bounded exponential backoff, retrying only
// while isRetriable accepts the error and the context is alive.
func WithRetry(ctx context.Context, attempts int, base time.Duration, isRetriable func(error) bool, fn func() error) error {
	var err error
	delay := base
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
		if err = fn(); err == nil || !isRetriable(err) {
			return err
		}
	}
	return err
}

// Retry applies the store's default policy to fn.
func Retry(ctx context.Context, fn func() error) error {
	return WithRetry(ctx, retryAttempts, retryBase, IsRetriable, fn)
}
