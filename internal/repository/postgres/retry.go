package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// withRetry re-runs fn on transient serialization/deadlock failures. Business
// failures (insufficient stock, usage limit) are returned as-is; they are
// decisions, not faults.
func withRetry(ctx context.Context, fn func() error) error {
	delays := []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 1 * time.Second}

	var err error
	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					select {
					case <-ctx.Done():
						return ctx.Err()
					case <-time.After(delays[i]):
					}
					continue
				}
			}
		}

		return err
	}
	return err
}
