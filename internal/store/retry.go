package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// isSQLiteBusyError checks if the error is a SQLITE_BUSY error.
// This occurs when the database is locked by another connection.
func isSQLiteBusyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "SQLITE_BUSY")
}

// isSQLiteLockedError checks if the error is a "database is locked" error.
func isSQLiteLockedError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "database is locked")
}

// isSQLiteConflictError reports whether err is a concurrency error that
// warrants a retry.
func isSQLiteConflictError(err error) bool {
	return isSQLiteBusyError(err) || isSQLiteLockedError(err)
}

const (
	busyMaxRetries = 3
	busyBaseDelay  = 50 * time.Millisecond
)

// withBusyRetry runs fn, retrying with exponential backoff (50ms, 100ms) while
// it fails with SQLITE_BUSY or "database is locked".
func withBusyRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for i := 0; i < busyMaxRetries; i++ {
		err = fn()
		if err == nil || !isSQLiteConflictError(err) {
			return err
		}
		if i == busyMaxRetries-1 {
			break
		}
		delay := busyBaseDelay * time.Duration(1<<i)
		slog.Debug("SQLite busy, retrying", "op", op, "attempt", i+1, "delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, busyMaxRetries, err)
}
