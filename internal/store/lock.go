package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	docerrors "github.com/Aman-CERP/docrank/internal/errors"
)

const lockRetryDelay = 100 * time.Millisecond

// WriteLock serialises writers of one SQLite database across processes.
// The lock file sits next to the database as <db>.lock.
type WriteLock struct {
	path  string
	flock *flock.Flock
}

// NewWriteLock creates a lock for the database at dbPath.
func NewWriteLock(dbPath string) *WriteLock {
	p := dbPath + ".lock"
	return &WriteLock{path: p, flock: flock.New(p)}
}

// Path returns the lock file location.
func (l *WriteLock) Path() string {
	return l.path
}

// Acquire blocks until the lock is held or ctx ends. A context expiry is
// reported as ERR_203_STORE_LOCKED.
func (l *WriteLock) Acquire(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	ok, err := l.flock.TryLockContext(ctx, lockRetryDelay)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return docerrors.New(docerrors.ErrCodeStoreLocked, "document database is locked by another process", ctx.Err()).
			WithDetail("lock", l.path).
			WithSuggestion("Wait for the other seed to finish and retry")
	}
	return nil
}

// Release drops the lock. Safe to call when not held.
func (l *WriteLock) Release() error {
	if !l.flock.Locked() {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
