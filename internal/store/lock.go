package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	vonerrors "github.com/Aman-CERP/von/internal/errors"
)

// lockRetryDelay is how often LockContext retries a held lock.
const lockRetryDelay = 50 * time.Millisecond

// FileLock serializes snapshot writes across von processes.
type FileLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewFileLock creates a lock at <dir>/.index.lock.
func NewFileLock(dir string) *FileLock {
	lockPath := filepath.Join(dir, ".index.lock")
	return &FileLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// LockContext acquires the exclusive lock, retrying until ctx is done.
func (l *FileLock) LockContext(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !acquired {
		return vonerrors.New(vonerrors.ErrCodeSnapshotLocked,
			"snapshot is locked by another von process", err).
			WithDetail("lock", l.path)
	}

	l.locked = true
	return nil
}

// Unlock releases the lock. Unlocking an unlocked FileLock is a no-op.
func (l *FileLock) Unlock() error {
	if !l.locked {
		return nil
	}

	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
