// Package lock provides a cross-process advisory file lock guarding
// mnemo's data directory, so two `mnemo serve` processes can't race on the
// same SQLite/bleve files.
package lock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileLock wraps gofrs/flock with directory creation and explicit state
// tracking.
type FileLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// New creates a lock file at <dir>/.mnemo.lock.
func New(dir string) *FileLock {
	lockPath := filepath.Join(dir, ".mnemo.lock")
	return &FileLock{path: lockPath, flock: flock.New(lockPath)}
}

// Lock acquires an exclusive lock, blocking until available.
func (l *FileLock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	l.locked = true
	return nil
}

// TryLock attempts to acquire the lock without blocking. Returns false, nil
// if another process already holds it.
func (l *FileLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("create lock directory: %w", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// Unlock releases the lock. Safe to call multiple times or when unlocked.
func (l *FileLock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	l.locked = false
	return nil
}

// Path returns the lock file path.
func (l *FileLock) Path() string { return l.path }

// IsLocked reports whether this process currently holds the lock.
func (l *FileLock) IsLocked() bool { return l.locked }
