package corpusindex

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	hygrepErrors "github.com/nijaru/hygrep/internal/errors"
)

// FileLock is the advisory lock a builder holds for the duration of a
// build, preventing two concurrent builds from racing on the same index
// directory. Readers never take this lock: a load only ever looks at
// already-committed files.
type FileLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewFileLock creates a lock for the index directory dir (typically
// <root>/.hhg). The lock file is created at <dir>/lock.
func NewFileLock(dir string) *FileLock {
	lockPath := filepath.Join(dir, lockFile)
	return &FileLock{path: lockPath, flock: flock.New(lockPath)}
}

// TryLock attempts to acquire the lock without blocking, returning an
// IndexBusy error if another build already holds it.
func (l *FileLock) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !acquired {
		return hygrepErrors.IndexBusyError("index build already in progress", nil).
			WithDetail("lock_path", l.path)
	}

	l.locked = true
	return nil
}

// Unlock releases the lock. Safe to call on an unlocked FileLock.
func (l *FileLock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		l.locked = false
		return fmt.Errorf("release lock: %w", err)
	}
	l.locked = false
	return nil
}

// Path returns the lock file's path.
func (l *FileLock) Path() string { return l.path }

// IsLocked reports whether this FileLock currently holds the lock.
func (l *FileLock) IsLocked() bool { return l.locked }
