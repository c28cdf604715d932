// Package lock provides cross-process file locking for the engine's data
// directory, preventing two engine instances from mutating the same
// metadata store and vector store concurrently.
package lock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// InstanceLock guards a data directory against concurrent engine instances.
type InstanceLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// New creates an instance lock for dataDir. The lock file lives at
// <dataDir>/.ragengine.lock.
func New(dataDir string) *InstanceLock {
	lockPath := filepath.Join(dataDir, ".ragengine.lock")
	return &InstanceLock{path: lockPath, flock: flock.New(lockPath)}
}

// TryLock attempts to acquire the lock without blocking. It returns false,
// nil if another process already holds it.
func (l *InstanceLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("create lock directory: %w", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire instance lock: %w", err)
	}
	l.locked = acquired
	return acquired, nil
}

// Unlock releases the lock. Safe to call on an unlocked InstanceLock.
func (l *InstanceLock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release instance lock: %w", err)
	}
	l.locked = false
	return nil
}

// Path returns the lock file's path.
func (l *InstanceLock) Path() string {
	return l.path
}
