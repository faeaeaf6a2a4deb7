package indexer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// lockFileName is the cross-process lock under the state directory.
const lockFileName = "index.lock"

// fileLock guards the indexing pass against concurrent writers in
// other processes. The in-process mutex handles same-process callers.
type fileLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// newFileLock creates the lock for a state directory.
func newFileLock(stateDir string) *fileLock {
	path := filepath.Join(stateDir, lockFileName)
	return &fileLock{path: path, flock: flock.New(path)}
}

// TryLock attempts to acquire the lock without blocking. Returns false
// when another process holds it.
func (l *fileLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}

	l.locked = acquired
	return acquired, nil
}

// Unlock releases the lock. Safe to call on an unlocked fileLock.
func (l *fileLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	return l.flock.Unlock()
}
