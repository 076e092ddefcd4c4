package status

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName is the name of the run lock file inside the status directory
const LockFileName = ".sourcefetch.lock"

// ErrRunInProgress is returned when another process holds the run lock
var ErrRunInProgress = errors.New("another fetch run is in progress")

// RunLock is an exclusive lock held for the duration of a fetch run
type RunLock struct {
	lock *flock.Flock
}

// AcquireRunLock takes the run lock in basePath without blocking.
// It returns ErrRunInProgress when the lock is already held.
func AcquireRunLock(basePath string) (*RunLock, error) {
	if err := os.MkdirAll(basePath, 0750); err != nil {
		return nil, fmt.Errorf("failed to create status directory: %w", err)
	}

	lock := flock.New(filepath.Join(basePath, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !locked {
		return nil, ErrRunInProgress
	}
	return &RunLock{lock: lock}, nil
}

// Release releases the run lock
func (l *RunLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
