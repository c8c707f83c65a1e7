package export

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrLocked indicates another process holds the artifact lock.
var ErrLocked = errors.New("artifact locked")

// Lock guards one artifact path against concurrent conversions.
type Lock struct {
	path string
	lock *flock.Flock
}

// LockPath returns the lock file used for an artifact.
func LockPath(artifact string) string {
	return artifact + ".lock"
}

// AcquireLock takes the artifact lock without blocking.
func AcquireLock(artifact string) (*Lock, error) {
	path := LockPath(artifact)
	l := flock.New(path)
	ok, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: another nwbconv process is converting %s (lock %s)", ErrLocked, artifact, path)
	}
	return &Lock{path: path, lock: l}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// Release unlocks the artifact.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	return nil
}
