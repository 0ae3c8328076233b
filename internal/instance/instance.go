// Package instance guarantees that only one dropsort process watches a given
// directory at a time.
package instance

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	domainerrors "github.com/listenupapp/dropsort/internal/errors"
)

// Lock is an advisory file lock tied to one watch root.
type Lock struct {
	lock *flock.Flock
	root string
}

// Path returns the lock file used for root inside dir. Each root gets its own
// file so different directories can be watched by separate processes.
func Path(dir, root string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(root)))
	return filepath.Join(dir, hex.EncodeToString(sum[:8])+".lock")
}

// DefaultDir returns the directory lock files live in when none is configured.
func DefaultDir() (string, error) {
	cache, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locate cache dir: %w", err)
	}
	return filepath.Join(cache, "dropsort"), nil
}

// Acquire takes the lock for root without blocking. If another process holds
// it, Acquire returns an ALREADY_RUNNING error.
func Acquire(dir, root string) (*Lock, error) {
	if dir == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeConfig, "lock directory")
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, domainerrors.Wrapf(err, domainerrors.CodeConfig, "create lock directory %s", dir)
	}

	path := Path(dir, root)
	lock := flock.New(path)

	ok, err := lock.TryLock()
	if err != nil {
		return nil, domainerrors.Wrapf(err, domainerrors.CodeIO, "acquire lock %s", path)
	}
	if !ok {
		return nil, domainerrors.AlreadyRunning(fmt.Sprintf("another dropsort is already watching %s (lock %s)", root, path))
	}

	return &Lock{lock: lock, root: root}, nil
}

// File returns the lock file path.
func (l *Lock) File() string {
	return l.lock.Path()
}

// Release unlocks. It is safe to call more than once.
func (l *Lock) Release() error {
	if !l.lock.Locked() {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.lock.Path(), err)
	}
	return nil
}
