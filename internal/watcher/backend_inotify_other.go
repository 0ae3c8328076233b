//go:build !linux

package watcher

import (
	"fmt"
	"log/slog"
	"runtime"
)

// newInotifyBackend is unavailable outside Linux.
func newInotifyBackend(_ *slog.Logger, _ Options) (Backend, error) {
	return nil, fmt.Errorf("%w: inotify is not available on %s", ErrUnsupportedBackend, runtime.GOOS)
}
