// Package watcher reports files that appear or change directly inside one
// directory. It is non-recursive and filters out directories, the watch root
// itself and files that are still being downloaded.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	domainerrors "github.com/listenupapp/dropsort/internal/errors"
)

var (
	// ErrOverflow reports that the kernel dropped notifications.
	ErrOverflow = errors.New("watch queue overflow")
	// ErrRootGone reports that the watched directory was removed or moved away.
	ErrRootGone = errors.New("watched directory is gone")
	// ErrUnsupportedBackend reports a backend that does not exist on this platform.
	ErrUnsupportedBackend = errors.New("unsupported watcher backend")
)

// Watcher monitors one directory for created and modified files.
type Watcher struct {
	backend Backend
	logger  *slog.Logger
	root    string
}

// New creates a new file watcher.
// BackendAuto selects inotify on Linux (falling back to fsnotify if inotify
// cannot be initialised) and fsnotify everywhere else.
func New(logger *slog.Logger, opts Options) (*Watcher, error) {
	opts.setDefaults()

	backend, err := newBackend(logger, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend: %w", err)
	}
	logger.Info("using watcher backend", "backend", backend.Name(), "platform", runtime.GOOS)

	return &Watcher{
		backend: backend,
		logger:  logger,
	}, nil
}

func newBackend(logger *slog.Logger, opts Options) (Backend, error) {
	switch opts.Backend {
	case BackendFSNotify:
		return newFSNotifyBackend(logger, opts)
	case BackendInotify:
		return newInotifyBackend(logger, opts)
	case BackendAuto:
		if runtime.GOOS == "linux" {
			b, err := newInotifyBackend(logger, opts)
			if err == nil {
				return b, nil
			}
			logger.Warn("inotify unavailable, falling back to fsnotify", "error", err)
		}
		return newFSNotifyBackend(logger, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, opts.Backend)
	}
}

// Watch subscribes to direct children of root. It must be called exactly once, before Start.
func (w *Watcher) Watch(root string) error {
	if w.root != "" {
		return domainerrors.Validationf("already watching %s: only one directory can be watched", w.root)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve watch root: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("failed to stat path: %w", err)
	}
	if !info.IsDir() {
		return domainerrors.Validationf("watch root %s is not a directory", abs)
	}

	if err := w.backend.Add(abs); err != nil {
		return err
	}
	w.root = abs
	w.logger.Info("watching directory", "path", abs)
	return nil
}

// Root returns the watched directory, or "" before Watch.
func (w *Watcher) Root() string {
	return w.root
}

// Start begins watching for events.
// This method blocks until the context is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	return w.backend.Start(ctx)
}

// Stop stops the watcher and releases the OS watch handle. It is safe to call more than once.
// No event is delivered once Stop has returned.
func (w *Watcher) Stop() error {
	return w.backend.Stop()
}

// Events returns the channel for receiving file system events.
func (w *Watcher) Events() <-chan Event {
	return w.backend.Events()
}

// Errors returns the channel for receiving errors.
func (w *Watcher) Errors() <-chan error {
	return w.backend.Errors()
}
