package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/fsnotify/fsnotify"
)

// fsnotifyBackend implements Backend using github.com/fsnotify/fsnotify.
// fsnotify watches are non-recursive, which is exactly what we need.
type fsnotifyBackend struct {
	*stream
	watcher *fsnotify.Watcher
}

// newFSNotifyBackend creates a backend using fsnotify.
func newFSNotifyBackend(logger *slog.Logger, opts Options) (*fsnotifyBackend, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &fsnotifyBackend{
		stream:  newStream(logger, opts),
		watcher: w,
	}, nil
}

// Name identifies the backend in logs.
func (b *fsnotifyBackend) Name() string {
	return string(BackendFSNotify)
}

// Add subscribes to direct children of root.
func (b *fsnotifyBackend) Add(root string) error {
	if err := b.watcher.Add(root); err != nil {
		return fmt.Errorf("fsnotify add %s: %w", root, err)
	}
	b.root = root
	b.logger.Debug("added watch", "path", root, "backend", b.Name())
	return nil
}

// Start reads fsnotify events until ctx is done or Stop is called.
func (b *fsnotifyBackend) Start(ctx context.Context) error {
	if !b.begin() {
		return nil
	}
	defer b.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-b.done:
			return nil
		case event, ok := <-b.watcher.Events:
			if !ok {
				return nil
			}
			b.handle(event)
		case err, ok := <-b.watcher.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				err = fmt.Errorf("%w: some notifications were lost", ErrOverflow)
			}
			b.fail(err)
		}
	}
}

// handle translates one fsnotify event. Remove, Rename and Chmod are not
// candidates: a rename into the directory already arrives as Create.
func (b *fsnotifyBackend) handle(event fsnotify.Event) {
	if event.Name == b.root && (event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)) {
		b.fail(fmt.Errorf("%w: %s", ErrRootGone, b.root))
		return
	}

	var kind EventKind
	switch {
	case event.Has(fsnotify.Create):
		kind = EventCreated
	case event.Has(fsnotify.Write):
		kind = EventModified
	default:
		return
	}

	// A vanished entry is still emitted; the relocator reports it as vanished.
	isDir := false
	if info, err := os.Lstat(event.Name); err == nil {
		isDir = info.IsDir()
	}

	b.emit(Event{Kind: kind, Path: event.Name, IsDir: isDir})
}

// Stop stops the backend and closes the fsnotify watcher.
func (b *fsnotifyBackend) Stop() error {
	return b.shutdown(b.watcher.Close)
}
