package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/do/v2"

	"github.com/listenupapp/dropsort/internal/config"
	"github.com/listenupapp/dropsort/internal/logger"
	"github.com/listenupapp/dropsort/internal/processor"
	"github.com/listenupapp/dropsort/internal/watcher"
)

// FileWatcherHandle wraps the running watch with shutdown capability.
type FileWatcherHandle struct {
	*watcher.Watcher
	cancel  context.CancelFunc
	done    chan error
	stopped chan struct{}
}

// Done delivers the result of the event loop once it ends on its own, which
// happens only when the watched directory disappears.
func (h *FileWatcherHandle) Done() <-chan error {
	return h.done
}

// Shutdown implements do.Shutdownable. It stops the watcher, cancels pending
// attempts and waits for in-flight moves to finish.
func (h *FileWatcherHandle) Shutdown() error {
	h.cancel()
	err := h.Watcher.Stop()

	select {
	case <-h.stopped:
	case <-time.After(shutdownTimeout):
		return errors.Join(err, fmt.Errorf("relocation still running after %s", shutdownTimeout))
	}
	return err
}

// ProvideFileWatcher provides the file system watcher and starts the event loop.
func ProvideFileWatcher(i do.Injector) (*FileWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	eventProcessor := do.MustInvoke[*processor.EventProcessor](i)

	w, err := watcher.New(log.Logger, cfg.WatcherOptions())
	if err != nil {
		return nil, err
	}
	if err := w.Watch(cfg.Watch.Root); err != nil {
		_ = w.Stop()
		return nil, err
	}

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	h := &FileWatcherHandle{
		Watcher: w,
		cancel:  cancel,
		done:    make(chan error, 1),
		stopped: make(chan struct{}),
	}

	go func() {
		if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("file watcher error", "error", err)
		}
	}()

	// Process events in background
	go func() {
		defer close(h.stopped)
		h.done <- eventProcessor.Run(ctx, w.Events(), w.Errors())
	}()

	log.Info("file watcher started", "root", w.Root())

	return h, nil
}
