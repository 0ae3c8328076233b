package watcher

import (
	"context"
	"log/slog"
	"sync"
)

// Backend defines the platform-specific notification mechanism.
type Backend interface {
	// Add subscribes to direct children of root. root is clean and absolute.
	Add(root string) error

	// Start reads notifications until ctx is done or Stop is called.
	Start(ctx context.Context) error

	// Stop stops reading, releases the OS watch handle and closes both channels.
	Stop() error

	// Events returns the channel for receiving filtered events.
	Events() <-chan Event

	// Errors returns the channel for receiving backend errors.
	Errors() <-chan error

	// Name identifies the backend in logs.
	Name() string
}

// stream is the delivery half shared by every backend: it filters events,
// hands them to the consumer and guarantees nothing is delivered after Stop.
type stream struct {
	logger *slog.Logger
	opts   Options
	root   string

	events chan Event
	errors chan error
	done   chan struct{}

	// mu orders reader registration against close(done).
	mu       sync.Mutex
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func newStream(logger *slog.Logger, opts Options) *stream {
	return &stream{
		logger: logger,
		opts:   opts,
		events: make(chan Event, opts.BufferSize),
		errors: make(chan error, 10),
		done:   make(chan struct{}),
	}
}

// emit delivers ev unless it is filtered out or the stream is stopping.
func (s *stream) emit(ev Event) {
	if reason := s.opts.skipReason(s.root, ev); reason != "" {
		s.logger.Debug("event filtered", "path", ev.Path, "kind", ev.Kind.String(), "reason", reason)
		return
	}

	// Prefer shutdown over delivery when both are ready.
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// fail reports a backend error without ever blocking the reader.
func (s *stream) fail(err error) {
	select {
	case s.errors <- err:
	case <-s.done:
	default:
		s.logger.Warn("watcher error dropped, error channel full", "error", err)
	}
}

// stopping reports whether Stop has been called.
func (s *stream) stopping() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// begin registers the reader goroutine. It returns false once Stop has been
// called, in which case the reader must return without touching the channels.
func (s *stream) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping() {
		return false
	}
	s.wg.Add(1)
	return true
}

// shutdown signals the reader, runs release once the reader has exited and
// then discards undelivered events so none surface after Stop returns.
func (s *stream) shutdown(release func() error) error {
	var err error
	s.stopOnce.Do(func() {
		s.mu.Lock()
		close(s.done)
		s.mu.Unlock()
		s.wg.Wait()

		if release != nil {
			err = release()
		}

	drain:
		for {
			select {
			case <-s.events:
			default:
				break drain
			}
		}
		close(s.events)
		close(s.errors)
	})
	return err
}

// Events returns the events channel.
func (s *stream) Events() <-chan Event {
	return s.events
}

// Errors returns the errors channel.
func (s *stream) Errors() <-chan error {
	return s.errors
}
