// Package processor turns watcher events into relocation attempts.
package processor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/listenupapp/dropsort/internal/ratelimit"
	"github.com/listenupapp/dropsort/internal/relocator"
	"github.com/listenupapp/dropsort/internal/watcher"
)

const (
	// DefaultMaxConcurrent bounds relocation attempts in flight at once.
	DefaultMaxConcurrent = 4

	// ReasonCoalesced marks an event dropped because an attempt for the same
	// path had not yet inspected the file.
	ReasonCoalesced = "coalesced"
)

// Relocator moves a single file. *relocator.Relocator implements it.
type Relocator interface {
	RelocateNotify(ctx context.Context, path string, settled func()) relocator.Outcome
}

// Options configures an EventProcessor.
type Options struct {
	// Root is the watch root. When set, a kernel queue overflow triggers a
	// sweep of Root so that files whose events were dropped are still moved.
	Root string

	// Filter is applied to files found by a sweep.
	Filter watcher.Options

	MaxConcurrent int

	// ErrorLogRate and ErrorLogBurst throttle repeated watcher error logs.
	ErrorLogRate  float64
	ErrorLogBurst int
}

func (o *Options) setDefaults() {
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = DefaultMaxConcurrent
	}
	if o.ErrorLogRate <= 0 {
		o.ErrorLogRate = 0.2
	}
	if o.ErrorLogBurst <= 0 {
		o.ErrorLogBurst = 3
	}
}

// Stats counts outcomes since the processor was created.
type Stats struct {
	Moved     int64
	Skipped   int64
	Failed    int64
	Coalesced int64
}

// pathLock serialises attempts for one path. refs and pending are guarded by
// the SyncMap lock; mu is held for the whole attempt.
type pathLock struct {
	mu      sync.Mutex
	refs    int
	pending bool
}

// EventProcessor dispatches watcher events to the relocator.
//
// Key design principles:
//   - Every event kind funnels into ProcessEvent
//   - Attempts for one path never overlap (per-path lock)
//   - A duplicate event is dropped while an attempt for that path has not yet
//     looked at the file; later duplicates queue and observe the result
//   - At most MaxConcurrent attempts run at once
type EventProcessor struct {
	relocator Relocator
	logger    *slog.Logger
	opts      Options

	pathLocks *SyncMap[string, *pathLock]
	sem       chan struct{}
	errLimit  *ratelimit.KeyedRateLimiter
	wg        sync.WaitGroup
	sweeping  atomic.Bool

	moved     atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
	coalesced atomic.Int64
}

// NewEventProcessor creates a new EventProcessor instance.
func NewEventProcessor(r Relocator, logger *slog.Logger, opts Options) *EventProcessor {
	opts.setDefaults()
	return &EventProcessor{
		relocator: r,
		logger:    logger,
		opts:      opts,
		pathLocks: NewSyncMap[string, *pathLock](),
		sem:       make(chan struct{}, opts.MaxConcurrent),
		errLimit:  ratelimit.New(opts.ErrorLogRate, opts.ErrorLogBurst),
	}
}

// ProcessEvent runs one relocation attempt for event and reports its outcome.
// It blocks until the attempt ends.
func (ep *EventProcessor) ProcessEvent(ctx context.Context, event watcher.Event) relocator.Outcome {
	ep.logger.Debug("processing event",
		"kind", event.Kind.String(),
		"path", event.Path,
	)

	if event.IsDir {
		return relocator.Skipped(event.Path, relocator.ReasonNotRegular)
	}

	lock, ok := ep.acquire(event.Path)
	if !ok {
		ep.coalesced.Add(1)
		ep.logger.Debug("attempt already pending, coalescing event", "path", event.Path)
		return relocator.Skipped(event.Path, ReasonCoalesced)
	}

	settled := false
	defer func() { ep.release(event.Path, settled) }()

	lock.mu.Lock()
	defer lock.mu.Unlock()

	select {
	case ep.sem <- struct{}{}:
	case <-ctx.Done():
		out := relocator.Skipped(event.Path, relocator.ReasonCancelled)
		ep.report(out)
		return out
	}
	defer func() { <-ep.sem }()

	out := ep.relocator.RelocateNotify(ctx, event.Path, func() {
		settled = true
		ep.markSettled(event.Path)
	})
	ep.report(out)
	return out
}

// acquire registers an attempt for path. It returns false if an attempt for
// path is still pending, in which case the caller must drop the event.
func (ep *EventProcessor) acquire(path string) (*pathLock, bool) {
	coalesce := false
	lock := ep.pathLocks.Mutate(path, func(l *pathLock, ok bool) (*pathLock, bool) {
		if !ok {
			l = &pathLock{}
		}
		if l.pending {
			coalesce = true
			return l, true
		}
		l.pending = true
		l.refs++
		return l, true
	})
	return lock, !coalesce
}

func (ep *EventProcessor) markSettled(path string) {
	ep.pathLocks.Mutate(path, func(l *pathLock, ok bool) (*pathLock, bool) {
		if ok {
			l.pending = false
		}
		return l, ok
	})
}

// release drops the attempt's reference and forgets path once nothing refers to it.
func (ep *EventProcessor) release(path string, settled bool) {
	ep.pathLocks.Mutate(path, func(l *pathLock, ok bool) (*pathLock, bool) {
		if !ok {
			return l, false
		}
		if !settled {
			l.pending = false
		}
		l.refs--
		return l, l.refs > 0
	})
}

// report logs an outcome and updates the counters.
func (ep *EventProcessor) report(out relocator.Outcome) {
	log := ep.logger.With("src", out.Source)
	if out.AttemptID != "" {
		log = log.With("attempt", out.AttemptID)
	}

	switch out.Status {
	case relocator.StatusMoved:
		ep.moved.Add(1)
		log.Info("file moved", "dest", out.Dest)
	case relocator.StatusSkipped:
		ep.skipped.Add(1)
		if out.Reason == relocator.ReasonUnclassified {
			log.Debug("file skipped", "reason", out.Reason)
		} else {
			log.Info("file skipped", "reason", out.Reason)
		}
	case relocator.StatusFailed:
		ep.failed.Add(1)
		log.Error("move failed", "error", out.Err)
	}
}

// Run consumes events until ctx is done or both channels are closed, then
// waits for in-flight attempts. It returns an error only when the watch can
// no longer deliver events (the watched directory is gone).
func (ep *EventProcessor) Run(ctx context.Context, events <-chan watcher.Event, errs <-chan error) error {
	defer ep.Wait()

	for events != nil || errs != nil {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			ep.dispatch(ctx, event)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if errors.Is(err, watcher.ErrRootGone) {
				ep.logger.Error("watched directory is gone, stopping", "error", err)
				return err
			}
			ep.watchError(ctx, err)
		}
	}
	return nil
}

// dispatch runs ProcessEvent in the background so one settling file never
// holds up the event stream.
func (ep *EventProcessor) dispatch(ctx context.Context, event watcher.Event) {
	ep.wg.Add(1)
	go func() {
		defer ep.wg.Done()
		ep.ProcessEvent(ctx, event)
	}()
}

func (ep *EventProcessor) watchError(ctx context.Context, err error) {
	key := "watch"
	if errors.Is(err, watcher.ErrOverflow) {
		key = "overflow"
	}

	if ok, suppressed := ep.errLimit.Allow(key); ok {
		attrs := []any{"error", err}
		if suppressed > 0 {
			attrs = append(attrs, "suppressed", suppressed)
		}
		ep.logger.Error("watcher error", attrs...)
	}

	if key == "overflow" && ep.opts.Root != "" && ep.sweeping.CompareAndSwap(false, true) {
		ep.wg.Add(1)
		go func() {
			defer ep.wg.Done()
			defer ep.sweeping.Store(false)
			if _, err := ep.Sweep(ctx, ep.opts.Root); err != nil {
				ep.logger.Error("sweep after overflow failed", "error", err)
			}
		}()
	}
}

// Wait blocks until every dispatched attempt has finished.
func (ep *EventProcessor) Wait() {
	ep.wg.Wait()
}

// Stats returns the outcome counters.
func (ep *EventProcessor) Stats() Stats {
	return Stats{
		Moved:     ep.moved.Load(),
		Skipped:   ep.skipped.Load(),
		Failed:    ep.failed.Load(),
		Coalesced: ep.coalesced.Load(),
	}
}
