// Package relocator moves one settled file into a date-stamped folder chosen
// by its extension, renaming on collision and never overwriting anything.
package relocator

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	domainerrors "github.com/listenupapp/dropsort/internal/errors"
	"github.com/listenupapp/dropsort/internal/id"
)

const (
	// DefaultSettleDelay gives the writing process time to finish before a move.
	DefaultSettleDelay = time.Second
	// DefaultDirMode is used for newly created destination folders.
	DefaultDirMode fs.FileMode = 0o755
)

// Relocator moves files according to a fixed set of Rules.
// It is safe for concurrent use; callers serialise attempts per path.
type Relocator struct {
	rules       Rules
	logger      *slog.Logger
	mover       Mover
	now         func() time.Time
	settleDelay time.Duration
	dirMode     fs.FileMode
}

// Option configures a Relocator.
type Option func(*Relocator)

// WithSettleDelay sets how long Relocate waits before touching a file.
// Zero or negative disables the wait.
func WithSettleDelay(d time.Duration) Option {
	return func(r *Relocator) { r.settleDelay = d }
}

// WithClock replaces time.Now. The clock is read once per attempt.
func WithClock(now func() time.Time) Option {
	return func(r *Relocator) { r.now = now }
}

// WithMover replaces the NoClobberMover.
func WithMover(m Mover) Option {
	return func(r *Relocator) { r.mover = m }
}

// WithDirMode sets the permissions of created destination folders.
func WithDirMode(mode fs.FileMode) Option {
	return func(r *Relocator) { r.dirMode = mode }
}

// New creates a Relocator for rules.
func New(rules Rules, logger *slog.Logger, opts ...Option) *Relocator {
	r := &Relocator{
		rules:       rules,
		logger:      logger,
		mover:       NewNoClobberMover(),
		now:         time.Now,
		settleDelay: DefaultSettleDelay,
		dirMode:     DefaultDirMode,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rules returns the classification table.
func (r *Relocator) Rules() Rules {
	return r.rules
}

// SettleDelay returns the configured settle delay.
func (r *Relocator) SettleDelay() time.Duration {
	return r.settleDelay
}

// Relocate waits out the settle delay, then moves path into
// {root}/{YYYY-MM-DD}/ for its extension. It never returns an error: every
// result, including I/O failures, is reported through the Outcome.
func (r *Relocator) Relocate(ctx context.Context, path string) Outcome {
	return r.RelocateNotify(ctx, path, nil)
}

// RelocateNotify is Relocate with a callback invoked once the settle delay has
// elapsed, before the file is inspected. settled may be nil.
func (r *Relocator) RelocateNotify(ctx context.Context, path string, settled func()) Outcome {
	attempt := id.Attempt()
	log := r.logger.With("attempt", attempt, "src", path)

	log.Info("file detected", "settle", r.settleDelay)
	if !r.settle(ctx) {
		return Skipped(path, ReasonCancelled).withAttempt(attempt)
	}
	if settled != nil {
		settled()
	}

	return r.relocate(log, path).withAttempt(attempt)
}

func (r *Relocator) settle(ctx context.Context) bool {
	if r.settleDelay <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(r.settleDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (r *Relocator) relocate(log *slog.Logger, path string) Outcome {
	info, err := os.Lstat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return Skipped(path, ReasonVanished)
	case err != nil:
		return Failed(path, domainerrors.Wrap(err, domainerrors.CodeIO, "stat source"))
	case !info.Mode().IsRegular():
		return Skipped(path, ReasonNotRegular)
	}

	name := filepath.Base(path)
	ext, root, ok := r.rules.Classify(name)
	if !ok {
		o := Skipped(path, ReasonUnclassified)
		o.Err = domainerrors.Unclassifiedf("no rule for extension %q", filepath.Ext(name))
		return o
	}

	now := r.now()
	folder := DayFolder(root, now)
	if err := os.MkdirAll(folder, r.dirMode); err != nil {
		return Failed(path, domainerrors.Wrapf(err, domainerrors.CodeIO, "create destination folder %s", folder))
	}

	dest, err := ResolveDestination(folder, name, ext, now, exists, func(dest string) error {
		log.Info("destination computed", "dest", dest)
		return r.mover.Move(path, dest)
	})
	switch {
	case err == nil:
		return Moved(path, dest)
	case dest == "":
		return Failed(path, err)
	case !exists(path):
		return Skipped(path, ReasonVanished)
	default:
		return Failed(path, domainerrors.Wrapf(err, domainerrors.CodeIO, "move to %s", dest))
	}
}

// exists treats any stat result other than "not found" as occupied, so an
// unreadable entry is never overwritten.
func exists(path string) bool {
	_, err := os.Lstat(path)
	return !errors.Is(err, fs.ErrNotExist)
}
