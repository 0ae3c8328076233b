//go:build linux

package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	// pollTimeoutMillis bounds how long Stop waits for the reader to notice shutdown.
	pollTimeoutMillis = 100
	nameMax           = 255
)

// inotifyMask selects the notifications that make an entry a relocation candidate.
// IN_CLOSE_WRITE fires when a writer closes the file, IN_MOVED_TO when a
// browser renames its partial download into place.
const inotifyMask = unix.IN_CREATE | unix.IN_CLOSE_WRITE | unix.IN_MOVED_TO |
	unix.IN_DELETE_SELF | unix.IN_MOVE_SELF | unix.IN_ONLYDIR

// inotifyBackend implements Backend using Linux inotify directly.
type inotifyBackend struct {
	*stream
	fd int
	wd int
}

// newInotifyBackend creates a new Linux-specific backend.
func newInotifyBackend(logger *slog.Logger, opts Options) (Backend, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize inotify: %w", err)
	}

	return &inotifyBackend{
		stream: newStream(logger, opts),
		fd:     fd,
		wd:     -1,
	}, nil
}

// Name identifies the backend in logs.
func (b *inotifyBackend) Name() string {
	return string(BackendInotify)
}

// Add subscribes to direct children of root.
func (b *inotifyBackend) Add(root string) error {
	wd, err := unix.InotifyAddWatch(b.fd, root, inotifyMask)
	if err != nil {
		return fmt.Errorf("inotify_add_watch %s: %w", root, err)
	}
	b.wd = wd
	b.root = root
	b.logger.Debug("added watch", "path", root, "wd", wd, "backend", b.Name())
	return nil
}

// Start reads inotify events until ctx is done or Stop is called.
func (b *inotifyBackend) Start(ctx context.Context) error {
	if !b.begin() {
		return nil
	}
	defer b.wg.Done()

	buf := make([]byte, 64*(unix.SizeofInotifyEvent+nameMax+1))
	fds := []unix.PollFd{{Fd: int32(b.fd), Events: unix.POLLIN}} //nolint:gosec // G115: fd is a small non-negative int

	for {
		if ctx.Err() != nil || b.stopping() {
			return nil
		}

		n, err := unix.Poll(fds, pollTimeoutMillis)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			b.fail(fmt.Errorf("poll inotify fd: %w", err))
			return err
		}
		if n == 0 {
			continue
		}

		n, err = unix.Read(b.fd, buf)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			b.fail(fmt.Errorf("read inotify events: %w", err))
			return err
		}

		b.parseEvents(buf[:n])
	}
}

// parseEvents walks the raw inotify records in buf.
func (b *inotifyBackend) parseEvents(buf []byte) {
	offset := 0
	for offset+unix.SizeofInotifyEvent <= len(buf) {
		//nolint:gosec // G103: inotify records are laid out by the kernel as unix.InotifyEvent
		raw := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
		nameStart := offset + unix.SizeofInotifyEvent
		nameEnd := nameStart + int(raw.Len)
		if nameEnd > len(buf) {
			return
		}

		name := ""
		if raw.Len > 0 {
			nameBytes := buf[nameStart:nameEnd]
			name = string(nameBytes[:clen(nameBytes)])
		}
		offset = nameEnd

		b.processEvent(name, raw.Mask)
	}
}

// processEvent translates one inotify record.
func (b *inotifyBackend) processEvent(name string, mask uint32) {
	if mask&unix.IN_Q_OVERFLOW != 0 {
		b.fail(fmt.Errorf("%w: inotify queue overflowed", ErrOverflow))
		return
	}

	if mask&(unix.IN_DELETE_SELF|unix.IN_MOVE_SELF|unix.IN_IGNORED) != 0 {
		b.fail(fmt.Errorf("%w: %s", ErrRootGone, b.root))
		return
	}

	if name == "" {
		return
	}

	var kind EventKind
	switch {
	case mask&(unix.IN_CREATE|unix.IN_MOVED_TO) != 0:
		kind = EventCreated
	case mask&unix.IN_CLOSE_WRITE != 0:
		kind = EventModified
	default:
		return
	}

	b.emit(Event{
		Kind:  kind,
		Path:  filepath.Join(b.root, name),
		IsDir: mask&unix.IN_ISDIR != 0,
	})
}

// Stop stops the reader and closes the inotify descriptor.
func (b *inotifyBackend) Stop() error {
	return b.shutdown(func() error {
		return unix.Close(b.fd)
	})
}

// clen returns the length of a null-terminated byte slice.
func clen(n []byte) int {
	for i := 0; i < len(n); i++ {
		if n[i] == 0 {
			return i
		}
	}
	return len(n)
}
