package relocator

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// Mover moves one regular file. Implementations must never replace an existing
// destination: when dst is occupied they return an error matching fs.ErrExist.
type Mover interface {
	Move(src, dst string) error
}

// MoverFunc adapts a function to the Mover interface.
type MoverFunc func(src, dst string) error

// Move calls f(src, dst).
func (f MoverFunc) Move(src, dst string) error {
	return f(src, dst)
}

// NoClobberMover moves files without ever overwriting a destination.
//
// On one volume it hard-links the file into place and removes the source, which
// fails with fs.ErrExist instead of replacing an existing file. Across volumes
// it copies into an exclusively created file, syncs it, then removes the source.
// On filesystems without hard links it re-checks the destination and renames.
type NoClobberMover struct {
	link func(oldname, newname string) error
}

// NewNoClobberMover returns a mover backed by os.Link.
func NewNoClobberMover() *NoClobberMover {
	return &NoClobberMover{link: os.Link}
}

// Move implements Mover.
func (m *NoClobberMover) Move(src, dst string) error {
	link := m.link
	if link == nil {
		link = os.Link
	}

	err := link(src, dst)
	switch {
	case err == nil:
		return removeSourceAfterLink(src, dst)
	case errors.Is(err, fs.ErrExist), errors.Is(err, fs.ErrNotExist):
		return err
	case isCrossDevice(err):
		return copyAcross(src, dst)
	case lacksHardLinks(err):
		return renameIfFree(src, dst)
	default:
		return fmt.Errorf("link into place: %w", err)
	}
}

// removeSourceAfterLink drops the original name once the new one exists.
// If the source cannot be removed the new link is undone so the file is not
// left in two places.
func removeSourceAfterLink(src, dst string) error {
	err := os.Remove(src)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if undoErr := os.Remove(dst); undoErr != nil {
		return errors.Join(fmt.Errorf("remove source: %w", err), fmt.Errorf("undo link: %w", undoErr))
	}
	return fmt.Errorf("remove source: %w", err)
}

func renameIfFree(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: fs.ErrExist}
	}
	return os.Rename(src, dst)
}

// copyAcross copies src into a newly created dst and removes src. A partial or
// orphaned copy is removed on any failure.
func copyAcross(src, dst string) (err error) {
	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer source.Close()

	info, err := source.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	dest, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		// fs.ErrExist passes through so the caller tries the next name.
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	if _, err = io.Copy(dest, source); err != nil {
		dest.Close()
		return fmt.Errorf("copy data: %w", err)
	}
	if err = dest.Sync(); err != nil {
		dest.Close()
		return fmt.Errorf("sync destination: %w", err)
	}
	if err = dest.Close(); err != nil {
		return fmt.Errorf("close destination: %w", err)
	}
	_ = os.Chtimes(dst, info.ModTime(), info.ModTime())

	if err = os.Remove(src); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return nil
}
