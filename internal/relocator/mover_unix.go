//go:build unix

package relocator

import (
	"errors"

	"golang.org/x/sys/unix"
)

func isCrossDevice(err error) bool {
	return errors.Is(err, unix.EXDEV)
}

// lacksHardLinks reports link errors from filesystems that cannot hard-link
// (FAT, some network mounts) or from files at their link limit.
func lacksHardLinks(err error) bool {
	return errors.Is(err, unix.EPERM) || errors.Is(err, unix.ENOTSUP) ||
		errors.Is(err, unix.EOPNOTSUPP) || errors.Is(err, unix.EMLINK)
}
