//go:build linux

package link

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

// isCapabilityError reports whether err reflects a filesystem-capability
// gap (the destination doesn't support the attempted mode at all) rather
// than an ordinary I/O error. Only a capability error is a legitimate
// cascade trigger for Hardlink/Symlink; ENOTSUP/EOPNOTSUPP mean the mode
// itself isn't implemented by the filesystem, EXDEV means src and dst
// straddle a device boundary a hard link can't cross, and ENOSYS means
// the underlying syscall isn't implemented at all.
func isCapabilityError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errReflinkUnsupported) {
		return true
	}
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}
	switch errno {
	case unix.ENOTSUP, unix.EXDEV, unix.ENOSYS:
		return true
	default:
		return false
	}
}
