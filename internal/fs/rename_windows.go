//go:build windows

package fs

import (
	"errors"
	"os"
	"syscall"
)

// isCrossDeviceError reports whether err warrants the copy fallback. On
// Windows, moving across volumes surfaces as ERROR_NOT_SAME_DEVICE, and a
// rename over an open destination can report ERROR_ACCESS_DENIED, which
// the copy path handles by overwriting in place.
func isCrossDeviceError(err error) bool {
	var lerr *os.LinkError
	if !errors.As(err, &lerr) {
		return false
	}
	const errNotSameDevice = syscall.Errno(0x11)
	return lerr.Err == errNotSameDevice || lerr.Err == syscall.ERROR_ACCESS_DENIED
}
