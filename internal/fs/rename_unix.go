//go:build !windows

package fs

import (
	"errors"
	"os"
	"syscall"
)

// isCrossDeviceError reports whether err is the EXDEV a rename returns
// when src and dst live on different devices, the one rename failure that
// warrants the copy fallback.
func isCrossDeviceError(err error) bool {
	var lerr *os.LinkError
	if !errors.As(err, &lerr) {
		return false
	}
	return lerr.Err == syscall.EXDEV
}
