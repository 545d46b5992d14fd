package link

import (
	"errors"
	"os"
)

// errReflinkUnsupported is returned by the platform-specific reflinkFile/
// reflinkDir when the filesystem doesn't implement copy-on-write clones;
// it never escapes this package.
var errReflinkUnsupported = errors.New("link: reflink not supported")

var errSourceNotDir = errors.New("link: source is not a directory")

// OnExistingDirectory controls what Dir does when dst already exists.
type OnExistingDirectory uint8

const (
	// Fail propagates ErrAlreadyExists for any destination file that is
	// already present, except under Copy, which overwrites per POSIX
	// copy semantics.
	Fail OnExistingDirectory = iota
	// Merge atomically overwrites an existing destination file: the
	// source is linked into a sibling temp path, then renamed over the
	// target, so no reader ever observes a partially written file.
	Merge
)

// MutableFilter reports whether path (relative to the source root)
// should always be copied rather than linked, because the caller intends
// to mutate the installed file. Ignored under Clone and Copy, which are
// already mutation-safe.
type MutableFilter func(relPath string) bool

// Options configures a Dir call.
type Options struct {
	Mode      Mode
	Existing  OnExistingDirectory
	Mutable   MutableFilter
	CopyLocks *CopyLocks
}

// Result reports the mode Dir actually settled on. A cascade means the
// result can differ from the mode the caller requested.
type Result struct {
	Mode Mode
}

func fileExists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
