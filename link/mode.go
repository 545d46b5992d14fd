package link

import "runtime"

// Mode selects the mechanism link.Dir uses to materialize a file.
type Mode uint8

const (
	// Clone attempts a copy-on-write reflink.
	Clone Mode = iota
	// Hardlink attempts a hard link.
	Hardlink
	// Symlink attempts a symbolic link.
	Symlink
	// Copy performs a byte-for-byte copy. Terminal: failure here is a
	// hard error rather than a cascade trigger.
	Copy
)

func (m Mode) String() string {
	switch m {
	case Clone:
		return "clone"
	case Hardlink:
		return "hardlink"
	case Symlink:
		return "symlink"
	case Copy:
		return "copy"
	default:
		return "unknown"
	}
}

// next returns the mode a failed attempt at m cascades to, and whether a
// cascade exists at all (Copy has none).
func (m Mode) next() (Mode, bool) {
	switch m {
	case Clone:
		return Hardlink, true
	case Hardlink:
		return Copy, true
	case Symlink:
		return Copy, true
	default:
		return Copy, false
	}
}

// DefaultMode returns the platform's preferred starting mode: Clone on
// Darwin (APFS reflink is common), Hardlink elsewhere. Dir never applies
// this implicitly; callers pass an explicit Mode.
func DefaultMode() Mode {
	if runtime.GOOS == "darwin" {
		return Clone
	}
	return Hardlink
}
