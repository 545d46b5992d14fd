//go:build !linux

package link

// reflinkFile is unimplemented outside Linux in this module; callers
// cascade to Hardlink immediately. macOS's APFS clonefile(2) and a
// Windows Block Cloning implementation are natural follow-ups, each
// behind its own build tag the same way this one is.
func reflinkFile(src, dst string) error {
	return errReflinkUnsupported
}

func reflinkDir(src, dst string) error {
	return errReflinkUnsupported
}
