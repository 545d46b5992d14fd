//go:build linux

package link

import (
	"os"

	"golang.org/x/sys/unix"
)

// reflinkFile attempts a copy-on-write clone of src as dst via the
// FICLONE ioctl (supported by btrfs, xfs with reflink=1, and overlayfs on
// a reflink-capable lower). Returns errReflinkUnsupported when the
// underlying filesystem doesn't implement it, so the caller can cascade
// to Hardlink.
func reflinkFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o666)
	if err != nil {
		return err
	}
	defer out.Close()

	err = unix.IoctlFileClone(int(out.Fd()), int(in.Fd()))
	if err == nil {
		return nil
	}
	os.Remove(dst)
	if err == unix.ENOTSUP || err == unix.EXDEV || err == unix.EOPNOTSUPP || err == unix.ENOSYS {
		return errReflinkUnsupported
	}
	return err
}

// reflinkDir never clones a whole directory tree on Linux: it always
// returns errReflinkUnsupported, so Dir falls back to per-file linking.
func reflinkDir(src, dst string) error {
	return errReflinkUnsupported
}
