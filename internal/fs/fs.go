// Package fs holds the small filesystem helpers the link engine builds
// on: a single-file byte copy and a rename that degrades to copy+delete
// when src and dst sit on different devices.
package fs

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// CopyFile copies the file named src to dst, overwriting dst if it exists.
// A symlink at src is recreated as a symlink to the same target rather
// than dereferenced. Mode bits are copied from the source and the written
// data is synced before return.
func CopyFile(src, dst string) error {
	fi, err := os.Lstat(src)
	if err != nil {
		return errors.Wrapf(err, "cannot stat %s", src)
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		return cloneSymlink(src, dst)
	}

	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "cannot open %s", src)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return errors.Wrapf(err, "cannot create %s", dst)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return errors.Wrapf(err, "cannot copy %s to %s", src, dst)
	}
	if err := out.Sync(); err != nil {
		return errors.Wrapf(err, "cannot sync %s", dst)
	}
	return errors.Wrapf(os.Chmod(dst, fi.Mode().Perm()), "cannot chmod %s", dst)
}

// cloneSymlink creates dst as a new symlink to src's target, removing any
// existing file at dst first. A relative source link yields a relative
// destination link.
func cloneSymlink(src, dst string) error {
	target, err := os.Readlink(src)
	if err != nil {
		return errors.Wrapf(err, "cannot read link %s", src)
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "cannot replace %s", dst)
	}
	return errors.Wrapf(os.Symlink(target, dst), "cannot symlink %s", dst)
}

// RenameWithFallback attempts to rename src to dst, falling back to a copy
// followed by removal of src when the rename fails with a cross-device
// link error. Either way, a successful return means dst holds the content
// and src is gone.
func RenameWithFallback(src, dst string) error {
	fi, err := os.Lstat(src)
	if err != nil {
		return errors.Wrapf(err, "cannot stat %s", src)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	} else if !isCrossDeviceError(err) {
		return errors.Wrapf(err, "cannot rename %s to %s", src, dst)
	}
	return renameByCopy(src, dst, fi.IsDir())
}

// renameByCopy emulates rename across a device boundary: copy src (a file
// or a whole tree) to dst, then remove src.
func renameByCopy(src, dst string, isDir bool) error {
	var err error
	if isDir {
		err = copyTree(src, dst)
	} else {
		err = CopyFile(src, dst)
	}
	if err != nil {
		return errors.Wrapf(err, "rename fallback failed: cannot rename %s to %s", src, dst)
	}
	return errors.Wrapf(os.RemoveAll(src), "cannot delete %s", src)
}

// copyTree recursively copies the directory src to dst, creating dst and
// any missing parents.
func copyTree(src, dst string) error {
	fi, err := os.Stat(src)
	if err != nil {
		return errors.Wrapf(err, "cannot stat %s", src)
	}
	if err := os.MkdirAll(dst, fi.Mode().Perm()); err != nil {
		return errors.Wrapf(err, "cannot create %s", dst)
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return errors.Wrapf(err, "cannot read %s", src)
	}
	for _, e := range entries {
		s := filepath.Join(src, e.Name())
		d := filepath.Join(dst, e.Name())
		if e.IsDir() {
			if err := copyTree(s, d); err != nil {
				return err
			}
			continue
		}
		if err := CopyFile(s, d); err != nil {
			return err
		}
	}
	return nil
}
