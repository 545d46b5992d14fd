package link

import (
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"github.com/pkgforge/pkgforge/internal/fs"
)

var tempCounter uint64

// tempSiblingPath returns a not-yet-existing path in dst's directory,
// used as the staging location for an atomic overwrite.
func tempSiblingPath(dst string) string {
	n := atomic.AddUint64(&tempCounter, 1)
	return filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+".link-tmp."+strconv.FormatUint(n, 10))
}

// atomicReplace stages a new file at a sibling temp path via create, then
// renames it over dst. No observer ever sees a partially written dst:
// the rename is the only operation that touches the final name.
func atomicReplace(dst string, create func(tmp string) error) error {
	tmp := tempSiblingPath(dst)
	if err := create(tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	return fs.RenameWithFallback(tmp, dst)
}

func doClone(src, dst string, opts Options) error {
	exists, err := fileExists(dst)
	if err != nil {
		return wrapErr(ErrReflink, src, dst, err)
	}
	if !exists {
		return wrapErr(ErrReflink, src, dst, reflinkFile(src, dst))
	}
	if opts.Existing == Fail {
		return wrapErr(ErrReflink, src, dst, ErrAlreadyExists)
	}
	return wrapErr(ErrReflink, src, dst, atomicReplace(dst, func(tmp string) error {
		return reflinkFile(src, tmp)
	}))
}

func doHardlink(src, dst string, opts Options) error {
	exists, err := fileExists(dst)
	if err != nil {
		return wrapErr(ErrHardlink, src, dst, err)
	}
	if !exists {
		return wrapErr(ErrHardlink, src, dst, os.Link(src, dst))
	}
	if opts.Existing == Fail {
		return wrapErr(ErrHardlink, src, dst, ErrAlreadyExists)
	}
	return wrapErr(ErrHardlink, src, dst, atomicReplace(dst, func(tmp string) error {
		return os.Link(src, tmp)
	}))
}

func doSymlink(src, dst string, opts Options) error {
	exists, err := fileExists(dst)
	if err != nil {
		return wrapErr(ErrSymlink, src, dst, err)
	}
	if !exists {
		return wrapErr(ErrSymlink, src, dst, os.Symlink(src, dst))
	}
	if opts.Existing == Fail {
		return wrapErr(ErrSymlink, src, dst, ErrAlreadyExists)
	}
	return wrapErr(ErrSymlink, src, dst, atomicReplace(dst, func(tmp string) error {
		return os.Symlink(src, tmp)
	}))
}

// doCopy always overwrites an existing destination file: under Fail it
// rewrites the file in place, per POSIX copy semantics; under Merge it
// stages the copy at a sibling temp path and renames it over dst. Every
// physical copy (whether requested directly or reached by cascade)
// acquires the destination parent directory's lock, if opts.CopyLocks is
// set.
func doCopy(src, dst string, opts Options) error {
	return wrapErr(ErrCopy, src, dst, opts.CopyLocks.Copy(dst, func() error {
		if opts.Existing == Merge {
			exists, err := fileExists(dst)
			if err != nil {
				return err
			}
			if exists {
				return atomicReplace(dst, func(tmp string) error { return fs.CopyFile(src, tmp) })
			}
		}
		return fs.CopyFile(src, dst)
	}))
}

// mergeCloneDir attempts the Clone fast path's recursive merge: reflink
// each child of src into dst, recursing into subdirectories and
// atomically overwriting any existing destination file. Any error here
// is expected to be discarded by the caller, which falls back to the
// normal per-file walk.
func mergeCloneDir(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		s := filepath.Join(src, e.Name())
		d := filepath.Join(dst, e.Name())

		if e.IsDir() {
			if exists, _ := fileExists(d); !exists {
				info, err := e.Info()
				if err != nil {
					return err
				}
				if err := os.MkdirAll(d, info.Mode().Perm()); err != nil {
					return err
				}
			}
			if err := mergeCloneDir(s, d); err != nil {
				return err
			}
			continue
		}

		exists, err := fileExists(d)
		if err != nil {
			return err
		}
		if !exists {
			if err := reflinkFile(s, d); err != nil {
				return err
			}
			continue
		}
		if err := atomicReplace(d, func(tmp string) error { return reflinkFile(s, tmp) }); err != nil {
			return err
		}
	}
	return nil
}
