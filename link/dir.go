package link

import (
	"os"
	"path/filepath"

	"github.com/karrick/godirwalk"
)

// Dir materializes every file under src at the corresponding path under
// dst using opts.Mode, cascading to a fallback mode per file on failure,
// and returns the furthest-down mode in cascade order (Clone, Hardlink,
// Symlink, Copy) that any file ended up using: opts.Mode unless some file
// cascaded or was copied because opts.Mutable matched it.
func Dir(src, dst string, opts Options) (Result, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return Result{}, wrapErr(ErrWalk, src, dst, err)
	}
	if !srcInfo.IsDir() {
		return Result{}, wrapErr(ErrWalk, src, dst, errSourceNotDir)
	}

	dstExists, err := fileExists(dst)
	if err != nil {
		return Result{}, wrapErr(ErrWalk, src, dst, err)
	}

	if opts.Mode == Clone {
		if !dstExists {
			if err := reflinkDir(src, dst); err == nil {
				return Result{Mode: Clone}, nil
			}
		} else if opts.Existing == Merge {
			if err := mergeCloneDir(src, dst); err == nil {
				return Result{Mode: Clone}, nil
			}
			// Discard the partial attempt's error and fall through to the
			// normal per-file walk below, which re-does each entry via the
			// same atomic-replace path and so is safe to repeat.
		}
	}

	if err := os.MkdirAll(dst, srcInfo.Mode().Perm()); err != nil {
		return Result{}, wrapErr(ErrCreateDir, src, dst, err)
	}

	state := newTreeState()
	deepest := opts.Mode

	walkErr := godirwalk.Walk(src, &godirwalk.Options{
		Unsorted: true,
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			rel, err := filepath.Rel(src, osPathname)
			if err != nil {
				return err
			}
			if rel == "." {
				return nil
			}
			target := filepath.Join(dst, rel)

			if de.IsDir() {
				info, err := os.Lstat(osPathname)
				if err != nil {
					return wrapErr(ErrCreateDir, osPathname, target, err)
				}
				if err := os.MkdirAll(target, info.Mode().Perm()); err != nil {
					return wrapErr(ErrCreateDir, osPathname, target, err)
				}
				return nil
			}

			mode, err := linkOne(osPathname, target, rel, opts, state)
			if err != nil {
				return err
			}
			if mode > deepest {
				deepest = mode
			}
			return nil
		},
	})
	if walkErr != nil {
		if le, ok := walkErr.(*Error); ok {
			return Result{}, le
		}
		return Result{}, wrapErr(ErrWalk, src, dst, walkErr)
	}
	return Result{Mode: deepest}, nil
}

// linkOne links or copies a single file, cascading through modes per the
// tree's shared state until one succeeds or the terminal Copy mode fails.
func linkOne(src, dst, rel string, opts Options, state *treeState) (Mode, error) {
	mode := opts.Mode
	if opts.Mutable != nil && opts.Mutable(rel) && (mode == Hardlink || mode == Symlink) {
		mode = Copy
	}

	st := State{Mode: mode, Attempt: state.attemptFor(mode)}
	for {
		err := attemptMode(st.Mode, src, dst, opts)
		if err == nil {
			state.markSucceeded(st.Mode)
			return st.Mode, nil
		}
		if !shouldCascade(st.Mode, st.Attempt, err) {
			return st.Mode, err
		}
		next, ok := st.NextMode()
		if !ok {
			return st.Mode, err
		}
		st = State{Mode: next.Mode, Attempt: state.attemptFor(next.Mode)}
	}
}

func attemptMode(mode Mode, src, dst string, opts Options) error {
	switch mode {
	case Clone:
		return doClone(src, dst, opts)
	case Hardlink:
		return doHardlink(src, dst, opts)
	case Symlink:
		return doSymlink(src, dst, opts)
	default:
		return doCopy(src, dst, opts)
	}
}
