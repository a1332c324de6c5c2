package mkfs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"git.fractalqb.de/fractalqb/webmk/mkcore"
)

// DirTree selects all files below Dir that pass Filter. Subdirectories are
// always descended.
type DirTree struct {
	Dir    string
	Filter Filter
}

var _ Directory = DirTree{}

func (d DirTree) Path() string { return d.Dir }

// Name is the directory's path with a trailing "/**".
func (d DirTree) Name(in *mkcore.Project) string {
	n, _ := in.RelPath(d.Dir)
	return filepath.ToSlash(n) + "/**"
}

// List returns the project relative paths of all selected files.
func (d DirTree) List(in *mkcore.Project) (ls []string, err error) {
	root, err := in.AbsPath(d.Path())
	if err != nil {
		return nil, err
	}
	err = d.walk(root, func(rel string, e fs.DirEntry) error {
		if !e.IsDir() {
			ls = append(ls, filepath.Join(d.Dir, rel))
		}
		return nil
	})
	return ls, err
}

func (d DirTree) Holds(p string, isDir bool) (bool, error) {
	rel, err := filepath.Rel(filepath.Clean(d.Dir), filepath.Clean(p))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false, nil
	}
	if isDir || d.Filter == nil {
		return true, nil
	}
	return d.Filter.Ok(rel, nameEntry{filepath.Base(p), false})
}

func (d DirTree) StateAt(in *mkcore.Project) (t time.Time, err error) {
	root, err := in.AbsPath(d.Dir)
	if err != nil {
		return time.Time{}, err
	}
	err = d.walk(root, func(_ string, e fs.DirEntry) error {
		if info, err := e.Info(); errors.Is(err, fs.ErrNotExist) {
			return nil
		} else if err != nil {
			return err
		} else if mt := info.ModTime(); mt.After(t) {
			t = mt
		}
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func (d DirTree) Exists(in *mkcore.Project) (bool, error) {
	return DirList{Dir: d.Dir}.Exists(in)
}

// Remove removes all selected files and all directories of the tree that are
// empty afterwards.
func (d DirTree) Remove(in *mkcore.Project) error {
	root, err := in.AbsPath(d.Dir)
	if err != nil {
		return err
	}
	var dirs []string
	err = d.walk(root, func(rel string, e fs.DirEntry) error {
		p := filepath.Join(root, rel)
		if e.IsDir() {
			dirs = append(dirs, p)
			return nil
		}
		return os.Remove(p)
	})
	if err != nil {
		return err
	}
	slices.Reverse(dirs)
	for _, dir := range dirs {
		if err := rmDirIfEmpty(dir); err != nil {
			return err
		}
	}
	return nil
}

// walk calls do for the root and for all selected files with paths relative
// to root.
func (d DirTree) walk(root string, do func(rel string, e fs.DirEntry) error) error {
	err := filepath.WalkDir(root, func(p string, e fs.DirEntry, err error) error {
		switch {
		case err != nil && p != root && errors.Is(err, fs.ErrNotExist):
			// Removed while walking
			return nil
		case err != nil:
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if !e.IsDir() && d.Filter != nil {
			if ok, err := d.Filter.Ok(rel, e); err != nil || !ok {
				return err
			}
		}
		return do(rel, e)
	})
	if errors.Is(err, os.ErrNotExist) {
		if _, serr := os.Stat(root); errors.Is(serr, os.ErrNotExist) {
			return nil
		}
	}
	return err
}
