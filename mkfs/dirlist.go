package mkfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"git.fractalqb.de/fractalqb/webmk/mkcore"
)

// DirList is the flat list of the entries in directory Dir that pass Filter.
// Without a Filter all entries are selected.
type DirList struct {
	Dir    string
	Filter Filter
}

var _ Directory = DirList{}

func (d DirList) Path() string { return d.Dir }

// Name is the directory's path with a trailing slash.
func (d DirList) Name(prj *mkcore.Project) string {
	n, _ := prj.RelPath(d.Dir)
	return filepath.ToSlash(n) + "/"
}

// List returns the project relative paths of the selected entries. A missing
// directory has no entries.
func (d DirList) List(in *mkcore.Project) (ls []string, err error) {
	dir, err := in.AbsPath(d.Path())
	if err != nil {
		return nil, err
	}
	err = d.ls(dir, func(e fs.DirEntry) error {
		ls = append(ls, filepath.Join(d.Dir, e.Name()))
		return nil
	})
	return ls, err
}

func (d DirList) Holds(p string, isDir bool) (bool, error) {
	dir := filepath.Clean(d.Dir)
	p = filepath.Clean(p)
	if p == dir {
		return true, nil
	}
	if filepath.Dir(p) != dir {
		return false, nil
	}
	if d.Filter == nil {
		return true, nil
	}
	return d.Filter.Ok(filepath.Base(p), nameEntry{filepath.Base(p), isDir})
}

// StateAt is the latest modification time of the directory itself and its
// selected entries.
func (d DirList) StateAt(in *mkcore.Project) (t time.Time, err error) {
	dir, err := in.AbsPath(d.Path())
	if err != nil {
		return time.Time{}, err
	}
	if t, err = stateOf(dir); err != nil || t.IsZero() {
		return t, err
	}
	err = d.ls(dir, func(e fs.DirEntry) error {
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

func (d DirList) Exists(in *mkcore.Project) (bool, error) {
	st, err := Stat(d, in)
	switch {
	case err == nil:
		if !st.IsDir() {
			return true, fmt.Errorf("%s is no directory", d.Path())
		}
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	}
	return false, err
}

// Remove removes all selected entries that are no directory. The directory
// itself is removed if it is empty then.
func (d DirList) Remove(in *mkcore.Project) error {
	dir, err := in.AbsPath(d.Path())
	if err != nil {
		return err
	}
	err = d.ls(dir, func(e fs.DirEntry) error {
		if e.IsDir() {
			return nil
		}
		return os.Remove(filepath.Join(dir, e.Name()))
	})
	if err != nil {
		return err
	}
	if err = rmDirIfEmpty(dir); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (d DirList) ls(dir string, do func(e fs.DirEntry) error) error {
	rdir, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, entry := range rdir {
		if d.Filter != nil {
			if ok, err := d.Filter.Ok(entry.Name(), entry); err != nil {
				return err
			} else if !ok {
				continue
			}
		}
		if err := do(entry); err != nil {
			return err
		}
	}
	return nil
}
