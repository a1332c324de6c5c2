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

// Mirror selects the files in Dest that mirror the files of Orig. Other files
// in Dest do not contribute to the mirror's state. Use it as the result of a
// [Copy] that shares its destination directory with other goals.
type Mirror struct {
	Orig DirTree
	Dest string
}

var _ Directory = Mirror{}

func (m Mirror) Path() string { return m.Dest }

func (m Mirror) Name(in *mkcore.Project) string { return DirTree{Dir: m.Dest}.Name(in) }

// StateAt is the zero time if any mirrored file is missing.
func (m Mirror) StateAt(in *mkcore.Project) (t time.Time, err error) {
	err = m.ls(in, func(rel string) error {
		abs, err := in.AbsPath(rel)
		if err != nil {
			return err
		}
		st, err := os.Stat(abs)
		if err != nil {
			return err
		}
		if tm := st.ModTime(); t.Before(tm) {
			t = tm
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return time.Time{}, nil
	}
	return t, err
}

func (m Mirror) Exists(in *mkcore.Project) (bool, error) {
	t, err := m.StateAt(in)
	if err != nil {
		return false, err
	}
	return !t.IsZero(), nil
}

// Remove removes the mirrored files and the directories that are empty
// afterwards. Dest itself is kept.
func (m Mirror) Remove(in *mkcore.Project) error {
	dest, err := in.AbsPath(m.Dest)
	if err != nil {
		return err
	}
	var dirs []string
	err = m.ls(in, func(rel string) error {
		abs, err := in.AbsPath(rel)
		if err != nil {
			return err
		}
		for d := filepath.Dir(abs); d != dest && strings.HasPrefix(d, dest); d = filepath.Dir(d) {
			if !slices.Contains(dirs, d) {
				dirs = append(dirs, d)
			}
		}
		if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	slices.SortFunc(dirs, func(a, b string) int { return len(b) - len(a) })
	for _, d := range dirs {
		if err := rmDirIfEmpty(d); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (m Mirror) List(in *mkcore.Project) (ls []string, err error) {
	err = m.ls(in, func(rel string) error {
		ls = append(ls, rel)
		return nil
	})
	return ls, err
}

func (m Mirror) Holds(p string, isDir bool) (bool, error) {
	rel, err := filepath.Rel(filepath.Clean(m.Dest), filepath.Clean(p))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false, nil
	}
	return m.Orig.Holds(filepath.Join(m.Orig.Dir, rel), isDir)
}

// ls calls do with the project relative destination path of each file in
// Orig.
func (m Mirror) ls(in *mkcore.Project, do func(rel string) error) error {
	orig, err := in.AbsPath(m.Orig.Path())
	if err != nil {
		return err
	}
	return m.Orig.walk(orig, func(rel string, e fs.DirEntry) error {
		if e.IsDir() {
			return nil
		}
		return do(filepath.Join(m.Dest, rel))
	})
}
