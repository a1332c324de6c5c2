package mkfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"git.fractalqb.de/fractalqb/webmk/mkcore"
)

type File string

var _ Artefact = File("")

func (f File) Path() string { return string(f) }

func (f File) Name(in *mkcore.Project) string {
	n, _ := in.RelPath(f.Path())
	return filepath.ToSlash(n)
}

// StateAt returns the modification time of f. If f does not exist, the zero
// time is returned.
func (f File) StateAt(in *mkcore.Project) (time.Time, error) {
	p, err := in.AbsPath(f.Path())
	if err != nil {
		return time.Time{}, err
	}
	st, err := os.Stat(p)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return time.Time{}, nil
	case err != nil:
		return time.Time{}, err
	case st.IsDir():
		return time.Time{}, fmt.Errorf("file artefact %s is a directory", f)
	}
	return st.ModTime(), nil
}

func (f File) Exists(in *mkcore.Project) (bool, error) { return Exists(f, in) }

func (f File) Remove(in *mkcore.Project) error {
	p, err := in.AbsPath(f.Path())
	if err != nil {
		return err
	}
	if err = os.Remove(p); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (f File) Ext() string { return filepath.Ext(f.Path()) }

// WithExt replaces the extension of f with ext. An empty ext removes the
// extension.
func (f File) WithExt(ext string) File {
	path := f.Path()
	if ext == "" {
		ext = filepath.Ext(path)
		if ext == "" {
			return f
		}
		return File(path[:len(path)-len(ext)])
	}
	if ext[0] != '.' {
		ext = "." + ext
	}
	fExt := filepath.Ext(path)
	if fExt == "" {
		return File(path + ext)
	}
	return File(path[:len(path)-len(fExt)] + ext)
}
