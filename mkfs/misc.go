// Package mkfs provides file system artefacts and operations for webmk
// projects.
package mkfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"git.fractalqb.de/fractalqb/webmk/mkcore"
)

// Artefact is an artefact in the OS's file system. Its path is relative to
// the project directory unless it is absolute.
type Artefact interface {
	mkcore.RemovableArtefact
	Path() string
}

// Directory artefacts select files from a directory.
type Directory interface {
	Artefact
	List(in *mkcore.Project) ([]string, error)

	// Holds reports if the project relative path p is selected by the
	// directory. It does not check if p exists.
	Holds(p string, isDir bool) (bool, error)
}

func Stat(a Artefact, in *mkcore.Project) (fs.FileInfo, error) {
	p, err := in.AbsPath(a.Path())
	if err != nil {
		return nil, err
	}
	return os.Stat(p)
}

func Exists(a Artefact, in *mkcore.Project) (bool, error) {
	_, err := Stat(a, in)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Owns reports if the file system path p belongs to artefact a. Paths that are
// not absolute are relative to the project directory.
func Owns(in *mkcore.Project, a mkcore.Artefact, p string, isDir bool) (bool, error) {
	rel, err := relPath(in, p)
	if err != nil {
		return false, err
	}
	switch a := a.(type) {
	case File:
		if isDir {
			return false, nil
		}
		ap, err := relPath(in, a.Path())
		return err == nil && ap == rel, err
	case Directory:
		return a.Holds(rel, isDir)
	}
	return false, nil
}

// WriteFile writes data to a temporary file in the directory of path and
// renames it to path when complete. Readers of path never see partial content.
func WriteFile(path string, data []byte, perm fs.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0777); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = tmp.Chmod(perm); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func relPath(in *mkcore.Project, p string) (string, error) {
	if !filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	dir, err := in.AbsPath(".")
	if err != nil {
		return "", err
	}
	return filepath.Rel(dir, p)
}

func stateOf(p string) (time.Time, error) {
	st, err := os.Stat(p)
	switch {
	case err == nil:
		return st.ModTime(), nil
	case errors.Is(err, os.ErrNotExist):
		return time.Time{}, nil
	}
	return time.Time{}, err
}

func rmDirIfEmpty(path string) error {
	if ok, err := isDirEmpty(path); err != nil {
		return err
	} else if !ok {
		return nil
	}
	return os.Remove(path)
}

func isDirEmpty(path string) (bool, error) {
	dir, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer dir.Close()
	if _, err = dir.ReadDir(1); errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}
