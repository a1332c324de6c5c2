package mkfs

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// Filter selects entries of directory artefacts. The path is relative to the
// directory.
type Filter interface {
	Ok(path string, entry fs.DirEntry) (bool, error)
}

type FilterFunc func(string, fs.DirEntry) (bool, error)

func (ff FilterFunc) Ok(p string, e fs.DirEntry) (bool, error) {
	return ff(p, e)
}

type IsDir bool

func (d IsDir) Ok(_ string, e fs.DirEntry) (bool, error) {
	return e.IsDir() == bool(d), nil
}

// NameMatch matches the base name of an entry with a [filepath.Match] pattern.
type NameMatch string

func (p NameMatch) Ok(_ string, e fs.DirEntry) (bool, error) {
	return filepath.Match(string(p), e.Name())
}

// Ext matches the file name extensions, case insensitive.
type Ext []string

func (x Ext) Ok(_ string, e fs.DirEntry) (bool, error) {
	ext := filepath.Ext(e.Name())
	for _, t := range x {
		if strings.EqualFold(ext, t) {
			return true, nil
		}
	}
	return false, nil
}

// Hidden matches entries with names starting with '.' or '_'.
var Hidden = FilterFunc(func(_ string, e fs.DirEntry) (bool, error) {
	n := e.Name()
	return n != "" && (n[0] == '.' || n[0] == '_'), nil
})

func Not(f Filter) Filter {
	return FilterFunc(func(p string, e fs.DirEntry) (bool, error) {
		ok, err := f.Ok(p, e)
		return !ok, err
	})
}

type All []Filter

func (fs All) Ok(p string, e fs.DirEntry) (bool, error) {
	for _, f := range fs {
		if ok, err := f.Ok(p, e); err != nil || !ok {
			return ok, err
		}
	}
	return true, nil
}

type Any []Filter

func (fs Any) Ok(p string, e fs.DirEntry) (bool, error) {
	for _, f := range fs {
		if ok, err := f.Ok(p, e); err != nil {
			return ok, err
		} else if ok {
			return true, nil
		}
	}
	return false, nil
}

// nameEntry is used to filter paths that are not read from a directory.
type nameEntry struct {
	name  string
	isDir bool
}

func (e nameEntry) Name() string { return e.name }
func (e nameEntry) IsDir() bool  { return e.isDir }

func (e nameEntry) Type() fs.FileMode {
	if e.isDir {
		return fs.ModeDir
	}
	return 0
}

func (e nameEntry) Info() (fs.FileInfo, error) { return nil, fs.ErrInvalid }

// Match applies f to the path p that need not exist.
func Match(f Filter, p string, isDir bool) (bool, error) {
	if f == nil {
		return true, nil
	}
	base := filepath.Base(p)
	return f.Ok(base, nameEntry{base, isDir})
}
