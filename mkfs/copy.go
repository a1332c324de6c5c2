package mkfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"git.fractalqb.de/fractalqb/webmk/mkcore"
)

// Copy [Operation] copies [Artefact] premises within the OS's filesystem to
// each of its results. A [File] result gets the concatenation of all premises.
// A [Directory] result receives the files of the premises, [DirTree] premises
// keep their structure.
type Copy struct {
	MkDirMode fs.FileMode
}

var _ mkcore.Operation = Copy{}

func (Copy) Describe(*mkcore.Action, *mkcore.Env) string { return "FS copy" }

func (cp Copy) Do(tr *mkcore.Trace, a *mkcore.Action, _ *mkcore.Env) error {
	var prems []Artefact
	for _, pre := range a.Premises() {
		switch fsa := pre.Artefact.(type) {
		case mkcore.Abstract:
			// do nothing
		case Artefact:
			prems = append(prems, fsa)
		default:
			return fmt.Errorf("FS copy: illegal premise artefact type %T", pre.Artefact)
		}
	}
	prj := a.Project()
	for _, res := range a.Results() {
		var err error
		switch res := res.Artefact.(type) {
		case File:
			err = cp.toFile(tr, prj, res, prems)
		case Directory:
			err = cp.toDir(tr, prj, res, prems)
		case mkcore.Abstract:
			// do nothing
		default:
			err = fmt.Errorf("FS copy: illegal result artefact type %T", res)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (cp Copy) toFile(tr *mkcore.Trace, prj *mkcore.Project, dst File, srcs []Artefact) error {
	dstPath, err := prj.AbsPath(dst.Path())
	if err != nil {
		return err
	}
	if err := cp.provideDir(filepath.Dir(dstPath)); err != nil {
		return err
	}
	if len(srcs) == 1 {
		src, err := prj.AbsPath(srcs[0].Path())
		if err != nil {
			return err
		}
		return cp.copyFile(tr, dstPath, src)
	}
	w, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("FS copy to %s: %w", dst.Path(), err)
	}
	defer w.Close()
	for _, src := range srcs {
		srcPath, err := prj.AbsPath(src.Path())
		if err != nil {
			return err
		}
		if srcPath == dstPath {
			tr.Warn("FS copy: `source` to itself, skipping", `source`, src.Path())
			continue
		}
		tr.Debug("FS copy: append `src` -> `dst`", `src`, srcPath, `dst`, dstPath)
		r, err := os.Open(srcPath)
		if err != nil {
			return fmt.Errorf("FS copy to %s: %w", dst.Path(), err)
		}
		_, err = io.Copy(w, r)
		if e := r.Close(); e != nil || err != nil {
			return errors.Join(err, e)
		}
	}
	return w.Close()
}

func (cp Copy) toDir(tr *mkcore.Trace, prj *mkcore.Project, dst Directory, srcs []Artefact) error {
	dstPath, err := prj.AbsPath(dst.Path())
	if err != nil {
		return err
	}
	for _, src := range srcs {
		srcPath, err := prj.AbsPath(src.Path())
		if err != nil {
			return err
		}
		switch src := src.(type) {
		case File:
			err = cp.copyFile(tr, filepath.Join(dstPath, filepath.Base(srcPath)), srcPath)
		case DirList:
			err = src.ls(srcPath, func(e fs.DirEntry) error {
				if e.IsDir() {
					return nil
				}
				return cp.copyFile(tr,
					filepath.Join(dstPath, e.Name()),
					filepath.Join(srcPath, e.Name()),
				)
			})
		case DirTree:
			if srcPath == dstPath {
				tr.Warn("FS copy: `source` to itself, skipping", `source`, src.Path())
				continue
			}
			err = src.walk(srcPath, func(rel string, e fs.DirEntry) error {
				if e.IsDir() {
					return nil
				}
				return cp.copyFile(tr,
					filepath.Join(dstPath, rel),
					filepath.Join(srcPath, rel),
				)
			})
		default:
			err = fmt.Errorf("FS copy: cannot copy %T", src)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (cp Copy) copyFile(tr *mkcore.Trace, dst, src string) error {
	if src == dst {
		return nil
	}
	sstat, err := os.Stat(src)
	if err != nil {
		return err
	}
	tr.Debug("FS copy: `src` -> `dst`", `src`, src, `dst`, dst)
	if err := cp.provideDir(filepath.Dir(dst)); err != nil {
		return err
	}
	w, err := os.OpenFile(dst,
		os.O_CREATE|os.O_TRUNC|os.O_WRONLY,
		sstat.Mode().Perm(),
	)
	if err != nil {
		return err
	}
	defer w.Close()
	r, err := os.Open(src)
	if err != nil {
		return err
	}
	defer r.Close()
	if _, err = io.Copy(w, r); err != nil {
		return err
	}
	return w.Close()
}

func (cp Copy) provideDir(path string) error {
	if cp.MkDirMode == 0 {
		return nil
	}
	return os.MkdirAll(path, cp.MkDirMode)
}

// CopyFile copies the file src to dst and creates missing directories. Both
// paths are OS paths.
func CopyFile(tr *mkcore.Trace, dst, src string) error {
	return Copy{MkDirMode: 0777}.copyFile(tr, dst, src)
}
