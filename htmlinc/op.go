package htmlinc

import (
	"fmt"
	"path/filepath"

	"git.fractalqb.de/fractalqb/webmk/mkcore"
	"git.fractalqb.de/fractalqb/webmk/mkfs"
)

// Pages expands each page of the [mkfs.DirList] premises into the
// [mkfs.DirList] result. Pages starting with '_' are skipped. Other premises
// only hold fragments.
type Pages struct {
	Inc *Includer
	Ctx Context
}

var _ mkcore.Operation = Pages{}

func (Pages) Describe(*mkcore.Action, *mkcore.Env) string { return "include HTML" }

func (op Pages) Do(tr *mkcore.Trace, a *mkcore.Action, _ *mkcore.Env) error {
	res, err := mkcore.Goals(a.Results(), true, mkcore.AType[mkfs.DirList])
	if err != nil {
		return err
	}
	if len(res) != 1 {
		return fmt.Errorf("HTML pages need one result directory, have %d", len(res))
	}
	prj := a.Project()
	dst, err := prj.AbsPath(res[0].Artefact.(mkfs.DirList).Path())
	if err != nil {
		return err
	}
	inc := op.Inc
	if inc == nil {
		inc = New("")
	}
	srcs, err := mkcore.Goals(a.Premises(), false, mkcore.AType[mkfs.DirList])
	if err != nil {
		return err
	}
	for _, src := range srcs {
		ls, err := src.Artefact.(mkfs.DirList).List(prj)
		if err != nil {
			return err
		}
		for _, page := range ls {
			if base := filepath.Base(page); base[0] == '_' {
				continue
			}
			path, err := prj.AbsPath(page)
			if err != nil {
				return err
			}
			html, err := inc.File(path, op.Ctx)
			if err != nil {
				return err
			}
			target := filepath.Join(dst, filepath.Base(page))
			tr.Debug("write `page`", `page`, target)
			if err := mkfs.WriteFile(target, html, 0644); err != nil {
				return err
			}
		}
	}
	return nil
}
