package fontstyle

import (
	"errors"

	"git.fractalqb.de/fractalqb/webmk/mkcore"
	"git.fractalqb.de/fractalqb/webmk/mkfs"
)

// Op regenerates the fragment file result from the font directory premise.
type Op struct {
	Gen *Generator
}

var _ mkcore.Operation = Op{}

func (Op) Describe(*mkcore.Action, *mkcore.Env) string { return "font style fragment" }

func (op Op) Do(tr *mkcore.Trace, a *mkcore.Action, _ *mkcore.Env) error {
	dirs, err := mkcore.Goals(a.Premises(), false, mkcore.AType[mkfs.DirList])
	if err != nil {
		return err
	}
	if len(dirs) != 1 {
		return errors.New("font style needs exactly one font directory premise")
	}
	frags, err := mkcore.Goals(a.Results(), true, mkcore.AType[mkfs.File])
	if err != nil {
		return err
	}
	if len(frags) != 1 {
		return errors.New("font style needs exactly one fragment file result")
	}
	prj := a.Project()
	dir, err := prj.AbsPath(dirs[0].Artefact.(mkfs.DirList).Path())
	if err != nil {
		return err
	}
	frag, err := prj.AbsPath(frags[0].Artefact.(mkfs.File).Path())
	if err != nil {
		return err
	}
	gen := op.Gen
	if gen == nil {
		gen = New()
	}
	res, err := gen.Generate(dir, frag)
	if err != nil {
		return err
	}
	switch res.Status {
	case NoDir:
		tr.Warn("no font directory `dir`, wrote empty `fragment`",
			`dir`, dirs[0].Name(),
			`fragment`, frags[0].Name(),
		)
	case EmptyDir:
		tr.Info("no fonts in `dir`", `dir`, dirs[0].Name())
	default:
		tr.Info("wrote `fragment` with `families`",
			`fragment`, frags[0].Name(),
			`families`, res.Families,
		)
	}
	return nil
}
