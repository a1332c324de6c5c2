package webmk

import (
	"errors"
	"fmt"

	"git.fractalqb.de/fractalqb/webmk/mkcore"
)

type (
	Env     = mkcore.Env
	Project = mkcore.Project
	Goal    = mkcore.Goal
	Action  = mkcore.Action
	Trace   = mkcore.Trace

	Abstract = mkcore.Abstract
)

func NewProject(dir string) *Project { return mkcore.NewProject(dir) }

// Edit calls do with wrappers of [mkcore] types that allow easy editing of
// project definitions. Edit recovers from any panic and returns it as an error,
// so the idiomatic error handling within do can be skipped.
func Edit(prj *Project, do func(ProjectEd)) (err error) {
	prj.Lock()
	defer func() {
		prj.Unlock()
		if p := recover(); p != nil {
			switch p := p.(type) {
			case error:
				err = p
			case string:
				err = errors.New(p)
			default:
				err = fmt.Errorf("panic: %+v", p)
			}
		}
	}()
	do(ProjectEd{prj})
	return
}

const (
	UpdAllActions  = mkcore.UpdAllActions
	UpdSomeActions = mkcore.UpdSomeActions
	UpdAnyAction   = mkcore.UpdAnyAction
	UpdOneAction   = mkcore.UpdOneAction

	UpdUnordered = mkcore.UpdUnordered
)

// OpFunc wraps f as an [mkcore.Operation] with description desc.
func OpFunc(desc string, f func(*Trace, *Action, *Env) error) mkcore.Operation {
	return funcOp{desc: desc, f: f}
}

type funcOp struct {
	desc string
	f    func(*Trace, *Action, *Env) error
}

func (fo funcOp) Describe(*Action, *Env) string { return fo.desc }

func (fo funcOp) Do(tr *Trace, a *Action, env *Env) error {
	tr.Debug("call `function`", `function`, fo.desc)
	return fo.f(tr, a, env)
}

func mustEd(err error) {
	if err != nil {
		panic(err)
	}
}

func mustRet[T any](v T, err error) T {
	mustEd(err)
	return v
}
