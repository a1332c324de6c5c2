package mkcore

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// TracerCommon has the log methods. Messages are sllm templates, i.e.
// parameters are named in back quotes and args hold key/value pairs or
// [log/slog.Attr] values.
type TracerCommon interface {
	Debug(t *Trace, msg string, args ...any)
	Info(t *Trace, msg string, args ...any)
	Warn(t *Trace, msg string, args ...any)

	StartProject(t *Trace, p *Project, activity string)
	DoneProject(t *Trace, p *Project, activity string, dt time.Duration)
}

type BuildTracer interface {
	TracerCommon

	RunAction(*Trace, *Action)
	RunImplicitAction(*Trace, *Action)

	ScheduleResTimeZero(t *Trace, a *Action, res *Goal)
	ScheduleNotPremises(t *Trace, a *Action, res *Goal)
	SchedulePreTimeZero(t *Trace, a *Action, res, pre *Goal)
	ScheduleOutdated(t *Trace, a *Action, res, pre *Goal)

	CheckGoal(t *Trace, g *Goal)
	GoalUpToDate(t *Trace, g *Goal)
	GoalNeedsActions(t *Trace, g *Goal, n int)
}

type CleanTracer interface {
	TracerCommon

	RemoveArtefact(*Trace, *Goal)
}

type Tracer interface {
	BuildTracer
	CleanTracer
}

type TraceLog int

const (
	TraceWarn TraceLog = (1 << iota)
	TraceInfo
	TraceDebug
)

// Trace tracks where in a build something happens. Operations get a Trace to
// log and to reach the build's context.
type Trace struct {
	root *traceRoot
	up   *Trace
	obj  any
	id   uint64
}

func NewTrace(ctx context.Context, t Tracer) *Trace {
	root := &traceRoot{ctx: ctx, tr: t}
	return &Trace{root: root}
}

func (t *Trace) Ctx() context.Context { return t.root.ctx }

func (t *Trace) Tracer() Tracer { return t.root.tr }

func (t *Trace) Debug(msg string, args ...any) { t.root.tr.Debug(t, msg, args...) }
func (t *Trace) Info(msg string, args ...any)  { t.root.tr.Info(t, msg, args...) }
func (t *Trace) Warn(msg string, args ...any)  { t.root.tr.Warn(t, msg, args...) }

func (t *Trace) startProject(p *Project, activity string) {
	t.root.prj.Store(p)
	t.root.tr.StartProject(t, p, activity)
}

func (t *Trace) doneProject(p *Project, activity string, dt time.Duration) {
	t.root.tr.DoneProject(t, p, activity, dt)
}

func (t *Trace) runAction(a *Action)         { t.root.tr.RunAction(t, a) }
func (t *Trace) runImplicitAction(a *Action) { t.root.tr.RunImplicitAction(t, a) }

func (t *Trace) scheduleResTimeZero(a *Action, res *Goal) {
	t.root.tr.ScheduleResTimeZero(t, a, res)
}

func (t *Trace) scheduleNotPremises(a *Action, res *Goal) {
	t.root.tr.ScheduleNotPremises(t, a, res)
}

func (t *Trace) schedulePreTimeZero(a *Action, res, pre *Goal) {
	t.root.tr.SchedulePreTimeZero(t, a, res, pre)
}

func (t *Trace) scheduleOutdated(a *Action, res, pre *Goal) {
	t.root.tr.ScheduleOutdated(t, a, res, pre)
}

func (t *Trace) checkGoal(g *Goal)               { t.root.tr.CheckGoal(t, g) }
func (t *Trace) goalUpToDate(g *Goal)            { t.root.tr.GoalUpToDate(t, g) }
func (t *Trace) goalNeedsActions(g *Goal, n int) { t.root.tr.GoalNeedsActions(t, g, n) }
func (t *Trace) removeArtefact(g *Goal)          { t.root.tr.RemoveArtefact(t, g) }

// Build returns the ID of the current build of the traced project.
func (t *Trace) Build() BuildID {
	if t.root == nil {
		return 0
	}
	if prj := t.root.prj.Load(); prj != nil {
		return prj.Build()
	}
	return 0
}

func (t *Trace) TopID() uint64 { return t.id }

func (t *Trace) TopTag() string {
	switch t.obj.(type) {
	case *Goal:
		return fmt.Sprintf("[%d]", t.id)
	case *Action:
		return fmt.Sprintf("(%d)", t.id)
	case *Project:
		return fmt.Sprintf("{%d}", t.id)
	case nil:
		return ""
	}
	return fmt.Sprintf("!%T!", t.obj)
}

func (t *Trace) Path() string {
	var sb strings.Builder
	sb.WriteByte('<')
	for ; t != nil; t = t.up {
		sb.WriteString(t.TopTag())
	}
	sb.WriteByte('>')
	return sb.String()
}

func (t *Trace) String() string {
	return fmt.Sprintf("%d@%s", t.Build(), t.Path())
}

func (t *Trace) pushProject(p *Project) *Trace { return t.push(p) }
func (t *Trace) pushGoal(g *Goal) *Trace       { return t.push(g) }
func (t *Trace) pushAction(a *Action) *Trace   { return t.push(a) }

func (t *Trace) push(obj any) *Trace {
	return &Trace{
		root: t.root,
		up:   t,
		obj:  obj,
		id:   t.root.idSeq.Add(1),
	}
}

type traceRoot struct {
	ctx   context.Context
	tr    Tracer
	prj   atomic.Pointer[Project]
	idSeq atomic.Uint64
}
