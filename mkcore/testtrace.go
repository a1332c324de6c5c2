package mkcore

import (
	"testing"
	"time"
)

// TestTracer logs all trace events to a test's log.
type TestTracer struct{ T *testing.T }

var _ Tracer = TestTracer{}

func (tr TestTracer) Debug(t *Trace, msg string, args ...any) {
	tr.T.Log(append([]any{"webmk-DEBUG:", t, msg}, args...)...)
}

func (tr TestTracer) Info(t *Trace, msg string, args ...any) {
	tr.T.Log(append([]any{"webmk-INFO:", t, msg}, args...)...)
}

func (tr TestTracer) Warn(t *Trace, msg string, args ...any) {
	tr.T.Log(append([]any{"webmk-WARN:", t, msg}, args...)...)
}

func (tr TestTracer) StartProject(t *Trace, p *Project, activity string) {
	tr.T.Logf("webmk-StartProject: %s %s", p, activity)
}

func (tr TestTracer) DoneProject(t *Trace, p *Project, activity string, dt time.Duration) {
	tr.T.Logf("webmk-DoneProject: %s %s %s", p, activity, dt)
}

func (tr TestTracer) RunAction(_ *Trace, a *Action) {
	tr.T.Logf("webmk-RunAction: %s", a)
}

func (tr TestTracer) RunImplicitAction(_ *Trace, a *Action) {
	tr.T.Logf("webmk-RunImplicitAction: %s", a)
}

func (tr TestTracer) ScheduleResTimeZero(t *Trace, a *Action, res *Goal) {
	tr.T.Logf("webmk-ScheduleResTimeZero: %s:> %s", a, res)
}

func (tr TestTracer) ScheduleNotPremises(t *Trace, a *Action, res *Goal) {
	tr.T.Logf("webmk-ScheduleNotPremises: %s:> %s", a, res)
}

func (tr TestTracer) SchedulePreTimeZero(t *Trace, a *Action, res, pre *Goal) {
	tr.T.Logf("webmk-SchedulePreTimeZero: %s: %s > %s", a, pre, res)
}

func (tr TestTracer) ScheduleOutdated(t *Trace, a *Action, res, pre *Goal) {
	tr.T.Logf("webmk-ScheduleOutdated: %s: %s > %s", a, pre, res)
}

func (tr TestTracer) CheckGoal(t *Trace, g *Goal) {
	tr.T.Logf("webmk-CheckGoal: %s", g)
}

func (tr TestTracer) GoalUpToDate(t *Trace, g *Goal) {
	tr.T.Logf("webmk-GoalUpToDate: %s", g)
}

func (tr TestTracer) GoalNeedsActions(t *Trace, g *Goal, n int) {
	tr.T.Logf("webmk-GoalNeedsActions: %s %d", g, n)
}

func (tr TestTracer) RemoveArtefact(t *Trace, g *Goal) {
	tr.T.Logf("webmk-RemoveArtefact: %s", g)
}
