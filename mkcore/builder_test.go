package mkcore

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"git.fractalqb.de/fractalqb/testerr"
)

type memArtefact struct {
	name string
	mu   sync.Mutex
	at   time.Time
	gone bool
}

func (m *memArtefact) Name(*Project) string { return m.name }

func (m *memArtefact) StateAt(*Project) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.at, nil
}

func (m *memArtefact) Exists(*Project) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.at.IsZero(), nil
}

func (m *memArtefact) Remove(*Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.at = time.Time{}
	m.gone = true
	return nil
}

func (m *memArtefact) touch(t time.Time) {
	m.mu.Lock()
	m.at = t
	m.mu.Unlock()
}

type touchOp struct {
	runs atomic.Int32
	err  error
}

func (op *touchOp) Describe(*Action, *Env) string { return "touch" }

func (op *touchOp) Do(_ *Trace, a *Action, _ *Env) error {
	op.runs.Add(1)
	if op.err != nil {
		return op.err
	}
	for _, r := range a.Results() {
		r.Artefact.(*memArtefact).touch(time.Now())
	}
	return nil
}

func newTestBuilder(t *testing.T) *Builder {
	tr := NewTrace(context.Background(), TestTracer{t})
	return testerr.Shall1(NewBuilder(tr, &Env{})).BeNil(t)
}

func TestBuilder_Project(t *testing.T) {
	prj := NewProject(t.TempDir())
	src := &memArtefact{name: "src", at: time.Now().Add(-time.Hour)}
	dst := &memArtefact{name: "dst"}
	gsrc := testerr.Shall1(prj.Goal(src)).BeNil(t)
	gdst := testerr.Shall1(prj.Goal(dst)).BeNil(t)
	var op touchOp
	testerr.Shall1(prj.NewAction([]*Goal{gsrc}, []*Goal{gdst}, &op)).BeNil(t)

	testerr.Shall(newTestBuilder(t).Project(prj)).BeNil(t)
	if n := op.runs.Load(); n != 1 {
		t.Fatalf("first build ran %d times", n)
	}
	testerr.Shall(newTestBuilder(t).Project(prj)).BeNil(t)
	if n := op.runs.Load(); n != 1 {
		t.Errorf("up to date goal was rebuilt: %d runs", n)
	}
	if b := prj.Build(); b != 2 {
		t.Errorf("project has build %d", b)
	}
}

func TestBuilder_unordered(t *testing.T) {
	prj := NewProject(t.TempDir())
	all := testerr.Shall1(prj.Goal(Abstract("all"))).BeNil(t)
	all.UpdateMode = UpdUnordered
	var ops [4]touchOp
	for i := range ops {
		g := testerr.Shall1(prj.Goal(&memArtefact{name: string(rune('a' + i))})).BeNil(t)
		testerr.Shall1(prj.NewAction(nil, []*Goal{g}, &ops[i])).BeNil(t)
		testerr.Shall1(prj.NewAction([]*Goal{g}, []*Goal{all}, nil)).BeNil(t)
	}
	testerr.Shall(newTestBuilder(t).NamedGoals(prj, "all")).BeNil(t)
	for i := range ops {
		if n := ops[i].runs.Load(); n != 1 {
			t.Errorf("action %d ran %d times", i, n)
		}
	}
}

func TestBuilder_error(t *testing.T) {
	prj := NewProject(t.TempDir())
	g := testerr.Shall1(prj.Goal(&memArtefact{name: "out"})).BeNil(t)
	op := touchOp{err: errors.New("boom")}
	act := testerr.Shall1(prj.NewAction(nil, []*Goal{g}, &op)).BeNil(t)

	testerr.Shall(newTestBuilder(t).Goals(g)).Check(t, testerr.Msg("boom"))

	act.IgnoreError = true
	testerr.Shall(newTestBuilder(t).Goals(g)).BeNil(t)
	if n := op.runs.Load(); n != 2 {
		t.Errorf("action ran %d times", n)
	}
}

func TestBuilder_NamedGoals_unknown(t *testing.T) {
	prj := NewProject("testprj")
	testerr.Shall(newTestBuilder(t).NamedGoals(prj, "nope")).
		Check(t, testerr.Msg("no goal named 'nope' in project 'testprj'"))
}

func TestChanger(t *testing.T) {
	prj := NewProject(t.TempDir())
	src := &memArtefact{name: "src", at: time.Now().Add(-time.Hour)}
	mid := &memArtefact{name: "mid"}
	dst := &memArtefact{name: "dst"}
	gsrc := testerr.Shall1(prj.Goal(src)).BeNil(t)
	gmid := testerr.Shall1(prj.Goal(mid)).BeNil(t)
	gdst := testerr.Shall1(prj.Goal(dst)).BeNil(t)
	var op1, op2 touchOp
	testerr.Shall1(prj.NewAction([]*Goal{gsrc}, []*Goal{gmid}, &op1)).BeNil(t)
	testerr.Shall1(prj.NewAction([]*Goal{gmid}, []*Goal{gdst}, &op2)).BeNil(t)
	testerr.Shall(newTestBuilder(t).Project(prj)).BeNil(t)

	src.touch(time.Now().Add(time.Hour))
	chg := testerr.Shall1(NewChanger(NewTrace(context.Background(), TestTracer{t}), &Env{})).BeNil(t)
	testerr.Shall(chg.Goals(gsrc)).BeNil(t)
	if n := op1.runs.Load(); n != 2 {
		t.Errorf("changed premise ran first action %d times", n)
	}
	if n := op2.runs.Load(); n != 2 {
		t.Errorf("change did not propagate: %d runs", n)
	}
}

func TestClean(t *testing.T) {
	prj := NewProject(t.TempDir())
	src := &memArtefact{name: "src", at: time.Now()}
	keep := &memArtefact{name: "keep", at: time.Now()}
	drop := &memArtefact{name: "drop", at: time.Now()}
	gsrc := testerr.Shall1(prj.Goal(src)).BeNil(t)
	gkeep := testerr.Shall1(prj.Goal(keep)).BeNil(t)
	gdrop := testerr.Shall1(prj.Goal(drop)).BeNil(t)
	gdrop.Removable = true
	gsrc.Removable = true
	testerr.Shall1(prj.NewAction([]*Goal{gsrc}, []*Goal{gkeep, gdrop}, &touchOp{})).BeNil(t)

	tr := NewTrace(context.Background(), TestTracer{t})
	testerr.Shall(Clean(prj, true, tr)).BeNil(t)
	if drop.gone {
		t.Fatal("dry run removed artefact")
	}
	testerr.Shall(Clean(prj, false, tr)).BeNil(t)
	if !drop.gone {
		t.Error("removable result not removed")
	}
	if keep.gone {
		t.Error("not removable result was removed")
	}
	if src.gone {
		t.Error("source without action was removed")
	}
}

func TestProject_WriteDot(t *testing.T) {
	prj := NewProject("dot")
	a := testerr.Shall1(prj.Goal(Abstract("a"))).BeNil(t)
	b := testerr.Shall1(prj.Goal(Abstract("b"))).BeNil(t)
	testerr.Shall1(prj.NewAction([]*Goal{a}, []*Goal{b}, nil)).BeNil(t)
	var sb strings.Builder
	testerr.Shall1(prj.WriteDot(&sb)).BeNil(t)
	dot := sb.String()
	if !strings.HasPrefix(dot, "digraph \"dot\" {") {
		t.Errorf("unexpected graph start: %s", dot)
	}
	if !strings.Contains(dot, "label=\"implicit\"") {
		t.Error("implicit action missing in graph")
	}
}

func TestGoals(t *testing.T) {
	prj := NewProject(t.Name())
	g1 := testerr.Should1(prj.Goal(Abstract("."))).BeNil(t)
	g2 := testerr.Should1(prj.Goal(&memArtefact{name: "F"})).BeNil(t)
	gs := []*Goal{g1, g2}

	t.Run("not exclusive", func(t *testing.T) {
		res := testerr.Shall1(Goals(gs, false, Tangible, AType[*memArtefact])).BeNil(t)
		if l := len(res); l != 1 {
			t.Fatalf("filter yields %d goals", l)
		}
		if res[0] != g2 {
			t.Fatalf("filtered wrong goal: %s", res[0])
		}
	})

	t.Run("exclusive fail", func(t *testing.T) {
		testerr.Shall1(Goals(gs, true, AType[Abstract])).
			Check(t, testerr.Msg("illegal goal 1: F"))
	})
}
