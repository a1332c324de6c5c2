package mkcore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"sync"
)

type BuildID = uint64

// Project holds the goals and actions of one site. All relative artefact paths
// are relative to Dir.
type Project struct {
	Dir string

	sync.Mutex

	goals     map[string]*Goal
	actions   []*Action
	lastBuild BuildID
}

func NewProject(dir string) *Project {
	if dir == "" {
		dir, _ = os.Getwd()
	}
	return &Project{
		Dir:   dir,
		goals: make(map[string]*Goal),
	}
}

// Goal returns the goal for artefact atf. If the project already has a goal
// with the name of atf, that goal is returned.
func (prj *Project) Goal(atf Artefact) (*Goal, error) {
	if atf == nil {
		return nil, fmt.Errorf("nil artefact for goal in project %s", prj)
	}
	name := atf.Name(prj)
	if name == "" {
		return nil, fmt.Errorf("artefact %T without name in project %s", atf, prj)
	}
	if g := prj.goals[name]; g != nil {
		return g, nil
	}
	g := &Goal{
		Artefact: atf,
		prj:      prj,
	}
	prj.goals[name] = g
	return g, nil
}

// Goals appends all goals of prj to addTo, ordered by name.
func (prj *Project) Goals(addTo []*Goal) []*Goal {
	start := len(addTo)
	addTo = slices.Grow(addTo, len(prj.goals))
	for _, g := range prj.goals {
		addTo = append(addTo, g)
	}
	sortGoals(addTo[start:])
	return addTo
}

func (prj *Project) FindGoal(name string) *Goal { return prj.goals[name] }

func (prj *Project) Build() BuildID { return prj.lastBuild }

func (prj *Project) String() string {
	tmp := prj.Dir
	if tmp == "" || tmp == "." {
		tmp, _ = filepath.Abs(tmp)
	}
	return filepath.Base(tmp)
}

// AbsPath returns the absolute path of p. Relative paths are resolved against
// the project directory.
func (prj *Project) AbsPath(p string) (string, error) {
	if filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	return filepath.Abs(filepath.Join(prj.Dir, p))
}

// RelPath returns p relative to the project directory. Relative paths are
// considered to be relative to the project already.
func (prj *Project) RelPath(p string) (string, error) {
	if !filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	dir, err := filepath.Abs(prj.Dir)
	if err != nil {
		return "", err
	}
	return filepath.Rel(dir, p)
}

// Leafs returns the goals that are no premise of any action, ordered by name.
func (prj *Project) Leafs() (ls []*Goal) {
	for _, g := range prj.goals {
		if len(g.premiseOf) == 0 {
			ls = append(ls, g)
		}
	}
	sortGoals(ls)
	return ls
}

// NewAction creates a new [Action] in project prj. There must be at least one
// result. All premises and results must belong to prj.
func (prj *Project) NewAction(premises, results []*Goal, op Operation) (*Action, error) {
	if len(results) == 0 {
		var desc string
		if op == nil {
			desc = "implicit"
		} else {
			desc = op.Describe(nil, nil)
		}
		return nil, fmt.Errorf("creating action %s without result", desc)
	}
	if err := prj.consistentPrj(premises, results); err != nil {
		return nil, err
	}
	a := &Action{
		Op:       op,
		prj:      prj,
		premises: premises,
		results:  results,
	}
	a.cond = sync.NewCond(&a.mu)
	for _, p := range premises {
		p.premiseOf = append(p.premiseOf, a)
	}
	for _, r := range results {
		r.resultOf = append(r.resultOf, a)
	}
	prj.actions = append(prj.actions, a)
	return a, nil
}

// LockBuild locks the project and starts a new build.
func (prj *Project) LockBuild() BuildID {
	prj.Lock()
	prj.lastBuild++
	return prj.lastBuild
}

func escDotID(id string) string {
	return strings.ReplaceAll(id, "\"", "\\\"")
}

func (prj *Project) WriteDot(w io.Writer) (n int, err error) {
	defer func() {
		if p := recover(); p != nil {
			switch p := p.(type) {
			case error:
				err = p
			default:
				panic(p)
			}
		}
	}()
	akku := func(p int, err error) {
		n += p
		if err != nil {
			panic(err)
		}
	}
	akku(fmt.Fprintf(w, "digraph \"%s\" {\n\trankdir=\"LR\"\n", escDotID(prj.String())))
	for _, g := range prj.Goals(nil) {
		tn := reflect.Indirect(reflect.ValueOf(g.Artefact)).Type().Name()
		var updMode string
		if len(g.resultOf) > 1 {
			switch g.UpdateMode.Actions() {
			case UpdAnyAction:
				updMode = " ?"
			case UpdSomeActions:
				updMode = " +"
			case UpdAllActions:
				updMode = " *"
			}
		}
		var style string
		if g.IsAbstract() {
			if len(g.resultOf) == 0 || len(g.premiseOf) == 0 {
				style = ",style=\"dashed,bold\""
			} else {
				style = ",style=dashed"
			}
		} else if len(g.resultOf) == 0 || len(g.premiseOf) == 0 {
			style = ",style=bold"
		}
		akku(fmt.Fprintf(w, "\t\"%p\" [shape=record%s,label=\"{%s%s|%s}\"];\n",
			g,
			style,
			tn,
			updMode,
			escDotID(g.Name()),
		))
		for i, a := range g.resultOf {
			if a.Op == nil {
				akku(fmt.Fprintf(w, "\t\"%p\" [shape=none,label=\"implicit\"];\n", a))
			} else {
				akku(fmt.Fprintf(w, "\t\"%p\" [shape=box,style=rounded,label=\"%s\"];\n",
					a,
					escDotID(a.String()),
				))
			}
			var lb string
			if g.UpdateMode.Ordered() && len(g.resultOf) > 1 {
				lb = fmt.Sprintf(" [label=%d]", i+1)
			}
			akku(fmt.Fprintf(w, "\t\"%p\" -> \"%p\"%s;\n", a, g, lb))
		}
	}
	for _, act := range prj.actions {
		for _, p := range act.premises {
			akku(fmt.Fprintf(w, "\t\"%p\" -> \"%p\";\n", p, act))
		}
	}
	akku(fmt.Fprintln(w, "}"))
	return
}

func (prj *Project) consistentPrj(premises, results []*Goal) error {
	for _, g := range premises {
		if p := g.Project(); p != prj {
			return fmt.Errorf("premise '%s' not in project '%s'", g, prj)
		}
	}
	for _, g := range results {
		if p := g.Project(); p != prj {
			return fmt.Errorf("result '%s' not in project '%s'", g, prj)
		}
	}
	return nil
}

func sortGoals(gs []*Goal) {
	slices.SortFunc(gs, func(a, b *Goal) int {
		return strings.Compare(a.Name(), b.Name())
	})
}
