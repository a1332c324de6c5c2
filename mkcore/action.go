package mkcore

import (
	"sync"
)

// An Action is something you can do in your [Project] to achieve at least one
// [Goal]. The actual implementation of the action is an [Operation]. An action
// without an operation is an "implicit" action, i.e. if all its premises are
// reached, all results of the action are implicitly given.
type Action struct {
	Op Operation
	// IgnoreError makes a failing operation a warning instead of a build error.
	IgnoreError bool

	prj      *Project
	premises []*Goal
	results  []*Goal

	mu      sync.Mutex
	cond    *sync.Cond
	owner   uintptr
	lastBID BuildID
}

// Operation implements what an [Action] does.
type Operation interface {
	// Describe returns a short description. The hints are optional.
	Describe(actionHint *Action, envHint *Env) string
	Do(tr *Trace, a *Action, env *Env) error
}

func (a *Action) Project() *Project { return a.prj }

func (a *Action) Premises() []*Goal { return a.premises }

func (a *Action) Premise(i int) *Goal { return a.premises[i] }

func (a *Action) Results() []*Goal { return a.results }

func (a *Action) Result(i int) *Goal { return a.results[i] }

// LastBuild returns the ID of the last build that ran a.
func (a *Action) LastBuild() BuildID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastBID
}

// Run runs the operation of a once per build. It returns the ID of the build
// that ran a before.
func (a *Action) Run(tr *Trace, env *Env) (BuildID, error) {
	bid := a.prj.Build()
	a.mu.Lock()
	pre := a.lastBID
	if pre >= bid {
		a.mu.Unlock()
		return pre, nil
	}
	a.lastBID = bid
	a.mu.Unlock()

	if a.Op == nil {
		tr.runImplicitAction(a)
		return pre, nil
	}
	tr.runAction(a)
	if env == nil {
		env = DefaultEnv(tr)
	}
	err := a.Op.Do(tr.pushAction(a), a, env)
	if err != nil && a.IgnoreError {
		tr.Warn("ignoring `error` of `action`", `error`, err, `action`, a.String())
		err = nil
	}
	return pre, err
}

func (a *Action) String() string {
	switch {
	case a == nil:
		return "<nil:Action>"
	case a.Op == nil:
		return "implicit:" + a.Project().String()
	}
	return a.Op.Describe(a, nil)
}

func (a *Action) tryLock(gid uintptr) uintptr {
	a.mu.Lock()
	defer a.mu.Unlock()
	for a.owner != 0 && a.owner != gid {
		if a.owner > gid {
			return a.owner
		}
		a.cond.Wait()
	}
	a.owner = gid
	return gid
}

func (a *Action) unlock() {
	a.mu.Lock()
	a.owner = 0
	a.cond.Broadcast()
	a.mu.Unlock()
}
