package mkcore

import (
	"fmt"
	"math"
	"reflect"
	"sync"
	"time"

	"github.com/bits-and-blooms/bitset"
)

// Artefact represents the tangible outcome of a [Goal] being reached. A special
// case is the [Abstract] artefact.
type Artefact interface {
	// Name returns the name of the artefact that must be unique in the Project.
	Name(in *Project) string

	// StateAt returns the time at which the artefact reached its current state.
	// If the artefact does not exist, the zero Time is returned.
	StateAt(in *Project) (time.Time, error)
}

// RemovableArtefact is implemented by artefacts that [Clean] can remove.
type RemovableArtefact interface {
	Artefact
	Exists(in *Project) (bool, error)
	Remove(in *Project) error
}

type Abstract string

var _ Artefact = Abstract("")

func (a Abstract) Name(*Project) string { return string(a) }

func (a Abstract) StateAt(*Project) (time.Time, error) { return time.Time{}, nil }

type UpdateMode uint

const (
	// All actions must be run to reach the goal.
	UpdAllActions UpdateMode = 0

	// All actions with changed state must be run to reach the goal.
	UpdSomeActions UpdateMode = 1

	// Only one of the actions with changed state has to be run to reach the
	// goal.
	UpdAnyAction UpdateMode = 2

	// Exactly one of the actions must have changed state.
	UpdOneAction UpdateMode = 3

	// The premises of an unordered goal are built concurrently and its actions
	// may run in any order. Otherwise, everything is done one after the other
	// in the specified order.
	UpdUnordered UpdateMode = 4

	updActions UpdateMode = 3
)

func (m UpdateMode) Actions() UpdateMode { return m & updActions }
func (m UpdateMode) Ordered() bool       { return (m & UpdUnordered) == 0 }

// A Goal is something you want to achieve in your [Project]. Each goal is
// associated with an [Artefact] that is considered up to date when the goal
// is reached. Abstract goals only provide a name, e.g. "build" or "deploy".
//
// Goals are reached through actions ([Action]). A goal can be the result of
// several actions; its [UpdateMode] decides how they contribute. A goal can
// also be the premise for actions that must not run before the goal is
// reached.
type Goal struct {
	UpdateMode UpdateMode
	Artefact   Artefact
	// Removable allows Clean to remove the artefact of the goal.
	Removable bool

	prj       *Project
	resultOf  []*Action
	premiseOf []*Action

	sync.Mutex
	lastBID BuildID
}

func (g *Goal) Project() *Project { return g.prj }

func (g *Goal) Name() string { return g.Artefact.Name(g.Project()) }

// ResultOf returns the actions that result in this goal.
func (g *Goal) ResultOf() []*Action { return g.resultOf }

// PreAction returns [Goal.ResultOf]()[i]
func (g *Goal) PreAction(i int) *Action { return g.resultOf[i] }

// PremiseOf returns the actions that depend on g.
func (g *Goal) PremiseOf() []*Action { return g.premiseOf }

func (g *Goal) IsAbstract() bool {
	_, ok := g.Artefact.(Abstract)
	return ok
}

func (g *Goal) String() string {
	tn := reflect.Indirect(reflect.ValueOf(g.Artefact)).Type().Name()
	return fmt.Sprintf("[%s]%s", g.Name(), tn)
}

// CheckPreTimes checks if g needs to be updated according to the state times
// of all premises. It returns the indices of the actions in [Goal.ResultOf]
// that have to run.
func (g *Goal) CheckPreTimes(tr *Trace) (chgs []int, err error) {
	gaTS, err := g.Artefact.StateAt(g.Project())
	if err != nil {
		return nil, fmt.Errorf("state of goal %s: %w", g, err)
	}
	for actIdx, act := range g.resultOf {
		if gaTS.IsZero() {
			tr.scheduleResTimeZero(act, g)
			chgs = append(chgs, actIdx)
			continue
		}
		if len(act.premises) == 0 {
			tr.scheduleNotPremises(act, g)
			chgs = append(chgs, actIdx)
			continue
		}
	PREMISE_LOOP:
		for _, pre := range act.premises {
			preTS, err := pre.Artefact.StateAt(g.Project())
			if err != nil {
				return nil, fmt.Errorf("state of premise %s: %w", pre, err)
			}
			switch {
			case preTS.IsZero():
				tr.schedulePreTimeZero(act, g, pre)
				chgs = append(chgs, actIdx)
				break PREMISE_LOOP
			case gaTS.Before(preTS):
				tr.scheduleOutdated(act, g, pre)
				chgs = append(chgs, actIdx)
				break PREMISE_LOOP
			}
		}
	}
	return chgs, nil
}

// LockBuild locks g once for the current build of g's project. If g was already
// locked for the build 0 is returned. Otherwise, the caller must unlock g when
// the goal is done.
func (g *Goal) LockBuild() BuildID {
	g.Mutex.Lock()
	if plb := g.Project().lastBuild; g.lastBID < plb {
		g.lastBID = plb
		return plb
	}
	g.Mutex.Unlock()
	return 0
}

// LockPreActions locks all actions that result in g. Goals with a lower gid
// back off when they meet an action locked by a goal with a higher gid.
func (g *Goal) LockPreActions(gid uintptr) {
	todo := len(g.resultOf)
	locked := bitset.New(uint(todo))

	var (
		i  uint = math.MaxUint
		ok bool
	)
	for todo > 0 {
		if i, ok = locked.NextClear(i + 1); !ok || i >= uint(len(g.resultOf)) {
			i, ok = locked.NextClear(0)
			if !ok || i >= uint(len(g.resultOf)) {
				panic("no next to lock but todo > 0")
			}
		}
		blockGID := g.resultOf[i].tryLock(gid)
		if blockGID > gid {
			for j, ok := locked.NextSet(0); ok; j, ok = locked.NextSet(j + 1) {
				g.resultOf[j].unlock()
			}
			locked.ClearAll()
			todo = len(g.resultOf)
			time.Sleep(time.Millisecond)
		} else {
			locked.Set(i)
			todo--
		}
	}
}

func (g *Goal) UnlockPreActions() {
	for _, act := range g.resultOf {
		act.unlock()
	}
}
