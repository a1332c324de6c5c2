package mkcore

import "errors"

// Changer updates everything that depends on goals that are known to have
// changed, e.g. files reported by a file watcher.
type Changer struct {
	updater
}

func NewChanger(tr *Trace, env *Env) (*Changer, error) {
	if tr == nil {
		return nil, errors.New("no trace for new changer")
	}
	return &Changer{updater: updater{trace: tr, env: env}}, nil
}

// Goals updates the results of all actions that have one of gs as premise.
// Updates propagate as long as goals actually need actions.
func (chg *Changer) Goals(gs ...*Goal) error {
	if len(gs) == 0 {
		return nil
	}
	prj := gs[0].Project()
	chg.bid = prj.LockBuild()
	defer prj.Unlock()
	if chg.env == nil {
		chg.env = DefaultEnv(chg.trace)
	}
	tr := chg.trace.pushProject(prj)
	tr.startProject(prj, "changing")
	for _, g := range gs {
		tr.Info("Check change of `goal`", `goal`, g.Name())
		if err := chg.propagate(tr, g); err != nil {
			return err
		}
	}
	return nil
}

func (chg *Changer) propagate(tr *Trace, g *Goal) error {
	for _, act := range g.PremiseOf() {
		for _, res := range act.Results() {
			if err := chg.update(tr, res); err != nil {
				return err
			}
		}
	}
	return nil
}

func (chg *Changer) update(tr *Trace, g *Goal) error {
	if g.LockBuild() == 0 {
		return nil
	}
	ok, err := chg.updateGoal(tr.pushGoal(g), g)
	g.Unlock()
	if err != nil {
		return err
	} else if ok {
		return chg.propagate(tr, g)
	}
	return nil
}
