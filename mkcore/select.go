package mkcore

import "fmt"

// Goals is meant to be used when implementing [Operation] to select and check
// linked goals gs. With exclusive, a goal that does not match the last
// predicate is an error.
//
// See also [Tangible], [AType]
func Goals(gs []*Goal, exclusive bool, matchAll ...func(*Goal) bool) ([]*Goal, error) {
	mLen1 := len(matchAll) - 1
	res := make([]*Goal, 0, len(gs))
NEXT_GOAL:
	for gi, g := range gs {
		for pi, pred := range matchAll {
			if !pred(g) {
				if exclusive && pi == mLen1 {
					return nil, fmt.Errorf("illegal goal %d: %s", gi, g.Name())
				}
				continue NEXT_GOAL
			}
		}
		res = append(res, g)
	}
	return res, nil
}

func Tangible(g *Goal) bool { return !g.IsAbstract() }

func AType[A Artefact](g *Goal) bool {
	_, ok := g.Artefact.(A)
	return ok
}
