// Package watch rebuilds the goals of a project when their source files
// change.
package watch

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"git.fractalqb.de/fractalqb/webmk/mkcore"
	"git.fractalqb.de/fractalqb/webmk/mkfs"
	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 200 * time.Millisecond

type Watcher struct {
	// Debounce is the quiet time after a change before the update starts.
	Debounce time.Duration
	// OnChange is called after the update of each batch of changed goals.
	OnChange func(changed []*mkcore.Goal, err error)

	prj     *mkcore.Project
	sources []*mkcore.Goal
	fsw     *fsnotify.Watcher
	watched map[string]bool
}

// Sources returns the goals of prj that are not the result of any action and
// have file system artefacts.
func Sources(prj *mkcore.Project) (srcs []*mkcore.Goal) {
	for _, g := range prj.Goals(nil) {
		if len(g.ResultOf()) > 0 || len(g.PremiseOf()) == 0 {
			continue
		}
		if _, ok := g.Artefact.(mkfs.Artefact); ok {
			srcs = append(srcs, g)
		}
	}
	return srcs
}

// New starts watching the file system for the source goals. Goals of other
// artefact types are ignored.
func New(tr *mkcore.Trace, sources ...*mkcore.Goal) (*Watcher, error) {
	if len(sources) == 0 {
		return nil, errors.New("nothing to watch")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		Debounce: DefaultDebounce,
		prj:      sources[0].Project(),
		fsw:      fsw,
		watched:  make(map[string]bool),
	}
	for _, src := range sources {
		if src.Project() != w.prj {
			fsw.Close()
			return nil, errors.New("watched goals from different projects")
		}
		a, ok := src.Artefact.(mkfs.Artefact)
		if !ok {
			continue
		}
		w.sources = append(w.sources, src)
		if err := w.addArtefact(tr, a); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) Close() error { return w.fsw.Close() }

func (w *Watcher) addArtefact(tr *mkcore.Trace, a mkfs.Artefact) error {
	p, err := w.prj.AbsPath(a.Path())
	if err != nil {
		return err
	}
	switch a.(type) {
	case mkfs.File:
		return w.addExisting(tr, filepath.Dir(p), false)
	case mkfs.DirTree:
		return w.addExisting(tr, p, true)
	}
	return w.addExisting(tr, p, false)
}

// addExisting watches dir or, if dir does not exist, its nearest existing
// ancestor in the project.
func (w *Watcher) addExisting(tr *mkcore.Trace, dir string, recursive bool) error {
	for {
		if _, err := os.Stat(dir); err == nil {
			break
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		up := filepath.Dir(dir)
		if up == dir || !strings.HasPrefix(up, filepath.Clean(w.prj.Dir)) {
			return nil
		}
		dir, recursive = up, false
	}
	if !recursive {
		return w.add(tr, dir)
	}
	return filepath.WalkDir(dir, func(p string, e fs.DirEntry, err error) error {
		if err != nil || !e.IsDir() {
			return err
		}
		return w.add(tr, p)
	})
}

func (w *Watcher) add(tr *mkcore.Trace, dir string) error {
	if w.watched[dir] {
		return nil
	}
	tr.Debug("watch `dir`", `dir`, dir)
	if err := w.fsw.Add(dir); err != nil {
		return err
	}
	w.watched[dir] = true
	return nil
}

// Run updates the goals that depend on changed sources until the context of
// tr is done.
func (w *Watcher) Run(tr *mkcore.Trace, env *mkcore.Env) error {
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	var (
		pending = make(map[*mkcore.Goal]bool)
		timer   *time.Timer
		fire    <-chan time.Time
	)
	for {
		select {
		case <-tr.Ctx().Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.event(tr, ev, pending) {
				break
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)
			}
			fire = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			tr.Warn("file watcher: `error`", `error`, err)
		case <-fire:
			fire = nil
			changed := make([]*mkcore.Goal, 0, len(pending))
			for g := range pending {
				changed = append(changed, g)
			}
			clear(pending)
			slices.SortFunc(changed, func(a, b *mkcore.Goal) int {
				return strings.Compare(a.Name(), b.Name())
			})
			err := w.update(tr, env, changed)
			if err != nil {
				tr.Warn("update after change: `error`", `error`, err)
			}
			if w.OnChange != nil {
				w.OnChange(changed, err)
			}
		}
	}
}

func (w *Watcher) update(tr *mkcore.Trace, env *mkcore.Env, changed []*mkcore.Goal) error {
	chg, err := mkcore.NewChanger(tr, env)
	if err != nil {
		return err
	}
	return chg.Goals(changed...)
}

// event records the goals owning the path of ev in pending. It reports if
// any goal was affected.
func (w *Watcher) event(tr *mkcore.Trace, ev fsnotify.Event, pending map[*mkcore.Goal]bool) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	isDir := false
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			isDir = true
			if err := w.addExisting(tr, ev.Name, true); err != nil {
				tr.Warn("watch new `dir`: `error`", `dir`, ev.Name, `error`, err)
			}
		}
	}
	hit := false
	for _, src := range w.sources {
		ok, err := mkfs.Owns(w.prj, src.Artefact, ev.Name, isDir)
		if err != nil {
			tr.Warn("check `path` for `goal`: `error`", `path`, ev.Name, `goal`, src.Name(), `error`, err)
			continue
		}
		if ok {
			tr.Debug("`path` changed `goal`", `path`, ev.Name, `goal`, src.Name())
			pending[src] = true
			hit = true
		}
	}
	return hit
}
