package mkcore

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
)

// Env is the environment operations run in. Its tags become the environment
// variables of sub-processes. An Env must not be modified while it is used by
// running operations.
type Env struct {
	In       io.Reader
	Out, Err io.Writer

	tags   map[string]string
	delt   map[string]bool
	parent *Env
}

// DefaultEnv uses the standard I/O of the process and its environment.
func DefaultEnv(tr *Trace) *Env {
	env := &Env{
		In:   os.Stdin,
		Out:  os.Stdout,
		Err:  os.Stderr,
		tags: make(map[string]string),
	}
	for _, evar := range os.Environ() {
		kv := strings.SplitN(evar, "=", 2)
		if len(kv) == 0 || kv[0] == "" {
			if tr != nil {
				tr.Warn("ignoring default `env`", `env`, evar)
			}
			continue
		}
		switch len(kv) {
		case 1:
			env.tags[kv[0]] = ""
		default:
			env.tags[kv[0]] = kv[1]
		}
	}
	return env
}

// Sub returns a new Env that inherits the tags of e.
func (e *Env) Sub() *Env {
	return &Env{
		In: e.In, Out: e.Out, Err: e.Err,
		parent: e,
	}
}

func (e *Env) Tag(key string) (string, bool) {
	for e != nil {
		if e.tags != nil {
			if v, ok := e.tags[key]; ok {
				return v, true
			}
		}
		if e.delt != nil && e.delt[key] {
			break
		}
		e = e.parent
	}
	return "", false
}

func (e *Env) SetTag(key, val string) {
	if e.tags == nil {
		e.tags = make(map[string]string)
	}
	e.tags[key] = val
	if e.delt != nil {
		delete(e.delt, key)
	}
}

// SetTags sets tags from "key=value" strings. A string without '=' sets an
// empty value.
func (e *Env) SetTags(env ...string) {
	for _, evar := range env {
		kv := strings.SplitN(evar, "=", 2)
		switch len(kv) {
		case 1:
			e.SetTag(kv[0], "")
		case 2:
			e.SetTag(kv[0], kv[1])
		}
	}
}

func (e *Env) DelTag(key string) {
	delete(e.tags, key)
	if e.parent != nil {
		if e.delt == nil {
			e.delt = make(map[string]bool)
		}
		e.delt[key] = true
	}
}

type NonXEnvKeys []string

func (e NonXEnvKeys) Error() string {
	return fmt.Sprintf("illegal exec env keys: %s", strings.Join(e, ", "))
}

func (NonXEnvKeys) Is(target error) bool {
	_, ok := target.(NonXEnvKeys)
	return ok
}

// ExecEnv returns the tags as sorted "key=value" strings for [os/exec]. Keys
// that cannot be passed to a process are left out and reported as
// [NonXEnvKeys].
func (e *Env) ExecEnv() ([]string, error) {
	var (
		xenv    []string
		errKeys []string
	)
	for k, v := range e.mergedTags() {
		switch {
		case k == "":
			errKeys = append(errKeys, `""`)
		case strings.ContainsRune(k, '='):
			errKeys = append(errKeys, k)
		default:
			xenv = append(xenv, k+"="+v)
		}
	}
	slices.Sort(xenv)
	if len(errKeys) > 0 {
		slices.Sort(errKeys)
		return xenv, NonXEnvKeys(errKeys)
	}
	return xenv, nil
}

func (e *Env) mergedTags() map[string]string {
	if e.parent == nil {
		if e.tags == nil {
			return make(map[string]string)
		}
		return maps.Clone(e.tags)
	}
	mts := e.parent.mergedTags()
	for k := range e.delt {
		delete(mts, k)
	}
	maps.Copy(mts, e.tags)
	return mts
}
