// Package ghpages publishes a directory to a branch of a git remote, e.g. for
// GitHub Pages. It uses the git command line tool and keeps a clone of the
// remote in a cache directory.
package ghpages

import (
	"bytes"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"git.fractalqb.de/fractalqb/webmk/mkcore"
	"git.fractalqb.de/fractalqb/webmk/mkfs"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const DefaultBranch = "build"

type Publisher struct {
	Remote string
	Branch string
	// CacheDir holds the clone of Remote. The default is below the user's
	// cache directory and unique per remote.
	CacheDir string
	Message  string
	Git      string
	// Author, if set, overrides the git user config as "Name <email>".
	Author string
}

func (p *Publisher) branch() string {
	if p.Branch == "" {
		return DefaultBranch
	}
	return p.Branch
}

func (p *Publisher) cacheDir() (string, error) {
	if p.CacheDir != "" {
		return p.CacheDir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", errors.Wrap(err, "gh-pages cache")
	}
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(p.Remote))
	return filepath.Join(base, "webmk", "gh-pages", id.String()), nil
}

// Publish replaces the content of the branch with the files in dir and pushes
// the branch to the remote. Nothing is committed if the content did not
// change.
func (p *Publisher) Publish(tr *mkcore.Trace, dir string) (changed bool, err error) {
	if p.Remote == "" {
		return false, errors.New("gh-pages: no remote")
	}
	cache, err := p.cacheDir()
	if err != nil {
		return false, err
	}
	if err := p.sync(tr, cache); err != nil {
		return false, err
	}
	if _, err := p.git(tr, cache, "rm", "-r", "-q", "--ignore-unmatch", "."); err != nil {
		return false, err
	}
	if _, err := p.git(tr, cache, "clean", "-f", "-d", "-x", "-q"); err != nil {
		return false, err
	}
	if err := copyTree(tr, cache, dir); err != nil {
		return false, errors.Wrap(err, "gh-pages copy")
	}
	if _, err := p.git(tr, cache, "add", "-A"); err != nil {
		return false, err
	}
	status, err := p.git(tr, cache, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	if len(bytes.TrimSpace(status)) == 0 {
		tr.Info("gh-pages: nothing changed in `dir`", `dir`, dir)
		return false, nil
	}
	msg := p.Message
	if msg == "" {
		msg = "Update " + p.branch()
	}
	commit := []string{"commit", "-q", "-m", msg}
	if p.Author != "" {
		name, email := splitAuthor(p.Author)
		commit = append([]string{"-c", "user.name=" + name, "-c", "user.email=" + email}, commit...)
	}
	if _, err := p.git(tr, cache, commit...); err != nil {
		return false, err
	}
	if _, err := p.git(tr, cache, "push", "-q", "origin", p.branch()); err != nil {
		return false, err
	}
	tr.Info("gh-pages: pushed `branch` to `remote`", `branch`, p.branch(), `remote`, p.Remote)
	return true, nil
}

// sync provides an up-to-date clone of the remote with the branch checked out.
func (p *Publisher) sync(tr *mkcore.Trace, cache string) error {
	if _, err := os.Stat(filepath.Join(cache, ".git")); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(cache), 0777); err != nil {
			return errors.Wrap(err, "gh-pages cache")
		}
		tr.Debug("gh-pages: clone `remote` into `cache`", `remote`, p.Remote, `cache`, cache)
		if _, err := p.git(tr, "", "clone", "-q", p.Remote, cache); err != nil {
			return err
		}
	} else if err != nil {
		return errors.Wrap(err, "gh-pages cache")
	} else if _, err := p.git(tr, cache, "fetch", "-q", "origin"); err != nil {
		return err
	}
	heads, err := p.git(tr, cache, "ls-remote", "--heads", "origin", p.branch())
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(heads)) == 0 {
		tr.Debug("gh-pages: new orphan `branch`", `branch`, p.branch())
		_, err = p.git(tr, cache, "checkout", "-q", "--orphan", p.branch())
	} else {
		_, err = p.git(tr, cache, "checkout", "-q", "-B", p.branch(), "origin/"+p.branch())
	}
	return err
}

func (p *Publisher) git(tr *mkcore.Trace, dir string, args ...string) ([]byte, error) {
	exe := p.Git
	if exe == "" {
		exe = "git"
	}
	cmd := exec.CommandContext(tr.Ctx(), exe, args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	tr.Debug("`exe` `args`", `exe`, exe, `args`, args)
	out, err := cmd.Output()
	if err != nil {
		return out, errors.Wrapf(err, "%s %s: %s",
			exe,
			strings.Join(args, " "),
			strings.TrimSpace(stderr.String()),
		)
	}
	return out, nil
}

func copyTree(tr *mkcore.Trace, dst, src string) error {
	return filepath.WalkDir(src, func(p string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if e.IsDir() {
			if e.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		return mkfs.CopyFile(tr, filepath.Join(dst, rel), p)
	})
}

func splitAuthor(a string) (name, email string) {
	if i := strings.IndexByte(a, '<'); i >= 0 {
		return strings.TrimSpace(a[:i]), strings.Trim(a[i:], "<> ")
	}
	return a, ""
}

// Op publishes the directory of its [mkfs.Directory] premise. Abstract
// premises only have to be reached before.
type Op struct {
	Pub *Publisher
}

var _ mkcore.Operation = Op{}

func (op Op) Describe(*mkcore.Action, *mkcore.Env) string {
	return "gh-pages " + op.Pub.Remote
}

func (op Op) Do(tr *mkcore.Trace, a *mkcore.Action, _ *mkcore.Env) error {
	pres, err := mkcore.Goals(a.Premises(), true, mkcore.Tangible, mkcore.AType[mkfs.Directory])
	if err != nil {
		return err
	}
	if len(pres) != 1 {
		return errors.Errorf("gh-pages needs one premise directory, have %d", len(pres))
	}
	dir, err := a.Project().AbsPath(pres[0].Artefact.(mkfs.Directory).Path())
	if err != nil {
		return err
	}
	_, err = op.Pub.Publish(tr, dir)
	return err
}
