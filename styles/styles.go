// Package styles compiles the SCSS sources of a site into minified CSS. SCSS
// is compiled by the external sass tool. Minification and vendor prefixes for
// the target browsers are done with esbuild.
package styles

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"git.fractalqb.de/fractalqb/webmk"
	"git.fractalqb.de/fractalqb/webmk/mkcore"
	"git.fractalqb.de/fractalqb/webmk/mkfs"
	"github.com/evanw/esbuild/pkg/api"
)

// DefaultEngines are the browsers that get vendor prefixes.
var DefaultEngines = []string{"chrome100", "edge100", "firefox100", "safari14", "ios14"}

var engineNames = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"ios":     api.EngineIOS,
	"opera":   api.EngineOpera,
	"safari":  api.EngineSafari,
}

var engineRegexp = regexp.MustCompile(`^([a-z]+)([0-9][0-9.]*)$`)

// ParseEngines parses engine specs like "chrome100" or "safari15.4".
func ParseEngines(specs []string) ([]api.Engine, error) {
	es := make([]api.Engine, 0, len(specs))
	for _, spec := range specs {
		m := engineRegexp.FindStringSubmatch(strings.ToLower(spec))
		if m == nil {
			return nil, fmt.Errorf("illegal engine '%s'", spec)
		}
		name, ok := engineNames[m[1]]
		if !ok {
			return nil, fmt.Errorf("unknown engine '%s'", m[1])
		}
		es = append(es, api.Engine{Name: name, Version: m[2]})
	}
	return es, nil
}

// Minify minifies and prefixes css. The name is used in messages.
func Minify(css []byte, name string, engines []api.Engine) ([]byte, error) {
	res := api.Transform(string(css), api.TransformOptions{
		Loader:            api.LoaderCSS,
		Sourcefile:        name,
		MinifyWhitespace:  true,
		MinifySyntax:      true,
		MinifyIdentifiers: true,
		Engines:           engines,
	})
	if len(res.Errors) > 0 {
		return nil, messagesError(res.Errors)
	}
	return res.Code, nil
}

// MinifyFile minifies and prefixes the CSS file in and writes it to out with
// the linked source map out+".map". A source map referenced by in is chained
// into the written map.
func MinifyFile(in, out string, engines []api.Engine) (warnings []string, err error) {
	res := api.Build(api.BuildOptions{
		EntryPoints:       []string{in},
		Outfile:           out,
		Loader:            map[string]api.Loader{".css": api.LoaderCSS},
		MinifyWhitespace:  true,
		MinifySyntax:      true,
		MinifyIdentifiers: true,
		Engines:           engines,
		Sourcemap:         api.SourceMapLinked,
		Write:             true,
		LogLevel:          api.LogLevelSilent,
	})
	if len(res.Warnings) > 0 {
		warnings = api.FormatMessages(res.Warnings, api.FormatMessagesOptions{
			Kind: api.WarningMessage,
		})
	}
	if len(res.Errors) > 0 {
		return warnings, messagesError(res.Errors)
	}
	return warnings, nil
}

func messagesError(msgs []api.Message) error {
	fmsgs := api.FormatMessages(msgs, api.FormatMessagesOptions{
		Kind: api.ErrorMessage,
	})
	return errors.New(strings.TrimSpace(strings.Join(fmsgs, "")))
}

// IsPartial reports if the SCSS file is only included by other files.
func IsPartial(path string) bool {
	return strings.HasPrefix(filepath.Base(path), "_")
}

// Compile is the operation that compiles each non-partial SCSS file of its
// directory premises into <name>.min.css in its result directory.
type Compile struct {
	// Sass is the sass executable, default "sass".
	Sass    string
	Engines []string
	// Dev writes <name>.min.css.map source maps that lead back to the SCSS
	// sources.
	Dev bool
}

var _ mkcore.Operation = (*Compile)(nil)

func (*Compile) Describe(*mkcore.Action, *mkcore.Env) string { return "compile styles" }

func (c *Compile) Do(tr *mkcore.Trace, a *mkcore.Action, env *mkcore.Env) error {
	engines := c.Engines
	if len(engines) == 0 {
		engines = DefaultEngines
	}
	es, err := ParseEngines(engines)
	if err != nil {
		return err
	}
	res, err := mkcore.Goals(a.Results(), true, mkcore.AType[mkfs.DirList])
	if err != nil {
		return err
	}
	if len(res) != 1 {
		return fmt.Errorf("styles need one result directory, have %d", len(res))
	}
	prj := a.Project()
	dst, err := prj.AbsPath(res[0].Artefact.(mkfs.DirList).Path())
	if err != nil {
		return err
	}
	srcs, err := mkcore.Goals(a.Premises(), false, mkcore.AType[mkfs.DirTree])
	if err != nil {
		return err
	}
	tmp, err := os.MkdirTemp("", "webmk-styles-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)
	for _, src := range srcs {
		ls, err := src.Artefact.(mkfs.DirTree).List(prj)
		if err != nil {
			return err
		}
		for _, scss := range ls {
			if IsPartial(scss) {
				continue
			}
			if err := c.compile(tr, a, env, scss, tmp, dst, es); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Compile) compile(
	tr *mkcore.Trace,
	a *mkcore.Action,
	env *mkcore.Env,
	scss, tmp, dst string,
	es []api.Engine,
) error {
	prj := a.Project()
	in, err := prj.AbsPath(scss)
	if err != nil {
		return err
	}
	name := strings.TrimSuffix(filepath.Base(scss), filepath.Ext(scss))
	css := filepath.Join(tmp, name+".css")
	sass := c.Sass
	if sass == "" {
		sass = "sass"
	}
	args := []string{"--no-source-map", "--style=expanded", in, css}
	if c.Dev {
		args = []string{"--source-map", "--embed-sources", "--style=expanded", in, css}
	}
	cmd := &webmk.CmdOp{
		CWD:  prj.Dir,
		Exe:  sass,
		Args: args,
		Desc: "sass " + scss,
	}
	if err := cmd.Do(tr, a, env); err != nil {
		return err
	}
	target := filepath.Join(dst, name+".min.css")
	if c.Dev {
		tr.Debug("write `css` with source map", `css`, target)
		warns, err := MinifyFile(css, target, es)
		for _, w := range warns {
			tr.Warn("minify `scss`: `warning`", `scss`, scss, `warning`, strings.TrimSpace(w))
		}
		if err != nil {
			return fmt.Errorf("minify %s: %w", scss, err)
		}
		return nil
	}
	data, err := os.ReadFile(css)
	if err != nil {
		return err
	}
	out, err := Minify(data, scss, es)
	if err != nil {
		return fmt.Errorf("minify %s: %w", scss, err)
	}
	tr.Debug("write `css`", `css`, target)
	return mkfs.WriteFile(target, out, 0644)
}
