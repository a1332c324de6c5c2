// Package scripts bundles the JavaScript entry point of a site with esbuild.
package scripts

import (
	"errors"
	"fmt"
	"strings"

	"git.fractalqb.de/fractalqb/webmk/mkcore"
	"git.fractalqb.de/fractalqb/webmk/mkfs"
	"github.com/evanw/esbuild/pkg/api"
)

// Bundle bundles the [mkfs.File] premise into the [mkfs.File] result. Other
// premises, e.g. the source directory, only trigger rebuilds.
type Bundle struct {
	// Target defaults to ES2015
	Target api.Target
	// Dev writes a linked source map and does not minify.
	Dev bool
}

var _ mkcore.Operation = Bundle{}

func (Bundle) Describe(*mkcore.Action, *mkcore.Env) string { return "bundle scripts" }

func (b Bundle) Do(tr *mkcore.Trace, a *mkcore.Action, _ *mkcore.Env) error {
	entries, err := mkcore.Goals(a.Premises(), false, mkcore.AType[mkfs.File])
	if err != nil {
		return err
	}
	outs, err := mkcore.Goals(a.Results(), true, mkcore.AType[mkfs.File])
	if err != nil {
		return err
	}
	if len(entries) != 1 || len(outs) != 1 {
		return errors.New("script bundle needs one entry file and one result file")
	}
	prj := a.Project()
	entry, err := prj.AbsPath(entries[0].Artefact.(mkfs.File).Path())
	if err != nil {
		return err
	}
	out, err := prj.AbsPath(outs[0].Artefact.(mkfs.File).Path())
	if err != nil {
		return err
	}
	warns, err := b.Build(entry, out)
	for _, w := range warns {
		tr.Warn("esbuild: `warning`", `warning`, w)
	}
	return err
}

// Build bundles the entry file into the out file. It returns esbuild's
// formatted warnings.
func (b Bundle) Build(entry, out string) (warnings []string, err error) {
	opts := api.BuildOptions{
		EntryPoints: []string{entry},
		Outfile:     out,
		Bundle:      true,
		Write:       true,
		Target:      b.Target,
		LogLevel:    api.LogLevelSilent,
	}
	if opts.Target == api.DefaultTarget {
		opts.Target = api.ES2015
	}
	if b.Dev {
		opts.Sourcemap = api.SourceMapLinked
	} else {
		opts.MinifyWhitespace = true
		opts.MinifyIdentifiers = true
		opts.MinifySyntax = true
	}
	res := api.Build(opts)
	if len(res.Warnings) > 0 {
		warnings = api.FormatMessages(res.Warnings, api.FormatMessagesOptions{
			Kind: api.WarningMessage,
		})
	}
	if len(res.Errors) > 0 {
		msgs := api.FormatMessages(res.Errors, api.FormatMessagesOptions{
			Kind: api.ErrorMessage,
		})
		return warnings, fmt.Errorf("bundle %s: %s", entry, strings.TrimSpace(strings.Join(msgs, "")))
	}
	return warnings, nil
}
