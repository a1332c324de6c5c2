package woff

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"git.fractalqb.de/fractalqb/webmk/mkcore"
	"git.fractalqb.de/fractalqb/webmk/mkfs"
)

type Format int

const (
	WOFF Format = 1 << iota
	WOFF2
)

func (f Format) Ext() string {
	switch f {
	case WOFF:
		return ".woff"
	case WOFF2:
		return ".woff2"
	}
	return ""
}

// Encode encodes f into format.
func Encode(f *SFNT, format Format) ([]byte, error) {
	switch format {
	case WOFF:
		return EncodeWOFF(f)
	case WOFF2:
		return EncodeWOFF2(f)
	}
	return nil, fmt.Errorf("illegal web font format %d", format)
}

// ConvertFile writes the font file src in all formats into dir. The output
// files have the base name of src with the format's extension.
func ConvertFile(src, dir string, formats Format) (written []string, err error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, err
	}
	font, err := ParseSFNT(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}
	base := filepath.Base(src)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	for _, format := range []Format{WOFF, WOFF2} {
		if formats&format == 0 {
			continue
		}
		out, err := Encode(font, format)
		if err != nil {
			return written, fmt.Errorf("%s to %s: %w", src, format.Ext(), err)
		}
		dst := filepath.Join(dir, base+format.Ext())
		if err = mkfs.WriteFile(dst, out, 0644); err != nil {
			return written, err
		}
		written = append(written, dst)
	}
	return written, nil
}

// Convert is the operation that converts all font files of its directory
// premises into the directory of its result. Without Formats, both WOFF
// formats are written.
type Convert struct {
	Formats Format
}

var _ mkcore.Operation = Convert{}

func (Convert) Describe(*mkcore.Action, *mkcore.Env) string { return "convert fonts to WOFF" }

func (c Convert) Do(tr *mkcore.Trace, a *mkcore.Action, _ *mkcore.Env) error {
	formats := c.Formats
	if formats == 0 {
		formats = WOFF | WOFF2
	}
	res, err := mkcore.Goals(a.Results(), true, mkcore.AType[mkfs.DirList])
	if err != nil {
		return err
	}
	if len(res) != 1 {
		return fmt.Errorf("font conversion needs one result directory, have %d", len(res))
	}
	prj := a.Project()
	dst, err := prj.AbsPath(res[0].Artefact.(mkfs.DirList).Path())
	if err != nil {
		return err
	}
	srcDirs, err := mkcore.Goals(a.Premises(), false, mkcore.Tangible, mkcore.AType[mkfs.Directory])
	if err != nil {
		return err
	}
	for _, g := range srcDirs {
		ls, err := g.Artefact.(mkfs.Directory).List(prj)
		if err != nil {
			return err
		}
		for _, src := range ls {
			srcPath, err := prj.AbsPath(src)
			if err != nil {
				return err
			}
			ws, err := ConvertFile(srcPath, dst, formats)
			if err != nil {
				return err
			}
			tr.Debug("converted `font` to `files`", `font`, src, `files`, ws)
		}
	}
	return nil
}
