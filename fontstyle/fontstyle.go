// Package fontstyle generates the stylesheet fragment that declares the web
// fonts of a site. Each distinct font family found in the font directory gets
// one block
//
//	@import 'fonts';
//	@include font-face("Roboto", "Roboto", 400);
//
// The family is the part of a file name before its first '.', i.e. the files
// Roboto.woff and Roboto.woff2 both belong to family Roboto.
package fontstyle

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"git.fractalqb.de/fractalqb/webmk/mkfs"
)

// Dedup selects how repeated families are detected.
type Dedup int

const (
	// DedupSet emits each family once, in the order of first appearance.
	DedupSet Dedup = iota

	// DedupAdjacent only compares a family with the family of the previous
	// entry. Listings with non-contiguous families yield duplicate blocks.
	DedupAdjacent
)

func (d Dedup) String() string {
	switch d {
	case DedupSet:
		return "set"
	case DedupAdjacent:
		return "adjacent"
	}
	return fmt.Sprintf("Dedup(%d)", int(d))
}

// ParseDedup parses the names returned by [Dedup.String].
func ParseDedup(s string) (Dedup, error) {
	switch s {
	case "", "set":
		return DedupSet, nil
	case "adjacent":
		return DedupAdjacent, nil
	}
	return DedupSet, fmt.Errorf("illegal font family dedup '%s'", s)
}

type Status int

const (
	// Generated means that at least one family was written.
	Generated Status = iota
	// EmptyDir means that the font directory has no font files.
	EmptyDir
	// NoDir means that the font directory does not exist.
	NoDir
)

func (s Status) String() string {
	switch s {
	case Generated:
		return "generated"
	case EmptyDir:
		return "empty directory"
	case NoDir:
		return "no directory"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

type Result struct {
	Status   Status
	Families []string
}

// Generator renders the font fragment. The zero value is not useful; use
// [New] or set all fields.
type Generator struct {
	// Import is the stylesheet module imported by each block.
	Import string
	// Mixin is the name of the included mixin.
	Mixin  string
	Weight int
	Dedup  Dedup
}

// New returns the generator with the standard settings.
func New() *Generator {
	return &Generator{
		Import: "fonts",
		Mixin:  "font-face",
		Weight: 400,
		Dedup:  DedupSet,
	}
}

// Family returns the font family of a font file name. Names starting with '.'
// have the empty family.
func Family(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}

// Families returns the families of the listing names in the order of the
// listing. Names with empty family are skipped.
func (g *Generator) Families(names []string) []string {
	var fams []string
	switch g.Dedup {
	case DedupAdjacent:
		last := ""
		for _, n := range names {
			fam := Family(n)
			if fam == "" || fam == last {
				continue
			}
			fams = append(fams, fam)
			last = fam
		}
	default:
		seen := make(map[string]bool)
		for _, n := range names {
			fam := Family(n)
			if fam == "" || seen[fam] {
				continue
			}
			fams = append(fams, fam)
			seen[fam] = true
		}
	}
	return fams
}

// Fragment renders the fragment text for a directory listing.
func (g *Generator) Fragment(names []string) []byte {
	var buf bytes.Buffer
	g.render(&buf, g.Families(names))
	return buf.Bytes()
}

func (g *Generator) render(buf *bytes.Buffer, fams []string) {
	for _, fam := range fams {
		fmt.Fprintf(buf, "@import '%s';\n", g.Import)
		fmt.Fprintf(buf, "@include %s(%q, %q, %d);\n", g.Mixin, fam, fam, g.Weight)
	}
}

// Generate lists fontDir and replaces the content of the fragment file in one
// atomic step. A missing fontDir is no error; the fragment is emptied and the
// result has status [NoDir].
func (g *Generator) Generate(fontDir, fragment string) (res Result, err error) {
	names, err := listFonts(fontDir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		res.Status = NoDir
	case err != nil:
		return res, fmt.Errorf("list font dir: %w", err)
	}
	res.Families = g.Families(names)
	var buf bytes.Buffer
	g.render(&buf, res.Families)
	if res.Status != NoDir && len(res.Families) == 0 {
		res.Status = EmptyDir
	}
	if err = mkfs.WriteFile(fragment, buf.Bytes(), 0644); err != nil {
		return res, fmt.Errorf("write font fragment: %w", err)
	}
	return res, nil
}

func listFonts(dir string) (names []string, err error) {
	es, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, e := range es {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
