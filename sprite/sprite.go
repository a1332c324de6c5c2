// Package sprite packs SVG icons into one stack sprite. Each icon becomes a
// nested <svg> element with the icon's name as id. Only the icon referenced
// by the URL fragment is displayed, e.g. sprite.svg#menu.
package sprite

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"git.fractalqb.de/fractalqb/webmk/mkcore"
	"git.fractalqb.de/fractalqb/webmk/mkfs"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/svg"
)

const stackStyle = `:root>svg{display:none}:root>svg:target{display:inline}`

type Icon struct {
	ID      string
	ViewBox string
	Inner   []byte
}

type svgDoc struct {
	XMLName xml.Name `xml:"svg"`
	ViewBox string   `xml:"viewBox,attr"`
	Width   string   `xml:"width,attr"`
	Height  string   `xml:"height,attr"`
	Inner   []byte   `xml:",innerxml"`
}

// ParseIcon reads an SVG document. The viewBox is derived from width and
// height when the document has none.
func ParseIcon(id string, data []byte) (*Icon, error) {
	var doc svgDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("icon %s: %w", id, err)
	}
	icon := &Icon{
		ID:      id,
		ViewBox: doc.ViewBox,
		Inner:   bytes.TrimSpace(doc.Inner),
	}
	if icon.ViewBox == "" && doc.Width != "" && doc.Height != "" {
		icon.ViewBox = fmt.Sprintf("0 0 %s %s",
			strings.TrimSuffix(doc.Width, "px"),
			strings.TrimSuffix(doc.Height, "px"),
		)
	}
	return icon, nil
}

// IconID is the file name without extension.
func IconID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Stack renders the icons, sorted by id, into a stack sprite.
func Stack(icons []*Icon) []byte {
	icons = slices.Clone(icons)
	slices.SortFunc(icons, func(a, b *Icon) int { return strings.Compare(a.ID, b.ID) })
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	buf.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink">`)
	buf.WriteString("<style>" + stackStyle + "</style>\n")
	for _, icon := range icons {
		buf.WriteString(`<svg id="`)
		xml.EscapeText(&buf, []byte(icon.ID))
		buf.WriteByte('"')
		if icon.ViewBox != "" {
			buf.WriteString(` viewBox="`)
			xml.EscapeText(&buf, []byte(icon.ViewBox))
			buf.WriteByte('"')
		}
		buf.WriteByte('>')
		buf.Write(icon.Inner)
		buf.WriteString("</svg>\n")
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

// Minify minifies an SVG document.
func Minify(data []byte) ([]byte, error) {
	m := minify.New()
	m.AddFunc("image/svg+xml", svg.Minify)
	return m.Bytes("image/svg+xml", data)
}

// Op packs the *.svg files of its [mkfs.Directory] premises into its
// [mkfs.File] result.
type Op struct {
	// NoMinify keeps the sprite readable.
	NoMinify bool
}

var _ mkcore.Operation = Op{}

func (Op) Describe(*mkcore.Action, *mkcore.Env) string { return "SVG sprite" }

func (op Op) Do(tr *mkcore.Trace, a *mkcore.Action, _ *mkcore.Env) error {
	res, err := mkcore.Goals(a.Results(), true, mkcore.AType[mkfs.File])
	if err != nil {
		return err
	}
	if len(res) != 1 {
		return fmt.Errorf("sprite needs one result file, have %d", len(res))
	}
	prj := a.Project()
	target, err := prj.AbsPath(res[0].Artefact.(mkfs.File).Path())
	if err != nil {
		return err
	}
	var icons []*Icon
	for _, pre := range a.Premises() {
		dir, ok := pre.Artefact.(mkfs.Directory)
		if !ok {
			return fmt.Errorf("sprite premise %s is no directory", pre)
		}
		ls, err := dir.List(prj)
		if err != nil {
			return err
		}
		for _, p := range ls {
			if !strings.EqualFold(filepath.Ext(p), ".svg") {
				continue
			}
			path, err := prj.AbsPath(p)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			icon, err := ParseIcon(IconID(p), data)
			if err != nil {
				return err
			}
			icons = append(icons, icon)
		}
	}
	data := Stack(icons)
	if !op.NoMinify {
		if data, err = Minify(data); err != nil {
			return fmt.Errorf("minify sprite: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(target), 0777); err != nil {
		return err
	}
	tr.Info("write sprite `file` with `icons`", `file`, target, `icons`, len(icons))
	return mkfs.WriteFile(target, data, 0644)
}
