// Package site defines the goals and actions that build a static site from
// the sources in the configured source directory.
//
//	src/index.html, src/html/**   -> app/*.html
//	src/js/main.js                -> app/js/main.js
//	src/fonts/*.ttf               -> app/fonts/*.woff{,2} -> src/scss/fonts/module.scss
//	src/img/*.{png,jpg,jpeg}      -> app/img/
//	src/img/*.svg                 -> app/img/sprite.svg
//	src/resource/**               -> app/
//	src/scss/**                   -> app/css/*.min.css
package site

import (
	"path"
	"strings"

	"git.fractalqb.de/fractalqb/webmk"
	"git.fractalqb.de/fractalqb/webmk/config"
	"git.fractalqb.de/fractalqb/webmk/devsrv"
	"git.fractalqb.de/fractalqb/webmk/fontstyle"
	"git.fractalqb.de/fractalqb/webmk/ghpages"
	"git.fractalqb.de/fractalqb/webmk/htmlinc"
	"git.fractalqb.de/fractalqb/webmk/mkcore"
	"git.fractalqb.de/fractalqb/webmk/mkfs"
	"git.fractalqb.de/fractalqb/webmk/scripts"
	"git.fractalqb.de/fractalqb/webmk/sprite"
	"git.fractalqb.de/fractalqb/webmk/styles"
	"git.fractalqb.de/fractalqb/webmk/tinypng"
	"git.fractalqb.de/fractalqb/webmk/woff"
)

type Mode int

const (
	// Dev builds with source maps and without image compression.
	Dev Mode = iota
	// Prod builds the site for deployment.
	Prod
)

// Goal returns the name of the goal that builds the whole site in mode m.
func (m Mode) Goal() string {
	if m == Prod {
		return "build"
	}
	return "default"
}

func (m Mode) String() string {
	if m == Prod {
		return "production"
	}
	return "development"
}

// Names of the abstract goals of a site.
const (
	GoalHTML      = "html"
	GoalScripts   = "scripts"
	GoalFonts     = "fonts"
	GoalFontStyle = "fontstyle"
	GoalImages    = "images"
	GoalSprite    = "sprite"
	GoalResource  = "resource"
	GoalAssets    = "assets"
	GoalStyles    = "styles"
	GoalDeploy    = "deploy"
)

// Define adds the site's goals to prj. The deploy goal is only defined when
// a deploy remote is configured. It publishes the site after building it.
func Define(prj *mkcore.Project, cfg *config.Config, mode Mode) error {
	src := func(p ...string) string { return path.Join(append([]string{cfg.Src}, p...)...) }
	app := func(p ...string) string { return path.Join(append([]string{cfg.App}, p...)...) }
	dev := mode == Dev

	inc := htmlinc.New(cfg.HTML.Prefix)
	inc.Minify = cfg.HTML.Minify && !dev
	var imgClient *tinypng.Client
	if !dev && cfg.Images.TinyPNGKey != "" {
		imgClient = tinypng.New(cfg.Images.TinyPNGKey)
		if cfg.Images.Endpoint != "" {
			imgClient.Endpoint = cfg.Images.Endpoint
		}
	}

	return webmk.Edit(prj, func(prj webmk.ProjectEd) {
		pages := prj.Goal(mkfs.DirList{Dir: cfg.App, Filter: mkfs.Ext{".html"}}).
			Removable().
			By(htmlinc.Pages{Inc: inc, Ctx: htmlinc.NewContext(cfg.HTML.Context)},
				prj.Goal(mkfs.DirList{Dir: cfg.Src, Filter: mkfs.Ext{".html"}}),
				prj.Goal(mkfs.DirTree{Dir: src("html")}),
			)
		html := prj.Goal(webmk.Abstract(GoalHTML)).ImpliedBy(pages)

		bundle := prj.Goal(mkfs.File(app("js", "main.js"))).
			Removable().
			By(scripts.Bundle{Dev: dev},
				prj.Goal(mkfs.File(src("js", "main.js"))),
				prj.Goal(mkfs.DirTree{Dir: src("js"), Filter: mkfs.Ext{".js", ".mjs"}}),
			)
		js := prj.Goal(webmk.Abstract(GoalScripts)).ImpliedBy(bundle)

		woffs := prj.Goal(mkfs.DirList{Dir: cfg.FontDir(), Filter: mkfs.Ext{".woff", ".woff2"}}).
			Removable().
			By(woff.Convert{},
				prj.Goal(mkfs.DirList{Dir: src("fonts"), Filter: mkfs.Ext{".ttf", ".otf"}}),
			)
		fonts := prj.Goal(webmk.Abstract(GoalFonts)).ImpliedBy(woffs)

		fragment := prj.Goal(mkfs.File(cfg.FontFragment())).
			By(fontstyle.Op{Gen: cfg.FontStyle()}, woffs)
		fontStyle := prj.Goal(webmk.Abstract(GoalFontStyle)).ImpliedBy(fragment)

		imgSrc := prj.Goal(mkfs.DirList{Dir: src("img")})
		imgs := prj.Goal(mkfs.DirList{Dir: app("img"), Filter: tinypng.Raster}).
			Removable().
			By(tinypng.Op{Client: imgClient}, imgSrc)
		images := prj.Goal(webmk.Abstract(GoalImages)).ImpliedBy(imgs)

		svgs := prj.Goal(mkfs.File(app("img", "sprite.svg"))).
			Removable().
			By(sprite.Op{}, imgSrc)
		spr := prj.Goal(webmk.Abstract(GoalSprite)).ImpliedBy(svgs)

		resSrc := mkfs.DirTree{Dir: src("resource")}
		res := prj.Goal(mkfs.Mirror{Orig: resSrc, Dest: cfg.App}).
			Removable().
			By(mkfs.Copy{MkDirMode: 0777}, prj.Goal(resSrc))
		resource := prj.Goal(webmk.Abstract(GoalResource)).ImpliedBy(res)

		assets := prj.Goal(webmk.Abstract(GoalAssets)).
			SetUpdateMode(webmk.UpdUnordered).
			ImpliedBy(html, js, fonts, images, spr, resource)

		css := prj.Goal(mkfs.DirList{Dir: app("css"), Filter: mkfs.Ext{".css", ".map"}}).
			Removable().
			By(&styles.Compile{Sass: cfg.Styles.Sass, Engines: cfg.Styles.Engines, Dev: dev},
				prj.Goal(mkfs.DirTree{Dir: src("scss"), Filter: mkfs.Ext{".scss", ".sass"}}),
				fragment,
			)
		stl := prj.Goal(webmk.Abstract(GoalStyles)).ImpliedBy(css)

		all := prj.Goal(webmk.Abstract(mode.Goal())).ImpliedBy(assets, fontStyle, stl)

		if cfg.Deploy.Remote != "" {
			prj.Goal(webmk.Abstract(GoalDeploy)).By(
				ghpages.Op{Pub: &ghpages.Publisher{
					Remote:  cfg.Deploy.Remote,
					Branch:  cfg.Deploy.Branch,
					Message: cfg.Deploy.Message,
					Author:  cfg.Deploy.Author,
				}},
				res, all,
			)
		}
	})
}

// ReloadKind tells browsers to only reload styles when nothing but style
// sources changed.
func ReloadKind(cfg *config.Config, changed []*mkcore.Goal) string {
	scss := path.Join(cfg.Src, "scss") + "/"
	if len(changed) == 0 {
		return devsrv.MsgReload
	}
	for _, g := range changed {
		if !strings.HasPrefix(g.Name(), scss) {
			return devsrv.MsgReload
		}
	}
	return devsrv.MsgCSS
}

// Goals lists the names of the goals a user can build in mode m.
func Goals(cfg *config.Config, m Mode) []string {
	gs := []string{
		GoalHTML, GoalScripts, GoalFonts, GoalFontStyle, GoalImages,
		GoalSprite, GoalResource, GoalAssets, GoalStyles, m.Goal(),
	}
	if cfg.Deploy.Remote != "" {
		gs = append(gs, GoalDeploy)
	}
	return gs
}
