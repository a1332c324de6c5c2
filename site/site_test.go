package site

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"git.fractalqb.de/fractalqb/testerr"
	"git.fractalqb.de/fractalqb/webmk/config"
	"git.fractalqb.de/fractalqb/webmk/devsrv"
	"git.fractalqb.de/fractalqb/webmk/mkcore"
)

func writeSite(t *testing.T, dir string) {
	for n, s := range map[string]string{
		"src/index.html":          "<body>@include('html/_nav.html', {\"home\": \"/\"})</body>",
		"src/html/_nav.html":      `<a href="@home">@site.title</a>`,
		"src/js/main.js":          "import {n} from './n.js';\nconsole.log(n);\n",
		"src/js/n.js":             "export const n = 42;\n",
		"src/img/logo.svg":        `<svg viewBox="0 0 1 1"><rect width="1" height="1"/></svg>`,
		"src/img/photo.png":       "png",
		"src/resource/robots.txt": "User-agent: *\n",
	} {
		p := filepath.Join(dir, filepath.FromSlash(n))
		testerr.Shall(os.MkdirAll(filepath.Dir(p), 0777)).BeNil(t)
		testerr.Shall(os.WriteFile(p, []byte(s), 0644)).BeNil(t)
	}
}

func TestDefine(t *testing.T) {
	prj := mkcore.NewProject(t.TempDir())
	writeSite(t, prj.Dir)
	cfg := config.Default()
	cfg.Fonts.Fragment = "src/scss/fonts/_fonts.scss"
	cfg.HTML.Context = map[string]any{"site": map[string]any{"title": "Demo"}}
	testerr.Shall(Define(prj, cfg, Dev)).BeNil(t)

	for _, n := range Goals(cfg, Dev) {
		if prj.FindGoal(n) == nil {
			t.Errorf("missing goal %s", n)
		}
	}
	if prj.FindGoal(GoalDeploy) != nil {
		t.Error("deploy goal without remote")
	}

	tr := mkcore.NewTrace(context.Background(), mkcore.TestTracer{T: t})
	bd := testerr.Shall1(mkcore.NewBuilder(tr, &mkcore.Env{})).BeNil(t)
	testerr.Shall(bd.NamedGoals(prj, Dev.Goal())).BeNil(t)

	page := testerr.Shall1(os.ReadFile(filepath.Join(prj.Dir, "app/index.html"))).BeNil(t)
	if s := string(page); s != `<body><a href="/">Demo</a></body>` {
		t.Errorf("page %q", s)
	}
	for _, f := range []string{
		"app/js/main.js",
		"app/img/photo.png",
		"app/img/sprite.svg",
		"app/robots.txt",
		"src/scss/fonts/_fonts.scss",
	} {
		testerr.Shall1(os.Stat(filepath.Join(prj.Dir, filepath.FromSlash(f)))).BeNil(t)
	}
	if _, err := os.Stat(filepath.Join(prj.Dir, "app/img/logo.svg")); !os.IsNotExist(err) {
		t.Errorf("svg icon copied as image: %v", err)
	}

	testerr.Shall(mkcore.Clean(prj, false, tr)).BeNil(t)
	if _, err := os.Stat(filepath.Join(prj.Dir, "app/index.html")); !os.IsNotExist(err) {
		t.Errorf("clean left page: %v", err)
	}
	testerr.Shall1(os.Stat(filepath.Join(prj.Dir, "src/index.html"))).BeNil(t)
}

func TestDefine_resourceAfterHTML(t *testing.T) {
	prj := mkcore.NewProject(t.TempDir())
	writeSite(t, prj.Dir)
	cfg := config.Default()
	cfg.HTML.Context = map[string]any{"site": map[string]any{"title": "Demo"}}
	testerr.Shall(Define(prj, cfg, Dev)).BeNil(t)

	tr := mkcore.NewTrace(context.Background(), mkcore.TestTracer{T: t})
	bd := testerr.Shall1(mkcore.NewBuilder(tr, &mkcore.Env{})).BeNil(t)
	testerr.Shall(bd.NamedGoals(prj, GoalHTML)).BeNil(t)
	testerr.Shall1(os.Stat(filepath.Join(prj.Dir, "app/index.html"))).BeNil(t)

	bd = testerr.Shall1(mkcore.NewBuilder(tr, &mkcore.Env{})).BeNil(t)
	testerr.Shall(bd.NamedGoals(prj, GoalResource)).BeNil(t)
	testerr.Shall1(os.Stat(filepath.Join(prj.Dir, "app/robots.txt"))).BeNil(t)
}

func TestDefine_fontPaths(t *testing.T) {
	cfg := testerr.Shall1(config.Parse([]byte("app: dist\nsrc: source\n"))).BeNil(t)
	prj := mkcore.NewProject(t.TempDir())
	testerr.Shall(Define(prj, cfg, Dev)).BeNil(t)
	for _, n := range []string{"dist/fonts/", "source/scss/fonts/module.scss", "dist/**"} {
		if prj.FindGoal(n) == nil {
			t.Errorf("no goal %s", n)
		}
	}
	if prj.FindGoal("app/fonts/") != nil {
		t.Error("fonts still go to app/fonts")
	}
}

func TestGoals_deploy(t *testing.T) {
	cfg := config.Default()
	cfg.Deploy.Remote = "git@example.com:site.git"
	gs := Goals(cfg, Prod)
	if !slices.Contains(gs, "build") || !slices.Contains(gs, GoalDeploy) {
		t.Errorf("goals %v", gs)
	}
	prj := mkcore.NewProject(t.TempDir())
	testerr.Shall(Define(prj, cfg, Prod)).BeNil(t)
	deploy := prj.FindGoal(GoalDeploy)
	if deploy == nil {
		t.Fatal("no deploy goal")
	}
	var pres []string
	for _, pre := range deploy.PreAction(0).Premises() {
		pres = append(pres, pre.Name())
	}
	if !slices.Contains(pres, "build") || !slices.Contains(pres, "app/**") {
		t.Errorf("deploy premises %v", pres)
	}
}

func TestReloadKind(t *testing.T) {
	prj := mkcore.NewProject(t.TempDir())
	cfg := config.Default()
	testerr.Shall(Define(prj, cfg, Dev)).BeNil(t)
	scss := prj.FindGoal("src/scss/**")
	html := prj.FindGoal("src/")
	if scss == nil || html == nil {
		t.Fatal("missing source goals")
	}
	if k := ReloadKind(cfg, []*mkcore.Goal{scss}); k != devsrv.MsgCSS {
		t.Errorf("scss change: %s", k)
	}
	if k := ReloadKind(cfg, []*mkcore.Goal{scss, html}); k != devsrv.MsgReload {
		t.Errorf("mixed change: %s", k)
	}
}
