package styles

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"git.fractalqb.de/fractalqb/testerr"
	"git.fractalqb.de/fractalqb/webmk"
	"git.fractalqb.de/fractalqb/webmk/mkcore"
	"git.fractalqb.de/fractalqb/webmk/mkfs"
	"github.com/evanw/esbuild/pkg/api"
)

func TestParseEngines(t *testing.T) {
	es := testerr.Shall1(ParseEngines([]string{"chrome100", "Safari15.4"})).BeNil(t)
	if len(es) != 2 {
		t.Fatalf("parsed %d engines", len(es))
	}
	if es[0].Name != api.EngineChrome || es[0].Version != "100" {
		t.Errorf("unexpected engine %+v", es[0])
	}
	if es[1].Name != api.EngineSafari || es[1].Version != "15.4" {
		t.Errorf("unexpected engine %+v", es[1])
	}
	testerr.Shall1(ParseEngines([]string{"netscape4"})).
		Check(t, testerr.Msg("unknown engine 'netscape'"))
	testerr.Shall1(ParseEngines([]string{"100"})).
		Check(t, testerr.Msg("illegal engine '100'"))
}

func TestMinify(t *testing.T) {
	css := []byte("a {\n  color: #ff0000;\n}\n\n/* comment */\np {\n  margin: 0px;\n}\n")
	out := testerr.Shall1(Minify(css, "test.css", nil)).BeNil(t)
	s := string(out)
	if strings.Contains(s, "comment") || strings.Contains(s, "\n  ") {
		t.Errorf("not minified: %s", s)
	}
	if !strings.Contains(s, "color:red") {
		t.Errorf("color not minified: %s", s)
	}
}

func TestIsPartial(t *testing.T) {
	if !IsPartial("src/sass/_vars.scss") {
		t.Error("_vars.scss is no partial")
	}
	if IsPartial("src/sass/main.scss") {
		t.Error("main.scss is a partial")
	}
}

func TestCompile(t *testing.T) {
	if !webmk.HasTool("sass") {
		t.Skip("sass not installed")
	}
	prj := mkcore.NewProject(t.TempDir())
	sdir := filepath.Join(prj.Dir, "src", "sass")
	testerr.Shall(os.MkdirAll(sdir, 0777)).BeNil(t)
	testerr.Shall(os.WriteFile(filepath.Join(sdir, "_vars.scss"), []byte("$main: #ff0000;\n"), 0644)).BeNil(t)
	testerr.Shall(os.WriteFile(filepath.Join(sdir, "main.scss"),
		[]byte("@import 'vars';\nbody { a { color: $main; } }\n"), 0644)).BeNil(t)

	src := testerr.Shall1(prj.Goal(mkfs.DirTree{Dir: "src/sass", Filter: mkfs.NameMatch("*.scss")})).BeNil(t)
	css := testerr.Shall1(prj.Goal(mkfs.DirList{Dir: "app/css"})).BeNil(t)
	testerr.Shall1(prj.NewAction([]*mkcore.Goal{src}, []*mkcore.Goal{css}, &Compile{})).BeNil(t)

	tr := mkcore.NewTrace(context.Background(), mkcore.TestTracer{T: t})
	bd := testerr.Shall1(mkcore.NewBuilder(tr, &mkcore.Env{})).BeNil(t)
	testerr.Shall(bd.Project(prj)).BeNil(t)

	out := testerr.Shall1(os.ReadFile(filepath.Join(prj.Dir, "app/css/main.min.css"))).BeNil(t)
	if !strings.Contains(string(out), "body a{color:red}") {
		t.Errorf("unexpected css: %s", out)
	}
	if _, err := os.Stat(filepath.Join(prj.Dir, "app/css/_vars.min.css")); err == nil {
		t.Error("partial was compiled")
	}
}

type sourceMap struct {
	Sources []string `json:"sources"`
}

func readSourceMap(t *testing.T, path string) sourceMap {
	t.Helper()
	data := testerr.Shall1(os.ReadFile(path)).BeNil(t)
	var sm sourceMap
	testerr.Shall(json.Unmarshal(data, &sm)).BeNil(t)
	return sm
}

func hasSource(sm sourceMap, name string) bool {
	for _, s := range sm.Sources {
		if strings.HasSuffix(s, name) {
			return true
		}
	}
	return false
}

func TestMinifyFile_chainsSourceMap(t *testing.T) {
	tmp := t.TempDir()
	in := filepath.Join(tmp, "sass", "main.css")
	testerr.Shall(os.MkdirAll(filepath.Dir(in), 0777)).BeNil(t)
	testerr.Shall(os.WriteFile(in,
		[]byte("a {\n  color: #ff0000;\n}\n\n/*# sourceMappingURL=main.css.map */\n"),
		0644)).BeNil(t)
	testerr.Shall(os.WriteFile(in+".map", []byte(`{
  "version": 3,
  "sources": ["main.scss"],
  "sourcesContent": ["a {\n  color: #ff0000;\n}\n"],
  "names": [],
  "mappings": "AAAA;AACA;AACA"
}`), 0644)).BeNil(t)

	out := filepath.Join(tmp, "app", "css", "main.min.css")
	testerr.Shall1(MinifyFile(in, out, nil)).BeNil(t)
	css := string(testerr.Shall1(os.ReadFile(out)).BeNil(t))
	if !strings.Contains(css, "color:red") {
		t.Errorf("not minified: %s", css)
	}
	if !strings.Contains(css, "sourceMappingURL=main.min.css.map") {
		t.Errorf("no linked source map: %s", css)
	}
	if sm := readSourceMap(t, out+".map"); !hasSource(sm, "main.scss") {
		t.Errorf("source map sources %v", sm.Sources)
	}
}

func TestCompile_devSourceMap(t *testing.T) {
	if !webmk.HasTool("sass") {
		t.Skip("sass not installed")
	}
	prj := mkcore.NewProject(t.TempDir())
	sdir := filepath.Join(prj.Dir, "src", "scss")
	testerr.Shall(os.MkdirAll(sdir, 0777)).BeNil(t)
	testerr.Shall(os.WriteFile(filepath.Join(sdir, "main.scss"),
		[]byte("$main: #ff0000;\nbody { a { color: $main; } }\n"), 0644)).BeNil(t)

	src := testerr.Shall1(prj.Goal(mkfs.DirTree{Dir: "src/scss", Filter: mkfs.NameMatch("*.scss")})).BeNil(t)
	css := testerr.Shall1(prj.Goal(mkfs.DirList{Dir: "app/css"})).BeNil(t)
	testerr.Shall1(prj.NewAction([]*mkcore.Goal{src}, []*mkcore.Goal{css}, &Compile{Dev: true})).BeNil(t)

	tr := mkcore.NewTrace(context.Background(), mkcore.TestTracer{T: t})
	bd := testerr.Shall1(mkcore.NewBuilder(tr, &mkcore.Env{})).BeNil(t)
	testerr.Shall(bd.Project(prj)).BeNil(t)

	out := testerr.Shall1(os.ReadFile(filepath.Join(prj.Dir, "app/css/main.min.css"))).BeNil(t)
	if !strings.Contains(string(out), "sourceMappingURL=main.min.css.map") {
		t.Errorf("no linked source map: %s", out)
	}
	sm := readSourceMap(t, filepath.Join(prj.Dir, "app/css/main.min.css.map"))
	if !hasSource(sm, "main.scss") {
		t.Errorf("source map sources %v", sm.Sources)
	}
}
