package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"git.fractalqb.de/fractalqb/testerr"
	"git.fractalqb.de/fractalqb/webmk/fontstyle"
	flag "github.com/spf13/pflag"
)

func TestLoad_missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), DefaultFile))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("expected ErrConfigNotFound, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("WEBMK_TEST_KEY", "k3y")
	path := filepath.Join(t.TempDir(), DefaultFile)
	testerr.Shall(os.WriteFile(path, []byte(`
app: public
fonts:
  dedup: adjacent
  weight: 500
images:
  tinypng-key: ${WEBMK_TEST_KEY}
html:
  context:
    site:
      title: Demo
deploy:
  remote: git@example.com:site.git
`), 0644)).BeNil(t)
	cfg := testerr.Shall1(Load(path)).BeNil(t)
	if cfg.Src != "src" || cfg.App != "public" {
		t.Errorf("dirs %s %s", cfg.Src, cfg.App)
	}
	if f := cfg.FontFragment(); f != "src/scss/fonts/module.scss" {
		t.Errorf("font fragment %s", f)
	}
	if d := cfg.FontDir(); d != "public/fonts" {
		t.Errorf("font dir %s", d)
	}
	if cfg.Images.TinyPNGKey != "k3y" {
		t.Errorf("key not expanded: %s", cfg.Images.TinyPNGKey)
	}
	if cfg.Deploy.Branch != "build" || cfg.Deploy.Remote != "git@example.com:site.git" {
		t.Errorf("deploy %+v", cfg.Deploy)
	}
	if site, ok := cfg.HTML.Context["site"].(map[string]any); !ok || site["title"] != "Demo" {
		t.Errorf("html context %v", cfg.HTML.Context)
	}
	gen := cfg.FontStyle()
	if gen.Dedup != fontstyle.DedupAdjacent || gen.Weight != 500 || gen.Mixin != "font-face" {
		t.Errorf("font style generator %+v", gen)
	}
}

func TestParse_fontPaths(t *testing.T) {
	cfg := testerr.Shall1(Parse([]byte("app: dist\nsrc: source\n"))).BeNil(t)
	if d := cfg.FontDir(); d != "dist/fonts" {
		t.Errorf("font dir %s", d)
	}
	if f := cfg.FontFragment(); f != "source/scss/fonts/module.scss" {
		t.Errorf("font fragment %s", f)
	}
	cfg = testerr.Shall1(Parse([]byte("fonts:\n  dir: static/fonts\n  fragment: scss/_fonts.scss\n"))).BeNil(t)
	if cfg.FontDir() != "static/fonts" || cfg.FontFragment() != "scss/_fonts.scss" {
		t.Errorf("explicit font paths ignored: %+v", cfg.Fonts)
	}
}

func TestParse_errors(t *testing.T) {
	for src, msg := range map[string]string{
		"bogus: 1\n":                         "bogus",
		"fonts:\n  dedup: sometimes\n":       "illegal font family dedup 'sometimes'",
		"fonts:\n  weight: 0\n":              "illegal font weight 0",
		"notify:\n  smtp:\n    addr: x:25\n": "SMTP notification needs",
	} {
		_, err := Parse([]byte(src))
		if err == nil || !strings.Contains(err.Error(), msg) {
			t.Errorf("%q: expected error with %q, got %v", src, msg, err)
		}
	}
}

func TestConfig_Flags(t *testing.T) {
	cfg := Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.Flags(fs)
	testerr.Shall(fs.Parse([]string{"--app", "out", "--font-dedup=adjacent", "--minify-html"})).BeNil(t)
	if cfg.App != "out" || cfg.Fonts.Dedup != "adjacent" || !cfg.HTML.Minify {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if cfg.Src != "src" {
		t.Errorf("src changed to %s", cfg.Src)
	}
}
