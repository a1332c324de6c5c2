// Package config loads the site configuration from webmk.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"

	"git.fractalqb.de/fractalqb/webmk/fontstyle"
	"github.com/goccy/go-yaml"
	flag "github.com/spf13/pflag"
)

const DefaultFile = "webmk.yaml"

var ErrConfigNotFound = errors.New("config file not found")

type Config struct {
	Src string `yaml:"src"`
	App string `yaml:"app"`

	Fonts  Fonts  `yaml:"fonts"`
	Styles Styles `yaml:"styles"`
	HTML   HTML   `yaml:"html"`
	Images Images `yaml:"images"`
	Serve  Serve  `yaml:"serve"`
	Deploy Deploy `yaml:"deploy"`
	Notify Notify `yaml:"notify"`
}

type Fonts struct {
	// Fragment is the generated SCSS file, relative to the project. Empty
	// means <src>/scss/fonts/module.scss.
	Fragment string `yaml:"fragment"`
	// Dir is the directory of the converted fonts, relative to the project.
	// Empty means <app>/fonts.
	Dir    string `yaml:"dir"`
	Import string `yaml:"import"`
	Mixin  string `yaml:"mixin"`
	Weight int    `yaml:"weight"`
	Dedup  string `yaml:"dedup"`
}

type Styles struct {
	Sass    string   `yaml:"sass"`
	Engines []string `yaml:"engines"`
}

type HTML struct {
	Prefix  string         `yaml:"prefix"`
	Minify  bool           `yaml:"minify"`
	Context map[string]any `yaml:"context"`
}

type Images struct {
	TinyPNGKey string `yaml:"tinypng-key"`
	Endpoint   string `yaml:"tinypng-endpoint"`
}

type Serve struct {
	Addr string `yaml:"addr"`
}

type Deploy struct {
	Remote  string `yaml:"remote"`
	Branch  string `yaml:"branch"`
	Message string `yaml:"message"`
	Author  string `yaml:"author"`
}

type Notify struct {
	SMTP *SMTP `yaml:"smtp"`
}

type SMTP struct {
	Addr     string   `yaml:"addr"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
	Auth     string   `yaml:"auth"`
	User     string   `yaml:"user"`
	Password string   `yaml:"password"`
}

// Default returns the configuration for the classic layout with sources in
// src/ and the site in app/.
func Default() *Config {
	return &Config{
		Src: "src",
		App: "app",
		Fonts: Fonts{
			Import: "fonts",
			Mixin:  "font-face",
			Weight: 400,
			Dedup:  fontstyle.DedupSet.String(),
		},
		Styles: Styles{Sass: "sass"},
		HTML:   HTML{Prefix: "@"},
		Serve:  Serve{Addr: ":3000"},
		Deploy: Deploy{Branch: "build"},
	}
}

// Load reads the configuration file on top of the defaults. Unknown keys are
// errors. If the file does not exist, the returned error is
// [ErrConfigNotFound].
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	case err != nil:
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalWithOptions(data, cfg, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.expandSecrets()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandSecrets replaces ${VAR} in the fields that usually hold credentials.
func (cfg *Config) expandSecrets() {
	cfg.Images.TinyPNGKey = os.ExpandEnv(cfg.Images.TinyPNGKey)
	if s := cfg.Notify.SMTP; s != nil {
		s.User = os.ExpandEnv(s.User)
		s.Password = os.ExpandEnv(s.Password)
	}
}

func (cfg *Config) Validate() error {
	if cfg.Src == "" || cfg.App == "" {
		return errors.New("config: src and app directories must be set")
	}
	if cfg.Fonts.Weight <= 0 {
		return fmt.Errorf("config: illegal font weight %d", cfg.Fonts.Weight)
	}
	if _, err := fontstyle.ParseDedup(cfg.Fonts.Dedup); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if s := cfg.Notify.SMTP; s != nil && (s.Addr == "" || s.From == "" || len(s.To) == 0) {
		return errors.New("config: SMTP notification needs addr, from and to")
	}
	return nil
}

// FontDir returns the directory of the converted fonts.
func (cfg *Config) FontDir() string {
	if cfg.Fonts.Dir != "" {
		return cfg.Fonts.Dir
	}
	return path.Join(cfg.App, "fonts")
}

// FontFragment returns the path of the generated font style fragment.
func (cfg *Config) FontFragment() string {
	if cfg.Fonts.Fragment != "" {
		return cfg.Fonts.Fragment
	}
	return path.Join(cfg.Src, "scss", "fonts", "module.scss")
}

// FontStyle returns the fragment generator for the font settings.
func (cfg *Config) FontStyle() *fontstyle.Generator {
	gen := fontstyle.New()
	gen.Import = cfg.Fonts.Import
	gen.Mixin = cfg.Fonts.Mixin
	gen.Weight = cfg.Fonts.Weight
	gen.Dedup, _ = fontstyle.ParseDedup(cfg.Fonts.Dedup)
	return gen
}

// Flags binds command line flags to cfg. Flags are parsed after loading the
// file, so they override it.
func (cfg *Config) Flags(fs *flag.FlagSet) {
	fs.StringVar(&cfg.Src, "src", cfg.Src, "Source directory")
	fs.StringVar(&cfg.App, "app", cfg.App, "Site directory")
	fs.StringVar(&cfg.Serve.Addr, "addr", cfg.Serve.Addr, "Listen address of the development server")
	fs.StringVar(&cfg.Images.TinyPNGKey, "tinypng-key", cfg.Images.TinyPNGKey, "TinyPNG API key")
	fs.StringVar(&cfg.Deploy.Remote, "remote", cfg.Deploy.Remote, "Git remote to deploy to")
	fs.StringVar(&cfg.Fonts.Dedup, "font-dedup", cfg.Fonts.Dedup, "Font family dedup: set or adjacent")
	fs.BoolVar(&cfg.HTML.Minify, "minify-html", cfg.HTML.Minify, "Minify HTML pages")
}
