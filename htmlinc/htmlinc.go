// Package htmlinc assembles HTML pages from includable fragments.
//
// Directives start with a prefix, "@" by default:
//
//	@include('header.html', {"title": "Home"})
//	@markdown('about.md')
//	<h1>@title</h1>
//
// Paths are relative to the file that contains the directive. Included files
// are expanded recursively with the context of the including file extended by
// the include's context. Nested context keys are referenced with dots, e.g.
// @page.title. References to unknown keys are left as they are.
package htmlinc

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/goccy/go-yaml"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

var ErrIncludeCycle = errors.New("include cycle")

// Context holds the variables of an include. Keys of nested maps are joined
// with '.'.
type Context map[string]string

// ParseContext parses the JSON or YAML flow mapping of an include directive.
func ParseContext(src []byte) (Context, error) {
	var m map[string]any
	if err := yaml.Unmarshal(src, &m); err != nil {
		return nil, fmt.Errorf("include context: %w", err)
	}
	return NewContext(m), nil
}

// NewContext flattens the nested map m.
func NewContext(m map[string]any) Context {
	ctx := make(Context)
	ctx.flatten("", m)
	return ctx
}

func (ctx Context) flatten(prefix string, m map[string]any) {
	for k, v := range m {
		switch v := v.(type) {
		case map[string]any:
			ctx.flatten(prefix+k+".", v)
		case map[any]any:
			sm := make(map[string]any, len(v))
			for mk, mv := range v {
				sm[fmt.Sprint(mk)] = mv
			}
			ctx.flatten(prefix+k+".", sm)
		case nil:
			ctx[prefix+k] = ""
		default:
			ctx[prefix+k] = fmt.Sprint(v)
		}
	}
}

// With returns a copy of ctx extended by sub.
func (ctx Context) With(sub Context) Context {
	res := make(Context, len(ctx)+len(sub))
	for k, v := range ctx {
		res[k] = v
	}
	for k, v := range sub {
		res[k] = v
	}
	return res
}

type Includer struct {
	Prefix string
	// Minify minifies the result of [Includer.File].
	Minify bool

	md    goldmark.Markdown
	min   *minify.M
	varRe *regexp.Regexp
}

func New(prefix string) *Includer {
	if prefix == "" {
		prefix = "@"
	}
	inc := &Includer{
		Prefix: prefix,
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				highlighting.NewHighlighting(
					highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
				),
			),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		min:   minify.New(),
		varRe: regexp.MustCompile(regexp.QuoteMeta(prefix) + `([A-Za-z_][A-Za-z0-9_-]*(?:\.[A-Za-z0-9_-]+)*)`),
	}
	inc.min.AddFunc("text/css", css.Minify)
	inc.min.AddFunc("text/html", html.Minify)
	inc.min.AddFunc("image/svg+xml", svg.Minify)
	inc.min.AddFunc("application/javascript", js.Minify)
	return inc
}

// File expands the file at path with the context ctx.
func (inc *Includer) File(path string, ctx Context) ([]byte, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	res, err := inc.file(path, ctx, nil)
	if err != nil {
		return nil, err
	}
	if inc.Minify {
		if res, err = inc.min.Bytes("text/html", res); err != nil {
			return nil, fmt.Errorf("minify %s: %w", path, err)
		}
	}
	return res, nil
}

func (inc *Includer) file(path string, ctx Context, stack []string) ([]byte, error) {
	if slices.Contains(stack, path) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIncludeCycle, strings.Join(stack, " -> "), path)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return inc.Expand(src, path, ctx, append(stack, path))
}

// Expand expands the directives in src. The path of src is used to resolve
// relative include paths. Stack holds the paths of the including files.
func (inc *Includer) Expand(src []byte, path string, ctx Context, stack []string) ([]byte, error) {
	src = inc.substitute(src, ctx)
	var out bytes.Buffer
	line := 1
	for {
		i, dir := inc.nextDirective(src)
		if i < 0 {
			out.Write(src)
			return out.Bytes(), nil
		}
		out.Write(src[:i])
		line += bytes.Count(src[:i], []byte{'\n'})
		args := src[i+len(inc.Prefix)+len(dir)+1:]
		arg, ctxSrc, n, err := parseArgs(args)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %s: %w", path, line, dir, err)
		}
		ipath := arg
		if !filepath.IsAbs(ipath) {
			ipath = filepath.Join(filepath.Dir(path), ipath)
		}
		switch dir {
		case "include":
			sub := ctx
			if ctxSrc != nil {
				ictx, err := ParseContext(ctxSrc)
				if err != nil {
					return nil, fmt.Errorf("%s:%d: %w", path, line, err)
				}
				sub = ctx.With(ictx)
			}
			text, err := inc.file(ipath, sub, stack)
			if err != nil {
				return nil, err
			}
			out.Write(text)
		case "markdown":
			text, err := inc.markdown(ipath)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, line, err)
			}
			out.Write(text)
		}
		line += bytes.Count(src[i:i+len(inc.Prefix)+len(dir)+1+n], []byte{'\n'})
		src = args[n:]
	}
}

func (inc *Includer) markdown(path string) ([]byte, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := inc.md.Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("markdown %s: %w", path, err)
	}
	return buf.Bytes(), nil
}

var directives = []string{"include", "markdown"}

func (inc *Includer) nextDirective(src []byte) (idx int, dir string) {
	idx = -1
	for _, d := range directives {
		i := bytes.Index(src, []byte(inc.Prefix+d+"("))
		if i >= 0 && (idx < 0 || i < idx) {
			idx, dir = i, d
		}
	}
	return idx, dir
}

func (inc *Includer) substitute(src []byte, ctx Context) []byte {
	if len(ctx) == 0 {
		return src
	}
	return inc.varRe.ReplaceAllFunc(src, func(ref []byte) []byte {
		key := string(ref[len(inc.Prefix):])
		// Longest defined key wins, "@a.b." at the end of a sentence is "@a.b"
		for {
			if v, ok := ctx[key]; ok {
				return append([]byte(v), ref[len(inc.Prefix)+len(key):]...)
			}
			dot := strings.LastIndexByte(key, '.')
			if dot < 0 {
				return ref
			}
			key = key[:dot]
		}
	})
}

// parseArgs parses "'path' [, {context}] )" and returns the number of
// consumed bytes.
func parseArgs(src []byte) (path string, ctx []byte, n int, err error) {
	n = skipSpace(src, 0)
	if n >= len(src) || (src[n] != '\'' && src[n] != '"') {
		return "", nil, 0, errors.New("missing quoted path")
	}
	q := src[n]
	end := bytes.IndexByte(src[n+1:], q)
	if end < 0 {
		return "", nil, 0, errors.New("unterminated path")
	}
	path = string(src[n+1 : n+1+end])
	n = skipSpace(src, n+end+2)
	if n < len(src) && src[n] == ',' {
		n = skipSpace(src, n+1)
		if n >= len(src) || src[n] != '{' {
			return "", nil, 0, errors.New("context must be a {...} mapping")
		}
		end, err := matchBrace(src[n:])
		if err != nil {
			return "", nil, 0, err
		}
		ctx = src[n : n+end]
		n = skipSpace(src, n+end)
	}
	if n >= len(src) || src[n] != ')' {
		return "", nil, 0, errors.New("missing ')'")
	}
	return path, ctx, n + 1, nil
}

func skipSpace(src []byte, i int) int {
	for i < len(src) && strings.IndexByte(" \t\r\n", src[i]) >= 0 {
		i++
	}
	return i
}

// matchBrace returns the length of the balanced {...} at the start of src.
func matchBrace(src []byte) (int, error) {
	depth := 0
	var quote byte
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i + 1, nil
			}
		}
	}
	return 0, errors.New("unbalanced context braces")
}
