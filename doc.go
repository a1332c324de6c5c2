// Package webmk builds static web sites with Go. A site is a
// [mkcore.Project] whose goals are the compiled artefacts of the site, e.g. the
// minified style sheets, the bundled scripts and web fonts converted from
// TrueType fonts. Building the site means bringing all goals up to date.
//
// The package provides the editing helpers to define projects ([Edit]),
// operations that run external tools ([CmdOp]) and the default [WriteTracer].
// The ready-made site definition lives in package site and the command line
// tool in cmd/webmk.
//
// A typical site layout is
//
//	site/
//	├── webmk.yaml
//	├── src
//	│   ├── *.html
//	│   ├── fonts
//	│   ├── html
//	│   ├── img
//	│   ├── js
//	│   ├── resource
//	│   └── scss
//	└── app
//
// Build with
//
//	site$ webmk
package webmk
