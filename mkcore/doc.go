// Package mkcore implements the build model of webmk. A site build is a
// [Project] made of goals ([Goal]) and the actions ([Action]) that reach them.
// Each goal is bound to an [Artefact], e.g. a file or a directory listing, that
// tells the [Builder] when it was last updated. An action runs when one of its
// results is older than one of its premises.
//
// The package uses idiomatic Go error handling. Site definitions are easier to
// write with the editing helpers of the [webmk] package.
//
// [webmk]: https://pkg.go.dev/git.fractalqb.de/fractalqb/webmk
package mkcore
