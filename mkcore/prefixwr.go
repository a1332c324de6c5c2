package mkcore

import (
	"bytes"
	"io"
)

// PrefixWriter writes the prefix at the start of every line written to w. It
// is used to tag the output of external tools with the action that runs them.
type PrefixWriter struct {
	w      io.Writer
	prefix []byte
	inLine bool
}

func NewPrefixWriter(w io.Writer, prefix string) *PrefixWriter {
	return &PrefixWriter{w: w, prefix: []byte(prefix)}
}

func (pw *PrefixWriter) Reset() { pw.inLine = false }

func (pw *PrefixWriter) Write(p []byte) (n int, err error) {
	for len(p) > 0 {
		if !pw.inLine {
			if _, err := pw.w.Write(pw.prefix); err != nil {
				return n, err
			}
			pw.inLine = true
		}
		line := p
		if nl := bytes.IndexByte(p, '\n'); nl >= 0 {
			line = p[:nl+1]
		}
		m, err := pw.w.Write(line)
		n += m
		if err != nil {
			return n, err
		}
		if line[len(line)-1] == '\n' {
			pw.inLine = false
		}
		p = p[len(line):]
	}
	return n, nil
}
