package webmk

import (
	"context"
	"strings"
	"testing"

	"git.fractalqb.de/fractalqb/testerr"
	"git.fractalqb.de/fractalqb/webmk/mkcore"
)

func TestWriteTracer_ParseLogFlag(t *testing.T) {
	var tr WriteTracer
	testerr.Shall(tr.ParseLogFlag("info")).BeNil(t)
	if tr.Log != mkcore.TraceWarn|mkcore.TraceInfo {
		t.Errorf("wrong log flags %d", tr.Log)
	}
	testerr.Shall(tr.ParseLogFlag("loud")).
		Check(t, testerr.Msg("write tracer: illegal log flag 'loud'"))
}

func TestWriteTracer_levels(t *testing.T) {
	var sb strings.Builder
	wtr := &WriteTracer{W: &sb, Log: mkcore.TraceWarn}
	tr := mkcore.NewTrace(context.Background(), wtr)
	tr.Info("hidden `goal`", `goal`, "fonts")
	tr.Warn("missing `dir`", `dir`, "src/fonts")
	out := sb.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info written with warn level: %s", out)
	}
	if !strings.Contains(out, "WARN") || !strings.Contains(out, "src/fonts") {
		t.Errorf("warning not written: %s", out)
	}
}
