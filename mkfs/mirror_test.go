package mkfs

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"git.fractalqb.de/fractalqb/testerr"
	"git.fractalqb.de/fractalqb/webmk/mkcore"
)

func TestMirror_List(t *testing.T) {
	prj := mkcore.NewProject(t.TempDir())
	writeTestFiles(t, prj.Dir, "res/robots.txt", "res/sub/a.txt", "app/index.html")
	m := Mirror{Orig: DirTree{Dir: "res"}, Dest: "app"}
	ls := testerr.Shall1(m.List(prj)).BeNil(t)
	slices.Sort(ls)
	expect := []string{filepath.Join("app", "robots.txt"), filepath.Join("app", "sub", "a.txt")}
	if !slices.Equal(ls, expect) {
		t.Fatalf("ls: %v", ls)
	}
	if n := m.Name(prj); n != "app/**" {
		t.Errorf("unexpected name '%s'", n)
	}
	if !testerr.Shall1(m.Holds("app/sub/a.txt", false)).BeNil(t) {
		t.Error("mirrored file not held")
	}
	if testerr.Shall1(m.Holds("res/sub/a.txt", false)).BeNil(t) {
		t.Error("original held")
	}
}

func TestMirror_StateAt(t *testing.T) {
	prj := mkcore.NewProject(t.TempDir())
	writeTestFiles(t, prj.Dir, "res/robots.txt")
	m := Mirror{Orig: DirTree{Dir: "res"}, Dest: "app"}

	writeTestFiles(t, prj.Dir, "app/index.html")
	if at := testerr.Shall1(m.StateAt(prj)).BeNil(t); !at.IsZero() {
		t.Errorf("state without mirrored files: %s", at)
	}

	writeTestFiles(t, prj.Dir, "app/robots.txt")
	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	testerr.Shall(os.Chtimes(filepath.Join(prj.Dir, "app/robots.txt"), old, old)).BeNil(t)
	writeTestFiles(t, prj.Dir, "app/newer.html")
	at := testerr.Shall1(m.StateAt(prj)).BeNil(t)
	if !at.Equal(old) {
		t.Errorf("state %s includes unrelated files, want %s", at, old)
	}
}

func TestMirror_copyAfterOtherOutput(t *testing.T) {
	prj := mkcore.NewProject(t.TempDir())
	writeTestFiles(t, prj.Dir, "res/robots.txt", "res/sub/a.txt")
	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	testerr.Shall(os.Chtimes(filepath.Join(prj.Dir, "res/robots.txt"), old, old)).BeNil(t)
	testerr.Shall(os.Chtimes(filepath.Join(prj.Dir, "res/sub/a.txt"), old, old)).BeNil(t)
	writeTestFiles(t, prj.Dir, "app/index.html")

	src := testerr.Shall1(prj.Goal(DirTree{Dir: "res"})).BeNil(t)
	dst := testerr.Shall1(prj.Goal(Mirror{Orig: DirTree{Dir: "res"}, Dest: "app"})).BeNil(t)
	dst.Removable = true
	testerr.Shall1(prj.NewAction([]*mkcore.Goal{src}, []*mkcore.Goal{dst}, Copy{MkDirMode: 0777})).BeNil(t)

	tr := mkcore.NewTrace(context.Background(), mkcore.TestTracer{T: t})
	bd := testerr.Shall1(mkcore.NewBuilder(tr, &mkcore.Env{})).BeNil(t)
	testerr.Shall(bd.Goals(dst)).BeNil(t)
	for _, f := range []string{"app/robots.txt", "app/sub/a.txt"} {
		testerr.Shall1(os.Stat(filepath.Join(prj.Dir, f))).BeNil(t)
	}

	testerr.Shall(mkcore.Clean(prj, false, tr)).BeNil(t)
	if _, err := os.Stat(filepath.Join(prj.Dir, "app/sub")); !os.IsNotExist(err) {
		t.Errorf("clean left mirrored directory: %v", err)
	}
	testerr.Shall1(os.Stat(filepath.Join(prj.Dir, "app/index.html"))).BeNil(t)
}
