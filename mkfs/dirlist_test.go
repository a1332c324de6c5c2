package mkfs

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"git.fractalqb.de/fractalqb/testerr"
	"git.fractalqb.de/fractalqb/webmk/mkcore"
)

func writeTestFiles(t *testing.T, dir string, files ...string) {
	for _, f := range files {
		p := filepath.Join(dir, f)
		testerr.Shall(os.MkdirAll(filepath.Dir(p), 0777)).BeNil(t)
		testerr.Shall(os.WriteFile(p, []byte(f), 0666)).BeNil(t)
	}
}

func TestDirList_List(t *testing.T) {
	prj := mkcore.NewProject(t.TempDir())
	writeTestFiles(t, prj.Dir, "ls/a.txt", "ls/b.md", "ls/sub/c.txt")
	d := DirList{Dir: "ls", Filter: All{IsDir(false), NameMatch("*.txt")}}
	ls := testerr.Shall1(d.List(prj)).BeNil(t)
	if !slices.Equal(ls, []string{filepath.Join("ls", "a.txt")}) {
		t.Fatalf("ls: %v", ls)
	}
	if n := d.Name(prj); n != "ls/" {
		t.Errorf("unexpected name '%s'", n)
	}
}

func TestDirList_missing(t *testing.T) {
	prj := mkcore.NewProject(t.TempDir())
	d := DirList{Dir: "nope"}
	ls := testerr.Shall1(d.List(prj)).BeNil(t)
	if len(ls) != 0 {
		t.Errorf("missing dir lists %v", ls)
	}
	at := testerr.Shall1(d.StateAt(prj)).BeNil(t)
	if !at.IsZero() {
		t.Errorf("missing dir has state time %s", at)
	}
	if testerr.Shall1(d.Exists(prj)).BeNil(t) {
		t.Error("missing dir exists")
	}
}

func TestDirList_StateAt(t *testing.T) {
	prj := mkcore.NewProject(t.TempDir())
	writeTestFiles(t, prj.Dir, "ls/a.txt")
	future := time.Now().Add(time.Hour).Truncate(time.Second)
	testerr.Shall(os.Chtimes(filepath.Join(prj.Dir, "ls/a.txt"), future, future)).BeNil(t)
	at := testerr.Shall1(DirList{Dir: "ls"}.StateAt(prj)).BeNil(t)
	if !at.Equal(future) {
		t.Errorf("unexpected mod time %s, want %s", at, future)
	}
}

func TestDirList_Remove(t *testing.T) {
	prj := mkcore.NewProject(t.TempDir())
	writeTestFiles(t, prj.Dir, "ls/a.txt", "ls/b.txt")
	d := DirList{Dir: "ls"}
	testerr.Shall(d.Remove(prj)).BeNil(t)
	if testerr.Shall1(d.Exists(prj)).BeNil(t) {
		t.Error("empty directory not removed")
	}
}

func TestDirList_Holds(t *testing.T) {
	d := DirList{Dir: "src/fonts", Filter: NameMatch("*.ttf")}
	for _, c := range []struct {
		p     string
		isDir bool
		ok    bool
	}{
		{"src/fonts", true, true},
		{"src/fonts/Roboto.ttf", false, true},
		{"src/fonts/readme.md", false, false},
		{"src/fonts/sub/Roboto.ttf", false, false},
		{"src/img/x.ttf", false, false},
	} {
		if ok := testerr.Shall1(d.Holds(c.p, c.isDir)).BeNil(t); ok != c.ok {
			t.Errorf("%s: holds=%t", c.p, ok)
		}
	}
}
