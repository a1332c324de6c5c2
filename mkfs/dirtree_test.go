package mkfs

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"git.fractalqb.de/fractalqb/testerr"
	"git.fractalqb.de/fractalqb/webmk/mkcore"
)

func TestDirTree_List(t *testing.T) {
	prj := mkcore.NewProject(t.TempDir())
	writeTestFiles(t, prj.Dir, "tree/a.txt", "tree/sub/b.txt", "tree/sub/c.md")
	d := DirTree{Dir: "tree", Filter: NameMatch("*.txt")}
	ls := testerr.Shall1(d.List(prj)).BeNil(t)
	slices.Sort(ls)
	expect := []string{
		filepath.Join("tree", "a.txt"),
		filepath.Join("tree", "sub", "b.txt"),
	}
	if !slices.Equal(ls, expect) {
		t.Fatalf("ls: %v", ls)
	}
	if n := d.Name(prj); n != "tree/**" {
		t.Errorf("unexpected name '%s'", n)
	}
}

func TestDirTree_Remove(t *testing.T) {
	prj := mkcore.NewProject(t.TempDir())
	writeTestFiles(t, prj.Dir, "tree/a.txt", "tree/sub/b.txt", "tree/keep/c.md")
	d := DirTree{Dir: "tree", Filter: NameMatch("*.txt")}
	testerr.Shall(d.Remove(prj)).BeNil(t)
	if _, err := os.Stat(filepath.Join(prj.Dir, "tree/sub")); !os.IsNotExist(err) {
		t.Errorf("empty sub directory still there: %v", err)
	}
	testerr.Shall1(os.Stat(filepath.Join(prj.Dir, "tree/keep/c.md"))).BeNil(t)
}

func TestDirTree_Holds(t *testing.T) {
	d := DirTree{Dir: "src/html", Filter: NameMatch("*.html")}
	if !testerr.Shall1(d.Holds("src/html/a/b/index.html", false)).BeNil(t) {
		t.Error("nested html not held")
	}
	if testerr.Shall1(d.Holds("src/htmlx/index.html", false)).BeNil(t) {
		t.Error("sibling directory held")
	}
	if !testerr.Shall1(d.Holds("src/html/new", true)).BeNil(t) {
		t.Error("sub directory not held")
	}
}

func TestDirTree_missing(t *testing.T) {
	prj := mkcore.NewProject(t.TempDir())
	at := testerr.Shall1(DirTree{Dir: "nope"}.StateAt(prj)).BeNil(t)
	if !at.IsZero() {
		t.Errorf("missing tree has state time %s", at)
	}
}
