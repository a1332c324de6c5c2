package tinypng

import (
	"fmt"
	"os"
	"path/filepath"

	"git.fractalqb.de/fractalqb/webmk/mkcore"
	"git.fractalqb.de/fractalqb/webmk/mkfs"
)

// Raster selects the images TinyPNG can compress.
var Raster = mkfs.Ext{".png", ".jpg", ".jpeg"}

// Op writes the raster images of its [mkfs.Directory] premises into its
// [mkfs.Directory] result. Without a client or key the images are copied.
// When compression of an image fails, a warning is traced and the image is
// copied.
type Op struct {
	Client *Client
}

var _ mkcore.Operation = Op{}

func (op Op) Describe(*mkcore.Action, *mkcore.Env) string {
	if op.Client == nil || op.Client.Key == "" {
		return "copy images"
	}
	return "TinyPNG images"
}

func (op Op) Do(tr *mkcore.Trace, a *mkcore.Action, _ *mkcore.Env) error {
	res, err := mkcore.Goals(a.Results(), true, mkcore.AType[mkfs.Directory])
	if err != nil {
		return err
	}
	if len(res) != 1 {
		return fmt.Errorf("images need one result directory, have %d", len(res))
	}
	prj := a.Project()
	dst, err := prj.AbsPath(res[0].Artefact.(mkfs.Directory).Path())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, 0777); err != nil {
		return err
	}
	for _, pre := range a.Premises() {
		dir, ok := pre.Artefact.(mkfs.Directory)
		if !ok {
			return fmt.Errorf("image premise %s is no directory", pre)
		}
		ls, err := dir.List(prj)
		if err != nil {
			return err
		}
		for _, p := range ls {
			if ok, _ := mkfs.Match(Raster, p, false); !ok {
				continue
			}
			src, err := prj.AbsPath(p)
			if err != nil {
				return err
			}
			if err := op.image(tr, filepath.Join(dst, filepath.Base(p)), src); err != nil {
				return err
			}
		}
	}
	return nil
}

func (op Op) image(tr *mkcore.Trace, dst, src string) error {
	if op.Client == nil || op.Client.Key == "" {
		return mkfs.CopyFile(tr, dst, src)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	small, err := op.Client.Shrink(tr.Ctx(), data)
	if err != nil {
		tr.Warn("copy `image` uncompressed: `error`", `image`, src, `error`, err)
		return mkfs.CopyFile(tr, dst, src)
	}
	tr.Info("compressed `image` from `size` to `compressed`",
		`image`, src,
		`size`, len(data),
		`compressed`, len(small),
	)
	return mkfs.WriteFile(dst, small, 0644)
}
