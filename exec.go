package webmk

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"git.fractalqb.de/fractalqb/webmk/mkcore"
)

// ErrToolMissing is returned when the executable of a [CmdOp] cannot be found.
var ErrToolMissing = errors.New("tool not found")

// CmdOp runs an external program. Its error output is written with the name of
// the program as line prefix.
type CmdOp struct {
	CWD             string
	Exe             string
	Args            []string
	InFile, OutFile string
	Desc            string
}

var _ mkcore.Operation = (*CmdOp)(nil)

func (op *CmdOp) Describe(*Action, *Env) string {
	if op.Desc == "" {
		return fmt.Sprintf("%s%v", filepath.Base(op.Exe), op.Args)
	}
	return op.Desc
}

func (op *CmdOp) Do(tr *Trace, a *Action, env *Env) error {
	exe, err := exec.LookPath(op.Exe)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrToolMissing, op.Exe)
	}
	xenv, err := env.ExecEnv()
	if err != nil {
		tr.Warn("exec env of `action`: `error`", `action`, a.String(), `error`, err)
	}
	cmd := exec.CommandContext(tr.Ctx(), exe, op.Args...)
	cmd.Dir = op.CWD
	cmd.Env = xenv
	if op.InFile != "" {
		r, err := os.Open(op.InFile)
		if err != nil {
			return err
		}
		defer r.Close()
		cmd.Stdin = r
	} else {
		cmd.Stdin = env.In
	}
	if op.OutFile != "" {
		w, err := os.Create(op.OutFile)
		if err != nil {
			return err
		}
		defer w.Close()
		cmd.Stdout = w
	} else if env.Out != nil {
		cmd.Stdout = mkcore.NewPrefixWriter(env.Out, filepath.Base(op.Exe)+"> ")
	}
	if env.Err != nil {
		cmd.Stderr = mkcore.NewPrefixWriter(env.Err, filepath.Base(op.Exe)+"! ")
	}
	tr.Debug("exec `cmd` in `dir`", `cmd`, cmd.String(), `dir`, cmd.Dir)
	if err = cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", op.Describe(a, env), err)
	}
	return nil
}

// HasTool reports if exe can be found in the search path.
func HasTool(exe string) bool {
	_, err := exec.LookPath(exe)
	return err == nil
}
