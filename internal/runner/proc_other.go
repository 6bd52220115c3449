//go:build !unix && !windows

package runner

import (
	"os"
	"os/exec"
	"strings"
)

// command splits arguments on white space; this platform has no process
// groups, so only the direct child is killed on timeout.
func command(path, arguments string) (*exec.Cmd, error) {
	return exec.Command(path, strings.Fields(arguments)...), nil
}

type processTree struct {
	process *os.Process
}

func isolate(cmd *exec.Cmd) (*processTree, error) {
	return &processTree{process: cmd.Process}, nil
}

func (t *processTree) kill() error { return t.process.Kill() }

func (t *processTree) release() {}

func killPID(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	return p.Kill()
}
