//go:build unix

package runner

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"

	"github.com/kballard/go-shellquote"
	"golang.org/x/sys/unix"
)

// command splits arguments with POSIX quoting rules only; there is no
// expansion, globbing or redirection. The child leads its own process group.
func command(path, arguments string) (*exec.Cmd, error) {
	args, err := shellquote.Split(arguments)
	if err != nil {
		return nil, fmt.Errorf("parsing arguments: %w", err)
	}
	cmd := exec.Command(path, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return cmd, nil
}

// processTree is the child's process group. Its ID is the child's PID.
type processTree struct {
	pgid int
}

func isolate(cmd *exec.Cmd) (*processTree, error) {
	return &processTree{pgid: cmd.Process.Pid}, nil
}

func (t *processTree) kill() error {
	return ignoreGone(unix.Kill(-t.pgid, unix.SIGKILL))
}

func (t *processTree) release() {}

func killPID(pid int) error {
	return ignoreGone(unix.Kill(pid, unix.SIGKILL))
}

func ignoreGone(err error) error {
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}
