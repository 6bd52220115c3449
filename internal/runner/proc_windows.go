//go:build windows

package runner

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// command passes arguments to the child verbatim on its command line and
// suppresses the console window.
func command(path, arguments string) (*exec.Cmd, error) {
	cmd := exec.Command(path)
	cmdLine := syscall.EscapeArg(path)
	if arguments != "" {
		cmdLine += " " + arguments
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CmdLine:       cmdLine,
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW,
	}
	return cmd, nil
}

// processTree is a Job Object holding the child. Processes the child creates
// after assignment join the job automatically.
type processTree struct {
	job     windows.Handle
	process windows.Handle
}

func isolate(cmd *exec.Cmd) (*processTree, error) {
	job, err := windows.CreateJobObject(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("creating job object: %w", err)
	}

	proc, err := windows.OpenProcess(
		windows.PROCESS_TERMINATE|windows.PROCESS_SET_QUOTA,
		false,
		uint32(cmd.Process.Pid),
	)
	if err != nil {
		windows.CloseHandle(job)
		return nil, fmt.Errorf("opening process %d: %w", cmd.Process.Pid, err)
	}

	if err := windows.AssignProcessToJobObject(job, proc); err != nil {
		windows.CloseHandle(proc)
		windows.CloseHandle(job)
		return nil, fmt.Errorf("assigning process %d to job: %w", cmd.Process.Pid, err)
	}
	return &processTree{job: job, process: proc}, nil
}

func (t *processTree) kill() error {
	return windows.TerminateJobObject(t.job, 1)
}

func (t *processTree) release() {
	windows.CloseHandle(t.process)
	windows.CloseHandle(t.job)
}

func killPID(pid int) error {
	h, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		if errors.Is(err, windows.ERROR_INVALID_PARAMETER) {
			// Already gone.
			return nil
		}
		return err
	}
	defer windows.CloseHandle(h)
	return windows.TerminateProcess(h, 1)
}
