//go:build darwin

package proctree

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// sysctl finds children by reading the whole process table from
// kern.proc.all.
type sysctl struct{}

func newLister() Lister {
	return sysctl{}
}

func (sysctl) Children(pid int) ([]int, error) {
	procs, err := unix.SysctlKinfoProcSlice("kern.proc.all")
	if err != nil {
		return nil, fmt.Errorf("reading kern.proc.all: %w", err)
	}
	var children []int
	for _, p := range procs {
		if int(p.Eproc.Ppid) == pid {
			children = append(children, int(p.Proc.P_pid))
		}
	}
	return children, nil
}
