// Package proctree enumerates the descendants of a process.
//
// It is used by the runner to find processes that escaped the process group
// of a timed-out child, and by tests and the CLI to verify that no orphaned
// descendants remain after a run.
package proctree

import (
	"errors"
	"fmt"
)

// ErrUnsupported is returned by Children on platforms without a process
// enumeration facility.
var ErrUnsupported = errors.New("process enumeration not supported on this platform")

// Lister reports the direct children of a process.
type Lister interface {
	Children(pid int) ([]int, error)
}

// ListerFunc adapts a function to the Lister interface.
type ListerFunc func(pid int) ([]int, error)

// Children calls f(pid).
func (f ListerFunc) Children(pid int) ([]int, error) {
	return f(pid)
}

// New returns the platform's default Lister.
func New() Lister {
	return newLister()
}

// Descendants returns every transitive child of pid, breadth first.
// pid itself is not included. A PID seen twice (the table changed while it
// was being walked) is reported once.
func Descendants(l Lister, pid int) ([]int, error) {
	var out []int
	seen := map[int]bool{pid: true}
	queue := []int{pid}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]

		children, err := l.Children(parent)
		if err != nil {
			return out, fmt.Errorf("listing children of %d: %w", parent, err)
		}
		for _, c := range children {
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
			queue = append(queue, c)
		}
	}
	return out, nil
}

// Alive reports whether pid names a running process. Zombies (exited but not
// yet reaped) are reported as not alive.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return alive(pid)
}
