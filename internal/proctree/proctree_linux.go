//go:build linux

package proctree

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/c9s/goprocinfo/linux"
)

const procRoot = "/proc"

// procfs finds children by scanning the parent field of every
// /proc/<pid>/stat entry.
type procfs struct {
	root string
}

func newLister() Lister {
	return &procfs{root: procRoot}
}

func (p *procfs) Children(pid int) ([]int, error) {
	entries, err := os.ReadDir(p.root)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p.root, err)
	}

	var children []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		stat, err := linux.ReadProcessStat(filepath.Join(p.root, e.Name(), "stat"))
		if err != nil {
			// Exited between ReadDir and here.
			continue
		}
		if int(stat.Ppid) == pid {
			children = append(children, id)
		}
	}
	return children, nil
}

func alive(pid int) bool {
	stat, err := linux.ReadProcessStat(filepath.Join(procRoot, strconv.Itoa(pid), "stat"))
	if err != nil {
		return false
	}
	switch stat.State {
	case "Z", "X", "x":
		return false
	}
	return true
}
