//go:build !unix && !windows

package proctree

func alive(int) bool {
	return false
}
