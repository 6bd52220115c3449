//go:build !linux && !darwin && !windows

package proctree

type unsupported struct{}

func newLister() Lister {
	return unsupported{}
}

func (unsupported) Children(int) ([]int, error) {
	return nil, ErrUnsupported
}
