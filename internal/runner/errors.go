package runner

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrLaunch matches any *LaunchError with errors.Is.
	ErrLaunch = errors.New("launch failed")
	// ErrTimeout matches any *TimeoutError with errors.Is.
	ErrTimeout = errors.New("timed out")
)

// LaunchError reports that the process could not be created.
type LaunchError struct {
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launching %s: %v", e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

func (e *LaunchError) Is(target error) bool { return target == ErrLaunch }

// TimeoutError reports that the process ran past its deadline and was killed
// together with its process tree.
type TimeoutError struct {
	Path    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s did not exit within %s", e.Path, e.Timeout)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }
