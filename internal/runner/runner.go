// Package runner launches an executable, captures its stdout and stderr as
// ordered lines, and enforces an optional deadline by killing the whole
// process tree.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/deixis/execrun/internal/proctree"
)

// Request describes one execution.
type Request struct {
	Path      string        // executable; resolved via PATH when it has no separator
	Arguments string        // passed to the child without shell interpretation
	Timeout   time.Duration // zero or negative waits indefinitely
	Dir       string        // working directory; empty means the caller's
	Env       []string      // nil inherits the caller's environment
}

// Executor runs processes. It holds no per-call state and is safe for
// concurrent use.
type Executor struct {
	// Clock times deadlines and durations. Nil means the system clock,
	// whose timers are monotonic.
	Clock clock.Clock

	// Tree, when set, is consulted on timeout so that descendants which
	// left the child's process group are killed too.
	Tree proctree.Lister
}

// New returns an Executor using the system clock and the platform's
// process lister.
func New() *Executor {
	return &Executor{
		Clock: clock.New(),
		Tree:  proctree.New(),
	}
}

var defaultExecutor = New()

// Execute runs path with arguments and blocks until it exits. A positive
// timeout kills the process tree once it elapses and returns a *TimeoutError.
func Execute(path, arguments string, timeout time.Duration) (*Result, error) {
	return defaultExecutor.Run(context.Background(), Request{
		Path:      path,
		Arguments: arguments,
		Timeout:   timeout,
	})
}

// Run executes req. It returns a *LaunchError if the process cannot be
// created, a *TimeoutError if req.Timeout elapses before the child exits, and
// ctx.Err() if ctx is done first. In the last two cases the process tree has
// been killed and the child reaped before Run returns. A non-zero exit code
// is not an error.
//
// Once the child exits, processes it left behind may keep its output open.
// They get until the deadline to close it; after that they are killed and
// the Result holds whatever was read. Without a deadline Run waits for them.
func (e *Executor) Run(ctx context.Context, req Request) (*Result, error) {
	clk := e.Clock
	if clk == nil {
		clk = clock.New()
	}

	cmd, err := command(req.Path, req.Arguments)
	if err != nil {
		return nil, &LaunchError{Path: req.Path, Err: err}
	}
	cmd.Dir = req.Dir
	cmd.Env = req.Env

	// The pipes are ours rather than cmd's so that Wait reports the child's
	// exit without waiting for EOF.
	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, &LaunchError{Path: req.Path, Err: err}
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		closeAll(outR, outW)
		return nil, &LaunchError{Path: req.Path, Err: err}
	}
	cmd.Stdout = outW
	cmd.Stderr = errW

	start := clk.Now()
	err = cmd.Start()
	// The child holds its own copies of the write ends.
	closeAll(outW, errW)
	if err != nil {
		closeAll(outR, errR)
		return nil, &LaunchError{Path: req.Path, Err: err}
	}

	tree, err := isolate(cmd)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		closeAll(outR, errR)
		return nil, &LaunchError{Path: req.Path, Err: fmt.Errorf("isolating process tree: %w", err)}
	}
	defer tree.release()

	var outLines, errLines []string
	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		defer readers.Done()
		outLines = readLines(outR)
	}()
	go func() {
		defer readers.Done()
		errLines = readLines(errR)
	}()
	drained := make(chan struct{})
	go func() {
		readers.Wait()
		closeAll(outR, errR)
		close(drained)
	}()

	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
	}()

	var deadline <-chan time.Time
	if req.Timeout > 0 {
		timer := clk.Timer(req.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	var waitErr error
	select {
	case waitErr = <-exited:
	case <-deadline:
		// An exit that raced the timer still counts.
		select {
		case waitErr = <-exited:
			deadline = expired
		default:
			e.terminate(cmd, tree, outR, errR)
			<-exited
			<-drained
			return nil, &TimeoutError{Path: req.Path, Timeout: req.Timeout}
		}
	case <-ctx.Done():
		e.terminate(cmd, tree, outR, errR)
		<-exited
		<-drained
		return nil, ctx.Err()
	}
	duration := clk.Since(start)

	select {
	case <-drained:
	case <-deadline:
		stopLeftovers(clk, tree, drained, outR, errR)
	case <-ctx.Done():
		stopLeftovers(clk, tree, drained, outR, errR)
		return nil, ctx.Err()
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return nil, fmt.Errorf("waiting for %s: %w", req.Path, waitErr)
		}
		exitCode = exitErr.ExitCode()
	}

	return &Result{
		ExitCode:    exitCode,
		Output:      strings.Join(outLines, LineSeparator),
		ErrorOutput: strings.Join(errLines, LineSeparator),
		PID:         cmd.Process.Pid,
		Duration:    duration,
	}, nil
}

// expired is a deadline that has already passed.
var expired = func() <-chan time.Time {
	c := make(chan time.Time)
	close(c)
	return c
}()

// drainGrace is how long readers may keep draining buffered output after
// leftover processes are killed.
const drainGrace = 100 * time.Millisecond

// terminate kills the child's process tree and unblocks the readers.
// Descendants are listed before the kill: once the child dies they are
// reparented and can no longer be found by walking from its PID.
func (e *Executor) terminate(cmd *exec.Cmd, tree *processTree, pipes ...io.Closer) {
	var stray []int
	if e.Tree != nil {
		stray, _ = proctree.Descendants(e.Tree, cmd.Process.Pid)
	}
	_ = tree.kill()
	for _, pid := range stray {
		_ = killPID(pid)
	}
	closeAll(pipes...)
}

// stopLeftovers kills what remains of the tree of an exited child, lets the
// readers take what is already buffered, then closes the pipes.
func stopLeftovers(clk clock.Clock, tree *processTree, drained <-chan struct{}, pipes ...io.Closer) {
	select {
	case <-drained:
		return
	default:
	}
	_ = tree.kill()

	grace := clk.Timer(drainGrace)
	defer grace.Stop()
	select {
	case <-drained:
	case <-grace.C:
		closeAll(pipes...)
		<-drained
	}
}

func closeAll(cs ...io.Closer) {
	for _, c := range cs {
		_ = c.Close()
	}
}
