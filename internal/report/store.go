// Package report records executions so that their full output can be
// retrieved after the reply that announced them. Records are keyed by a
// random run ID.
package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/deixis/execrun/internal/runner"
	"github.com/google/uuid"
)

// Status classifies how a run ended.
type Status string

const (
	// Exited means the process exited on its own; ExitCode is meaningful.
	Exited Status = "exited"
	// TimedOut means the process tree was killed at the deadline.
	TimedOut Status = "timeout"
	// LaunchFailed means the process could not be created.
	LaunchFailed Status = "launch_error"
	// Canceled means the caller gave up before the process exited.
	Canceled Status = "canceled"
)

// Store persists and retrieves run records.
type Store interface {
	Save(rec *RunRecord) error
	Load(runID string) (*RunRecord, error)
}

// RunRecord holds one execution and its outcome.
type RunRecord struct {
	ID        string        `json:"id"`
	Path      string        `json:"path"`
	Arguments string        `json:"arguments,omitempty"`
	Dir       string        `json:"dir,omitempty"`
	Timeout   time.Duration `json:"timeout,omitempty"`
	Started   time.Time     `json:"started"`
	Elapsed   time.Duration `json:"elapsed"`

	Status      Status `json:"status"`
	ExitCode    int    `json:"exit_code"`
	PID         int    `json:"pid,omitempty"`
	Output      string `json:"output,omitempty"`
	ErrorOutput string `json:"error_output,omitempty"`
	Error       string `json:"error,omitempty"`
}

// NewRecord returns a record for req with a fresh run ID.
func NewRecord(req runner.Request, started time.Time) *RunRecord {
	return &RunRecord{
		ID:        uuid.New().String(),
		Path:      req.Path,
		Arguments: req.Arguments,
		Dir:       req.Dir,
		Timeout:   req.Timeout,
		Started:   started,
	}
}

// Complete fills in the outcome from the executor's return values.
func (r *RunRecord) Complete(res *runner.Result, err error, elapsed time.Duration) {
	r.Elapsed = elapsed
	switch {
	case err == nil:
		r.Status = Exited
		r.ExitCode = res.ExitCode
		r.PID = res.PID
		r.Output = res.Output
		r.ErrorOutput = res.ErrorOutput
		return
	case errors.Is(err, runner.ErrTimeout):
		r.Status = TimedOut
	case errors.Is(err, runner.ErrLaunch):
		r.Status = LaunchFailed
	default:
		r.Status = Canceled
	}
	r.ExitCode = -1
	r.Error = err.Error()
}

// Expect returns an error if the run's Status does not match want.
func (r *RunRecord) Expect(want Status) error {
	if r.Status != want {
		return fmt.Errorf("run %s ended with %s, not %s", r.ID, r.Status, want)
	}
	return nil
}

// Stream selects one of the captured outputs.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// Lines returns the captured lines of one stream.
func (r *RunRecord) Lines(s Stream) []string {
	var text string
	switch s {
	case Stdout:
		text = r.Output
	case Stderr:
		text = r.ErrorOutput
	}
	if text == "" {
		return nil
	}
	return strings.Split(text, runner.LineSeparator)
}
