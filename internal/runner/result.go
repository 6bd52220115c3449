package runner

import "time"

// LineSeparator joins captured lines in Result.Output and Result.ErrorOutput.
// It is the same on every platform.
const LineSeparator = "\r\n"

// Result holds the outcome of a process that exited on its own.
type Result struct {
	ExitCode    int           // process exit code
	Output      string        // non-empty stdout lines joined with LineSeparator
	ErrorOutput string        // non-empty stderr lines joined with LineSeparator
	PID         int           // PID of the direct child
	Duration    time.Duration // start to exit, on the executor's clock
}
