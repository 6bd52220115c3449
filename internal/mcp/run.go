package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/deixis/execrun/internal/report"
	"github.com/deixis/execrun/internal/runner"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

var errNotAllowed = errors.New("not in the allow list of this workspace")

type runParams struct {
	Path      string `json:"path" jsonschema:"executable to launch; a bare name is looked up in PATH"`
	Arguments string `json:"arguments,omitempty" jsonschema:"argument string, split with POSIX quoting rules and never interpreted by a shell"`
	TimeoutMS int64  `json:"timeout_ms,omitempty" jsonschema:"kill the process tree after this many milliseconds; 0 uses the configured default"`
	Dir       string `json:"dir,omitempty" jsonschema:"working directory, relative to the workspace; must stay inside it"`
}

func (h *handler) runHandler(ctx context.Context, req *mcp.CallToolRequest, params runParams) (*mcp.CallToolResult, any, error) {
	cfg, workspace := h.settings()

	if params.Path == "" {
		return errorResult("path is required")
	}
	if params.TimeoutMS < 0 {
		return errorResult("timeout_ms must not be negative")
	}
	dir, err := resolveDir(workspace, params.Dir)
	if err != nil {
		return errorResult(err.Error())
	}

	timeout := cfg.Timeout()
	if params.TimeoutMS > 0 {
		timeout = time.Duration(params.TimeoutMS) * time.Millisecond
	}

	runReq := runner.Request{
		Path:      params.Path,
		Arguments: params.Arguments,
		Timeout:   timeout,
		Dir:       dir,
	}
	start := time.Now()
	rec := report.NewRecord(runReq, start)
	if cfg.Allowed(params.Path) {
		res, runErr := h.exec.Run(ctx, runReq)
		rec.Complete(res, runErr, time.Since(start))
	} else {
		rec.Complete(nil, &runner.LaunchError{Path: params.Path, Err: errNotAllowed}, 0)
	}

	if err := h.store.Save(rec); err != nil {
		h.log.Warn("saving run", zap.String("run_id", rec.ID), zap.Error(err))
	}
	h.log.Info("run",
		zap.String("run_id", rec.ID),
		zap.String("path", rec.Path),
		zap.String("status", string(rec.Status)),
		zap.Int("exit_code", rec.ExitCode),
		zap.Duration("elapsed", rec.Elapsed),
	)

	text := formatRun(rec, cfg.MaxOutputBytes())
	if rec.Status != report.Exited {
		return errorResult(text)
	}
	return textResult(text)
}

func formatRun(rec *report.RunRecord, maxOutput int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s\n", rec.ID)
	switch rec.Status {
	case report.Exited:
		fmt.Fprintf(&b, "Status: exited (code %d)\n", rec.ExitCode)
	case report.TimedOut:
		fmt.Fprintf(&b, "Status: timeout after %s; process tree killed\n", rec.Timeout)
	default:
		fmt.Fprintf(&b, "Status: %s\n", rec.Status)
	}
	fmt.Fprintf(&b, "Elapsed: %s\n", rec.Elapsed.Round(time.Millisecond))

	if rec.Status != report.Exited {
		fmt.Fprintf(&b, "Error: %s\n", rec.Error)
		return b.String()
	}

	truncated := false
	budget := maxOutput
	for _, s := range []struct {
		name string
		text string
	}{
		{"Stdout", rec.Output},
		{"Stderr", rec.ErrorOutput},
	} {
		if s.text == "" {
			continue
		}
		shown, cut := truncate(s.text, budget)
		budget -= len(shown)
		truncated = truncated || cut

		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "%s:\n", s.name)
		if shown == "" {
			continue
		}
		for _, line := range strings.Split(shown, runner.LineSeparator) {
			fmt.Fprintf(&b, "    %s\n", line)
		}
	}

	if truncated {
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "Output truncated to %d bytes. Read it in full with exec_inspect(run_id=%q).\n", maxOutput, rec.ID)
	}
	return b.String()
}

// truncate returns at most n bytes of s, cut on a rune boundary, and whether
// anything was dropped.
func truncate(s string, n int) (string, bool) {
	if len(s) <= n {
		return s, false
	}
	if n <= 0 {
		return "", true
	}
	s = s[:n]
	for i := 0; i < utf8.UTFMax-1 && len(s) > 0; i++ {
		if r, size := utf8.DecodeLastRuneInString(s); r != utf8.RuneError || size != 1 {
			break
		}
		s = s[:len(s)-1]
	}
	return s, true
}
