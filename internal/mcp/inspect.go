package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/deixis/execrun/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type inspectParams struct {
	RunID  string `json:"run_id" jsonschema:"the run ID from an exec_run result"`
	Stream string `json:"stream,omitempty" jsonschema:"stdout or stderr; both when omitted"`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}

	var streams []report.Stream
	switch report.Stream(params.Stream) {
	case "":
		streams = []report.Stream{report.Stdout, report.Stderr}
	case report.Stdout, report.Stderr:
		streams = []report.Stream{report.Stream(params.Stream)}
	default:
		return errorResult(fmt.Sprintf("unknown stream %q: use stdout or stderr", params.Stream))
	}

	rec, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}
	if err := rec.Expect(report.Exited); err != nil {
		return textResult(fmt.Sprintf("Run: %s\n%v; no output was captured.\n", rec.ID, err))
	}

	return textResult(formatInspectOutput(rec, streams))
}

func formatInspectOutput(rec *report.RunRecord, streams []report.Stream) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s (exit code %d)\n", rec.ID, rec.ExitCode)
	fmt.Fprintf(&b, "Command: %s", rec.Path)
	if rec.Arguments != "" {
		fmt.Fprintf(&b, " %s", rec.Arguments)
	}
	fmt.Fprintln(&b)

	for _, s := range streams {
		lines := rec.Lines(s)
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "%s (%d lines):\n", s, len(lines))
		for _, line := range lines {
			fmt.Fprintf(&b, "    %s\n", line)
		}
	}
	return b.String()
}
