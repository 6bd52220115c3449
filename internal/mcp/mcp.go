// Package mcp provides the execrun MCP server, registering the execution
// tools and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"net/url"
	"sync"
	"time"

	"github.com/deixis/execrun"
	"github.com/deixis/execrun/internal/config"
	"github.com/deixis/execrun/internal/report"
	"github.com/deixis/execrun/internal/runner"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

//go:embed instructions.md
var Instructions string

// Executor runs one process to completion.
// Implemented by runner.Executor.
type Executor interface {
	Run(ctx context.Context, req runner.Request) (*runner.Result, error)
}

// handler holds shared dependencies for all tool handlers.
type handler struct {
	exec  Executor
	store report.Store
	log   *zap.Logger

	mu        sync.RWMutex // guards cfg and workspace, replaced from client roots
	cfg       *config.Config
	workspace string
}

// NewServer creates an MCP server with the exec_run and exec_inspect tools
// registered.
func NewServer(cfg *config.Config, exec Executor, store report.Store, workspace string, opts ...ServerOption) *mcp.Server {
	so := serverOptions{log: zap.NewNop()}
	for _, o := range opts {
		o(&so)
	}

	h := &handler{
		exec:      exec,
		store:     store,
		log:       so.log,
		cfg:       cfg,
		workspace: workspace,
	}

	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateWorkspaceFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "execrun", Version: execrun.Version}, mcpOpts)

	mcp.AddTool(s, &mcp.Tool{
		Name: "exec_run",
		Description: `Launch an executable, wait for it to exit and return its exit code, stdout and stderr.

The argument string is passed without shell interpretation: no pipes, redirection, globbing or
variable expansion. If timeout_ms elapses (default: the configured timeout) the process and all
of its descendants are killed and no output is returned. Each run gets a run_id; long output
is truncated in the reply and can be read in full with exec_inspect.`,
	}, h.runHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "exec_inspect",
		Description: "Return the full captured stdout and/or stderr of an earlier exec_run by run_id.",
	}, h.inspectHandler)

	return s
}

// ServerOption configures the execrun MCP server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	log *zap.Logger
}

// WithLogger sets the logger used for per-run entries.
func WithLogger(l *zap.Logger) ServerOption {
	return func(o *serverOptions) {
		o.log = l
	}
}

// settings returns a consistent snapshot of the config and workspace.
func (h *handler) settings() (*config.Config, string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg, h.workspace
}

// updateWorkspaceFromRoots queries the client for MCP roots and, if a file
// root is returned, adopts it as the workspace and reloads the config from
// there. This is called during session initialization, before any tool calls.
func (h *handler) updateWorkspaceFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil {
		return
	}
	if len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}
	workspace := u.Path

	loaded, err := config.Load(workspace)
	if err != nil {
		h.log.Warn("ignoring client root", zap.String("root", workspace), zap.Error(err))
		return
	}

	h.mu.Lock()
	h.cfg = loaded.Config
	h.workspace = workspace
	h.mu.Unlock()
	h.log.Debug("workspace from client root", zap.String("workspace", workspace))
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
