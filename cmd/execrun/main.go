// Command execrun runs executables with captured output and a deadline.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/deixis/execrun"
	"github.com/deixis/execrun/internal/config"
	"github.com/deixis/execrun/internal/logging"
	execmcp "github.com/deixis/execrun/internal/mcp"
	"github.com/deixis/execrun/internal/proctree"
	"github.com/deixis/execrun/internal/report"
	"github.com/deixis/execrun/internal/runner"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// Exit codes for failures of the run itself, following timeout(1) and sh(1).
const (
	exitTimeout = 124
	exitLaunch  = 127
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "run":
		var code int
		code, err = runMain(args)
		if err == nil {
			os.Exit(code)
		}
	case "children":
		err = childrenMain(args)
	case "mcp":
		err = mcpMain(args)
	case "version":
		fmt.Println(execrun.Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "execrun: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "execrun: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: execrun <command> [flags] [args]

Commands:
  run         Run an executable and print its output
  children    List the child processes of a PID
  mcp         Start the MCP server
  version     Print the version
  help        Show this help

Use "execrun <command> -h" for command-specific flags.`)
}

// --- run ---

func runMain(args []string) (int, error) {
	fs := pflag.NewFlagSet("run", pflag.ExitOnError)
	fs.SetInterspersed(false) // flags after the path belong to the child
	timeoutFlag := fs.Duration("timeout", -1, "kill the process tree after this long; 0 disables (default from .execrun)")
	dirFlag := fs.String("dir", "", "working directory for the child")
	jsonFlag := fs.Bool("json", false, "print the run record as JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: execrun run [flags] <path> [arguments...]")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fs.Usage()
		return 2, nil
	}

	env, err := loadEnv()
	if err != nil {
		return 0, err
	}
	defer func() { _ = env.log.Sync() }()

	timeout := env.cfg.Timeout()
	if *timeoutFlag >= 0 {
		timeout = *timeoutFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	req := runner.Request{
		Path:      fs.Arg(0),
		Arguments: strings.Join(fs.Args()[1:], " "),
		Timeout:   timeout,
		Dir:       *dirFlag,
	}
	start := time.Now()
	rec := report.NewRecord(req, start)
	res, runErr := runner.New().Run(ctx, req)
	rec.Complete(res, runErr, time.Since(start))

	env.log.Debug("run",
		zap.String("run_id", rec.ID),
		zap.String("path", rec.Path),
		zap.String("status", string(rec.Status)),
		zap.Int("exit_code", rec.ExitCode),
		zap.Duration("elapsed", rec.Elapsed),
	)

	if *jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rec); err != nil {
			return 0, err
		}
	} else if runErr == nil {
		printLines(os.Stdout, res.Output)
		printLines(os.Stderr, res.ErrorOutput)
	}

	switch {
	case runErr == nil:
		return res.ExitCode, nil
	case errors.Is(runErr, runner.ErrTimeout):
		fmt.Fprintf(os.Stderr, "execrun: %v\n", runErr)
		return exitTimeout, nil
	case errors.Is(runErr, runner.ErrLaunch):
		fmt.Fprintf(os.Stderr, "execrun: %v\n", runErr)
		return exitLaunch, nil
	default:
		return 0, runErr
	}
}

func printLines(f *os.File, text string) {
	if text == "" {
		return
	}
	fmt.Fprintln(f, strings.ReplaceAll(text, runner.LineSeparator, "\n"))
}

// --- children ---

func childrenMain(args []string) error {
	fs := pflag.NewFlagSet("children", pflag.ExitOnError)
	treeFlag := fs.Bool("tree", false, "list all descendants, not only direct children")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: execrun children [--tree] <pid>")
	}
	pid, err := strconv.Atoi(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid pid %q: %w", fs.Arg(0), err)
	}

	lister := proctree.New()
	var pids []int
	if *treeFlag {
		pids, err = proctree.Descendants(lister, pid)
	} else {
		pids, err = lister.Children(pid)
	}
	if err != nil {
		return err
	}
	for _, p := range pids {
		fmt.Println(p)
	}
	return nil
}

// --- mcp ---

func mcpMain(args []string) error {
	fs := pflag.NewFlagSet("mcp", pflag.ExitOnError)
	instructions := fs.Bool("instructions", false, "print model instructions and exit")
	httpAddr := fs.String("http", "", "start HTTP server on address (e.g. :9090)")
	historyDir := fs.String("history-dir", "", "directory for run records (default: a temp dir)")
	_ = fs.Parse(args)

	if *instructions {
		fmt.Print(execmcp.Instructions)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return serve(ctx, *httpAddr, *historyDir)
}

func serve(ctx context.Context, httpAddr, historyDir string) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}
	defer func() { _ = env.log.Sync() }()

	store := report.NewLRUStore(env.cfg.History(), report.NewDiskStore(historyDir))
	server := execmcp.NewServer(env.cfg, runner.New(), store, env.workspace, execmcp.WithLogger(env.log))

	if httpAddr != "" {
		return serveHTTP(ctx, server, httpAddr, env.log)
	}
	env.log.Info("serving on stdio", zap.String("workspace", env.workspace))
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string, log *zap.Logger) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Info("listening", zap.String("addr", addr))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// --- shared ---

type environment struct {
	cfg       *config.Config
	workspace string
	log       *zap.Logger
}

func loadEnv() (*environment, error) {
	workspace, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determining workspace: %w", err)
	}

	loaded, err := config.Load(workspace)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log, err := logging.New(loaded.Config.Level())
	if err != nil {
		return nil, err
	}

	return &environment{
		cfg:       loaded.Config,
		workspace: workspace,
		log:       log,
	}, nil
}
