// Package config loads and validates the optional .execrun YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the name of the configuration file looked up by Load.
const FileName = ".execrun"

// Default values used when the file or a key is absent.
const (
	DefaultTimeout   = 5 * time.Minute
	DefaultMaxOutput = 1 << 20 // 1 MB
	DefaultHistory   = 16
	DefaultLogLevel  = "info"
)

// Config holds the parsed .execrun configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version      int      `yaml:"version"`
	RawTimeout   string   `yaml:"timeout"`    // e.g. "5m", "30s"; "none" or "0" disables
	RawMaxOutput int      `yaml:"max_output"` // bytes of output returned per MCP reply
	RawHistory   int      `yaml:"history"`    // runs kept in memory for exec_inspect
	LogLevel     string   `yaml:"log_level"`  // debug, info, warn, error
	Allow        []string `yaml:"allow"`      // executables exec_run may launch; empty allows all
}

// Timeout returns the configured timeout or the default. Zero means no
// timeout.
func (c *Config) Timeout() time.Duration {
	switch strings.ToLower(strings.TrimSpace(c.RawTimeout)) {
	case "":
		return DefaultTimeout
	case "none", "0":
		return 0
	}
	d, err := time.ParseDuration(c.RawTimeout)
	if err != nil || d < 0 {
		return DefaultTimeout
	}
	return d
}

// MaxOutputBytes returns the configured max output size or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// History returns the configured history capacity or the default.
func (c *Config) History() int {
	if c.RawHistory > 0 {
		return c.RawHistory
	}
	return DefaultHistory
}

// Level returns the configured log level or the default.
func (c *Config) Level() string {
	if c.LogLevel != "" {
		return c.LogLevel
	}
	return DefaultLogLevel
}

// Allowed reports whether path may be launched. Entries match either the
// exact path or its base name.
func (c *Config) Allowed(path string) bool {
	if len(c.Allow) == 0 {
		return true
	}
	return slices.Contains(c.Allow, path) || slices.Contains(c.Allow, filepath.Base(path))
}

// Validate reports malformed values that the accessors would otherwise
// silently replace with defaults.
func (c *Config) Validate() error {
	if t := strings.ToLower(strings.TrimSpace(c.RawTimeout)); t != "" && t != "none" && t != "0" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("timeout: negative duration %s", d)
		}
	}
	if c.RawMaxOutput < 0 {
		return fmt.Errorf("max_output: negative size %d", c.RawMaxOutput)
	}
	if c.RawHistory < 0 {
		return fmt.Errorf("history: negative capacity %d", c.RawHistory)
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level: unknown level %q", c.LogLevel)
	}
	return nil
}

// LoadResult holds the parsed config and the directory it was found in.
type LoadResult struct {
	Config *Config
	Root   string // directory containing .execrun; falls back to the start dir
}

// Load reads the .execrun file nearest to dir, walking upward. If no file
// exists, a default Config is returned with Root set to dir.
func Load(dir string) (*LoadResult, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}

	root, err := findConfigRoot(dir)
	if err != nil {
		return &LoadResult{Config: &Config{}, Root: dir}, nil
	}

	data, err := os.ReadFile(filepath.Join(root, FileName))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", FileName, err)
	}
	return &LoadResult{Config: cfg, Root: root}, nil
}

// findConfigRoot walks upward from dir looking for a directory containing
// the config file.
func findConfigRoot(dir string) (string, error) {
	for {
		if fi, err := os.Stat(filepath.Join(dir, FileName)); err == nil && !fi.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s not found", FileName)
		}
		dir = parent
	}
}
