// Package execrun runs external executables with captured output and a
// bounded wall-clock duration.
package execrun

// Version is the release version reported by the CLI and the MCP server.
const Version = "v0.3.0"
