package mcp

import (
	"fmt"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// resolveDir resolves dir relative to the workspace and validates it
// is within the workspace boundary. An empty dir is the workspace itself.
// A dir that names a place outside is rejected; symlinks inside the
// workspace are resolved with the workspace as root, so they cannot leave it.
func resolveDir(workspace, dir string) (string, error) {
	if dir == "" {
		return workspace, nil
	}

	var abs string
	if filepath.IsAbs(dir) {
		abs = filepath.Clean(dir)
	} else {
		abs = filepath.Clean(filepath.Join(workspace, dir))
	}

	rel, err := filepath.Rel(workspace, abs)
	if err != nil {
		return "", fmt.Errorf("resolving dir: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("dir %q is outside workspace %q", dir, workspace)
	}

	resolved, err := securejoin.SecureJoin(workspace, rel)
	if err != nil {
		return "", fmt.Errorf("resolving dir %q: %w", dir, err)
	}
	return resolved, nil
}
