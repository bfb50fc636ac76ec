package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// WorkspaceDirName is the per-project directory holding the graph snapshot,
// the hash baseline, reports and the optional config file.
const WorkspaceDirName = ".ipxgraph"

// Default file names inside the workspace directory.
const (
	DefaultSnapshotFile = "graph.json"
	DefaultBaselineFile = "baseline.json"
	DefaultConfigFile   = "config.yaml"
)

// WorkspacePath returns the .ipxgraph directory for the given project root.
func WorkspacePath(projectRoot string) string {
	return filepath.Join(projectRoot, WorkspaceDirName)
}

// EnsureWorkspace creates the .ipxgraph directory under projectRoot if it
// doesn't exist, seeds its .gitignore and returns the directory path.
func EnsureWorkspace(projectRoot string) (string, error) {
	dir := WorkspacePath(projectRoot)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", WorkspaceDirName, err)
	}
	if err := EnsureGitignore(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// workspaceGitignore is the default .gitignore content for .ipxgraph directories.
const workspaceGitignore = `# SQLite snapshots (the JSON snapshot is the reviewed source of truth)
*.db
*.db-shm
*.db-wal

# Generated reports (runtime data, not version controlled)
*-report.json
`

// EnsureGitignore creates a .gitignore in the given workspace directory if one
// does not already exist.
func EnsureGitignore(dir string) error {
	gitignorePath := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(gitignorePath); err == nil {
		return nil // already exists, respect user customizations
	}
	if err := os.WriteFile(gitignorePath, []byte(workspaceGitignore), 0o600); err != nil {
		return fmt.Errorf("failed to create .gitignore: %w", err)
	}
	return nil
}
