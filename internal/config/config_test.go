package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, root, body string) string {
	t.Helper()
	dir := filepath.Join(root, ".ipxgraph")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	root := t.TempDir()
	c, err := Load(root, "")
	require.NoError(t, err)

	assert.Equal(t, root, c.Root)
	assert.Equal(t, filepath.Join(root, ".ipxgraph", "graph.json"), c.Graph)
	assert.Equal(t, filepath.Join(root, ".ipxgraph", "baseline.json"), c.Baseline)
	assert.Empty(t, c.SchemaExtension)
	assert.Equal(t, "warn", c.LogLevel)
	assert.Equal(t, "console", c.LogFormat)
	assert.Equal(t, 8, c.HashWorkers)
	assert.Equal(t, 0, c.MaxDepth)
	assert.False(t, c.IncludeUpstream)
}

func TestLoad_WorkspaceConfigFile(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
graph: design/graph.yaml
schema_extension: /etc/ipxgraph/schema.yaml
hash_workers: 2
max_depth: 5
include_upstream: true
log_format: json
`)

	c, err := Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "design", "graph.yaml"), c.Graph)
	assert.Equal(t, "/etc/ipxgraph/schema.yaml", c.SchemaExtension)
	assert.Equal(t, 2, c.HashWorkers)
	assert.Equal(t, 5, c.MaxDepth)
	assert.True(t, c.IncludeUpstream)
	assert.Equal(t, "json", c.LogFormat)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "hash_workers: 2\n")
	t.Setenv("IPXGRAPH_HASH_WORKERS", "16")
	t.Setenv("IPXGRAPH_LOG_LEVEL", "debug")

	c, err := Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, 16, c.HashWorkers)
	assert.Equal(t, "debug", c.LogLevel)
}

func TestLoad_DotEnv(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("IPXGRAPH_MAX_DEPTH=3\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("IPXGRAPH_MAX_DEPTH") })

	c, err := Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, 3, c.MaxDepth)
}

func TestLoad_ExplicitFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(t.TempDir(), "ci.yaml")
	require.NoError(t, os.WriteFile(path, []byte("baseline: hashes.json\n"), 0o600))

	c, err := Load(root, path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "hashes.json"), c.Baseline)

	_, err = Load(root, filepath.Join(root, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"zero workers":   "hash_workers: 0\n",
		"too many":       "hash_workers: 1000\n",
		"negative depth": "max_depth: -1\n",
		"bad level":      "log_level: loud\n",
		"bad format":     "log_format: xml\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			root := t.TempDir()
			writeConfig(t, root, body)
			_, err := Load(root, "")
			assert.Error(t, err)
		})
	}
}
