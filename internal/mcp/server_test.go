package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvandessel/ipxgraph/internal/changes"
	"github.com/nvandessel/ipxgraph/internal/config"
	"github.com/nvandessel/ipxgraph/internal/logger"
	"github.com/nvandessel/ipxgraph/internal/models"
	"github.com/nvandessel/ipxgraph/internal/snapshot"
	"github.com/nvandessel/ipxgraph/internal/store"
)

// newTestServer writes comp -> sdc -> script into a temp workspace and
// returns a client session connected to a server over it.
func newTestServer(t *testing.T) (*mcp.ClientSession, *config.Config) {
	t.Helper()
	root := t.TempDir()
	ctx := context.Background()

	s := store.NewInMemoryGraphStore()
	sdcPath := filepath.Join(root, "uart.sdc")
	require.NoError(t, os.WriteFile(sdcPath, []byte("create_clock -period 10 [get_ports clk]\n"), 0o600))
	require.NoError(t, s.AddNode(models.ArtifactNode{
		ID: "comp", Name: "uart", Type: models.NodeIPXACTComponent, Domain: models.DomainFrontend,
		DefinedElements: models.DefinedElements{models.ElementClocks: {"clk"}},
	}))
	require.NoError(t, s.AddNode(models.ArtifactNode{
		ID: "sdc", Name: "uart.sdc", Type: models.NodeSDCConstraint, Domain: models.DomainFrontend, FilePath: sdcPath,
	}))
	require.NoError(t, s.AddNode(models.ArtifactNode{
		ID: "script", Name: "synth.tcl", Type: models.NodeEDAScript, Domain: models.DomainPhysicalDesign,
	}))
	require.NoError(t, s.AddEdge(models.DependencyEdge{
		SourceID: "comp", TargetID: "sdc", Type: models.EdgeGenerates, Domain: models.DomainFrontend,
	}))
	require.NoError(t, s.AddEdge(models.DependencyEdge{
		SourceID: "sdc", TargetID: "script", Type: models.EdgeConfigures, Domain: models.DomainPhysicalDesign,
	}))

	settings := &config.Config{
		Graph:       filepath.Join(root, ".ipxgraph", "graph.json"),
		Baseline:    filepath.Join(root, ".ipxgraph", "baseline.json"),
		LogLevel:    "warn",
		LogFormat:   "console",
		HashWorkers: 2,
	}
	require.NoError(t, snapshot.Save(ctx, settings.Graph, s))

	srv, err := NewServer(&Config{Name: "ipxgraph-test", Version: "v0.0.0", Settings: settings})
	require.NoError(t, err)

	clientT, serverT := mcp.NewInMemoryTransports()
	ss, err := srv.server.Connect(ctx, serverT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.0"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })

	return cs, settings
}

func call(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) (map[string]any, *mcp.CallToolResult) {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])

	if res.IsError {
		return nil, res
	}
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out, res
}

func TestNewServer_RequiresSettings(t *testing.T) {
	_, err := NewServer(&Config{Name: "x"})
	assert.Error(t, err)
	_, err = NewServer(nil)
	assert.Error(t, err)
}

func TestNewServer_GlobalLoggerFallback(t *testing.T) {
	var buf bytes.Buffer
	l, err := logger.New(&buf, "info", "json")
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = logger.New(io.Discard, "warn", "console") })

	srv, err := NewServer(&Config{Name: "x", Settings: &config.Config{}})
	require.NoError(t, err)
	assert.Same(t, l, srv.logger)
}

func TestListTools(t *testing.T) {
	cs, _ := newTestServer(t)
	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"ipxgraph_validate", "ipxgraph_scan", "ipxgraph_impact", "ipxgraph_summary"}, names)
}

func TestSummaryTool(t *testing.T) {
	cs, _ := newTestServer(t)
	out, _ := call(t, cs, "ipxgraph_summary", map[string]any{})

	assert.EqualValues(t, 3, out["total_nodes"])
	assert.EqualValues(t, 2, out["total_edges"])
	assert.Equal(t, false, out["has_cycles"])
}

func TestValidateTool(t *testing.T) {
	cs, _ := newTestServer(t)
	out, _ := call(t, cs, "ipxgraph_validate", map[string]any{"levels": []int{2}})

	summary, ok := out["summary"].(map[string]any)
	require.True(t, ok)
	// comp -> sdc carries no mapping details, so its required categories fail.
	assert.Equal(t, false, summary["overall_valid"])
	assert.NotEmpty(t, out["findings"])

	_, res := call(t, cs, "ipxgraph_validate", map[string]any{"levels": []int{7}})
	assert.True(t, res.IsError)
}

func TestImpactTool(t *testing.T) {
	cs, _ := newTestServer(t)
	out, _ := call(t, cs, "ipxgraph_impact", map[string]any{"node_ids": []string{"comp"}})

	assert.EqualValues(t, 2, out["count"])
	chains := out["impact_chains"].([]any)
	last := chains[1].(map[string]any)
	assert.Equal(t, "script", last["affected"])
	assert.Equal(t, []any{"comp", "sdc", "script"}, last["path"])

	_, res := call(t, cs, "ipxgraph_impact", map[string]any{"node_ids": []string{"ghost"}})
	assert.True(t, res.IsError)
}

func TestScanTool(t *testing.T) {
	cs, settings := newTestServer(t)

	_, res := call(t, cs, "ipxgraph_scan", map[string]any{})
	assert.True(t, res.IsError, "scan without a baseline should fail")

	g, err := snapshot.Load(context.Background(), settings.Graph)
	require.NoError(t, err)
	d := changes.NewDetector(g)
	_, err = d.BuildBaseline(context.Background())
	require.NoError(t, err)
	require.NoError(t, d.SaveBaseline(settings.Baseline))

	sdc, _ := g.GetNode("sdc")
	require.NoError(t, os.WriteFile(sdc.FilePath, []byte("create_clock -period 5 [get_ports clk]\n"), 0o600))

	out, _ := call(t, cs, "ipxgraph_scan", map[string]any{})
	assert.EqualValues(t, 1, out["total_changed"])
	assert.Equal(t, []any{"script"}, out["affected_nodes"])
}
