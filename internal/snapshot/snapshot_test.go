package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvandessel/ipxgraph/internal/models"
	"github.com/nvandessel/ipxgraph/internal/store"
)

func fixture(t *testing.T) *store.InMemoryGraphStore {
	t.Helper()
	s := store.NewInMemoryGraphStore()

	require.NoError(t, s.AddNode(models.ArtifactNode{
		ID:          "uart_comp",
		Name:        "uart",
		Type:        models.NodeIPXACTComponent,
		Domain:      models.DomainFrontend,
		FilePath:    "ip/uart.xml",
		Description: "UART IP-XACT component",
		Version:     "1.2",
		Tags:        []string{"uart", "apb"},
		Metadata:    map[string]any{"vendor": "acme", "signed_off": true, "rev": 1.5},
		DefinedElements: models.DefinedElements{
			models.ElementClocks: {"pclk", "uart_clk"},
			models.ElementPorts:  {"tx", "rx"},
		},
	}))
	require.NoError(t, s.AddNode(models.ArtifactNode{
		ID:       "uart_sdc",
		Name:     "uart.sdc",
		Type:     models.NodeSDCConstraint,
		Domain:   models.DomainSignoff,
		FilePath: "constraints/uart.sdc",
		EDATool:  "Design Compiler",
	}))
	require.NoError(t, s.AddNode(models.ArtifactNode{
		ID:     "uart_logical",
		Name:   "uart logical view",
		Type:   models.NodeDocumentation,
		Domain: models.DomainGlobal,
	}))

	require.NoError(t, s.AddEdge(models.DependencyEdge{
		SourceID: "uart_comp",
		TargetID: "uart_sdc",
		Type:     models.EdgeGenerates,
		Label:    "clock constraints",
		Domain:   models.DomainSignoff,
		Metadata: map[string]any{"generator": "sdc_gen"},
		MappingDetails: []models.MappingDetail{
			models.NewMappingDetail(models.MappingClockDomain,
				"ipxact_clock_port", "pclk", "sdc_clock_name", "PCLK", "period_ns", "10.0",
				"uncertainty_setup", "0.1", "uncertainty_hold", "0.05"),
			models.NewMappingDetail(models.MappingFalsePath,
				"ipxact_port_or_domain", "rx", "sdc_false_path_spec", "-from [get_ports rx]"),
		},
	}))
	require.NoError(t, s.AddEdge(models.DependencyEdge{
		SourceID: "uart_comp",
		TargetID: "uart_sdc",
		Type:     models.EdgeConstrains,
		Domain:   models.DomainSignoff,
	}))
	require.NoError(t, s.AddEdge(models.DependencyEdge{
		SourceID: "uart_sdc",
		TargetID: "uart_logical",
		Type:     models.EdgeReferences,
		Domain:   models.DomainGlobal,
	}))
	return s
}

func TestFormatFor(t *testing.T) {
	tests := map[string]Format{
		"graph.json":    FormatJSON,
		"graph":         FormatJSON,
		"graph.YAML":    FormatYAML,
		"graph.yml":     FormatYAML,
		"graph.db":      FormatSQLite,
		"graph.sqlite3": FormatSQLite,
		"dir.db/x.json": FormatJSON,
		"nested/g.yaml": FormatYAML,
	}
	for path, want := range tests {
		assert.Equal(t, want, FormatFor(path), path)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	for _, name := range []string{"graph.json", "graph.yaml", "graph.db"} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			original := fixture(t)
			path := filepath.Join(t.TempDir(), "nested", name)

			require.NoError(t, Save(ctx, path, original))
			loaded, err := Load(ctx, path)
			require.NoError(t, err)

			assert.Len(t, loaded.Nodes(), 3)
			assert.Len(t, loaded.Edges(), 3)
			assert.Equal(t, original.Nodes(), loaded.Nodes())
			assert.Equal(t, original.Edges(), loaded.Edges())
		})
	}
}

func TestSave_Overwrites(t *testing.T) {
	ctx := context.Background()
	for _, name := range []string{"graph.json", "graph.db"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, Save(ctx, path, fixture(t)))
			require.NoError(t, Save(ctx, path, store.NewInMemoryGraphStore()))

			loaded, err := Load(ctx, path)
			require.NoError(t, err)
			assert.Empty(t, loaded.Nodes())
			assert.Empty(t, loaded.Edges())
		})
	}
}

func TestJSONWireFormat(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, Encode(&buf, FormatJSON, FromStore(fixture(t))))
	out := buf.String()

	assert.Contains(t, out, `"node_type": "ipxact_component"`)
	assert.Contains(t, out, `"edge_type": "generates"`)
	assert.Contains(t, out, `"category": "clock_domain"`)
	assert.Contains(t, out, `"period_ns": "10.0"`)
	assert.Contains(t, out, `"clocks": [`)
}

func TestDecode_NumericMappingValues(t *testing.T) {
	in := `{"nodes": [], "edges": [{"source_id": "a", "target_id": "b", "edge_type": "generates",
		"domain": "global", "mapping_details": [{"category": "clock_domain", "period_ns": 10, "false_path_defined": true}]}]}`
	doc, err := Decode(strings.NewReader(in), FormatJSON)
	require.NoError(t, err)
	require.Len(t, doc.Edges, 1)
	d := doc.Edges[0].MappingDetails[0]
	assert.Equal(t, "10", d.Value("period_ns"))
	assert.Equal(t, "true", d.Value("false_path_defined"))
}

func TestDecode_EdgeDomainDefaultsToGlobal(t *testing.T) {
	in := `{"nodes": [{"node_id": "a", "name": "a", "node_type": "ipxact_component", "domain": "frontend"},
		{"node_id": "b", "name": "b", "node_type": "sdc_constraint", "domain": "frontend"}],
		"edges": [{"source_id": "a", "target_id": "b", "edge_type": "generates"}]}`
	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, os.WriteFile(path, []byte(in), 0o600))

	s, err := Load(context.Background(), path)
	require.NoError(t, err)
	edges := s.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, models.DomainGlobal, edges[0].Domain)
}

func TestSaveLoad_MetadataNumbers(t *testing.T) {
	tests := []struct {
		name string
		want any
	}{
		{"graph.json", float64(3)},
		{"graph.db", float64(3)},
		{"graph.yaml", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := store.NewInMemoryGraphStore()
			require.NoError(t, s.AddNode(models.ArtifactNode{
				ID: "a", Name: "a", Type: models.NodeRTLSource, Domain: models.DomainGlobal,
				Metadata: map[string]any{"count": 3},
			}))
			path := filepath.Join(t.TempDir(), tt.name)
			require.NoError(t, Save(ctx, path, s))

			loaded, err := Load(ctx, path)
			require.NoError(t, err)
			n, ok := loaded.GetNode("a")
			require.True(t, ok)
			assert.Equal(t, tt.want, n.Metadata["count"])
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "unknown node type",
			content: `{"nodes": [{"node_id": "a", "name": "a", "node_type": "verilog", "domain": "global"}], "edges": []}`,
		},
		{
			name:    "unknown domain",
			content: `{"nodes": [{"node_id": "a", "name": "a", "node_type": "rtl_source", "domain": "marketing"}], "edges": []}`,
		},
		{
			name: "duplicate node id",
			content: `{"nodes": [{"node_id": "a", "name": "a", "node_type": "rtl_source", "domain": "global"},
				{"node_id": "a", "name": "b", "node_type": "rtl_source", "domain": "global"}], "edges": []}`,
		},
		{
			name: "dangling edge",
			content: `{"nodes": [{"node_id": "a", "name": "a", "node_type": "rtl_source", "domain": "global"}],
				"edges": [{"source_id": "a", "target_id": "ghost", "edge_type": "generates", "domain": "global"}]}`,
		},
		{
			name: "missing mapping category",
			content: `{"nodes": [], "edges": [{"source_id": "a", "target_id": "b", "edge_type": "generates",
				"domain": "global", "mapping_details": [{"period_ns": "10"}]}]}`,
		},
		{
			name: "unknown mapping category",
			content: `{"nodes": [], "edges": [{"source_id": "a", "target_id": "b", "edge_type": "generates",
				"domain": "global", "mapping_details": [{"category": "timing_magic"}]}]}`,
		},
		{
			name:    "not json",
			content: `nodes: [`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "graph.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := Load(context.Background(), path)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoad_DuplicateWrapsStoreError(t *testing.T) {
	doc := Document{Nodes: []models.ArtifactNode{
		{ID: "a", Name: "a", Type: models.NodeRTLSource, Domain: models.DomainGlobal},
		{ID: "a", Name: "a", Type: models.NodeRTLSource, Domain: models.DomainGlobal},
	}}
	_, err := doc.Build()
	assert.ErrorIs(t, err, ErrInvalid)
	assert.ErrorIs(t, err, store.ErrDuplicateID)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "none.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(context.Background(), filepath.Join(t.TempDir(), "none.db"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
