// Package mcp exposes the graph auditor over the Model Context Protocol so
// that editors and agents can validate mappings and trace change impact.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/nvandessel/ipxgraph/internal/changes"
	"github.com/nvandessel/ipxgraph/internal/config"
	"github.com/nvandessel/ipxgraph/internal/logger"
	"github.com/nvandessel/ipxgraph/internal/schema"
	"github.com/nvandessel/ipxgraph/internal/snapshot"
	"github.com/nvandessel/ipxgraph/internal/store"
	"github.com/nvandessel/ipxgraph/internal/validate"
)

// Config configures the MCP server. A nil Logger falls back to the global
// logger.
type Config struct {
	Name     string
	Version  string
	Settings *config.Config
	Logger   *zap.Logger
}

// Server serves the ipxgraph tools over stdio. Every call reloads the graph
// snapshot so edits made between calls are picked up.
type Server struct {
	server   *mcp.Server
	settings *config.Config
	logger   *zap.Logger
}

// NewServer creates the server and registers its tools.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil || cfg.Settings == nil {
		return nil, fmt.Errorf("mcp: settings are required")
	}
	l := cfg.Logger
	if l == nil {
		l = logger.L()
	}

	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		settings: cfg.Settings,
		logger:   l,
	}
	s.registerTools()
	return s, nil
}

// Run serves over stdin/stdout until the client disconnects or ctx is done.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// ValidateInput selects validation levels.
type ValidateInput struct {
	Levels      []int `json:"levels,omitempty" jsonschema:"validation levels to run: 1 structural; 2 field level; 3 element coverage. All when empty"`
	WithPassing bool  `json:"with_passing,omitempty" jsonschema:"include PASS findings in the result"`
}

// ScanInput controls a change scan.
type ScanInput struct {
	IncludeUpstream bool `json:"include_upstream,omitempty" jsonschema:"also trace impact toward predecessors"`
	MaxDepth        int  `json:"max_depth,omitempty" jsonschema:"maximum hop depth; 0 for unlimited"`
}

// ImpactInput names nodes to trace impact from without hashing files.
type ImpactInput struct {
	NodeIDs         []string `json:"node_ids" jsonschema:"ids of the changed nodes"`
	IncludeUpstream bool     `json:"include_upstream,omitempty" jsonschema:"also trace impact toward predecessors"`
	MaxDepth        int      `json:"max_depth,omitempty" jsonschema:"maximum hop depth; 0 for unlimited"`
}

// SummaryInput takes no arguments.
type SummaryInput struct{}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ipxgraph_validate",
		Description: "Validate cross-artifact mappings against the schema registry and return the summary and findings",
	}, s.handleValidate)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ipxgraph_scan",
		Description: "Hash artifact files, compare them with the stored baseline and trace the impact of every change",
	}, s.handleScan)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ipxgraph_impact",
		Description: "Trace which artifacts are affected if the given nodes change",
	}, s.handleImpact)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ipxgraph_summary",
		Description: "Return node and edge counts, type and domain breakdowns and cycle status for the graph",
	}, s.handleSummary)
}

func (s *Server) loadGraph(ctx context.Context) (*store.InMemoryGraphStore, error) {
	g, err := snapshot.Load(ctx, s.settings.Graph, store.WithLogger(s.logger))
	if err != nil {
		return nil, fmt.Errorf("loading graph: %w", err)
	}
	return g, nil
}

func (s *Server) handleValidate(ctx context.Context, _ *mcp.CallToolRequest, in ValidateInput) (*mcp.CallToolResult, any, error) {
	g, err := s.loadGraph(ctx)
	if err != nil {
		return nil, nil, err
	}
	reg, err := schema.Load(s.settings.SchemaExtension)
	if err != nil {
		return nil, nil, fmt.Errorf("loading schema: %w", err)
	}

	levels := []validate.Level{validate.LevelStructural, validate.LevelFields, validate.LevelCoverage}
	if len(in.Levels) > 0 {
		levels = levels[:0]
		for _, l := range in.Levels {
			if l < 1 || l > 3 {
				return nil, nil, fmt.Errorf("invalid level %d: must be 1, 2 or 3", l)
			}
			levels = append(levels, validate.Level(l))
		}
	}

	report := validate.New(g, reg, validate.WithLogger(s.logger)).Run(levels...)
	findings := report.Findings
	if !in.WithPassing {
		findings = nil
		for _, f := range report.Findings {
			if f.Severity != validate.SeverityPass {
				findings = append(findings, f)
			}
		}
	}
	return jsonResult(map[string]any{
		"summary":  report.Summary(),
		"findings": findings,
	})
}

func (s *Server) handleScan(ctx context.Context, _ *mcp.CallToolRequest, in ScanInput) (*mcp.CallToolResult, any, error) {
	g, err := s.loadGraph(ctx)
	if err != nil {
		return nil, nil, err
	}
	d := changes.NewDetector(g,
		changes.WithLogger(s.logger),
		changes.WithWorkers(s.settings.HashWorkers),
		changes.WithRoot(s.settings.Root),
	)
	if err := d.LoadBaseline(s.settings.Baseline); err != nil {
		return nil, nil, fmt.Errorf("%w (run 'ipxgraph baseline' first)", err)
	}
	report, err := d.FullScan(ctx, changes.PropagateOptions{
		IncludeUpstream: in.IncludeUpstream || s.settings.IncludeUpstream,
		MaxDepth:        pick(in.MaxDepth, s.settings.MaxDepth),
	})
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(report)
}

func (s *Server) handleImpact(ctx context.Context, _ *mcp.CallToolRequest, in ImpactInput) (*mcp.CallToolResult, any, error) {
	if len(in.NodeIDs) == 0 {
		return nil, nil, fmt.Errorf("node_ids is required")
	}
	g, err := s.loadGraph(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, id := range in.NodeIDs {
		if _, ok := g.GetNode(id); !ok {
			return nil, nil, fmt.Errorf("%w: node %q", store.ErrNotFound, id)
		}
	}
	chains := changes.NewDetector(g, changes.WithLogger(s.logger)).PropagateImpact(in.NodeIDs, changes.PropagateOptions{
		IncludeUpstream: in.IncludeUpstream || s.settings.IncludeUpstream,
		MaxDepth:        pick(in.MaxDepth, s.settings.MaxDepth),
	})
	if chains == nil {
		chains = []changes.ImpactChain{}
	}
	return jsonResult(map[string]any{
		"impact_chains": chains,
		"count":         len(chains),
	})
}

func (s *Server) handleSummary(ctx context.Context, _ *mcp.CallToolRequest, _ SummaryInput) (*mcp.CallToolResult, any, error) {
	g, err := s.loadGraph(ctx)
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(g.Summary())
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encoding result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

func pick(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
