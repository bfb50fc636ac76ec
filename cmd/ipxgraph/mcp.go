package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/ipxgraph/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Run ipxgraph as an MCP (Model Context Protocol) server",
		Long: `Start an MCP server that exposes ipxgraph over stdio.

Tools:

  • ipxgraph_validate - Validate mappings and return findings
  • ipxgraph_scan     - Detect changed files and trace their impact
  • ipxgraph_impact   - Trace the impact of changing given nodes
  • ipxgraph_summary  - Graph size and shape

Logs go to stderr; stdout carries JSON-RPC only.

Example client configuration:

  {
    "mcpServers": {
      "ipxgraph": {
        "command": "ipxgraph",
        "args": ["mcp-server"],
        "cwd": "${workspaceFolder}"
      }
    }
  }
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:     "ipxgraph",
				Version:  version,
				Settings: e.cfg,
				Logger:   e.logger,
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			// Blocks until the client disconnects.
			if err := server.Run(cmd.Context()); err != nil {
				return fmt.Errorf("MCP server error: %w", err)
			}
			return nil
		},
	}
}
