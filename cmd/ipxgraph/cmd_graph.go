package main

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nvandessel/ipxgraph/internal/snapshot"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Inspect the artifact graph",
	}
	cmd.AddCommand(
		newGraphSummaryCmd(),
		newGraphTopoCmd(),
		newGraphPathCmd(),
		newGraphExportCmd(),
	)
	return cmd
}

func newGraphSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show node and edge counts by type and domain",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			g, err := e.loadGraph(cmd.Context())
			if err != nil {
				return err
			}

			s := g.Summary()
			if jsonOut {
				printJSON(cmd, s)
				return nil
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Nodes: %d  Edges: %d  Cycles: %t  Connected: %d  Islands: %d\n",
				s.TotalNodes, s.TotalEdges, s.HasCycles, s.Connected, s.Islands)
			if len(s.NodeTypes) > 0 {
				fmt.Fprintln(out, "\nBy type:")
				for _, k := range slices.Sorted(maps.Keys(s.NodeTypes)) {
					fmt.Fprintf(out, "  %-28s %d\n", k, s.NodeTypes[k])
				}
			}
			if len(s.Domains) > 0 {
				fmt.Fprintln(out, "\nBy domain:")
				for _, k := range slices.Sorted(maps.Keys(s.Domains)) {
					fmt.Fprintf(out, "  %-28s %d\n", k, s.Domains[k])
				}
			}
			return nil
		},
	}
}

func newGraphTopoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "topo",
		Short: "Print node ids in dependency order",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			g, err := e.loadGraph(cmd.Context())
			if err != nil {
				return err
			}

			order, err := g.TopologicalOrder()
			if err != nil {
				return err
			}
			if jsonOut {
				printJSON(cmd, map[string]any{"order": order})
			} else {
				for _, id := range order {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
			}
			return nil
		},
	}
}

func newGraphPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path <source-id> <target-id>",
		Short: "Print the shortest directed path between two nodes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			g, err := e.loadGraph(cmd.Context())
			if err != nil {
				return err
			}

			path := g.ShortestPath(args[0], args[1])
			if jsonOut {
				printJSON(cmd, map[string]any{"path": path, "hops": max(len(path)-1, 0)})
				return nil
			}
			if len(path) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No path from %s to %s\n", args[0], args[1])
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(path, " -> "))
			return nil
		},
	}
}

func newGraphExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <output-path>",
		Short: "Write the graph to another snapshot format (.json, .yaml or .db)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			g, err := e.loadGraph(cmd.Context())
			if err != nil {
				return err
			}
			if err := snapshot.Save(cmd.Context(), args[0], g); err != nil {
				return err
			}
			e.logger.Info("snapshot saved", zap.String("path", args[0]))

			if jsonOut {
				printJSON(cmd, map[string]any{
					"path":   args[0],
					"format": snapshot.FormatFor(args[0]),
				})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %s graph to %s\n", snapshot.FormatFor(args[0]), args[0])
			}
			return nil
		},
	}
}
