package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvandessel/ipxgraph/internal/changes"
	"github.com/nvandessel/ipxgraph/internal/models"
	"github.com/nvandessel/ipxgraph/internal/store"
)

func newBaselineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "baseline",
		Short: "Record SHA-256 hashes of every artifact file",
		Long: `Hash the file behind every file-bearing node and store the result as the
baseline that 'ipxgraph scan' compares against.`,
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

			d := changes.NewDetector(g,
				changes.WithLogger(e.logger),
				changes.WithWorkers(e.cfg.HashWorkers),
				changes.WithRoot(e.cfg.Root),
			)
			b, err := d.BuildBaseline(cmd.Context())
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(e.cfg.Baseline), 0o755); err != nil {
				return fmt.Errorf("failed to create baseline directory: %w", err)
			}
			if err := d.SaveBaseline(e.cfg.Baseline); err != nil {
				return err
			}

			if jsonOut {
				printJSON(cmd, map[string]any{
					"path":  e.cfg.Baseline,
					"files": len(b),
				})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Baseline of %d files written to %s\n", len(b), e.cfg.Baseline)
			}
			return nil
		},
	}
}

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Detect changed artifact files and the artifacts they affect",
		Long: `Rehash every artifact file, compare against the baseline and trace the
impact of each change through the dependency graph.

Examples:
  ipxgraph scan
  ipxgraph scan --upstream --max-depth 3
  ipxgraph scan --report .ipxgraph/change-report.json --fail-on-change`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			reportPath, _ := cmd.Flags().GetString("report")
			failOnChange, _ := cmd.Flags().GetBool("fail-on-change")

			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			g, err := e.loadGraph(cmd.Context())
			if err != nil {
				return err
			}

			d := changes.NewDetector(g,
				changes.WithLogger(e.logger),
				changes.WithWorkers(e.cfg.HashWorkers),
				changes.WithRoot(e.cfg.Root),
			)
			if err := d.LoadBaseline(e.cfg.Baseline); err != nil {
				return fmt.Errorf("%w (run 'ipxgraph baseline' first)", err)
			}
			report, err := d.FullScan(cmd.Context(), propagateOptions(cmd, e))
			if err != nil {
				return err
			}

			if reportPath != "" {
				if err := report.Save(reportPath); err != nil {
					return err
				}
			}

			if jsonOut {
				printJSON(cmd, report)
			} else {
				printScan(cmd, report)
			}

			if failOnChange && report.HasChanges() {
				return fmt.Errorf("%d artifact files changed", len(report.ChangedFiles))
			}
			return nil
		},
	}

	addPropagateFlags(cmd)
	cmd.Flags().String("report", "", "Write the change report to this path")
	cmd.Flags().Bool("fail-on-change", false, "Exit non-zero when any file changed")

	return cmd
}

func newImpactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "impact <node-id>...",
		Short: "Show which artifacts a change to the given nodes would affect",
		Args:  cobra.MinimumNArgs(1),
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
			for _, id := range args {
				if _, ok := g.GetNode(id); !ok {
					return fmt.Errorf("%w: node %q", store.ErrNotFound, id)
				}
			}

			d := changes.NewDetector(g, changes.WithLogger(e.logger))
			chains := d.PropagateImpact(args, propagateOptions(cmd, e))
			if chains == nil {
				chains = []changes.ImpactChain{}
			}

			if jsonOut {
				printJSON(cmd, map[string]any{
					"impact_chains": chains,
					"count":         len(chains),
				})
			} else {
				printChains(cmd, chains)
			}
			return nil
		},
	}

	addPropagateFlags(cmd)
	return cmd
}

func addPropagateFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("upstream", false, "Also trace impact toward predecessors")
	cmd.Flags().Int("max-depth", 0, "Maximum hop depth (0 = config value, unlimited by default)")
}

// propagateOptions merges the propagation flags over the config values.
func propagateOptions(cmd *cobra.Command, e *env) changes.PropagateOptions {
	upstream, _ := cmd.Flags().GetBool("upstream")
	maxDepth, _ := cmd.Flags().GetInt("max-depth")
	opts := changes.PropagateOptions{
		IncludeUpstream: upstream || e.cfg.IncludeUpstream,
		MaxDepth:        e.cfg.MaxDepth,
	}
	if maxDepth > 0 {
		opts.MaxDepth = maxDepth
	}
	return opts
}

func printScan(cmd *cobra.Command, r *changes.ChangeReport) {
	out := cmd.OutOrStdout()
	if !r.HasChanges() {
		fmt.Fprintln(out, "No changes since baseline.")
		return
	}
	fmt.Fprintf(out, "Changed files (%d):\n", len(r.ChangedFiles))
	for _, c := range r.ChangedFiles {
		fmt.Fprintf(out, "  [%s] %s (%s)\n", c.Status, c.NodeID, c.FilePath)
	}
	fmt.Fprintln(out)
	printChains(cmd, r.ImpactChains)
	if len(r.AffectedNodeIDs) > 0 {
		fmt.Fprintf(out, "\nAffected nodes (%d): %s\n", len(r.AffectedNodeIDs), strings.Join(r.AffectedNodeIDs, ", "))
	}
}

func printChains(cmd *cobra.Command, chains []changes.ImpactChain) {
	out := cmd.OutOrStdout()
	if len(chains) == 0 {
		fmt.Fprintln(out, "No impact.")
		return
	}
	fmt.Fprintf(out, "Impact chains (%d):\n", len(chains))
	for _, c := range chains {
		arrow := "->"
		if c.Direction == store.DirectionInbound {
			arrow = "<-"
		}
		fmt.Fprintf(out, "  %s %s %s  depth %d  via %s\n",
			c.SourceID, arrow, c.AffectedID, c.Depth, edgeTypes(c.EdgeTypes))
	}
}

func edgeTypes(types []models.EdgeType) string {
	s := make([]string, len(types))
	for i, t := range types {
		s[i] = string(t)
	}
	return strings.Join(s, ",")
}
