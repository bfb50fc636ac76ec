package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nvandessel/ipxgraph/internal/config"
	"github.com/nvandessel/ipxgraph/internal/logger"
	"github.com/nvandessel/ipxgraph/internal/snapshot"
	"github.com/nvandessel/ipxgraph/internal/store"
)

var version = "0.1.0-dev"

func main() {
	err := newRootCmd().Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ipxgraph",
		Short: "IP-XACT artifact dependency graph auditor",
		Long: `ipxgraph tracks the artifacts produced from an IP-XACT description
(constraints, register views, physical-design files, EDA scripts) as a
dependency graph.

It validates that every required cross-artifact mapping exists and is
complete, and detects file changes and the artifacts they affect.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("root", ".", "Project root directory")
	rootCmd.PersistentFlags().String("config", "", "Config file (default <root>/.ipxgraph/config.yaml)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newInitCmd(),
		newValidateCmd(),
		newBaselineCmd(),
		newScanCmd(),
		newImpactCmd(),
		newGraphCmd(),
		newMCPServerCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				printJSON(cmd, map[string]string{"version": version})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "ipxgraph version %s\n", version)
			}
		},
	}
}

// configTemplate is written by init. Every key is optional; IPXGRAPH_<KEY>
// environment variables take precedence.
const configTemplate = `# ipxgraph configuration
# graph: .ipxgraph/graph.json        # snapshot (.json, .yaml or .db)
# baseline: .ipxgraph/baseline.json  # file hash baseline
# schema_extension: schema.yaml      # extra mapping rules
# log_level: warn
# log_format: console
# hash_workers: 8
# max_depth: 0                       # 0 = unlimited
# include_upstream: false
`

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the .ipxgraph workspace with an empty graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			dir, err := store.EnsureWorkspace(root)
			if err != nil {
				return err
			}

			created := []string{}
			cfgPath := filepath.Join(dir, store.DefaultConfigFile)
			if _, err := os.Stat(cfgPath); errors.Is(err, fs.ErrNotExist) {
				if err := os.WriteFile(cfgPath, []byte(configTemplate), 0o644); err != nil {
					return fmt.Errorf("failed to create %s: %w", store.DefaultConfigFile, err)
				}
				created = append(created, cfgPath)
			}
			graphPath := filepath.Join(dir, store.DefaultSnapshotFile)
			if _, err := os.Stat(graphPath); errors.Is(err, fs.ErrNotExist) {
				if err := snapshot.Save(cmd.Context(), graphPath, store.NewInMemoryGraphStore()); err != nil {
					return err
				}
				created = append(created, graphPath)
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				printJSON(cmd, map[string]any{
					"status":  "initialized",
					"path":    dir,
					"created": created,
				})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s/ in %s\n", store.WorkspaceDirName, root)
			}
			return nil
		},
	}
}

// env is what every command needs after config is loaded.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	root, _ := cmd.Flags().GetString("root")
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(root, cfgPath)
	if err != nil {
		return nil, err
	}
	l, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: l}, nil
}

func (e *env) loadGraph(ctx context.Context) (*store.InMemoryGraphStore, error) {
	g, err := snapshot.Load(ctx, e.cfg.Graph, store.WithLogger(e.logger))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("no graph at %s: run 'ipxgraph init' or set graph in config", e.cfg.Graph)
		}
		return nil, err
	}
	e.logger.Info("snapshot loaded",
		zap.String("path", e.cfg.Graph),
		zap.Int("nodes", len(g.Nodes())),
		zap.Int("edges", len(g.Edges())),
	)
	return g, nil
}

func printJSON(cmd *cobra.Command, v any) {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
