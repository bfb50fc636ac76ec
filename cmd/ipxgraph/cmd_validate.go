package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/ipxgraph/internal/schema"
	"github.com/nvandessel/ipxgraph/internal/validate"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check cross-artifact mappings against the schema registry",
		Long: `Run the mapping validator over the graph snapshot.

Level 1 checks that every declared element kind has an edge to each required
output artifact type. Level 2 checks the mapping categories and fields on
every edge. Level 3 checks that every declared element name is mapped.

Exits non-zero when any FAIL finding is reported.

Examples:
  ipxgraph validate
  ipxgraph validate --level 1 --level 3
  ipxgraph validate --report .ipxgraph/validation-report.json --fail-on-warning`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			levelFlags, _ := cmd.Flags().GetIntSlice("level")
			reportPath, _ := cmd.Flags().GetString("report")
			failOnWarning, _ := cmd.Flags().GetBool("fail-on-warning")
			verbose, _ := cmd.Flags().GetBool("verbose")

			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			g, err := e.loadGraph(cmd.Context())
			if err != nil {
				return err
			}
			reg, err := schema.Load(e.cfg.SchemaExtension)
			if err != nil {
				return fmt.Errorf("failed to load schema: %w", err)
			}

			var levels []validate.Level
			for _, l := range levelFlags {
				if l < 1 || l > 3 {
					return fmt.Errorf("invalid --level %d: must be 1, 2 or 3", l)
				}
				levels = append(levels, validate.Level(l))
			}
			if len(levels) == 0 {
				levels = []validate.Level{validate.LevelStructural, validate.LevelFields, validate.LevelCoverage}
			}

			report := validate.New(g, reg, validate.WithLogger(e.logger)).Run(levels...)
			summary := report.Summary()

			if reportPath != "" {
				if err := report.Save(reportPath); err != nil {
					return err
				}
			}

			if jsonOut {
				printJSON(cmd, map[string]any{
					"summary":  summary,
					"findings": report.Findings,
				})
			} else {
				printFindings(cmd, report, verbose)
				fmt.Fprintf(cmd.OutOrStdout(), "\n%d checks: %d passed, %d warnings, %d failed, %d info (coverage %.1f%%)\n",
					summary.TotalChecks, summary.Passes, summary.Warnings, summary.Failures, summary.Infos, summary.CoveragePct)
				if reportPath != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", reportPath)
				}
			}

			if !summary.Valid {
				return fmt.Errorf("validation failed: %d failures", summary.Failures)
			}
			if failOnWarning && summary.Warnings > 0 {
				return fmt.Errorf("validation failed: %d warnings", summary.Warnings)
			}
			return nil
		},
	}

	cmd.Flags().IntSlice("level", nil, "Validation level to run (1, 2 or 3; repeatable, default all)")
	cmd.Flags().String("report", "", "Write the full JSON report to this path")
	cmd.Flags().Bool("fail-on-warning", false, "Exit non-zero on WARNING findings too")
	cmd.Flags().BoolP("verbose", "v", false, "Also print PASS findings")

	return cmd
}

func printFindings(cmd *cobra.Command, report *validate.Report, verbose bool) {
	out := cmd.OutOrStdout()
	for _, level := range []validate.Level{validate.LevelStructural, validate.LevelFields, validate.LevelCoverage} {
		findings := report.Filter("", level)
		if len(findings) == 0 {
			continue
		}
		fmt.Fprintf(out, "Level %d: %s\n", level, level)
		for _, f := range findings {
			if f.Severity == validate.SeverityPass && !verbose {
				continue
			}
			fmt.Fprintf(out, "  %-7s %s\n", f.Severity, f.Message)
		}
	}
}
