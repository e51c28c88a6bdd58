package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/signalnine/packbench/internal/suite"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the suites a run would measure",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			suites, err := suite.Discover(cfg.SuitesPath(), cfg.Suites.Ext, cfg.Nesting())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Suites (%s, depth %d):\n", cfg.Type, cfg.Nesting())
			for _, s := range suites {
				rel, err := filepath.Rel(cfg.SuitesPath(), s)
				if err != nil {
					rel = s
				}
				fmt.Fprintf(out, "  - %s\n", rel)
			}
			fmt.Fprintf(out, "\n%d suite(s), %d launch(es) each, up to %d attempt(s) at max stdev %g\n",
				len(suites), cfg.LaunchCount(), max(1, cfg.RetryBudget()), cfg.MaxDeviation())
			return nil
		},
	}
	cmd.Flags().StringVar(&flagType, "type", "", "suite collection to list (sync, async)")
	cmd.Flags().IntVar(&flagDepth, "depth", 0, "override discovery nesting depth")
	return cmd
}
