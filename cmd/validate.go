package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/signalnine/packbench/internal/result"
	"github.com/signalnine/packbench/internal/runner"
)

var flagParallel int

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [run-dir]",
		Short: "Check stored results for consistency",
		Long:  "Reload every stored pack of a run, recompute its measures from the raw samples and check sample counts, error counts and retry counts against the run manifest.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runDir, err := resolveRunDir(args)
			if err != nil {
				return err
			}

			manifest, err := result.ReadManifest(runDir)
			if err != nil {
				logrus.WithError(err).Warn("no manifest; checking packs on their own")
			}

			paths, err := result.ListPacks(runDir)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no packs found in %s", runDir)
			}

			jobs := make([]runner.Job, len(paths))
			for i, path := range paths {
				jobs[i] = func(context.Context) error {
					res, err := result.ReadPackResult(path)
					if err != nil {
						return fmt.Errorf("%s: %w", filepath.Base(path), err)
					}
					return result.Check(res, manifest)
				}
			}
			errs := runner.RunPool(cmd.Context(), flagParallel, jobs)

			out := cmd.OutOrStdout()
			for i, path := range paths {
				status := "ok"
				if errs[i] != nil {
					status = errs[i].Error()
				}
				fmt.Fprintf(out, "%-40s %s\n", filepath.Base(path), status)
			}
			if failed := runner.Failed(errs); len(failed) > 0 {
				return fmt.Errorf("%d of %d pack(s) failed validation", len(failed), len(paths))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&flagParallel, "parallel", 4, "packs checked concurrently")
	return cmd
}
