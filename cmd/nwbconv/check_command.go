package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"nwbconv/internal/container"
	"nwbconv/internal/preflight"
	"nwbconv/internal/source"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var containerPath string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run readiness checks for directories, identifiers and the export driver",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := newCheckReport(cmd.OutOrStdout())

			results := preflight.RunAll(cmd.Context(), cfg)
			report.header("Preflight")
			for _, r := range results {
				report.result(r)
			}
			if strings.TrimSpace(containerPath) != "" {
				c := checkContainer(containerPath)
				results = append(results, c)
				report.header("Source")
				report.result(c)
			}
			report.summary()

			if failed := preflight.Failed(results); len(failed) > 0 {
				names := make([]string, 0, len(failed))
				for _, r := range failed {
					names = append(names, r.Name)
				}
				return fmt.Errorf("%d check(s) failed: %s", len(failed), strings.Join(names, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&containerPath, "container", "", "Also verify that a source container opens")
	return cmd
}

func checkContainer(path string) preflight.Result {
	const name = "Source container"
	root, err := container.Open(path)
	if err != nil {
		if errors.Is(err, container.ErrNotFound) {
			return preflight.Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return preflight.Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	sessions := source.SessionNames(root)
	return preflight.Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d session(s))", path, len(sessions))}
}
