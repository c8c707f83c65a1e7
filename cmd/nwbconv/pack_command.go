package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nwbconv/internal/config"
	"nwbconv/internal/container"
)

func newPackCommand() *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "pack <in> <out>",
		Short:       "Re-encode a container between JSON (.json) and bbolt (.db, .bolt)",
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve input path: %w", err)
			}
			out, err := config.ExpandPath(args[1])
			if err != nil {
				return fmt.Errorf("resolve output path: %w", err)
			}
			if in == out {
				return fmt.Errorf("input and output are the same file: %s", in)
			}

			root, err := container.Open(in)
			if err != nil {
				return err
			}
			datasets := 0
			if err := root.Walk(func(string, *container.Dataset) error {
				datasets++
				return nil
			}); err != nil {
				return err
			}
			if err := container.Write(out, root, overwrite); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Packed %d datasets from %s into %s\n", datasets, in, out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace the output file if it exists")
	return cmd
}
