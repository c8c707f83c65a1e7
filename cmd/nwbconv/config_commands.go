package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"nwbconv/internal/config"
	"nwbconv/internal/fileutil"
	"nwbconv/internal/identifier"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		targetPath string
		overwrite  bool
		toStdout   bool
	)

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if toStdout {
				return config.WriteSample(out)
			}
			target, err := initTarget(targetPath)
			if err != nil {
				return err
			}
			if err := config.CreateSample(target, overwrite); err != nil {
				if errors.Is(err, fileutil.ErrExists) {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				}
				return err
			}
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the [[probes]] entries to match your recording before running nwbconv convert.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "Print the sample configuration instead of writing it")
	return cmd
}

// initTarget resolves the init destination, defaulting to the user config path.
func initTarget(raw string) (string, error) {
	if raw = strings.TrimSpace(raw); raw == "" {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return path, nil
	}
	path, err := config.ExpandPath(raw)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return path, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		Long: "Validate loads the configuration, prints the canonical region order and\n" +
			"the channel id range each probe occupies in session 1.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			ids, err := identifier.New(cfg.Identifiers.ChannelWidth, cfg.Identifiers.UnitWidth)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(cfg.Probes))
			for _, p := range cfg.Probes {
				first, err := ids.ChannelID(1, p.Number, 1)
				if err != nil {
					return err
				}
				last, err := ids.ChannelID(1, p.Number, p.Channels())
				if err != nil {
					return err
				}
				rows = append(rows, []string{
					p.Label, strconv.Itoa(p.Number), strconv.Itoa(p.Shanks), strconv.Itoa(p.ChannelsPerShank),
					fmt.Sprintf("%d-%d", first, last), strings.Join(p.Regions, ", "),
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config: %s\n", ctx.configSource())
			fmt.Fprintf(out, "Region order: %s\n", strings.Join(cfg.RegionOrder(), ", "))
			fmt.Fprintln(out, renderTable("Probes",
				[]column{col("Probe"), num("Number"), num("Shanks"), num("Per Shank"), col("Channel IDs"), col("Regions")},
				rows, nil,
			))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
