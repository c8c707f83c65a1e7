package config

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

const maxIdentifierWidth = 6

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateIdentifiers(); err != nil {
		return err
	}
	if err := c.validateRecording(); err != nil {
		return err
	}
	if err := c.validateMetadataColumns(); err != nil {
		return err
	}
	if err := c.validateBehavior(); err != nil {
		return err
	}
	if err := c.validateProbes(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	return nil
}

func (c *Config) validateIdentifiers() error {
	if c.Identifiers.ChannelWidth > maxIdentifierWidth {
		return fmt.Errorf("identifiers.channel_width must be at most %d", maxIdentifierWidth)
	}
	if c.Identifiers.UnitWidth > maxIdentifierWidth {
		return fmt.Errorf("identifiers.unit_width must be at most %d", maxIdentifierWidth)
	}
	return nil
}

func (c *Config) validateRecording() error {
	if c.Recording.SamplingRate <= 0 {
		return errors.New("recording.sampling_rate must be positive (Hz)")
	}
	return nil
}

func (c *Config) validateMetadataColumns() error {
	cols := map[string]int{
		"metadata_columns.cluster_id":         c.MetadataColumns.ClusterID,
		"metadata_columns.channel":            c.MetadataColumns.Channel,
		"metadata_columns.horizontal":         c.MetadataColumns.Horizontal,
		"metadata_columns.vertical":           c.MetadataColumns.Vertical,
		"metadata_columns.isi_violation":      c.MetadataColumns.ISIViolation,
		"metadata_columns.isolation_distance": c.MetadataColumns.IsolationDistance,
	}
	for name, value := range cols {
		if value < 0 {
			return fmt.Errorf("%s must be a non-negative column index", name)
		}
	}
	if c.MetadataColumns.ClusterID == c.MetadataColumns.Channel {
		return errors.New("metadata_columns.cluster_id and metadata_columns.channel must differ")
	}
	return nil
}

func (c *Config) validateBehavior() error {
	if c.Behavior.EyeTracking.Name == c.Behavior.MotionTracking.Name {
		return fmt.Errorf("behavior stream names must differ (both %q)", c.Behavior.EyeTracking.Name)
	}
	return nil
}

func (c *Config) validateProbes() error {
	if len(c.Probes) == 0 {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/nwbconv/config.toml"
		}
		return fmt.Errorf("at least one [[probes]] entry is required. Edit %s (create with 'nwbconv config init')", defaultPath)
	}

	fold := cases.Fold()
	labels := make(map[string]struct{}, len(c.Probes))
	numbers := make(map[int]struct{}, len(c.Probes))
	regions := make(map[string]string)
	for i, p := range c.Probes {
		field := fmt.Sprintf("probes[%d]", i)
		if _, dup := labels[p.Label]; dup {
			return fmt.Errorf("%s.label %q is used by more than one probe", field, p.Label)
		}
		labels[p.Label] = struct{}{}
		if p.Number < 1 || p.Number > 9 {
			return fmt.Errorf("%s.number must be between 1 and 9, got %d", field, p.Number)
		}
		if _, dup := numbers[p.Number]; dup {
			return fmt.Errorf("%s.number %d is used by more than one probe", field, p.Number)
		}
		numbers[p.Number] = struct{}{}
		if p.Shanks <= 0 {
			return fmt.Errorf("%s.shanks must be positive", field)
		}
		if p.ChannelsPerShank <= 0 {
			return fmt.Errorf("%s.channels_per_shank must be positive", field)
		}
		if len(p.Coordinates) > 0 && len(p.Coordinates) != p.Channels() {
			return fmt.Errorf("%s.coordinates has %d entries, expected %d", field, len(p.Coordinates), p.Channels())
		}
		for j, xyz := range p.Coordinates {
			if len(xyz) != 3 {
				return fmt.Errorf("%s.coordinates[%d] must have 3 values, got %d", field, j, len(xyz))
			}
		}
		if len(p.ChannelLocations) > 0 && len(p.ChannelLocations) != p.Channels() {
			return fmt.Errorf("%s.channel_locations has %d entries, expected %d", field, len(p.ChannelLocations), p.Channels())
		}
		if len(p.ChannelLocations) == 0 && p.Location == "" {
			return fmt.Errorf("%s needs location or channel_locations", field)
		}
		if len(p.ImpedanceOhms) > 0 && len(p.ImpedanceOhms) != p.Channels() {
			return fmt.Errorf("%s.impedance_ohms has %d entries, expected %d", field, len(p.ImpedanceOhms), p.Channels())
		}
		if len(p.Regions) == 0 {
			return fmt.Errorf("%s.regions must list at least one region", field)
		}
		for _, r := range p.Regions {
			key := fold.String(r)
			if owner, dup := regions[key]; dup {
				return fmt.Errorf("%s.regions: region %q already assigned to %s", field, r, owner)
			}
			regions[key] = p.Label
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	for component, level := range c.Logging.ComponentOverrides {
		switch level {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("logging.component_overrides.%s: unsupported level %q", component, level)
		}
	}
	return nil
}
