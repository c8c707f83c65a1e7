package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeIdentifiers()
	c.normalizeBehavior()
	c.normalizeProbes()
	c.normalizeLogging()
	if c.Convert.Jobs <= 0 {
		c.Convert.Jobs = defaultConvertJobs
	}
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("NWBCONV_INPUT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.InputDir = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("NWBCONV_OUTPUT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.OutputDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}

	var err error
	if c.Paths.InputDir, err = expandPath(strings.TrimSpace(c.Paths.InputDir)); err != nil {
		return fmt.Errorf("paths.input_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.WaveformDir, err = expandPath(strings.TrimSpace(c.Paths.WaveformDir)); err != nil {
		return fmt.Errorf("paths.waveform_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeIdentifiers() {
	if c.Identifiers.ChannelWidth <= 0 {
		c.Identifiers.ChannelWidth = defaultChannelWidth
	}
	if c.Identifiers.UnitWidth <= 0 {
		c.Identifiers.UnitWidth = defaultUnitWidth
	}
	if c.Waveforms.Samples <= 0 {
		c.Waveforms.Samples = defaultWaveformSamples
	}
	c.Recording.Animal = strings.TrimSpace(c.Recording.Animal)
}

func (c *Config) normalizeBehavior() {
	normalizeStream(&c.Behavior.EyeTracking, defaultEyeTrackingKey, "EyeTracking")
	normalizeStream(&c.Behavior.MotionTracking, defaultMotionTrackingKey, "MotionTracking")
}

func normalizeStream(s *Stream, key, name string) {
	s.Key = strings.TrimSpace(s.Key)
	if s.Key == "" {
		s.Key = key
	}
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		s.Name = name
	}
	s.Description = strings.TrimSpace(s.Description)
	s.Unit = strings.TrimSpace(s.Unit)
}

func (c *Config) normalizeProbes() {
	for i := range c.Probes {
		p := &c.Probes[i]
		if p.Number == 0 {
			p.Number = i + 1
		}
		p.Label = strings.TrimSpace(p.Label)
		if p.Label == "" {
			p.Label = fmt.Sprintf("probe%d", p.Number)
		}
		p.Device = strings.TrimSpace(p.Device)
		p.Manufacturer = strings.TrimSpace(p.Manufacturer)
		p.Reference = strings.TrimSpace(p.Reference)
		p.Location = strings.TrimSpace(p.Location)
		if p.PitchUM <= 0 {
			p.PitchUM = defaultPitchUM
		}
		if p.ShankSpacingUM <= 0 {
			p.ShankSpacingUM = defaultShankSpacingUM
		}
		regions := make([]string, 0, len(p.Regions))
		for _, r := range p.Regions {
			if trimmed := strings.TrimSpace(r); trimmed != "" {
				regions = append(regions, trimmed)
			}
		}
		p.Regions = regions
		for j := range p.ChannelLocations {
			p.ChannelLocations[j] = strings.TrimSpace(p.ChannelLocations[j])
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
	if len(c.Logging.ComponentOverrides) > 0 {
		overrides := make(map[string]string, len(c.Logging.ComponentOverrides))
		for component, level := range c.Logging.ComponentOverrides {
			key := strings.ToLower(strings.TrimSpace(component))
			if key == "" {
				continue
			}
			overrides[key] = strings.ToLower(strings.TrimSpace(level))
		}
		c.Logging.ComponentOverrides = overrides
	}
}
