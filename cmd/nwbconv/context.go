package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"nwbconv/internal/config"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// configSource describes where the loaded configuration came from.
func (c *commandContext) configSource() string {
	if c.configExists {
		return c.configPath
	}
	if c.configPath == "" {
		return "built-in defaults"
	}
	return c.configPath + " (not found; using built-in defaults)"
}
