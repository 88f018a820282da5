package main

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"subburn/internal/config"
	"subburn/internal/logging"
)

// skipConfigAnnotation marks commands that must work without a loadable
// config file.
const skipConfigAnnotation = "skipConfigLoad"

// commandContext carries the persistent flags and the lazily loaded config
// shared by every subcommand.
type commandContext struct {
	configPath string
	verbose    bool

	loaded bool
	cfg    *config.Config
	err    error
}

// ensureConfig loads the configuration on first use. Callers that apply
// flag overrides work on a copy.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	if !c.loaded {
		c.loaded = true
		c.cfg, _, c.err = config.Load(strings.TrimSpace(c.configPath))
	}
	return c.cfg, c.err
}

func (c *commandContext) newLogger(cfg *config.Config) (*slog.Logger, error) {
	level := ""
	if c.verbose {
		level = "debug"
	}
	return logging.NewFromConfig(cfg, level)
}

func skipConfig() map[string]string {
	return map[string]string{skipConfigAnnotation: "true"}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for ; cmd != nil; cmd = cmd.Parent() {
		if cmd.Annotations[skipConfigAnnotation] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
