package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"turntable/internal/config"
	"turntable/internal/logging"
	"turntable/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(c.configFlagValue())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) configFlagValue() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// commandLogger writes to stderr and the main log file so stdout stays
// clean for tables and JSON.
func commandLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Outputs: logging.ConfigOutputs(cfg, "stderr"),
	})
}

func logConfigWarnings(cfg *config.Config, logger *slog.Logger) {
	for _, warning := range cfg.Warnings() {
		logging.WarnWithContext(logger, "configuration setting ignored", "config_warning",
			logging.String("detail", warning),
			logging.String(logging.FieldErrorHint, "run turntable config validate"),
			logging.String(logging.FieldImpact, "motion estimates use the backend default"),
		)
	}
}

// withStore opens the session history for the duration of fn.
func withStore(cfg *config.Config, logger *slog.Logger, fn func(*store.Store) error) error {
	st, err := store.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
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
