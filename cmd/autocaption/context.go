package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"autocaption/internal/catalog"
	"autocaption/internal/config"
	"autocaption/internal/index"
	"autocaption/internal/logging"
	"autocaption/internal/workflow"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	jsonFlag     *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		jsonFlag:     jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) withCatalog(fn func(*catalog.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := catalog.Open(cfg.Paths.CatalogPath)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()
	return fn(store)
}

// withIndex opens the slide index when it is enabled. fn receives nil when
// the index is disabled.
func (c *commandContext) withIndex(ctx context.Context, fn func(*index.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.Index.Enabled {
		return fn(nil)
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	store, err := index.Open(ctx, cfg.Index.DSN, cfg.Index.Table, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	return fn(store)
}

// withManager builds a workflow manager backed by the catalog, the slide
// index when enabled, and a progress bar on interactive terminals.
func (c *commandContext) withManager(cmd *cobra.Command, cfg *config.Config, fn func(*workflow.Manager) error, opts ...workflow.Option) error {
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	return c.withCatalog(func(store *catalog.Store) error {
		return c.withIndex(cmd.Context(), func(idx *index.Store) error {
			all := []workflow.Option{workflow.WithCatalog(store)}
			if idx != nil {
				all = append(all, workflow.WithIndex(idx))
			}
			progress := newProgressReporter(cmd.ErrOrStderr(), !c.jsonOutput())
			defer progress.Finish()
			all = append(all, workflow.WithProgress(progress.Update))
			all = append(all, opts...)
			return fn(workflow.NewManager(cfg, logger, all...))
		})
	})
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
