package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"flowcatalog/internal/analysis"
	"flowcatalog/internal/catalog"
	"flowcatalog/internal/config"
	"flowcatalog/internal/importer"
	"flowcatalog/internal/logging"
	"flowcatalog/internal/maintenance"
	"flowcatalog/internal/notifications"
	"flowcatalog/internal/pipeline"
	"flowcatalog/internal/queue"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	queue   *queue.Store
	catalog *catalog.Store
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// loggerFor returns the shared logger. Human-facing records go to the
// command's stderr; every record is also appended to the JSON log file.
func (c *commandContext) loggerFor(cmd *cobra.Command) *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.New(logging.Options{
			Level:    cfg.Logging.Level,
			Format:   cfg.Logging.Format,
			Writer:   cmd.ErrOrStderr(),
			FilePath: filepath.Join(cfg.Paths.LogDir, logging.LogFileName),
		})
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "logging disabled: %v\n", err)
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) queueStore() (*queue.Store, error) {
	if c.queue != nil {
		return c.queue, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open queue: %w", err)
	}
	c.queue = store
	return store, nil
}

func (c *commandContext) catalogStore() (*catalog.Store, error) {
	if c.catalog != nil {
		return c.catalog, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := catalog.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	c.catalog = store
	return store, nil
}

func (c *commandContext) stores() (*queue.Store, *catalog.Store, error) {
	q, err := c.queueStore()
	if err != nil {
		return nil, nil, err
	}
	cat, err := c.catalogStore()
	if err != nil {
		return nil, nil, err
	}
	return q, cat, nil
}

func (c *commandContext) processor(cmd *cobra.Command) (*pipeline.Processor, error) {
	q, cat, err := c.stores()
	if err != nil {
		return nil, err
	}
	logger := c.loggerFor(cmd)
	return pipeline.NewProcessor(c.config, q, analysis.New(c.config, logger), cat, logger,
		pipeline.WithNotifier(c.notifier()),
	), nil
}

func (c *commandContext) notifier() notifications.Service {
	return notifications.NewService(c.config)
}

// notify publishes event and logs, rather than returns, any delivery failure.
func (c *commandContext) notify(cmd *cobra.Command, event notifications.Event, payload notifications.Payload) {
	if err := c.notifier().Publish(cmd.Context(), event, payload); err != nil {
		logging.WarnWithContext(c.loggerFor(cmd), "notification failed", "notification_failed",
			logging.Error(err),
			logging.String("event", string(event)),
		)
	}
}

func (c *commandContext) importer(cmd *cobra.Command) (*importer.Importer, error) {
	q, cat, err := c.stores()
	if err != nil {
		return nil, err
	}
	return importer.New(c.config, q, cat, c.loggerFor(cmd)), nil
}

func (c *commandContext) maintenance(cmd *cobra.Command) (*maintenance.Service, error) {
	q, cat, err := c.stores()
	if err != nil {
		return nil, err
	}
	return maintenance.NewService(cat, q, c.loggerFor(cmd)), nil
}

// Close releases any stores opened by the command.
func (c *commandContext) Close() error {
	var errs []error
	if c.queue != nil {
		errs = append(errs, c.queue.Close())
		c.queue = nil
	}
	if c.catalog != nil {
		errs = append(errs, c.catalog.Close())
		c.catalog = nil
	}
	return errors.Join(errs...)
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
