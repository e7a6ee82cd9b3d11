package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"plantscope/internal/config"
	"plantscope/internal/history"
	"plantscope/internal/language"
	"plantscope/internal/logging"
	"plantscope/internal/messages"
	"plantscope/internal/services/plantid"
	"plantscope/internal/services/wikimedia"
	"plantscope/internal/session"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	catalogOnce sync.Once
	catalog     *messages.Catalog
	catalogErr  error

	history *history.Store
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(c.configFlagValue())
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
	})
	return c.config, c.configErr
}

func (c *commandContext) configFlagValue() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// loggerFor builds the CLI logger once. Console output goes to the command's
// stderr and JSON lines to the log directory.
func (c *commandContext) loggerFor(cmd *cobra.Command) (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		level := cfg.Logging.Level
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			level = *c.logLevelFlag
		}
		c.logger, c.loggerErr = logging.New(logging.Options{
			Level:    level,
			Format:   cfg.Logging.Format,
			Writer:   cmd.ErrOrStderr(),
			FilePath: logging.FilePath(cfg),
		})
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) messages() (*messages.Catalog, error) {
	c.catalogOnce.Do(func() {
		c.catalog, c.catalogErr = messages.Load()
	})
	return c.catalog, c.catalogErr
}

// historyStore opens the history database on first use. It returns nil when
// history is disabled.
func (c *commandContext) historyStore() (*history.Store, error) {
	if c.history != nil {
		return c.history, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, nil
	}
	store, err := history.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	c.history = store
	return store, nil
}

func (c *commandContext) requireHistory() (*history.Store, error) {
	store, err := c.historyStore()
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("history is disabled; set [history] enabled = true")
	}
	return store, nil
}

// resolveLanguage picks the article language: flag, then config, then the
// process locale.
func (c *commandContext) resolveLanguage(flag string) string {
	if strings.TrimSpace(flag) != "" {
		return language.Locale(flag)
	}
	if cfg, err := c.ensureConfig(); err == nil && cfg.Language.Preferred != "" {
		return language.Locale(cfg.Language.Preferred)
	}
	return language.FromEnvironment(os.LookupEnv)
}

func (c *commandContext) wikimediaClient(cmd *cobra.Command) (*wikimedia.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.loggerFor(cmd)
	if err != nil {
		return nil, err
	}
	return wikimedia.NewFromConfig(cfg, logger)
}

// newSession wires the Plant.id and Wikimedia clients and, when enabled, the
// history recorder.
func (c *commandContext) newSession(cmd *cobra.Command, lang string, observer session.Observer) (*session.Session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.loggerFor(cmd)
	if err != nil {
		return nil, err
	}
	lookuper, err := wikimedia.NewFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	opts := []session.Option{
		session.WithLogger(logger),
		session.WithLanguage(lang),
	}
	if observer != nil {
		opts = append(opts, session.WithObserver(observer))
	}
	store, err := c.historyStore()
	if err != nil {
		return nil, err
	}
	if store != nil {
		opts = append(opts, session.WithRecorder(store))
	}
	return session.New(plantid.NewFromConfig(cfg, logger), lookuper, opts...)
}

func (c *commandContext) close() error {
	if c.history == nil {
		return nil
	}
	err := c.history.Close()
	c.history = nil
	return err
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

func printLines(out io.Writer, lines []string) {
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
}
