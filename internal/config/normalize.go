package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePlantID()
	c.normalizeWikimedia()
	c.normalizeServer()
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.Language.Preferred = strings.TrimSpace(c.Language.Preferred)
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePlantID() {
	c.PlantID.APIKey = strings.TrimSpace(c.PlantID.APIKey)
	c.PlantID.BaseURL = strings.TrimRight(strings.TrimSpace(c.PlantID.BaseURL), "/")
	if c.PlantID.BaseURL == "" {
		c.PlantID.BaseURL = DefaultPlantIDBaseURL
	}
	c.PlantID.SamplePath = strings.TrimSpace(c.PlantID.SamplePath)
	if c.PlantID.TimeoutSeconds <= 0 {
		c.PlantID.TimeoutSeconds = defaultPlantIDTimeout
	}
}

func (c *Config) normalizeWikimedia() {
	c.Wikimedia.Username = strings.TrimSpace(c.Wikimedia.Username)
	c.Wikimedia.AccessToken = strings.TrimSpace(c.Wikimedia.AccessToken)
	c.Wikimedia.RefreshToken = strings.TrimSpace(c.Wikimedia.RefreshToken)
	c.Wikimedia.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.Wikimedia.APIBaseURL), "/")
	if c.Wikimedia.APIBaseURL == "" {
		c.Wikimedia.APIBaseURL = DefaultWikimediaAPIURL
	}
	c.Wikimedia.AuthBaseURL = strings.TrimRight(strings.TrimSpace(c.Wikimedia.AuthBaseURL), "/")
	if c.Wikimedia.AuthBaseURL == "" {
		c.Wikimedia.AuthBaseURL = DefaultWikimediaAuthURL
	}
	if c.Wikimedia.TimeoutSeconds <= 0 {
		c.Wikimedia.TimeoutSeconds = defaultWikiTimeout
	}
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	c.Server.APIToken = strings.TrimSpace(c.Server.APIToken)
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = defaultMaxUploadMB
	}
}

func (c *Config) normalizeHistory() error {
	var err error
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = filepath.Join(c.Paths.DataDir, defaultHistoryFileName)
	}
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
