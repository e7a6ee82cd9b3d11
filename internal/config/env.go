package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const dotEnvFile = ".env"

// envOverrides lists the environment variables consulted for blank config
// fields. The VITE_ names match the variables used by the browser front end so
// an existing .env file works unchanged.
type envOverrides struct {
	PlantIDAPIKey     string `env:"PLANT_ID_API_KEY"`
	VitePlantIDAPIKey string `env:"VITE_PLANT_ID_API_KEY"`
	WikiAPIKey        string `env:"WIKI_API_KEY"`
	ViteWikiAPIKey    string `env:"VITE_WIKI_API_KEY"`
	WikiRefreshToken  string `env:"WIKI_REFRESH_TOKEN"`
	ViteWikiRefresh   string `env:"VITE_WIKI_REFRESH_TOKEN"`
	WikiUsername      string `env:"WIKI_USERNAME"`
	ViteWikiUsername  string `env:"VITE_WIKI_USERNAME"`
	Language          string `env:"PLANTSCOPE_LANGUAGE"`
	ServerToken       string `env:"PLANTSCOPE_API_TOKEN"`
}

// loadDotEnv imports .env from the working directory when present. Variables
// already set in the process environment win.
func loadDotEnv() error {
	if _, err := os.Stat(dotEnvFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", dotEnvFile, err)
	}
	if err := godotenv.Load(dotEnvFile); err != nil {
		return fmt.Errorf("load %s: %w", dotEnvFile, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	overrides, err := env.ParseAs[envOverrides]()
	if err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	fill(&c.PlantID.APIKey, overrides.PlantIDAPIKey, overrides.VitePlantIDAPIKey)
	fill(&c.Wikimedia.AccessToken, overrides.WikiAPIKey, overrides.ViteWikiAPIKey)
	fill(&c.Wikimedia.RefreshToken, overrides.WikiRefreshToken, overrides.ViteWikiRefresh)
	fill(&c.Wikimedia.Username, overrides.WikiUsername, overrides.ViteWikiUsername)
	fill(&c.Language.Preferred, overrides.Language)
	fill(&c.Server.APIToken, overrides.ServerToken)
	return nil
}

// fill sets *dst to the first non-blank candidate when *dst is blank.
func fill(dst *string, candidates ...string) {
	if strings.TrimSpace(*dst) != "" {
		return
	}
	for _, candidate := range candidates {
		if value := strings.TrimSpace(candidate); value != "" {
			*dst = value
			return
		}
	}
}
