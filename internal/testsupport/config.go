package testsupport

import (
	"path/filepath"
	"testing"

	"plantscope/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Credentials are filled with placeholders so validation and client
// construction succeed without touching the environment.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.History.Path = filepath.Join(base, "data", "history.db")
	cfgVal.PlantID.APIKey = "test"
	cfgVal.Wikimedia.Username = "tester"
	cfgVal.Wikimedia.AccessToken = "access-1"
	cfgVal.Wikimedia.RefreshToken = "refresh-1"
	cfgVal.Server.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithPlantIDKey sets the Plant.id API key on the test config.
func WithPlantIDKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.PlantID.APIKey = key
	}
}

// WithUpstream points both API clients at a fake upstream server.
func WithUpstream(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.PlantID.BaseURL = baseURL
		b.cfg.Wikimedia.APIBaseURL = baseURL
		b.cfg.Wikimedia.AuthBaseURL = baseURL
	}
}

// WithWikimediaTokens replaces the Wikimedia credentials.
func WithWikimediaTokens(access, refresh string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Wikimedia.AccessToken = access
		b.cfg.Wikimedia.RefreshToken = refresh
	}
}

// WithAPIToken requires a bearer token on the local JSON API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.APIToken = token
	}
}

// WithHistoryDisabled turns off the session history store.
func WithHistoryDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}

// WithMaxUploadMB caps API uploads.
func WithMaxUploadMB(mb int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.MaxUploadMB = mb
	}
}
