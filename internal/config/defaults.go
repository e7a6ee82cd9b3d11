package config

// Upstream endpoints used when the config leaves them blank.
const (
	DefaultPlantIDBaseURL   = "https://api.plant.id/v2"
	DefaultWikimediaAPIURL  = "https://api.enterprise.wikimedia.com/v2"
	DefaultWikimediaAuthURL = "https://auth.enterprise.wikimedia.com/v1"
)

const (
	defaultDataDir         = "~/.local/share/plantscope"
	defaultLogDir          = "~/.local/share/plantscope/logs"
	defaultPlantIDTimeout  = 30
	defaultWikiTimeout     = 15
	defaultServerBind      = "127.0.0.1:7490"
	defaultMaxUploadMB     = 10
	defaultHistoryFileName = "history.db"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultHistoryEnabled  = true
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		PlantID: PlantID{
			BaseURL:        DefaultPlantIDBaseURL,
			TimeoutSeconds: defaultPlantIDTimeout,
		},
		Wikimedia: Wikimedia{
			APIBaseURL:     DefaultWikimediaAPIURL,
			AuthBaseURL:    DefaultWikimediaAuthURL,
			TimeoutSeconds: defaultWikiTimeout,
		},
		Server: Server{
			Bind:        defaultServerBind,
			MaxUploadMB: defaultMaxUploadMB,
		},
		History: History{
			Enabled: defaultHistoryEnabled,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
