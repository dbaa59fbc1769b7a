package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Convert  ConvertConfig  `mapstructure:"convert"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Database DatabaseConfig `mapstructure:"database"`
	AI       AIConfig       `mapstructure:"ai"`
	Log      LogConfig      `mapstructure:"log"`
}

type ConvertConfig struct {
	Output           string `mapstructure:"output"`
	IncludeHidden    bool   `mapstructure:"include_hidden"`
	ImageDir         string `mapstructure:"image_dir"`
	Notes            bool   `mapstructure:"notes"`
	Escape           bool   `mapstructure:"escape"`
	TranscodeBitmaps bool   `mapstructure:"transcode_bitmaps"`
}

type WatchConfig struct {
	Stage  string `mapstructure:"stage"`
	Output string `mapstructure:"output"`
	Done   string `mapstructure:"done"`
}

type AIConfig struct {
	Enabled        bool                        `mapstructure:"enabled"`
	ActiveProvider string                      `mapstructure:"active_provider"`
	Providers      map[string]ProviderSettings `mapstructure:"providers"`
}

type ProviderSettings struct {
	Driver string `mapstructure:"driver"` // gemini
	Key    string `mapstructure:"key"`
	Model  string `mapstructure:"model"`
}

// Active returns the settings of the active provider.
func (c *AIConfig) Active() (ProviderSettings, bool) {
	p, ok := c.Providers[c.ActiveProvider]
	if ok && p.Driver == "" {
		p.Driver = c.ActiveProvider
	}
	return p, ok
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text, json
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // sqlite, postgres
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Options  string `mapstructure:"options"`
}

// GetConnectStr returns the data source name for the configured driver.
func (c *DatabaseConfig) GetConnectStr() string {
	if c.URL != "" {
		return c.URL
	}
	if c.Driver != "postgres" {
		return "slidetex.db"
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, sslmode)

	if c.Options != "" {
		// Basic URL encoding for the options value: space -> %20
		encodedOptions := strings.ReplaceAll(c.Options, " ", "%20")
		connStr += fmt.Sprintf("&options=%s", encodedOptions)
	}

	return connStr
}

// flagKeys maps command line flag names to configuration keys.
var flagKeys = map[string]string{
	"output":            "convert.output",
	"include-hidden":    "convert.include_hidden",
	"images":            "convert.image_dir",
	"notes":             "convert.notes",
	"escape":            "convert.escape",
	"transcode-bitmaps": "convert.transcode_bitmaps",
	"ai":                "ai.enabled",
	"stage":             "watch.stage",
	"out-dir":           "watch.output",
	"done":              "watch.done",
	"db":                "database.url",
	"db-driver":         "database.driver",
	"log-level":         "log.level",
	"log-format":        "log.format",
}

// LoadConfig reads .env, the optional config file and the environment, then
// overlays any flags in flags that were set on the command line. An empty
// path means config.yaml in the working directory.
func LoadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file, using system environment variables")
	}

	v := viper.New()
	if path == "" {
		path = "config.yaml"
	}
	v.SetConfigFile(path)
	v.AutomaticEnv()

	// Environment variable mappings
	mappings := []struct {
		key, env string
	}{
		{"database.driver", "DB_DRIVER"},
		{"database.url", "DB_URL"},
		{"database.host", "PG_HOST"},
		{"database.port", "PG_PORT"},
		{"database.user", "PG_USER"},
		{"database.password", "PG_PASSWORD"},
		{"database.dbname", "PG_DB"},
		{"database.sslmode", "PG_SSLMODE"},
		{"database.options", "PG_OPTIONS"},

		// Watch directories
		{"watch.stage", "STORAGE_STAGE"},
		{"watch.output", "STORAGE_OUTPUT"},
		{"watch.done", "STORAGE_DONE"},

		// AI Providers
		{"ai.enabled", "AI_ENABLED"},
		{"ai.active_provider", "AI_PROVIDER"},
		{"ai.providers.gemini.key", "GEMINI_KEY"},
		{"ai.providers.gemini.model", "GEMINI_MODEL"},

		{"log.level", "LOG_LEVEL"},
		{"log.format", "LOG_FORMAT"},
	}

	for _, m := range mappings {
		v.BindEnv(m.key, m.env)
	}

	// Defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("watch.stage", "data/stage")
	v.SetDefault("watch.output", "data/output")
	v.SetDefault("watch.done", "data/done")
	v.SetDefault("ai.active_provider", "gemini")
	v.SetDefault("ai.providers.gemini.driver", "gemini")
	v.SetDefault("ai.providers.gemini.model", "gemini-1.5-flash")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.AI.ActiveProvider == "" {
		cfg.AI.ActiveProvider = "gemini"
	}

	return &cfg, nil
}
