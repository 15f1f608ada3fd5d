// Package config loads shopadmin settings from defaults, an optional YAML
// file and SHOPADMIN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultAPIBaseURL is the products API used when nothing else is configured.
const DefaultAPIBaseURL = "https://dummyjson.com"

// Session storage backends.
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Config is the complete shopadmin configuration.
type Config struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Session SessionConfig `mapstructure:"session" yaml:"session"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	UI      UIConfig      `mapstructure:"ui" yaml:"ui"`
}

// APIConfig points at the products API.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// SessionConfig selects where the CLI keeps its bearer token.
type SessionConfig struct {
	Storage string `mapstructure:"storage" yaml:"storage"` // file, sqlite or memory
	Path    string `mapstructure:"path" yaml:"path"`       // credentials file for "file"
}

// ServerConfig holds web panel settings.
type ServerConfig struct {
	Addr       string        `mapstructure:"addr" yaml:"addr"`
	Secure     bool          `mapstructure:"secure" yaml:"secure"` // secure cookies (HTTPS)
	DBPath     string        `mapstructure:"db_path" yaml:"db_path"`
	SessionTTL time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`
}

// LogConfig controls slog output.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// UIConfig holds list view settings shared by the panel and the browser.
type UIConfig struct {
	PageSize int           `mapstructure:"page_size" yaml:"page_size"`
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// Dir returns the shopadmin state directory (~/.shopadmin).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".shopadmin"
	}
	return filepath.Join(home, ".shopadmin")
}

// DefaultPath is the config file read when no explicit path is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the built-in configuration.
func Default() Config {
	dir := Dir()
	return Config{
		API: APIConfig{
			BaseURL: DefaultAPIBaseURL,
			Timeout: 30 * time.Second,
		},
		Session: SessionConfig{
			Storage: StorageFile,
			Path:    filepath.Join(dir, "credentials.json"),
		},
		Server: ServerConfig{
			Addr:       ":8080",
			DBPath:     filepath.Join(dir, "shopadmin.db"),
			SessionTTL: 24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		UI: UIConfig{
			PageSize: 10,
			Debounce: 350 * time.Millisecond,
		},
	}
}

// Load reads configuration. path overrides SHOPADMIN_CONFIG, which overrides
// ~/.shopadmin/config.yaml. A missing default file is not an error; a missing
// explicit file is.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetConfigType("yaml")
	if path == "" {
		path = os.Getenv("SHOPADMIN_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(Dir())
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("SHOPADMIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("session.storage", d.Session.Storage)
	v.SetDefault("session.path", d.Session.Path)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.secure", d.Server.Secure)
	v.SetDefault("server.db_path", d.Server.DBPath)
	v.SetDefault("server.session_ttl", d.Server.SessionTTL)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("ui.page_size", d.UI.PageSize)
	v.SetDefault("ui.debounce", d.UI.Debounce)
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("config: api.base_url is required")
	}
	switch c.Session.Storage {
	case StorageFile, StorageSQLite, StorageMemory:
	default:
		return fmt.Errorf("config: unknown session.storage %q (want file, sqlite or memory)", c.Session.Storage)
	}
	if c.UI.PageSize < 1 {
		return fmt.Errorf("config: ui.page_size must be >= 1, got %d", c.UI.PageSize)
	}
	if c.UI.Debounce < 0 {
		return fmt.Errorf("config: ui.debounce must not be negative")
	}
	return nil
}

// Write saves c as YAML at path, creating the directory if needed.
func Write(path string, c Config) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Marshal renders c as YAML, for "config show".
func Marshal(c Config) ([]byte, error) {
	return yaml.Marshal(c)
}
