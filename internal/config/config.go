// Package config handles the XDG configuration directory, its files, and
// the settings read from config.yaml and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application directory name.
	AppName = "tasklink"

	// SettingsFile is the optional YAML settings filename.
	SettingsFile = "config.yaml"

	// OAuthClientFile is the identity provider's OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename.
	TokenFile = "token.json"

	// SessionFile is the stored session identity filename.
	SessionFile = "session.json"

	// DefaultAPIURL is the task-storage service used when none is configured.
	DefaultAPIURL = "http://localhost:8000"

	// DefaultPageSize is the number of tasks requested per page.
	DefaultPageSize = 100

	// MaxPageSize is the largest limit the task-storage service accepts.
	MaxPageSize = 100

	// DefaultTimeout bounds each call to the task-storage service.
	DefaultTimeout = 10 * time.Second
)

// Environment variables that override config.yaml.
const (
	EnvAPIURL         = "TASKLINK_API_URL"
	EnvAuthSecret     = "TASKLINK_AUTH_SECRET"
	EnvAuthSecretAlt  = "BETTER_AUTH_SECRET"
	EnvAllowDevSecret = "TASKLINK_ALLOW_DEV_SECRET"
)

// Settings are the tunable values of config.yaml.
type Settings struct {
	// APIURL is the base URL of the task-storage service.
	APIURL string `yaml:"api_url"`

	// AuthSecret is the secret shared with the task-storage service for
	// signing bridged credentials.
	AuthSecret string `yaml:"auth_secret"`

	// AllowDevSecret permits the well-known development secret when
	// AuthSecret is empty. Never enable it outside local development.
	AllowDevSecret bool `yaml:"allow_dev_secret"`

	// PageSize is the number of tasks requested per page.
	PageSize int `yaml:"page_size"`

	// Timeout bounds each call to the task-storage service.
	Timeout time.Duration `yaml:"timeout"`
}

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	Settings Settings
}

// New creates a new Config with the default or specified config directory,
// and loads settings from config.yaml and the environment.
// If configDir is empty, uses XDG_CONFIG_HOME/tasklink or $HOME/.config/tasklink.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{Dir: dir, Settings: DefaultSettings()}
	if err := cfg.Load(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultSettings returns the built-in settings.
func DefaultSettings() Settings {
	return Settings{
		APIURL:   DefaultAPIURL,
		PageSize: DefaultPageSize,
		Timeout:  DefaultTimeout,
	}
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// Load reads config.yaml (if present), then applies environment overrides,
// then validates the result.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.SettingsPath())
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &c.Settings); err != nil {
			return fmt.Errorf("invalid %s: %w", SettingsFile, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return fmt.Errorf("failed to read %s: %w", SettingsFile, err)
	}

	c.applyEnv()
	return c.Settings.Validate()
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		c.Settings.APIURL = v
	}
	if v := os.Getenv(EnvAuthSecret); v != "" {
		c.Settings.AuthSecret = v
	} else if v := os.Getenv(EnvAuthSecretAlt); v != "" {
		c.Settings.AuthSecret = v
	}
	if v := os.Getenv(EnvAllowDevSecret); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Settings.AllowDevSecret = b
		}
	}
}

// Validate checks settings for values the client cannot run with.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.APIURL) == "" {
		return errors.New("api_url must not be empty")
	}
	if s.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", s.PageSize)
	}
	if s.PageSize > MaxPageSize {
		return fmt.Errorf("page_size must be at most %d, got %d", MaxPageSize, s.PageSize)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", s.Timeout)
	}
	return nil
}

// SettingsPath returns the path to config.yaml.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsFile)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// SessionPath returns the path to the stored session identity.
func (c *Config) SessionPath() string {
	return filepath.Join(c.Dir, SessionFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}
