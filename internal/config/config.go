// Package config handles loading and managing labtui configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// APIConfig holds remote catalog service settings.
type APIConfig struct {
	URL          string `toml:"url"`            // Service base URL
	Token        string `toml:"token"`          // Bearer token (LABTUI_TOKEN overrides)
	RateLimitQPS int    `toml:"rate_limit_qps"` // Max requests per second
	PageSize     int    `toml:"page_size"`      // per_page for list pagination
}

// UIConfig holds interactive UI settings.
type UIConfig struct {
	RefreshIntervalSeconds int `toml:"refresh_interval_seconds"` // 0 disables auto refresh
}

// Config represents the labtui configuration.
type Config struct {
	API APIConfig `toml:"api"`
	UI  UIConfig  `toml:"ui"`

	// Computed paths (not from config file)
	HomeDir string `toml:"-"`
}

// DefaultHome returns the default labtui home directory.
// Respects the LABTUI_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("LABTUI_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".labtui"
	}
	return filepath.Join(home, ".labtui")
}

// Load reads the configuration from the specified file. If path is empty,
// the default location (~/.labtui/config.toml) is used. If homeDir is
// non-empty it overrides the home directory resolution.
func Load(path, homeDir string) (*Config, error) {
	if homeDir == "" {
		homeDir = DefaultHome()
	}
	if path == "" {
		path = filepath.Join(homeDir, "config.toml")
	}

	cfg := &Config{
		HomeDir: homeDir,
		API: APIConfig{
			URL:          "https://labs.hackthebox.com/api/v4",
			RateLimitQPS: 5,
			PageSize:     100,
		},
		UI: UIConfig{
			RefreshIntervalSeconds: 0,
		},
	}

	// Config file is optional - use defaults if not present
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Token resolves the bearer credential: the LABTUI_TOKEN environment
// variable wins over the config file. An empty result means the process
// cannot perform any catalog operation and must refuse to start.
func (c *Config) Token() string {
	if t := os.Getenv("LABTUI_TOKEN"); t != "" {
		return t
	}
	return c.API.Token
}

// ConfigFilePath returns the path to the config file.
func (c *Config) ConfigFilePath() string {
	return filepath.Join(c.HomeDir, "config.toml")
}

// EnsureHomeDir creates the home directory if it does not exist.
func (c *Config) EnsureHomeDir() error {
	return os.MkdirAll(c.HomeDir, 0o755)
}

// Save writes the configuration to its config file.
func (c *Config) Save() error {
	if err := c.EnsureHomeDir(); err != nil {
		return fmt.Errorf("create home directory: %w", err)
	}
	f, err := os.OpenFile(c.ConfigFilePath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
