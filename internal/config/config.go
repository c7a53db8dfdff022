package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	General       GeneralConfig       `toml:"general"`
	Tools         ToolsConfig         `toml:"tools"`
	Pipeline      PipelineConfig      `toml:"pipeline"`
	Download      DownloadConfig      `toml:"download"`
	Watch         WatchConfig         `toml:"watch"`
	Notifications NotificationsConfig `toml:"notifications"`
}

// GeneralConfig holds general settings
type GeneralConfig struct {
	DatabasePath string `toml:"database_path"`
}

// ToolsConfig names the external tool binaries; override for non-PATH installs
type ToolsConfig struct {
	Prokka   string `toml:"prokka"`
	Abritamr string `toml:"abritamr"`
}

// PipelineConfig holds pipeline execution settings
type PipelineConfig struct {
	Threads int    `toml:"threads"`
	Kingdom string `toml:"kingdom"`
	// ContinueOnLaunchError restores the legacy behavior of running the
	// remaining stages even when a required tool could not be started.
	ContinueOnLaunchError bool `toml:"continue_on_launch_error"`
}

// DownloadConfig holds genome download settings
type DownloadConfig struct {
	Email       string `toml:"email"`
	Concurrency int    `toml:"concurrency"`
}

// WatchConfig holds watch-mode settings
type WatchConfig struct {
	SettleSeconds int    `toml:"settle_seconds"`
	Cron          string `toml:"cron"`
}

// NotificationsConfig holds notification settings
type NotificationsConfig struct {
	Desktop      bool   `toml:"desktop"`
	SlackWebhook string `toml:"slack_webhook"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		General: GeneralConfig{
			DatabasePath: filepath.Join(home, ".amrpipe", "amrpipe.db"),
		},
		Tools: ToolsConfig{
			Prokka:   "prokka",
			Abritamr: "abritamr",
		},
		Pipeline: PipelineConfig{
			Threads: 4,
			Kingdom: "Bacteria",
		},
		Download: DownloadConfig{
			Concurrency: 3,
		},
		Watch: WatchConfig{
			SettleSeconds: 5,
		},
		Notifications: NotificationsConfig{
			Desktop: false,
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.General.DatabasePath = ExpandPath(cfg.General.DatabasePath)
	cfg.Tools.Prokka = ExpandPath(cfg.Tools.Prokka)
	cfg.Tools.Abritamr = ExpandPath(cfg.Tools.Abritamr)

	return cfg, nil
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "amrpipe", "config.toml")
}
