// Package config loads the torstats YAML configuration.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Reddit  Reddit  `yaml:"reddit"`
	Crawl   Crawl   `yaml:"crawl"`
	Engage  Engage  `yaml:"engage"`
	Discord Discord `yaml:"discord"`
	Server  Server  `yaml:"server"`
	Output  Output  `yaml:"output"`
}

type Reddit struct {
	BaseURL        string `yaml:"base_url"`
	UserAgent      string `yaml:"user_agent"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type Crawl struct {
	BatchSize       int      `yaml:"batch_size"`
	IntervalSeconds int      `yaml:"interval_seconds"`
	HomeSubreddit   string   `yaml:"home_subreddit"`
	Ignore          []string `yaml:"ignore"`
	ScanAtStartup   bool     `yaml:"scan_at_startup"`
}

type Engage struct {
	IntervalSeconds int `yaml:"interval_seconds"`
	WindowHours     int `yaml:"window_hours"`
	FetchRetries    int `yaml:"fetch_retries"`
}

type Discord struct {
	TokenEnv     string `yaml:"token_env"`
	GammaChannel string `yaml:"gamma_channel"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

// ConfigDir returns the XDG config directory for torstats.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "torstats")
}

// DataDir returns the XDG data directory for torstats.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "torstats")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/torstats/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'torstats init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults and validating
// hard limits.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Reddit: Reddit{
			UserAgent:      "torstats/1.0 (transcription stats crawler)",
			TimeoutSeconds: 15,
		},
		Crawl: Crawl{
			BatchSize:       100,
			IntervalSeconds: 60,
			HomeSubreddit:   "TranscribersOfReddit",
		},
		Engage: Engage{
			IntervalSeconds: 60,
			WindowHours:     24,
			FetchRetries:    3,
		},
		Discord: Discord{
			TokenEnv: "DISCORD_TOKEN",
		},
		Server: Server{Port: 8000},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Reddit rejects listing requests above 100; a bigger configured batch
	// is a misconfiguration, not something to clamp silently.
	if cfg.Crawl.BatchSize < 1 || cfg.Crawl.BatchSize > 100 {
		return nil, fmt.Errorf("crawl.batch_size must be between 1 and 100, got %d", cfg.Crawl.BatchSize)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
