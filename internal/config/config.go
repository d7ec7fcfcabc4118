package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	General GeneralConfig  `toml:"general"`
	Source  SourceConfig   `toml:"source"`
	Import  ImportConfig   `toml:"import"`
	Web     WebConfig      `toml:"web"`
	Sched   ScheduleConfig `toml:"schedule"`
	Notify  NotifyConfig   `toml:"notify"`
}

// GeneralConfig holds general settings
type GeneralConfig struct {
	DatabasePath string `toml:"database_path"`
}

// SourceConfig holds external-source settings
type SourceConfig struct {
	BaseURL          string        `toml:"base_url"`
	MinInterval      time.Duration `toml:"min_interval"`
	FetchConcurrency int           `toml:"fetch_concurrency"`
	HTTPTimeout      time.Duration `toml:"http_timeout"`
}

// ImportConfig holds run settings
type ImportConfig struct {
	MaxDuration   time.Duration `toml:"max_duration"`
	BatchSize     int           `toml:"batch_size"`
	WarnThreshold float64       `toml:"warn_threshold"`
}

// WebConfig holds control-surface server settings
type WebConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// ScheduleConfig points at the cron schedule file
type ScheduleConfig struct {
	File string `toml:"file"`
}

// NotifyConfig holds run-outcome notification settings
type NotifyConfig struct {
	SlackWebhook string `toml:"slack_webhook"`
	Desktop      bool   `toml:"desktop"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		General: GeneralConfig{
			DatabasePath: filepath.Join(home, ".fedsync", "fedsync.db"),
		},
		Source: SourceConfig{
			BaseURL:          "https://ratings.example.org",
			MinInterval:      500 * time.Millisecond,
			FetchConcurrency: 4,
			HTTPTimeout:      30 * time.Second,
		},
		Import: ImportConfig{
			MaxDuration:   12 * time.Hour,
			BatchSize:     50,
			WarnThreshold: 0.9,
		},
		Web: WebConfig{
			Port: 8080,
			Host: "127.0.0.1",
		},
		Sched: ScheduleConfig{
			File: filepath.Join(home, ".fedsync", "schedule.toml"),
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

	// Expand paths
	cfg.General.DatabasePath = ExpandPath(cfg.General.DatabasePath)
	cfg.Sched.File = ExpandPath(cfg.Sched.File)

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
	return filepath.Join(home, ".config", "fedsync", "config.toml")
}
