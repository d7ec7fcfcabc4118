package schedule

import (
	"fmt"
	"os"
	"time"

	"github.com/fedstats/fedsync/internal/domain"
	"github.com/pelletier/go-toml/v2"
)

// JobConfig represents one scheduled import
type JobConfig struct {
	Name        string        `toml:"name"`
	Cron        string        `toml:"cron"`
	Type        string        `toml:"type"`
	MaxDuration time.Duration `toml:"max_duration"`
}

// FileConfig holds all scheduled jobs
type FileConfig struct {
	Jobs []JobConfig `toml:"job"`
}

// RunType maps the configured type string onto a run type
func (c *JobConfig) RunType() domain.RunType {
	switch c.Type {
	case "incremental":
		return domain.RunIncremental
	default:
		return domain.RunFull
	}
}

// Validate checks if the config is valid
func (c *JobConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("job name is required")
	}
	if c.Cron == "" {
		return fmt.Errorf("cron expression is required")
	}
	if _, err := ParseCron(c.Cron); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	if c.Type != "" && c.Type != "full" && c.Type != "incremental" {
		return fmt.Errorf("unknown job type %q", c.Type)
	}
	if c.MaxDuration <= 0 {
		c.MaxDuration = 12 * time.Hour // Default
	}
	return nil
}

// LoadFile loads job configuration from a TOML file
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &FileConfig{}, nil
		}
		return nil, err
	}

	var cfg FileConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Validate all jobs
	for i := range cfg.Jobs {
		if err := cfg.Jobs[i].Validate(); err != nil {
			return nil, fmt.Errorf("job %d: %w", i, err)
		}
	}

	return &cfg, nil
}
