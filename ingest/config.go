package ingest

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full ingester configuration.
type Config struct {
	Listen    string          `yaml:"listen"`
	DBPath    string          `yaml:"db_path"`
	Roots     []string        `yaml:"roots"`
	Workers   int             `yaml:"workers"`
	MaxFileMB int             `yaml:"max_file_mb"`
	Stdout    bool            `yaml:"stdout"`
	Webhooks  []WebhookTarget `yaml:"webhooks"`
	Queue     QueueConfig     `yaml:"queue"`
	Retry     RetryConfig     `yaml:"retry"`
}

// WebhookTarget configures a downstream webhook.
type WebhookTarget struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// QueueConfig tunes the work queue.
type QueueConfig struct {
	Visibility   time.Duration `yaml:"visibility"`
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxAttempts  int           `yaml:"max_attempts"`
}

// RetryConfig bounds delivery retries.
type RetryConfig struct {
	MaxTries int           `yaml:"max_tries"`
	MaxTime  time.Duration `yaml:"max_time"`
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:    ":8080",
		DBPath:    "ingestkit.db",
		Workers:   4,
		MaxFileMB: 100,
		Retry: RetryConfig{
			MaxTries: 5,
			MaxTime:  2 * time.Minute,
		},
	}
}

// LoadConfig reads and parses a YAML config file. Returns DefaultConfig
// merged with the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be > 0")
	}
	if c.MaxFileMB <= 0 {
		return fmt.Errorf("max_file_mb must be > 0")
	}
	for i, wh := range c.Webhooks {
		if wh.URL == "" {
			return fmt.Errorf("webhook[%d]: url is required", i)
		}
	}
	return nil
}

// MaxFileBytes returns max file size in bytes.
func (c *Config) MaxFileBytes() int64 { return int64(c.MaxFileMB) * 1024 * 1024 }
