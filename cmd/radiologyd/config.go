// Package main provides the RadiologyAI processing daemon.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the daemon configuration.
type Config struct {
	DataDir    string           `yaml:"data_dir"`
	Watch      WatchConfig      `yaml:"watch"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Storage    StorageConfig    `yaml:"storage"`
	Server     ServerConfig     `yaml:"server"`
	Notify     NotifyConfig     `yaml:"notify"`
	Escalation EscalationConfig `yaml:"escalation"`
	Retention  RetentionConfig  `yaml:"retention"`
	Verbose    bool             `yaml:"verbose"`
}

// WatchConfig contains file monitor settings.
type WatchConfig struct {
	SettleDelay      time.Duration `yaml:"settle_delay"`       // wait before first size check (default: 2s)
	SettleRecheck    time.Duration `yaml:"settle_recheck"`     // gap between size checks (default: 500ms)
	MaxSettleRetries int           `yaml:"max_settle_retries"` // settle attempts before giving up (default: 5)
	Workers          int           `yaml:"workers"`            // processing worker pool size (default: 4)
	RescanInterval   time.Duration `yaml:"rescan_interval"`    // polling fallback (default: 30s)
}

// ExtractionConfig selects and configures the extraction backend.
type ExtractionConfig struct {
	Mode            string        `yaml:"mode"` // local or remote (default: local)
	URL             string        `yaml:"url"`
	APIKey          string        `yaml:"api_key"`
	Timeout         time.Duration `yaml:"timeout"`
	RatePerSecond   float64       `yaml:"rate_per_second"`
	BreakerFailures uint32        `yaml:"breaker_failures"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
}

// ClassifierConfig contains condition dictionary settings.
type ClassifierConfig struct {
	ConditionsFile string `yaml:"conditions_file"` // optional YAML dictionary override
}

// StorageConfig contains alert database settings.
type StorageConfig struct {
	Path string `yaml:"path"` // SQLite database path
}

// ServerConfig contains the HTTP API settings.
type ServerConfig struct {
	HTTPAddress string `yaml:"http_address"`
}

// NotifyConfig contains notification channel settings.
type NotifyConfig struct {
	Slack     SlackNotifyConfig `yaml:"slack"`
	Email     EmailNotifyConfig `yaml:"email"`
	RateLimit RateLimitConfig   `yaml:"rate_limit"`
}

// SlackNotifyConfig configures the Slack webhook channel.
type SlackNotifyConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// EmailNotifyConfig configures the SMTP channel.
type EmailNotifyConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Host       string   `yaml:"host"`
	Port       int      `yaml:"port"`
	Username   string   `yaml:"username"`
	Password   string   `yaml:"password"`
	From       string   `yaml:"from"`
	Recipients []string `yaml:"recipients"`
}

// RateLimitConfig bounds new-alert notifications.
type RateLimitConfig struct {
	MaxPerWindow int           `yaml:"max_per_window"`
	Window       time.Duration `yaml:"window"`
	Disabled     bool          `yaml:"disabled"`
}

// EscalationConfig contains escalation sweeper settings.
type EscalationConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval"` // default: 30s
}

// RetentionConfig controls archive cleanup.
type RetentionConfig struct {
	Days     int           `yaml:"days"`     // delete processed files older than this (default: 30, 0 disables)
	Interval time.Duration `yaml:"interval"` // cleanup cadence (default: 24h)
}

// DefaultConfig returns a configuration with production defaults.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.Watch.SettleDelay <= 0 {
		c.Watch.SettleDelay = 2 * time.Second
	}
	if c.Watch.SettleRecheck <= 0 {
		c.Watch.SettleRecheck = 500 * time.Millisecond
	}
	if c.Watch.MaxSettleRetries <= 0 {
		c.Watch.MaxSettleRetries = 5
	}
	if c.Watch.Workers <= 0 {
		c.Watch.Workers = 4
	}
	if c.Watch.RescanInterval <= 0 {
		c.Watch.RescanInterval = 30 * time.Second
	}
	if c.Extraction.Mode == "" {
		c.Extraction.Mode = "local"
	}
	if c.Extraction.Timeout <= 0 {
		c.Extraction.Timeout = 60 * time.Second
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "data/alerts.db"
	}
	if c.Server.HTTPAddress == "" {
		c.Server.HTTPAddress = ":8080"
	}
	if c.Escalation.SweepInterval <= 0 {
		c.Escalation.SweepInterval = 30 * time.Second
	}
	if c.Retention.Days < 0 {
		c.Retention.Days = 0
	}
	if c.Retention.Days == 0 && c.Retention.Interval == 0 {
		c.Retention.Days = 30
	}
	if c.Retention.Interval <= 0 {
		c.Retention.Interval = 24 * time.Hour
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Extraction.Mode {
	case "local":
	case "remote":
		if c.Extraction.URL == "" {
			return fmt.Errorf("extraction.url is required for remote mode")
		}
	default:
		return fmt.Errorf("extraction.mode must be local or remote, got %q", c.Extraction.Mode)
	}
	if c.Notify.Slack.Enabled && c.Notify.Slack.WebhookURL == "" {
		return fmt.Errorf("notify.slack.webhook_url is required when slack is enabled")
	}
	if c.Notify.Email.Enabled {
		if c.Notify.Email.Host == "" {
			return fmt.Errorf("notify.email.host is required when email is enabled")
		}
		if len(c.Notify.Email.Recipients) == 0 {
			return fmt.Errorf("notify.email.recipients is required when email is enabled")
		}
	}
	return nil
}
