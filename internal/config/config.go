// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jobvago/scraper/internal/scrape"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Scrape   ScrapeConfig   `mapstructure:"scrape"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// PubSubConfig locates the dispatch queue.
type PubSubConfig struct {
	ProjectID        string `mapstructure:"project_id"`
	Queue            string `mapstructure:"queue"`
	EnvelopeMaxBytes int    `mapstructure:"envelope_max_bytes"`
}

// BrowserConfig controls the headless browser.
type BrowserConfig struct {
	Headless  bool   `mapstructure:"headless"`
	UserAgent string `mapstructure:"user_agent"`
}

// ScrapeConfig tunes the discovery state machine.
type ScrapeConfig struct {
	NavTimeoutSeconds int            `mapstructure:"nav_timeout_seconds"`
	PageDelayMs       int            `mapstructure:"page_delay_ms"`
	PageLimits        map[string]int `mapstructure:"page_limits"`
}

// ScheduleConfig governs the recurring run mode.
type ScheduleConfig struct {
	IntervalHours int `mapstructure:"interval_hours"`
	Port          int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("JOBVAGO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.queue", "")
	v.SetDefault("pubsub.envelope_max_bytes", 0)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.user_agent", "jobvago-bot/0.1")
	v.SetDefault("scrape.nav_timeout_seconds", 40)
	v.SetDefault("scrape.page_delay_ms", 1000)
	v.SetDefault("schedule.interval_hours", 6)
	v.SetDefault("schedule.port", 8081)
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits. Missing queue
// coordinates are configuration errors that abort before any site runs.
func (c Config) Validate() error {
	if c.PubSub.ProjectID == "" {
		return &scrape.ConfigurationError{Key: "pubsub.project_id", Reason: "required"}
	}
	if c.PubSub.Queue == "" {
		return &scrape.ConfigurationError{Key: "pubsub.queue", Reason: "required"}
	}
	if c.Scrape.NavTimeoutSeconds <= 0 {
		return fmt.Errorf("scrape.nav_timeout_seconds must be > 0")
	}
	if c.Scrape.PageDelayMs < 0 {
		return fmt.Errorf("scrape.page_delay_ms must be >= 0")
	}
	if c.Schedule.IntervalHours <= 0 {
		return fmt.Errorf("schedule.interval_hours must be > 0")
	}
	if c.Schedule.Port <= 0 {
		return fmt.Errorf("schedule.port must be > 0")
	}
	return nil
}

// NavTimeout returns the page navigation budget as a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Scrape.NavTimeoutSeconds) * time.Second
}
