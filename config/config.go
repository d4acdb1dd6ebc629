package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config is the optional yaml configuration. Anything left out keeps its default.
type Config struct {
	Director DirectorConfig `yaml:"director"`
	Feeds    FeedsConfig    `yaml:"feeds"`
	Drawers  DrawersConfig  `yaml:"drawers"`
}

type DirectorConfig struct {
	BaseURL   string `yaml:"base_url"`   // director http api, e.g. http://localhost:8002
	EventsURL string `yaml:"events_url"` // director event socket, e.g. ws://localhost:8002/ws/dashboard
}

// FeedsConfig holds one capacity per channel. Capacities are never shared between channels.
type FeedsConfig struct {
	Vision   int `yaml:"vision"`
	Spoken   int `yaml:"spoken"`
	Audio    int `yaml:"audio"`
	Chat     int `yaml:"chat"`
	Interest int `yaml:"interest"`
}

type DrawersConfig struct {
	ThreadStatsInterval time.Duration `yaml:"thread_stats_interval"`
	PromptDebugInterval time.Duration `yaml:"prompt_debug_interval"`
	RequestTimeout      time.Duration `yaml:"request_timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		Director: DirectorConfig{
			BaseURL:   "http://localhost:8002",
			EventsURL: "ws://localhost:8002/ws/dashboard",
		},
		Feeds: FeedsConfig{
			Vision:   20,
			Spoken:   20,
			Audio:    20,
			Chat:     100,
			Interest: 50,
		},
		Drawers: DrawersConfig{
			ThreadStatsInterval: 2 * time.Second,
			PromptDebugInterval: 5 * time.Second,
			RequestTimeout:      5 * time.Second,
		},
	}
}

// LoadConfig loads configuration from a YAML file on top of DefaultConfig. An empty path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	capacities := map[string]int{
		"vision":   c.Feeds.Vision,
		"spoken":   c.Feeds.Spoken,
		"audio":    c.Feeds.Audio,
		"chat":     c.Feeds.Chat,
		"interest": c.Feeds.Interest,
	}
	for name, capacity := range capacities {
		if capacity <= 0 {
			return fmt.Errorf("feeds.%s must be positive, got %d: %w", name, capacity, ErrInvalidConfig)
		}
	}

	intervals := map[string]time.Duration{
		"thread_stats_interval": c.Drawers.ThreadStatsInterval,
		"prompt_debug_interval": c.Drawers.PromptDebugInterval,
		"request_timeout":       c.Drawers.RequestTimeout,
	}
	for name, interval := range intervals {
		if interval <= 0 {
			return fmt.Errorf("drawers.%s must be positive, got %s: %w", name, interval, ErrInvalidConfig)
		}
	}

	if c.Director.BaseURL == "" {
		return fmt.Errorf("director.base_url is required: %w", ErrInvalidConfig)
	}

	return nil
}
