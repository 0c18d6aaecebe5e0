package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// YAMLConfig represents the structure of the config.yaml file.
// Tracking tuning and seed data that are easier to manage in YAML than env vars.
type YAMLConfig struct {
	Tracking TrackingConfig `yaml:"tracking"`
	Seed     []SeedDomain   `yaml:"seed"`
}

// TrackingConfig overrides the throttle and scheduling settings from the environment.
type TrackingConfig struct {
	PageInterval    time.Duration `yaml:"page_interval"`
	KeywordInterval time.Duration `yaml:"keyword_interval"`
	CheckInterval   time.Duration `yaml:"check_interval"`
	MaxAge          time.Duration `yaml:"max_age"`
}

// SeedDomain is a domain and its keywords created for a user at startup.
type SeedDomain struct {
	Owner    string   `yaml:"owner"` // user email
	Domain   string   `yaml:"domain"`
	Keywords []string `yaml:"keywords"`
}

// LoadYAMLConfig loads the YAML configuration file.
// Path is determined by CONFIG_FILE env var, defaulting to "config.yaml".
// Returns nil without error if the config file doesn't exist.
func LoadYAMLConfig() (*YAMLConfig, error) {
	path := getEnv("CONFIG_FILE", "config.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Config file is optional
			return nil, nil
		}
		return nil, err
	}

	return ParseYAMLConfig(data)
}

// ParseYAMLConfig decodes YAML configuration from data.
func ParseYAMLConfig(data []byte) (*YAMLConfig, error) {
	var cfg YAMLConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Apply copies non-zero tracking settings onto cfg.
func (y *YAMLConfig) Apply(cfg *Config) {
	if y == nil {
		return
	}
	t := y.Tracking
	if t.PageInterval > 0 {
		cfg.SearchPageInterval = t.PageInterval
	}
	if t.KeywordInterval > 0 {
		cfg.KeywordInterval = t.KeywordInterval
	}
	if t.CheckInterval > 0 {
		cfg.RankCheckInterval = t.CheckInterval
	}
	if t.MaxAge > 0 {
		cfg.RankCheckMaxAge = t.MaxAge
	}
}
