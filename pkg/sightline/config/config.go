// Package config loads pipeline configuration from YAML files.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sightline/sightline/pkg/sightline/internalerr"
)

// Config is the process configuration. Loaded once at startup and passed
// into constructors; nothing reads it globally.
type Config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Data struct {
		RawDir string `yaml:"raw_dir"`
	} `yaml:"data"`

	Schema struct {
		Fields     string `yaml:"fields"`
		Categories string `yaml:"categories"`
	} `yaml:"schema"`

	LLM struct {
		BaseURL   string `yaml:"base_url"`
		APIKeyEnv string `yaml:"api_key_env"`
		Model     string `yaml:"model"`
		CacheSize int    `yaml:"cache_size"`
	} `yaml:"llm"`

	MaxWorkers int    `yaml:"max_workers"`
	Schedule   string `yaml:"schedule"`
	Sector     string `yaml:"sector"`
}

// Load reads a YAML config file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cfg.Database.Path == "" {
		return nil, fmt.Errorf("load config: %w: database.path required", internalerr.ErrInvalidConfig)
	}
	if cfg.Schema.Fields == "" || cfg.Schema.Categories == "" {
		return nil, fmt.Errorf("load config: %w: schema.fields and schema.categories required", internalerr.ErrInvalidConfig)
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}
	if cfg.LLM.CacheSize <= 0 {
		cfg.LLM.CacheSize = 100
	}
	return &cfg, nil
}

// APIKey resolves the LLM API key from the configured environment
// variable. Empty when no variable is configured or set.
func (c *Config) APIKey() string {
	if c.LLM.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.LLM.APIKeyEnv)
}
