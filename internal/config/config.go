// Package config loads tutord configuration from YAML with environment
// overrides, and supports hot reload of the reloadable fields.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all tutord configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	LLM       LLMConfig       `yaml:"llm"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LLMConfig configures the language-model collaborator.
type LLMConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// RetrievalConfig configures the vector-search collaborator.
type RetrievalConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Syllabus string        `yaml:"syllabus"`
	Timeout  time.Duration `yaml:"timeout"`
	Limit    int           `yaml:"limit"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "data/tutor.db",
		},
		LLM: LLMConfig{
			Model:   "gemini-2.0-flash",
			Timeout: 30 * time.Second,
		},
		Retrieval: RetrievalConfig{
			BaseURL: "http://localhost:6380",
			Timeout: 10 * time.Second,
			Limit:   5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the config file at path (optional) and applies environment
// overrides on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyEnvOverrides layers AITUTOR_* variables (and the conventional
// GEMINI_API_KEY) over the file values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AITUTOR_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("AITUTOR_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("AITUTOR_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("AITUTOR_RETRIEVAL_URL"); v != "" {
		cfg.Retrieval.BaseURL = v
	}
	if v := os.Getenv("AITUTOR_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
