// Package config holds all sysNERD configuration.
// Defaults mirror the shipped assistant behavior; a yaml file and a small
// set of environment variables can override them.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all sysNERD configuration.
type Config struct {
	// Ollama backend settings
	Ollama OllamaConfig `yaml:"ollama"`

	// Command execution settings
	Execution ExecutionConfig `yaml:"execution"`

	// Investigation loop settings
	Loop LoopConfig `yaml:"loop"`

	// Safety policy (denylist + flag patterns)
	Safety SafetyConfig `yaml:"safety"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// OllamaConfig configures the model backend.
type OllamaConfig struct {
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	Temperature    float64 `yaml:"temperature"`
	TopP           float64 `yaml:"top_p"`
	RequestTimeout string  `yaml:"request_timeout"`
}

// ExecutionConfig configures the command executor.
type ExecutionConfig struct {
	// MaxExecutionTime is the per-command wall-clock timeout.
	MaxExecutionTime string `yaml:"max_execution_time"`

	// DryRun simulates execution without spawning processes.
	DryRun bool `yaml:"dry_run"`
}

// LoopConfig bounds the investigation loop.
type LoopConfig struct {
	// MaxIterations is the hard cap on model/execute cycles per query.
	MaxIterations int `yaml:"max_iterations"`

	// MaxHistory caps retained conversation entries to bound context growth.
	MaxHistory int `yaml:"max_history"`
}

// SafetyConfig is the injectable denylist policy.
// Empty fields fall back to the built-in policy at construction time.
type SafetyConfig struct {
	// Commands maps a blocked command name to its block reason.
	Commands map[string]string `yaml:"commands"`

	// FlagPatterns are substrings that block a command wherever they appear.
	FlagPatterns []string `yaml:"flag_patterns"`
}

// LoggingConfig configures the dual-sink logger.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warning, error
	Dir   string `yaml:"dir"`
	File  string `yaml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Ollama: OllamaConfig{
			BaseURL:        "http://localhost:11434",
			Model:          "mistral:latest",
			Temperature:    0.1,
			TopP:           0.9,
			RequestTimeout: "60s",
		},
		Execution: ExecutionConfig{
			MaxExecutionTime: "30s",
			DryRun:           false,
		},
		Loop: LoopConfig{
			MaxIterations: 4,
			MaxHistory:    50,
		},
		Logging: LoggingConfig{
			Level: "warning",
			Dir:   "logs",
			File:  "sysnerd.log",
		},
	}
}

// Load reads a yaml config file over the defaults.
// A missing file is not an error; the defaults are returned unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				cfg.applyEnvOverrides()
				return cfg, nil
			}
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides applies environment variables on top of file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		c.Ollama.BaseURL = v
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		c.Ollama.Model = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// GetRequestTimeout returns the backend request timeout as a duration.
func (c *Config) GetRequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.Ollama.RequestTimeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetExecutionTimeout returns the per-command timeout as a duration.
func (c *Config) GetExecutionTimeout() time.Duration {
	d, err := time.ParseDuration(c.Execution.MaxExecutionTime)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ollama.BaseURL == "" {
		return fmt.Errorf("ollama base_url is required")
	}
	if c.Ollama.Model == "" {
		return fmt.Errorf("ollama model is required")
	}
	if c.Loop.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1, got %d", c.Loop.MaxIterations)
	}
	if c.GetExecutionTimeout() <= 0 {
		return fmt.Errorf("max_execution_time must be positive")
	}
	return nil
}
