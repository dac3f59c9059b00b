// Package config provides configuration loading and validation for the service.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Config represents the service configuration. Values can be loaded from a
// JSON file and are overridden by environment variables. All fields are
// optional; missing values use defaults.
type Config struct {
	AppEnv      string `json:"app_env,omitempty" validate:"omitempty,oneof=development production test"`
	Port        int    `json:"port,omitempty" validate:"omitempty,gt=0,lt=65536"`
	DatabaseURL string `json:"database_url,omitempty"`
	APIKey      string `json:"api_key,omitempty"` // Gemini API key

	// Pipeline tuning
	MaxRepairAttempts int `json:"max_repair_attempts,omitempty" validate:"omitempty,gte=1,lte=10"`
	MaxModuleRetries  int `json:"max_module_retries,omitempty" validate:"omitempty,gte=0,lte=10"`

	// Scheduler tuning
	PollIntervalMs  int `json:"poll_interval_ms,omitempty" validate:"omitempty,gte=100"`
	WorkerCount     int `json:"worker_count,omitempty" validate:"omitempty,gte=1,lte=64"`
	StaleJobMinutes int `json:"stale_job_minutes,omitempty" validate:"omitempty,gte=1"`
}

// Defaults returns the baseline configuration.
func Defaults() Config {
	return Config{
		AppEnv:            "production",
		Port:              8080,
		MaxRepairAttempts: 5,
		MaxModuleRetries:  3,
		PollIntervalMs:    2000,
		WorkerCount:       4,
		StaleJobMinutes:   15,
	}
}

// Load reads configuration from an optional JSON file, applies environment
// overrides, fills defaults, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Config{}

	if path != "" {
		resolved := path
		if !filepath.IsAbs(resolved) {
			cwd, err := os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("failed to get current directory: %w", err)
			}
			resolved = filepath.Join(cwd, resolved)
		}
		data, err := os.ReadFile(resolved)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", resolved, err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	cfg.applyEnv()
	cfg = cfg.mergeWithDefaults(Defaults())

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overrides config fields from environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("APP_ENV"); v != "" {
		c.AppEnv = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.APIKey = v
	}
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// mergeWithDefaults returns a new Config with zero-valued fields filled from defaults.
func (c Config) mergeWithDefaults(defaults Config) Config {
	result := c
	if result.AppEnv == "" {
		result.AppEnv = defaults.AppEnv
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.MaxRepairAttempts == 0 {
		result.MaxRepairAttempts = defaults.MaxRepairAttempts
	}
	if result.MaxModuleRetries == 0 {
		result.MaxModuleRetries = defaults.MaxModuleRetries
	}
	if result.PollIntervalMs == 0 {
		result.PollIntervalMs = defaults.PollIntervalMs
	}
	if result.WorkerCount == 0 {
		result.WorkerCount = defaults.WorkerCount
	}
	if result.StaleJobMinutes == 0 {
		result.StaleJobMinutes = defaults.StaleJobMinutes
	}
	return result
}
