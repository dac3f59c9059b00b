package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks the override variables so tests see only file values.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"APP_ENV", "PORT", "DATABASE_URL", "GEMINI_API_KEY"} {
		t.Setenv(key, "")
	}
}

func TestLoad_ValidJSON(t *testing.T) {
	clearEnv(t)
	content := `{
		"app_env": "development",
		"port": 9090,
		"database_url": "postgres://localhost/capsules",
		"max_repair_attempts": 3
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := Load(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "postgres://localhost/capsules", cfg.DatabaseURL)
	assert.Equal(t, 3, cfg.MaxRepairAttempts)
	// Unset fields fall back to defaults.
	assert.Equal(t, 3, cfg.MaxModuleRetries)
	assert.Equal(t, 4, cfg.WorkerCount)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	defaults := Defaults()
	assert.Equal(t, defaults.Port, cfg.Port)
	assert.Equal(t, defaults.AppEnv, cfg.AppEnv)
	assert.Equal(t, defaults.MaxRepairAttempts, cfg.MaxRepairAttempts)
	assert.Equal(t, defaults.PollIntervalMs, cfg.PollIntervalMs)
	assert.Equal(t, defaults.StaleJobMinutes, cfg.StaleJobMinutes)
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(`{ invalid json }`), 0644)
	require.NoError(t, err)

	cfg, err := Load(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	content := `{"port": 9090, "database_url": "postgres://file/db"}`
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))

	clearEnv(t)
	t.Setenv("PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("GEMINI_API_KEY", "env-key")

	cfg, err := Load(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "postgres://env/db", cfg.DatabaseURL)
	assert.Equal(t, "env-key", cfg.APIKey)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad app_env", `{"app_env": "staging"}`},
		{"port out of range", `{"port": 70000}`},
		{"repair attempts too high", `{"max_repair_attempts": 50}`},
		{"poll interval too low", `{"poll_interval_ms": 10}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			tmpFile := filepath.Join(t.TempDir(), "config.json")
			require.NoError(t, os.WriteFile(tmpFile, []byte(tt.content), 0644))

			cfg, err := Load(tmpFile)
			assert.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), "config validation failed")
		})
	}
}
