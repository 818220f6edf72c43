package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	fileContent := `
telegram:
  bot_token: "file-token"
monitor:
  check_interval: 10m
storage:
  data_dir: "/from/file"
rate_limit:
  requests_per_minute: 30
`
	require.NoError(t, os.WriteFile(configPath, []byte(fileContent), 0600))

	// Environment overrides the file
	t.Setenv("STORYWATCH_DATA_DIR", "/from/env")
	t.Setenv("STORYWATCH_BOT_TOKEN", "")

	// Flags override everything
	flags := map[string]interface{}{
		"check-interval": 20 * time.Minute,
	}

	cfg, err := Load(configPath, flags)
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.Telegram.BotToken)
	assert.Equal(t, "/from/env", cfg.Storage.DataDir)
	assert.Equal(t, 20*time.Minute, cfg.Monitor.CheckInterval)
	assert.Equal(t, 30, cfg.RateLimit.RequestsPerMinute)

	// Untouched values keep their defaults
	assert.Equal(t, 2*time.Second, cfg.Monitor.AccountDelay)
	assert.Equal(t, "users.json", cfg.Storage.UsersFile)
}

func TestLoadRejectsInvalidFinalConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	require.NoError(t, os.WriteFile(configPath, []byte(`
monitor:
  check_interval: -1s
`), 0600))
	t.Setenv("STORYWATCH_BOT_TOKEN", "token")

	_, err := Load(configPath, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check interval")
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()

	cfg.MergeCommandLineFlags(map[string]interface{}{
		"bot-token":           "flag-token",
		"session-id":          "flag-session",
		"data-dir":            "/flag/data",
		"requests-per-minute": 15,
		"log-level":           "debug",
	})

	assert.Equal(t, "flag-token", cfg.Telegram.BotToken)
	assert.Equal(t, "flag-session", cfg.Instagram.SessionID)
	assert.Equal(t, "/flag/data", cfg.Storage.DataDir)
	assert.Equal(t, 15, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Empty and zero values are ignored
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"bot-token":           "",
		"requests-per-minute": 0,
	})
	assert.Equal(t, "flag-token", cfg.Telegram.BotToken)
	assert.Equal(t, 15, cfg.RateLimit.RequestsPerMinute)
}
