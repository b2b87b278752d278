package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.WebSocketAddress)
	assert.Equal(t, ":9090", cfg.Server.GRPCAddress)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownGrace)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 2*time.Minute, cfg.Timers.TurnLimit)
	assert.Equal(t, 30*time.Second, cfg.Timers.ResponseLimit)
	assert.Equal(t, time.Minute, cfg.Timers.RejoinWindow)
	assert.Empty(t, cfg.Database.URL)
	assert.Equal(t, "admin", cfg.Auth.AdminUser)
	assert.Empty(t, cfg.Auth.AdminPassword)
	assert.True(t, cfg.AI.Enabled)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.WebSocketAddress)
}

func TestLoadReadsYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  websocket_address: ":7100"
timers:
  turn_limit: 45s
ai:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7100", cfg.Server.WebSocketAddress)
	assert.Equal(t, ":9090", cfg.Server.GRPCAddress, "unset keys keep their defaults")
	assert.Equal(t, 45*time.Second, cfg.Timers.TurnLimit)
	assert.False(t, cfg.AI.Enabled)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  url: postgres://from-file\n"), 0o600))
	t.Setenv("DUEL_DATABASE_URL", "postgres://from-env")
	t.Setenv("DUEL_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://from-env", cfg.Database.URL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsNegativeClock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timers:\n  turn_limit: -5s\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "turn_limit")
}
