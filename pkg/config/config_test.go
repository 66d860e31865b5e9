package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestInitLoadsConfigFromEnvPath(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
  mode: release
mysql:
  host: db.internal
  port: 3306
  user: jfrhub
  database: jfrhub
inbox:
  dir: /var/lib/jfrhub/workspaces/.events
  workspaces_dir: /var/lib/jfrhub/workspaces
  watch_enabled: true
jobs:
  replicator_period_seconds: 15
  session_grace_period_minutes: 10
downloads:
  parallelism: 4
`)
	t.Setenv("CONFIG_PATH", path)

	require.NoError(t, Init())

	assert.Equal(t, 8080, GlobalConfig.Server.Port)
	assert.Equal(t, "release", GlobalConfig.Server.Mode)
	assert.Equal(t, "db.internal", GlobalConfig.MySQL.Host)
	assert.True(t, GlobalConfig.Inbox.WatchEnabled)
	assert.Equal(t, 15, GlobalConfig.Jobs.ReplicatorPeriodSeconds)
	assert.Equal(t, 10, GlobalConfig.Jobs.SessionGracePeriodMinutes)
	assert.Equal(t, 4, GlobalConfig.Downloads.Parallelism)
}

func TestInitMissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, Init())
}

func TestInitRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a mapping")
	t.Setenv("CONFIG_PATH", path)
	assert.Error(t, Init())
}

func TestInitLeavesUnsetSectionsZero(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")
	t.Setenv("CONFIG_PATH", path)

	require.NoError(t, Init())

	// Unset periods stay zero; callers substitute their defaults.
	assert.Zero(t, GlobalConfig.Jobs.SynchronizerPeriodSeconds)
	assert.Zero(t, GlobalConfig.Downloads.CompletedTaskTTLMinutes)
	assert.Empty(t, GlobalConfig.Redis.Addr)
}
