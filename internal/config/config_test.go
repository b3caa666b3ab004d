package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutPath(t *testing.T) {
	t.Setenv("BLOCKTICK_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
world:
  seed: 12345
  random_tick_speed: -1
  save_interval: 30s
storage:
  data_path: /var/lib/blocktick
server:
  rest_port: 9000
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), cfg.World.Seed)
	assert.Equal(t, -1, cfg.World.RandomTickSpeed)
	assert.Equal(t, 30*time.Second, cfg.World.SaveInterval)
	assert.Equal(t, 20, cfg.World.TicksPerSecond, "не указанное остаётся по умолчанию")
	assert.Equal(t, "/var/lib/blocktick", cfg.Storage.GetDataPath())
	assert.Equal(t, 9000, cfg.Server.GetRESTPort())
}

func TestLoad_EnvPathAndInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("world:\n  ticks_per_second: 0\n"), 0o644))
	t.Setenv("BLOCKTICK_CONFIG", path)

	_, err := Load("")
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvFallbacks(t *testing.T) {
	t.Setenv("BLOCKTICK_REST_PORT", "7000")
	t.Setenv("BLOCKTICK_DATA_PATH", "/tmp/data")
	t.Setenv("BLOCKTICK_NATS_URL", "nats://nats:4222")

	cfg := Default()
	assert.Equal(t, 7000, cfg.Server.GetRESTPort())
	assert.Equal(t, "/tmp/data", cfg.Storage.GetDataPath())
	assert.Equal(t, "nats://nats:4222", cfg.EventBus.GetURL())

	t.Setenv("BLOCKTICK_REST_PORT", "garbage")
	assert.Equal(t, 8088, cfg.Server.GetRESTPort())
	assert.Equal(t, 24*time.Hour, cfg.EventBus.RetentionDuration())
}
