package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xpertbrdev/thermal-print-service/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load("/nonexistent/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, time.Second, cfg.Queue.WorkerInterval)
	assert.Equal(t, 10*time.Second, cfg.Queue.WaitTimePerJob)
	assert.Equal(t, 50, cfg.Monitoring.MaxHistoryPerJob)
	assert.Equal(t, 9100, cfg.Printing.DefaultPort)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
database:
  path: /var/lib/prints.db
monitoring:
  retention_hours: 48
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/var/lib/prints.db", cfg.Database.Path)
	assert.Equal(t, 48, cfg.Monitoring.RetentionHours)

	// Untouched sections keep their defaults.
	assert.Equal(t, 10*time.Second, cfg.Queue.WaitTimePerJob)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TPS_PORT", "7000")
	t.Setenv("TPS_DB_PATH", "/tmp/test.db")
	t.Setenv("TPS_LOG_LEVEL", "debug")

	cfg := config.LoadFromEnv()
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	base := func() *config.Config {
		cfg, err := config.Load("/nonexistent/config.yaml")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Database.Path = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Queue.WorkerInterval = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Webhooks.WorkerCount = 0
	assert.Error(t, cfg.Validate())
}
