package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "brand-navigator", cfg.Service.Name)
	assert.False(t, cfg.Service.DevMode)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 9090, cfg.Server.GRPCPort)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "brands", cfg.NATS.SubjectPrefix)
	assert.Empty(t, cfg.NATS.URL)
	assert.Empty(t, cfg.Tracing.Endpoint)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRatio)
}

func TestLoad_Tracing(t *testing.T) {
	t.Setenv("BRANDNAV_TRACING_ENDPOINT", "otel-collector:4317")
	t.Setenv("BRANDNAV_TRACING_SAMPLE_RATIO", "0.25")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "otel-collector:4317", cfg.Tracing.Endpoint)
	assert.Equal(t, 0.25, cfg.Tracing.SampleRatio)

	t.Setenv("BRANDNAV_TRACING_SAMPLE_RATIO", "1.5")
	_, err = Load("")
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BRANDNAV_SERVICE_DEV_MODE", "true")
	t.Setenv("BRANDNAV_SERVER_PORT", "8181")
	t.Setenv("BRANDNAV_DATABASE_DRIVER", "memory")
	t.Setenv("BRANDNAV_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.Service.DevMode)
	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
service:
  environment: staging
  dev_mode: true
database:
  driver: memory
nats:
  url: nats://localhost:4222
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Service.Environment)
	assert.True(t, cfg.Service.DevMode)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("BRANDNAV_DATABASE_DRIVER", "mysql")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Parallel()

	d := DatabaseConfig{User: "u", Password: "p", Host: "db", Port: 5433, Database: "brands", SSLMode: "require"}
	assert.Equal(t, "postgres://u:p@db:5433/brands?sslmode=require", d.DSN())
}
