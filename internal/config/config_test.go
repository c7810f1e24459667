package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("", "")
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "http://localhost:8000", cfg.Runner.URL)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.True(t, cfg.IsDev())
}

func TestLoadConfig_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: PROD
storage:
  driver: postgres
runner:
  url: http://runner:9000/
  timeout: 30s
db:
  host: db
  port: 6543
auth:
  okta_domain: https://example.okta.com/
`), 0o600))

	t.Setenv("FLOWBUILDER_DB_PASSWORD", "s3cret")

	cfg, err := LoadConfig("", path)
	require.NoError(t, err)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "http://runner:9000", cfg.Runner.URL)
	assert.Equal(t, 30*time.Second, cfg.Runner.Timeout)
	assert.Equal(t, "https://example.okta.com", cfg.Auth.OktaDomain)
	assert.Equal(t, "s3cret", cfg.DB.Password)
	assert.Contains(t, cfg.DSN(), "host=db port=6543")
}

func TestLoadConfig_EnvFile(t *testing.T) {
	t.Chdir(t.TempDir())
	envPath := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("FLOWBUILDER_RUNNER_URL=http://from-env:1234\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("FLOWBUILDER_RUNNER_URL") })

	cfg, err := LoadConfig(envPath, "")
	require.NoError(t, err)
	assert.Equal(t, "http://from-env:1234", cfg.Runner.URL)
}

func TestLoadConfig_ExplicitMissingFile(t *testing.T) {
	_, err := LoadConfig("", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
