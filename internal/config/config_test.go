package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTOML = `
log_level = "debug"

[defaults]
base_url = "https://api.example.com"
timeout = "5s"
verify = "no"
follow = true
max_redirects = 3

[defaults.headers]
User-Agent = "quicpulse-test"

[hooks]
pre_request = "hooks/pre.js"

[server]
host = "127.0.0.1"
port = "9999"

[history]
driver = "sqlite"
datasource = "quicpulse.db"
`

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad_ParsesDefaultsHooksAndServer(t *testing.T) {
	path := writeTempConfig(t, sampleTOML)

	cfg, err := Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.Defaults.BaseURL)
	assert.Equal(t, "no", cfg.Defaults.Verify)
	assert.True(t, cfg.Defaults.Follow)
	assert.Equal(t, 3, cfg.Defaults.MaxRedirects)
	assert.Equal(t, "quicpulse-test", cfg.Defaults.Headers["User-Agent"])

	assert.Equal(t, "hooks/pre.js", cfg.Hooks.PreRequest)
	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.History.Driver)
}

func TestLoad_EnvOverridesTOML(t *testing.T) {
	path := writeTempConfig(t, sampleTOML)

	t.Setenv("QP_DEFAULTS_BASE_URL", "https://override.example.com")

	cfg, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "https://override.example.com", cfg.Defaults.BaseURL)
}

func TestDir_HonorsEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("QUICPULSE_CONFIG_DIR", dir)

	got, err := Dir()
	require.NoError(t, err)
	assert.Equal(t, dir, got)
}
