package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "rounds.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.TextModel)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.VisionModel)
	assert.Equal(t, 2048, cfg.Anthropic.MaxTokens)
	assert.Equal(t, 60, cfg.Anthropic.TimeoutSecs)
	assert.False(t, cfg.Extract.GridFill)
	assert.Equal(t, 4, cfg.Extract.MaxConcurrent)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 120, cfg.Server.RateLimitPerMin)
	assert.Equal(t, 12, cfg.Auth.TokenTTLHours)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/rounds
log:
  level: debug
  format: console
server:
  port: 9090
extract:
  grid_fill: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/rounds", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Extract.GridFill)
	// Defaults still apply for unset values
	assert.Equal(t, 2048, cfg.Anthropic.MaxTokens)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("ROUNDS_STORE_DRIVER", "postgres")
	t.Setenv("ROUNDS_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("ROUNDS_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	valid := Config{
		Store:     StoreConfig{Driver: "sqlite", DatabaseURL: "rounds.db"},
		Anthropic: AnthropicConfig{Key: "sk-test"},
		Auth:      AuthConfig{JWTSecret: "secret"},
	}
	assert.NoError(t, valid.Validate())

	noSecret := valid
	noSecret.Auth.JWTSecret = ""
	assert.Error(t, noSecret.Validate())

	noKey := valid
	noKey.Anthropic.Key = ""
	assert.Error(t, noKey.Validate())

	badDriver := valid
	badDriver.Store.Driver = "oracle"
	assert.Error(t, badDriver.Validate())

	pgNoURL := valid
	pgNoURL.Store.Driver = "postgres"
	pgNoURL.Store.DatabaseURL = ""
	assert.Error(t, pgNoURL.Validate())
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}
