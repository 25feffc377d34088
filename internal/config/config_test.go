package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points CONFIG_PATH at a file that does not exist so a stray
// config.yaml cannot leak into the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "json", cfg.Storage.Backend)
	assert.Equal(t, "songs_data.json", cfg.Storage.DataFile)
	assert.True(t, cfg.Storage.SeedSamples)
	assert.Equal(t, "uploads", cfg.Media.UploadDir)
	assert.Equal(t, "broadcast", cfg.Redis.Channel)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, []string{"http://localhost:5000", "http://127.0.0.1:5000"}, cfg.Security.CORSOrigins)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "9000")
	t.Setenv("STORAGE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://catalog@localhost/catalog")
	t.Setenv("SEED_SAMPLES", "false")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Storage.Backend)
	assert.Equal(t, "postgres://catalog@localhost/catalog", cfg.Storage.DatabaseURL)
	assert.False(t, cfg.Storage.SeedSamples)
	assert.Equal(t, 2*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.CORSOrigins)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_FileThenEnv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7000
storage:
  backend: badger
  badger_dir: /var/lib/catalog
redis:
  url: redis://localhost:6379/0
security:
  cors_origins:
    - https://yaml.example
  rate_limit_rps: 5
`), 0o644))
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("PORT", "7100")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7100, cfg.Server.Port, "env wins over file")
	assert.Equal(t, "badger", cfg.Storage.Backend)
	assert.Equal(t, "/var/lib/catalog", cfg.Storage.BadgerDir)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, []string{"https://yaml.example"}, cfg.Security.CORSOrigins)
	assert.Equal(t, 5, cfg.Security.RateLimitRPS)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown backend":      {"STORAGE_BACKEND": "sqlite"},
		"postgres without url": {"STORAGE_BACKEND": "postgres"},
		"port out of range":    {"PORT": "70000"},
		"short secret":         {"JWT_SECRET": "short"},
		"unknown log format":   {"LOG_FORMAT": "xml"},
		"negative rate limit":  {"RATE_LIMIT_RPS": "-1"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	assert.Equal(t, "server.port", envTransformFunc("PORT"))
	assert.Equal(t, "security.cors_origins", envTransformFunc("CORS_ALLOWED_ORIGINS"))
	assert.Equal(t, "", envTransformFunc("HOME"))
}
