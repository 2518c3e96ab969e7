package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/gh-extract/pkg/cache"
	"github.com/Sternrassler/gh-extract/pkg/client"
	"github.com/Sternrassler/gh-extract/pkg/logging"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{EnvToken, EnvAPIURL, EnvRedisURL, EnvLogLevel, EnvLogPretty} {
		t.Setenv(name, "")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, client.DefaultBaseURL, cfg.APIURL)
	assert.Equal(t, cache.DefaultTTL, cfg.CacheTTL)
	assert.Zero(t, cfg.Timeout, "no request timeout by default")
	assert.Empty(t, cfg.RedisURL)
}

func TestLoad_Precedence(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
api_url = "https://github.example.com/api/v3"
token = "from-file"
timeout = "45s"
cache_ttl = "2h"
log_level = "debug"
log_pretty = true
`)
	t.Setenv(EnvToken, "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Token, "environment overrides the file")
	assert.Equal(t, "https://github.example.com/api/v3", cfg.APIURL)
	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.Equal(t, 2*time.Hour, cfg.CacheTTL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.LogPretty)
	assert.Equal(t, client.DefaultUserAgent, cfg.UserAgent, "absent keys keep defaults")
}

func TestLoad_DefaultPath(t *testing.T) {
	clearEnv(t)
	dir := os.Getenv("XDG_CONFIG_HOME")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "gh-extract"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gh-extract", "config.toml"), []byte(`redis_url = "redis://localhost:6379/2"`), 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "redis://localhost:6379/2", cfg.RedisURL)
}

func TestLoad_MissingFiles(t *testing.T) {
	clearEnv(t)

	_, err := Load("")
	assert.NoError(t, err, "a missing default file is fine")

	_, err = Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist, "an explicit file must exist")
}

func TestLoad_InvalidFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(writeConfig(t, `timeout = "soon"`))
	assert.ErrorContains(t, err, "timeout")

	_, err = Load(writeConfig(t, `token = `))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvAPIURL:    "http://localhost:8080/",
		EnvRedisURL:  "redis://cache:6379/0",
		EnvLogLevel:  "warn",
		EnvLogPretty: "true",
	}
	cfg := Default()

	require.NoError(t, cfg.ApplyEnv(func(k string) string { return env[k] }))

	assert.Equal(t, "http://localhost:8080/", cfg.APIURL)
	assert.Equal(t, "redis://cache:6379/0", cfg.RedisURL)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.True(t, cfg.LogPretty)

	env[EnvLogPretty] = "sometimes"
	assert.Error(t, cfg.ApplyEnv(func(k string) string { return env[k] }))
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.Token = "token"

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing token", func(c *Config) { c.Token = "" }, true},
		{"relative api url", func(c *Config) { c.APIURL = "api.github.com" }, true},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, true},
		{"negative cache ttl", func(c *Config) { c.CacheTTL = -time.Second }, true},
		{"unknown log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"bad redis url", func(c *Config) { c.RedisURL = "http://localhost" }, true},
		{"redis url", func(c *Config) { c.RedisURL = "redis://localhost:6379/1" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	empty := valid
	empty.Token = ""
	assert.ErrorIs(t, empty.Validate(), ErrMissingToken)
}

func TestRedis(t *testing.T) {
	cfg := Default()

	rdb, err := cfg.Redis()
	require.NoError(t, err)
	assert.Nil(t, rdb)

	cfg.RedisURL = "redis://localhost:6379/3"
	rdb, err = cfg.Redis()
	require.NoError(t, err)
	defer rdb.Close()
	assert.Equal(t, 3, rdb.Options().DB)
}

func TestClientAndLogging(t *testing.T) {
	cfg := Default()
	cfg.Token = "token"
	cfg.Timeout = 10 * time.Second
	cfg.LogLevel = "error"
	cfg.LogPretty = true

	cc := cfg.Client(nil)
	assert.Equal(t, "token", cc.Token)
	assert.Equal(t, client.DefaultBaseURL, cc.BaseURL)
	assert.Equal(t, 10*time.Second, cc.Timeout)
	assert.Nil(t, cc.Redis)

	lc := cfg.Logging()
	assert.Equal(t, logging.LevelError, lc.Level)
	assert.True(t, lc.Pretty)
}
