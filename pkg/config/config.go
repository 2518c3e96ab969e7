// Package config loads the extractor configuration.
//
// Values are layered: defaults, then the TOML file, then the environment.
// Command-line flags are applied last by the CLI.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Sternrassler/gh-extract/pkg/cache"
	"github.com/Sternrassler/gh-extract/pkg/client"
	"github.com/Sternrassler/gh-extract/pkg/logging"
)

// Environment variables read by Load.
const (
	EnvToken     = "GITHUB_API_TOKEN"
	EnvAPIURL    = "GITHUB_API_URL"
	EnvRedisURL  = "REDIS_URL"
	EnvLogLevel  = "GH_EXTRACT_LOG_LEVEL"
	EnvLogPretty = "GH_EXTRACT_LOG_PRETTY"
)

// ErrMissingToken is returned by Validate without an API token.
var ErrMissingToken = errors.New(EnvToken + " is not set")

// Config is the resolved configuration.
type Config struct {
	APIURL    string
	Token     string
	UserAgent string

	// Timeout bounds each request. Zero means no timeout.
	Timeout time.Duration

	// RedisURL enables the page cache and shared rate limit state when set,
	// e.g. redis://localhost:6379/0.
	RedisURL string
	CacheTTL time.Duration

	LogLevel  string
	LogPretty bool
}

// file mirrors config.toml. Pointers tell absent keys from zero values.
type file struct {
	APIURL    *string `toml:"api_url"`
	Token     *string `toml:"token"`
	UserAgent *string `toml:"user_agent"`
	Timeout   *string `toml:"timeout"`
	RedisURL  *string `toml:"redis_url"`
	CacheTTL  *string `toml:"cache_ttl"`
	LogLevel  *string `toml:"log_level"`
	LogPretty *bool   `toml:"log_pretty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		APIURL:    client.DefaultBaseURL,
		UserAgent: client.DefaultUserAgent,
		CacheTTL:  cache.DefaultTTL,
		LogLevel:  string(logging.LevelInfo),
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/gh-extract/config.toml, or the
// platform user config directory when XDG_CONFIG_HOME is unset.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		var err error
		if dir, err = os.UserConfigDir(); err != nil {
			return ""
		}
	}
	return filepath.Join(dir, "gh-extract", "config.toml")
}

// Load resolves defaults, the config file and the environment. An empty path
// reads DefaultPath if it exists; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		err := cfg.LoadFile(path)
		switch {
		case err == nil:
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return cfg, err
		}
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFile overlays the keys present in a TOML file.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&c.APIURL, f.APIURL)
	setString(&c.Token, f.Token)
	setString(&c.UserAgent, f.UserAgent)
	setString(&c.RedisURL, f.RedisURL)
	setString(&c.LogLevel, f.LogLevel)
	if f.LogPretty != nil {
		c.LogPretty = *f.LogPretty
	}
	if err := setDuration(&c.Timeout, f.Timeout, "timeout"); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := setDuration(&c.CacheTTL, f.CacheTTL, "cache_ttl"); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays the environment variables that are set.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvToken); v != "" {
		c.Token = v
	}
	if v := getenv(EnvAPIURL); v != "" {
		c.APIURL = v
	}
	if v := getenv(EnvRedisURL); v != "" {
		c.RedisURL = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := getenv(EnvLogPretty); v != "" {
		pretty, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvLogPretty, err)
		}
		c.LogPretty = pretty
	}
	return nil
}

// Validate checks the values needed before any request is made.
func (c Config) Validate() error {
	if c.Token == "" {
		return ErrMissingToken
	}

	u, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("invalid api_url %q: %w", c.APIURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api_url %q: must be an absolute http(s) URL", c.APIURL)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative (got %s)", c.Timeout)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl must not be negative (got %s)", c.CacheTTL)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.RedisURL != "" {
		if _, err := redis.ParseURL(c.RedisURL); err != nil {
			return fmt.Errorf("invalid redis_url: %w", err)
		}
	}
	return nil
}

// Redis opens a client for RedisURL, or returns nil when no URL is set.
func (c Config) Redis() (*redis.Client, error) {
	if c.RedisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(c.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis_url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Client returns the API client configuration. redisClient may be nil.
func (c Config) Client(redisClient *redis.Client) client.Config {
	return client.Config{
		BaseURL:   c.APIURL,
		Token:     c.Token,
		UserAgent: c.UserAgent,
		Timeout:   c.Timeout,
		Redis:     redisClient,
		CacheTTL:  c.CacheTTL,
	}
}

// Logging returns the logger configuration writing to stderr.
func (c Config) Logging() logging.Config {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		level = logging.LevelInfo
	}
	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Pretty = c.LogPretty
	return cfg
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *string, key string) error {
	if src == nil {
		return nil
	}
	d, err := time.ParseDuration(*src)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
