// Package client fetches GitHub REST API pages through go-github with a static
// token, conditional-request caching and rate limit tracking.
package client

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/Sternrassler/gh-extract/pkg/cache"
	"github.com/Sternrassler/gh-extract/pkg/pagination"
	"github.com/Sternrassler/gh-extract/pkg/ratelimit"
)

const (
	// DefaultBaseURL is the public GitHub REST API.
	DefaultBaseURL = "https://api.github.com/"

	// DefaultUserAgent identifies the extractor to GitHub.
	DefaultUserAgent = "gh-extract"
)

// Client is the GitHub API client used by the walkers.
type Client struct {
	gh          *gh.Client
	httpClient  *http.Client
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the REST API, e.g. https://github.example.com/api/v3/ for
	// GitHub Enterprise.
	BaseURL string

	// Token is a personal access or OAuth token (REQUIRED).
	Token string

	UserAgent string

	// Timeout bounds each request. Zero means no timeout.
	Timeout time.Duration

	// Redis enables the page cache and shares rate limit state. Optional.
	Redis *redis.Client

	// CacheTTL is how long cached pages stay available for revalidation.
	CacheTTL time.Duration

	// Transport is the underlying round tripper, http.DefaultTransport when nil.
	Transport http.RoundTripper
}

// DefaultConfig returns the configuration for api.github.com.
func DefaultConfig(token string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		Token:     token,
		UserAgent: DefaultUserAgent,
		CacheTTL:  cache.DefaultTTL,
	}
}

// New creates a GitHub client.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("token is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" || baseURL.Host == "" {
		return nil, fmt.Errorf("base url must be an absolute http(s) URL, got %q", cfg.BaseURL)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Transport == nil {
		cfg.Transport = http.DefaultTransport
	}

	logger := log.With().Str("component", "client").Logger()

	// oauth2 sets "Bearer <token>"; the tracker shares state under the same
	// digest the cache keys use.
	scope := cache.CredentialScope("Bearer " + cfg.Token)
	rateLimiter := ratelimit.NewTracker(cfg.Redis, scope, log.With().Str("component", "ratelimit").Logger())

	var cacheManager *cache.Manager
	if cfg.Redis != nil {
		cacheManager = cache.NewManager(cfg.Redis, cfg.CacheTTL)
	}

	inner := &http.Client{Transport: &transport{
		base:    cfg.Transport,
		cache:   cacheManager,
		limiter: rateLimiter,
		logger:  log.With().Str("component", "cache").Logger(),
	}}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, inner)
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	tc := oauth2.NewClient(ctx, ts)
	tc.Timeout = cfg.Timeout

	ghClient := gh.NewClient(tc)
	ghClient.BaseURL = baseURL
	ghClient.UserAgent = cfg.UserAgent

	return &Client{
		gh:          ghClient,
		httpClient:  tc,
		rateLimiter: rateLimiter,
		cache:       cacheManager,
		config:      cfg,
		logger:      logger,
	}, nil
}

// BaseURL returns the API root without a trailing slash, the form entrypoint
// templates are joined to.
func (c *Client) BaseURL() string {
	return strings.TrimSuffix(c.gh.BaseURL.String(), "/")
}

// FetchPage implements pagination.Fetcher.
func (c *Client) FetchPage(ctx context.Context, pageURL string) (*pagination.Page, error) {
	body, resp, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	next, err := resolveNext(pageURL, ParseNextLink(resp.Header.Get("Link")))
	if err != nil {
		return nil, fmt.Errorf("parse next link of %s: %w", pageURL, err)
	}

	c.logger.Debug().
		Str("url", pageURL).
		Int("bytes", len(body)).
		Bool("last", next == "").
		Msg("Fetched page")

	return &pagination.Page{URL: pageURL, Body: body, Next: next}, nil
}

// Get fetches a single resource and returns its body.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	body, _, err := c.get(ctx, rawURL)
	return body, err
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, *gh.Response, error) {
	req, err := c.gh.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}

	var buf bytes.Buffer
	resp, err := c.gh.Do(ctx, req, &buf)
	if err != nil {
		return nil, resp, wrapError(err, rawURL)
	}
	return buf.Bytes(), resp, nil
}

// Quota returns the last observed core rate limit, or nil before the first
// response.
func (c *Client) Quota(ctx context.Context) (*ratelimit.State, error) {
	return c.rateLimiter.GetState(ctx, ratelimit.ResourceCore)
}

// Close releases idle connections. The Redis client belongs to the caller.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// GetCache returns the cache manager, nil without Redis (for testing).
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}
