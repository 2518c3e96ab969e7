package client

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/gh-extract/pkg/cache"
	"github.com/Sternrassler/gh-extract/pkg/ratelimit"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghextract_requests_total",
		Help: "GitHub API requests by route and status",
	}, []string{"route", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ghextract_request_duration_seconds",
		Help:    "GitHub API request duration in seconds by route",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"route"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghextract_errors_total",
		Help: "GitHub API errors by class",
	}, []string{"class"})
)

var numericSegment = regexp.MustCompile(`^[0-9]+$`)

// route collapses a request path into a low-cardinality metric label.
//
//	/repos/octo/hello/actions/runs/42/jobs -> /repos/:owner/:repo/actions/runs/:id/jobs
func route(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		switch {
		case i > 0 && segments[i-1] == "repos" && i+1 < len(segments):
			segments[i] = ":owner"
			segments[i+1] = ":repo"
		case seg == ":repo":
		case numericSegment.MatchString(seg):
			segments[i] = ":id"
		}
	}
	return "/" + strings.Join(segments, "/")
}

// transport gates, caches and observes every API request. It sits beneath the
// oauth2 transport so the Authorization header is already set when the cache
// key is derived.
type transport struct {
	base    http.RoundTripper
	cache   *cache.Manager
	limiter *ratelimit.Tracker
	logger  zerolog.Logger
}

// RoundTrip implements http.RoundTripper.
func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := route(req.URL.Path)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: refuse locally when the quota is known to be exhausted
	if err := t.limiter.Allow(ctx, ratelimit.ResourceCore); err != nil {
		requestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
		errorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
		return nil, err
	}

	// Step 2: revalidate a cached page instead of downloading it again
	var (
		key    cache.Key
		cached *cache.Entry
	)
	if t.cache != nil && req.Method == http.MethodGet {
		key = cache.KeyFor(req)
		entry, err := t.cache.Get(ctx, key)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			t.logger.Warn().Err(err).Str("route", endpoint).Msg("Cache get error")
		}
		if cache.ShouldMakeConditionalRequest(entry) {
			cached = entry
			req = req.Clone(ctx)
			cache.AddConditionalHeaders(req, cached)
			cache.ConditionalRequestsSent.Inc()
			t.logger.Debug().Str("url", req.URL.String()).Str("etag", cached.ETag).Msg("Making conditional request")
		}
	}

	t.logger.Debug().Str("method", req.Method).Str("url", req.URL.String()).Msg("Executing GitHub request")

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		t.logger.Error().Err(err).Str("route", endpoint).Msg("HTTP request failed")
		return nil, err
	}

	if err := t.limiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
		t.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
	}
	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	switch {
	case resp.StatusCode == http.StatusNotModified && cached != nil:
		resp.Body.Close()
		cache.NotModified.Inc()
		if err := t.cache.UpdateTTL(ctx, key, time.Now().Add(t.cache.TTL())); err != nil {
			t.logger.Warn().Err(err).Msg("Failed to update cache TTL")
		}
		t.logger.Debug().Str("url", req.URL.String()).Msg("304 Not Modified - using cache")
		return cache.EntryToResponse(cached, req, resp.Header), nil

	case resp.StatusCode == http.StatusOK && t.cache != nil && req.Method == http.MethodGet:
		entry, err := cache.ResponseToEntry(resp, t.cache.TTL())
		if err != nil {
			return nil, err
		}
		if entry.ETag == "" && entry.LastModified.IsZero() {
			return resp, nil
		}
		if err := t.cache.Set(ctx, key, entry); err != nil {
			t.logger.Warn().Err(err).Msg("Failed to cache response")
		} else {
			t.logger.Debug().Str("url", req.URL.String()).Dur("ttl", entry.TTL()).Msg("Cached response")
		}

	case resp.StatusCode >= 400:
		class := classifyStatus(resp.StatusCode, resp.Header)
		errorsTotal.WithLabelValues(string(class)).Inc()
		t.logger.Warn().
			Str("route", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("GitHub request error")
	}

	return resp, nil
}
