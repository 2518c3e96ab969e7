package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	rateLimitRemaining = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ghextract_rate_limit_remaining",
		Help: "Requests remaining in the current GitHub rate limit window",
	}, []string{"resource"})

	rateLimitBlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghextract_rate_limit_blocks_total",
		Help: "Requests refused locally because the quota was exhausted",
	}, []string{"resource"})
)

// Tracker records rate limit headers and gates requests.
//
// State lives in memory. When a Redis client is configured it is also shared
// under the credential scope, so a later run learns about an exhausted quota
// without spending a request.
type Tracker struct {
	redis  *redis.Client
	scope  string
	logger zerolog.Logger

	mu     sync.Mutex
	states map[string]*State
}

// NewTracker creates a tracker. redisClient may be nil.
func NewTracker(redisClient *redis.Client, scope string, logger zerolog.Logger) *Tracker {
	if scope == "" {
		scope = "anon"
	}
	return &Tracker{
		redis:  redisClient,
		scope:  scope,
		logger: logger,
		states: make(map[string]*State),
	}
}

// GetState returns the last known state of a resource, or nil when nothing
// has been observed yet.
func (t *Tracker) GetState(ctx context.Context, resource string) (*State, error) {
	t.mu.Lock()
	state, ok := t.states[resource]
	t.mu.Unlock()
	if ok {
		copied := *state
		return &copied, nil
	}
	if t.redis == nil {
		return nil, nil
	}

	state, err := t.load(ctx, resource)
	if err != nil || state == nil {
		return nil, err
	}

	t.mu.Lock()
	t.states[resource] = state
	t.mu.Unlock()

	copied := *state
	return &copied, nil
}

func (t *Tracker) load(ctx context.Context, resource string) (*State, error) {
	remaining, err := t.redis.Get(ctx, t.key(RedisKeyRemaining, resource)).Int()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get remaining: %w", err)
	}

	limit, err := t.redis.Get(ctx, t.key(RedisKeyLimit, resource)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get limit: %w", err)
	}

	reset, err := t.redis.Get(ctx, t.key(RedisKeyReset, resource)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get reset: %w", err)
	}

	return &State{
		Resource:  resource,
		Limit:     limit,
		Remaining: remaining,
		Used:      limit - remaining,
		ResetAt:   time.Unix(reset, 0),
	}, nil
}

// UpdateFromHeaders parses X-RateLimit-* headers. Responses without them are ignored.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := headers.Get("X-RateLimit-Remaining")
	if remainStr == "" {
		return nil
	}

	remaining, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse X-RateLimit-Remaining header: %w", err)
	}

	resetStr := headers.Get("X-RateLimit-Reset")
	if resetStr == "" {
		return fmt.Errorf("X-RateLimit-Reset header missing")
	}
	reset, err := strconv.ParseInt(resetStr, 10, 64)
	if err != nil {
		return fmt.Errorf("parse X-RateLimit-Reset header: %w", err)
	}

	limit, _ := strconv.Atoi(headers.Get("X-RateLimit-Limit"))
	used, err := strconv.Atoi(headers.Get("X-RateLimit-Used"))
	if err != nil {
		used = limit - remaining
	}

	resource := headers.Get("X-RateLimit-Resource")
	if resource == "" {
		resource = ResourceCore
	}

	state := &State{
		Resource:   resource,
		Limit:      limit,
		Remaining:  remaining,
		Used:       used,
		ResetAt:    time.Unix(reset, 0),
		LastUpdate: time.Now(),
	}

	t.mu.Lock()
	t.states[resource] = state
	t.mu.Unlock()

	rateLimitRemaining.WithLabelValues(resource).Set(float64(remaining))

	if t.redis != nil {
		if err := t.store(ctx, state); err != nil {
			return err
		}
	}

	if state.Low() {
		t.logger.Warn().
			Str("resource", resource).
			Int("remaining", remaining).
			Int("limit", limit).
			Time("reset_at", state.ResetAt).
			Msg("GitHub rate limit low")
	} else {
		t.logger.Debug().
			Str("resource", resource).
			Int("remaining", remaining).
			Msg("Rate limit state updated")
	}

	return nil
}

func (t *Tracker) store(ctx context.Context, state *State) error {
	ttl := state.TimeUntilReset()
	if ttl <= 0 {
		ttl = time.Minute
	}

	pipe := t.redis.Pipeline()
	pipe.Set(ctx, t.key(RedisKeyRemaining, state.Resource), state.Remaining, ttl)
	pipe.Set(ctx, t.key(RedisKeyLimit, state.Resource), state.Limit, ttl)
	pipe.Set(ctx, t.key(RedisKeyReset, state.Resource), state.ResetAt.Unix(), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}
	return nil
}

// Allow returns an *ExhaustedError when the resource has no budget left before
// its reset. Unknown state is allowed.
func (t *Tracker) Allow(ctx context.Context, resource string) error {
	state, err := t.GetState(ctx, resource)
	if err != nil {
		t.logger.Warn().Err(err).Msg("Rate limit state unavailable, allowing request")
		return nil
	}
	if state == nil || !state.Exhausted() {
		return nil
	}

	rateLimitBlocksTotal.WithLabelValues(resource).Inc()
	t.logger.Error().
		Str("resource", resource).
		Dur("reset_in", state.TimeUntilReset()).
		Msg("GitHub rate limit exhausted - refusing request")

	return &ExhaustedError{Resource: resource, Limit: state.Limit, ResetAt: state.ResetAt}
}

func (t *Tracker) key(format, resource string) string {
	return fmt.Sprintf(format, t.scope, resource)
}
