//go:build integration

package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestTracker_Integration_SharedState(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	ctx := context.Background()

	first := NewTracker(redisClient, "scope-a", logger)

	state, err := first.GetState(ctx, ResourceCore)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state != nil {
		t.Fatalf("GetState() on empty Redis = %+v, want nil", state)
	}

	reset := time.Now().Add(10 * time.Minute).Truncate(time.Second)
	headers := http.Header{}
	headers.Set("X-RateLimit-Limit", "5000")
	headers.Set("X-RateLimit-Remaining", "0")
	headers.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
	headers.Set("X-RateLimit-Resource", "core")

	if err := first.UpdateFromHeaders(ctx, headers); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	// A fresh tracker with the same scope sees the exhausted quota without a request.
	second := NewTracker(redisClient, "scope-a", logger)
	err = second.Allow(ctx, ResourceCore)

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("Allow() error = %v, want *ExhaustedError", err)
	}
	if !exhausted.ResetAt.Equal(reset) {
		t.Errorf("ResetAt = %v, want %v", exhausted.ResetAt, reset)
	}

	// Other credentials are unaffected.
	other := NewTracker(redisClient, "scope-b", logger)
	if err := other.Allow(ctx, ResourceCore); err != nil {
		t.Errorf("Allow() for other scope error = %v", err)
	}
}

func TestTracker_Integration_KeysExpireAtReset(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	tracker := NewTracker(redisClient, "scope-ttl", zerolog.Nop())
	ctx := context.Background()

	headers := http.Header{}
	headers.Set("X-RateLimit-Limit", "60")
	headers.Set("X-RateLimit-Remaining", "12")
	headers.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(2*time.Minute).Unix(), 10))

	if err := tracker.UpdateFromHeaders(ctx, headers); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	ttl, err := redisClient.TTL(ctx, tracker.key(RedisKeyRemaining, ResourceCore)).Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl <= 0 || ttl > 2*time.Minute {
		t.Errorf("key TTL = %v, want within the reset window", ttl)
	}
}

// Shared state outlives its window by up to a minute; an exhausted snapshot
// whose reset has passed must not block other processes.
func TestTracker_Integration_PastResetIsNotTrusted(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	writer := NewTracker(redisClient, "scope-old", zerolog.Nop())

	headers := http.Header{}
	headers.Set("X-RateLimit-Limit", "5000")
	headers.Set("X-RateLimit-Remaining", "0")
	headers.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(-time.Second).Unix(), 10))
	if err := writer.UpdateFromHeaders(ctx, headers); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	reader := NewTracker(redisClient, "scope-old", zerolog.Nop())
	state, err := reader.GetState(ctx, ResourceCore)
	if err != nil || state == nil {
		t.Fatalf("GetState() = %+v, %v, want the shared snapshot", state, err)
	}
	if state.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0", state.Remaining)
	}
	if err := reader.Allow(ctx, ResourceCore); err != nil {
		t.Errorf("Allow() error = %v, want nil once the window has reset", err)
	}
}
