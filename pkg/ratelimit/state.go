// Package ratelimit tracks the GitHub primary rate limit from X-RateLimit-*
// response headers and refuses requests once the quota is exhausted.
//
// The tracker never waits for a reset. Exhaustion is reported as an
// ExhaustedError so the caller can stop and report when the quota returns.
package ratelimit

import (
	"fmt"
	"time"
)

// ResourceCore is the quota bucket of the REST API.
const ResourceCore = "core"

// Redis keys for shared rate limit state. The %s verbs are the credential
// scope and the resource name.
const (
	RedisKeyRemaining = "gh:rate_limit:%s:%s:remaining"
	RedisKeyLimit     = "gh:rate_limit:%s:%s:limit"
	RedisKeyReset     = "gh:rate_limit:%s:%s:reset"
)

// LowQuotaFraction is the share of the limit below which a warning is logged.
const LowQuotaFraction = 0.1

// State is the last observed quota of one resource bucket.
type State struct {
	Resource string `json:"resource"`

	// Limit is the request budget of the window (X-RateLimit-Limit).
	Limit int `json:"limit"`

	// Remaining is the budget left (X-RateLimit-Remaining).
	Remaining int `json:"remaining"`

	// Used is the budget consumed (X-RateLimit-Used).
	Used int `json:"used"`

	// ResetAt is when the window resets (X-RateLimit-Reset, epoch seconds).
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when the headers were observed.
	LastUpdate time.Time `json:"last_update"`
}

// Exhausted reports whether no request is left before the reset.
func (s *State) Exhausted() bool {
	return s.Remaining <= 0 && time.Now().Before(s.ResetAt)
}

// Low reports whether the remaining budget fell under LowQuotaFraction of the limit.
func (s *State) Low() bool {
	return s.Limit > 0 && float64(s.Remaining) < float64(s.Limit)*LowQuotaFraction
}

// TimeUntilReset returns the duration until the window resets, 0 if it passed.
func (s *State) TimeUntilReset() time.Duration {
	d := time.Until(s.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}

// ExhaustedError is returned instead of sending a request that would be rejected.
type ExhaustedError struct {
	Resource string
	Limit    int
	ResetAt  time.Time
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("rate limit exhausted for %s (limit %d), resets at %s",
		e.Resource, e.Limit, e.ResetAt.UTC().Format(time.RFC3339))
}
