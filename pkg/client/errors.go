package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	gh "github.com/google/go-github/v80/github"

	"github.com/Sternrassler/gh-extract/pkg/ratelimit"
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents an exhausted or abused quota.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// APIError is a failed GitHub request. Errors are never retried.
type APIError struct {
	// StatusCode is 0 when no response was received.
	StatusCode int
	Class      ErrorClass
	Message    string
	URL        string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("github %s error: %s (URL: %s)", e.Class, e.Message, e.URL)
	}
	return fmt.Sprintf("github %s error (status %d): %s (URL: %s)", e.Class, e.StatusCode, e.Message, e.URL)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsNotFound checks if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsUnauthorized checks if the error indicates an authentication failure.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Class == ErrorClassRateLimit {
		return true
	}
	var exhausted *ratelimit.ExhaustedError
	return errors.As(err, &exhausted)
}

// classifyStatus maps a response status to an error class. A 403 counts as
// rate limiting only when the quota headers say so.
func classifyStatus(status int, header http.Header) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status == http.StatusForbidden && header.Get("X-RateLimit-Remaining") == "0":
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// wrapError converts go-github and transport errors to *APIError.
func wrapError(err error, rawURL string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("get %s: %w", rawURL, err)
	}

	var exhausted *ratelimit.ExhaustedError
	if errors.As(err, &exhausted) {
		return &APIError{Class: ErrorClassRateLimit, Message: exhausted.Error(), URL: rawURL, Err: exhausted}
	}

	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return &APIError{
			StatusCode: statusOf(rateErr.Response),
			Class:      ErrorClassRateLimit,
			Message:    rateErr.Message,
			URL:        rawURL,
			Err:        err,
		}
	}

	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return &APIError{
			StatusCode: statusOf(abuseErr.Response),
			Class:      ErrorClassRateLimit,
			Message:    abuseErr.Message,
			URL:        rawURL,
			Err:        err,
		}
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) {
		status := statusOf(ghErr.Response)
		var header http.Header
		if ghErr.Response != nil {
			header = ghErr.Response.Header
		}
		message := ghErr.Message
		if message == "" {
			message = http.StatusText(status)
		}
		return &APIError{
			StatusCode: status,
			Class:      classifyStatus(status, header),
			Message:    message,
			URL:        rawURL,
			Err:        err,
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &APIError{Class: ErrorClassNetwork, Message: urlErr.Err.Error(), URL: rawURL, Err: err}
	}

	return fmt.Errorf("get %s: %w", rawURL, err)
}

func statusOf(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
