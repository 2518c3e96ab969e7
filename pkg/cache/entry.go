package cache

import (
	"net/http"
	"time"
)

// Entry is a cached page response.
type Entry struct {
	// Body is the raw response body.
	Body []byte `json:"body"`

	// ETag is sent back as If-None-Match.
	ETag string `json:"etag"`

	// LastModified is sent back as If-Modified-Since when there is no ETag.
	LastModified time.Time `json:"last_modified"`

	StatusCode int         `json:"status_code"`
	Header     http.Header `json:"header"`

	// StoredAt is when the entry was written.
	StoredAt time.Time `json:"stored_at"`

	// Expires is when the entry is evicted. It bounds how long a page is
	// revalidated rather than refetched.
	Expires time.Time `json:"expires"`
}

// IsExpired returns true if the entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration, 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
