// Package testutil provides a mock GitHub REST API for tests.
package testutil

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// DefaultPerPage is the page size GitHub uses when per_page is absent.
const DefaultPerPage = 30

// MockResponse defines a fixed response for a path.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
}

type listing struct {
	items    []any
	envelope string
}

// MockGitHub serves paged listings the way the REST API does: per_page and
// page query parameters, absolute Link headers, ETags and 304 answers to
// matching If-None-Match headers.
type MockGitHub struct {
	server *httptest.Server

	mu        sync.RWMutex
	listings  map[string]listing
	objects   map[string]string
	handlers  map[string]http.HandlerFunc
	remaining int

	// Tracking
	requests         []string
	conditionalCount int
	lastHeader       http.Header
}

// NewMockGitHub starts a mock server. Unknown paths answer 404.
func NewMockGitHub() *MockGitHub {
	mock := &MockGitHub{
		listings:  make(map[string]listing),
		objects:   make(map[string]string),
		handlers:  make(map[string]http.HandlerFunc),
		remaining: 5000,
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requests = append(mock.requests, r.URL.RequestURI())
		mock.lastHeader = r.Header.Clone()
		if r.Header.Get("If-None-Match") != "" {
			mock.conditionalCount++
		}
		mock.remaining--
		remaining := mock.remaining
		handler, hasHandler := mock.handlers[r.URL.Path]
		list, hasListing := mock.listings[r.URL.Path]
		object, hasObject := mock.objects[r.URL.Path]
		mock.mu.Unlock()

		w.Header().Set("X-RateLimit-Limit", "5000")
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
		w.Header().Set("X-RateLimit-Resource", "core")

		switch {
		case hasHandler:
			handler(w, r)
		case hasListing:
			mock.servePage(w, r, list)
		case hasObject:
			writeJSON(w, r, []byte(object), "")
		default:
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message": "Not Found", "documentation_url": "https://docs.github.com/rest"}`))
		}
	}))

	return mock
}

// URL returns the mock server URL, usable as the API base URL.
func (m *MockGitHub) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockGitHub) Close() {
	m.server.Close()
}

// SetListing serves items as a JSON array listing at path.
func (m *MockGitHub) SetListing(path string, items []any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings[path] = listing{items: items}
}

// SetEnvelopeListing serves items inside {"total_count": n, key: [...]}, the
// shape of the Actions listings.
func (m *MockGitHub) SetEnvelopeListing(path, key string, items []any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings[path] = listing{items: items, envelope: key}
}

// SetObject serves a single JSON document at path.
func (m *MockGitHub) SetObject(path, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = body
}

// SetHandler sets a custom handler for a specific path.
func (m *MockGitHub) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockGitHub) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetRemaining sets the rate limit budget reported by the next response.
func (m *MockGitHub) SetRemaining(remaining int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remaining = remaining + 1
}

// Requests returns the request URIs received so far, in order.
func (m *MockGitHub) Requests() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.requests...)
}

// RequestCount returns the number of requests for path, any query.
func (m *MockGitHub) RequestCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, uri := range m.requests {
		if u, err := url.Parse(uri); err == nil && u.Path == path {
			n++
		}
	}
	return n
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockGitHub) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conditionalCount
}

// LastRequestHeader returns the headers of the latest request.
func (m *MockGitHub) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader.Clone()
}

// Reset clears all tracking state.
func (m *MockGitHub) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.conditionalCount = 0
	m.lastHeader = nil
}

func (m *MockGitHub) servePage(w http.ResponseWriter, r *http.Request, list listing) {
	query := r.URL.Query()

	perPage := DefaultPerPage
	if v := query.Get("per_page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, `{"message": "invalid per_page"}`, http.StatusUnprocessableEntity)
			return
		}
		perPage = min(n, 100)
	}
	page := 1
	if v := query.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, `{"message": "invalid page"}`, http.StatusUnprocessableEntity)
			return
		}
		page = n
	}

	start := min((page-1)*perPage, len(list.items))
	end := min(start+perPage, len(list.items))
	items := list.items[start:end]
	if items == nil {
		items = []any{}
	}

	var payload any = items
	if list.envelope != "" {
		payload = map[string]any{"total_count": len(list.items), list.envelope: items}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	lastPage := max((len(list.items)+perPage-1)/perPage, 1)
	link := ""
	if page < lastPage {
		link = fmt.Sprintf(`<%s>; rel="next", <%s>; rel="last"`,
			m.pageURL(r, page+1), m.pageURL(r, lastPage))
	}
	writeJSON(w, r, body, link)
}

func (m *MockGitHub) pageURL(r *http.Request, page int) string {
	query := r.URL.Query()
	query.Set("page", strconv.Itoa(page))
	return m.server.URL + r.URL.Path + "?" + query.Encode()
}

func writeJSON(w http.ResponseWriter, r *http.Request, body []byte, link string) {
	sum := sha256.Sum256(body)
	etag := fmt.Sprintf(`"%x"`, sum[:8])

	if link != "" {
		w.Header().Set("Link", link)
	}
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// Items builds n listing items with build(i) for i in [0, n).
func Items(n int, build func(i int) map[string]any) []any {
	items := make([]any, n)
	for i := range items {
		items[i] = build(i)
	}
	return items
}

// Timestamp formats t the way the API does.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// NewRateLimitedResponse creates a 403 response with an exhausted quota.
func NewRateLimitedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusForbidden,
		Body:       `{"message": "API rate limit exceeded"}`,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10),
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 502 Bad Gateway response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusBadGateway,
		Body:       `{"message": "Server Error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
