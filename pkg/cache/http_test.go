package cache

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"
)

func TestResponseToEntry(t *testing.T) {
	tests := []struct {
		name    string
		resp    *http.Response
		wantErr bool
	}{
		{
			name: "response with validators",
			resp: &http.Response{
				StatusCode: 200,
				Header: http.Header{
					"Last-Modified": []string{time.Now().Add(-1 * time.Hour).UTC().Format(http.TimeFormat)},
					"Etag":          []string{`W/"abc123"`},
					"Link":          []string{`<https://api.github.com/users?since=46>; rel="next"`},
				},
				Body: io.NopCloser(bytes.NewReader([]byte(`[{"id": 1}]`))),
			},
		},
		{
			name: "response without validators",
			resp: &http.Response{
				StatusCode: 200,
				Header:     http.Header{},
				Body:       io.NopCloser(bytes.NewReader([]byte(`[]`))),
			},
		},
		{
			name:    "nil response",
			resp:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := ResponseToEntry(tt.resp, time.Hour)
			if (err != nil) != tt.wantErr {
				t.Errorf("ResponseToEntry() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}

			body, _ := io.ReadAll(tt.resp.Body)
			if !bytes.Equal(body, entry.Body) {
				t.Errorf("restored body = %s, want %s", body, entry.Body)
			}
			if entry.ETag != tt.resp.Header.Get("ETag") {
				t.Errorf("ETag = %v, want %v", entry.ETag, tt.resp.Header.Get("ETag"))
			}
			if ttl := entry.TTL(); ttl < 59*time.Minute || ttl > time.Hour {
				t.Errorf("TTL() = %v, want about 1h", ttl)
			}
		})
	}
}

func TestResponseToEntry_DefaultTTL(t *testing.T) {
	resp := &http.Response{StatusCode: 200, Header: http.Header{}, Body: io.NopCloser(bytes.NewReader(nil))}

	entry, err := ResponseToEntry(resp, 0)
	if err != nil {
		t.Fatalf("ResponseToEntry() error = %v", err)
	}
	if ttl := entry.TTL(); ttl < DefaultTTL-time.Minute {
		t.Errorf("TTL() = %v, want about %v", ttl, DefaultTTL)
	}
}

func TestEntryToResponse(t *testing.T) {
	entry := &Entry{
		Body:       []byte(`[{"id": 1}]`),
		ETag:       `"abc"`,
		StatusCode: 200,
		Header: http.Header{
			"Link":                  []string{`<https://api.github.com/x?page=2>; rel="next"`},
			"X-Ratelimit-Remaining": []string{"4000"},
		},
	}
	fresh := http.Header{"X-Ratelimit-Remaining": []string{"3999"}}
	req, _ := http.NewRequest("GET", "https://api.github.com/x", nil)

	resp := EntryToResponse(entry, req, fresh)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("Link"); got == "" {
		t.Error("cached Link header lost")
	}
	if got := resp.Header.Get("X-RateLimit-Remaining"); got != "3999" {
		t.Errorf("X-RateLimit-Remaining = %q, want fresh value 3999", got)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `[{"id": 1}]` {
		t.Errorf("body = %s", body)
	}
	if resp.Request != req {
		t.Error("Request not set")
	}
	if entry.Header.Get("X-RateLimit-Remaining") != "4000" {
		t.Error("cached entry headers were modified")
	}
}

func TestShouldMakeConditionalRequest(t *testing.T) {
	tests := []struct {
		name  string
		entry *Entry
		want  bool
	}{
		{
			name:  "nil entry",
			entry: nil,
			want:  false,
		},
		{
			name:  "entry with ETag",
			entry: &Entry{ETag: `"abc123"`},
			want:  true,
		},
		{
			name:  "entry with Last-Modified",
			entry: &Entry{LastModified: time.Now()},
			want:  true,
		},
		{
			name:  "entry without validators",
			entry: &Entry{Body: []byte("data")},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldMakeConditionalRequest(tt.entry); got != tt.want {
				t.Errorf("ShouldMakeConditionalRequest() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAddConditionalHeaders(t *testing.T) {
	tests := []struct {
		name       string
		entry      *Entry
		wantHeader string
		wantValue  string
	}{
		{
			name:       "If-None-Match with ETag",
			entry:      &Entry{ETag: `"abc123"`},
			wantHeader: "If-None-Match",
			wantValue:  `"abc123"`,
		},
		{
			name:       "If-Modified-Since with Last-Modified",
			entry:      &Entry{LastModified: time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)},
			wantHeader: "If-Modified-Since",
			wantValue:  "Sun, 01 Jan 2023 12:00:00 GMT",
		},
		{
			name: "prefer ETag over Last-Modified",
			entry: &Entry{
				ETag:         `"abc123"`,
				LastModified: time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC),
			},
			wantHeader: "If-None-Match",
			wantValue:  `"abc123"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", "https://api.github.com", nil)
			AddConditionalHeaders(req, tt.entry)

			if got := req.Header.Get(tt.wantHeader); got != tt.wantValue {
				t.Errorf("Header %s = %v, want %v", tt.wantHeader, got, tt.wantValue)
			}
		})
	}
}

func TestAddConditionalHeaders_NilInputs(t *testing.T) {
	AddConditionalHeaders(nil, &Entry{ETag: "test"})
	AddConditionalHeaders(&http.Request{}, nil)
	AddConditionalHeaders(&http.Request{}, &Entry{ETag: "test"})
}

func TestResponseToEntry_Lifetime(t *testing.T) {
	resp := &http.Response{StatusCode: 200, Header: http.Header{}, Body: io.NopCloser(bytes.NewReader(nil))}

	before := time.Now()
	entry, err := ResponseToEntry(resp, 90*time.Minute)
	if err != nil {
		t.Fatalf("ResponseToEntry() error = %v", err)
	}

	if entry.StoredAt.Before(before) || entry.StoredAt.After(time.Now()) {
		t.Errorf("StoredAt = %v, want the conversion time", entry.StoredAt)
	}
	if got := entry.Expires.Sub(entry.StoredAt); got != 90*time.Minute {
		t.Errorf("Expires - StoredAt = %v, want 1h30m", got)
	}
	if entry.IsExpired() {
		t.Error("fresh entry reported expired")
	}

	entry.Expires = time.Now().Add(-time.Second)
	if !entry.IsExpired() || entry.TTL() != 0 {
		t.Errorf("past entry: IsExpired() = %v, TTL() = %v, want true and 0", entry.IsExpired(), entry.TTL())
	}
}

// The manager stores entries as JSON; a cached page must still carry its Link
// header when served again, or the walk would stop after it.
func TestEntry_HeaderSurvivesEncoding(t *testing.T) {
	entry := &Entry{
		Body:       []byte(`[]`),
		ETag:       `"p2"`,
		StatusCode: http.StatusOK,
		Header: http.Header{
			"Link":         {`<https://api.github.com/repos/octo/hello/issues?page=3>; rel="next"`},
			"Content-Type": {"application/json; charset=utf-8"},
		},
		Expires: time.Now().Add(time.Hour),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded Entry
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, "https://api.github.com/repos/octo/hello/issues?page=2", nil)
	resp := EntryToResponse(&decoded, req, http.Header{"X-Ratelimit-Remaining": {"4999"}})

	if got := resp.Header.Get("Link"); got != entry.Header.Get("Link") {
		t.Errorf("Link = %q, want %q", got, entry.Header.Get("Link"))
	}
	if got := resp.Header.Get("X-RateLimit-Remaining"); got != "4999" {
		t.Errorf("X-RateLimit-Remaining = %q, want fresh value", got)
	}
}
