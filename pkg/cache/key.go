package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Key identifies a cached page.
type Key struct {
	// Host of the API, so enterprise and public responses never mix.
	Host string

	// Path is the request path, e.g. /repos/octo/hello/issues.
	Path string

	// Query holds the query parameters, including the page cursor.
	Query url.Values

	// Scope separates credentials. It is a short digest, never the token itself.
	Scope string
}

// KeyFor derives the cache key of a request.
func KeyFor(req *http.Request) Key {
	return Key{
		Host:  req.URL.Host,
		Path:  req.URL.Path,
		Query: req.URL.Query(),
		Scope: CredentialScope(req.Header.Get("Authorization")),
	}
}

// CredentialScope digests an Authorization header value. Responses can differ
// per token (private repositories), so the digest is part of the key.
func CredentialScope(authorization string) string {
	if authorization == "" {
		return "anon"
	}
	sum := sha256.Sum256([]byte(authorization))
	return hex.EncodeToString(sum[:6])
}

// String generates a deterministic key.
// Format: gh:host:path:q1=v1:q2=v2:auth=scope
//
// Example:
//
//	gh:api.github.com:repos/octo/hello/issues:page=2:per_page=100:auth=anon
func (k Key) String() string {
	parts := []string{"gh"}

	if k.Host != "" {
		parts = append(parts, k.Host)
	}

	if path := strings.Trim(k.Path, "/"); path != "" {
		parts = append(parts, path)
	}

	if len(k.Query) > 0 {
		names := make([]string, 0, len(k.Query))
		for name := range k.Query {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			values := append([]string(nil), k.Query[name]...)
			sort.Strings(values)
			parts = append(parts, name+"="+strings.Join(values, ","))
		}
	}

	scope := k.Scope
	if scope == "" {
		scope = "anon"
	}
	parts = append(parts, "auth="+scope)

	return strings.Join(parts, ":")
}
