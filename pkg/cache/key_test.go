package cache

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
)

func TestKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "path only",
			key: Key{
				Path: "/users/",
			},
			want: "gh:users:auth=anon",
		},
		{
			name: "host and query (sorted)",
			key: Key{
				Host: "api.github.com",
				Path: "/repos/octo/hello/issues",
				Query: url.Values{
					"state":    []string{"all"},
					"per_page": []string{"100"},
					"page":     []string{"2"},
				},
			},
			want: "gh:api.github.com:repos/octo/hello/issues:page=2:per_page=100:state=all:auth=anon",
		},
		{
			name: "credential scope",
			key: Key{
				Host:  "ghe.example.com",
				Path:  "/api/v3/repos/octo/hello/labels",
				Scope: "0a1b2c3d4e5f",
			},
			want: "gh:ghe.example.com:api/v3/repos/octo/hello/labels:auth=0a1b2c3d4e5f",
		},
		{
			name: "repeated query values are sorted",
			key: Key{
				Path:  "/search",
				Query: url.Values{"q": []string{"b", "a"}},
			},
			want: "gh:search:q=a,b:auth=anon",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.key.String()
			if got != tt.want {
				t.Errorf("Key.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKeyFor(t *testing.T) {
	req, _ := http.NewRequest("GET", "https://api.github.com/repos/octo/hello/issues?per_page=100&page=3", nil)
	anon := KeyFor(req)

	req.Header.Set("Authorization", "Bearer secret-token")
	authed := KeyFor(req)

	if anon.String() == authed.String() {
		t.Fatal("keys for different credentials must differ")
	}
	if authed.Scope == "" || authed.Scope == "anon" {
		t.Errorf("Scope = %q, want digest", authed.Scope)
	}
	if got := authed.String(); strings.Contains(got, "secret-token") {
		t.Errorf("key %q leaks the token", got)
	}
	if authed.Query.Get("page") != "3" {
		t.Errorf("page query = %q, want 3", authed.Query.Get("page"))
	}
}

func TestCredentialScope_Deterministic(t *testing.T) {
	first := CredentialScope("Bearer abc")
	for i := 0; i < 10; i++ {
		if got := CredentialScope("Bearer abc"); got != first {
			t.Errorf("CredentialScope() = %v, want %v (not deterministic)", got, first)
		}
	}
	if CredentialScope("Bearer abc") == CredentialScope("Bearer abd") {
		t.Error("different tokens share a scope")
	}
}
