package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParams_Query(t *testing.T) {
	since := time.Date(2024, 3, 9, 12, 30, 15, 999, time.FixedZone("JST", 9*3600))

	tests := []struct {
		name   string
		params Params
		want   string
	}{
		{
			name:   "defaults to max page size",
			params: Params{},
			want:   "per_page=100",
		},
		{
			name:   "fixed order",
			params: Params{Filter: "all", Since: since, State: StateAll, PerPage: 50, Sort: "updated", Direction: "desc"},
			want:   "per_page=50&state=all&sort=updated&direction=desc&since=2024-03-09T03%3A30%3A15Z&filter=all",
		},
		{
			name:   "omits empty values",
			params: Params{PerPage: 10, Filter: "latest"},
			want:   "per_page=10&filter=latest",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.params.Query())
		})
	}
}

func TestParams_Validate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())
	assert.NoError(t, Params{PerPage: 100, State: StateClosed}.Validate())
	assert.ErrorIs(t, Params{PerPage: 101}.Validate(), ErrPerPageTooLarge)
	assert.ErrorIs(t, Params{State: "merged"}.Validate(), ErrInvalidState)
	assert.Error(t, Params{PerPage: -1}.Validate())
}

func TestEntrypoint_URL(t *testing.T) {
	t.Run("repository listing", func(t *testing.T) {
		e := Entrypoint{
			Owner:  "rust-lang",
			Repo:   "rust",
			Path:   "/repos/{owner}/{repo}/issues",
			Params: Params{State: StateAll},
		}

		got, err := e.URL("https://api.github.com/")

		require.NoError(t, err)
		assert.Equal(t, "https://api.github.com/repos/rust-lang/rust/issues?per_page=100&state=all", got)
		assert.Equal(t, "rust-lang/rust", e.Repository())
	})

	t.Run("enterprise base without trailing slash", func(t *testing.T) {
		e := Entrypoint{Owner: "o", Repo: "r.js", Path: "/repos/{owner}/{repo}/labels"}

		got, err := e.URL("https://ghe.example.com/api/v3")

		require.NoError(t, err)
		assert.Equal(t, "https://ghe.example.com/api/v3/repos/o/r.js/labels?per_page=100", got)
	})

	t.Run("extra placeholders", func(t *testing.T) {
		e := Entrypoint{
			Owner:  "o",
			Repo:   "r",
			Path:   "/repos/{owner}/{repo}/actions/workflows/{workflow_id}/runs",
			Vars:   map[string]string{"workflow_id": "ci.yml"},
			Params: DefaultParams(),
		}

		got, err := e.URL("https://api.github.com/")

		require.NoError(t, err)
		assert.Equal(t, "https://api.github.com/repos/o/r/actions/workflows/ci.yml/runs?per_page=100", got)
	})

	t.Run("account scoped", func(t *testing.T) {
		e := Entrypoint{Path: "/users"}

		got, err := e.URL("https://api.github.com/")

		require.NoError(t, err)
		assert.Equal(t, "https://api.github.com/users?per_page=100", got)
		assert.Equal(t, "", e.Repository())
	})

	t.Run("rejects malformed names before any request", func(t *testing.T) {
		for _, owner := range []string{"", "..", "a/b", "own er", "o?x"} {
			e := Entrypoint{Owner: owner, Repo: "r", Path: "/repos/{owner}/{repo}/issues"}
			_, err := e.URL("https://api.github.com/")
			assert.ErrorIs(t, err, ErrInvalidEntrypoint, "owner %q", owner)
		}
	})

	t.Run("rejects unresolved placeholder", func(t *testing.T) {
		e := Entrypoint{Owner: "o", Repo: "r", Path: "/repos/{owner}/{repo}/actions/runs/{run_id}/jobs"}
		_, err := e.URL("https://api.github.com/")
		assert.ErrorIs(t, err, ErrInvalidEntrypoint)
	})

	t.Run("rejects bad base url", func(t *testing.T) {
		e := Entrypoint{Path: "/users"}
		_, err := e.URL("not a url")
		assert.ErrorIs(t, err, ErrInvalidEntrypoint)
	})

	t.Run("propagates params validation", func(t *testing.T) {
		e := Entrypoint{Path: "/users", Params: Params{PerPage: 500}}
		_, err := e.URL("https://api.github.com/")
		assert.ErrorIs(t, err, ErrPerPageTooLarge)
	})
}

func TestParseMode(t *testing.T) {
	tests := map[string]Mode{
		"":          ModeAuto,
		"auto":      ModeAuto,
		"server":    ModeServer,
		"last-item": ModeLastItem,
		"FILTER":    ModeLastItemFiltered,
	}
	for in, want := range tests {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMode("sometimes")
	assert.Error(t, err)

	assert.Equal(t, "last-item", ModeLastItem.String())
}

func TestSincePolicy(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := func(t time.Time) time.Time { return t }

	assert.Nil(t, NewSincePolicy(time.Time{}, ModeLastItem, ts), "zero threshold disables cutoff")
	assert.Nil(t, NewSincePolicy(since, ModeAuto, ts))

	p := NewSincePolicy(since, ModeLastItem, ts)
	require.NotNil(t, p)
	assert.True(t, p.Keep(since.Add(-time.Hour)), "last-item mode does not filter")
	assert.True(t, p.Stop(since.Add(-time.Second)))
	assert.False(t, p.Stop(since), "equal timestamps are not older")
	assert.False(t, p.Stop(since.Add(time.Second)))

	f := NewSincePolicy(since, ModeLastItemFiltered, ts)
	require.NotNil(t, f)
	assert.False(t, f.Keep(since.Add(-time.Second)))
	assert.True(t, f.Keep(since))
}
