package resource

import (
	"encoding/json"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"

	"github.com/Sternrassler/gh-extract/pkg/pagination"
)

// listDelimiter joins label names and logins into one cell.
const listDelimiter = ","

func timePtr(ts *gh.Timestamp) *time.Time {
	if ts == nil {
		return nil
	}
	t := ts.Time
	return &t
}

// firstTime returns the first non-nil timestamp.
func firstTime(stamps ...*gh.Timestamp) time.Time {
	for _, ts := range stamps {
		if ts != nil {
			return ts.Time
		}
	}
	return time.Time{}
}

func userID(u *gh.User) *int64 {
	if u == nil {
		return nil
	}
	return u.ID
}

func userLogin(u *gh.User) *string {
	if u == nil {
		return nil
	}
	return u.Login
}

func labelNames(labels []*gh.Label) string {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		if name := l.GetName(); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, listDelimiter)
}

func logins(users []*gh.User) string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		if login := u.GetLogin(); login != "" {
			out = append(out, login)
		}
	}
	return strings.Join(out, listDelimiter)
}

// jsonText renders v as compact JSON for a single cell. Values passed here are
// plain data and always marshal.
func jsonText(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// pageOnly keeps the page size and drops filters the listing does not accept.
func pageOnly(p pagination.Params) pagination.Params {
	return pagination.Params{PerPage: p.PerPage}
}
