package pagination

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MaxPerPage is the GitHub hard cap for page size.
const MaxPerPage = 100

// SinceLayout is the timestamp format GitHub accepts for the since parameter.
const SinceLayout = "2006-01-02T15:04:05Z"

var (
	// ErrPerPageTooLarge is returned when a page size above MaxPerPage is requested.
	ErrPerPageTooLarge = fmt.Errorf("per_page must be <= %d", MaxPerPage)

	// ErrInvalidState is returned for a state filter GitHub does not know.
	ErrInvalidState = errors.New("state must be one of all, open, closed")

	// ErrInvalidEntrypoint is returned when an entrypoint URL cannot be built.
	ErrInvalidEntrypoint = errors.New("invalid entrypoint")
)

// State filters issue and pull request listings.
type State string

const (
	StateAll    State = "all"
	StateOpen   State = "open"
	StateClosed State = "closed"
)

// Params holds the query parameters shared by listing endpoints.
type Params struct {
	// PerPage is the page size. Zero means MaxPerPage.
	PerPage int

	State     State
	Sort      string
	Direction string

	// Since is sent as a server-side filter when non-zero.
	Since time.Time

	// Filter is passed through verbatim (e.g. "all" for run jobs).
	Filter string
}

// DefaultParams returns parameters requesting the largest page size.
func DefaultParams() Params {
	return Params{PerPage: MaxPerPage}
}

// Validate checks the parameters without touching the network.
func (p Params) Validate() error {
	if p.PerPage < 0 {
		return fmt.Errorf("per_page must be positive (got %d)", p.PerPage)
	}
	if p.PerPage > MaxPerPage {
		return fmt.Errorf("%w (got %d)", ErrPerPageTooLarge, p.PerPage)
	}
	switch p.State {
	case "", StateAll, StateOpen, StateClosed:
	default:
		return fmt.Errorf("%w (got %q)", ErrInvalidState, p.State)
	}
	return nil
}

// Query renders the parameters in a fixed order:
// per_page, state, sort, direction, since, filter. Empty values are omitted.
func (p Params) Query() string {
	perPage := p.PerPage
	if perPage == 0 {
		perPage = MaxPerPage
	}

	parts := []string{"per_page=" + strconv.Itoa(perPage)}
	add := func(key, value string) {
		if value != "" {
			parts = append(parts, key+"="+url.QueryEscape(value))
		}
	}
	add("state", string(p.State))
	add("sort", p.Sort)
	add("direction", p.Direction)
	if !p.Since.IsZero() {
		add("since", p.Since.UTC().Format(SinceLayout))
	}
	add("filter", p.Filter)

	return strings.Join(parts, "&")
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Entrypoint describes the first page of a listing.
type Entrypoint struct {
	Owner string
	Repo  string

	// Path is a template such as /repos/{owner}/{repo}/issues.
	Path string

	// Vars fills additional placeholders in Path, e.g. {run_id}.
	Vars map[string]string

	Params Params
}

// RepoScoped reports whether the path needs an owner and repository.
func (e Entrypoint) RepoScoped() bool {
	return strings.Contains(e.Path, "{owner}") || strings.Contains(e.Path, "{repo}")
}

// Repository returns "owner/repo", or "" for account-scoped listings.
func (e Entrypoint) Repository() string {
	if !e.RepoScoped() {
		return ""
	}
	return e.Owner + "/" + e.Repo
}

// URL resolves the entrypoint against the API base URL.
func (e Entrypoint) URL(base string) (string, error) {
	if err := e.Params.Validate(); err != nil {
		return "", err
	}

	baseURL, err := url.Parse(base)
	if err != nil || baseURL.Scheme == "" || baseURL.Host == "" {
		return "", fmt.Errorf("%w: base url %q", ErrInvalidEntrypoint, base)
	}

	path := e.Path
	if e.RepoScoped() {
		if err := validName("owner", e.Owner); err != nil {
			return "", err
		}
		if err := validName("repo", e.Repo); err != nil {
			return "", err
		}
		path = strings.ReplaceAll(path, "{owner}", e.Owner)
		path = strings.ReplaceAll(path, "{repo}", e.Repo)
	}
	for key, value := range e.Vars {
		if value == "" {
			return "", fmt.Errorf("%w: empty %s", ErrInvalidEntrypoint, key)
		}
		path = strings.ReplaceAll(path, "{"+key+"}", url.PathEscape(value))
	}
	if strings.ContainsAny(path, "{}") {
		return "", fmt.Errorf("%w: unresolved placeholder in %q", ErrInvalidEntrypoint, path)
	}

	return strings.TrimSuffix(baseURL.String(), "/") + "/" + strings.TrimPrefix(path, "/") + "?" + e.Params.Query(), nil
}

func validName(field, value string) error {
	if value == "" || value == "." || value == ".." || !namePattern.MatchString(value) {
		return fmt.Errorf("%w: malformed %s %q", ErrInvalidEntrypoint, field, value)
	}
	return nil
}
