package resource

import (
	"encoding/json"
	"time"

	"github.com/Sternrassler/gh-extract/pkg/pagination"
)

// Scope carries the context a record is tagged with. It is supplied when the
// mapper runs so records never need patching afterwards.
type Scope struct {
	// Repository is "owner/name", empty for account-scoped kinds.
	Repository string

	// PullRequestNumber is set for rows derived from a pull request.
	PullRequestNumber int
}

// Definition binds a listing endpoint to its item type T and record type R.
type Definition[T, R any] struct {
	Kind Kind

	// Path is the entrypoint template, see pagination.Entrypoint.
	Path string

	// Tune adjusts the caller's parameters for this listing (sort order, filters).
	Tune func(pagination.Params) pagination.Params

	// ServerSince marks listings that accept the since query parameter.
	ServerSince bool

	// DefaultMode applies when the caller asks for pagination.ModeAuto.
	DefaultMode pagination.Mode

	Decode pagination.DecodeFunc[T]

	// Map flattens one item. It must not fail.
	Map func(Scope, T) []R

	// Timestamp orders items for the last-item cutoff. Nil means the listing
	// ignores since thresholds.
	Timestamp func(T) time.Time
}

// Mode resolves the cutoff mode for a requested mode.
func (d Definition[T, R]) Mode(requested pagination.Mode) pagination.Mode {
	if requested == pagination.ModeAuto {
		return d.DefaultMode
	}
	return requested
}

// SupportsSince reports whether a since threshold has any effect on the
// listing when walked with the requested cutoff mode.
func (d Definition[T, R]) SupportsSince(requested pagination.Mode) bool {
	if d.ServerSince {
		return true
	}
	mode := d.Mode(requested)
	return d.Timestamp != nil && (mode == pagination.ModeLastItem || mode == pagination.ModeLastItemFiltered)
}

// Entrypoint builds the first-page description for this listing.
func (d Definition[T, R]) Entrypoint(owner, repo string, params pagination.Params, since time.Time, vars map[string]string) pagination.Entrypoint {
	if d.Tune != nil {
		params = d.Tune(params)
	}
	params.Since = time.Time{}
	if d.ServerSince && !since.IsZero() {
		params.Since = since
	}
	return pagination.Entrypoint{
		Owner:  owner,
		Repo:   repo,
		Path:   d.Path,
		Vars:   vars,
		Params: params,
	}
}

// Walker returns a walker applying the resolved since cutoff.
func (d Definition[T, R]) Walker(fetcher pagination.Fetcher, since time.Time, mode pagination.Mode) *pagination.Walker[T] {
	return pagination.NewWalker(string(d.Kind), fetcher, d.Decode, pagination.NewSincePolicy(since, d.Mode(mode), d.Timestamp))
}

// decodeList decodes a page whose body is a JSON array.
func decodeList[T any](body []byte) ([]T, error) {
	var items []T
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// decodeWrapped decodes a page whose items sit inside an envelope object,
// as the Actions endpoints return them.
func decodeWrapped[E, T any](items func(*E) []T) pagination.DecodeFunc[T] {
	return func(body []byte) ([]T, error) {
		var envelope E
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, err
		}
		return items(&envelope), nil
	}
}

func one[R any](r R) []R {
	return []R{r}
}

func updatedDesc(p pagination.Params) pagination.Params {
	if p.State == "" {
		p.State = pagination.StateAll
	}
	p.Sort = "updated"
	p.Direction = "desc"
	return p
}

func stateAll(p pagination.Params) pagination.Params {
	if p.State == "" {
		p.State = pagination.StateAll
	}
	return p
}
