package pagination

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	pagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghextract_pages_total",
		Help: "Pages fetched by walker",
	}, []string{"walker"})

	itemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghextract_items_total",
		Help: "Items emitted by walker",
	}, []string{"walker"})

	earlyStopsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghextract_early_stops_total",
		Help: "Walks stopped by a since cutoff before the last page",
	}, []string{"walker"})
)

// ErrCursorLoop is returned when a next link points at a page already fetched.
var ErrCursorLoop = errors.New("next link revisits a fetched page")

// Page is one fetched page of a listing.
type Page struct {
	// URL the page was fetched from.
	URL string

	// Body is the undecoded response body.
	Body []byte

	// Next is the absolute URL of the following page, empty on the last page.
	Next string
}

// Fetcher retrieves a single page by absolute URL.
type Fetcher interface {
	FetchPage(ctx context.Context, url string) (*Page, error)
}

// DecodeFunc extracts the items of one page body.
type DecodeFunc[T any] func(body []byte) ([]T, error)

// DecodeError reports a page body that does not match the expected schema.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode page %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Stats summarises one walk.
type Stats struct {
	Pages        int
	Items        int
	Skipped      int
	StoppedEarly bool
}

// Add accumulates another walk's counters.
func (s *Stats) Add(other Stats) {
	s.Pages += other.Pages
	s.Items += other.Items
	s.Skipped += other.Skipped
	s.StoppedEarly = s.StoppedEarly || other.StoppedEarly
}

// Walker follows next links from an entrypoint until the listing is exhausted or
// the cutoff stops it. One page is held in memory at a time.
type Walker[T any] struct {
	name    string
	fetcher Fetcher
	decode  DecodeFunc[T]
	cutoff  Cutoff[T]
	logger  zerolog.Logger
}

// NewWalker creates a walker. cutoff may be nil.
func NewWalker[T any](name string, fetcher Fetcher, decode DecodeFunc[T], cutoff Cutoff[T]) *Walker[T] {
	return &Walker[T]{
		name:    name,
		fetcher: fetcher,
		decode:  decode,
		cutoff:  cutoff,
		logger:  log.With().Str("component", "pagination").Str("walker", name).Logger(),
	}
}

// Walk fetches pages starting at entry and calls emit for every kept item in
// source order. Any fetch, decode or emit error aborts the walk; the stats gathered
// so far are returned with it.
func (w *Walker[T]) Walk(ctx context.Context, entry string, emit func(T) error) (Stats, error) {
	var stats Stats
	visited := make(map[string]struct{})

	for next := entry; next != ""; {
		if _, ok := visited[next]; ok {
			return stats, fmt.Errorf("%w: %s", ErrCursorLoop, next)
		}
		visited[next] = struct{}{}

		page, err := w.fetcher.FetchPage(ctx, next)
		if err != nil {
			return stats, fmt.Errorf("fetch page %d of %s: %w", stats.Pages+1, w.name, err)
		}
		stats.Pages++
		pagesTotal.WithLabelValues(w.name).Inc()

		items, err := w.decode(page.Body)
		if err != nil {
			return stats, &DecodeError{URL: next, Err: err}
		}

		w.logger.Debug().
			Int("page", stats.Pages).
			Int("items", len(items)).
			Bool("has_next", page.Next != "").
			Msg("Page fetched")

		for _, item := range items {
			if w.cutoff != nil && !w.cutoff.Keep(item) {
				stats.Skipped++
				continue
			}
			if err := emit(item); err != nil {
				return stats, err
			}
			stats.Items++
			itemsTotal.WithLabelValues(w.name).Inc()
		}

		if w.cutoff != nil && len(items) > 0 && w.cutoff.Stop(items[len(items)-1]) {
			if page.Next != "" {
				stats.StoppedEarly = true
				earlyStopsTotal.WithLabelValues(w.name).Inc()
				w.logger.Debug().Int("page", stats.Pages).Msg("Since cutoff reached, not following next link")
			}
			break
		}
		next = page.Next
	}

	return stats, nil
}

// Collect walks the listing and returns every kept item passed through project.
// It materialises the whole result and is meant for small id lists.
func Collect[T, K any](ctx context.Context, w *Walker[T], entry string, project func(T) K) ([]K, Stats, error) {
	var out []K
	stats, err := w.Walk(ctx, entry, func(item T) error {
		out = append(out, project(item))
		return nil
	})
	return out, stats, err
}
