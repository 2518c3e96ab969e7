package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID int       `json:"id"`
	At time.Time `json:"at"`
}

func decodeItems(body []byte) ([]item, error) {
	var items []item
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// fakeFetcher serves pages keyed by URL and records every fetch.
type fakeFetcher struct {
	pages   map[string]*Page
	fetched []string
	failAt  string
}

func (f *fakeFetcher) FetchPage(_ context.Context, url string) (*Page, error) {
	f.fetched = append(f.fetched, url)
	if url == f.failAt {
		return nil, errors.New("boom")
	}
	page, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("unexpected url %s", url)
	}
	return page, nil
}

// newFakeFetcher builds a chain of pages with the given item timestamps.
// Item ids are sequential across pages starting at 1.
func newFakeFetcher(t *testing.T, pages ...[]time.Time) *fakeFetcher {
	t.Helper()

	f := &fakeFetcher{pages: make(map[string]*Page)}
	id := 0
	for i, stamps := range pages {
		items := make([]item, 0, len(stamps))
		for _, at := range stamps {
			id++
			items = append(items, item{ID: id, At: at})
		}
		body, err := json.Marshal(items)
		require.NoError(t, err)

		url := pageURL(i + 1)
		next := ""
		if i+1 < len(pages) {
			next = pageURL(i + 2)
		}
		f.pages[url] = &Page{URL: url, Body: body, Next: next}
	}
	return f
}

func pageURL(n int) string {
	return fmt.Sprintf("https://api.example.test/items?per_page=100&page=%d", n)
}

func stamps(n int, start time.Time, step time.Duration) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.Add(time.Duration(i) * step)
	}
	return out
}

func collectIDs(t *testing.T, w *Walker[item]) ([]int, Stats, error) {
	t.Helper()
	var ids []int
	stats, err := w.Walk(context.Background(), pageURL(1), func(it item) error {
		ids = append(ids, it.ID)
		return nil
	})
	return ids, stats, err
}

func TestWalker_CompletenessWithoutCutoff(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fetcher := newFakeFetcher(t,
		stamps(100, base, time.Minute),
		stamps(100, base, time.Minute),
		stamps(37, base, time.Minute),
	)

	w := NewWalker("items", fetcher, decodeItems, nil)
	ids, stats, err := collectIDs(t, w)

	require.NoError(t, err)
	assert.Len(t, ids, 237)
	assert.Equal(t, 3, stats.Pages)
	assert.Equal(t, 237, stats.Items)
	assert.False(t, stats.StoppedEarly)
	assert.Len(t, fetcher.fetched, 3)

	for i, id := range ids {
		assert.Equal(t, i+1, id, "items must keep source order without duplicates")
	}
}

func TestWalker_TerminatesOnLastPage(t *testing.T) {
	fetcher := newFakeFetcher(t, []time.Time{time.Now()})

	w := NewWalker("items", fetcher, decodeItems, nil)
	_, stats, err := collectIDs(t, w)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pages)
	assert.Equal(t, []string{pageURL(1)}, fetcher.fetched)
}

func TestWalker_EmptyListing(t *testing.T) {
	fetcher := newFakeFetcher(t, []time.Time{})

	w := NewWalker("items", fetcher, decodeItems, NewSincePolicy(time.Now(), ModeLastItem, func(it item) time.Time { return it.At }))
	ids, stats, err := collectIDs(t, w)

	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, 1, stats.Pages)
}

func TestWalker_CutoffEvaluatedAfterFullPage(t *testing.T) {
	// Descending listing: page 1 is newest, page 2 is entirely older than the threshold.
	since := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	fetcher := newFakeFetcher(t,
		stamps(3, since.Add(72*time.Hour), -time.Hour),
		stamps(3, since.Add(-time.Hour), -time.Hour),
		stamps(3, since.Add(-48*time.Hour), -time.Hour),
	)

	policy := NewSincePolicy(since, ModeLastItem, func(it item) time.Time { return it.At })
	w := NewWalker("items", fetcher, decodeItems, policy)
	ids, stats, err := collectIDs(t, w)

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, ids, "page 2 is emitted in full")
	assert.Equal(t, 2, stats.Pages)
	assert.True(t, stats.StoppedEarly)
	assert.NotContains(t, fetcher.fetched, pageURL(3), "page 3 must not be fetched")
}

func TestWalker_CutoffMonotonicity(t *testing.T) {
	since := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	fetcher := newFakeFetcher(t,
		stamps(2, since.Add(10*time.Hour), -time.Hour),
		stamps(2, since.Add(5*time.Hour), -time.Hour),
		stamps(2, since.Add(-time.Minute), -time.Hour),
		stamps(2, since.Add(-10*time.Hour), -time.Hour),
		stamps(2, since.Add(-20*time.Hour), -time.Hour),
	)

	policy := NewSincePolicy(since, ModeLastItem, func(it item) time.Time { return it.At })
	w := NewWalker("items", fetcher, decodeItems, policy)
	_, stats, err := collectIDs(t, w)

	require.NoError(t, err)
	assert.Equal(t, 3, stats.Pages)
	assert.Equal(t, []string{pageURL(1), pageURL(2), pageURL(3)}, fetcher.fetched)
}

func TestWalker_FilteredModeDropsOldItems(t *testing.T) {
	since := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	fetcher := newFakeFetcher(t,
		[]time.Time{since.Add(2 * time.Hour), since.Add(time.Hour), since.Add(-time.Hour)},
		[]time.Time{since.Add(-2 * time.Hour)},
	)

	policy := NewSincePolicy(since, ModeLastItemFiltered, func(it item) time.Time { return it.At })
	w := NewWalker("items", fetcher, decodeItems, policy)
	ids, stats, err := collectIDs(t, w)

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, ids)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Pages)
}

func TestWalker_ServerModeNeverStops(t *testing.T) {
	since := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	fetcher := newFakeFetcher(t,
		stamps(2, since.Add(-10*time.Hour), -time.Hour),
		stamps(2, since.Add(-20*time.Hour), -time.Hour),
	)

	policy := NewSincePolicy(since, ModeServer, func(it item) time.Time { return it.At })
	assert.Nil(t, policy)

	w := NewWalker("items", fetcher, decodeItems, policy)
	ids, _, err := collectIDs(t, w)

	require.NoError(t, err)
	assert.Len(t, ids, 4)
}

func TestWalker_FetchErrorAborts(t *testing.T) {
	fetcher := newFakeFetcher(t, stamps(2, time.Now(), time.Second), stamps(2, time.Now(), time.Second), stamps(1, time.Now(), time.Second))
	fetcher.failAt = pageURL(2)

	w := NewWalker("items", fetcher, decodeItems, nil)
	ids, stats, err := collectIDs(t, w)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch page 2 of items")
	assert.Equal(t, []int{1, 2}, ids)
	assert.Equal(t, 1, stats.Pages)
	assert.Len(t, fetcher.fetched, 2, "no retry after a failed fetch")
}

func TestWalker_DecodeErrorAborts(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*Page{
		pageURL(1): {URL: pageURL(1), Body: []byte(`{"not":"a list"}`)},
	}}

	w := NewWalker("items", fetcher, decodeItems, nil)
	_, _, err := collectIDs(t, w)

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, pageURL(1), decodeErr.URL)
}

func TestWalker_EmitErrorAborts(t *testing.T) {
	fetcher := newFakeFetcher(t, stamps(5, time.Now(), time.Second))
	sentinel := errors.New("sink closed")

	w := NewWalker("items", fetcher, decodeItems, nil)
	count := 0
	stats, err := w.Walk(context.Background(), pageURL(1), func(it item) error {
		count++
		if it.ID == 3 {
			return sentinel
		}
		return nil
	})

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, count)
	assert.Equal(t, 2, stats.Items)
}

func TestWalker_CursorLoop(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*Page{
		pageURL(1): {URL: pageURL(1), Body: []byte(`[{"id":1}]`), Next: pageURL(2)},
		pageURL(2): {URL: pageURL(2), Body: []byte(`[{"id":2}]`), Next: pageURL(1)},
	}}

	w := NewWalker("items", fetcher, decodeItems, nil)
	ids, _, err := collectIDs(t, w)

	assert.ErrorIs(t, err, ErrCursorLoop)
	assert.Equal(t, []int{1, 2}, ids)
	assert.Len(t, fetcher.fetched, 2)
}

func TestCollect(t *testing.T) {
	fetcher := newFakeFetcher(t, stamps(2, time.Now(), time.Second), stamps(1, time.Now(), time.Second))

	w := NewWalker("items", fetcher, decodeItems, nil)
	ids, stats, err := Collect(context.Background(), w, pageURL(1), func(it item) int { return it.ID * 10 })

	require.NoError(t, err)
	assert.Equal(t, []int{10, 20, 30}, ids)
	assert.Equal(t, 2, stats.Pages)
}

func TestStats_Add(t *testing.T) {
	total := Stats{Pages: 1, Items: 10}
	total.Add(Stats{Pages: 2, Items: 5, Skipped: 1, StoppedEarly: true})

	assert.Equal(t, Stats{Pages: 3, Items: 15, Skipped: 1, StoppedEarly: true}, total)
}
