package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockCacheService implements a simple in-memory cache for testing
type MockCacheService struct {
	cache map[string][]byte
}

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{cache: make(map[string][]byte)}
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	if val, ok := m.cache[key]; ok {
		return val, nil
	}
	return nil, errors.New("cache miss")
}

func (m *MockCacheService) Set(key string, value []byte, _ time.Duration) error {
	m.cache[key] = value
	return nil
}

func (m *MockCacheService) Delete(key string) error {
	delete(m.cache, key)
	return nil
}

type fakeTranslator struct {
	from, to string
	result   string
	err      error
	calls    int
}

func (f *fakeTranslator) Translate(_ context.Context, text, from, to string) (string, error) {
	f.calls++
	f.from, f.to = from, to
	if f.err != nil {
		return "", f.err
	}
	if f.result != "" {
		return f.result, nil
	}
	return text, nil
}

// card renders one result row in the site's markup.
func card(id int, price string, posted string) string {
	return fmt.Sprintf(`<a class="item_row_flex" href="https://www.tori.fi/item/%d.htm">
		<div class="li-title">Item %d</div>
		<div class="date_image">%s</div>
		<p class="list_price ineuros">%s</p>
		<div class="cat_geo"><p>Myydään</p><p>Tampere</p></div>
		<img class="item_image" src="https://img.tori.fi/%d.jpg">
	</a>`, id, id, posted, price, id)
}

func resultsPage(cards ...string) string {
	return `<html><body><div class="list_mode_thumb">` + strings.Join(cards, "\n") + `</div></body></html>`
}

const emptyPage = `<html><body><p>Ei ilmoituksia</p></body></html>`

// pagedSite routes fetches by the o query parameter and counts calls.
type pagedSite struct {
	pages map[int]string
	calls []string
}

func (p *pagedSite) fetch(_ context.Context, rawURL string) (io.Reader, error) {
	p.calls = append(p.calls, rawURL)
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	page := u.Query().Get("o")
	html, ok := p.pages[atoi(page)]
	if !ok {
		return strings.NewReader(emptyPage), nil
	}
	return strings.NewReader(html), nil
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

func newTestFetcher(site *pagedSite) *Fetcher {
	f := New("https://www.tori.fi", DefaultDialect(), nil, nil)
	f.fetchFunc = site.fetch
	f.now = func() time.Time { return summerNow }
	return f
}

func TestFetchStopsWhenExhausted(t *testing.T) {
	site := &pagedSite{pages: map[int]string{
		1: resultsPage(
			card(1, "50 €", "tänään 10:30"),
			card(2, "", "eilen 09:15"),
			card(3, "120 €", "5 hei 18:02"),
		),
	}}
	f := newTestFetcher(site)

	cursor, listings, err := f.Fetch(context.Background(), FilterSpec{}, Cursor{}, 5)
	require.NoError(t, err)

	// The result set holds fewer items than the limit: everything comes
	// back and the cursor counts what was inspected, not the limit.
	require.Len(t, listings, 3)
	assert.Equal(t, 3, cursor.Offset)
	// One call for the page, one confirming there is nothing after it.
	assert.Len(t, site.calls, 2)

	first := listings[0]
	assert.Equal(t, "Item 1", first.Title)
	assert.Equal(t, "https://www.tori.fi/item/1.htm", first.Link)
	assert.Equal(t, 50, first.Price)
	assert.Equal(t, "For sale", first.TypeLabel)
	assert.Equal(t, "https://img.tori.fi/1.jpg", first.ImageURL)
	assert.Equal(t, time.Date(2023, time.August, 15, 7, 30, 0, 0, time.UTC), first.PostedAt)
	assert.NotEmpty(t, first.UID)

	// Absent price defaults to 0
	assert.Equal(t, 0, listings[1].Price)
}

func TestFetchLimitCapsResults(t *testing.T) {
	site := &pagedSite{pages: map[int]string{
		1: resultsPage(
			card(1, "10 €", "tänään 10:30"),
			card(2, "20 €", "tänään 10:20"),
			card(3, "30 €", "tänään 10:10"),
		),
	}}
	f := newTestFetcher(site)

	cursor, listings, err := f.Fetch(context.Background(), FilterSpec{}, Cursor{}, 2)
	require.NoError(t, err)
	assert.Len(t, listings, 2)
	assert.Equal(t, 2, cursor.Offset)
	assert.Len(t, site.calls, 1)
}

func TestFetchPaginatesAcrossPages(t *testing.T) {
	pageOne := make([]string, 0, PageSize)
	for i := 1; i <= PageSize; i++ {
		pageOne = append(pageOne, card(i, "10 €", "tänään 08:00"))
	}
	site := &pagedSite{pages: map[int]string{
		1: resultsPage(pageOne...),
		2: resultsPage(
			card(41, "10 €", "tänään 07:00"),
			card(42, "10 €", "tänään 06:00"),
		),
	}}
	f := newTestFetcher(site)

	cursor, listings, err := f.Fetch(context.Background(), FilterSpec{}, Cursor{}, 41)
	require.NoError(t, err)
	assert.Len(t, listings, 41)
	assert.Equal(t, 41, cursor.Offset)
	assert.Len(t, site.calls, 2)
	assert.Equal(t, "https://www.tori.fi/item/41.htm", listings[40].Link)
}

func TestFetchResumesWithoutReEmitting(t *testing.T) {
	site := &pagedSite{pages: map[int]string{
		1: resultsPage(
			card(1, "10 €", "tänään 10:30"),
			card(2, "10 €", "tänään 10:25"),
			card(3, "10 €", "tänään 10:20"),
			card(4, "10 €", "tänään 10:15"),
			card(5, "10 €", "tänään 10:10"),
			card(6, "10 €", "tänään 10:05"),
		),
	}}
	f := newTestFetcher(site)

	seen := make(map[string]bool)
	cursor := Cursor{}
	for call := 0; call < 2; call++ {
		prevOffset := cursor.Offset
		var listings []Listing
		var err error
		cursor, listings, err = f.Fetch(context.Background(), FilterSpec{}, cursor, 3)
		require.NoError(t, err)
		require.Len(t, listings, 3)
		assert.GreaterOrEqual(t, cursor.Offset, prevOffset)

		for _, l := range listings {
			assert.False(t, seen[l.Link], "listing %s emitted twice", l.Link)
			seen[l.Link] = true
		}
	}
	assert.Len(t, seen, 6)
}

func TestFetchAppliesPriceRange(t *testing.T) {
	site := &pagedSite{pages: map[int]string{
		1: resultsPage(
			card(1, "", "tänään 10:30"),
			card(2, "50 €", "tänään 10:25"),
			card(3, "75 €", "tänään 10:20"),
			card(4, "100 €", "tänään 10:15"),
			card(5, "150 €", "tänään 10:10"),
		),
	}}
	f := newTestFetcher(site)

	spec := FilterSpec{MinPrice: intPtr(50), MaxPrice: intPtr(100)}
	cursor, listings, err := f.Fetch(context.Background(), spec, Cursor{}, 10)
	require.NoError(t, err)

	prices := make([]int, 0, len(listings))
	for _, l := range listings {
		prices = append(prices, l.Price)
	}
	// Boundaries inclusive, original relative order kept
	assert.Equal(t, []int{50, 75, 100}, prices)
	// Dropped items still consume cursor positions
	assert.Equal(t, 5, cursor.Offset)
}

func TestFetchSkipsCardWithoutLink(t *testing.T) {
	broken := `<a class="item_row_flex"><div class="li-title">No link</div></a>`
	site := &pagedSite{pages: map[int]string{
		1: resultsPage(broken, card(2, "10 €", "tänään 10:30")),
	}}
	f := newTestFetcher(site)

	cursor, listings, err := f.Fetch(context.Background(), FilterSpec{}, Cursor{}, 10)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "https://www.tori.fi/item/2.htm", listings[0].Link)
	assert.Equal(t, 2, cursor.Offset)
}

func TestFetchDefaultsMalformedFields(t *testing.T) {
	bare := `<a class="item_row_flex" href="https://www.tori.fi/item/9.htm">
		<div class="li-title">Bare item</div>
	</a>`
	site := &pagedSite{pages: map[int]string{1: resultsPage(bare)}}
	f := newTestFetcher(site)

	_, listings, err := f.Fetch(context.Background(), FilterSpec{}, Cursor{}, 10)
	require.NoError(t, err)
	require.Len(t, listings, 1)

	l := listings[0]
	assert.Equal(t, 0, l.Price)
	assert.True(t, l.PostedAt.IsZero())
	assert.Empty(t, l.ImageURL)
	assert.Equal(t, UnknownTypeLabel, l.TypeLabel)
}

func TestFetchRejectsInvalidSpec(t *testing.T) {
	site := &pagedSite{pages: map[int]string{}}
	f := newTestFetcher(site)

	_, _, err := f.Fetch(context.Background(), FilterSpec{Locations: []string{"Atlantis"}}, Cursor{}, 5)
	assert.Error(t, err)
	assert.Empty(t, site.calls, "an invalid spec must fail before any request")
}

func TestFetchSurfacesNetworkError(t *testing.T) {
	f := New("https://www.tori.fi", DefaultDialect(), nil, nil)
	f.fetchFunc = func(context.Context, string) (io.Reader, error) {
		return nil, errors.New("connection refused")
	}

	_, _, err := f.Fetch(context.Background(), FilterSpec{}, Cursor{}, 5)
	assert.Error(t, err)
}

func TestFetchTranslatesSearchTerm(t *testing.T) {
	site := &pagedSite{pages: map[int]string{}}
	f := newTestFetcher(site)
	tr := &fakeTranslator{result: "sohva"}
	f.translator = tr

	spec := FilterSpec{SearchTerm: "sofa", QueryLanguage: "en"}
	_, _, err := f.Fetch(context.Background(), spec, Cursor{}, 5)
	require.NoError(t, err)

	require.Equal(t, 1, tr.calls)
	assert.Equal(t, "en", tr.from)
	assert.Equal(t, "fi", tr.to)
	require.NotEmpty(t, site.calls)
	assert.Contains(t, site.calls[0], "q=sohva")
}

func TestFetchFallsBackToRawTermOnTranslationError(t *testing.T) {
	site := &pagedSite{pages: map[int]string{}}
	f := newTestFetcher(site)
	f.translator = &fakeTranslator{err: errors.New("service unavailable")}

	spec := FilterSpec{SearchTerm: "sofa", QueryLanguage: "en"}
	_, _, err := f.Fetch(context.Background(), spec, Cursor{}, 5)
	require.NoError(t, err)
	require.NotEmpty(t, site.calls)
	assert.Contains(t, site.calls[0], "q=sofa")
}

func TestFetchCooldownAfterRateLimit(t *testing.T) {
	mockCache := NewMockCacheService()
	f := New("https://www.tori.fi", DefaultDialect(), mockCache, nil)

	calls := 0
	f.fetchFunc = func(context.Context, string) (io.Reader, error) {
		calls++
		return nil, errors.New("rate limited; retry after 60")
	}

	_, _, err := f.Fetch(context.Background(), FilterSpec{}, Cursor{}, 5)
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	// The cooldown is now cached: the next fetch fails fast without a request
	_, _, err = f.Fetch(context.Background(), FilterSpec{}, Cursor{}, 5)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
