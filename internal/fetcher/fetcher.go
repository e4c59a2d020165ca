package fetcher

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"rvolkov/toritracker/helpers"
	"rvolkov/toritracker/logger"
	apperr "rvolkov/toritracker/pkg/errors"
	"rvolkov/toritracker/services/cache"
	"rvolkov/toritracker/services/translate"
)

const (
	// PageSize is the fixed number of result items per search page.
	PageSize = 40

	// DefaultLimit is used when a caller passes a non-positive limit.
	DefaultLimit = 5

	// maxSearchPages bounds one Fetch call. The site never serves deeper
	// result sets, so hitting the cap means a degenerate input, not data.
	maxSearchPages = 100

	searchPath       = "li?"
	cooldownCacheKey = "tori_fetch_cooldown"

	// nativeLanguage is the language search terms must be translated into.
	nativeLanguage = "fi"
)

// Fetcher turns a FilterSpec into scraped, paginated, price-filtered listings.
type Fetcher struct {
	baseURL    string
	dialect    Dialect
	cacheSvc   cache.CacheService
	translator translate.Translator
	blockTime  time.Duration
	log        *logger.Logger

	// fetchFunc is the raw page fetch, replaceable in tests.
	fetchFunc func(ctx context.Context, url string) (io.Reader, error)
	now       func() time.Time
}

// New creates a Fetcher for the marketplace at baseURL. cacheSvc may be nil
// (no rate-limit cooldown tracking); translator may be nil (search terms used
// verbatim).
func New(baseURL string, dialect Dialect, cacheSvc cache.CacheService, translator translate.Translator) *Fetcher {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Fetcher{
		baseURL:    baseURL,
		dialect:    dialect,
		cacheSvc:   cacheSvc,
		translator: translator,
		blockTime:  5 * time.Minute,
		log:        logger.ForFetcher(),
		fetchFunc:  helpers.FetchWithRandomHeaders,
		now:        time.Now,
	}
}

// Fetch retrieves up to limit listings matching spec, starting from cursor.
// The returned cursor counts every inspected item, including ones dropped by
// the price filter, so resuming never re-emits a listing. Listings come back
// in site order, newest first. An empty result with a nil error means the
// result set is exhausted.
func (f *Fetcher) Fetch(ctx context.Context, spec FilterSpec, cursor Cursor, limit int) (Cursor, []Listing, error) {
	spec, err := f.dialect.Normalize(spec)
	if err != nil {
		return cursor, nil, err
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	term := f.nativeSearchTerm(ctx, spec)

	listings := make([]Listing, 0, limit)
	now := f.now()

	for pages := 0; pages < maxSearchPages; pages++ {
		searchURL := f.baseURL + searchPath + f.dialect.queryString(spec, term, cursor.page())
		if pages == 0 && cursor.Offset == 0 {
			f.log.Debug().Str("url", searchURL).Msg("Starting search")
		}

		doc, err := f.fetchPage(ctx, searchURL)
		if err != nil {
			return cursor, listings, err
		}

		// A missing or empty results container signals the end of the
		// result set, not an error.
		container := doc.Find("div.list_mode_thumb")
		if container.Length() == 0 {
			break
		}
		rows := container.Find("a.item_row_flex")
		if rows.Length() <= cursor.skip() {
			break
		}

		rows.Slice(cursor.skip(), rows.Length()).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			cursor.Offset++
			item, ok := f.parseListing(s, now)
			if ok && spec.accepts(item.Price) {
				listings = append(listings, item)
			}
			return len(listings) < limit
		})

		if len(listings) >= limit {
			break
		}
	}

	return cursor, listings, nil
}

// nativeSearchTerm translates the spec's search term into the marketplace's
// native language. Translation failures degrade to the raw term.
func (f *Fetcher) nativeSearchTerm(ctx context.Context, spec FilterSpec) string {
	term := spec.SearchTerm
	if term == "" || f.translator == nil {
		return term
	}
	from := spec.QueryLanguage
	if from == "" || from == nativeLanguage {
		return term
	}

	translated, err := f.translator.Translate(ctx, term, from, nativeLanguage)
	if err != nil {
		f.log.Warn().Err(err).Str("term", term).Msg("Translation failed, searching with the raw term")
		return term
	}
	return translated
}

// fetchPage fetches a URL and parses it into a document, honoring the
// rate-limit cooldown the same way repeated offenders are blocked site-side.
func (f *Fetcher) fetchPage(ctx context.Context, url string) (*goquery.Document, error) {
	if f.cacheSvc != nil {
		if _, err := f.cacheSvc.Get(cooldownCacheKey); err == nil {
			return nil, apperr.NewRateLimit("tori", f.blockTime)
		}
	}

	body, err := f.fetchFunc(ctx, url)
	if err != nil {
		if f.cacheSvc != nil && strings.HasPrefix(err.Error(), "rate limited") {
			f.cacheSvc.Set(cooldownCacheKey, []byte("1"), f.blockTime)
		}
		return nil, apperr.NewNetwork("tori", "search page fetch failed", err)
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, apperr.NewParsing("tori", "search page is not parseable HTML", err)
	}
	return doc, nil
}
