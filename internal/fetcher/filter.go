package fetcher

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	apperr "rvolkov/toritracker/pkg/errors"
)

// Option names understood by the default dialect. The codes behind them are
// opaque query fragments the marketplace expects verbatim.
const (
	OptionAny  = "Any"
	OptionFree = "Free"
)

// Dialect is the immutable lookup table translating logical filter options
// into query-string fragments. It is injected into the Fetcher so concurrent
// FilterSpecs resolve without shared mutable state.
type Dialect struct {
	Locations    map[string]string
	ListingTypes map[string]string
	Categories   map[string]string
}

// DefaultDialect returns the query-parameter dialect of tori.fi.
func DefaultDialect() Dialect {
	return Dialect{
		Locations: map[string]string{
			"Tampere":   "ca=11&m=210&w=111",
			"Pirkanmaa": "ca=11&w=1",
			OptionAny:   "w=3",
		},
		ListingTypes: map[string]string{
			"For sale":       "st=s",
			"Wanted to buy":  "st=k",
			"For rent":       "st=u",
			"Wanted to rent": "st=h",
			OptionFree:       "st=g",
			OptionAny:        "st=s&st=k&st=u&st=h&st=g",
		},
		Categories: map[string]string{
			OptionAny:            "cg=0",
			"Vehicles":           "cg=2",
			"Home and furniture": "cg=3",
			"Electronics":        "cg=5",
			"Hobby":              "cg=6",
		},
	}
}

// FilterSpec holds the user-chosen search constraints.
//
// SearchTerm is written in QueryLanguage and is translated to the
// marketplace's native language before the query is built. MinPrice and
// MaxPrice are inclusive bounds; nil means unconstrained on that side.
type FilterSpec struct {
	Locations     []string `json:"locations"`
	ListingTypes  []string `json:"listing_types"`
	Category      string   `json:"category"`
	SearchTerm    string   `json:"search_term,omitempty"`
	QueryLanguage string   `json:"query_language,omitempty"`
	MinPrice      *int     `json:"min_price,omitempty"`
	MaxPrice      *int     `json:"max_price,omitempty"`
}

// Normalize validates spec against the dialect and returns a cleaned copy.
// Empty selections default to Any. A min price is meaningless together with
// the Free listing type and is cleared. Unknown option names are rejected:
// they can only come from a programming error in the caller, never from the
// site.
func (d Dialect) Normalize(spec FilterSpec) (FilterSpec, error) {
	out := spec
	out.Locations = slices.Clone(spec.Locations)
	out.ListingTypes = slices.Clone(spec.ListingTypes)

	if len(out.Locations) == 0 {
		out.Locations = []string{OptionAny}
	}
	if len(out.ListingTypes) == 0 {
		out.ListingTypes = []string{OptionAny}
	}
	if out.Category == "" {
		out.Category = OptionAny
	}

	for _, loc := range out.Locations {
		if _, ok := d.Locations[loc]; !ok {
			return FilterSpec{}, apperr.NewValidation("filter", fmt.Sprintf("unknown location option %q", loc))
		}
	}
	for _, lt := range out.ListingTypes {
		if _, ok := d.ListingTypes[lt]; !ok {
			return FilterSpec{}, apperr.NewValidation("filter", fmt.Sprintf("unknown listing type option %q", lt))
		}
	}
	if _, ok := d.Categories[out.Category]; !ok {
		return FilterSpec{}, apperr.NewValidation("filter", fmt.Sprintf("unknown category option %q", out.Category))
	}

	if out.MinPrice != nil && *out.MinPrice < 0 {
		return FilterSpec{}, apperr.NewValidation("filter", "min price must be non-negative")
	}
	if out.MaxPrice != nil && *out.MaxPrice < 0 {
		return FilterSpec{}, apperr.NewValidation("filter", "max price must be non-negative")
	}
	if slices.Contains(out.ListingTypes, OptionFree) {
		out.MinPrice = nil
	}
	if out.MinPrice != nil && out.MaxPrice != nil && *out.MinPrice > *out.MaxPrice {
		return FilterSpec{}, apperr.NewValidation("filter", "min price must not exceed max price")
	}

	return out, nil
}

// queryString assembles the search query for a normalized spec. Multi-valued
// options keep their duplicate keys: the site treats repeated parameters as
// OR.
func (d Dialect) queryString(spec FilterSpec, searchTerm string, page int) string {
	fragments := make([]string, 0, len(spec.Locations)+len(spec.ListingTypes)+3)
	for _, loc := range spec.Locations {
		fragments = append(fragments, d.Locations[loc])
	}
	for _, lt := range spec.ListingTypes {
		fragments = append(fragments, d.ListingTypes[lt])
	}
	fragments = append(fragments,
		d.Categories[spec.Category],
		"q="+url.QueryEscape(searchTerm),
		"o="+strconv.Itoa(page),
	)
	return strings.Join(fragments, "&")
}

// accepts reports whether price satisfies the spec's inclusive price range.
func (spec FilterSpec) accepts(price int) bool {
	if spec.MinPrice != nil && price < *spec.MinPrice {
		return false
	}
	if spec.MaxPrice != nil && price > *spec.MaxPrice {
		return false
	}
	return true
}

// Describe renders the spec for logs.
func (spec FilterSpec) Describe() string {
	parts := []string{
		"locations=" + strings.Join(spec.Locations, ","),
		"types=" + strings.Join(spec.ListingTypes, ","),
		"category=" + spec.Category,
	}
	if spec.SearchTerm != "" {
		parts = append(parts, "q="+spec.SearchTerm)
	}
	if spec.MinPrice != nil {
		parts = append(parts, "min="+strconv.Itoa(*spec.MinPrice))
	}
	if spec.MaxPrice != nil {
		parts = append(parts, "max="+strconv.Itoa(*spec.MaxPrice))
	}
	return strings.Join(parts, " ")
}
