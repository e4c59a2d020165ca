package fetcher

import "time"

// Listing represents a single scraped search result.
//
// UID is generated per process run and is only meant for short-lived
// references such as UI callback keys. Link is the durable key: it is what
// deduplication and any downstream persistence must join on.
type Listing struct {
	UID       string    `json:"uid"`
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Price     int       `json:"price"`
	PostedAt  time.Time `json:"posted_at"`
	ImageURL  string    `json:"image_url,omitempty"`
	TypeLabel string    `json:"type_label"`
}

// ListingDetail is the extended record scraped from a single listing page.
// It is fetched lazily, on explicit drill-down only.
type ListingDetail struct {
	Listing

	Description string `json:"description"`
	// LocationPath holds the seller's place names, most specific last.
	LocationPath []string `json:"location_path"`
}

// Cursor is an opaque pagination token. It records the absolute number of
// result items inspected so far, independent of how many passed the price
// filter, so a resumed fetch never re-emits an item.
type Cursor struct {
	Offset int `json:"offset"`
}

// page returns the 1-based search page the cursor points into.
func (c Cursor) page() int {
	return c.Offset/PageSize + 1
}

// skip returns how many items at the top of that page are already consumed.
func (c Cursor) skip() int {
	return c.Offset % PageSize
}
