package fetcher

import (
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"rvolkov/toritracker/helpers"
)

// UnknownTypeLabel marks a listing whose type badge could not be decoded.
const UnknownTypeLabel = "Unknown"

// typeLabels maps the Finnish badge text on a result card to a stable label.
var typeLabels = map[string]string{
	"Myydään":           "For sale",
	"Ostetaan":          "Wanted to buy",
	"Vuokrataan":        "For rent",
	"Halutaan vuokrata": "Wanted to rent",
	"Annetaan":          "Giveaway",
}

// parseListing extracts one listing from a result card. Missing price, date or
// image degrade to defaulted fields; a card without a link is unusable and is
// skipped.
func (f *Fetcher) parseListing(s *goquery.Selection, now time.Time) (Listing, bool) {
	href, _ := s.Attr("href")
	link := helpers.CleanLink(href)
	if link == "" {
		f.log.Debug().Msg("Result card without a link, skipping")
		return Listing{}, false
	}

	postedAt, err := ParseSiteDate(s.Find("div.date_image").Text(), now)
	if err != nil {
		f.log.Debug().Err(err).Str("link", link).Msg("Could not decode listing date")
	}

	typeLabel := f.parseTypeBadge(s)
	if typeLabel == UnknownTypeLabel {
		f.log.Warn().Str("link", link).Msg("Could not decode the listing type badge")
	}

	imageURL := ""
	if src, ok := s.Find("img.item_image").Attr("src"); ok {
		imageURL = helpers.CleanLink(src)
	}

	return Listing{
		UID:       uuid.NewString(),
		Title:     helpers.CleanText(s.Find("div.li-title").Text()),
		Link:      link,
		Price:     ParsePrice(s.Find("p.list_price.ineuros").Text()),
		PostedAt:  postedAt,
		ImageURL:  imageURL,
		TypeLabel: typeLabel,
	}, true
}

// parseTypeBadge scans the category/geo block for a child whose text is a
// known listing-type badge.
func (f *Fetcher) parseTypeBadge(s *goquery.Selection) string {
	label := UnknownTypeLabel
	s.Find("div.cat_geo").Children().EachWithBreak(func(_ int, child *goquery.Selection) bool {
		if l, ok := typeLabels[helpers.CleanText(child.Text())]; ok {
			label = l
			return false
		}
		return true
	})
	return label
}

// textNodes collects the cleaned direct text children of a selection, without
// descending into nested elements.
func textNodes(s *goquery.Selection) []string {
	var out []string
	s.Contents().Each(func(_ int, node *goquery.Selection) {
		if goquery.NodeName(node) != "#text" {
			return
		}
		if text := helpers.CleanText(node.Text()); text != "" {
			out = append(out, text)
		}
	})
	return out
}
