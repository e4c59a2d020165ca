package fetcher

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"rvolkov/toritracker/helpers"
	apperr "rvolkov/toritracker/pkg/errors"
)

// Labels on the detail page's technical data table.
const (
	labelPostedAt    = "Ilmoitus jätetty:"
	labelListingType = "Ilmoitustyyppi:"
)

// FetchDetail scrapes a single listing page. Three outcomes are distinguished:
// the detail record, a Gone error when the page loads but the listing has been
// removed (terminal, user-visible), and a NotFound error when the page did not
// load as expected (soft, retryable).
func (f *Fetcher) FetchDetail(ctx context.Context, link string) (*ListingDetail, error) {
	link = helpers.CleanLink(link)

	doc, err := f.fetchPage(ctx, link)
	if err != nil {
		return nil, err
	}

	content := doc.Find("div.content")
	if content.Length() == 0 {
		return nil, apperr.NewNotFound("tori", link)
	}
	techData := content.Find("table.tech_data")
	if techData.Length() == 0 {
		return nil, apperr.NewGone("tori", link)
	}

	detail := &ListingDetail{
		Listing: Listing{
			UID:       uuid.NewString(),
			Title:     helpers.CleanText(content.Find("div.topic h1").Text()),
			Link:      link,
			TypeLabel: UnknownTypeLabel,
		},
	}

	if raw := tableValue(techData, labelPostedAt); raw != "" {
		postedAt, err := ParseSiteDate(raw, f.now())
		if err != nil {
			f.log.Debug().Err(err).Str("link", link).Msg("Could not decode detail page date")
		} else {
			detail.PostedAt = postedAt
		}
	}
	if raw := tableValue(techData, labelListingType); raw != "" {
		if label, ok := typeLabels[raw]; ok {
			detail.TypeLabel = label
		}
	}

	detail.Price = ParsePrice(detailPriceText(content))

	if seller := content.Find("div#seller_info").ChildrenFiltered("div").First(); seller.Length() > 0 {
		detail.LocationPath = textNodes(seller)
	}
	detail.Description = strings.Join(textNodes(content.Find("div.body")), "\n")

	if src, ok := content.Find("img#main_image").Attr("src"); ok {
		// A .gif here is the site's "no photo" placeholder.
		if !strings.HasSuffix(src, ".gif") {
			detail.ImageURL = helpers.CleanLink(src)
		}
	}

	return detail, nil
}

// tableValue finds the value cell following the given label cell.
func tableValue(table *goquery.Selection, label string) string {
	value := ""
	table.Find("td").EachWithBreak(func(_ int, td *goquery.Selection) bool {
		if helpers.CleanText(td.Text()) == label {
			value = helpers.CleanText(td.Next().Text())
			return false
		}
		return true
	})
	return value
}

// detailPriceText digs out the price string, which sits either directly in the
// price span or in a nested one.
func detailPriceText(content *goquery.Selection) string {
	span := content.Find("div.price span").First()
	if span.Length() == 0 {
		return ""
	}
	if nodes := textNodes(span); len(nodes) > 0 {
		return nodes[0]
	}
	return helpers.CleanText(span.Find("span").First().Text())
}
