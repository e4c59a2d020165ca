package fetcher

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"rvolkov/toritracker/helpers"
)

// The site renders posting times in Finnish, either as a relative marker
// ("tänään 12:34", "eilen 09:15") or as day + 3-letter month abbreviation +
// time ("5 hei 18:02"). Years are never printed.
const (
	wordToday     = "tänään"
	wordYesterday = "eilen"
)

// finnishMonths maps the site's month abbreviations. Full month names
// ("heinäkuuta") resolve through the same table via their first three letters.
var finnishMonths = map[string]time.Month{
	"tam": time.January,
	"hel": time.February,
	"maa": time.March,
	"huh": time.April,
	"tou": time.May,
	"kes": time.June,
	"hei": time.July,
	"elo": time.August,
	"syy": time.September,
	"lok": time.October,
	"mar": time.November,
	"jou": time.December,
}

// siteLocation is the marketplace's home timezone. Scraped times are wall
// clock in this zone and are converted to UTC instants.
var siteLocation = loadSiteLocation()

func loadSiteLocation() *time.Location {
	loc, err := time.LoadLocation("Europe/Helsinki")
	if err != nil {
		return time.FixedZone("EET", 2*60*60)
	}
	return loc
}

// ParseSiteDate decodes a scraped date string into a UTC instant, relative to
// now. Today/yesterday markers are rewritten using the current calendar date
// before parsing. The year is never part of the markup, so the current year is
// assumed; if that would place the instant in the future (late December reading
// early January posts, or vice versa), the year rolls back by one.
func ParseSiteDate(raw string, now time.Time) (time.Time, error) {
	fields := strings.Fields(helpers.CleanText(raw))
	nowLocal := now.In(siteLocation)

	var (
		day      int
		month    time.Month
		clockStr string
	)

	switch len(fields) {
	case 2:
		base := nowLocal
		switch strings.ToLower(fields[0]) {
		case wordToday:
		case wordYesterday:
			base = base.AddDate(0, 0, -1)
		default:
			return time.Time{}, fmt.Errorf("unknown relative date marker %q", fields[0])
		}
		day = base.Day()
		month = base.Month()
		clockStr = fields[1]
	case 3:
		d, err := strconv.Atoi(fields[0])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid day %q: %w", fields[0], err)
		}
		key := strings.ToLower(fields[1])
		if len(key) > 3 {
			key = key[:3]
		}
		m, ok := finnishMonths[key]
		if !ok {
			return time.Time{}, fmt.Errorf("unknown month abbreviation %q", fields[1])
		}
		day = d
		month = m
		clockStr = fields[2]
	default:
		return time.Time{}, fmt.Errorf("unexpected date format %q", raw)
	}

	clock, err := time.Parse("15:04", clockStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time of day %q: %w", clockStr, err)
	}

	posted := time.Date(nowLocal.Year(), month, day, clock.Hour(), clock.Minute(), 0, 0, siteLocation)
	if posted.After(now) {
		posted = posted.AddDate(-1, 0, 0)
	}
	return posted.UTC(), nil
}
