package fetcher

import (
	"strconv"
	"strings"
)

// ParsePrice decodes a scraped price string ("1 234 €", "50€") into a bare
// integer. The currency symbol, thousands separators and range dashes are
// stripped. An absent price decodes to 0; whether that means "free" is decided
// by the listing type, not the price.
func ParsePrice(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if i := strings.Index(raw, "€"); i >= 0 {
		raw = raw[:i]
	}

	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0
	}

	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}
	return n
}
