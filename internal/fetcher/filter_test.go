package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestNormalizeDefaults(t *testing.T) {
	spec, err := DefaultDialect().Normalize(FilterSpec{})
	require.NoError(t, err)
	assert.Equal(t, []string{OptionAny}, spec.Locations)
	assert.Equal(t, []string{OptionAny}, spec.ListingTypes)
	assert.Equal(t, OptionAny, spec.Category)
}

func TestNormalizeClearsMinPriceForFree(t *testing.T) {
	spec, err := DefaultDialect().Normalize(FilterSpec{
		ListingTypes: []string{"For sale", OptionFree},
		MinPrice:     intPtr(10),
		MaxPrice:     intPtr(100),
	})
	require.NoError(t, err)
	assert.Nil(t, spec.MinPrice)
	assert.Equal(t, 100, *spec.MaxPrice)
}

func TestNormalizeRejectsUnknownOptions(t *testing.T) {
	d := DefaultDialect()

	_, err := d.Normalize(FilterSpec{Locations: []string{"Atlantis"}})
	assert.Error(t, err)

	_, err = d.Normalize(FilterSpec{ListingTypes: []string{"Bartering"}})
	assert.Error(t, err)

	_, err = d.Normalize(FilterSpec{Category: "Dragons"})
	assert.Error(t, err)
}

func TestNormalizeRejectsBadPrices(t *testing.T) {
	d := DefaultDialect()

	_, err := d.Normalize(FilterSpec{MinPrice: intPtr(-1)})
	assert.Error(t, err)

	_, err = d.Normalize(FilterSpec{MaxPrice: intPtr(-1)})
	assert.Error(t, err)

	_, err = d.Normalize(FilterSpec{MinPrice: intPtr(100), MaxPrice: intPtr(50)})
	assert.Error(t, err)
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	in := FilterSpec{
		ListingTypes: []string{OptionFree},
		MinPrice:     intPtr(10),
	}
	_, err := DefaultDialect().Normalize(in)
	require.NoError(t, err)
	assert.NotNil(t, in.MinPrice, "normalization must return a new spec, not mutate the input")
}

func TestQueryString(t *testing.T) {
	d := DefaultDialect()
	spec, err := d.Normalize(FilterSpec{
		Locations:    []string{"Tampere", "Pirkanmaa"},
		ListingTypes: []string{"For sale", OptionFree},
	})
	require.NoError(t, err)

	got := d.queryString(spec, "sohva pöytä", 2)
	// Multi-valued options keep their duplicate keys for OR semantics
	assert.Equal(t, "ca=11&m=210&w=111&ca=11&w=1&st=s&st=g&cg=0&q=sohva+p%C3%B6yt%C3%A4&o=2", got)
}

func TestQueryStringAnyEverything(t *testing.T) {
	d := DefaultDialect()
	spec, err := d.Normalize(FilterSpec{})
	require.NoError(t, err)

	got := d.queryString(spec, "", 1)
	assert.Equal(t, "w=3&st=s&st=k&st=u&st=h&st=g&cg=0&q=&o=1", got)
}
