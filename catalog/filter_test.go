package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/projectnexus/storefront/core"
)

func fptr(v float64) *float64 { return &v }

func TestFilters_Validate(t *testing.T) {
	f := DefaultFilters()
	assert.NoError(t, f.Validate())

	f.PriceMin = fptr(10)
	f.PriceMax = fptr(100)
	assert.NoError(t, f.Validate())

	f.PriceMin = fptr(200)
	err := f.Validate()
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)

	f = Filters{PriceMin: fptr(-1)}
	assert.Error(t, f.Validate())

	// Single bound is always fine
	f = Filters{PriceMax: fptr(5)}
	assert.NoError(t, f.Validate())
}

func TestFilters_Key_Stable(t *testing.T) {
	a := Filters{Category: "Electronics", Search: "phone", PriceMin: fptr(10), PriceMax: fptr(500), Sort: SortPriceAsc}
	b := Filters{Category: "Electronics", Search: "phone", PriceMin: fptr(10), PriceMax: fptr(500), Sort: SortPriceAsc}

	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, "cat=Electronics|q=phone|min=10|max=500|sort=price_asc", a.Key())
}

func TestFilters_Key_Distinguishes(t *testing.T) {
	base := Filters{Category: "Electronics", Sort: SortName}
	keys := map[string]bool{base.Key(): true}

	variants := []Filters{
		{Category: "Books", Sort: SortName},
		{Category: "Electronics", Search: "x", Sort: SortName},
		{Category: "Electronics", PriceMin: fptr(1), Sort: SortName},
		{Category: "Electronics", PriceMax: fptr(1), Sort: SortName},
		{Category: "Electronics", Sort: SortNewest},
		{Category: "Electronics"}, // no sort chosen keys apart from name
	}
	for _, v := range variants {
		k := v.Key()
		if keys[k] {
			t.Errorf("filter variant %+v collides on key %q", v, k)
		}
		keys[k] = true
	}
}

func TestFilters_Reset(t *testing.T) {
	f := Filters{Category: "Books", Search: "go", PriceMin: fptr(1), Sort: SortNewest}
	f.Reset()
	assert.Equal(t, DefaultFilters(), f)
}

func TestSortKey_OrderingTokens(t *testing.T) {
	tokens := map[SortKey]string{
		SortDefault:   "", // no sort chosen, no parameter sent
		SortPriceAsc:  "price",
		SortPriceDesc: "-price",
		SortName:      "name",
		SortNewest:    "-created_at",
		SortRating:    "", // unsupported by the backend, dropped
	}
	for key, want := range tokens {
		if got := key.orderingToken(); got != want {
			t.Errorf("%v.orderingToken() = %q, want %q", key, got, want)
		}
	}
}
