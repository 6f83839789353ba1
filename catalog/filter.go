package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/projectnexus/storefront/core"
)

// SortKey enumerates the supported result orderings.
type SortKey int

const (
	SortDefault SortKey = iota // no sort chosen; backend's natural order
	SortName
	SortPriceAsc
	SortPriceDesc
	SortRating
	SortNewest
)

// String returns the sort key name
func (s SortKey) String() string {
	switch s {
	case SortName:
		return "name"
	case SortPriceAsc:
		return "price_asc"
	case SortPriceDesc:
		return "price_desc"
	case SortRating:
		return "rating"
	case SortNewest:
		return "newest"
	default:
		return "default"
	}
}

// orderingToken maps a sort key to the backend's ordering parameter.
// The empty token means no ordering parameter is sent: SortDefault
// leaves the backend's natural order alone, and SortRating cannot be
// ordered server side (ratings are synthesized client side).
func (s SortKey) orderingToken() string {
	switch s {
	case SortName:
		return "name"
	case SortPriceAsc:
		return "price"
	case SortPriceDesc:
		return "-price"
	case SortNewest:
		return "-created_at"
	default:
		return ""
	}
}

// Filters is the filter state for product queries. Zero value means
// unfiltered, in the backend's natural order.
//
// Lifecycle: a screen creates DefaultFilters on mount, mutates fields
// through its filter UI, and calls Reset (or drops the value) on clear
// or navigation away.
type Filters struct {
	Category string   // empty = absent
	Search   string   // free-text search
	PriceMin *float64 // nil = unbounded
	PriceMax *float64 // nil = unbounded
	Sort     SortKey
}

// DefaultFilters returns the filter defaults
func DefaultFilters() Filters {
	return Filters{}
}

// Reset restores the defaults in place
func (f *Filters) Reset() {
	*f = DefaultFilters()
}

// Validate checks price-range consistency: when both bounds are set,
// min must not exceed max.
func (f Filters) Validate() error {
	if f.PriceMin != nil && *f.PriceMin < 0 {
		return fmt.Errorf("price minimum %v is negative: %w", *f.PriceMin, core.ErrInvalidConfiguration)
	}
	if f.PriceMin != nil && f.PriceMax != nil && *f.PriceMin > *f.PriceMax {
		return fmt.Errorf("price range min %v > max %v: %w", *f.PriceMin, *f.PriceMax, core.ErrInvalidConfiguration)
	}
	return nil
}

// Key returns the canonical cache key for this argument set. Field
// order is fixed so equal filters always produce equal keys.
// Pagination is deliberately excluded: pages of the same argument set
// share one cache entry.
func (f Filters) Key() string {
	var b strings.Builder
	b.WriteString("cat=")
	b.WriteString(f.Category)
	b.WriteString("|q=")
	b.WriteString(f.Search)
	b.WriteString("|min=")
	if f.PriceMin != nil {
		b.WriteString(strconv.FormatFloat(*f.PriceMin, 'f', -1, 64))
	}
	b.WriteString("|max=")
	if f.PriceMax != nil {
		b.WriteString(strconv.FormatFloat(*f.PriceMax, 'f', -1, 64))
	}
	b.WriteString("|sort=")
	b.WriteString(f.Sort.String())
	return b.String()
}

// Query carries the filter state plus pagination for one catalog
// fetch.
//
// Offset must be an exact multiple of Limit: the backend pages by
// number, so page is derived as floor(offset/limit)+1 and other
// offsets silently misalign. This is a known fragility of the paging
// scheme, not a contract.
type Query struct {
	Filters      Filters
	Limit        int // page size; 0 = backend default
	Offset       int // item offset; converted to a page number
	FeaturedOnly bool
}
