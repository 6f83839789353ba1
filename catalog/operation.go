package catalog

import "strings"

// Operation identifies a catalog operation. Callers dispatch on this
// typed identifier; the free-text classifier below exists only for
// callers migrating off printed query documents.
type Operation int

const (
	OpUnknown Operation = iota
	OpGetProducts
	OpGetCategories
	OpGetProductByID
	OpSearchProducts
	OpProductsByCategory
	OpFeaturedProducts
)

// String returns the operation name
func (op Operation) String() string {
	switch op {
	case OpGetProducts:
		return "get_products"
	case OpGetCategories:
		return "get_categories"
	case OpGetProductByID:
		return "get_product_by_id"
	case OpSearchProducts:
		return "search_products"
	case OpProductsByCategory:
		return "products_by_category"
	case OpFeaturedProducts:
		return "featured_products"
	default:
		return "unknown"
	}
}

// queryPatterns maps operation-name substrings to operations. More
// specific names come first: "query getproducts" is a prefix of
// "query getproductsbycategory", so the longer patterns must win.
var queryPatterns = []struct {
	substr string
	op     Operation
}{
	{"query getproductsbycategory", OpProductsByCategory},
	{"query getproductbyid", OpGetProductByID},
	{"query getfeaturedproducts", OpFeaturedProducts},
	{"query searchproducts", OpSearchProducts},
	{"query getcategories", OpGetCategories},
	{"query getproducts", OpGetProducts},
}

// ClassifyQueryText classifies a printed query document by linear
// substring matching against the recognized operation names. Anything
// ambiguous or malformed degrades to OpUnknown rather than failing
// loudly; executing OpUnknown is what raises the error. Pure function,
// no side effects.
func ClassifyQueryText(text string) Operation {
	lowered := strings.ToLower(text)
	for _, p := range queryPatterns {
		if strings.Contains(lowered, p.substr) {
			return p.op
		}
	}
	return OpUnknown
}
