// Package catalog implements the product data layer of the storefront
// client: typed catalog operations dispatched over a REST transport, a
// shape translator from backend records to canonical products, and a
// normalized cache with cache-first and cache-and-network read
// policies.
package catalog

import "encoding/json"

// Rating is an aggregate product rating. The backend does not serve
// ratings, so these values are synthesized by the translator and are
// not stable across reloads unless the rating source is seeded.
type Rating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

// Product is the canonical product record, independent of backend
// field naming. Price is always a non-negative float even though the
// backend transmits it as a string.
type Product struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Image       string  `json:"image"`
	Rating      Rating  `json:"rating"`

	// Optional metadata carried through from the backend
	Brand         string `json:"brand,omitempty"`
	StockQuantity int    `json:"stock_quantity,omitempty"`
	SellerName    string `json:"seller_name,omitempty"`
	IsFeatured    bool   `json:"is_featured,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// APIProduct mirrors the backend's product record shape.
type APIProduct struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Price         string  `json:"price"` // transmitted as a string
	SKU           string  `json:"sku"`
	CategoryName  string  `json:"category_name"`
	SellerName    string  `json:"seller_name"`
	StockQuantity int     `json:"stock_quantity"`
	IsActive      bool    `json:"is_active"`
	IsFeatured    bool    `json:"is_featured"`
	Brand         string  `json:"brand"`
	PrimaryImage  *string `json:"primary_image"`
	CreatedAt     string  `json:"created_at"`
}

// APIProductsPage is the backend's paginated collection envelope.
type APIProductsPage struct {
	Count    int          `json:"count"`
	Next     *string      `json:"next"`
	Previous *string      `json:"previous"`
	Results  []APIProduct `json:"results"`
}

// APICategoriesPage is the collection envelope for categories. Results
// stay raw because the backend has shipped both object and bare-string
// entries; the translator sorts them out.
type APICategoriesPage struct {
	Count   int               `json:"count"`
	Next    *string           `json:"next"`
	Results []json.RawMessage `json:"results"`
}

// SearchResult is a translated page of products with pagination
// metadata.
type SearchResult struct {
	Products   []Product
	TotalCount int
	HasMore    bool
}
