package catalog

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/projectnexus/storefront/core"
)

func sptr(s string) *string { return &s }

func rawProduct() APIProduct {
	return APIProduct{
		ID:            7,
		Name:          "Wireless Headphones",
		Description:   "Over-ear, noise cancelling",
		Price:         "149.99",
		CategoryName:  "Electronics",
		SellerName:    "Acme Audio",
		StockQuantity: 12,
		IsFeatured:    true,
		Brand:         "Acme",
		PrimaryImage:  sptr("https://cdn.example.com/p/7.jpg"),
		CreatedAt:     "2025-03-01T10:00:00Z",
	}
}

func TestTranslator_Product(t *testing.T) {
	tr := NewTranslator(1)

	p, err := tr.Product(rawProduct())
	if err != nil {
		t.Fatalf("Product failed: %v", err)
	}

	if p.ID != 7 {
		t.Errorf("ID = %d", p.ID)
	}
	if p.Title != "Wireless Headphones" {
		t.Errorf("name should map to Title, got %q", p.Title)
	}
	if p.Price != 149.99 {
		t.Errorf("price %q should parse to 149.99, got %v", "149.99", p.Price)
	}
	if p.Category != "Electronics" {
		t.Errorf("category_name should map to Category, got %q", p.Category)
	}
	if p.Image != "https://cdn.example.com/p/7.jpg" {
		t.Errorf("primary_image should map to Image, got %q", p.Image)
	}
	if p.Rating.Rate < 4.0 || p.Rating.Rate >= 5.0 {
		t.Errorf("synthesized rate %v out of [4.0, 5.0)", p.Rating.Rate)
	}
	if p.Rating.Count < 10 || p.Rating.Count >= 110 {
		t.Errorf("synthesized count %d out of [10, 110)", p.Rating.Count)
	}
}

func TestTranslator_Product_DescriptionFallback(t *testing.T) {
	tr := NewTranslator(1)
	raw := rawProduct()
	raw.Description = ""

	p, err := tr.Product(raw)
	if err != nil {
		t.Fatalf("Product failed: %v", err)
	}
	if p.Description != "Acme Wireless Headphones" {
		t.Errorf("fallback description = %q", p.Description)
	}
}

func TestTranslator_Product_PlaceholderImage(t *testing.T) {
	tr := NewTranslator(1)

	for _, img := range []*string{nil, sptr("")} {
		raw := rawProduct()
		raw.PrimaryImage = img

		p, err := tr.Product(raw)
		if err != nil {
			t.Fatalf("Product failed: %v", err)
		}
		want := "https://via.placeholder.com/300x300?text=Wireless+Headphones"
		if p.Image != want {
			t.Errorf("placeholder = %q, want %q", p.Image, want)
		}
	}
}

func TestTranslator_Product_BadPrice(t *testing.T) {
	tr := NewTranslator(1)

	for _, price := range []string{"", "free", "12,99"} {
		raw := rawProduct()
		raw.Price = price

		_, err := tr.Product(raw)
		if err == nil {
			t.Errorf("price %q should fail translation", price)
			continue
		}
		if !errors.Is(err, core.ErrBadRecord) {
			t.Errorf("price %q: expected ErrBadRecord, got %v", price, err)
		}
	}
}

func TestTranslator_Product_NegativePrice(t *testing.T) {
	tr := NewTranslator(1)
	raw := rawProduct()
	raw.Price = "-5.00"

	_, err := tr.Product(raw)
	if !errors.Is(err, core.ErrBadRecord) {
		t.Errorf("negative price should be a bad record, got %v", err)
	}
}

func TestTranslator_Products_BadRecordFailsAlone(t *testing.T) {
	tr := NewTranslator(1)

	good1 := rawProduct()
	bad := rawProduct()
	bad.ID = 8
	bad.Price = "not-a-number"
	good2 := rawProduct()
	good2.ID = 9

	products, errs := tr.Products([]APIProduct{good1, bad, good2})
	if len(products) != 2 {
		t.Fatalf("expected 2 surviving products, got %d", len(products))
	}
	if products[0].ID != 7 || products[1].ID != 9 {
		t.Errorf("wrong survivors: %v, %v", products[0].ID, products[1].ID)
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
	if !errors.Is(errs[0], core.ErrBadRecord) {
		t.Errorf("expected ErrBadRecord, got %v", errs[0])
	}
}

func TestTranslator_SeededRatingsReproducible(t *testing.T) {
	a := NewTranslator(42)
	b := NewTranslator(42)

	for i := 0; i < 5; i++ {
		pa, _ := a.Product(rawProduct())
		pb, _ := b.Product(rawProduct())
		if pa.Rating != pb.Rating {
			t.Fatalf("seeded translators diverged at %d: %+v vs %+v", i, pa.Rating, pb.Rating)
		}
	}
}

func TestTranslator_Category(t *testing.T) {
	tr := NewTranslator(1)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "object with name",
			raw:  `{"id": 1, "name": "Electronics", "description": "Gadgets"}`,
			want: "Electronics",
		},
		{
			name: "bare string",
			raw:  `"Books"`,
			want: "Books",
		},
		{
			name: "object without name stringifies",
			raw:  `{"id": 2}`,
			want: `{"id": 2}`,
		},
		{
			name: "number stringifies",
			raw:  `3`,
			want: `3`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tr.Category(json.RawMessage(tt.raw)); got != tt.want {
				t.Errorf("Category(%s) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestTranslator_Categories(t *testing.T) {
	tr := NewTranslator(1)
	raws := []json.RawMessage{
		json.RawMessage(`{"id": 1, "name": "Electronics"}`),
		json.RawMessage(`{"id": 2, "name": "Books"}`),
	}
	got := tr.Categories(raws)
	if len(got) != 2 || got[0] != "Electronics" || got[1] != "Books" {
		t.Errorf("Categories = %v", got)
	}
}
