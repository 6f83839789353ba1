package catalog

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/projectnexus/storefront/core"
)

// placeholderImage is served when the backend record carries no
// primary image. The title is embedded so the placeholder is at least
// recognizable.
const placeholderImage = "https://via.placeholder.com/300x300?text="

// Translator converts backend record shapes into canonical client
// shapes. It is safe for concurrent use.
//
// Ratings are synthesized because the backend does not provide them:
// rate in [4.0, 5.0), count in [10, 110). Callers must not rely on
// rating stability across reloads of the same product unless they
// construct the translator with a fixed seed.
type Translator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewTranslator creates a translator. seed pins the synthesized-rating
// sequence; 0 means time-seeded (ratings differ between runs).
func NewTranslator(seed int64) *Translator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Translator{rng: rand.New(rand.NewSource(seed))}
}

func (t *Translator) rating() Rating {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Rating{
		Rate:  4.0 + t.rng.Float64(),
		Count: 10 + t.rng.Intn(100),
	}
}

// Product translates one backend record into a canonical Product.
// A malformed record (unparseable or negative price) fails that record
// only; batch callers keep the rest of the batch.
func (t *Translator) Product(raw APIProduct) (Product, error) {
	price, err := strconv.ParseFloat(strings.TrimSpace(raw.Price), 64)
	if err != nil {
		return Product{}, &core.ClientError{
			Op:   "catalog.Translate",
			Kind: "translate",
			Key:  strconv.Itoa(raw.ID),
			Err:  fmt.Errorf("price %q: %w", raw.Price, core.ErrBadRecord),
		}
	}
	if price < 0 {
		return Product{}, &core.ClientError{
			Op:   "catalog.Translate",
			Kind: "translate",
			Key:  strconv.Itoa(raw.ID),
			Err:  fmt.Errorf("negative price %q: %w", raw.Price, core.ErrBadRecord),
		}
	}

	description := raw.Description
	if description == "" {
		description = strings.TrimSpace(raw.Brand + " " + raw.Name)
	}

	image := ""
	if raw.PrimaryImage != nil && *raw.PrimaryImage != "" {
		image = *raw.PrimaryImage
	} else {
		image = placeholderImage + url.QueryEscape(raw.Name)
	}

	return Product{
		ID:            raw.ID,
		Title:         raw.Name,
		Description:   description,
		Price:         price,
		Category:      raw.CategoryName,
		Image:         image,
		Rating:        t.rating(),
		Brand:         raw.Brand,
		StockQuantity: raw.StockQuantity,
		SellerName:    raw.SellerName,
		IsFeatured:    raw.IsFeatured,
		CreatedAt:     raw.CreatedAt,
	}, nil
}

// Products translates a batch. Bad records are dropped from the result
// and reported in the returned error slice; the rest of the batch
// survives.
func (t *Translator) Products(raw []APIProduct) ([]Product, []error) {
	products := make([]Product, 0, len(raw))
	var errs []error
	for _, r := range raw {
		p, err := t.Product(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		products = append(products, p)
	}
	return products, errs
}

// Category extracts a display name from a backend category entry.
// The backend returns richer objects; everything but the name is
// discarded. Unexpected shapes fall back to their JSON text.
func (t *Translator) Category(raw json.RawMessage) string {
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Name != "" {
		return obj.Name
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	return strings.Trim(string(raw), `"`)
}

// Categories translates a batch of category entries.
func (t *Translator) Categories(raw []json.RawMessage) []string {
	names := make([]string, 0, len(raw))
	for _, r := range raw {
		names = append(names, t.Category(r))
	}
	return names
}
