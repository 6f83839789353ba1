package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/projectnexus/storefront/core"
)

// Transport fetches raw backend records for classified operations.
type Transport interface {
	// FetchProducts issues the collection GET for any product-list
	// operation (browse, search, by-category, featured).
	FetchProducts(ctx context.Context, q Query) (*APIProductsPage, error)

	// FetchProduct issues the single-entity GET.
	FetchProduct(ctx context.Context, id int) (*APIProduct, error)

	// FetchCategories issues the category collection GET.
	FetchCategories(ctx context.Context) (*APICategoriesPage, error)
}

// TokenSource supplies a bearer token for authenticated requests.
// An empty token means the request goes out unauthenticated.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Breaker guards calls to an unhealthy backend. Satisfied by
// resilience.CircuitBreaker and resilience.Retrier.
type Breaker interface {
	Execute(ctx context.Context, fn func() error) error
}

// RESTTransport adapts catalog operations onto the backend's REST
// collection endpoints. One HTTP GET per operation; no automatic
// retry, no request de-duplication, no cancellation of superseded
// requests.
type RESTTransport struct {
	baseURL         string
	client          *http.Client
	userAgent       string
	defaultPageSize int
	tokens          TokenSource
	breaker         Breaker
	logger          core.Logger
}

// TransportOption customizes the REST transport.
type TransportOption func(*RESTTransport)

// WithTokenSource attaches bearer tokens to outgoing requests.
func WithTokenSource(ts TokenSource) TransportOption {
	return func(t *RESTTransport) { t.tokens = ts }
}

// WithBreaker wraps requests in a circuit breaker.
func WithBreaker(b Breaker) TransportOption {
	return func(t *RESTTransport) { t.breaker = b }
}

// WithTransportLogger configures the logger.
func WithTransportLogger(l core.Logger) TransportOption {
	return func(t *RESTTransport) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewRESTTransport creates the REST transport adapter.
func NewRESTTransport(cfg *core.Config, opts ...TransportOption) *RESTTransport {
	t := &RESTTransport{
		baseURL:         cfg.BaseURL,
		userAgent:       cfg.HTTP.UserAgent,
		defaultPageSize: cfg.Catalog.DefaultPageSize,
		logger:          &core.NoOpLogger{},
		client: &http.Client{
			Timeout:   cfg.HTTP.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.defaultPageSize <= 0 {
		t.defaultPageSize = core.DefaultPageSize
	}
	return t
}

// BuildQuery converts a typed query into the backend's parameter
// vocabulary. Pagination converts offset/limit to page/page_size:
// page = floor(offset/limit) + 1, with the configured default page
// size standing in when the query has no limit. Offsets that are not
// exact multiples of the limit silently misalign.
//
// The rating sort has no backend ordering token and is dropped.
func (t *RESTTransport) BuildQuery(q Query) url.Values {
	params := url.Values{}

	if q.Limit > 0 {
		params.Set("page_size", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		limit := q.Limit
		if limit <= 0 {
			limit = t.defaultPageSize
		}
		page := q.Offset/limit + 1
		params.Set("page", strconv.Itoa(page))
	}
	if q.Filters.Category != "" {
		params.Set("category_name", q.Filters.Category)
	}
	if q.Filters.Search != "" {
		params.Set("search", q.Filters.Search)
	}
	if q.Filters.PriceMin != nil {
		params.Set("price__gte", strconv.FormatFloat(*q.Filters.PriceMin, 'f', -1, 64))
	}
	if q.Filters.PriceMax != nil {
		params.Set("price__lte", strconv.FormatFloat(*q.Filters.PriceMax, 'f', -1, 64))
	}
	if token := q.Filters.Sort.orderingToken(); token != "" {
		params.Set("ordering", token)
	}
	if q.FeaturedOnly {
		params.Set("is_featured", "true")
	}

	return params
}

// FetchProducts performs the product collection GET.
func (t *RESTTransport) FetchProducts(ctx context.Context, q Query) (*APIProductsPage, error) {
	var page APIProductsPage
	if err := t.get(ctx, "/products/", t.BuildQuery(q), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// FetchProduct performs the single-entity GET.
func (t *RESTTransport) FetchProduct(ctx context.Context, id int) (*APIProduct, error) {
	var product APIProduct
	path := fmt.Sprintf("/products/%d/", id)
	if err := t.get(ctx, path, nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// FetchCategories performs the category collection GET.
func (t *RESTTransport) FetchCategories(ctx context.Context) (*APICategoriesPage, error) {
	var page APICategoriesPage
	if err := t.get(ctx, "/categories/", nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (t *RESTTransport) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if t.breaker != nil {
		return t.breaker.Execute(ctx, func() error {
			return t.doGet(ctx, path, params, out)
		})
	}
	return t.doGet(ctx, path, params, out)
}

func (t *RESTTransport) doGet(ctx context.Context, path string, params url.Values, out interface{}) error {
	fullURL := t.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	requestID := uuid.NewString()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	if t.tokens != nil {
		token, err := t.tokens.AccessToken(ctx)
		if err != nil {
			// Requests degrade to unauthenticated when the token
			// store misbehaves; the backend decides what that means.
			t.logger.Warn("Token source failed, sending unauthenticated", map[string]interface{}{
				"request_id": requestID,
				"path":       path,
				"error":      err.Error(),
			})
		} else if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	t.logger.Debug("Catalog request", map[string]interface{}{
		"request_id": requestID,
		"method":     http.MethodGet,
		"url":        fullURL,
	})

	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Error("Catalog request failed", map[string]interface{}{
			"request_id": requestID,
			"url":        fullURL,
			"error":      err.Error(),
		})
		return fmt.Errorf("GET %s: %v: %w", path, err, core.ErrConnectivity)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response for %s: %v: %w", path, err, core.ErrConnectivity)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := core.DecodeAPIError(resp.StatusCode, body)
		t.logger.Warn("Catalog request rejected", map[string]interface{}{
			"request_id": requestID,
			"url":        fullURL,
			"status":     resp.StatusCode,
			"message":    apiErr.Message,
		})
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &core.ClientError{
			Op:   "catalog.Fetch",
			Kind: "transport",
			Key:  path,
			Err:  fmt.Errorf("decoding response: %v: %w", err, core.ErrBadRecord),
		}
	}
	return nil
}
